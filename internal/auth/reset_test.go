package auth_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/classbridge/classbridge-lms/internal/auth"
	"github.com/classbridge/classbridge-lms/internal/lms"
)

type captureMailer struct {
	email, otp string
}

func (m *captureMailer) SendOTP(_ context.Context, email, otp string) error {
	m.email, m.otp = email, otp
	return nil
}

func seedUser(t *testing.T) *lms.MemoryStore {
	t.Helper()
	store := lms.NewMemoryStore()
	require.NoError(t, store.CreateUser(context.Background(), lms.User{
		ID: "u1", Name: "Ana", Email: "ana@example.com", PasswordHash: "old-hash", Role: lms.RoleStudent,
	}))
	return store
}

func TestResetFlow(t *testing.T) {
	ctx := context.Background()
	store := seedUser(t)
	mailer := &captureMailer{}
	pr := auth.NewPasswordReset(store, mailer)

	require.NoError(t, pr.Request(ctx, "ana@example.com"))
	require.Equal(t, "ana@example.com", mailer.email)
	require.Len(t, mailer.otp, 6)

	require.NoError(t, pr.Verify(ctx, "ana@example.com", mailer.otp))
	require.NoError(t, pr.Reset(ctx, "ana@example.com", mailer.otp, "new-hash"))

	u, err := store.GetUserByEmail(ctx, "ana@example.com")
	require.NoError(t, err)
	require.Equal(t, "new-hash", u.PasswordHash)

	// the OTP is consumed
	err = pr.Verify(ctx, "ana@example.com", mailer.otp)
	require.True(t, lms.IsKind(err, lms.KindValidation))
}

func TestVerifyWrongOTP(t *testing.T) {
	ctx := context.Background()
	store := seedUser(t)
	mailer := &captureMailer{}
	pr := auth.NewPasswordReset(store, mailer)

	require.NoError(t, pr.Request(ctx, "ana@example.com"))
	err := pr.Verify(ctx, "ana@example.com", "000000")
	if mailer.otp == "000000" {
		t.Skip("astronomically unlucky OTP collision")
	}
	require.True(t, lms.IsKind(err, lms.KindValidation))
}

func TestRequestUnknownEmail(t *testing.T) {
	pr := auth.NewPasswordReset(seedUser(t), &captureMailer{})
	err := pr.Request(context.Background(), "nobody@example.com")
	require.True(t, lms.IsKind(err, lms.KindNotFound))
}
