package auth

import (
	"context"
	"crypto/rand"
	"fmt"
	"log"
	"math/big"
	"time"

	"github.com/classbridge/classbridge-lms/internal/lms"
)

// Mailer delivers the one-time passcode. Delivery is a collaborator concern;
// the dev implementation just logs.
type Mailer interface {
	SendOTP(ctx context.Context, email, otp string) error
}

type LogMailer struct{}

func (LogMailer) SendOTP(_ context.Context, email, otp string) error {
	log.Printf("mailer: OTP for %s: %s", email, otp)
	return nil
}

const otpTTL = 10 * time.Minute

// PasswordReset implements the OTP-based reset flow: request issues a 6-digit
// code with a 10-minute expiry, verify checks it, reset consumes it.
type PasswordReset struct {
	store  lms.Store
	mailer Mailer
}

func NewPasswordReset(store lms.Store, mailer Mailer) *PasswordReset {
	if mailer == nil {
		mailer = LogMailer{}
	}
	return &PasswordReset{store: store, mailer: mailer}
}

func (p *PasswordReset) Request(ctx context.Context, email string) error {
	u, err := p.store.GetUserByEmail(ctx, email)
	if err != nil {
		return err
	}
	otp, err := sixDigits()
	if err != nil {
		return err
	}
	u.ResetOTP = otp
	u.ResetOTPExpires = time.Now().Add(otpTTL).UnixMilli()
	if err := p.store.UpdateUser(ctx, u); err != nil {
		return err
	}
	return p.mailer.SendOTP(ctx, email, otp)
}

func (p *PasswordReset) Verify(ctx context.Context, email, otp string) error {
	u, err := p.store.GetUserByEmail(ctx, email)
	if err != nil {
		return err
	}
	if u.ResetOTP == "" || u.ResetOTP != otp || u.ResetOTPExpires < time.Now().UnixMilli() {
		return lms.E(lms.KindValidation, "invalid or expired OTP")
	}
	return nil
}

// Reset sets the new password hash and clears the OTP.
func (p *PasswordReset) Reset(ctx context.Context, email, otp, newHash string) error {
	if err := p.Verify(ctx, email, otp); err != nil {
		return err
	}
	u, err := p.store.GetUserByEmail(ctx, email)
	if err != nil {
		return err
	}
	u.PasswordHash = newHash
	u.ResetOTP = ""
	u.ResetOTPExpires = 0
	return p.store.UpdateUser(ctx, u)
}

func sixDigits() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}
