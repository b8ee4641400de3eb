package http

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/classbridge/classbridge-lms/internal/auth"
	authmw "github.com/classbridge/classbridge-lms/internal/auth/middleware"
	"github.com/classbridge/classbridge-lms/internal/lms"
)

var validate = validator.New()

type registerReq struct {
	Name     string `json:"name" validate:"required,min=2"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Role     string `json:"role" validate:"omitempty,oneof=student teacher"`
}

// RegisterHandler creates a new account. Self-registration is limited to
// student and teacher; admins are provisioned out of band.
func RegisterHandler(store lms.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req registerReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		if err := validate.Struct(req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		role := lms.Role(req.Role)
		if role == "" {
			role = lms.RoleStudent
		}
		email := strings.ToLower(strings.TrimSpace(req.Email))
		if _, err := store.GetUserByEmail(r.Context(), email); err == nil {
			http.Error(w, "email already registered", http.StatusConflict)
			return
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), 12)
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		u := lms.User{
			ID:           uuid.NewString(),
			Name:         strings.TrimSpace(req.Name),
			Email:        email,
			PasswordHash: string(hash),
			Role:         role,
			CreatedAt:    time.Now().UnixMilli(),
		}
		if err := store.CreateUser(r.Context(), u); err != nil {
			writeErr(w, err)
			return
		}
		writeJSONStatus(w, http.StatusCreated, u)
	}
}

type loginReq struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func LoginHandler(store lms.Store, authSvc *authmw.AuthService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		if err := validate.Struct(req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		u, err := store.GetUserByEmail(r.Context(), strings.ToLower(strings.TrimSpace(req.Email)))
		if err != nil {
			http.Error(w, "invalid credentials", http.StatusUnauthorized)
			return
		}
		if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)) != nil {
			http.Error(w, "invalid credentials", http.StatusUnauthorized)
			return
		}
		tok, err := authSvc.IssueJWT(u.ID, u.Role)
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, map[string]any{"token": tok, "user": u})
	}
}

// MeHandler returns the authenticated user's own record.
func MeHandler(store lms.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := authmw.IdentityFromContext(r.Context())
		if id.UserID == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		u, err := store.GetUser(r.Context(), id.UserID)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, u)
	}
}

type changePasswordReq struct {
	OldPassword string `json:"old_password" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=6"`
}

func ChangePasswordHandler(store lms.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := authmw.IdentityFromContext(r.Context())
		if id.UserID == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		var req changePasswordReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		if err := validate.Struct(req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		u, err := store.GetUser(r.Context(), id.UserID)
		if err != nil {
			writeErr(w, err)
			return
		}
		if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.OldPassword)) != nil {
			http.Error(w, "incorrect old password", http.StatusForbidden)
			return
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), 12)
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		u.PasswordHash = string(hash)
		if err := store.UpdateUser(r.Context(), u); err != nil {
			writeErr(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// Password reset is a three-step OTP flow: request mails a one-time code,
// verify checks it, reset swaps the password and clears the code.

func RequestOTPHandler(reset *auth.PasswordReset) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Email string `json:"email"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" {
			http.Error(w, "email required", http.StatusBadRequest)
			return
		}
		if err := reset.Request(r.Context(), strings.ToLower(req.Email)); err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, map[string]string{"status": "otp sent"})
	}
}

func VerifyOTPHandler(reset *auth.PasswordReset) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Email string `json:"email"`
			OTP   string `json:"otp"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" || req.OTP == "" {
			http.Error(w, "email and otp required", http.StatusBadRequest)
			return
		}
		if err := reset.Verify(r.Context(), strings.ToLower(req.Email), req.OTP); err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, map[string]string{"status": "ok"})
	}
}

func ResetPasswordHandler(reset *auth.PasswordReset) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Email       string `json:"email"`
			OTP         string `json:"otp"`
			NewPassword string `json:"new_password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" || req.OTP == "" {
			http.Error(w, "email and otp required", http.StatusBadRequest)
			return
		}
		if len(req.NewPassword) < 6 {
			http.Error(w, "password too short", http.StatusBadRequest)
			return
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), 12)
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		if err := reset.Reset(r.Context(), strings.ToLower(req.Email), req.OTP, string(hash)); err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, map[string]string{"status": "password reset"})
	}
}
