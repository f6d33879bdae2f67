package handler

import (
	"strings"

	dErrors "tradegate/pkg/domain-errors"
	emailutil "tradegate/pkg/email"
)

// LoginRequest is the HTTP request body for POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r *LoginRequest) Validate() error {
	r.Email = emailutil.Normalize(r.Email)
	if r.Email == "" || r.Password == "" {
		return dErrors.New(dErrors.CodeValidation, "email and password are required")
	}
	return nil
}

// LoginResponse carries the session token and the account snapshot.
type LoginResponse struct {
	Token  string `json:"token"`
	ID     string `json:"id"`
	Role   string `json:"role"`
	Status string `json:"status"`
}

// ResetRequest is the HTTP request body for POST /auth/password-reset.
type ResetRequest struct {
	Email string `json:"email"`
}

func (r *ResetRequest) Validate() error {
	r.Email = emailutil.Normalize(r.Email)
	if r.Email == "" {
		return dErrors.New(dErrors.CodeValidation, "email is required")
	}
	return nil
}

// CompleteResetRequest is the HTTP request body for
// POST /auth/password-reset/complete.
type CompleteResetRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

func (r *CompleteResetRequest) Validate() error {
	r.Token = strings.TrimSpace(r.Token)
	if r.Token == "" || r.NewPassword == "" {
		return dErrors.New(dErrors.CodeValidation, "token and new_password are required")
	}
	return nil
}
