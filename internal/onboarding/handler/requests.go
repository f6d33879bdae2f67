package handler

import (
	"strings"

	"tradegate/internal/account"
	"tradegate/internal/onboarding"
	dErrors "tradegate/pkg/domain-errors"
	emailutil "tradegate/pkg/email"
)

// RegisterRequest is the HTTP request body for POST /onboarding/register.
type RegisterRequest struct {
	Email    string `json:"email"`
	Role     string `json:"role"`
	Password string `json:"password"`

	parsedRole account.Role
}

func (r *RegisterRequest) Validate() error {
	r.Email = emailutil.Normalize(r.Email)
	if r.Email == "" {
		return dErrors.New(dErrors.CodeValidation, "email is required")
	}
	if r.Password == "" {
		return dErrors.New(dErrors.CodeValidation, "password is required")
	}

	role := account.Role(strings.TrimSpace(r.Role))
	if !role.IsValid() || role == account.RoleAdmin {
		return dErrors.Newf(dErrors.CodeValidation, "invalid role %q", r.Role)
	}
	r.parsedRole = role
	return nil
}

// ParsedRole returns the validated role.
func (r *RegisterRequest) ParsedRole() account.Role { return r.parsedRole }

// VerifyRequest is the HTTP request body for POST /onboarding/verify.
type VerifyRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

func (r *VerifyRequest) Validate() error {
	r.Email = emailutil.Normalize(r.Email)
	r.Code = strings.TrimSpace(r.Code)
	if r.Email == "" || r.Code == "" {
		return dErrors.New(dErrors.CodeValidation, "email and code are required")
	}
	return nil
}

// DecisionRequest is the HTTP request body for
// POST /admin/documents/{documentID}/decision.
type DecisionRequest struct {
	Decision string `json:"decision"`
	Comment  string `json:"comment"`

	parsedDecision onboarding.Decision
}

func (r *DecisionRequest) Validate() error {
	decision := onboarding.Decision(strings.TrimSpace(r.Decision))
	if !decision.IsValid() {
		return dErrors.Newf(dErrors.CodeValidation, "invalid decision %q", r.Decision)
	}
	r.Comment = strings.TrimSpace(r.Comment)
	r.parsedDecision = decision
	return nil
}

// ParsedDecision returns the validated decision.
func (r *DecisionRequest) ParsedDecision() onboarding.Decision { return r.parsedDecision }
