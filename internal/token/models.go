// Package token issues and consumes the single-use secrets that gate
// onboarding transitions: 6-digit email-ownership codes and opaque tokens for
// password reset. Every secret is time-bounded and consumed at most once.
package token

import (
	"time"

	"tradegate/internal/account"
	id "tradegate/pkg/domain"
)

// Purpose scopes a token to exactly one action.
type Purpose string

const (
	PurposeEmailVerify   Purpose = "email_verify"
	PurposePasswordReset Purpose = "password_reset"
)

// PendingRegistration is the ephemeral record between "send code" and
// "verify code". At most one live record exists per email; issuing a new code
// overwrites the old one.
type PendingRegistration struct {
	Email        string
	Code         string
	Role         account.Role
	PasswordHash string
	ExpiresAt    time.Time
}

// Expired reports whether the code window has passed.
func (p PendingRegistration) Expired(now time.Time) bool {
	return now.After(p.ExpiresAt)
}

// Token is an opaque, high-entropy, single-use credential bound to one
// account and one purpose.
type Token struct {
	ID        id.TokenID
	AccountID id.AccountID
	Purpose   Purpose
	Value     string
	ExpiresAt time.Time
	UsedAt    *time.Time
	CreatedAt time.Time
}

// Live reports whether the token can still authorize its action.
func (t Token) Live(now time.Time) bool {
	return t.UsedAt == nil && now.Before(t.ExpiresAt)
}
