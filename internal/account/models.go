// Package account defines the marketplace participant account and its
// lifecycle enums. Accounts are mutated only through onboarding and auth
// service transitions; rows are never hard-deleted.
package account

import (
	"time"

	id "tradegate/pkg/domain"
)

// Role distinguishes participant categories. Buyers activate straight after
// email proof; suppliers and professional buyers pass document review first.
type Role string

const (
	RoleBuyer             Role = "buyer"
	RoleSupplier          Role = "supplier"
	RoleProfessionalBuyer Role = "professional_buyer"
	RoleAdmin             Role = "admin"
)

func (r Role) IsValid() bool {
	switch r {
	case RoleBuyer, RoleSupplier, RoleProfessionalBuyer, RoleAdmin:
		return true
	}
	return false
}

// RequiresDocuments reports whether the role passes document review before
// activation.
func (r Role) RequiresDocuments() bool {
	return r == RoleSupplier || r == RoleProfessionalBuyer
}

// Status is the onboarding lifecycle state.
type Status string

const (
	StatusPending           Status = "pending"
	StatusEmailPending      Status = "email_pending_verification"
	StatusAwaitingDocuments Status = "awaiting_documents"
	StatusActive            Status = "active"
	StatusSuspended         Status = "suspended"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusEmailPending, StatusAwaitingDocuments, StatusActive, StatusSuspended:
		return true
	}
	return false
}

// Account is the persisted participant identity.
//
// Invariant: Status == StatusActive implies EmailVerified, and for
// document-bearing roles every required document kind has an approved
// document.
type Account struct {
	ID            id.AccountID
	Email         string
	PasswordHash  string
	Role          Role
	Status        Status
	EmailVerified bool

	SuspensionReason string
	SuspendedBy      id.AccountID
	SuspendedAt      *time.Time

	LastLoginAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Suspend records the suspension decision on the account.
func (a *Account) Suspend(reason string, actor id.AccountID, now time.Time) {
	a.Status = StatusSuspended
	a.SuspensionReason = reason
	a.SuspendedBy = actor
	a.SuspendedAt = &now
}

// Activate clears any prior suspension and marks the account active.
func (a *Account) Activate() {
	a.Status = StatusActive
	a.SuspensionReason = ""
	a.SuspendedBy = id.AccountID{}
	a.SuspendedAt = nil
}
