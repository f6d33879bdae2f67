// Package notification persists and delivers templated emails through an
// outbox: the business transaction writes an intent, a background worker
// drains it. Delivery failure never rolls back the transaction that queued
// the message.
package notification

import (
	"time"

	id "tradegate/pkg/domain"
)

// TemplateKind selects the rendered content of a message.
type TemplateKind string

const (
	TemplateVerificationCode TemplateKind = "verification_code"
	TemplateWelcome          TemplateKind = "welcome"
	TemplateAccountActivated TemplateKind = "account_activated"
	TemplateAccountSuspended TemplateKind = "account_suspended"
	TemplateDocumentDecision TemplateKind = "document_decision"
	TemplatePasswordReset    TemplateKind = "password_reset"
)

// Status is the delivery state of one record.
type Status string

const (
	StatusQueued Status = "queued"
	StatusSent   Status = "sent"
	StatusFailed Status = "failed"
)

// Scope says who a notification belongs to. Pre-account flows (the email
// ownership code) are system-scoped; everything after account creation is
// account-scoped. A tagged variant instead of a nullable foreign key.
type Scope struct {
	accountID id.AccountID
	account   bool
}

// SystemScope marks a notification with no owning account.
func SystemScope() Scope { return Scope{} }

// AccountScope binds a notification to an account.
func AccountScope(accountID id.AccountID) Scope {
	return Scope{accountID: accountID, account: true}
}

// AccountID returns the owning account, if the scope has one.
func (s Scope) AccountID() (id.AccountID, bool) {
	return s.accountID, s.account
}

// Record is one dispatch attempt series.
type Record struct {
	ID        id.NotificationID
	Recipient string
	Template  TemplateKind
	Subject   string
	Body      string
	Scope     Scope
	Status    Status
	Attempts  int
	LastError string
	CreatedAt time.Time
	UpdatedAt time.Time
}
