// Package audit captures the compliance trail for onboarding decisions.
// Events are written to a transactional outbox alongside the business
// mutation and relayed to Kafka by a background worker; Kafka is the
// source of truth for downstream consumers.
package audit

import (
	"time"

	"github.com/google/uuid"

	id "tradegate/pkg/domain"
)

// Action names an auditable occurrence.
type Action string

const (
	ActionAccountRegistered Action = "account_registered"
	ActionEmailVerified     Action = "email_verified"
	ActionAccountActivated  Action = "account_activated"
	ActionAccountSuspended  Action = "account_suspended"
	ActionDocumentApproved  Action = "document_approved"
	ActionDocumentRejected  Action = "document_rejected"
	ActionLogin             Action = "login"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Action    Action
	AccountID id.AccountID
	ActorID   id.AccountID
	Subject   string
	Reason    string
	Timestamp time.Time
}

// Entry is one serialized outbox row awaiting relay.
type Entry struct {
	ID          uuid.UUID
	Key         string
	Action      Action
	Payload     []byte
	CreatedAt   time.Time
	PublishedAt *time.Time
}
