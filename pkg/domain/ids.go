// Package domain defines typed identifiers shared across services.
//
// Each ID is a distinct type over uuid.UUID so the compiler rejects passing a
// document id where an account id is expected.
package domain

import (
	"github.com/google/uuid"

	dErrors "tradegate/pkg/domain-errors"
)

type (
	// AccountID identifies a marketplace participant account.
	AccountID uuid.UUID

	// DocumentID identifies one submitted compliance document.
	DocumentID uuid.UUID

	// NotificationID identifies one notification record (attempt series).
	NotificationID uuid.UUID

	// TokenID identifies one issued verification token.
	TokenID uuid.UUID
)

func (id AccountID) IsNil() bool      { return uuid.UUID(id) == uuid.Nil }
func (id DocumentID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }
func (id NotificationID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id TokenID) IsNil() bool        { return uuid.UUID(id) == uuid.Nil }

func (id AccountID) String() string      { return uuid.UUID(id).String() }
func (id DocumentID) String() string     { return uuid.UUID(id).String() }
func (id NotificationID) String() string { return uuid.UUID(id).String() }
func (id TokenID) String() string        { return uuid.UUID(id).String() }

// NewAccountID returns a fresh random account id.
func NewAccountID() AccountID { return AccountID(uuid.New()) }

// NewDocumentID returns a fresh random document id.
func NewDocumentID() DocumentID { return DocumentID(uuid.New()) }

// NewNotificationID returns a fresh random notification id.
func NewNotificationID() NotificationID { return NotificationID(uuid.New()) }

// NewTokenID returns a fresh random token id.
func NewTokenID() TokenID { return TokenID(uuid.New()) }

func parseUUID(raw, kind string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.Nil, dErrors.Newf(dErrors.CodeValidation, "%s is required", kind)
	}
	parsed, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, dErrors.Newf(dErrors.CodeValidation, "%s is not a valid uuid", kind)
	}
	if parsed == uuid.Nil {
		return uuid.Nil, dErrors.Newf(dErrors.CodeValidation, "%s must not be nil", kind)
	}
	return parsed, nil
}

// ParseAccountID validates and parses an account id from its string form.
func ParseAccountID(raw string) (AccountID, error) {
	parsed, err := parseUUID(raw, "account id")
	if err != nil {
		return AccountID(uuid.Nil), err
	}
	return AccountID(parsed), nil
}

// ParseDocumentID validates and parses a document id from its string form.
func ParseDocumentID(raw string) (DocumentID, error) {
	parsed, err := parseUUID(raw, "document id")
	if err != nil {
		return DocumentID(uuid.Nil), err
	}
	return DocumentID(parsed), nil
}
