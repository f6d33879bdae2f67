// Package document manages submitted compliance documents: upload policy,
// artifact storage, verification status, and retention.
package document

import (
	"time"

	id "tradegate/pkg/domain"
)

// Kind is the closed set of compliance document kinds. The required-document
// policy decides which kinds each role submits.
type Kind string

const (
	KindRegistreCommerce      Kind = "registre_commerce"
	KindPieceIdentite         Kind = "piece_identite"
	KindJustificatifDomicile  Kind = "justificatif_domicile"
	KindAttestationFiscale    Kind = "attestation_fiscale"
)

func (k Kind) IsValid() bool {
	switch k {
	case KindRegistreCommerce, KindPieceIdentite, KindJustificatifDomicile, KindAttestationFiscale:
		return true
	}
	return false
}

// VerificationStatus tracks the admin review outcome of one document.
type VerificationStatus string

const (
	StatusPending  VerificationStatus = "pending"
	StatusApproved VerificationStatus = "approved"
	StatusRejected VerificationStatus = "rejected"
)

// Document is one submitted artifact. Exactly one record exists per
// (account, kind); re-uploading replaces the record and resets its status.
type Document struct {
	ID         id.DocumentID
	AccountID  id.AccountID
	Kind       Kind
	Reference  string
	Filename   string
	MimeType   string
	Size       int64
	Status     VerificationStatus
	ReviewerID id.AccountID
	Comment    string

	SubmittedAt time.Time
	DecidedAt   *time.Time
}

// Upload is the inbound artifact before policy checks.
type Upload struct {
	Content  []byte
	MimeType string
	Filename string
}

// UploadPolicy is declared by the caller per flow. The two flows in use carry
// different ceilings and allow-lists, so nothing here is a package constant.
type UploadPolicy struct {
	MaxSize      int64
	AllowedTypes []string
}

// StandardUploadPolicy covers the regular compliance-document flow.
func StandardUploadPolicy() UploadPolicy {
	return UploadPolicy{
		MaxSize: 10 << 20,
		AllowedTypes: []string{
			"application/pdf",
			"image/jpeg",
			"image/png",
			"application/msword",
			"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		},
	}
}

// StrictUploadPolicy covers the identity sub-flow, which takes smaller files
// and accepts WebP instead of Word documents.
func StrictUploadPolicy() UploadPolicy {
	return UploadPolicy{
		MaxSize: 5 << 20,
		AllowedTypes: []string{
			"application/pdf",
			"image/jpeg",
			"image/png",
			"image/webp",
		},
	}
}
