package handler

import (
	"time"

	"tradegate/internal/account"
	"tradegate/internal/document"
	"tradegate/internal/onboarding"
	"tradegate/internal/onboarding/policy"
)

// AccountResponse is the public view of an account.
type AccountResponse struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	Role          string `json:"role"`
	Status        string `json:"status"`
	EmailVerified bool   `json:"email_verified"`
}

func FromAccount(acct *account.Account) *AccountResponse {
	return &AccountResponse{
		ID:            acct.ID.String(),
		Email:         acct.Email,
		Role:          string(acct.Role),
		Status:        string(acct.Status),
		EmailVerified: acct.EmailVerified,
	}
}

// VerifyResponse is returned on successful email verification. Token is a
// session for the fresh account; empty when issuing failed.
type VerifyResponse struct {
	Account *AccountResponse `json:"account"`
	Token   string           `json:"token,omitempty"`
}

// DocumentResponse is the public view of a submitted document. The storage
// reference stays internal.
type DocumentResponse struct {
	ID          string     `json:"id"`
	Kind        string     `json:"kind"`
	Filename    string     `json:"filename"`
	Status      string     `json:"status"`
	Comment     string     `json:"comment,omitempty"`
	SubmittedAt time.Time  `json:"submitted_at"`
	DecidedAt   *time.Time `json:"decided_at,omitempty"`
}

func FromDocument(doc *document.Document) *DocumentResponse {
	return &DocumentResponse{
		ID:          doc.ID.String(),
		Kind:        string(doc.Kind),
		Filename:    doc.Filename,
		Status:      string(doc.Status),
		Comment:     doc.Comment,
		SubmittedAt: doc.SubmittedAt,
		DecidedAt:   doc.DecidedAt,
	}
}

func FromDocuments(docs []*document.Document) []*DocumentResponse {
	out := make([]*DocumentResponse, 0, len(docs))
	for _, doc := range docs {
		out = append(out, FromDocument(doc))
	}
	return out
}

// RequirementResponse is one entry of the role's document checklist.
type RequirementResponse struct {
	Kind        string `json:"kind"`
	Required    bool   `json:"required"`
	Label       string `json:"label"`
	Description string `json:"description"`
}

func FromRequirements(reqs []policy.Requirement) []RequirementResponse {
	out := make([]RequirementResponse, 0, len(reqs))
	for _, req := range reqs {
		out = append(out, RequirementResponse{
			Kind:        string(req.Kind),
			Required:    req.Required,
			Label:       req.Label,
			Description: req.Description,
		})
	}
	return out
}

// StatusResponse is the review-progress snapshot.
type StatusResponse struct {
	Global    string              `json:"global"`
	Missing   []string            `json:"missing"`
	Submitted []*DocumentResponse `json:"submitted"`
}

func FromStatus(status onboarding.ValidationStatus) *StatusResponse {
	missing := make([]string, 0, len(status.Missing))
	for _, kind := range status.Missing {
		missing = append(missing, string(kind))
	}
	return &StatusResponse{
		Global:    string(status.Global),
		Missing:   missing,
		Submitted: FromDocuments(status.Submitted),
	}
}
