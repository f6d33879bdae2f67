// Package onboarding drives the account lifecycle from registration to
// activation: email ownership proof, document submission, and admin review.
package onboarding

import (
	"tradegate/internal/document"
	"tradegate/internal/onboarding/policy"
)

// Decision is the reviewer's verdict on one document.
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

func (d Decision) IsValid() bool {
	return d == DecisionApprove || d == DecisionReject
}

// GlobalStatus summarizes the document dossier of one account.
type GlobalStatus string

const (
	GlobalIncomplete GlobalStatus = "incomplete"
	GlobalPending    GlobalStatus = "pending"
	GlobalApproved   GlobalStatus = "approved"
	GlobalRejected   GlobalStatus = "rejected"
)

// ValidationStatus is the review-progress snapshot returned to clients and
// admins.
type ValidationStatus struct {
	Global    GlobalStatus
	Missing   []document.Kind
	Submitted []*document.Document
}

// summarize folds the submitted documents against the role's requirements.
// Precedence when nothing is missing: rejected over pending over approved.
func summarize(requirements []policy.Requirement, docs []*document.Document) ValidationStatus {
	byKind := make(map[document.Kind]*document.Document, len(docs))
	for _, doc := range docs {
		byKind[doc.Kind] = doc
	}

	status := ValidationStatus{Global: GlobalApproved, Submitted: docs}
	anyPending, anyRejected := false, false
	for _, req := range requirements {
		if !req.Required {
			continue
		}
		doc, ok := byKind[req.Kind]
		if !ok {
			status.Missing = append(status.Missing, req.Kind)
			continue
		}
		switch doc.Status {
		case document.StatusPending:
			anyPending = true
		case document.StatusRejected:
			anyRejected = true
		}
	}

	switch {
	case len(status.Missing) > 0:
		status.Global = GlobalIncomplete
	case anyRejected:
		status.Global = GlobalRejected
	case anyPending:
		status.Global = GlobalPending
	}
	return status
}
