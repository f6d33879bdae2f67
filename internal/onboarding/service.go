package onboarding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"tradegate/internal/account"
	accstore "tradegate/internal/account/store"
	"tradegate/internal/audit"
	"tradegate/internal/auth"
	"tradegate/internal/document"
	docstore "tradegate/internal/document/store"
	"tradegate/internal/notification"
	"tradegate/internal/onboarding/policy"
	"tradegate/internal/platform/metrics"
	"tradegate/internal/token"
	id "tradegate/pkg/domain"
	dErrors "tradegate/pkg/domain-errors"
	emailutil "tradegate/pkg/email"
	"tradegate/pkg/platform/sentinel"
	txcontext "tradegate/pkg/platform/tx"
)

// Documents is the upload port, satisfied by document.Service.
type Documents interface {
	Accept(ctx context.Context, accountID id.AccountID, kind document.Kind, upload document.Upload, pol document.UploadPolicy) (*document.Document, error)
	Delete(ctx context.Context, documentID id.DocumentID, requesterID id.AccountID) error
}

// Codes is the email-ownership secret port, satisfied by token.Issuer.
type Codes interface {
	IssueCode(ctx context.Context, reg token.PendingRegistration) (string, error)
	ConsumeCode(ctx context.Context, email, code string) (token.PendingRegistration, error)
}

// Notifier queues outbound email, satisfied by notification.Dispatcher.
type Notifier interface {
	Enqueue(ctx context.Context, recipient string, kind notification.TemplateKind, data notification.TemplateData, scope notification.Scope) (*notification.Record, error)
}

// AuditPublisher records the compliance trail, satisfied by audit.Publisher.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service is the onboarding state machine. Every state-changing operation
// runs in one transaction; notifications are enqueued or delivered only after
// the transition is durable.
type Service struct {
	accounts  accstore.Store
	documents Documents
	docRecs   docstore.Store
	codes     Codes
	hasher    auth.PasswordHasher
	notifier  Notifier
	auditor   AuditPublisher
	runner    txcontext.Runner
	logger    *slog.Logger
	metrics   *metrics.Metrics
	now       func() time.Time
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func New(
	accounts accstore.Store,
	documents Documents,
	docRecs docstore.Store,
	codes Codes,
	hasher auth.PasswordHasher,
	notifier Notifier,
	auditor AuditPublisher,
	runner txcontext.Runner,
	opts ...Option,
) (*Service, error) {
	if accounts == nil || documents == nil || docRecs == nil || codes == nil {
		return nil, fmt.Errorf("accounts, documents, docRecs, and codes are required")
	}
	if hasher == nil || notifier == nil || auditor == nil || runner == nil {
		return nil, fmt.Errorf("hasher, notifier, auditor, and runner are required")
	}

	svc := &Service{
		accounts:  accounts,
		documents: documents,
		docRecs:   docRecs,
		codes:     codes,
		hasher:    hasher,
		notifier:  notifier,
		auditor:   auditor,
		runner:    runner,
		logger:    slog.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// RequestEmailVerification starts a registration: it stores the pending
// registration keyed by email and queues a 6-digit ownership code. Reissuing
// for the same email supersedes the previous code.
func (s *Service) RequestEmailVerification(ctx context.Context, email string, role account.Role, password string) error {
	email = emailutil.Normalize(email)
	if !emailutil.IsWellFormed(email) {
		return dErrors.New(dErrors.CodeValidation, "invalid email address")
	}
	if !role.IsValid() || role == account.RoleAdmin {
		return dErrors.Newf(dErrors.CodeValidation, "invalid role %q", role)
	}
	if err := auth.ValidatePassword(password); err != nil {
		return err
	}

	if _, err := s.accounts.FindByEmail(ctx, email); err == nil {
		return dErrors.New(dErrors.CodeConflict, "email is already registered")
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to check email")
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash password")
	}

	code, err := s.codes.IssueCode(ctx, token.PendingRegistration{
		Email:        email,
		Role:         role,
		PasswordHash: hash,
	})
	if err != nil {
		return err
	}

	// The code is durable; a lost email is recovered by re-requesting.
	if _, err := s.notifier.Enqueue(ctx, email, notification.TemplateVerificationCode, notification.TemplateData{
		Name: emailutil.DeriveNameFromEmail(email),
		Code: code,
	}, notification.SystemScope()); err != nil {
		s.logger.WarnContext(ctx, "failed to queue verification code", "email", email, "error", err)
	}
	return nil
}

// ConfirmEmailVerification consumes the code and creates the account. Buyers
// come out active; document-bearing roles come out awaiting documents.
func (s *Service) ConfirmEmailVerification(ctx context.Context, email, code string) (*account.Account, error) {
	email = emailutil.Normalize(email)

	reg, err := s.codes.ConsumeCode(ctx, email, code)
	if err != nil {
		return nil, err
	}

	now := s.now()
	acct := &account.Account{
		ID:            id.NewAccountID(),
		Email:         reg.Email,
		PasswordHash:  reg.PasswordHash,
		Role:          reg.Role,
		Status:        account.StatusAwaitingDocuments,
		EmailVerified: true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if !reg.Role.RequiresDocuments() {
		acct.Status = account.StatusActive
	}

	err = s.runner.InTx(ctx, func(ctx context.Context) error {
		if err := s.accounts.Create(ctx, acct); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				return dErrors.New(dErrors.CodeConflict, "email is already registered")
			}
			return dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to create account")
		}

		if err := s.auditor.Emit(ctx, audit.Event{
			Action:    audit.ActionAccountRegistered,
			AccountID: acct.ID,
			Subject:   acct.Email,
		}); err != nil {
			return err
		}
		if acct.Status == account.StatusActive {
			return s.auditor.Emit(ctx, audit.Event{
				Action:    audit.ActionAccountActivated,
				AccountID: acct.ID,
				Subject:   acct.Email,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if acct.Status == account.StatusActive && s.metrics != nil {
		s.metrics.AccountsActivated.Inc()
	}
	s.enqueueAfterCommit(ctx, acct, notification.TemplateWelcome, notification.TemplateData{
		Name: emailutil.DeriveNameFromEmail(acct.Email),
	})
	return acct, nil
}

// SubmitDocument accepts an upload for the account after checking the role's
// document policy. Resubmitting a kind replaces the prior document and resets
// its review status.
func (s *Service) SubmitDocument(ctx context.Context, accountID id.AccountID, kind document.Kind, upload document.Upload, pol document.UploadPolicy) (*document.Document, error) {
	acct, err := s.accounts.FindByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "account not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to load account")
	}

	if !policy.Allows(acct.Role, kind) {
		return nil, dErrors.Newf(dErrors.CodeValidation, "role %q does not submit documents of kind %q", acct.Role, kind)
	}
	if !acct.EmailVerified {
		return nil, dErrors.New(dErrors.CodeConflict, "email must be verified before submitting documents")
	}

	return s.documents.Accept(ctx, accountID, kind, upload, pol)
}

// DecideDocument applies a reviewer verdict. Approval of the last missing
// required document activates the account; rejection suspends it with the
// reviewer's comment as the reason. The document, the account, and the audit
// trail commit together.
func (s *Service) DecideDocument(ctx context.Context, documentID id.DocumentID, reviewerID id.AccountID, decision Decision, comment string) (*document.Document, error) {
	if !decision.IsValid() {
		return nil, dErrors.Newf(dErrors.CodeValidation, "invalid decision %q", decision)
	}
	if decision == DecisionReject && comment == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "a rejection requires a comment")
	}

	var (
		doc  *document.Document
		acct *account.Account
	)
	err := s.runner.InTx(ctx, func(ctx context.Context) error {
		var err error
		doc, err = s.docRecs.FindByIDForUpdate(ctx, documentID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "document not found")
			}
			return dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to load document")
		}
		if doc.Status != document.StatusPending {
			return dErrors.New(dErrors.CodeConflict, "document has already been reviewed")
		}

		acct, err = s.accounts.FindByIDForUpdate(ctx, doc.AccountID)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to load account")
		}

		now := s.now()
		doc.ReviewerID = reviewerID
		doc.Comment = comment
		doc.DecidedAt = &now

		switch decision {
		case DecisionApprove:
			doc.Status = document.StatusApproved
		case DecisionReject:
			doc.Status = document.StatusRejected
		}
		if err := s.docRecs.Update(ctx, doc); err != nil {
			return dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to update document")
		}

		if decision == DecisionReject {
			acct.Suspend(comment, reviewerID, now)
			if err := s.accounts.Update(ctx, acct); err != nil {
				return dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to suspend account")
			}
			if err := s.auditor.Emit(ctx, audit.Event{
				Action:    audit.ActionDocumentRejected,
				AccountID: acct.ID,
				ActorID:   reviewerID,
				Subject:   string(doc.Kind),
				Reason:    comment,
			}); err != nil {
				return err
			}
			return s.auditor.Emit(ctx, audit.Event{
				Action:    audit.ActionAccountSuspended,
				AccountID: acct.ID,
				ActorID:   reviewerID,
				Reason:    comment,
			})
		}

		if err := s.auditor.Emit(ctx, audit.Event{
			Action:    audit.ActionDocumentApproved,
			AccountID: acct.ID,
			ActorID:   reviewerID,
			Subject:   string(doc.Kind),
		}); err != nil {
			return err
		}

		complete, err := s.dossierComplete(ctx, acct)
		if err != nil {
			return err
		}
		if complete && acct.Status != account.StatusActive {
			acct.Activate()
			if err := s.accounts.Update(ctx, acct); err != nil {
				return dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to activate account")
			}
			return s.auditor.Emit(ctx, audit.Event{
				Action:    audit.ActionAccountActivated,
				AccountID: acct.ID,
				ActorID:   reviewerID,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.recordDecisionOutcome(ctx, doc, acct, decision, comment)
	return doc, nil
}

// dossierComplete reports whether every required kind for the account's role
// has an approved document. Called with the account row locked.
func (s *Service) dossierComplete(ctx context.Context, acct *account.Account) (bool, error) {
	docs, err := s.docRecs.ListByAccount(ctx, acct.ID)
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to list documents")
	}

	approved := make(map[document.Kind]bool, len(docs))
	for _, doc := range docs {
		if doc.Status == document.StatusApproved {
			approved[doc.Kind] = true
		}
	}
	for _, kind := range policy.RequiredKinds(acct.Role) {
		if !approved[kind] {
			return false, nil
		}
	}
	return true, nil
}

// recordDecisionOutcome handles the best-effort tail of a decision: metrics
// and notifications, after the transaction committed.
func (s *Service) recordDecisionOutcome(ctx context.Context, doc *document.Document, acct *account.Account, decision Decision, comment string) {
	outcome := "approved"
	if decision == DecisionReject {
		outcome = "rejected"
	}
	if s.metrics != nil {
		s.metrics.DocumentsReviewed.WithLabelValues(outcome).Inc()
		if decision == DecisionReject {
			s.metrics.AccountsSuspended.Inc()
		} else if acct.Status == account.StatusActive {
			s.metrics.AccountsActivated.Inc()
		}
	}

	name := emailutil.DeriveNameFromEmail(acct.Email)
	s.enqueueAfterCommit(ctx, acct, notification.TemplateDocumentDecision, notification.TemplateData{
		Name:    name,
		Kind:    string(doc.Kind),
		Outcome: outcome,
		Reason:  comment,
	})
	if decision == DecisionReject {
		s.enqueueAfterCommit(ctx, acct, notification.TemplateAccountSuspended, notification.TemplateData{
			Name:   name,
			Reason: comment,
		})
	} else if acct.Status == account.StatusActive {
		s.enqueueAfterCommit(ctx, acct, notification.TemplateAccountActivated, notification.TemplateData{
			Name: name,
		})
	}
}

func (s *Service) enqueueAfterCommit(ctx context.Context, acct *account.Account, kind notification.TemplateKind, data notification.TemplateData) {
	if _, err := s.notifier.Enqueue(ctx, acct.Email, kind, data, notification.AccountScope(acct.ID)); err != nil {
		s.logger.WarnContext(ctx, "failed to queue notification",
			"template", kind, "account_id", acct.ID, "error", err)
	}
}

// DeleteDocument removes one of the requester's own documents. Ownership and
// the approved-documents guard are enforced by the document service.
func (s *Service) DeleteDocument(ctx context.Context, documentID id.DocumentID, requesterID id.AccountID) error {
	return s.documents.Delete(ctx, documentID, requesterID)
}

// GetRequiredDocuments returns the role's ordered requirement list.
func (s *Service) GetRequiredDocuments(role account.Role) []policy.Requirement {
	return policy.For(role)
}

// GetAccountDocuments lists everything the account has submitted.
func (s *Service) GetAccountDocuments(ctx context.Context, accountID id.AccountID) ([]*document.Document, error) {
	if _, err := s.accounts.FindByID(ctx, accountID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "account not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to load account")
	}
	docs, err := s.docRecs.ListByAccount(ctx, accountID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to list documents")
	}
	return docs, nil
}

// GetValidationStatus reports review progress against the role's policy.
func (s *Service) GetValidationStatus(ctx context.Context, accountID id.AccountID) (ValidationStatus, error) {
	acct, err := s.accounts.FindByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return ValidationStatus{}, dErrors.New(dErrors.CodeNotFound, "account not found")
		}
		return ValidationStatus{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to load account")
	}

	docs, err := s.docRecs.ListByAccount(ctx, accountID)
	if err != nil {
		return ValidationStatus{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to list documents")
	}
	return summarize(policy.For(acct.Role), docs), nil
}
