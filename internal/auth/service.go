// Package auth owns credential verification, sessions, and password reset.
// Registration and activation transitions live in the onboarding service;
// this package only ever reads the account lifecycle state.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"tradegate/internal/account"
	accstore "tradegate/internal/account/store"
	"tradegate/internal/audit"
	"tradegate/internal/notification"
	"tradegate/internal/token"
	id "tradegate/pkg/domain"
	dErrors "tradegate/pkg/domain-errors"
	emailutil "tradegate/pkg/email"
	"tradegate/pkg/platform/sentinel"
	txcontext "tradegate/pkg/platform/tx"
)

//go:generate mockgen -source=session.go -destination=mocks/mocks.go -package=mocks

// TokenIssuer is the reset-token port, satisfied by token.Issuer.
type TokenIssuer interface {
	IssueToken(ctx context.Context, accountID id.AccountID, purpose token.Purpose, ttl time.Duration) (token.Token, error)
	ConsumeToken(ctx context.Context, purpose token.Purpose, value string) (token.Token, error)
}

// Notifier queues outbound email, satisfied by notification.Dispatcher.
type Notifier interface {
	Enqueue(ctx context.Context, recipient string, kind notification.TemplateKind, data notification.TemplateData, scope notification.Scope) (*notification.Record, error)
}

// AuditPublisher records the compliance trail, satisfied by audit.Publisher.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service authenticates accounts and runs the password reset flow.
type Service struct {
	accounts accstore.Store
	tokens   TokenIssuer
	hasher   PasswordHasher
	sessions SessionIssuer
	notifier Notifier
	auditor  AuditPublisher
	runner   txcontext.Runner
	resetTTL time.Duration
	logger   *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithResetTTL(ttl time.Duration) Option {
	return func(s *Service) { s.resetTTL = ttl }
}

func New(
	accounts accstore.Store,
	tokens TokenIssuer,
	hasher PasswordHasher,
	sessions SessionIssuer,
	notifier Notifier,
	auditor AuditPublisher,
	runner txcontext.Runner,
	opts ...Option,
) (*Service, error) {
	if accounts == nil || tokens == nil || hasher == nil || sessions == nil {
		return nil, fmt.Errorf("accounts, tokens, hasher, and sessions are required")
	}
	if notifier == nil || auditor == nil || runner == nil {
		return nil, fmt.Errorf("notifier, auditor, and runner are required")
	}

	svc := &Service{
		accounts: accounts,
		tokens:   tokens,
		hasher:   hasher,
		sessions: sessions,
		notifier: notifier,
		auditor:  auditor,
		runner:   runner,
		resetTTL: time.Hour,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Login verifies credentials and returns a session token. Unknown email and
// wrong password are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, email, password string) (string, *account.Account, error) {
	email = emailutil.Normalize(email)

	acct, err := s.accounts.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return "", nil, dErrors.New(dErrors.CodeUnauthorized, "invalid email or password")
		}
		return "", nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to load account")
	}
	if !s.hasher.Compare(acct.PasswordHash, password) {
		return "", nil, dErrors.New(dErrors.CodeUnauthorized, "invalid email or password")
	}

	switch acct.Status {
	case account.StatusActive:
		// Proceed.
	case account.StatusSuspended:
		return "", nil, dErrors.Newf(dErrors.CodeConflict, "account suspended: %s", acct.SuspensionReason)
	default:
		return "", nil, dErrors.New(dErrors.CodeConflict, "account has not completed onboarding")
	}

	session, err := s.sessions.Issue(acct)
	if err != nil {
		return "", nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue session")
	}

	// Login bookkeeping never blocks a valid login.
	if err := s.accounts.RecordLogin(ctx, acct.ID); err != nil {
		s.logger.WarnContext(ctx, "failed to record login", "account_id", acct.ID, "error", err)
	}
	if err := s.auditor.Emit(ctx, audit.Event{
		Action:    audit.ActionLogin,
		AccountID: acct.ID,
		Subject:   acct.Email,
	}); err != nil {
		s.logger.WarnContext(ctx, "failed to audit login", "account_id", acct.ID, "error", err)
	}
	return session, acct, nil
}

// RequestPasswordReset issues a reset token and queues the email. The caller
// always sees success so the endpoint cannot be used to probe for accounts.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	email = emailutil.Normalize(email)

	acct, err := s.accounts.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil
		}
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to load account")
	}

	return s.runner.InTx(ctx, func(ctx context.Context) error {
		tok, err := s.tokens.IssueToken(ctx, acct.ID, token.PurposePasswordReset, s.resetTTL)
		if err != nil {
			return err
		}
		_, err = s.notifier.Enqueue(ctx, acct.Email, notification.TemplatePasswordReset, notification.TemplateData{
			Name: emailutil.DeriveNameFromEmail(acct.Email),
			Link: tok.Value,
		}, notification.AccountScope(acct.ID))
		return err
	})
}

// CompletePasswordReset consumes the token and replaces the password hash.
// The consume and the hash update commit together, so a used token can never
// precede a stale password.
func (s *Service) CompletePasswordReset(ctx context.Context, tokenValue, newPassword string) error {
	if err := ValidatePassword(newPassword); err != nil {
		return err
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash password")
	}

	return s.runner.InTx(ctx, func(ctx context.Context) error {
		tok, err := s.tokens.ConsumeToken(ctx, token.PurposePasswordReset, tokenValue)
		if err != nil {
			return err
		}

		acct, err := s.accounts.FindByIDForUpdate(ctx, tok.AccountID)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to load account")
		}
		acct.PasswordHash = hash
		if err := s.accounts.Update(ctx, acct); err != nil {
			return dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to update password")
		}
		return nil
	})
}
