package token

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"time"

	id "tradegate/pkg/domain"
	dErrors "tradegate/pkg/domain-errors"
	"tradegate/pkg/platform/sentinel"
)

// CodeStore holds pending registrations. Put overwrites any live record for
// the same email, which is how the at-most-one-live-code invariant holds.
type CodeStore interface {
	Put(ctx context.Context, reg PendingRegistration, ttl time.Duration) error
	Get(ctx context.Context, email string) (PendingRegistration, error)
	Delete(ctx context.Context, email string) error
}

// TokenStore holds opaque tokens.
type TokenStore interface {
	Create(ctx context.Context, tok Token) error
	InvalidateLive(ctx context.Context, accountID id.AccountID, purpose Purpose) error
	FindByValue(ctx context.Context, value string) (Token, error)
	MarkUsed(ctx context.Context, tokenID id.TokenID, usedAt time.Time) error
}

// Issuer owns the issue/consume contract for both secret shapes.
type Issuer struct {
	codes   CodeStore
	tokens  TokenStore
	codeTTL time.Duration
	now     func() time.Time
}

type Option func(*Issuer)

// WithClock overrides time for expiry tests.
func WithClock(now func() time.Time) Option {
	return func(i *Issuer) { i.now = now }
}

func NewIssuer(codes CodeStore, tokens TokenStore, codeTTL time.Duration, opts ...Option) *Issuer {
	iss := &Issuer{
		codes:   codes,
		tokens:  tokens,
		codeTTL: codeTTL,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(iss)
	}
	return iss
}

// IssueCode stores a fresh 6-digit code for the email, superseding any prior
// live code, and returns it for notification rendering.
func (i *Issuer) IssueCode(ctx context.Context, reg PendingRegistration) (string, error) {
	code, err := generateCode(6)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to generate verification code")
	}

	reg.Code = code
	reg.ExpiresAt = i.now().Add(i.codeTTL)
	if err := i.codes.Put(ctx, reg, i.codeTTL); err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to store verification code")
	}
	return code, nil
}

// ConsumeCode validates and destroys the live code for the email. A wrong,
// expired, or missing code yields a conflict; the comparison is constant-time.
func (i *Issuer) ConsumeCode(ctx context.Context, email, code string) (PendingRegistration, error) {
	reg, err := i.codes.Get(ctx, email)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return PendingRegistration{}, dErrors.New(dErrors.CodeConflict, "invalid or expired verification code")
		}
		return PendingRegistration{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to read verification code")
	}

	if reg.Expired(i.now()) {
		return PendingRegistration{}, dErrors.New(dErrors.CodeConflict, "invalid or expired verification code")
	}
	if subtle.ConstantTimeCompare([]byte(reg.Code), []byte(code)) != 1 {
		return PendingRegistration{}, dErrors.New(dErrors.CodeConflict, "invalid or expired verification code")
	}

	if err := i.codes.Delete(ctx, email); err != nil {
		return PendingRegistration{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to consume verification code")
	}
	return reg, nil
}

// IssueToken invalidates all live tokens for (account, purpose) and creates
// one new opaque token. Never more than one live credential per subject and
// scope.
func (i *Issuer) IssueToken(ctx context.Context, accountID id.AccountID, purpose Purpose, ttl time.Duration) (Token, error) {
	if err := i.tokens.InvalidateLive(ctx, accountID, purpose); err != nil {
		return Token{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to invalidate prior tokens")
	}

	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return Token{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to generate token")
	}

	now := i.now()
	tok := Token{
		ID:        id.NewTokenID(),
		AccountID: accountID,
		Purpose:   purpose,
		Value:     hex.EncodeToString(raw),
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}
	if err := i.tokens.Create(ctx, tok); err != nil {
		return Token{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to store token")
	}
	return tok, nil
}

// ConsumeToken marks a live token used and returns it. A second consume of
// the same value always fails, even inside the expiry window.
func (i *Issuer) ConsumeToken(ctx context.Context, purpose Purpose, value string) (Token, error) {
	tok, err := i.tokens.FindByValue(ctx, value)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return Token{}, dErrors.New(dErrors.CodeConflict, "invalid or expired token")
		}
		return Token{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to read token")
	}

	if tok.Purpose != purpose || !tok.Live(i.now()) {
		return Token{}, dErrors.New(dErrors.CodeConflict, "invalid or expired token")
	}

	usedAt := i.now()
	if err := i.tokens.MarkUsed(ctx, tok.ID, usedAt); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return Token{}, dErrors.New(dErrors.CodeConflict, "invalid or expired token")
		}
		return Token{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to consume token")
	}
	tok.UsedAt = &usedAt
	return tok, nil
}

func generateCode(digits int) (string, error) {
	max := big.NewInt(1)
	for range digits {
		max.Mul(max, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", digits, n), nil
}
