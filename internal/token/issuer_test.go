package token_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"tradegate/internal/account"
	"tradegate/internal/token"
	tokenStore "tradegate/internal/token/store"
	id "tradegate/pkg/domain"
	dErrors "tradegate/pkg/domain-errors"
)

// The issuer owns the single-consumption and supersession invariants, which
// are awkward to exercise end to end; unit tests pin them down directly.

type IssuerSuite struct {
	suite.Suite
	codes  *tokenStore.InMemoryCodeStore
	tokens *tokenStore.InMemoryTokenStore
	issuer *token.Issuer
	now    time.Time
}

func TestIssuerSuite(t *testing.T) {
	suite.Run(t, new(IssuerSuite))
}

func (s *IssuerSuite) SetupTest() {
	s.codes = tokenStore.NewInMemoryCodeStore()
	s.tokens = tokenStore.NewInMemoryTokenStore()
	s.now = time.Now()
	s.issuer = token.NewIssuer(s.codes, s.tokens, 10*time.Minute,
		token.WithClock(func() time.Time { return s.now }))
}

func (s *IssuerSuite) advance(d time.Duration) {
	s.now = s.now.Add(d)
}

func (s *IssuerSuite) TestCodes() {
	ctx := context.Background()
	reg := token.PendingRegistration{Email: "s@x.com", Role: account.RoleSupplier, PasswordHash: "hash"}

	s.Run("issued code has six digits", func() {
		code, err := s.issuer.IssueCode(ctx, reg)
		s.Require().NoError(err)
		s.Len(code, 6)
	})

	s.Run("consume with matching code succeeds once", func() {
		code, err := s.issuer.IssueCode(ctx, reg)
		s.Require().NoError(err)

		got, err := s.issuer.ConsumeCode(ctx, reg.Email, code)
		s.Require().NoError(err)
		s.Equal(account.RoleSupplier, got.Role)
		s.Equal("hash", got.PasswordHash)

		_, err = s.issuer.ConsumeCode(ctx, reg.Email, code)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("wrong code is rejected", func() {
		_, err := s.issuer.IssueCode(ctx, reg)
		s.Require().NoError(err)

		_, err = s.issuer.ConsumeCode(ctx, reg.Email, "000000")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("reissue invalidates the previous code", func() {
		first, err := s.issuer.IssueCode(ctx, reg)
		s.Require().NoError(err)
		second, err := s.issuer.IssueCode(ctx, reg)
		s.Require().NoError(err)

		_, err = s.issuer.ConsumeCode(ctx, reg.Email, first)
		if first != second {
			s.Require().Error(err)
			s.True(dErrors.HasCode(err, dErrors.CodeConflict))
		}

		_, err = s.issuer.ConsumeCode(ctx, reg.Email, second)
		s.NoError(err)
	})

	s.Run("expired code can never succeed", func() {
		code, err := s.issuer.IssueCode(ctx, reg)
		s.Require().NoError(err)

		s.advance(11 * time.Minute)
		_, err = s.issuer.ConsumeCode(ctx, reg.Email, code)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))

		// Still dead after time moves on; no grace window.
		s.advance(time.Minute)
		_, err = s.issuer.ConsumeCode(ctx, reg.Email, code)
		s.Require().Error(err)
	})
}

func (s *IssuerSuite) TestTokens() {
	ctx := context.Background()
	accountID := id.NewAccountID()

	s.Run("token consumes exactly once", func() {
		tok, err := s.issuer.IssueToken(ctx, accountID, token.PurposePasswordReset, time.Hour)
		s.Require().NoError(err)
		s.Len(tok.Value, 64)

		got, err := s.issuer.ConsumeToken(ctx, token.PurposePasswordReset, tok.Value)
		s.Require().NoError(err)
		s.Equal(accountID, got.AccountID)
		s.NotNil(got.UsedAt)

		_, err = s.issuer.ConsumeToken(ctx, token.PurposePasswordReset, tok.Value)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("reissue invalidates prior live tokens for the same purpose", func() {
		first, err := s.issuer.IssueToken(ctx, accountID, token.PurposePasswordReset, time.Hour)
		s.Require().NoError(err)
		second, err := s.issuer.IssueToken(ctx, accountID, token.PurposePasswordReset, time.Hour)
		s.Require().NoError(err)

		_, err = s.issuer.ConsumeToken(ctx, token.PurposePasswordReset, first.Value)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))

		_, err = s.issuer.ConsumeToken(ctx, token.PurposePasswordReset, second.Value)
		s.NoError(err)
	})

	s.Run("purpose mismatch is rejected", func() {
		tok, err := s.issuer.IssueToken(ctx, accountID, token.PurposeEmailVerify, time.Hour)
		s.Require().NoError(err)

		_, err = s.issuer.ConsumeToken(ctx, token.PurposePasswordReset, tok.Value)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("expired token is rejected", func() {
		tok, err := s.issuer.IssueToken(ctx, accountID, token.PurposePasswordReset, time.Hour)
		s.Require().NoError(err)

		s.advance(2 * time.Hour)
		_, err = s.issuer.ConsumeToken(ctx, token.PurposePasswordReset, tok.Value)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})
}
