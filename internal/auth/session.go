package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"tradegate/internal/account"
	id "tradegate/pkg/domain"
	dErrors "tradegate/pkg/domain-errors"
)

// SessionClaims are the JWT claims carried by an access token.
type SessionClaims struct {
	AccountID string `json:"account_id"`
	Role      string `json:"role"`
	jwt.RegisteredClaims
}

// SessionIssuer mints and validates access tokens.
type SessionIssuer interface {
	Issue(acc *account.Account) (string, error)
	Validate(tokenString string) (*SessionClaims, error)
}

// JWTSessions issues HS256 access tokens.
type JWTSessions struct {
	signingKey []byte
	issuer     string
	ttl        time.Duration
}

func NewJWTSessions(signingKey string, ttl time.Duration) *JWTSessions {
	return &JWTSessions{
		signingKey: []byte(signingKey),
		issuer:     "tradegate",
		ttl:        ttl,
	}
}

func (s *JWTSessions) Issue(acc *account.Account) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, SessionClaims{
		AccountID: acc.ID.String(),
		Role:      string(acc.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    s.issuer,
			Subject:   acc.ID.String(),
			ID:        uuid.NewString(),
		},
	})
	return token.SignedString(s.signingKey)
}

func (s *JWTSessions) Validate(tokenString string) (*SessionClaims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "session has expired")
		}
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid session token")
	}

	claims, ok := parsed.Claims.(*SessionClaims)
	if !ok || !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid session token")
	}
	return claims, nil
}

// AccountID parses the subject claim.
func (c *SessionClaims) ParsedAccountID() (id.AccountID, error) {
	return id.ParseAccountID(c.AccountID)
}

// ValidateSession satisfies the middleware session port: it validates the
// token and resolves the account it authenticates.
func (s *JWTSessions) ValidateSession(tokenString string) (id.AccountID, string, error) {
	claims, err := s.Validate(tokenString)
	if err != nil {
		return id.AccountID{}, "", err
	}
	accountID, err := claims.ParsedAccountID()
	if err != nil {
		return id.AccountID{}, "", dErrors.New(dErrors.CodeUnauthorized, "invalid session token")
	}
	return accountID, claims.Role, nil
}
