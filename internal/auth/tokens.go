package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// DefaultTokenTTL is used when no TTL option is supplied.
const DefaultTokenTTL = time.Hour

// Claims are the registered JWT claims carried by an access token.
// Subject, IssuedAt, ExpiresAt and ID (jti) are always set.
type Claims struct {
	jwt.RegisteredClaims
}

// IssuedToken is a freshly signed token plus the metadata callers need
// for responses and later revocation.
type IssuedToken struct {
	Token     string
	ID        string
	Subject   string
	ExpiresAt time.Time
}

// TokenService issues, validates and revokes HS256 bearer tokens.
//
// Thread Safety:
//   - Safe for concurrent use. Revocation state lives in the injected RevocationSet.
type TokenService struct {
	secret  []byte
	ttl     time.Duration
	revoked RevocationSet
	now     func() time.Time
}

// Option configures a TokenService.
type Option func(*TokenService)

// WithTTL sets the lifetime of issued tokens. Non-positive values are ignored.
func WithTTL(ttl time.Duration) Option {
	return func(s *TokenService) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithClock replaces the wall clock used for issuing and validating tokens.
func WithClock(now func() time.Time) Option {
	return func(s *TokenService) {
		if now != nil {
			s.now = now
		}
	}
}

// NewTokenService creates a token service signing with secret.
// There is no default secret; an empty one is rejected.
func NewTokenService(secret string, revoked RevocationSet, opts ...Option) (*TokenService, error) {
	if secret == "" {
		return nil, ErrNoSecret
	}
	if revoked == nil {
		return nil, errors.New("auth: revocation set is required")
	}

	s := &TokenService{
		secret:  []byte(secret),
		ttl:     DefaultTokenTTL,
		revoked: revoked,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// TTL returns the lifetime of issued tokens.
func (s *TokenService) TTL() time.Duration {
	return s.ttl
}

// Issue signs a new token for subject with a unique jti.
func (s *TokenService) Issue(subject string) (*IssuedToken, error) {
	if subject == "" {
		return nil, fmt.Errorf("%w: empty subject", ErrTokenInvalid)
	}

	now := s.now()
	exp := now.Add(s.ttl)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			ID:        uuid.NewString(),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("signing token: %w", err)
	}

	return &IssuedToken{
		Token:     signed,
		ID:        claims.ID,
		Subject:   subject,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// Validate checks signature, expiry and revocation, in that order.
//
// Returns ErrTokenInvalid, ErrTokenExpired or ErrTokenRevoked. A failing
// revocation lookup is reported as ErrRevocationStore so that an outage
// never lets a revoked token through.
func (s *TokenService) Validate(ctx context.Context, token string) (*Claims, error) {
	claims, err := s.parse(token, jwt.WithExpirationRequired(), jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, err
	}

	revoked, err := s.revoked.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRevocationStore, err)
	}
	if revoked {
		return nil, ErrTokenRevoked
	}

	return claims, nil
}

// Revoke adds the token's jti to the revocation set until the token would
// have expired anyway. Revoking an already expired or already revoked
// token is a no-op.
func (s *TokenService) Revoke(ctx context.Context, token string) error {
	claims, err := s.parse(token, jwt.WithoutClaimsValidation())
	if err != nil {
		return err
	}
	if claims.ExpiresAt == nil {
		return fmt.Errorf("%w: missing expiry", ErrTokenInvalid)
	}

	exp := claims.ExpiresAt.Time
	if !exp.After(s.now()) {
		return nil
	}

	if err := s.revoked.Revoke(ctx, claims.ID, exp); err != nil {
		return fmt.Errorf("%w: %w", ErrRevocationStore, err)
	}
	return nil
}

func (s *TokenService) parse(token string, opts ...jwt.ParserOption) (*Claims, error) {
	opts = append(opts, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(_ *jwt.Token) (any, error) {
		return s.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrTokenInvalid
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrTokenInvalid)
	}
	if claims.ID == "" {
		return nil, fmt.Errorf("%w: missing jti", ErrTokenInvalid)
	}
	return claims, nil
}

// ExtractBearer returns the token from an "Authorization: Bearer <token>"
// header value. The scheme is matched case-insensitively.
func ExtractBearer(header string) (string, error) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", ErrMissingHeader
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", ErrMissingHeader
	}
	return token, nil
}
