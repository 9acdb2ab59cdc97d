// Package auth verifies identity-provider access tokens against the
// provider's published RSA key set.
package auth

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"cloth/pkg/logger"
	"cloth/pkg/metrics"
)

// DefaultHeader carries the access token set by the edge proxy.
const DefaultHeader = "Cf-Access-Jwt-Assertion"

// DefaultFetchTimeout bounds a key set fetch when Config leaves it unset.
const DefaultFetchTimeout = 5 * time.Second

var (
	ErrNoToken          = errors.New("no token")
	ErrFetchKeySet      = errors.New("failed to fetch key set")
	ErrMalformedToken   = errors.New("malformed token")
	ErrKeyNotFound      = errors.New("no matching public key")
	ErrInvalidKey       = errors.New("invalid public key")
	ErrInvalidSignature = errors.New("invalid token signature")
	ErrInvalidAudience  = errors.New("invalid audience")
	ErrTokenExpired     = errors.New("token expired")
	ErrTokenNotYetValid = errors.New("token not yet valid")
)

// Config holds the verifier settings.
type Config struct {
	Audience     string
	Header       string
	FetchTimeout time.Duration
}

// Claims is the verified token payload.
type Claims struct {
	Subject   string
	Email     string
	Issuer    string
	Audience  []string
	ExpiresAt time.Time
	IssuedAt  time.Time
}

// Identity is the name recorded as the actor of flag changes.
func (c *Claims) Identity() string {
	if c.Email != "" {
		return c.Email
	}
	return c.Subject
}

type accessClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email,omitempty"`
}

// Verifier checks RS256 tokens. It holds no key state of its own; the key set
// is requested from the fetcher on every verification.
type Verifier struct {
	cfg    Config
	keys   KeySetFetcher
	logger *logger.Logger
	now    func() time.Time
}

// VerifierOption customizes a Verifier.
type VerifierOption func(*Verifier)

// WithNow overrides the clock used for expiration checks.
func WithNow(now func() time.Time) VerifierOption {
	return func(v *Verifier) { v.now = now }
}

// NewVerifier creates a Verifier.
func NewVerifier(cfg Config, keys KeySetFetcher, log *logger.Logger, opts ...VerifierOption) *Verifier {
	if cfg.Header == "" {
		cfg.Header = DefaultHeader
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = DefaultFetchTimeout
	}
	if log == nil {
		log = logger.NewNop()
	}
	v := &Verifier{cfg: cfg, keys: keys, logger: log, now: time.Now}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// VerifyRequest verifies the token in the configured request header.
// A missing header yields nil without contacting the provider.
func (v *Verifier) VerifyRequest(r *http.Request) *Claims {
	return v.Verify(r.Context(), strings.TrimSpace(r.Header.Get(v.cfg.Header)))
}

// Verify returns the token's claims, or nil when the token cannot be trusted.
func (v *Verifier) Verify(ctx context.Context, token string) *Claims {
	claims, err := v.verify(ctx, token)
	if err != nil {
		metrics.RecordAuthVerification(resultLabel(err))
		if !errors.Is(err, ErrNoToken) {
			v.logger.Warnw("token verification failed", "error", err)
		}
		return nil
	}
	metrics.RecordAuthVerification("ok")
	return claims
}

func (v *Verifier) verify(ctx context.Context, token string) (*Claims, error) {
	if token == "" {
		return nil, ErrNoToken
	}

	fetchCtx, cancel := context.WithTimeout(ctx, v.cfg.FetchTimeout)
	defer cancel()
	ks, err := v.keys.FetchKeySet(fetchCtx)
	if err != nil {
		if !errors.Is(err, ErrFetchKeySet) {
			err = fmt.Errorf("%w: %w", ErrFetchKeySet, err)
		}
		return nil, err
	}

	if strings.Count(token, ".") != 2 {
		return nil, ErrMalformedToken
	}

	unverified, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedToken, err)
	}
	kid, ok := unverified.Header["kid"].(string)
	if !ok || kid == "" {
		return nil, fmt.Errorf("%w: missing kid", ErrMalformedToken)
	}

	jwk, ok := ks.Find(kid)
	if !ok {
		return nil, fmt.Errorf("%w: kid %q", ErrKeyNotFound, kid)
	}
	publicKey, err := jwkToRSAPublicKey(jwk)
	if err != nil {
		return nil, err
	}

	parsed, err := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithAudience(v.cfg.Audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.now),
	).ParseWithClaims(token, &accessClaims{}, func(*jwt.Token) (interface{}, error) {
		return publicKey, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, ErrInvalidSignature
		case errors.Is(err, jwt.ErrTokenInvalidAudience):
			return nil, ErrInvalidAudience
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrTokenExpired
		case errors.Is(err, jwt.ErrTokenNotValidYet):
			return nil, ErrTokenNotYetValid
		default:
			return nil, fmt.Errorf("%w: %w", ErrMalformedToken, err)
		}
	}

	ac, ok := parsed.Claims.(*accessClaims)
	if !ok || !parsed.Valid {
		return nil, ErrMalformedToken
	}
	// the token must be issued for this application alone
	if len(ac.Audience) != 1 || ac.Audience[0] != v.cfg.Audience {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAudience, []string(ac.Audience))
	}
	return toClaims(ac), nil
}

func toClaims(ac *accessClaims) *Claims {
	c := &Claims{
		Subject:  ac.Subject,
		Email:    ac.Email,
		Issuer:   ac.Issuer,
		Audience: []string(ac.Audience),
	}
	if ac.ExpiresAt != nil {
		c.ExpiresAt = ac.ExpiresAt.Time
	}
	if ac.IssuedAt != nil {
		c.IssuedAt = ac.IssuedAt.Time
	}
	return c
}

func resultLabel(err error) string {
	switch {
	case errors.Is(err, ErrNoToken):
		return "no_token"
	case errors.Is(err, ErrFetchKeySet):
		return "fetch_failed"
	case errors.Is(err, ErrKeyNotFound):
		return "unknown_key"
	case errors.Is(err, ErrTokenExpired):
		return "expired"
	case errors.Is(err, ErrTokenNotYetValid):
		return "not_yet_valid"
	case errors.Is(err, ErrInvalidAudience):
		return "invalid_audience"
	case errors.Is(err, ErrInvalidSignature):
		return "invalid_signature"
	default:
		return "invalid"
	}
}

// jwkToRSAPublicKey converts a JWK to an RSA public key.
func jwkToRSAPublicKey(jwk JWK) (*rsa.PublicKey, error) {
	if jwk.Kty != "" && jwk.Kty != "RSA" {
		return nil, fmt.Errorf("%w: unsupported key type %q", ErrInvalidKey, jwk.Kty)
	}

	nBytes, err := base64.RawURLEncoding.DecodeString(jwk.N)
	if err != nil || len(nBytes) == 0 {
		return nil, fmt.Errorf("%w: invalid modulus", ErrInvalidKey)
	}

	eBytes, err := base64.RawURLEncoding.DecodeString(jwk.E)
	if err != nil || len(eBytes) == 0 || len(eBytes) > 4 {
		return nil, fmt.Errorf("%w: invalid exponent", ErrInvalidKey)
	}
	var e int
	for _, b := range eBytes {
		e = e<<8 + int(b)
	}

	return &rsa.PublicKey{
		N: new(big.Int).SetBytes(nBytes),
		E: e,
	}, nil
}
