package security

import (
	"crypto/rsa"
	"dexnetwork/internal/config"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrNoBearerToken = errors.New("authorization header must be: Bearer <token>")
)

const defaultLeeway = 30 * time.Second

// Verifier guards the read API: RS256 only, exp required, aud/iss checked when configured
type Verifier struct {
	pub    *rsa.PublicKey
	aud    string
	iss    string
	leeway time.Duration
}

func NewVerifier(cfg *config.JWTConfig) (*Verifier, error) {
	if cfg == nil {
		return nil, errors.New("jwt config is required")
	}

	block, err := loadPEM(cfg.PublicKeyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read public key %s, error=%w", cfg.PublicKeyPath, err)
	}
	pub, err := parseRSAPublicKey(block)
	if err != nil {
		return nil, fmt.Errorf("failed to parse public key, error=%w", err)
	}

	return NewVerifierFromKey(pub, cfg.Audience, cfg.Issuer, cfg.Leeway), nil
}

func NewVerifierFromKey(pub *rsa.PublicKey, audience, issuer string, leeway time.Duration) *Verifier {
	// sane defaults
	if leeway <= 0 {
		leeway = defaultLeeway
	}
	return &Verifier{pub: pub, aud: audience, iss: issuer, leeway: leeway}
}

// VerifyBearer validate the token of an Authorization header value
func (v *Verifier) VerifyBearer(header string) (*jwt.RegisteredClaims, error) {
	raw, err := extractBearer(header)
	if err != nil {
		return nil, err
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithLeeway(v.leeway),
		jwt.WithIssuedAt(),
		jwt.WithExpirationRequired(),
	}
	if v.aud != "" {
		opts = append(opts, jwt.WithAudience(v.aud))
	}
	if v.iss != "" {
		opts = append(opts, jwt.WithIssuer(v.iss))
	}

	claims := &jwt.RegisteredClaims{}
	if _, err = jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return v.pub, nil
	}, opts...); err != nil {
		return nil, fmt.Errorf("failed to parse token, error=%w", err)
	}

	return claims, nil
}

func extractBearer(h string) (string, error) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(h), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", ErrNoBearerToken
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", ErrNoBearerToken
	}
	return token, nil
}
