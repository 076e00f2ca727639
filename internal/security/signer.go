package security

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Signer mints read tokens for local runs and tests; production tokens come from the identity provider
type Signer struct {
	priv *rsa.PrivateKey
	iss  string
	aud  string
	now  func() time.Time
}

func NewSigner(privateKeyPath, issuer, audience string) (*Signer, error) {
	if privateKeyPath == "" {
		return nil, errors.New("private key path is empty")
	}

	block, err := loadPEM(privateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read private key %s, error=%w", privateKeyPath, err)
	}
	priv, err := parseRSAPrivateKey(block)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key, error=%w", err)
	}

	return NewSignerFromKey(priv, issuer, audience), nil
}

func NewSignerFromKey(priv *rsa.PrivateKey, issuer, audience string) *Signer {
	return &Signer{priv: priv, iss: issuer, aud: audience, now: time.Now}
}

// Mint a token for sub valid from now for ttl
func (s *Signer) Mint(sub string, ttl time.Duration) (string, error) {
	now := s.now()
	claims := jwt.RegisteredClaims{
		Issuer:    s.iss,
		Subject:   sub,
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
	}
	if s.aud != "" {
		claims.Audience = jwt.ClaimStrings{s.aud}
	}

	return jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(s.priv)
}
