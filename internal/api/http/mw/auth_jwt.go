package mw

import (
	"context"
	"dexnetwork/pkg/httputil"
	"errors"
	"net/http"

	"github.com/golang-jwt/jwt/v5"
)

type claimsCtxKey struct{}

type BearerVerifier interface {
	VerifyBearer(header string) (*jwt.RegisteredClaims, error)
}

type JWTMiddleware struct {
	verifier BearerVerifier
}

func NewJWTMiddleware(v BearerVerifier) (*JWTMiddleware, error) {
	if v == nil {
		return nil, errors.New("jwt verifier is required")
	}
	return &JWTMiddleware{verifier: v}, nil
}

func (m *JWTMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := m.verifier.VerifyBearer(r.Header.Get("Authorization"))
		if err != nil {
			_ = httputil.Error(w, r, http.StatusUnauthorized, "unauthorized", err.Error(), nil)
			return
		}

		ctx := context.WithValue(r.Context(), claimsCtxKey{}, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ClaimsFromContext claims of an authenticated request, nil when the guard is off
func ClaimsFromContext(ctx context.Context) *jwt.RegisteredClaims {
	c, _ := ctx.Value(claimsCtxKey{}).(*jwt.RegisteredClaims)
	return c
}
