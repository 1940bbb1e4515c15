package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

type ctxKey int

const orgIDKey ctxKey = iota

// RequireOrganization verifies the bearer token (HMAC, signed with secret)
// and puts the organization id from its "sub" claim on the request context.
// Token issuance is handled by the identity service, not here.
func RequireOrganization(secret string) func(http.Handler) http.Handler {
	key := []byte(secret)
	parser := jwt.NewParser(jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authz := strings.TrimSpace(r.Header.Get("Authorization"))
			if len(authz) < 7 || !strings.EqualFold(authz[:7], "bearer ") {
				writeError(w, http.StatusUnauthorized, "missing bearer token", nil)
				return
			}

			tok, err := parser.Parse(strings.TrimSpace(authz[7:]), func(*jwt.Token) (any, error) {
				return key, nil
			})
			if err != nil || !tok.Valid {
				writeError(w, http.StatusUnauthorized, "invalid token", err)
				return
			}

			orgID, err := organizationFromClaims(tok.Claims)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "invalid token claims", err)
				return
			}

			ctx := context.WithValue(r.Context(), orgIDKey, orgID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func organizationFromClaims(claims jwt.Claims) (uint, error) {
	sub, err := claims.GetSubject()
	if err != nil {
		return 0, err
	}
	id, err := strconv.ParseUint(strings.TrimSpace(sub), 10, 64)
	if err != nil || id == 0 {
		return 0, errors.New("sub must be a positive organization id")
	}
	return uint(id), nil
}

// orgID returns the organization resolved by RequireOrganization.
func orgID(r *http.Request) uint {
	id, _ := r.Context().Value(orgIDKey).(uint)
	return id
}
