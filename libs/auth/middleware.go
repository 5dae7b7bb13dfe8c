package auth

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/fracto-health/fracto/libs/httpx"
)

// Mode selects where caller identity comes from.
type Mode string

const (
	// ModeJWT verifies a Bearer token on every request.
	ModeJWT Mode = "jwt"
	// ModeGateway trusts X-User-Id and X-Role set by an upstream gateway that
	// already verified the caller.
	ModeGateway Mode = "gateway"
)

const (
	HeaderUserID = "X-User-Id"
	HeaderRole   = "X-Role"
)

func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeJWT:
		return ModeJWT, nil
	case ModeGateway:
		return ModeGateway, nil
	}
	return "", fmt.Errorf("unknown auth mode %q", s)
}

type Authenticator struct {
	mode     Mode
	verifier *Verifier
}

func NewAuthenticator(mode Mode, verifier *Verifier) *Authenticator {
	return &Authenticator{mode: mode, verifier: verifier}
}

// Require rejects requests without a valid identity and stores the identity in
// the request context.
func (a *Authenticator) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := a.identify(w, r)
		if !ok {
			return
		}
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
	})
}

func (a *Authenticator) identify(w http.ResponseWriter, r *http.Request) (Identity, bool) {
	if a.mode == ModeGateway {
		userID := strings.TrimSpace(r.Header.Get(HeaderUserID))
		role, ok := ParseRole(r.Header.Get(HeaderRole))
		if userID == "" || !ok {
			httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "missing identity headers")
			return Identity{}, false
		}
		return Identity{UserID: userID, Role: role}, true
	}

	authHeader := r.Header.Get("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") || len(strings.TrimSpace(authHeader)) <= len("Bearer ") {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "missing or invalid Authorization header")
		return Identity{}, false
	}
	claims, err := a.verifier.Verify(strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer ")))
	if err != nil {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "invalid token")
		return Identity{}, false
	}
	role, ok := ParseRole(claims.Role)
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "invalid role claim")
		return Identity{}, false
	}
	return Identity{UserID: claims.Subject, Role: role}, true
}

// RequireRole allows the request only when the caller holds one of roles.
// It must run after Require.
func RequireRole(next http.Handler, roles ...Role) http.Handler {
	allowed := map[Role]struct{}{}
	for _, r := range roles {
		allowed[r] = struct{}{}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := IdentityFromContext(r.Context())
		if !ok {
			httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "authentication required")
			return
		}
		if _, ok := allowed[id.Role]; !ok {
			httpx.WriteError(w, http.StatusForbidden, "forbidden", "role not permitted")
			return
		}
		next.ServeHTTP(w, r)
	})
}
