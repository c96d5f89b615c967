package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/cimillas/hut-booking/internal/auth"
)

// TokenParser verifies the token of an incoming action link.
type TokenParser interface {
	Parse(token string) (auth.Principal, error)
}

// TokenIssuer signs tokens for newly created bookings.
type TokenIssuer interface {
	Issue(p auth.Principal) (string, error)
}

type principalKey struct{}

// Authenticate attaches the principal of a bearer or ?token= credential to
// the request context. Requests without a token pass through anonymously;
// an invalid token is rejected.
func Authenticate(parser TokenParser, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := tokenFromRequest(r)
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}
		p, err := parser.Parse(token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, codeUnauthorized, "invalid token")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), principalKey{}, p)))
	})
}

func tokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	return r.URL.Query().Get("token")
}

func principalFrom(ctx context.Context) (auth.Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(auth.Principal)
	return p, ok
}

// requireRole writes 401 without a principal and 403 for the wrong role.
func requireRole(w http.ResponseWriter, r *http.Request, role auth.Role) (auth.Principal, bool) {
	p, ok := principalFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, codeUnauthorized, "token required")
		return auth.Principal{}, false
	}
	if p.Role != role {
		writeError(w, http.StatusForbidden, codeForbidden, "not permitted for this identity")
		return auth.Principal{}, false
	}
	return p, true
}

// requireRequesterFor additionally checks that a booking-scoped requester
// token matches the booking being acted on.
func requireRequesterFor(w http.ResponseWriter, r *http.Request, bookingID string) (auth.Principal, bool) {
	p, ok := requireRole(w, r, auth.RoleRequester)
	if !ok {
		return auth.Principal{}, false
	}
	if !p.CanAccess(bookingID) {
		writeError(w, http.StatusForbidden, codeForbidden, "not permitted for this identity")
		return auth.Principal{}, false
	}
	return p, true
}
