package httpmiddleware

import (
	"net/http"
	"strings"

	"github.com/Black-And-White-Club/raffle/pkg/jwt"
)

// BearerAuth validates the Authorization bearer token and stores its claims in
// the request context. When roles are given the token must carry one of them.
func BearerAuth(tokens jwt.Service, roles ...jwt.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			raw, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || raw == "" {
				WriteError(w, http.StatusUnauthorized, "missing bearer token")
				return
			}

			claims, err := tokens.ValidateToken(raw)
			if err != nil {
				WriteError(w, http.StatusUnauthorized, err.Error())
				return
			}

			if len(roles) > 0 && !hasRole(jwt.Role(claims.Role), roles) {
				WriteError(w, http.StatusForbidden, "insufficient role")
				return
			}

			next.ServeHTTP(w, r.WithContext(jwt.WithClaims(r.Context(), claims)))
		})
	}
}

func hasRole(role jwt.Role, allowed []jwt.Role) bool {
	for _, a := range allowed {
		if role == a {
			return true
		}
	}
	return false
}
