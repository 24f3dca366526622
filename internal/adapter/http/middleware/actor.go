package middleware

import (
	"net/http"
	"strings"

	"github.com/iho/loanledger/internal/domain"
)

// ActorHeader names the operator acting on a request.
const ActorHeader = "X-Actor"

// Actor attaches the X-Actor header to the request context for audit rows.
// Requests without it act as the system actor.
func Actor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if actor := strings.TrimSpace(r.Header.Get(ActorHeader)); actor != "" {
			r = r.WithContext(domain.WithActor(r.Context(), actor))
		}
		next.ServeHTTP(w, r)
	})
}
