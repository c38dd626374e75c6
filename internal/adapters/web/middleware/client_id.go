package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/rangelab/rangectl/internal/core/services/audit"
)

const clientCookie = "rangectl_client"

// ClientIDMiddleware tags every request with a stable client identity so
// audit entries can be traced back to a browser session. A missing or
// malformed cookie gets a fresh UUID.
func ClientIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var clientID string
		if c, err := r.Cookie(clientCookie); err == nil {
			if _, parseErr := uuid.Parse(c.Value); parseErr == nil {
				clientID = c.Value
			}
		}
		if clientID == "" {
			clientID = uuid.NewString()
			http.SetCookie(w, &http.Cookie{
				Name:     clientCookie,
				Value:    clientID,
				Path:     "/",
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
		}

		ctx := audit.WithClient(r.Context(), audit.ClientInfo{
			ClientID: clientID,
			Actor:    "operator",
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
