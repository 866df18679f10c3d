package jwt

import (
	"net/http"

	"github.com/tenantdesk/tenantdesk-backend/pkg/actor"
	"github.com/tenantdesk/tenantdesk-backend/pkg/errors"
	"github.com/tenantdesk/tenantdesk-backend/pkg/httputil"
	"github.com/tenantdesk/tenantdesk-backend/pkg/logger"
)

// RequireBearer rejects requests without a valid bearer token and stores the
// verified actor on the request context
func RequireBearer(verifier TokenVerifier, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := ExtractBearer(r.Header.Get("Authorization"))
			if !ok {
				httputil.Error(w, errors.Unauthorized("missing bearer token"))
				return
			}

			claims, err := verifier.Verify(token)
			if err != nil {
				log.Debug().Err(err).Str("path", r.URL.Path).Msg("bearer token rejected")
				httputil.Error(w, err)
				return
			}

			a := &actor.Actor{ID: claims.Subject, Email: claims.Email, Role: claims.Role}
			httputil.NoteActor(r.Context(), a.ID)

			next.ServeHTTP(w, r.WithContext(actor.WithActor(r.Context(), a)))
		})
	}
}
