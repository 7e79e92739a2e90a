package middleware

import (
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/zhouzirui/shopdesk/backend/internal/service/identity"
	"github.com/zhouzirui/shopdesk/backend/pkg/utils"
)

// TokenVerifier resolves a bearer token into a caller.
type TokenVerifier interface {
	Verify(token string) (identity.Identity, error)
}

// Auth rejects requests without a valid bearer token and stores the caller
// in the request context.
func Auth(verifier TokenVerifier, log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				utils.RespondError(w, http.StatusUnauthorized, "missing bearer token")
				return
			}

			id, err := verifier.Verify(token)
			if err != nil {
				log.Debug().Err(err).Str("path", r.URL.Path).Msg("rejected credential")
				utils.RespondError(w, http.StatusUnauthorized, "invalid credentials")
				return
			}

			next.ServeHTTP(w, r.WithContext(identity.NewContext(r.Context(), id)))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
