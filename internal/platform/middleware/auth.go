package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	dErrors "orgstructure/pkg/domain-errors"
	"orgstructure/pkg/platform/httputil"
	"orgstructure/pkg/requestcontext"
)

// Authenticator resolves a bearer token to an active principal.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (requestcontext.Actor, error)
}

// RequireAuth rejects requests without a valid bearer token and stores the
// principal in the request context.
func RequireAuth(auth Authenticator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			token, ok := bearerToken(r)
			if !ok {
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", GetRequestID(ctx),
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "not authenticated"))
				return
			}
			actor, err := auth.Authenticate(ctx, token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - token rejected",
					"error", err,
					"request_id", GetRequestID(ctx),
				)
				httputil.WriteError(w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(requestcontext.WithPrincipal(ctx, actor)))
		})
	}
}

// RequireSuperuser must run after RequireAuth.
func RequireSuperuser(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			actor := requestcontext.Principal(ctx)
			if actor.Email == "" {
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "not authenticated"))
				return
			}
			if !actor.IsSuperuser {
				logger.WarnContext(ctx, "forbidden - superuser required",
					"user", actor.Email,
					"path", r.URL.Path,
					"request_id", GetRequestID(ctx),
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "the user doesn't have enough privileges"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
