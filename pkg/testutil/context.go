package testutil

import (
	"net/http"

	"orgstructure/pkg/requestcontext"
)

// WithActor attaches actor the way RequireAuth does after a valid token.
func WithActor(req *http.Request, actor requestcontext.Actor) *http.Request {
	return req.WithContext(requestcontext.WithPrincipal(req.Context(), actor))
}

// WithSuperuser is WithActor for a superuser principal.
func WithSuperuser(req *http.Request) *http.Request {
	return WithActor(req, requestcontext.Actor{UserID: 1, Email: "admin@example.com", IsSuperuser: true})
}

// WithUser is WithActor for a regular active user.
func WithUser(req *http.Request) *http.Request {
	return WithActor(req, requestcontext.Actor{UserID: 2, Email: "user@example.com"})
}
