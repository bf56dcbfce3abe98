// Package handler exposes login, self-registration and user management.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	authmodels "orgstructure/internal/auth/models"
	"orgstructure/internal/models"
	"orgstructure/internal/platform/middleware"
	"orgstructure/internal/storage"
	"orgstructure/internal/transport/http/filter"
	"orgstructure/internal/transport/http/rest"
	dErrors "orgstructure/pkg/domain-errors"
	"orgstructure/pkg/platform/httputil"
	"orgstructure/pkg/platform/validation"
)

type Service interface {
	Login(ctx context.Context, creds authmodels.Credentials) (*authmodels.Token, error)
	Register(ctx context.Context, in authmodels.Register) (*models.User, error)
	Me(ctx context.Context) (*models.User, error)
	CreateUser(ctx context.Context, in authmodels.CreateUser) (*models.User, error)
	GetUser(ctx context.Context, id int64) (*models.User, error)
	ListUsers(ctx context.Context, q storage.Query) ([]*models.User, int, error)
	UpdateUser(ctx context.Context, id int64, in authmodels.UpdateUser) (*models.User, error)
	DeleteUser(ctx context.Context, id int64) error
}

type Handler struct {
	svc    Service
	logger *slog.Logger
}

func New(svc Service, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// RegisterPublic mounts the unauthenticated routes. limit wraps login.
func (h *Handler) RegisterPublic(r chi.Router, limit func(http.Handler) http.Handler) {
	r.With(limit).Post("/login/access-token", h.handleLogin)
	r.Post("/register", rest.Create(h.logger, h.svc.Register))
}

// Register mounts the routes that need an authenticated principal.
func (h *Handler) Register(r chi.Router) {
	r.Get("/users/me", h.handleMe)
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireSuperuser(h.logger))
		r.Get("/users", rest.List(h.logger, userQuery, h.svc.ListUsers))
		r.Post("/users", rest.Create(h.logger, h.svc.CreateUser))
		r.Get("/users/{id}", rest.Get(h.logger, h.svc.GetUser))
		r.Patch("/users/{id}", rest.Update(h.logger, h.svc.UpdateUser))
		r.Delete("/users/{id}", rest.Delete(h.logger, h.svc.DeleteUser))
	})
}

func userQuery(r *http.Request) (storage.Query, error) {
	return filter.New(r).
		Bool("is_superuser", "is_superuser").
		Active().
		Search("email", "full_name").
		Query()
}

// handleLogin accepts the OAuth2 password form: username and password,
// url-encoded or multipart.
func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		rest.WriteError(w, r, h.logger, dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid form"))
		return
	}
	creds := authmodels.Credentials{
		Username: r.PostFormValue("username"),
		Password: r.PostFormValue("password"),
	}
	if err := validation.Struct(creds); err != nil {
		rest.WriteError(w, r, h.logger, err)
		return
	}
	tok, err := h.svc.Login(r.Context(), creds)
	if err != nil {
		rest.WriteError(w, r, h.logger, err)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	httputil.WriteJSON(w, http.StatusOK, tok)
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	me, err := h.svc.Me(r.Context())
	if err != nil {
		rest.WriteError(w, r, h.logger, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, me)
}
