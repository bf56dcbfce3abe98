package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"orgstructure/internal/hierarchy"
	"orgstructure/internal/transport/http/rest"
	dErrors "orgstructure/pkg/domain-errors"
	"orgstructure/pkg/platform/httputil"
)

type Service interface {
	Tree(ctx context.Context, p hierarchy.Params) (*hierarchy.Tree, error)
}

type Handler struct {
	svc    Service
	logger *slog.Logger
}

func New(svc Service, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/org-tree", h.handleTree)
}

func (h *Handler) handleTree(w http.ResponseWriter, r *http.Request) {
	p, err := parseParams(r)
	if err != nil {
		rest.WriteError(w, r, h.logger, err)
		return
	}
	tree, err := h.svc.Tree(r.Context(), p)
	if err != nil {
		rest.WriteError(w, r, h.logger, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, tree)
}

func parseParams(r *http.Request) (hierarchy.Params, error) {
	var p hierarchy.Params
	var err error
	if p.RootPositionID, err = httputil.QueryInt64(r, "root_position_id"); err != nil {
		return p, err
	}
	if p.OrganizationID, err = httputil.QueryInt64(r, "organization_id"); err != nil {
		return p, err
	}
	depth, err := httputil.QueryInt64(r, "depth")
	if err != nil {
		return p, err
	}
	if depth != nil {
		if *depth < 0 {
			return p, dErrors.New(dErrors.CodeValidation, "depth must not be negative")
		}
		d := int(min(*depth, hierarchy.MaxDepth))
		p.Depth = &d
	}
	return p, nil
}
