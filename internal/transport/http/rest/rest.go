// Package rest adapts service calls to the JSON resource conventions shared
// by every handler: 201 on create, 204 on delete, X-Total-Count on lists and
// the {"detail": ...} error body.
package rest

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"orgstructure/internal/storage"
	dErrors "orgstructure/pkg/domain-errors"
	"orgstructure/pkg/platform/httputil"
	"orgstructure/pkg/requestcontext"
)

// QueryFunc parses the filters and page of a list request.
type QueryFunc func(r *http.Request) (storage.Query, error)

// WriteError logs err at a level matching its status and renders it.
func WriteError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	ctx := r.Context()
	code := dErrors.CodeOf(err)
	status := httputil.StatusFor(code)
	attrs := []any{
		"request_id", requestcontext.RequestID(ctx),
		"method", r.Method,
		"path", r.URL.Path,
		"code", string(code),
		"error", err.Error(),
	}
	if status >= http.StatusInternalServerError {
		logger.ErrorContext(ctx, "request failed", attrs...)
	} else {
		logger.DebugContext(ctx, "request rejected", attrs...)
	}
	httputil.WriteError(w, err)
}

// ID parses the {id} path parameter.
func ID(r *http.Request) (int64, error) {
	return httputil.PathID(chi.URLParam(r, "id"))
}

func List[T any](logger *slog.Logger, parse QueryFunc, fn func(ctx context.Context, q storage.Query) ([]T, int, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q, err := parse(r)
		if err != nil {
			WriteError(w, r, logger, err)
			return
		}
		items, total, err := fn(r.Context(), q)
		if err != nil {
			WriteError(w, r, logger, err)
			return
		}
		if items == nil {
			items = []T{}
		}
		httputil.WriteList(w, items, total)
	}
}

// ListOf lists the rows that belong to the {id} parent.
func ListOf[T any](logger *slog.Logger, parse QueryFunc, fn func(ctx context.Context, id int64, q storage.Query) ([]T, int, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := ID(r)
		if err != nil {
			WriteError(w, r, logger, err)
			return
		}
		List(logger, parse, func(ctx context.Context, q storage.Query) ([]T, int, error) {
			return fn(ctx, id, q)
		})(w, r)
	}
}

func Get[T any](logger *slog.Logger, fn func(ctx context.Context, id int64) (T, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := ID(r)
		if err != nil {
			WriteError(w, r, logger, err)
			return
		}
		out, err := fn(r.Context(), id)
		if err != nil {
			WriteError(w, r, logger, err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, out)
	}
}

func Create[In, Out any](logger *slog.Logger, fn func(ctx context.Context, in In) (Out, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in In
		if err := httputil.DecodeJSON(r, &in); err != nil {
			WriteError(w, r, logger, err)
			return
		}
		out, err := fn(r.Context(), in)
		if err != nil {
			WriteError(w, r, logger, err)
			return
		}
		httputil.WriteJSON(w, http.StatusCreated, out)
	}
}

func Update[In, Out any](logger *slog.Logger, fn func(ctx context.Context, id int64, in In) (Out, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := ID(r)
		if err != nil {
			WriteError(w, r, logger, err)
			return
		}
		var in In
		if err := httputil.DecodeJSON(r, &in); err != nil {
			WriteError(w, r, logger, err)
			return
		}
		out, err := fn(r.Context(), id, in)
		if err != nil {
			WriteError(w, r, logger, err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, out)
	}
}

func Delete(logger *slog.Logger, fn func(ctx context.Context, id int64) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := ID(r)
		if err != nil {
			WriteError(w, r, logger, err)
			return
		}
		if err := fn(r.Context(), id); err != nil {
			WriteError(w, r, logger, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// Resource registers the five standard routes of one collection. PUT and
// PATCH both apply a partial update. Mutations are wrapped in guard.
type Resource[C, U, T any] struct {
	List   func(ctx context.Context, q storage.Query) ([]T, int, error)
	Query  QueryFunc
	Create func(ctx context.Context, in C) (T, error)
	Get    func(ctx context.Context, id int64) (T, error)
	Update func(ctx context.Context, id int64, in U) (T, error)
	Delete func(ctx context.Context, id int64) error
}

// Mount registers flat patterns so other handlers can add routes below the
// same prefix.
func (res Resource[C, U, T]) Mount(r chi.Router, prefix string, logger *slog.Logger, guard func(http.Handler) http.Handler) {
	item := prefix + "/{id}"
	r.Get(prefix, List(logger, res.Query, res.List))
	r.With(guard).Post(prefix, Create(logger, res.Create))
	r.Get(item, Get(logger, res.Get))
	r.With(guard).Put(item, Update(logger, res.Update))
	r.With(guard).Patch(item, Update(logger, res.Update))
	r.With(guard).Delete(item, Delete(logger, res.Delete))
}
