// Package handler exposes staff records, the with-files upload endpoints
// and photo/document downloads.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"orgstructure/internal/models"
	"orgstructure/internal/platform/middleware"
	"orgstructure/internal/staff/service"
	"orgstructure/internal/storage"
	"orgstructure/internal/transport/http/filter"
	"orgstructure/internal/transport/http/rest"
	dErrors "orgstructure/pkg/domain-errors"
	"orgstructure/pkg/platform/httputil"
)

const defaultMaxUploadBytes = 20 << 20

type Service interface {
	CreateStaff(ctx context.Context, in models.StaffCreate) (*models.Staff, error)
	GetStaff(ctx context.Context, id int64) (*models.Staff, error)
	ListStaff(ctx context.Context, q storage.Query) ([]*models.Staff, int, error)
	UpdateStaff(ctx context.Context, id int64, in models.StaffUpdate) (*models.Staff, error)
	DeleteStaff(ctx context.Context, id int64) error
	CreateWithFiles(ctx context.Context, in models.StaffCreate, files service.Files) (*models.Staff, error)
	UpdateWithFiles(ctx context.Context, id int64, in models.StaffUpdate, files service.Files) (*models.Staff, error)
	Photo(ctx context.Context, staffID int64) (*service.Content, error)
	Document(ctx context.Context, staffID int64, docType string) (*service.Content, error)
}

type Handler struct {
	svc            Service
	logger         *slog.Logger
	maxUploadBytes int64
}

type Option func(*Handler)

func WithMaxUploadBytes(n int64) Option {
	return func(h *Handler) {
		if n > 0 {
			h.maxUploadBytes = n
		}
	}
}

func New(svc Service, logger *slog.Logger, opts ...Option) *Handler {
	h := &Handler{svc: svc, logger: logger, maxUploadBytes: defaultMaxUploadBytes}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) Register(r chi.Router) {
	admin := middleware.RequireSuperuser(h.logger)

	rest.Resource[models.StaffCreate, models.StaffUpdate, *models.Staff]{
		List: h.svc.ListStaff, Query: staffQuery,
		Create: h.svc.CreateStaff, Get: h.svc.GetStaff,
		Update: h.svc.UpdateStaff, Delete: h.svc.DeleteStaff,
	}.Mount(r, "/staff", h.logger, admin)

	r.With(admin).Post("/staff/with-files", h.handleCreateWithFiles)
	r.With(admin).Put("/staff/{id}/with-files", h.handleUpdateWithFiles)
	r.Get("/staff/{id}/photo", h.handlePhoto)
	r.Get("/staff/{id}/document/{type}", h.handleDocument)
}

func staffQuery(r *http.Request) (storage.Query, error) {
	return filter.New(r).
		ID("organization_id", "organization_id").
		ID("primary_organization_id", "primary_organization_id").
		ID("location_id", "location_id").
		ID("user_id", "user_id").
		Active().
		Search("email", "first_name", "last_name").
		Query()
}

func (h *Handler) handleCreateWithFiles(w http.ResponseWriter, r *http.Request) {
	form, err := h.parseForm(w, r)
	if err != nil {
		rest.WriteError(w, r, h.logger, err)
		return
	}
	defer func() { _ = form.RemoveAll() }()

	var in models.StaffCreate
	if err := decodeData(form, &in); err != nil {
		rest.WriteError(w, r, h.logger, err)
		return
	}
	files, closeFiles, err := readFiles(form)
	if err != nil {
		rest.WriteError(w, r, h.logger, err)
		return
	}
	defer closeFiles()

	out, err := h.svc.CreateWithFiles(r.Context(), in, files)
	if err != nil {
		rest.WriteError(w, r, h.logger, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, out)
}

func (h *Handler) handleUpdateWithFiles(w http.ResponseWriter, r *http.Request) {
	id, err := rest.ID(r)
	if err != nil {
		rest.WriteError(w, r, h.logger, err)
		return
	}
	form, err := h.parseForm(w, r)
	if err != nil {
		rest.WriteError(w, r, h.logger, err)
		return
	}
	defer func() { _ = form.RemoveAll() }()

	var in models.StaffUpdate
	if err := decodeData(form, &in); err != nil {
		rest.WriteError(w, r, h.logger, err)
		return
	}
	files, closeFiles, err := readFiles(form)
	if err != nil {
		rest.WriteError(w, r, h.logger, err)
		return
	}
	defer closeFiles()

	out, err := h.svc.UpdateWithFiles(r.Context(), id, in, files)
	if err != nil {
		rest.WriteError(w, r, h.logger, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) parseForm(w http.ResponseWriter, r *http.Request) (*multipart.Form, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, dErrors.Newf(dErrors.CodeValidation, "upload exceeds %d bytes", tooLarge.Limit)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid multipart form")
	}
	return r.MultipartForm, nil
}

// decodeData reads the staff fields from the "data" JSON part, or failing
// that from plain form fields.
func decodeData(form *multipart.Form, dst any) error {
	raw := first(form.Value, "data")
	if raw == "" {
		fields, err := formFields(form.Value)
		if err != nil {
			return err
		}
		b, _ := json.Marshal(fields)
		raw = string(b)
	}
	dec := json.NewDecoder(strings.NewReader(raw))
	if err := dec.Decode(dst); err != nil {
		return dErrors.Wrap(err, dErrors.CodeValidation, "invalid data field: "+err.Error())
	}
	return nil
}

var reservedFields = map[string]bool{"data": true, "document_types": true, "delete_photo": true}

// formFields converts flat form values to JSON values: *_id fields become
// integers and is_active a boolean.
func formFields(values map[string][]string) (map[string]any, error) {
	out := make(map[string]any, len(values))
	for name, vs := range values {
		if reservedFields[name] || len(vs) == 0 {
			continue
		}
		v := vs[0]
		switch {
		case strings.HasSuffix(name, "_id"):
			if v == "" {
				out[name] = nil
				continue
			}
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return nil, dErrors.Newf(dErrors.CodeValidation, "invalid value %q for form field %s", v, name)
			}
			out[name] = n
		case name == "is_active":
			b, err := strconv.ParseBool(v)
			if err != nil {
				return nil, dErrors.Newf(dErrors.CodeValidation, "invalid value %q for form field %s", v, name)
			}
			out[name] = b
		default:
			out[name] = v
		}
	}
	return out, nil
}

// readFiles opens the photo and the documents paired with document_types
// by position. The returned func closes everything opened.
func readFiles(form *multipart.Form) (service.Files, func(), error) {
	var (
		files  service.Files
		opened []io.Closer
	)
	closeAll := func() {
		for _, c := range opened {
			_ = c.Close()
		}
	}
	open := func(fh *multipart.FileHeader) (service.Upload, error) {
		f, err := fh.Open()
		if err != nil {
			return service.Upload{}, dErrors.Wrap(err, dErrors.CodeBadRequest, "failed to read upload "+fh.Filename)
		}
		opened = append(opened, f)
		return service.Upload{Filename: fh.Filename, Body: f}, nil
	}

	if raw := first(form.Value, "delete_photo"); raw != "" {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return files, closeAll, dErrors.Newf(dErrors.CodeValidation, "invalid value %q for form field delete_photo", raw)
		}
		files.DeletePhoto = b
	}
	if photos := form.File["photo"]; len(photos) > 0 {
		up, err := open(photos[0])
		if err != nil {
			closeAll()
			return files, func() {}, err
		}
		files.Photo = &up
	}

	docs := form.File["documents"]
	types := form.Value["document_types"]
	// Browsers may send the labels as one comma separated field.
	if len(types) == 1 && len(docs) > 1 {
		types = strings.Split(types[0], ",")
	}
	if len(docs) != len(types) {
		closeAll()
		return files, func() {}, dErrors.New(dErrors.CodeValidation,
			fmt.Sprintf("got %d documents but %d document types", len(docs), len(types)))
	}
	for i, fh := range docs {
		up, err := open(fh)
		if err != nil {
			closeAll()
			return files, func() {}, err
		}
		files.Documents = append(files.Documents, service.Document{Type: strings.TrimSpace(types[i]), Upload: up})
	}
	return files, closeAll, nil
}

func first(values map[string][]string, name string) string {
	if vs := values[name]; len(vs) > 0 {
		return vs[0]
	}
	return ""
}

func (h *Handler) handlePhoto(w http.ResponseWriter, r *http.Request) {
	id, err := rest.ID(r)
	if err != nil {
		rest.WriteError(w, r, h.logger, err)
		return
	}
	content, err := h.svc.Photo(r.Context(), id)
	if err != nil {
		rest.WriteError(w, r, h.logger, err)
		return
	}
	h.stream(w, r, content, "inline")
}

func (h *Handler) handleDocument(w http.ResponseWriter, r *http.Request) {
	id, err := rest.ID(r)
	if err != nil {
		rest.WriteError(w, r, h.logger, err)
		return
	}
	content, err := h.svc.Document(r.Context(), id, chi.URLParam(r, "type"))
	if err != nil {
		rest.WriteError(w, r, h.logger, err)
		return
	}
	h.stream(w, r, content, "attachment")
}

func (h *Handler) stream(w http.ResponseWriter, r *http.Request, c *service.Content, disposition string) {
	defer func() { _ = c.Body.Close() }()
	w.Header().Set("Content-Type", c.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("%s; filename=%q", disposition, c.Filename))
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, c.Body); err != nil {
		h.logger.WarnContext(r.Context(), "file stream interrupted", "path", r.URL.Path, "error", err)
	}
}
