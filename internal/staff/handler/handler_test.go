package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"

	"orgstructure/internal/blob/fs"
	"orgstructure/internal/crud"
	"orgstructure/internal/models"
	"orgstructure/internal/staff/handler"
	"orgstructure/internal/staff/service"
	"orgstructure/internal/storage/memory"
	"orgstructure/pkg/testutil"
)

// jpegHeader is a minimal JFIF prefix for content sniffing.
var jpegHeader = []byte("\xff\xd8\xff\xe0\x00\x10JFIF\x00\x01\x01\x00\x00\x01\x00\x01\x00\x00")

type HandlerSuite struct {
	suite.Suite
	db     *memory.DB
	blobs  *fs.Store
	router http.Handler
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	s.db = memory.New()
	var err error
	s.blobs, err = fs.New(s.T().TempDir())
	s.Require().NoError(err)
	svc := service.New(crud.NewRunner(s.db, crud.WithLogger(logger)), s.blobs)
	r := chi.NewRouter()
	handler.New(svc, logger, handler.WithMaxUploadBytes(1<<20)).Register(r)
	s.router = r
}

type part struct {
	field, filename string
	body            []byte
}

func (s *HandlerSuite) multipart(method, path string, fields map[string][]string, files ...part) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for name, vs := range fields {
		for _, v := range vs {
			s.Require().NoError(mw.WriteField(name, v))
		}
	}
	for _, f := range files {
		w, err := mw.CreateFormFile(f.field, f.filename)
		s.Require().NoError(err)
		_, err = w.Write(f.body)
		s.Require().NoError(err)
	}
	s.Require().NoError(mw.Close())

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return testutil.DoRequest(s.router, testutil.WithSuperuser(req))
}

func (s *HandlerSuite) get(path string) *httptest.ResponseRecorder {
	return testutil.DoRequest(s.router, testutil.WithUser(testutil.NewRequest(s.T(), http.MethodGet, path)))
}

func data(v any) []string {
	b, _ := json.Marshal(v)
	return []string{string(b)}
}

func (s *HandlerSuite) TestStaffWithFilesLifecycle() {
	rr := s.multipart(http.MethodPost, "/staff/with-files",
		map[string][]string{"data": data(map[string]any{"email": "a@example.com", "first_name": "Ann", "last_name": "Lee"})},
		part{"photo", "me.jpg", jpegHeader},
	)
	s.Require().Equal(http.StatusCreated, rr.Code, rr.Body.String())
	st := testutil.UnmarshalResponse[models.Staff](s.T(), rr)
	s.Require().NotNil(st.PhotoPath)
	s.Regexp(regexp.MustCompile(`^staff/1/photo_[0-9a-f]+\.jpg$`), *st.PhotoPath)
	key := *st.PhotoPath

	photo := s.get("/staff/1/photo")
	s.Require().Equal(http.StatusOK, photo.Code)
	s.Equal("image/jpeg", photo.Header().Get("Content-Type"))
	s.Equal(jpegHeader, photo.Body.Bytes())

	rr = s.multipart(http.MethodPut, "/staff/1/with-files", map[string][]string{"delete_photo": {"true"}})
	s.Require().Equal(http.StatusOK, rr.Code, rr.Body.String())

	s.Equal(http.StatusNotFound, s.get("/staff/1/photo").Code)
	_, err := s.blobs.Open(context.Background(), key)
	s.Error(err)
}

func (s *HandlerSuite) TestDocumentsPairWithTypes() {
	rr := s.multipart(http.MethodPost, "/staff/with-files",
		map[string][]string{
			"email": {"b@example.com"}, "first_name": {"Bo"}, "last_name": {"Ng"},
			"document_types": {"passport", "diploma"},
		},
		part{"documents", "passport.pdf", []byte("%PDF-1.4 passport")},
		part{"documents", "diploma.pdf", []byte("%PDF-1.4 diploma")},
	)
	s.Require().Equal(http.StatusCreated, rr.Code, rr.Body.String())

	doc := s.get("/staff/1/document/diploma")
	s.Require().Equal(http.StatusOK, doc.Code)
	body, _ := io.ReadAll(doc.Body)
	s.Equal("%PDF-1.4 diploma", string(body))
	s.Contains(doc.Header().Get("Content-Disposition"), "attachment")

	s.Equal(http.StatusNotFound, s.get("/staff/1/document/visa").Code)
}

func (s *HandlerSuite) TestMismatchedDocumentTypesIs422() {
	rr := s.multipart(http.MethodPost, "/staff/with-files",
		map[string][]string{"data": data(map[string]any{"email": "c@example.com", "first_name": "C", "last_name": "D"})},
		part{"documents", "a.pdf", []byte("x")},
	)
	s.Equal(http.StatusUnprocessableEntity, rr.Code)
}

func (s *HandlerSuite) TestNonImagePhotoIs422() {
	rr := s.multipart(http.MethodPost, "/staff/with-files",
		map[string][]string{"data": data(map[string]any{"email": "c@example.com", "first_name": "C", "last_name": "D"})},
		part{"photo", "me.jpg", []byte("plain text pretending")},
	)
	s.Equal(http.StatusUnprocessableEntity, rr.Code)
	s.Contains(rr.Body.String(), `"field":"photo"`)
}

func (s *HandlerSuite) TestWithFilesRequiresSuperuser() {
	req := testutil.WithUser(testutil.NewRequest(s.T(), http.MethodPost, "/staff/with-files"))
	s.Equal(http.StatusForbidden, testutil.DoRequest(s.router, req).Code)
}

func (s *HandlerSuite) TestLocationTyping() {
	ctx := context.Background()
	holding := &models.Organization{Name: "H", Code: "H", OrgType: models.OrgTypeHolding, IsActive: true}
	s.Require().NoError(s.db.Organizations().Create(ctx, holding))
	le := &models.Organization{Name: "LE", Code: "LE", OrgType: models.OrgTypeLegalEntity, ParentID: &holding.ID, IsActive: true}
	s.Require().NoError(s.db.Organizations().Create(ctx, le))
	loc := &models.Organization{Name: "LOC", Code: "LOC", OrgType: models.OrgTypeLocation, ParentID: &le.ID, IsActive: true}
	s.Require().NoError(s.db.Organizations().Create(ctx, loc))

	create := testutil.NewJSONRequest(s.T(), http.MethodPost, "/staff", map[string]any{"email": "a@example.com", "first_name": "A", "last_name": "B"})
	s.Require().Equal(http.StatusCreated, testutil.DoRequest(s.router, testutil.WithSuperuser(create)).Code)

	bad := testutil.NewJSONRequest(s.T(), http.MethodPatch, "/staff/1", map[string]any{"location_id": le.ID})
	rr := testutil.DoRequest(s.router, testutil.WithSuperuser(bad))
	s.Equal(http.StatusBadRequest, rr.Code)
	s.Contains(rr.Body.String(), "invariant_violation")

	good := testutil.NewJSONRequest(s.T(), http.MethodPatch, "/staff/1", map[string]any{"location_id": loc.ID})
	s.Equal(http.StatusOK, testutil.DoRequest(s.router, testutil.WithSuperuser(good)).Code)

	rr = s.get("/staff/1")
	s.Require().Equal(http.StatusOK, rr.Code)
	s.Contains(rr.Body.String(), `"location_id":3`)
}

func (s *HandlerSuite) TestSearch() {
	for _, email := range []string{"ann@example.com", "bob@example.com"} {
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/staff", map[string]any{"email": email, "first_name": "F", "last_name": "L"})
		s.Require().Equal(http.StatusCreated, testutil.DoRequest(s.router, testutil.WithSuperuser(req)).Code)
	}
	rr := s.get("/staff?q=ANN")
	s.Equal(http.StatusOK, rr.Code)
	s.Equal("1", rr.Header().Get("X-Total-Count"))
}
