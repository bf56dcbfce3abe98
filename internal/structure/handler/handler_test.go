package handler_test

import (
	"bytes"
	"log/slog"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"

	"orgstructure/internal/crud"
	"orgstructure/internal/models"
	"orgstructure/internal/storage/memory"
	"orgstructure/internal/structure/handler"
	"orgstructure/internal/structure/service"
	"orgstructure/pkg/testutil"
)

type HandlerSuite struct {
	suite.Suite
	router http.Handler
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	svc := service.New(crud.NewRunner(memory.New(), crud.WithLogger(logger)))
	r := chi.NewRouter()
	handler.New(svc, logger).Register(r)
	s.router = r
}

func (s *HandlerSuite) do(req *http.Request) *testHTTPResult {
	rr := testutil.DoRequest(s.router, req)
	return &testHTTPResult{code: rr.Code, header: rr.Header(), body: rr.Body.Bytes()}
}

type testHTTPResult struct {
	code   int
	header http.Header
	body   []byte
}

func (s *HandlerSuite) createOrg(body map[string]any) *testHTTPResult {
	return s.do(testutil.WithSuperuser(testutil.NewJSONRequest(s.T(), http.MethodPost, "/organizations", body)))
}

func (s *HandlerSuite) TestCreateRequiresSuperuser() {
	req := testutil.WithUser(testutil.NewJSONRequest(s.T(), http.MethodPost, "/organizations",
		map[string]any{"name": "H", "code": "H", "org_type": "holding"}))
	s.Equal(http.StatusForbidden, s.do(req).code)

	s.Equal(http.StatusCreated, s.createOrg(map[string]any{"name": "H", "code": "H", "org_type": "holding"}).code)
}

func (s *HandlerSuite) TestCompositionViolationIs400() {
	s.Require().Equal(http.StatusCreated, s.createOrg(map[string]any{"name": "H", "code": "H", "org_type": "holding"}).code)
	res := s.createOrg(map[string]any{"name": "L", "code": "L", "org_type": "location", "parent_id": 1})
	s.Equal(http.StatusBadRequest, res.code)
	s.Contains(string(res.body), "invariant_violation")
}

func (s *HandlerSuite) TestValidationIs422() {
	res := s.createOrg(map[string]any{"code": "H", "org_type": "castle"})
	s.Equal(http.StatusUnprocessableEntity, res.code)
	s.Contains(string(res.body), `"field":"name"`)
	s.Contains(string(res.body), `"field":"org_type"`)
}

func (s *HandlerSuite) TestListCarriesTotalAndFilters() {
	s.createOrg(map[string]any{"name": "H", "code": "H", "org_type": "holding"})
	s.createOrg(map[string]any{"name": "B", "code": "B", "org_type": "board"})

	rr := testutil.DoRequest(s.router, testutil.WithUser(testutil.NewRequest(s.T(), http.MethodGet, "/organizations?org_type=board")))
	s.Equal(http.StatusOK, rr.Code)
	s.Equal("1", rr.Header().Get("X-Total-Count"))
	orgs := testutil.UnmarshalResponse[[]models.Organization](s.T(), rr)
	s.Require().Len(*orgs, 1)
	s.Equal("B", (*orgs)[0].Code)

	bad := s.do(testutil.WithUser(testutil.NewRequest(s.T(), http.MethodGet, "/organizations?parent_id=x")))
	s.Equal(http.StatusUnprocessableEntity, bad.code)
}

func (s *HandlerSuite) TestEmptyListIsArray() {
	res := s.do(testutil.WithUser(testutil.NewRequest(s.T(), http.MethodGet, "/positions")))
	s.Equal(http.StatusOK, res.code)
	s.JSONEq(`[]`, string(res.body))
}

func (s *HandlerSuite) TestPatchAndDelete() {
	s.createOrg(map[string]any{"name": "H", "code": "H", "org_type": "holding"})

	patch := testutil.WithSuperuser(testutil.NewJSONRequest(s.T(), http.MethodPatch, "/organizations/1", map[string]any{"description": "top"}))
	rr := testutil.DoRequest(s.router, patch)
	s.Require().Equal(http.StatusOK, rr.Code)
	org := testutil.UnmarshalResponse[models.Organization](s.T(), rr)
	s.Equal("H", org.Name)
	s.Require().NotNil(org.Description)
	s.Equal("top", *org.Description)

	del := testutil.WithSuperuser(testutil.NewRequest(s.T(), http.MethodDelete, "/organizations/1"))
	s.Equal(http.StatusNoContent, s.do(del).code)
	again := testutil.WithSuperuser(testutil.NewRequest(s.T(), http.MethodDelete, "/organizations/1"))
	s.Equal(http.StatusNotFound, s.do(again).code)
	get := testutil.WithUser(testutil.NewRequest(s.T(), http.MethodGet, "/organizations/1"))
	s.Equal(http.StatusNotFound, s.do(get).code)
}

func (s *HandlerSuite) TestDeleteWithChildrenIs409() {
	s.createOrg(map[string]any{"name": "H", "code": "H", "org_type": "holding"})
	s.createOrg(map[string]any{"name": "LE", "code": "LE", "org_type": "legal_entity", "parent_id": 1})

	del := testutil.WithSuperuser(testutil.NewRequest(s.T(), http.MethodDelete, "/organizations/1"))
	s.Equal(http.StatusConflict, s.do(del).code)

	children := s.do(testutil.WithUser(testutil.NewRequest(s.T(), http.MethodGet, "/organizations/1/children")))
	s.Equal(http.StatusOK, children.code)
	s.Equal("1", children.header.Get("X-Total-Count"))
}

func (s *HandlerSuite) TestInvalidPathID() {
	res := s.do(testutil.WithUser(testutil.NewRequest(s.T(), http.MethodGet, "/organizations/abc")))
	s.Equal(http.StatusUnprocessableEntity, res.code)
}
