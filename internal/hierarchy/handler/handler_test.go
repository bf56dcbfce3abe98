package handler_test

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"

	"orgstructure/internal/hierarchy"
	"orgstructure/internal/hierarchy/cache"
	"orgstructure/internal/hierarchy/handler"
	"orgstructure/internal/models"
	"orgstructure/internal/storage/memory"
	"orgstructure/pkg/testutil"
)

type HandlerSuite struct {
	suite.Suite
	db     *memory.DB
	router http.Handler
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	s.db = memory.New()
	svc := cache.New(hierarchy.NewBuilder(s.db, hierarchy.WithLogger(logger)), nil, cache.WithLogger(logger))
	r := chi.NewRouter()
	handler.New(svc, logger).Register(r)
	s.router = r

	ctx := context.Background()
	for _, name := range []string{"P1", "P2", "P3", "P4"} {
		s.Require().NoError(s.db.Positions().Create(ctx, &models.Position{Name: name, Attribute: models.AttributeDirector, IsActive: true}))
	}
	for _, e := range [][2]int64{{1, 2}, {1, 3}, {2, 4}} {
		s.Require().NoError(s.db.HierarchyRelations().Create(ctx, &models.HierarchyRelation{
			SuperiorPositionID: e[0], SubordinatePositionID: e[1],
			Period: models.Period{IsActive: true, StartDate: models.NewDate(2024, 1, 1)},
		}))
	}
}

func (s *HandlerSuite) tree(query string) (int, *hierarchy.Tree) {
	rr := testutil.DoRequest(s.router, testutil.WithUser(testutil.NewRequest(s.T(), http.MethodGet, "/org-tree"+query)))
	if rr.Code != http.StatusOK {
		return rr.Code, nil
	}
	return rr.Code, testutil.UnmarshalResponse[hierarchy.Tree](s.T(), rr)
}

func ids(t *hierarchy.Tree) []string {
	var out []string
	for _, n := range t.Nodes {
		out = append(out, n.ID)
	}
	return out
}

func (s *HandlerSuite) TestFullTree() {
	code, tree := s.tree("")
	s.Require().Equal(http.StatusOK, code)
	s.ElementsMatch([]string{"pos-1", "pos-2", "pos-3", "pos-4"}, ids(tree))
	s.Len(tree.Edges, 3)
	s.False(tree.Truncated)
}

func (s *HandlerSuite) TestDepthOne() {
	code, tree := s.tree("?depth=1")
	s.Require().Equal(http.StatusOK, code)
	s.ElementsMatch([]string{"pos-1", "pos-2", "pos-3"}, ids(tree))
	s.Len(tree.Edges, 2)
}

func (s *HandlerSuite) TestMalformedParams() {
	for _, q := range []string{"?depth=-1", "?depth=x", "?root_position_id=abc", "?organization_id=1.5"} {
		code, _ := s.tree(q)
		s.Equal(http.StatusUnprocessableEntity, code, q)
	}
}

func (s *HandlerSuite) TestMissingOrganizationIs404() {
	code, _ := s.tree("?organization_id=42")
	s.Equal(http.StatusNotFound, code)
}

// paramsRecorder captures the parameters a request resolves to.
type paramsRecorder struct {
	got *hierarchy.Params
}

func (r *paramsRecorder) Tree(_ context.Context, p hierarchy.Params) (*hierarchy.Tree, error) {
	r.got = &p
	return &hierarchy.Tree{}, nil
}

func (s *HandlerSuite) TestHugeDepthIsClamped() {
	rec := &paramsRecorder{}
	r := chi.NewRouter()
	handler.New(rec, slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))).Register(r)

	rr := testutil.DoRequest(r, testutil.WithUser(testutil.NewRequest(s.T(), http.MethodGet, "/org-tree?depth=9223372036854775807")))
	s.Require().Equal(http.StatusOK, rr.Code)
	s.Require().NotNil(rec.got.Depth)
	s.Equal(hierarchy.MaxDepth, *rec.got.Depth)

	code, tree := s.tree("?depth=9223372036854775807")
	s.Require().Equal(http.StatusOK, code)
	s.ElementsMatch([]string{"pos-1", "pos-2", "pos-3", "pos-4"}, ids(tree))
}
