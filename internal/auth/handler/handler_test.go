package handler_test

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"

	"orgstructure/internal/auth/handler"
	authmodels "orgstructure/internal/auth/models"
	"orgstructure/internal/auth/service"
	"orgstructure/internal/auth/token"
	"orgstructure/internal/crud"
	"orgstructure/internal/models"
	"orgstructure/internal/platform/middleware"
	"orgstructure/internal/ratelimit"
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
	svc := service.New(crud.NewRunner(s.db, crud.WithLogger(logger)),
		token.NewService("test-secret", time.Hour), service.WithBcryptCost(bcrypt.MinCost))
	limit, err := ratelimit.New("3-M", nil, logger)
	s.Require().NoError(err)

	h := handler.New(svc, logger)
	r := chi.NewRouter()
	r.Use(middleware.ClientMetadata)
	h.RegisterPublic(r, limit.Login())
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(svc, logger))
		h.Register(r)
	})
	s.router = r
}

func (s *HandlerSuite) seedSuperuser(email, password string) {
	hash, err := service.HashPassword(password, bcrypt.MinCost)
	s.Require().NoError(err)
	s.Require().NoError(s.db.Users().Create(context.Background(), &models.User{
		Email: email, HashedPassword: hash, IsActive: true, IsSuperuser: true,
	}))
}

func (s *HandlerSuite) login(username, password string) *httptest.ResponseRecorder {
	form := url.Values{"username": {username}, "password": {password}}
	req := httptest.NewRequest(http.MethodPost, "/login/access-token", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return testutil.DoRequest(s.router, req)
}

func (s *HandlerSuite) bearer(username, password string) string {
	rr := s.login(username, password)
	s.Require().Equal(http.StatusOK, rr.Code, rr.Body.String())
	return testutil.UnmarshalResponse[authmodels.Token](s.T(), rr).AccessToken
}

func (s *HandlerSuite) authed(method, path, tok string) *httptest.ResponseRecorder {
	req := testutil.NewRequest(s.T(), method, path)
	req.Header.Set("Authorization", "Bearer "+tok)
	return testutil.DoRequest(s.router, req)
}

func (s *HandlerSuite) TestRegisterLoginMe() {
	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/register", map[string]any{
		"email": "ann@example.com", "password": "s3cret-pass", "full_name": "Ann Lee",
	})
	rr := testutil.DoRequest(s.router, req)
	s.Require().Equal(http.StatusCreated, rr.Code, rr.Body.String())
	s.NotContains(rr.Body.String(), "hashed_password")

	rr = s.login("ann@example.com", "s3cret-pass")
	s.Require().Equal(http.StatusOK, rr.Code)
	tok := testutil.UnmarshalResponse[authmodels.Token](s.T(), rr)
	s.Equal("bearer", tok.TokenType)
	s.NotEmpty(tok.AccessToken)

	me := s.authed(http.MethodGet, "/users/me", tok.AccessToken)
	s.Require().Equal(http.StatusOK, me.Code)
	testutil.AssertJSONContains(s.T(), me, "email", "ann@example.com")
}

func (s *HandlerSuite) TestLoginRejections() {
	s.seedSuperuser("root@example.com", "s3cret-pass")

	rr := s.login("root@example.com", "wrong-pass")
	testutil.AssertStatusAndError(s.T(), rr, http.StatusUnauthorized, "unauthorized")
	s.Equal("Bearer", rr.Header().Get("WWW-Authenticate"))

	rr = s.login("", "s3cret-pass")
	s.Equal(http.StatusUnprocessableEntity, rr.Code)
}

func (s *HandlerSuite) TestLoginIsRateLimited() {
	for range 3 {
		s.Equal(http.StatusUnauthorized, s.login("nobody@example.com", "wrong-pass").Code)
	}
	s.Equal(http.StatusTooManyRequests, s.login("nobody@example.com", "wrong-pass").Code)
}

func (s *HandlerSuite) TestTokenRequired() {
	rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/users/me"))
	s.Equal(http.StatusUnauthorized, rr.Code)

	rr = s.authed(http.MethodGet, "/users/me", "garbage")
	s.Equal(http.StatusUnauthorized, rr.Code)
}

func (s *HandlerSuite) TestUserAdminNeedsSuperuser() {
	s.seedSuperuser("root@example.com", "s3cret-pass")
	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/register", map[string]any{
		"email": "ann@example.com", "password": "s3cret-pass",
	})
	s.Require().Equal(http.StatusCreated, testutil.DoRequest(s.router, req).Code)

	plain := s.bearer("ann@example.com", "s3cret-pass")
	s.Equal(http.StatusForbidden, s.authed(http.MethodGet, "/users", plain).Code)

	root := s.bearer("root@example.com", "s3cret-pass")
	rr := s.authed(http.MethodGet, "/users", root)
	s.Require().Equal(http.StatusOK, rr.Code)
	s.Equal("2", rr.Header().Get("X-Total-Count"))

	rr = s.authed(http.MethodGet, "/users?is_superuser=true", root)
	s.Equal("1", rr.Header().Get("X-Total-Count"))

	s.Equal(http.StatusNoContent, s.authed(http.MethodDelete, "/users/2", root).Code)
	s.Equal(http.StatusUnauthorized, s.authed(http.MethodGet, "/users/me", plain).Code)
}
