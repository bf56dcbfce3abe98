package ratelimit

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orgstructure/pkg/requestcontext"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

func login(h http.Handler, ip, username string) *httptest.ResponseRecorder {
	form := url.Values{"username": {username}, "password": {"x"}}
	req := httptest.NewRequest(http.MethodPost, "/login/access-token", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req = req.WithContext(requestcontext.WithClientMetadata(req.Context(), ip, "test"))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestLoginLimitPerIP(t *testing.T) {
	m, err := New("2-M", nil, discard())
	require.NoError(t, err)
	h := m.Login()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// the form stays readable downstream
		assert.NotEmpty(t, r.PostForm.Get("username"))
		w.WriteHeader(http.StatusOK)
	}))

	assert.Equal(t, http.StatusOK, login(h, "10.0.0.1", "a@example.com").Code)
	assert.Equal(t, http.StatusOK, login(h, "10.0.0.1", "b@example.com").Code)
	rr := login(h, "10.0.0.1", "c@example.com")
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.NotEmpty(t, rr.Header().Get("Retry-After"))
	assert.Contains(t, rr.Body.String(), "rate_limit_exceeded")

	assert.Equal(t, http.StatusOK, login(h, "10.0.0.2", "d@example.com").Code)
}

func TestLoginLimitPerUsername(t *testing.T) {
	m, err := New("2-M", nil, discard())
	require.NoError(t, err)
	h := m.Login()(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	assert.Equal(t, http.StatusOK, login(h, "10.0.0.1", "a@example.com").Code)
	assert.Equal(t, http.StatusOK, login(h, "10.0.0.2", "A@example.com").Code)
	assert.Equal(t, http.StatusTooManyRequests, login(h, "10.0.0.3", "a@example.com").Code)
}

func TestDisabled(t *testing.T) {
	m, err := New("1-M", nil, discard(), WithDisabled(true))
	require.NoError(t, err)
	h := m.Login()(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	for range 3 {
		assert.Equal(t, http.StatusOK, login(h, "10.0.0.1", "a@example.com").Code)
	}
}

func TestBadRate(t *testing.T) {
	_, err := New("lots", nil, discard())
	assert.Error(t, err)
}
