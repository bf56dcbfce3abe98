package httputil

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	dErrors "orgstructure/pkg/domain-errors"
)

// Page is an offset/limit window parsed from skip and limit.
type Page struct {
	Skip  int
	Limit int
}

// ParsePage reads skip (default 0) and limit (default 100, capped at 1000).
func ParsePage(r *http.Request) (Page, error) {
	page := Page{Limit: DefaultLimit}
	q := r.URL.Query()
	if raw := q.Get("skip"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return page, invalidParam("skip", raw)
		}
		page.Skip = n
	}
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return page, invalidParam("limit", raw)
		}
		page.Limit = min(n, MaxLimit)
	}
	return page, nil
}

// QueryInt64 returns nil when the parameter is absent.
func QueryInt64(r *http.Request, name string) (*int64, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return nil, nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, invalidParam(name, raw)
	}
	return &n, nil
}

// QueryBool accepts the strconv.ParseBool spellings.
func QueryBool(r *http.Request, name string) (*bool, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, invalidParam(name, raw)
	}
	return &b, nil
}

// QueryDate parses a YYYY-MM-DD parameter.
func QueryDate(r *http.Request, name string) (*time.Time, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return nil, nil
	}
	d, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return nil, invalidParam(name, raw)
	}
	return &d, nil
}

// QueryString returns the trimmed parameter or nil.
func QueryString(r *http.Request, name string) *string {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return nil
	}
	return &raw
}

// PathID parses a positive int64 path segment value.
func PathID(raw string) (int64, error) {
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n < 1 {
		return 0, dErrors.Newf(dErrors.CodeValidation, "invalid id %q", raw)
	}
	return n, nil
}

func invalidParam(name, raw string) error {
	return dErrors.Newf(dErrors.CodeValidation, "invalid value %q for query parameter %s", raw, name)
}
