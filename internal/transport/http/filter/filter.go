// Package filter turns list query parameters into storage queries. Unknown
// parameters are ignored; malformed values fail with a validation error.
package filter

import (
	"net/http"
	"slices"
	"strings"

	"orgstructure/internal/models"
	"orgstructure/internal/storage"
	dErrors "orgstructure/pkg/domain-errors"
	"orgstructure/pkg/platform/httputil"
)

// Builder accumulates conditions; the first parse error sticks.
type Builder struct {
	r     *http.Request
	conds []storage.Cond
	err   error
}

func New(r *http.Request) *Builder {
	return &Builder{r: r}
}

// ID filters field by an integer parameter.
func (b *Builder) ID(param, field string) *Builder {
	if b.err != nil {
		return b
	}
	v, err := httputil.QueryInt64(b.r, param)
	if err != nil {
		b.err = err
		return b
	}
	if v != nil {
		b.conds = append(b.conds, storage.Eq{Field: field, Value: *v})
	}
	return b
}

// Bool filters field by a boolean parameter.
func (b *Builder) Bool(param, field string) *Builder {
	if b.err != nil {
		return b
	}
	v, err := httputil.QueryBool(b.r, param)
	if err != nil {
		b.err = err
		return b
	}
	if v != nil {
		b.conds = append(b.conds, storage.Eq{Field: field, Value: *v})
	}
	return b
}

// Enum filters field by a string parameter restricted to allowed.
func (b *Builder) Enum(param, field string, allowed ...string) *Builder {
	if b.err != nil {
		return b
	}
	v := httputil.QueryString(b.r, param)
	if v == nil {
		return b
	}
	if !slices.Contains(allowed, *v) {
		b.err = dErrors.Newf(dErrors.CodeValidation, "invalid value %q for query parameter %s: must be one of %s",
			*v, param, strings.Join(allowed, ", "))
		return b
	}
	b.conds = append(b.conds, storage.Eq{Field: field, Value: *v})
	return b
}

// Search applies the q parameter as a substring match over fields.
func (b *Builder) Search(fields ...string) *Builder {
	if b.err != nil {
		return b
	}
	if q := httputil.QueryString(b.r, "q"); q != nil {
		b.conds = append(b.conds, storage.Search{Fields: fields, Term: *q})
	}
	return b
}

// Active filters by is_active.
func (b *Builder) Active() *Builder {
	return b.Bool("is_active", "is_active")
}

// Current handles the temporal parameters of relation lists: current_at
// restricts to rows whose window contains the date, skipping inactive rows
// unless include_inactive=true. Without current_at, is_active applies as a
// plain filter.
func (b *Builder) Current() *Builder {
	if b.err != nil {
		return b
	}
	at, err := httputil.QueryDate(b.r, "current_at")
	if err != nil {
		b.err = err
		return b
	}
	if at == nil {
		return b.Active()
	}
	include, err := httputil.QueryBool(b.r, "include_inactive")
	if err != nil {
		b.err = err
		return b
	}
	b.conds = append(b.conds, storage.ActiveOn{Date: *at, IncludeInactive: include != nil && *include})
	return b
}

// Cond adds a fixed condition.
func (b *Builder) Cond(c storage.Cond) *Builder {
	b.conds = append(b.conds, c)
	return b
}

// Query returns the conditions with the skip/limit page applied.
func (b *Builder) Query() (storage.Query, error) {
	if b.err != nil {
		return storage.Query{}, b.err
	}
	page, err := httputil.ParsePage(b.r)
	if err != nil {
		return storage.Query{}, err
	}
	return storage.Query{Conds: b.conds, Offset: page.Skip, Limit: page.Limit}, nil
}

// At parses the optional at=YYYY-MM-DD parameter of primary lookups.
func At(r *http.Request) (*models.Date, error) {
	t, err := httputil.QueryDate(r, "at")
	if err != nil || t == nil {
		return nil, err
	}
	d := models.DateOf(*t)
	return &d, nil
}

func OrgTypes() []string {
	return []string{string(models.OrgTypeBoard), string(models.OrgTypeHolding), string(models.OrgTypeLegalEntity), string(models.OrgTypeLocation)}
}

func RelationTypes() []string {
	return []string{
		string(models.RelationFunctional), string(models.RelationAdministrative), string(models.RelationProject),
		string(models.RelationTerritorial), string(models.RelationMentoring), string(models.RelationStrategic),
		string(models.RelationGovernance), string(models.RelationAdvisory), string(models.RelationSupervisory),
	}
}
