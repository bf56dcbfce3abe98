package filter

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orgstructure/internal/storage"
	dErrors "orgstructure/pkg/domain-errors"
)

func TestBuilderCollectsConditions(t *testing.T) {
	r := httptest.NewRequest("GET", "/staff-positions?staff_id=10&is_primary=true&skip=5&limit=20&unknown=x", nil)
	q, err := New(r).ID("staff_id", "staff_id").Bool("is_primary", "is_primary").Current().Query()
	require.NoError(t, err)
	assert.Equal(t, []storage.Cond{
		storage.Eq{Field: "staff_id", Value: int64(10)},
		storage.Eq{Field: "is_primary", Value: true},
	}, q.Conds)
	assert.Equal(t, 5, q.Offset)
	assert.Equal(t, 20, q.Limit)
}

func TestBuilderCurrentAt(t *testing.T) {
	r := httptest.NewRequest("GET", "/x?current_at=2024-03-01&include_inactive=true&is_active=false", nil)
	q, err := New(r).Current().Query()
	require.NoError(t, err)
	require.Len(t, q.Conds, 1)
	assert.Equal(t, storage.ActiveOn{Date: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), IncludeInactive: true}, q.Conds[0])
}

func TestBuilderRejectsMalformedValues(t *testing.T) {
	cases := []string{
		"/x?staff_id=abc",
		"/x?is_primary=maybe",
		"/x?current_at=01-03-2024",
		"/x?org_type=castle",
		"/x?limit=-1",
	}
	for _, target := range cases {
		t.Run(target, func(t *testing.T) {
			r := httptest.NewRequest("GET", target, nil)
			_, err := New(r).ID("staff_id", "staff_id").Bool("is_primary", "is_primary").
				Enum("org_type", "org_type", OrgTypes()...).Current().Query()
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
		})
	}
}

func TestLimitIsClamped(t *testing.T) {
	r := httptest.NewRequest("GET", "/x?limit=5000", nil)
	q, err := New(r).Query()
	require.NoError(t, err)
	assert.Equal(t, 1000, q.Limit)
}
