package storage

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"

	"orgstructure/internal/models"
)

func TestColumnsFlattenEmbeddedStructs(t *testing.T) {
	cols := Columns(reflect.TypeOf(models.StaffPosition{}))

	names := make([]string, 0, len(cols))
	for _, c := range cols {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{
		"id", "created_at", "updated_at",
		"staff_id", "position_id", "division_id", "location_id", "is_primary",
		"is_active", "start_date", "end_date",
	}, names)
}

func TestColumnIndexResolvesPromotedFields(t *testing.T) {
	idx := ColumnIndex(reflect.TypeOf(models.HierarchyRelation{}))

	rel := models.HierarchyRelation{Priority: 3}
	rel.ID = 9
	rel.IsActive = true

	v := reflect.ValueOf(rel)
	assert.Equal(t, int64(9), v.FieldByIndex(idx["id"]).Interface())
	assert.Equal(t, 3, v.FieldByIndex(idx["priority"]).Interface())
	assert.Equal(t, true, v.FieldByIndex(idx["is_active"]).Interface())
}
