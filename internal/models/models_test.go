package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDateJSON(t *testing.T) {
	var d Date
	require.NoError(t, json.Unmarshal([]byte(`"2024-03-01"`), &d))
	assert.Equal(t, NewDate(2024, time.March, 1), d)

	out, err := json.Marshal(d)
	require.NoError(t, err)
	assert.Equal(t, `"2024-03-01"`, string(out))

	require.NoError(t, json.Unmarshal([]byte(`"2024-03-01T15:04:05Z"`), &d))
	assert.Equal(t, "2024-03-01", d.String())

	assert.Error(t, json.Unmarshal([]byte(`"01/03/2024"`), &d))
}

func TestDateScan(t *testing.T) {
	var d Date
	require.NoError(t, d.Scan(time.Date(2024, 5, 6, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "2024-05-06", d.String())

	require.NoError(t, d.Scan([]byte("2023-12-31")))
	assert.Equal(t, "2023-12-31", d.String())

	v, err := d.Value()
	require.NoError(t, err)
	assert.Equal(t, "2023-12-31", v)
}

func TestPeriodCurrentAt(t *testing.T) {
	end := NewDate(2024, time.June, 30)
	p := Period{IsActive: true, StartDate: NewDate(2024, time.January, 1), EndDate: &end}

	assert.True(t, p.CurrentAt(NewDate(2024, time.January, 1)), "start day is inclusive")
	assert.True(t, p.CurrentAt(NewDate(2024, time.June, 30)), "end day is inclusive")
	assert.False(t, p.CurrentAt(NewDate(2023, time.December, 31)))
	assert.False(t, p.CurrentAt(NewDate(2024, time.July, 1)))

	p.IsActive = false
	assert.False(t, p.CurrentAt(NewDate(2024, time.March, 1)))
	assert.True(t, p.Covers(NewDate(2024, time.March, 1)))

	open := Period{IsActive: true, StartDate: NewDate(2024, time.January, 1)}
	assert.True(t, open.CurrentAt(NewDate(2099, time.January, 1)))
}

func TestDocumentPathsLegacyArray(t *testing.T) {
	var paths DocumentPaths
	require.NoError(t, json.Unmarshal([]byte(`["staff/1/a_1.pdf","staff/1/b_2.pdf"]`), &paths))
	assert.Equal(t, DocumentPaths{"doc_1": "staff/1/a_1.pdf", "doc_2": "staff/1/b_2.pdf"}, paths)

	require.NoError(t, paths.Scan([]byte(`{"passport":"staff/1/passport_ab.pdf"}`)))
	assert.Equal(t, DocumentPaths{"passport": "staff/1/passport_ab.pdf"}, paths)

	require.NoError(t, paths.Scan(nil))
	assert.Nil(t, paths)

	assert.Error(t, json.Unmarshal([]byte(`"nope"`), &paths))
}

func TestOptionalDistinguishesNullFromAbsent(t *testing.T) {
	var upd OrganizationUpdate
	require.NoError(t, json.Unmarshal([]byte(`{"name":"New","parent_id":null}`), &upd))

	parent := int64(3)
	desc := "kept"
	org := &Organization{Name: "Old", Code: "C", ParentID: &parent, Description: &desc}
	upd.Apply(org)

	assert.Equal(t, "New", org.Name)
	assert.Nil(t, org.ParentID, "explicit null clears the field")
	assert.Equal(t, "C", org.Code, "absent field is untouched")
	require.NotNil(t, org.Description)
	assert.Equal(t, "kept", *org.Description)

	encoded, err := json.Marshal(OrganizationUpdate{Name: Some("X")})
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"X"}`, string(encoded))
}

func TestRelationCreateDefaults(t *testing.T) {
	today := NewDate(2024, time.March, 1)

	sf := StaffFunctionCreate{StaffID: 1, FunctionID: 2}.Build(today)
	assert.Equal(t, 100, sf.CommitmentPercent)
	assert.True(t, sf.IsActive)
	assert.Equal(t, today, sf.StartDate)

	hr := HierarchyRelationCreate{SuperiorPositionID: 1, SubordinatePositionID: 2}.Build(today)
	assert.Equal(t, 1, hr.Priority)

	fr := FunctionalRelationCreate{ManagerID: 1, SubordinateID: 2}.Build(today)
	assert.Equal(t, RelationFunctional, fr.RelationType)
}

func TestStaffBlobKeys(t *testing.T) {
	photo := "staff/1/photo_ab.jpg"
	s := &Staff{PhotoPath: &photo, DocumentPaths: DocumentPaths{"passport": "staff/1/passport_cd.pdf"}}
	assert.ElementsMatch(t, []string{"staff/1/photo_ab.jpg", "staff/1/passport_cd.pdf"}, s.BlobKeys())
}
