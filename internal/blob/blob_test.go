package blob_test

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"

	"orgstructure/internal/blob"
)

func TestStaffKey(t *testing.T) {
	key := blob.StaffKey(12, "photo", ".JPG")
	assert.Regexp(t, regexp.MustCompile(`^staff/12/photo_[0-9a-f]{32}\.jpg$`), key)
	assert.NotEqual(t, key, blob.StaffKey(12, "photo", ".JPG"))
}

func TestCleanKey(t *testing.T) {
	tests := []struct {
		key string
		ok  bool
	}{
		{"staff/1/photo_x.png", true},
		{"a", true},
		{"", false},
		{"/a", false},
		{"..", false},
		{"../a", false},
		{"a/../b", false},
		{"a/./b", false},
		{"a\\b", false},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			_, err := blob.CleanKey(tt.key)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}
