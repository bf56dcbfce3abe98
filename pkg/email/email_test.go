package email

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDisplayName(t *testing.T) {
	tests := []struct {
		addr string
		want string
	}{
		{"ann.lee@example.com", "Ann Lee"},
		{"ANN_LEE+ops@example.com", "Ann Lee"},
		{"root@example.com", "Root"},
		{"first-middle.last@example.com", "First Middle Last"},
		{"...@example.com", ""},
		{"no-at-sign", "No At Sign"},
	}
	for _, tt := range tests {
		t.Run(tt.addr, func(t *testing.T) {
			assert.Equal(t, tt.want, DisplayName(tt.addr))
		})
	}
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "ann@example.com", Normalize("  Ann@Example.COM "))
}
