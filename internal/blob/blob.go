// Package blob stores staff photos and documents by key. Keys are slash
// separated and never start with a slash.
package blob

//go:generate mockgen -source=blob.go -destination=mocks/mock_store.go -package=mocks Store

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"orgstructure/pkg/platform/sentinel"
)

// Object describes a stored blob.
type Object struct {
	Key     string
	Size    int64
	ModTime time.Time
}

// Store is implemented by the filesystem and S3 backends. Open returns
// sentinel.ErrNotFound for a missing key; Delete of a missing key succeeds.
type Store interface {
	Save(ctx context.Context, key string, r io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	List(ctx context.Context, prefix string) ([]Object, error)
}

// ErrNotFound is returned by Open for a missing key.
var ErrNotFound = fmt.Errorf("blob %w", sentinel.ErrNotFound)

// StaffPrefix holds every blob owned by staff rows.
const StaffPrefix = "staff/"

// StaffKey builds staff/<id>/<kind>_<hex><ext> from a random UUID. ext
// keeps its dot.
func StaffKey(staffID int64, kind, ext string) string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return fmt.Sprintf("%s%d/%s_%s%s", StaffPrefix, staffID, kind, id, strings.ToLower(ext))
}

// CleanKey rejects keys that could escape the store root.
func CleanKey(key string) (string, error) {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "\\") {
		return "", fmt.Errorf("invalid blob key %q", key)
	}
	clean := path.Clean(key)
	if clean != key || clean == "." || strings.HasPrefix(clean, "../") || clean == ".." {
		return "", fmt.Errorf("invalid blob key %q", key)
	}
	return clean, nil
}
