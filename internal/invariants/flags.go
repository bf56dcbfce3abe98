package invariants

import (
	"context"

	"orgstructure/internal/storage"
	"orgstructure/pkg/platform/sentinel"
)

// Flag names a boolean column that at most one row per group may carry.
type Flag struct {
	Group string
	Field string
}

var (
	StaffPositionPrimary = Flag{Group: "staff_id", Field: "is_primary"}
	StaffFunctionPrimary = Flag{Group: "staff_id", Field: "is_primary"}
	StaffLocationCurrent = Flag{Group: "staff_id", Field: "is_current"}
	AssignmentPrimary    = Flag{Group: "position_id", Field: "is_primary"}
)

// Locker is satisfied by every storage.Repository.
type Locker interface {
	Lock(ctx context.Context, id int64) error
}

// SetUniqueFlag marks row id as the flagged row of its group. It locks the
// group owner, clears the flag on every other row of the group, then sets it
// on id. Must run inside a transaction.
func SetUniqueFlag[T any](ctx context.Context, owner Locker, repo storage.Repository[T], flag Flag, groupID, id int64) error {
	if err := owner.Lock(ctx, groupID); err != nil {
		return storage.DomainError(err, "group owner")
	}
	if _, err := repo.SetWhere(ctx, flag.Field, false,
		storage.Eq{Field: flag.Group, Value: groupID},
		storage.Eq{Field: flag.Field, Value: true},
		storage.NotEq{Field: "id", Value: id},
	); err != nil {
		return storage.DomainError(err, "relation")
	}
	n, err := repo.SetWhere(ctx, flag.Field, true, storage.Eq{Field: "id", Value: id})
	if err != nil {
		return storage.DomainError(err, "relation")
	}
	if n == 0 {
		return storage.DomainError(sentinel.ErrNotFound, "relation")
	}
	return nil
}
