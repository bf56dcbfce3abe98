package crud

import (
	"context"

	"orgstructure/internal/invariants"
	"orgstructure/internal/models"
	"orgstructure/internal/storage"
	dErrors "orgstructure/pkg/domain-errors"
	"orgstructure/pkg/platform/changes"
	"orgstructure/pkg/platform/validation"
	"orgstructure/pkg/requestcontext"
)

type record[T any] interface {
	*T
	Meta() *models.Base
}

// Hooks customize a Resource. Every hook runs inside the write transaction.
type Hooks[T any] struct {
	// Check enforces cross-entity invariants. prev is nil on create.
	Check func(ctx context.Context, tx storage.Gateway, rec, prev *T) error
	// BeforeDelete issues cascades or refuses the delete.
	BeforeDelete func(ctx context.Context, tx storage.Gateway, rec *T) error
	// Flag, when set, keeps a primary/current column unique per group.
	Flag *UniqueFlag[T]
}

// UniqueFlag binds an invariants.Flag to a record type.
type UniqueFlag[T any] struct {
	Flag  invariants.Flag
	Owner func(tx storage.Gateway) invariants.Locker
	Value func(rec *T) *bool
	Group func(rec *T) int64
}

// Resource is the create/get/list/update/delete path of one entity kind.
type Resource[T any, P record[T]] struct {
	runner *Runner
	entity string
	repo   func(storage.Gateway) storage.Repository[T]
	hooks  Hooks[T]
}

func NewResource[T any, P record[T]](runner *Runner, entity string, repo func(storage.Gateway) storage.Repository[T], hooks Hooks[T]) *Resource[T, P] {
	return &Resource[T, P]{runner: runner, entity: entity, repo: repo, hooks: hooks}
}

func (res *Resource[T, P]) Entity() string {
	return res.entity
}

// Repo returns the repository of this entity bound to g.
func (res *Resource[T, P]) Repo(g storage.Gateway) storage.Repository[T] {
	return res.repo(g)
}

func (res *Resource[T, P]) Get(ctx context.Context, id int64) (*T, error) {
	rec, err := res.repo(res.runner.store).Get(ctx, id)
	if err != nil {
		return nil, storage.DomainError(err, res.entity)
	}
	return rec, nil
}

// Find returns the first match in list order.
func (res *Resource[T, P]) Find(ctx context.Context, conds ...storage.Cond) (*T, error) {
	rec, err := res.repo(res.runner.store).Find(ctx, conds...)
	if err != nil {
		return nil, storage.DomainError(err, res.entity)
	}
	return rec, nil
}

// List returns one page and the total number of matches.
func (res *Resource[T, P]) List(ctx context.Context, q storage.Query) ([]*T, int, error) {
	repo := res.repo(res.runner.store)
	total, err := repo.Count(ctx, q.Conds...)
	if err != nil {
		return nil, 0, storage.DomainError(err, res.entity)
	}
	items, err := repo.List(ctx, q)
	if err != nil {
		return nil, 0, storage.DomainError(err, res.entity)
	}
	return items, total, nil
}

// Create validates rec, checks invariants and inserts it. The store may run
// the insert more than once; every attempt starts from the row as passed in.
func (res *Resource[T, P]) Create(ctx context.Context, rec *T) (*T, error) {
	in := *rec
	_, err := res.runner.Mutate(ctx, res.entity, changes.ActionCreate, func(ctx context.Context, tx storage.Gateway) (int64, error) {
		*rec = in
		return res.insert(ctx, tx, rec)
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// CreateTx is Create for callers that already hold a transaction.
func (res *Resource[T, P]) CreateTx(ctx context.Context, tx storage.Gateway, rec *T) (int64, error) {
	return res.insert(ctx, tx, rec)
}

func (res *Resource[T, P]) insert(ctx context.Context, tx storage.Gateway, rec *T) (int64, error) {
	P(rec).Meta().Stamp(requestcontext.Now(ctx))
	if err := validation.Struct(rec); err != nil {
		return 0, err
	}
	if res.hooks.Check != nil {
		if err := res.hooks.Check(ctx, tx, rec, nil); err != nil {
			return 0, err
		}
	}
	// A flagged row is inserted unflagged and promoted afterwards so the
	// other rows of the group are cleared first.
	flagged := res.flagged(rec)
	if flagged {
		*res.hooks.Flag.Value(rec) = false
	}
	if err := res.repo(tx).Create(ctx, rec); err != nil {
		return 0, err
	}
	id := P(rec).Meta().ID
	if flagged {
		if err := res.promote(ctx, tx, rec); err != nil {
			return 0, err
		}
	}
	return id, nil
}

// Update loads the row, applies the partial update and writes it back.
func (res *Resource[T, P]) Update(ctx context.Context, id int64, apply func(rec *T)) (*T, error) {
	var out *T
	_, err := res.runner.Mutate(ctx, res.entity, changes.ActionUpdate, func(ctx context.Context, tx storage.Gateway) (int64, error) {
		rec, err := res.UpdateTx(ctx, tx, id, apply)
		out = rec
		return id, err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateTx is Update for callers that already hold a transaction.
func (res *Resource[T, P]) UpdateTx(ctx context.Context, tx storage.Gateway, id int64, apply func(rec *T)) (*T, error) {
	repo := res.repo(tx)
	prev, err := repo.Get(ctx, id)
	if err != nil {
		return nil, storage.DomainError(err, res.entity)
	}
	next := new(T)
	*next = *prev
	apply(next)
	P(next).Meta().Touch(requestcontext.Now(ctx))
	if err := validation.Struct(next); err != nil {
		return nil, err
	}
	if res.hooks.Check != nil {
		if err := res.hooks.Check(ctx, tx, next, prev); err != nil {
			return nil, err
		}
	}
	promote := res.flagged(next) && !res.flagged(prev)
	if promote {
		*res.hooks.Flag.Value(next) = false
	}
	if err := repo.Update(ctx, next); err != nil {
		return nil, err
	}
	if promote {
		if err := res.promote(ctx, tx, next); err != nil {
			return nil, err
		}
	}
	return next, nil
}

// Delete removes the row after the BeforeDelete hook and returns what was
// deleted.
func (res *Resource[T, P]) Delete(ctx context.Context, id int64) (*T, error) {
	var deleted *T
	_, err := res.runner.Mutate(ctx, res.entity, changes.ActionDelete, func(ctx context.Context, tx storage.Gateway) (int64, error) {
		repo := res.repo(tx)
		rec, err := repo.Get(ctx, id)
		if err != nil {
			return 0, err
		}
		if res.hooks.BeforeDelete != nil {
			if err := res.hooks.BeforeDelete(ctx, tx, rec); err != nil {
				return 0, err
			}
		}
		if err := repo.Delete(ctx, id); err != nil {
			return 0, err
		}
		deleted = rec
		return id, nil
	})
	if err != nil {
		return nil, err
	}
	return deleted, nil
}

// current is satisfied by records that embed models.Period.
type current interface {
	CurrentAt(d models.Date) bool
}

// SetFlag makes row id the flagged row of its group. Rows that are inactive
// or outside their validity window on the request date are refused.
func (res *Resource[T, P]) SetFlag(ctx context.Context, id int64) (*T, error) {
	if res.hooks.Flag == nil {
		return nil, dErrors.Newf(dErrors.CodeBadRequest, "%s has no primary flag", res.entity)
	}
	var out *T
	_, err := res.runner.Mutate(ctx, res.entity, changes.ActionUpdate, func(ctx context.Context, tx storage.Gateway) (int64, error) {
		rec, err := res.repo(tx).Get(ctx, id)
		if err != nil {
			return 0, err
		}
		today := models.DateOf(requestcontext.Now(ctx))
		if c, ok := any(rec).(current); ok && !c.CurrentAt(today) {
			return 0, dErrors.Newf(dErrors.CodeValidation, "%s %d is not current on %s", res.entity, id, today).
				WithDetails([]validation.FieldError{{Field: "id", Message: "only an active row within its date range can be made primary"}})
		}
		if err := res.promote(ctx, tx, rec); err != nil {
			return 0, err
		}
		out, err = res.repo(tx).Get(ctx, id)
		return id, err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (res *Resource[T, P]) flagged(rec *T) bool {
	return res.hooks.Flag != nil && *res.hooks.Flag.Value(rec)
}

func (res *Resource[T, P]) promote(ctx context.Context, tx storage.Gateway, rec *T) error {
	f := res.hooks.Flag
	if err := invariants.SetUniqueFlag(ctx, f.Owner(tx), res.repo(tx), f.Flag, f.Group(rec), P(rec).Meta().ID); err != nil {
		return err
	}
	*f.Value(rec) = true
	return nil
}
