package memory

import (
	"context"
	"fmt"
	"reflect"
	"slices"

	"orgstructure/internal/models"
	"orgstructure/internal/storage"
	"orgstructure/pkg/platform/sentinel"
	"orgstructure/pkg/requestcontext"
)

type record[T any] interface {
	*T
	Meta() *models.Base
}

type tableSpec struct {
	name    string
	order   []string
	uniques [][]string
}

// rows is the shared state of one table. Every access happens under the
// owning DB's lock.
type rows[T any] struct {
	byID map[int64]T
	seq  int64
}

func newRows[T any]() *rows[T] {
	return &rows[T]{byID: make(map[int64]T)}
}

func (r *rows[T]) snapshot() func() {
	saved := make(map[int64]T, len(r.byID))
	for k, v := range r.byID {
		saved[k] = v
	}
	seq := r.seq
	return func() {
		r.byID = saved
		r.seq = seq
	}
}

// table is a Repository view over rows. A view created for a transaction
// skips locking because RunInTx already holds the write lock.
type table[T any, P record[T]] struct {
	db   *DB
	rows *rows[T]
	spec tableSpec
	m    matcher
	inTx bool
}

func newTable[T any, P record[T]](db *DB, r *rows[T], spec tableSpec, inTx bool) *table[T, P] {
	return &table[T, P]{
		db:   db,
		rows: r,
		spec: spec,
		m:    matcher{index: storage.ColumnIndex(reflect.TypeFor[T]())},
		inTx: inTx,
	}
}

func (t *table[T, P]) rlock() func() {
	if t.inTx {
		return func() {}
	}
	t.db.mu.RLock()
	return t.db.mu.RUnlock
}

func (t *table[T, P]) lock() func() {
	if t.inTx {
		return func() {}
	}
	t.db.mu.Lock()
	return t.db.mu.Unlock
}

func (t *table[T, P]) notFound(id int64) error {
	return fmt.Errorf("%s %d: %w", t.spec.name, id, sentinel.ErrNotFound)
}

func (t *table[T, P]) Get(ctx context.Context, id int64) (*T, error) {
	defer t.rlock()()
	row, ok := t.rows.byID[id]
	if !ok {
		return nil, t.notFound(id)
	}
	return &row, nil
}

func (t *table[T, P]) Find(ctx context.Context, conds ...storage.Cond) (*T, error) {
	list, err := t.List(ctx, storage.Query{Conds: conds, Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, fmt.Errorf("%s: %w", t.spec.name, sentinel.ErrNotFound)
	}
	return list[0], nil
}

func (t *table[T, P]) List(ctx context.Context, q storage.Query) ([]*T, error) {
	defer t.rlock()()
	matched := t.filter(q.Conds)
	t.sort(matched)
	if q.Offset > 0 {
		if q.Offset >= len(matched) {
			return []*T{}, nil
		}
		matched = matched[q.Offset:]
	}
	if q.Limit > 0 && len(matched) > q.Limit {
		matched = matched[:q.Limit]
	}
	out := make([]*T, len(matched))
	for i := range matched {
		row := matched[i]
		out[i] = &row
	}
	return out, nil
}

func (t *table[T, P]) Count(ctx context.Context, conds ...storage.Cond) (int, error) {
	defer t.rlock()()
	return len(t.filter(conds)), nil
}

func (t *table[T, P]) Create(ctx context.Context, rec *T) error {
	defer t.lock()()
	if err := t.checkUnique(rec, 0); err != nil {
		return err
	}
	t.rows.seq++
	P(rec).Meta().ID = t.rows.seq
	t.rows.byID[t.rows.seq] = *rec
	return nil
}

func (t *table[T, P]) Update(ctx context.Context, rec *T) error {
	defer t.lock()()
	id := P(rec).Meta().ID
	if _, ok := t.rows.byID[id]; !ok {
		return t.notFound(id)
	}
	if err := t.checkUnique(rec, id); err != nil {
		return err
	}
	t.rows.byID[id] = *rec
	return nil
}

func (t *table[T, P]) Delete(ctx context.Context, id int64) error {
	defer t.lock()()
	if _, ok := t.rows.byID[id]; !ok {
		return t.notFound(id)
	}
	delete(t.rows.byID, id)
	return nil
}

func (t *table[T, P]) DeleteWhere(ctx context.Context, conds ...storage.Cond) (int, error) {
	defer t.lock()()
	n := 0
	for id, row := range t.rows.byID {
		if t.m.match(reflect.ValueOf(row), conds) {
			delete(t.rows.byID, id)
			n++
		}
	}
	return n, nil
}

func (t *table[T, P]) SetWhere(ctx context.Context, field string, value any, conds ...storage.Cond) (int, error) {
	defer t.lock()()
	now := requestcontext.Now(ctx)
	n := 0
	for id, row := range t.rows.byID {
		if !t.m.match(reflect.ValueOf(row), conds) {
			continue
		}
		if err := assign(t.m.field(reflect.ValueOf(&row).Elem(), field), value); err != nil {
			return n, fmt.Errorf("%s.%s: %w", t.spec.name, field, err)
		}
		P(&row).Meta().Touch(now)
		t.rows.byID[id] = row
		n++
	}
	return n, nil
}

func (t *table[T, P]) Lock(ctx context.Context, id int64) error {
	defer t.rlock()()
	if _, ok := t.rows.byID[id]; !ok {
		return t.notFound(id)
	}
	return nil
}

func (t *table[T, P]) filter(conds []storage.Cond) []T {
	out := make([]T, 0)
	for _, row := range t.rows.byID {
		if t.m.match(reflect.ValueOf(row), conds) {
			out = append(out, row)
		}
	}
	return out
}

func (t *table[T, P]) sort(list []T) {
	slices.SortFunc(list, func(a, b T) int {
		va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
		for _, f := range t.spec.order {
			if c := compare(t.m.value(va, f), t.m.value(vb, f)); c != 0 {
				return c
			}
		}
		return compare(P(&a).Meta().ID, P(&b).Meta().ID)
	})
}

// checkUnique mirrors the unique indexes of the relational schema. NULL
// values never collide.
func (t *table[T, P]) checkUnique(rec *T, selfID int64) error {
	v := reflect.ValueOf(*rec)
	for _, key := range t.spec.uniques {
		want := make([]any, len(key))
		hasNull := false
		for i, f := range key {
			want[i] = t.m.value(v, f)
			hasNull = hasNull || want[i] == nil
		}
		if hasNull {
			continue
		}
		for id, row := range t.rows.byID {
			if id == selfID {
				continue
			}
			rv := reflect.ValueOf(row)
			same := true
			for i, f := range key {
				if !equal(t.m.value(rv, f), want[i]) {
					same = false
					break
				}
			}
			if same {
				return fmt.Errorf("%s %v: %w", t.spec.name, key, sentinel.ErrAlreadyUsed)
			}
		}
	}
	return nil
}
