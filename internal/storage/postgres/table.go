package postgres

import (
	"context"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/jmoiron/sqlx"

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
	name  string
	order []string
}

// table implements storage.Repository[T] with plain SQL over a db or tx handle.
type table[T any, P record[T]] struct {
	q       sqlx.ExtContext
	spec    tableSpec
	cols    []storage.Column
	colSet  map[string]bool
	selects string
	orderBy string
}

func newTable[T any, P record[T]](q sqlx.ExtContext, spec tableSpec) *table[T, P] {
	cols := storage.Columns(reflect.TypeFor[T]())
	names := make([]string, len(cols))
	set := make(map[string]bool, len(cols))
	for i, c := range cols {
		names[i] = c.Name
		set[c.Name] = true
	}
	order := append(append([]string(nil), spec.order...), "id")
	return &table[T, P]{
		q:       q,
		spec:    spec,
		cols:    cols,
		colSet:  set,
		selects: strings.Join(names, ", "),
		orderBy: strings.Join(order, ", "),
	}
}

func (t *table[T, P]) builder() *builder {
	return &builder{cols: t.colSet}
}

func (t *table[T, P]) Get(ctx context.Context, id int64) (*T, error) {
	var row T
	query := "SELECT " + t.selects + " FROM " + t.spec.name + " WHERE id = $1"
	if err := sqlx.GetContext(ctx, t.q, &row, query, id); err != nil {
		return nil, fmt.Errorf("get %s %d: %w", t.spec.name, id, translate(err))
	}
	return &row, nil
}

func (t *table[T, P]) Find(ctx context.Context, conds ...storage.Cond) (*T, error) {
	list, err := t.List(ctx, storage.Query{Conds: conds, Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, fmt.Errorf("find %s: %w", t.spec.name, sentinel.ErrNotFound)
	}
	return list[0], nil
}

func (t *table[T, P]) List(ctx context.Context, q storage.Query) ([]*T, error) {
	b := t.builder()
	where, err := b.where(q.Conds)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", t.spec.name, err)
	}
	query := "SELECT " + t.selects + " FROM " + t.spec.name + where + " ORDER BY " + t.orderBy
	if q.Limit > 0 {
		query += " LIMIT " + b.arg(q.Limit)
	}
	if q.Offset > 0 {
		query += " OFFSET " + b.arg(q.Offset)
	}
	var rows []T
	if err := sqlx.SelectContext(ctx, t.q, &rows, query, b.args...); err != nil {
		return nil, fmt.Errorf("list %s: %w", t.spec.name, translate(err))
	}
	out := make([]*T, len(rows))
	for i := range rows {
		out[i] = &rows[i]
	}
	return out, nil
}

func (t *table[T, P]) Count(ctx context.Context, conds ...storage.Cond) (int, error) {
	b := t.builder()
	where, err := b.where(conds)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", t.spec.name, err)
	}
	var n int
	if err := sqlx.GetContext(ctx, t.q, &n, "SELECT COUNT(*) FROM "+t.spec.name+where, b.args...); err != nil {
		return 0, fmt.Errorf("count %s: %w", t.spec.name, translate(err))
	}
	return n, nil
}

func (t *table[T, P]) Create(ctx context.Context, rec *T) error {
	v := reflect.ValueOf(rec).Elem()
	names := make([]string, 0, len(t.cols))
	placeholders := make([]string, 0, len(t.cols))
	args := make([]any, 0, len(t.cols))
	for _, c := range t.cols {
		if c.Name == "id" {
			continue
		}
		names = append(names, c.Name)
		args = append(args, v.FieldByIndex(c.Index).Interface())
		placeholders = append(placeholders, "$"+strconv.Itoa(len(args)))
	}
	query := "INSERT INTO " + t.spec.name + " (" + strings.Join(names, ", ") + ") VALUES (" +
		strings.Join(placeholders, ", ") + ") RETURNING id"
	var id int64
	if err := t.q.QueryRowxContext(ctx, query, args...).Scan(&id); err != nil {
		return fmt.Errorf("insert %s: %w", t.spec.name, translate(err))
	}
	P(rec).Meta().ID = id
	return nil
}

func (t *table[T, P]) Update(ctx context.Context, rec *T) error {
	v := reflect.ValueOf(rec).Elem()
	sets := make([]string, 0, len(t.cols))
	args := make([]any, 0, len(t.cols)+1)
	for _, c := range t.cols {
		if c.Name == "id" || c.Name == "created_at" {
			continue
		}
		args = append(args, v.FieldByIndex(c.Index).Interface())
		sets = append(sets, c.Name+" = $"+strconv.Itoa(len(args)))
	}
	id := P(rec).Meta().ID
	args = append(args, id)
	query := "UPDATE " + t.spec.name + " SET " + strings.Join(sets, ", ") + " WHERE id = $" + strconv.Itoa(len(args))
	res, err := t.q.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update %s %d: %w", t.spec.name, id, translate(err))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("update %s %d: %w", t.spec.name, id, sentinel.ErrNotFound)
	}
	return nil
}

func (t *table[T, P]) Delete(ctx context.Context, id int64) error {
	res, err := t.q.ExecContext(ctx, "DELETE FROM "+t.spec.name+" WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete %s %d: %w", t.spec.name, id, translate(err))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("delete %s %d: %w", t.spec.name, id, sentinel.ErrNotFound)
	}
	return nil
}

func (t *table[T, P]) DeleteWhere(ctx context.Context, conds ...storage.Cond) (int, error) {
	b := t.builder()
	where, err := b.where(conds)
	if err != nil {
		return 0, fmt.Errorf("delete %s: %w", t.spec.name, err)
	}
	res, err := t.q.ExecContext(ctx, "DELETE FROM "+t.spec.name+where, b.args...)
	if err != nil {
		return 0, fmt.Errorf("delete %s: %w", t.spec.name, translate(err))
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func (t *table[T, P]) SetWhere(ctx context.Context, field string, value any, conds ...storage.Cond) (int, error) {
	b := t.builder()
	col, err := b.column(field)
	if err != nil {
		return 0, fmt.Errorf("update %s: %w", t.spec.name, err)
	}
	set := "UPDATE " + t.spec.name + " SET " + col + " = " + b.arg(value) +
		", updated_at = " + b.arg(requestcontext.Now(ctx).UTC())
	where, err := b.where(conds)
	if err != nil {
		return 0, fmt.Errorf("update %s: %w", t.spec.name, err)
	}
	res, err := t.q.ExecContext(ctx, set+where, b.args...)
	if err != nil {
		return 0, fmt.Errorf("update %s.%s: %w", t.spec.name, field, translate(err))
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func (t *table[T, P]) Lock(ctx context.Context, id int64) error {
	var locked int64
	query := "SELECT id FROM " + t.spec.name + " WHERE id = $1 FOR UPDATE"
	if err := sqlx.GetContext(ctx, t.q, &locked, query, id); err != nil {
		return fmt.Errorf("lock %s %d: %w", t.spec.name, id, translate(err))
	}
	return nil
}
