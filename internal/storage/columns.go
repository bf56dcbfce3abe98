package storage

import (
	"reflect"
	"sync"
)

// Column is a db-tagged field of a record type, possibly promoted from an
// embedded struct.
type Column struct {
	Name  string
	Index []int
}

var columnCache sync.Map // reflect.Type -> []Column

// Columns lists the db columns of struct type t in declaration order,
// flattening untagged embedded structs.
func Columns(t reflect.Type) []Column {
	if cached, ok := columnCache.Load(t); ok {
		return cached.([]Column)
	}
	cols := collect(t, nil)
	columnCache.Store(t, cols)
	return cols
}

func collect(t reflect.Type, prefix []int) []Column {
	var cols []Column
	for i := range t.NumField() {
		f := t.Field(i)
		idx := append(append([]int(nil), prefix...), i)
		tag := f.Tag.Get("db")
		if tag == "-" {
			continue
		}
		if tag == "" {
			if f.Anonymous && f.Type.Kind() == reflect.Struct {
				cols = append(cols, collect(f.Type, idx)...)
			}
			continue
		}
		cols = append(cols, Column{Name: tag, Index: idx})
	}
	return cols
}

// ColumnIndex maps column name to field index for t.
func ColumnIndex(t reflect.Type) map[string][]int {
	out := make(map[string][]int)
	for _, c := range Columns(t) {
		out[c.Name] = c.Index
	}
	return out
}
