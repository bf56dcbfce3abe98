package memory

import (
	"cmp"
	"fmt"
	"reflect"
	"strings"
	"time"

	"orgstructure/internal/models"
	"orgstructure/internal/storage"
)

var (
	dateType = reflect.TypeOf(models.Date{})
	timeType = reflect.TypeOf(time.Time{})
)

// normalize reduces a field or predicate value to a comparable scalar:
// int64, string, bool, time.Time, or nil for NULL.
func normalize(v reflect.Value) any {
	for v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return nil
		}
		v = v.Elem()
	}
	switch {
	case v.Type() == dateType:
		return v.Interface().(models.Date).Time
	case v.Type() == timeType:
		return v.Interface().(time.Time)
	}
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int()
	case reflect.String:
		return v.String()
	case reflect.Bool:
		return v.Bool()
	default:
		return v.Interface()
	}
}

func normalizeAny(x any) any {
	if x == nil {
		return nil
	}
	return normalize(reflect.ValueOf(x))
}

func equal(a, b any) bool {
	if ta, ok := a.(time.Time); ok {
		tb, ok := b.(time.Time)
		return ok && ta.Equal(tb)
	}
	return a == b
}

// compare orders normalized values; NULL sorts first.
func compare(a, b any) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	switch av := a.(type) {
	case int64:
		return cmp.Compare(av, b.(int64))
	case string:
		return strings.Compare(av, b.(string))
	case bool:
		bv := b.(bool)
		switch {
		case av == bv:
			return 0
		case !av:
			return -1
		default:
			return 1
		}
	case time.Time:
		return av.Compare(b.(time.Time))
	default:
		return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
	}
}

// assign sets field to value, converting scalars and allocating pointers.
func assign(field reflect.Value, value any) error {
	if value == nil {
		field.SetZero()
		return nil
	}
	rv := reflect.ValueOf(value)
	ft := field.Type()
	if rv.Type().AssignableTo(ft) {
		field.Set(rv)
		return nil
	}
	if ft.Kind() == reflect.Pointer {
		if rv.Kind() == reflect.Pointer {
			if rv.IsNil() {
				field.SetZero()
				return nil
			}
			rv = rv.Elem()
		}
		if !rv.Type().ConvertibleTo(ft.Elem()) {
			return fmt.Errorf("cannot assign %T to %s", value, ft)
		}
		ptr := reflect.New(ft.Elem())
		ptr.Elem().Set(rv.Convert(ft.Elem()))
		field.Set(ptr)
		return nil
	}
	if !rv.Type().ConvertibleTo(ft) {
		return fmt.Errorf("cannot assign %T to %s", value, ft)
	}
	field.Set(rv.Convert(ft))
	return nil
}

type matcher struct {
	index map[string][]int
}

func (m matcher) field(v reflect.Value, name string) reflect.Value {
	idx, ok := m.index[name]
	if !ok {
		panic(fmt.Sprintf("memory: unknown column %q", name))
	}
	return v.FieldByIndex(idx)
}

func (m matcher) value(v reflect.Value, name string) any {
	return normalize(m.field(v, name))
}

func (m matcher) match(v reflect.Value, conds []storage.Cond) bool {
	for _, c := range conds {
		if !m.matchOne(v, c) {
			return false
		}
	}
	return true
}

func (m matcher) matchOne(v reflect.Value, c storage.Cond) bool {
	switch c := c.(type) {
	case storage.Eq:
		return equal(m.value(v, c.Field), normalizeAny(c.Value))
	case storage.NotEq:
		return !equal(m.value(v, c.Field), normalizeAny(c.Value))
	case storage.In:
		got, ok := m.value(v, c.Field).(int64)
		if !ok {
			return false
		}
		for _, want := range c.Values {
			if got == want {
				return true
			}
		}
		return false
	case storage.ActiveOn:
		if !c.IncludeInactive && m.value(v, "is_active") != true {
			return false
		}
		day := models.DateOf(c.Date).Time
		start, _ := m.value(v, "start_date").(time.Time)
		if day.Before(start) {
			return false
		}
		end, ok := m.value(v, "end_date").(time.Time)
		return !ok || !end.Before(day)
	case storage.Search:
		term := strings.ToLower(strings.TrimSpace(c.Term))
		for _, f := range c.Fields {
			if s, ok := m.value(v, f).(string); ok && strings.Contains(strings.ToLower(s), term) {
				return true
			}
		}
		return false
	default:
		panic(fmt.Sprintf("memory: unsupported condition %T", c))
	}
}
