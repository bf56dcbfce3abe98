package postgres

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/lib/pq"

	"orgstructure/internal/models"
	"orgstructure/internal/storage"
)

// builder accumulates positional arguments while rendering SQL fragments.
type builder struct {
	cols map[string]bool
	args []any
}

func (b *builder) arg(v any) string {
	b.args = append(b.args, v)
	return "$" + strconv.Itoa(len(b.args))
}

func (b *builder) column(name string) (string, error) {
	if !b.cols[name] {
		return "", fmt.Errorf("unknown column %q", name)
	}
	return name, nil
}

// where renders conds joined by AND, or "" when there are none.
func (b *builder) where(conds []storage.Cond) (string, error) {
	if len(conds) == 0 {
		return "", nil
	}
	parts := make([]string, 0, len(conds))
	for _, c := range conds {
		frag, err := b.cond(c)
		if err != nil {
			return "", err
		}
		parts = append(parts, frag)
	}
	return " WHERE " + strings.Join(parts, " AND "), nil
}

func (b *builder) cond(c storage.Cond) (string, error) {
	switch c := c.(type) {
	case storage.Eq:
		col, err := b.column(c.Field)
		if err != nil {
			return "", err
		}
		if c.Value == nil {
			return col + " IS NULL", nil
		}
		return col + " = " + b.arg(c.Value), nil
	case storage.NotEq:
		col, err := b.column(c.Field)
		if err != nil {
			return "", err
		}
		if c.Value == nil {
			return col + " IS NOT NULL", nil
		}
		return "(" + col + " IS NULL OR " + col + " <> " + b.arg(c.Value) + ")", nil
	case storage.In:
		col, err := b.column(c.Field)
		if err != nil {
			return "", err
		}
		if len(c.Values) == 0 {
			return "FALSE", nil
		}
		return col + " = ANY(" + b.arg(pq.Array(c.Values)) + ")", nil
	case storage.ActiveOn:
		day := b.arg(models.DateOf(c.Date))
		frag := "start_date <= " + day + " AND (end_date IS NULL OR end_date >= " + day + ")"
		if !c.IncludeInactive {
			frag = "is_active AND " + frag
		}
		return "(" + frag + ")", nil
	case storage.Search:
		pattern := b.arg("%" + escapeLike(strings.TrimSpace(c.Term)) + "%")
		ors := make([]string, 0, len(c.Fields))
		for _, f := range c.Fields {
			col, err := b.column(f)
			if err != nil {
				return "", err
			}
			ors = append(ors, col+" ILIKE "+pattern)
		}
		return "(" + strings.Join(ors, " OR ") + ")", nil
	default:
		return "", fmt.Errorf("unsupported condition %T", c)
	}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
