package storage

import "time"

// Cond is a typed predicate understood by every gateway implementation.
// Field names are database column names.
type Cond interface {
	cond()
}

// Eq matches field = Value; a nil Value matches NULL.
type Eq struct {
	Field string
	Value any
}

// NotEq matches field <> Value; a nil Value matches NOT NULL.
type NotEq struct {
	Field string
	Value any
}

// In matches field among Values. An empty list matches nothing.
type In struct {
	Field  string
	Values []int64
}

// ActiveOn matches rows whose start_date/end_date window contains Date.
// Unless IncludeInactive is set the row must also be active.
type ActiveOn struct {
	Date            time.Time
	IncludeInactive bool
}

// Search is a case-insensitive substring match over any of Fields.
type Search struct {
	Fields []string
	Term   string
}

func (Eq) cond()       {}
func (NotEq) cond()    {}
func (In) cond()       {}
func (ActiveOn) cond() {}
func (Search) cond()   {}

// Query is a filtered, paginated list request. Limit 0 means no limit.
type Query struct {
	Conds  []Cond
	Offset int
	Limit  int
}

// Where builds an unpaginated Query.
func Where(conds ...Cond) Query {
	return Query{Conds: conds}
}

// Active matches is_active = true.
func Active() Cond {
	return Eq{Field: "is_active", Value: true}
}
