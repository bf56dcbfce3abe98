// Package models holds the persisted records of the organizational structure,
// their enumerations and the create/update payloads that produce them.
package models

import (
	"time"
)

// Base carries the identity and server-set timestamps every record has.
type Base struct {
	ID        int64     `db:"id" json:"id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Meta exposes the embedded Base to generic storage code.
func (b *Base) Meta() *Base { return b }

// Stamp sets both timestamps for a new record.
func (b *Base) Stamp(now time.Time) {
	now = now.UTC()
	b.CreatedAt = now
	b.UpdatedAt = now
}

// Touch refreshes UpdatedAt.
func (b *Base) Touch(now time.Time) {
	b.UpdatedAt = now.UTC()
}

// Period is the activity flag and validity window shared by relation records.
//
// Invariants:
//   - EndDate, when set, is not before StartDate
type Period struct {
	IsActive  bool  `db:"is_active" json:"is_active"`
	StartDate Date  `db:"start_date" json:"start_date"`
	EndDate   *Date `db:"end_date" json:"end_date"`
}

// CurrentAt reports whether the window contains d and the row is active.
func (p Period) CurrentAt(d Date) bool {
	if !p.IsActive {
		return false
	}
	return p.Covers(d)
}

// Covers reports whether d falls in [StartDate, EndDate], ignoring IsActive.
func (p Period) Covers(d Date) bool {
	if d.Before(p.StartDate) {
		return false
	}
	return p.EndDate == nil || !p.EndDate.Before(d)
}
