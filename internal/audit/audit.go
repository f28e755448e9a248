// Package audit defines the append-only activity trail attached to
// registrations and donations. Trail rows are only ever inserted, and only
// removed when their owning entity is deleted.
package audit

import "time"

// Entry is one trail record. EntityID references the owning registration or
// donation row; the two trails live in parallel tables but share this shape.
type Entry struct {
	ID        int64
	EntityID  int64
	Action    string
	Details   string
	CreatedAt time.Time
}

// Recognized trail actions. The action column is free text; these are the
// values this codebase writes.
const (
	ActionRegistration = "registration"
	ActionCreated      = "created"
	ActionStatusUpdate = "status_update"
)
