// Package registration holds the registration entity and its status
// vocabulary.
package registration

import "time"

// Status values are an open string enum: these are the recognized core
// states, but intake sources may introduce their own labels (the beta
// landing page submits "pending_beta" as its flavor of new) and downstream
// consumers must tolerate them. The usual flow is
// new -> contacted -> converted | discarded.
const (
	StatusNew       = "new"
	StatusContacted = "contacted"
	StatusConverted = "converted"
	StatusDiscarded = "discarded"
)

// DefaultSource tags submissions that arrive without an origin.
const DefaultSource = "website"

// DefaultLeadScore is assigned at intake; scoring proper happens elsewhere.
const DefaultLeadScore = 75

// Registration is one signup submission and its lifecycle state.
type Registration struct {
	ID            int64
	Name          string
	Email         string
	Phone         string
	Newsletter    bool
	Source        string
	Status        string
	Notes         string
	CreatedAt     time.Time
	UpdatedAt     time.Time
	IPAddress     string
	UserAgent     string
	AttemptCount  int
	LeadScore     int
	LastContacted *time.Time
}
