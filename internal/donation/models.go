// Package donation holds the donation entity, its status vocabulary, and
// the public identifier generator.
package donation

import (
	"encoding/hex"
	"time"

	"github.com/google/uuid"
)

// Status values follow pending -> completed | cancelled. Like registration
// statuses this is an open string enum; these are the recognized states.
const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

// DefaultSource tags pledges that arrive without an origin.
const DefaultSource = "website"

// DefaultPaymentMethod is the provider the site collects through.
const DefaultPaymentMethod = "bit"

// DefaultDonorName labels pledges submitted without a name.
const DefaultDonorName = "תורם אנונימי"

// Donation is one pledged contribution. PublicID is the shareable
// identifier; the numeric ID never leaves the store layer.
type Donation struct {
	ID            int64
	PublicID      string
	Amount        float64
	DonorName     string
	DonorEmail    string
	DonorPhone    string
	Message       string
	IsAnonymous   bool
	Source        string
	Status        string
	PaymentMethod string
	TransactionID *string
	CreatedAt     time.Time
	CompletedAt   *time.Time
	IPAddress     string
	UserAgent     string
}

// publicIDPrefix starts every public donation identifier.
const publicIDPrefix = "DON_"

// NewPublicID builds a shareable donation identifier: prefix, creation time
// at second granularity, and a random hex suffix. extra widens the suffix on
// collision retries so two donations in the same second still differ.
func NewPublicID(t time.Time, extra int) string {
	n := 6 + 2*extra
	if n > 32 {
		n = 32
	}
	raw := uuid.New()
	suffix := hex.EncodeToString(raw[:])[:n]
	return publicIDPrefix + t.Format("20060102_150405") + "_" + suffix
}
