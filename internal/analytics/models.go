// Package analytics holds the best-effort event ingest model.
package analytics

import "time"

// Event is one client-side interaction report. Label and Value are optional.
type Event struct {
	ID        int64
	SessionID string
	Category  string
	Action    string
	Label     *string
	Value     *int64
	URL       string
	IPAddress string
	CreatedAt time.Time
}
