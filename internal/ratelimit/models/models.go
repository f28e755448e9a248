// Package models defines the rate limit decision type shared by the bucket
// stores, the request limit service, and the HTTP middleware.
package models

import "time"

// Result is one rate limit decision.
type Result struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
	Limit     int
}
