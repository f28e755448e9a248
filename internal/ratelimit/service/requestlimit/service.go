// Package requestlimit throttles public submission traffic per client IP.
package requestlimit

import (
	"context"
	"log/slog"
	"time"

	"gmarup/internal/ratelimit/models"
)

// BucketStore is the counting backend. Memory and Redis implementations live
// in the bucket package.
type BucketStore interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (*models.Result, error)
	Reset(ctx context.Context, key string) error
}

// Service applies one limit/window pair to every checked IP.
type Service struct {
	buckets BucketStore
	logger  *slog.Logger
	limit   int
	window  time.Duration
}

// New constructs the request limit service.
func New(buckets BucketStore, logger *slog.Logger, limit int, window time.Duration) *Service {
	return &Service{buckets: buckets, logger: logger, limit: limit, window: window}
}

// CheckIP decides whether a request from ip may proceed. A store failure
// fails open: throttling protects the service, it must never take it down.
func (s *Service) CheckIP(ctx context.Context, ip string) *models.Result {
	result, err := s.buckets.Allow(ctx, "ip:"+ip, s.limit, s.window)
	if err != nil {
		s.logger.WarnContext(ctx, "rate limit check failed, allowing request", "ip", ip, "error", err)
		return &models.Result{Allowed: true, Remaining: s.limit, ResetAt: time.Now().Add(s.window), Limit: s.limit}
	}
	return result
}
