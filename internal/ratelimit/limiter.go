package ratelimit

import (
	"context"
	"time"
)

type Result struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

// Limiter counts requests per key over a sliding window.
type Limiter interface {
	CheckLimit(ctx context.Context, key string, limit int, window time.Duration) Result
}
