package domain

import (
	"context"
	"errors"
	"time"
)

var ErrRateLimited = errors.New("rate_limited")

// Decision is the outcome of one request against a fixed one-minute window.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

type Service interface {
	// Allow counts a request for key. Disabled limiting always allows.
	Allow(ctx context.Context, key string) (Decision, error)
}
