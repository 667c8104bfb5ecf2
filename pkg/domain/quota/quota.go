package quota

import (
	"errors"
	"fmt"
	"time"
)

var ErrInvalidConfig = errors.New("invalid quota config")

// Config describes one tracked resource. It is immutable once a tracker is built.
type Config struct {
	Key    string
	Limit  int
	Window time.Duration
}

func (c Config) Validate() error {
	if c.Key == "" {
		return fmt.Errorf("%w: key is required", ErrInvalidConfig)
	}
	if c.Limit <= 0 {
		return fmt.Errorf("%w: limit must be greater than zero", ErrInvalidConfig)
	}
	if c.Window <= 0 {
		return fmt.Errorf("%w: window must be greater than zero", ErrInvalidConfig)
	}
	return nil
}

// SubjectKey is the storage key for a client of this resource.
func (c Config) SubjectKey(client string) string {
	if client == "" {
		return c.Key
	}
	return c.Key + ":" + client
}

// State is the persisted counter. Count may exceed the limit; allowance is
// decided at check time.
type State struct {
	Count   int   `json:"count"`
	ResetAt int64 `json:"resetAt"`
}

func (s State) ResetTime() time.Time {
	return time.UnixMilli(s.ResetAt)
}

// Expired reports whether the window has ended. The boundary instant itself is
// still inside the window.
func (s State) Expired(now time.Time) bool {
	return now.UnixMilli() > s.ResetAt
}

type Status struct {
	Remaining int
	ResetAt   time.Time
}

type Decision struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

// RetryAfter is the time left until the window resets, never negative.
func (d Decision) RetryAfter(now time.Time) time.Duration {
	if wait := d.ResetAt.Sub(now); wait > 0 {
		return wait
	}
	return 0
}
