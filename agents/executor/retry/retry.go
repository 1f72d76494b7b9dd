/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package retry repeats model provider calls that fail with a transient
// error. Repository and ticket calls are never retried here; their failures
// reach the agent as denials.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/chainguard-dev/clog"
)

// Policy controls how a failed model call is repeated.
type Policy struct {
	// Retries is how many times a call is repeated after its first failure.
	// Zero disables repeats.
	Retries int
	// Initial is the wait before the first repeat. Each later wait doubles.
	Initial time.Duration
	// Ceiling caps a single wait, before jitter.
	Ceiling time.Duration
	// Jitter bounds the random delay added to every wait.
	Jitter time.Duration
}

// DefaultPolicy suits provider quota errors, which take seconds to clear.
func DefaultPolicy() Policy {
	return Policy{
		Retries: 5,
		Initial: time.Second,
		Ceiling: time.Minute,
		Jitter:  500 * time.Millisecond,
	}
}

// Validate rejects negative fields.
func (p Policy) Validate() error {
	var errs []error
	if p.Retries < 0 {
		errs = append(errs, errors.New("retries cannot be negative"))
	}
	if p.Initial < 0 || p.Ceiling < 0 || p.Jitter < 0 {
		errs = append(errs, errors.New("backoff durations cannot be negative"))
	}
	return errors.Join(errs...)
}

// Backoff is the wait before repeat n, counting from zero, without jitter.
func (p Policy) Backoff(n int) time.Duration {
	d := p.Initial
	for i := 0; i < n && d < p.Ceiling; i++ {
		d *= 2
	}
	return min(d, p.Ceiling)
}

func (p Policy) jitter() time.Duration {
	if p.Jitter <= 0 {
		return 0
	}
	return rand.N(p.Jitter)
}

// Transient reports whether a provider HTTP status is worth repeating the
// call for. 529 is Anthropic's overloaded status.
func Transient(status int) bool {
	switch status {
	case http.StatusRequestTimeout, http.StatusTooManyRequests,
		http.StatusInternalServerError, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout, 529:
		return true
	}
	return false
}

// Do runs fn, repeating it under p while transient reports its error as
// transient. call names the model call in logs and in the final error.
func Do[T any](ctx context.Context, p Policy, call string, transient func(error) bool, fn func() (T, error)) (T, error) {
	log := clog.FromContext(ctx).With("call", call)
	for n := 0; ; n++ {
		out, err := fn()
		switch {
		case err == nil:
			return out, nil
		case !transient(err):
			return out, err
		case n >= p.Retries:
			return out, fmt.Errorf("model call %s gave up after %d attempts: %w", call, n+1, err)
		}

		wait := p.Backoff(n) + p.jitter()
		log.With("attempt", n+1, "retries", p.Retries, "wait", wait, "error", err.Error()).
			Warn("Model provider busy, waiting before repeating call")

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return out, ctx.Err()
		case <-timer.C:
		}
	}
}
