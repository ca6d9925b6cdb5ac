// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil provides HTTP helpers shared across stages.
package httputil

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// DefaultRetryAfter is the wait used when a 429 response carries no usable
// Retry-After header.
const DefaultRetryAfter = 10 * time.Second

// MaxRetryAfter caps the wait taken from a Retry-After header.
const MaxRetryAfter = 5 * time.Minute

// ErrRateLimited is returned when the provider still answers 429 after the
// single retry.
var ErrRateLimited = errors.New("rate limited")

// SleepFunc waits for d or until ctx is done. Tests substitute a recorder
// so no real time passes.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Sleep is the production SleepFunc.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// RetryOptions tunes DoRetryOnce. The zero value uses Sleep and DefaultRetryAfter.
type RetryOptions struct {
	Sleep SleepFunc

	// DefaultWait replaces DefaultRetryAfter when positive.
	DefaultWait time.Duration

	// OnRateLimited is called with the chosen wait before sleeping.
	OnRateLimited func(wait time.Duration)

	// Now is the clock used to resolve HTTP-date Retry-After values.
	Now func() time.Time
}

// DoRetryOnce executes req and, on HTTP 429, waits for the duration named by
// the Retry-After header and retries exactly once.
//
// Transport errors are returned as-is without a retry. Any non-429 response
// is handed back to the caller, who owns the body. A second 429 drains and
// closes the body and returns an error wrapping ErrRateLimited.
func DoRetryOnce(ctx context.Context, client *http.Client, req *http.Request, opts RetryOptions) (*http.Response, error) {
	sleep := opts.Sleep
	if sleep == nil {
		sleep = Sleep
	}
	fallback := opts.DefaultWait
	if fallback <= 0 {
		fallback = DefaultRetryAfter
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	for attempt := 0; ; attempt++ {
		resp, err := client.Do(req.Clone(ctx))
		if err != nil {
			return nil, err
		}

		if resp.StatusCode != http.StatusTooManyRequests {
			return resp, nil
		}

		wait := RetryAfter(resp.Header.Get("Retry-After"), fallback, now())
		drain(resp)

		if attempt >= 1 {
			return nil, fmt.Errorf("retry after %v: %w", wait, ErrRateLimited)
		}

		if opts.OnRateLimited != nil {
			opts.OnRateLimited(wait)
		}
		if err := sleep(ctx, wait); err != nil {
			return nil, err
		}
	}
}

// RetryAfter parses a Retry-After header value. It accepts a non-negative
// finite number of seconds (fractions allowed) or an HTTP date. Anything
// else, including an empty value, yields fallback. The result never exceeds
// MaxRetryAfter.
func RetryAfter(value string, fallback time.Duration, now time.Time) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback
	}

	if secs, err := strconv.ParseFloat(value, 64); err == nil {
		if math.IsNaN(secs) || math.IsInf(secs, 0) || secs < 0 {
			return fallback
		}
		if secs >= MaxRetryAfter.Seconds() {
			return MaxRetryAfter
		}
		return time.Duration(secs * float64(time.Second))
	}

	if t, err := http.ParseTime(value); err == nil {
		return min(max(t.Sub(now), 0), MaxRetryAfter)
	}

	return fallback
}

// drain discards and closes the response body so the connection can be reused.
func drain(resp *http.Response) {
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}
