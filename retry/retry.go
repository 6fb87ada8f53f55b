// Package retry reruns failed HTTP operations that look transient.
//
// A [Handler] classifies an error by walking its cause chain and matching
// each cause against configured HTTP status codes, sentinel errors, message
// substrings, and an optional predicate. Retryable failures are retried with
// exponential backoff; everything else surfaces immediately.
package retry

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/htsio/go-httpvfs/internal/causes"
)

// Handler drives a bounded retry loop around I/O operations against a single
// URL. It is safe for use by a single goroutine at a time, which matches the
// serialization of the channel that owns it.
type Handler struct {
	settings Settings
	u        *url.URL
	logger   *slog.Logger
}

// New returns a Handler for operations against u. The URL is only used in
// log lines and error messages.
func New(settings Settings, u *url.URL) (*Handler, error) {
	if settings.MaxRetries < 0 {
		return nil, fmt.Errorf("retry: max retries must be >= 0, was %d", settings.MaxRetries)
	}

	if u == nil {
		return nil, fmt.Errorf("retry: nil URL")
	}

	return &Handler{settings: settings, u: u, logger: slog.Default()}, nil
}

// MaxRetries returns the maximum number of retries before giving up.
func (h *Handler) MaxRetries() int {
	return h.settings.MaxRetries
}

// statusCoder is implemented by errors that carry an HTTP status code.
type statusCoder interface {
	StatusCode() int
}

// IsRetryable reports whether err looks like a transient failure. Every
// cause in the chain (bounded by [causes.MaxDepth]) is checked in turn:
// an HTTP status error with a configured code, a configured sentinel error,
// a configured message substring, or a positive answer from the predicate
// makes the whole failure retryable. A context cancellation or deadline
// anywhere in the chain makes it non-retryable.
func (h *Handler) IsRetryable(err error) bool {
	if causes.Any(err, func(cause error) bool {
		return cause == context.Canceled || cause == context.DeadlineExceeded
	}) {
		return false
	}

	return causes.Any(err, func(cause error) bool {
		if sc, ok := cause.(statusCoder); ok {
			if slices.Contains(h.settings.RetryableStatusCodes, sc.StatusCode()) {
				return true
			}
		}

		for _, target := range h.settings.RetryableErrors {
			if cause == target || equalsSentinel(cause, target) {
				return true
			}
		}

		msg := cause.Error()
		for _, substr := range h.settings.RetryableMessages {
			if strings.Contains(msg, substr) {
				return true
			}
		}

		return h.settings.RetryPredicate != nil && h.settings.RetryPredicate(cause)
	})
}

// equalsSentinel matches a single cause against a sentinel without walking
// the chain again - the caller already iterates over every cause.
func equalsSentinel(cause, target error) bool {
	type iser interface{ Is(error) bool }

	if is, ok := cause.(iser); ok && is.Is(target) {
		return true
	}

	if is, ok := target.(iser); ok && is.Is(cause) {
		return true
	}

	return false
}

// RunWithRetries invokes fn up to MaxRetries+1 times. A retryable failure is
// logged and retried after a backoff sleep; a non-retryable failure is
// returned as-is. When the budget is exhausted the result is an
// [*OutOfRetriesError] carrying the last failure.
//
// fn may run repeatedly, so any state it mutates on an unsuccessful attempt
// must be reset on entry or cleaned up on exit.
func (h *Handler) RunWithRetries(ctx context.Context, fn func() error) error {
	var (
		totalSleep time.Duration
		lastErr    error
	)

	tries := 0
	for tries <= h.settings.MaxRetries {
		tries++

		err := fn()
		if err == nil {
			return nil
		}

		if !h.IsRetryable(err) {
			return err
		}

		lastErr = err

		if tries > h.settings.MaxRetries {
			break
		}

		h.logger.Warn("retrying connection",
			slog.String("url", h.u.Redacted()),
			slog.Any("error", err),
			slog.Int("attempt", tries))

		totalSleep += h.sleepBeforeNextAttempt(ctx, tries)
	}

	return &OutOfRetriesError{Retries: tries - 1, TotalSleep: totalSleep, Cause: lastErr}
}

// TryOnceThenWithRetries runs first once. On a retryable failure it switches
// to RunWithRetries(retryFn); a non-retryable failure surfaces immediately.
//
// The split exists because the first operation may have half-consumed
// resource state (a partial read, a partial skip) that cannot safely be
// repeated; retryFn is the compensating action, typically a close-and-reopen.
func (h *Handler) TryOnceThenWithRetries(ctx context.Context, first, retryFn func() error) error {
	err := first()
	if err == nil {
		return nil
	}

	if !h.IsRetryable(err) {
		return err
	}

	h.logger.Warn("retrying after initial failure",
		slog.String("url", h.u.Redacted()),
		slog.Any("error", err))

	return h.RunWithRetries(ctx, retryFn)
}

// sleepBeforeNextAttempt sleeps 2^min(attempt,7) milliseconds and returns the
// time actually spent sleeping. Cancelling the context ends the sleep early;
// the retry loop proceeds and the next network call reports the cancellation.
func (h *Handler) sleepBeforeNextAttempt(ctx context.Context, attempt int) time.Duration {
	delay := time.Duration(1<<min(attempt, 7)) * time.Millisecond

	start := time.Now()

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-timer.C:
	case <-ctx.Done():
	}

	return time.Since(start)
}

// OutOfRetriesError indicates a failure which could have been retried but was
// not because all allowed retries were exhausted.
type OutOfRetriesError struct {
	// Retries is the number of retries attempted before giving up.
	Retries int
	// TotalSleep is the total time spent sleeping between attempts.
	TotalSleep time.Duration
	// Cause is the most recent underlying failure.
	Cause error
}

func (e *OutOfRetriesError) Error() string {
	return fmt.Sprintf("all %d retries failed, waited a total of %s between attempts: %v",
		e.Retries, e.TotalSleep, e.Cause)
}

func (e *OutOfRetriesError) Unwrap() error {
	return e.Cause
}
