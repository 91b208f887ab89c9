// Package executors implements the five Step Executor kinds (C4): per-kind
// step execution with shared retry/backoff/timeout behavior, grounded on
// the teacher's retry-policy shape (exponential delay with a capped
// maximum, classify-then-retry) reimplemented over
// github.com/cenkalti/backoff/v4 instead of the hand-rolled math, and on
// internal/orchestrator's step-dispatch/route split for the
// execute/route two-method contract the registry.Executor interface
// requires.
package executors

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/flowcraft/workflowengine/core"
	"github.com/flowcraft/workflowengine/internal/xlog"
)

// Body is the unit of work an executor attempts, possibly several times.
// It must itself be side-effect-idempotent enough to retry; callers that
// can't guarantee that set max_retries to 0 (the approval executor does not
// go through RunWithRetry at all).
type Body func(ctx context.Context) (any, error)

// RunWithRetry drives attempts against body using step's effective
// retry/timeout/backoff configuration, in the shape spec.md §4.4 names:
// up to max_retries+1 total attempts, delay min(initial*multiplier^i, max),
// each attempt racing a per-attempt timeout. It never returns an error
// itself — failures surface only inside the returned StepResult, per the
// engine's "executors normalize, never raise" contract.
func RunWithRetry(ctx context.Context, step *core.WorkflowStep, body Body) core.StepResult {
	start := time.Now()
	maxAttempts := step.EffectiveMaxRetries() + 1
	timeout := time.Duration(step.EffectiveTimeoutMs()) * time.Millisecond

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = time.Duration(step.EffectiveRetryDelayMs()) * time.Millisecond
	bo.Multiplier = core.RetryBackoffFactor
	bo.MaxInterval = time.Duration(core.DefaultMaxRetryDelay) * time.Millisecond
	bo.MaxElapsedTime = 0 // attempt count, not elapsed time, bounds the loop
	bo.RandomizationFactor = 0
	bo.Reset() // start from the configured InitialInterval

	var lastErr error
	attempts := 0
	for attempts < maxAttempts {
		attempts++
		data, err := runOnce(ctx, timeout, body)
		if err == nil {
			return core.NewSuccess(step.ID, data, start, attempts-1)
		}
		lastErr = err
		if attempts >= maxAttempts {
			break
		}
		delay := bo.NextBackOff()
		xlog.Get().Debug().Str("step_id", step.ID).Int("attempt", attempts).Dur("delay", delay).Err(err).Msg("step attempt failed, retrying")
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			lastErr = &core.TimeoutError{Scope: core.TimeoutScopeWorkflow, ElapsedMs: time.Since(start).Milliseconds(), Attempts: attempts}
			return core.NewFailure(step.ID, lastErr, start, attempts-1)
		}
	}
	return core.NewFailure(step.ID, lastErr, start, attempts-1)
}

// runOnce races body against an attempt-scoped timeout derived from ctx.
func runOnce(ctx context.Context, timeout time.Duration, body Body) (any, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type outcome struct {
		data any
		err  error
	}
	ch := make(chan outcome, 1)
	go func() {
		data, err := body(attemptCtx)
		ch <- outcome{data, err}
	}()

	select {
	case o := <-ch:
		return o.data, o.err
	case <-attemptCtx.Done():
		return nil, &core.TimeoutError{Scope: core.TimeoutScopeStep, ElapsedMs: timeout.Milliseconds()}
	}
}

// DefaultRoute is the base routing rule every kind may override: on
// failure route to on_error (if present), on success route to next (if
// present), otherwise stop.
func DefaultRoute(step *core.WorkflowStep, result core.StepResult) (string, bool) {
	if !result.Success {
		return step.OnError, step.OnError != ""
	}
	return step.Next, step.Next != ""
}
