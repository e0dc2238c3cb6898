package tool

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hupe1980/actormesh/logging"
)

// Executor defaults.
const (
	DefaultExecutionTimeout = 30 * time.Second
	DefaultMaxRetries       = 2
	DefaultRetryDelay       = 250 * time.Millisecond
)

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithExecutionTimeout bounds each tool run.
func WithExecutionTimeout(d time.Duration) ExecutorOption {
	return func(e *Executor) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// WithMaxRetries sets the number of retries after the first attempt.
func WithMaxRetries(n int) ExecutorOption {
	return func(e *Executor) {
		if n >= 0 {
			e.maxRetries = n
		}
	}
}

// WithRetryDelay sets the base backoff delay between retries.
func WithRetryDelay(d time.Duration) ExecutorOption {
	return func(e *Executor) {
		if d > 0 {
			e.retryDelay = d
		}
	}
}

// WithExecutorLogger sets the executor's logger.
func WithExecutorLogger(l logging.Logger) ExecutorOption {
	return func(e *Executor) { e.logger = l }
}

// WithExecutionObserver installs a hook invoked after every completed
// execution. Used for operational counters.
func WithExecutionObserver(fn func(tool string, success bool)) ExecutorOption {
	return func(e *Executor) { e.observer = fn }
}

// Executor runs tools against a registry with validation, a per-run timeout,
// panic capture and retry of transient failures.
//
// The error return of Execute is reserved for pre-execution rejection
// (unknown tool, invalid arguments); those cases are guaranteed to have had
// no side effect. Everything that goes wrong during execution, including
// timeouts and panics, comes back as a failed Result.
type Executor struct {
	registry   *Registry
	timeout    time.Duration
	maxRetries int
	retryDelay time.Duration
	logger     logging.Logger
	observer   func(tool string, success bool)
}

// NewExecutor creates an executor over the given registry.
func NewExecutor(registry *Registry, opts ...ExecutorOption) *Executor {
	e := &Executor{
		registry:   registry,
		timeout:    DefaultExecutionTimeout,
		maxRetries: DefaultMaxRetries,
		retryDelay: DefaultRetryDelay,
		logger:     logging.NoOpLogger{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute validates args and runs the named tool. Transient failures
// (timeout, tool error) are retried with exponential backoff, but only for
// tools that declare themselves idempotent.
func (e *Executor) Execute(ctx context.Context, name string, args map[string]any) (Result, error) {
	t, err := e.registry.Get(name)
	if err != nil {
		return Result{}, err
	}
	if err := t.Validate(args); err != nil {
		return Result{}, fmt.Errorf("tool %q: %w", name, err)
	}

	retries := 0
	if t.Metadata().Idempotent {
		retries = e.maxRetries
	}

	var res Result
	delay := e.retryDelay
	start := time.Now()
	for attempt := 0; ; attempt++ {
		res = e.runOnce(ctx, t, args)
		if res.Success || attempt >= retries || !e.transient(res) || ctx.Err() != nil {
			break
		}
		e.logger.Warn("retrying tool", "tool", name, "attempt", attempt+1, "error", res.Error)
		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
		}
		delay *= 2
	}

	e.logger.Debug("tool executed",
		"tool", name,
		"success", res.Success,
		"duration", time.Since(start),
	)
	if e.observer != nil {
		e.observer(name, res.Success)
	}
	return res, nil
}

// transient reports whether the failed result is worth retrying. Timeouts
// and tool errors are transient; panics are bugs and are not.
func (e *Executor) transient(res Result) bool {
	return !res.Success && !strings.HasPrefix(res.Error, faultPrefix)
}

const faultPrefix = "panic:"

// runOnce executes the tool with a deadline and panic capture, mapping every
// failure mode onto a Result.
func (e *Executor) runOnce(ctx context.Context, t Tool, args map[string]any) Result {
	cctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	type outcome struct {
		res Result
		err error
	}
	done := make(chan outcome, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("%s %v: %w", faultPrefix, r, ErrExecutionFault)}
			}
		}()
		res, err := t.Execute(cctx, args)
		done <- outcome{res: res, err: err}
	}()

	select {
	case out := <-done:
		if out.err != nil {
			return FailureResult(out.err.Error())
		}
		return out.res
	case <-cctx.Done():
		if errors.Is(cctx.Err(), context.DeadlineExceeded) {
			return FailureResult(ErrExecutionTimeout.Error())
		}
		return FailureResult(cctx.Err().Error())
	}
}
