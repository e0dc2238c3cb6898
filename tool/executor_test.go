package tool

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func echoTool() Tool {
	return NewFunctionTool(Metadata{
		Name:        "echo",
		Description: "Returns its input.",
		Parameters: []Parameter{
			{Name: "text", Type: "string", Required: true},
		},
		Idempotent: true,
	}, func(_ context.Context, args map[string]any) (string, error) {
		return args["text"].(string), nil
	})
}

func TestRegistryRegisterAndGet(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(echoTool()))

	tl, err := r.Get("echo")
	require.NoError(t, err)
	assert.Equal(t, "echo", tl.Metadata().Name)

	assert.ErrorIs(t, r.Register(echoTool()), ErrDuplicateTool)

	_, err = r.Get("missing")
	assert.ErrorIs(t, err, ErrUnknownTool)
}

func TestRegistryDescribe(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(echoTool()))

	desc := r.Describe()
	assert.Contains(t, desc, "echo")
	assert.Contains(t, desc, "text=string[required]")
}

func TestExecutorRunsTool(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(echoTool()))
	e := NewExecutor(r)

	res, err := e.Execute(context.Background(), "echo", map[string]any{"text": "hi"})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "hi", res.Output)
}

func TestExecutorUnknownTool(t *testing.T) {
	e := NewExecutor(NewRegistry())
	_, err := e.Execute(context.Background(), "nope", nil)
	assert.ErrorIs(t, err, ErrUnknownTool)
}

func TestValidationPrecedesExecution(t *testing.T) {
	var executed atomic.Bool
	r := NewRegistry()
	require.NoError(t, r.Register(NewFunctionTool(Metadata{
		Name: "strict",
		Parameters: []Parameter{
			{Name: "count", Type: "integer", Required: true},
		},
	}, func(context.Context, map[string]any) (string, error) {
		executed.Store(true)
		return "ran", nil
	})))
	e := NewExecutor(r)

	// Missing required argument.
	_, err := e.Execute(context.Background(), "strict", map[string]any{})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "count", verr.Field)
	assert.False(t, executed.Load(), "tool must not run on invalid arguments")

	// Wrong type.
	_, err = e.Execute(context.Background(), "strict", map[string]any{"count": "three"})
	require.ErrorAs(t, err, &verr)
	assert.False(t, executed.Load())
}

func TestExecutorCapturesTimeout(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(NewFunctionTool(Metadata{Name: "sleepy"},
		func(ctx context.Context, _ map[string]any) (string, error) {
			select {
			case <-time.After(time.Second):
				return "late", nil
			case <-ctx.Done():
				return "", ctx.Err()
			}
		})))
	e := NewExecutor(r, WithExecutionTimeout(20*time.Millisecond), WithMaxRetries(0))

	res, err := e.Execute(context.Background(), "sleepy", nil)
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "timeout")
}

func TestExecutorCapturesPanic(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(NewFunctionTool(Metadata{Name: "bomb"},
		func(context.Context, map[string]any) (string, error) {
			panic("boom")
		})))
	e := NewExecutor(r)

	res, err := e.Execute(context.Background(), "bomb", nil)
	require.NoError(t, err, "a panic must become a failed result, not an error")
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "boom")
}

func TestExecutorRetriesIdempotentTools(t *testing.T) {
	var calls atomic.Int32
	r := NewRegistry()
	require.NoError(t, r.Register(NewFunctionTool(Metadata{Name: "flaky", Idempotent: true},
		func(context.Context, map[string]any) (string, error) {
			if calls.Add(1) < 3 {
				return "", errors.New("transient failure")
			}
			return "recovered", nil
		})))
	e := NewExecutor(r, WithMaxRetries(3), WithRetryDelay(time.Millisecond))

	res, err := e.Execute(context.Background(), "flaky", nil)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "recovered", res.Output)
	assert.Equal(t, int32(3), calls.Load())
}

func TestExecutorNeverRetriesNonIdempotentTools(t *testing.T) {
	var calls atomic.Int32
	r := NewRegistry()
	require.NoError(t, r.Register(NewFunctionTool(Metadata{Name: "sideeffect"},
		func(context.Context, map[string]any) (string, error) {
			calls.Add(1)
			return "", errors.New("transient failure")
		})))
	e := NewExecutor(r, WithMaxRetries(3))

	res, err := e.Execute(context.Background(), "sideeffect", nil)
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, int32(1), calls.Load(), "non-idempotent tools must run at most once")
}

func TestResultObservation(t *testing.T) {
	assert.Equal(t, "output", SuccessResult("output").Observation())
	assert.Equal(t, "tool failed: oops", FailureResult("oops").Observation())
}
