// Package tool implements the capability subsystem agents act through:
// a Tool contract with schema validated arguments, a per-agent registry and
// an executor that turns every tool failure into data instead of a crash.
package tool

import (
	"context"
	"errors"

	"github.com/hupe1980/actormesh/internal/util"
)

// Tool errors. Callers branch with errors.Is / errors.As.
var (
	// ErrUnknownTool is returned when a tool name is not registered.
	ErrUnknownTool = errors.New("unknown tool")

	// ErrDuplicateTool is returned by Registry.Register for a taken name.
	ErrDuplicateTool = errors.New("tool name already registered")

	// ErrExecutionTimeout marks a tool run that exceeded its deadline.
	ErrExecutionTimeout = errors.New("tool execution timeout")

	// ErrExecutionFault marks a tool run that panicked.
	ErrExecutionFault = errors.New("tool execution fault")
)

// ValidationError represents parameter validation errors with detailed information.
type ValidationError = util.ValidationError

// Parameter describes one argument a tool accepts.
type Parameter struct {
	Name        string `json:"name"`
	Type        string `json:"type"` // JSON schema type: string, integer, number, boolean, array, object
	Description string `json:"description,omitempty"`
	Required    bool   `json:"required,omitempty"`
}

// Metadata describes a tool to the registry, the executor and the model.
type Metadata struct {
	// Name is the unique identifier, snake_case by convention.
	Name string `json:"name"`

	// Description tells the model when and how to use the tool.
	Description string `json:"description"`

	// Parameters declares the accepted arguments.
	Parameters []Parameter `json:"parameters,omitempty"`

	// Idempotent declares that repeating the tool with the same arguments
	// has no additional effect. Only idempotent tools are retried on
	// transient failures.
	Idempotent bool `json:"idempotent,omitempty"`
}

// Schema renders the metadata as a JSON schema object suitable for
// util.ValidateParameters.
func (m Metadata) Schema() map[string]any {
	properties := make(map[string]any, len(m.Parameters))
	var required []string
	for _, p := range m.Parameters {
		prop := map[string]any{"type": p.Type}
		if p.Description != "" {
			prop["description"] = p.Description
		}
		properties[p.Name] = prop
		if p.Required {
			required = append(required, p.Name)
		}
	}
	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

// Result is the outcome of a tool execution. A failed result is ordinary
// data: the reasoning loop feeds it back as an observation.
type Result struct {
	Success bool   `json:"success"`
	Output  string `json:"output,omitempty"`
	Error   string `json:"error,omitempty"`
}

// SuccessResult creates a successful result carrying output.
func SuccessResult(output string) Result {
	return Result{Success: true, Output: output}
}

// FailureResult creates a failed result carrying an error description.
func FailureResult(message string) Result {
	return Result{Success: false, Error: message}
}

// Observation renders the result as the observation text fed back to the
// reasoning loop.
func (r Result) Observation() string {
	if r.Success {
		return r.Output
	}
	return "tool failed: " + r.Error
}

// Tool is a capability an agent can invoke. Implementations must be safe for
// concurrent use.
type Tool interface {
	// Metadata returns the tool's descriptor.
	Metadata() Metadata

	// Validate checks args against the tool's schema without side effects.
	// It returns a *ValidationError describing the first violation.
	Validate(args map[string]any) error

	// Execute runs the tool. A returned error indicates the tool itself
	// faulted; domain-level failures (file not found, non-zero exit) are
	// expressed as a failed Result instead.
	Execute(ctx context.Context, args map[string]any) (Result, error)
}
