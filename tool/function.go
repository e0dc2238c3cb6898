package tool

import (
	"context"

	"github.com/hupe1980/actormesh/internal/util"
)

// Func is the signature wrapped by FunctionTool.
type Func func(ctx context.Context, args map[string]any) (string, error)

// FunctionTool adapts a plain Go function into a Tool. Arguments are
// validated against the schema derived from the metadata's parameters.
type FunctionTool struct {
	meta   Metadata
	schema map[string]any
	fn     Func
}

// NewFunctionTool creates a tool from metadata and a function.
func NewFunctionTool(meta Metadata, fn Func) *FunctionTool {
	return &FunctionTool{meta: meta, schema: meta.Schema(), fn: fn}
}

// NewFunctionToolFromStruct creates a tool whose parameter schema is derived
// from argStruct's fields via reflection. Field json tags name the
// parameters; omitempty and pointer fields are optional.
func NewFunctionToolFromStruct(name, description string, argStruct any, fn Func) *FunctionTool {
	return &FunctionTool{
		meta:   Metadata{Name: name, Description: description},
		schema: util.CreateSchema(argStruct),
		fn:     fn,
	}
}

// Metadata implements Tool.
func (t *FunctionTool) Metadata() Metadata { return t.meta }

// Validate implements Tool.
func (t *FunctionTool) Validate(args map[string]any) error {
	return util.ValidateParameters(args, t.schema)
}

// Execute implements Tool.
func (t *FunctionTool) Execute(ctx context.Context, args map[string]any) (Result, error) {
	out, err := t.fn(ctx, args)
	if err != nil {
		return FailureResult(err.Error()), nil
	}
	return SuccessResult(out), nil
}

var _ Tool = (*FunctionTool)(nil)
