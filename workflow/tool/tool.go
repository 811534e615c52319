// Package tool provides the external lookup capability invoked by executors.
package tool

import "context"

// Tool is an executable capability the generating agent may invoke to
// resolve domain data (account lookups, billing queries, promotions).
//
// Implementations should:
//   - Validate input parameters and return descriptive errors
//   - Respect context cancellation and timeouts
//   - Return structured output as map[string]interface{}
//   - Be idempotent where possible
type Tool interface {
	// Name returns the unique identifier for this tool. It must match the
	// ToolSpec name offered to the model (lowercase with underscores).
	Name() string

	// Call executes the tool. input may be nil for parameterless tools;
	// its structure should match the tool's published schema.
	Call(ctx context.Context, input map[string]interface{}) (map[string]interface{}, error)
}

// Described is implemented by tools that publish a description and JSON
// schema for the model. Tools without it are offered with a generic
// description and an empty object schema.
type Described interface {
	// Description returns a short explanation of when to use the tool.
	Description() string

	// Schema returns the JSON Schema for the tool's input, or nil to accept
	// any object.
	Schema() map[string]interface{}
}
