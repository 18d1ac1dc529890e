package graphql

import (
	"context"

	"github.com/graphql-go/graphql"
	"github.com/graphql-go/graphql/gqlerrors"
)

// DefaultMaxDepth bounds nesting for requests that do not set their own limit
const DefaultMaxDepth = 6

// Executor runs requests against one backend. Each request reads a single
// frame, so every field of a response describes the same engine state.
type Executor struct {
	backend  Backend
	schema   graphql.Schema
	maxDepth int
}

// NewExecutor builds the schema over b
func NewExecutor(b Backend, maxDepth int) (*Executor, error) {
	s, err := GenerateSchema(b)
	if err != nil {
		return nil, err
	}
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	return &Executor{backend: b, schema: s, maxDepth: maxDepth}, nil
}

// Schema returns the generated schema
func (x *Executor) Schema() graphql.Schema { return x.schema }

// Execute runs query with optional variables. It must be called on the
// engine's event loop.
func (x *Executor) Execute(ctx context.Context, query string, variables map[string]any) *graphql.Result {
	if err := ValidateQueryDepth(query, x.maxDepth); err != nil {
		return &graphql.Result{
			Errors: []gqlerrors.FormattedError{gqlerrors.FormatError(err)},
		}
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return graphql.Do(graphql.Params{
		Schema:         x.schema,
		RequestString:  query,
		VariableValues: variables,
		Context:        withFrame(ctx, x.backend.Frame()),
	})
}
