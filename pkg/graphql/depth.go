package graphql

import (
	"fmt"
	"strings"

	"github.com/graphql-go/graphql/language/ast"
	"github.com/graphql-go/graphql/language/parser"
)

// calculateQueryDepth returns the deepest selection nesting of any
// operation in the document
func calculateQueryDepth(document *ast.Document) int {
	maxDepth := 0
	for _, definition := range document.Definitions {
		if def, ok := definition.(*ast.OperationDefinition); ok {
			if depth := calculateSelectionSetDepth(def.SelectionSet, 1); depth > maxDepth {
				maxDepth = depth
			}
		}
	}
	return maxDepth
}

func calculateSelectionSetDepth(selectionSet *ast.SelectionSet, currentDepth int) int {
	if selectionSet == nil || len(selectionSet.Selections) == 0 {
		return currentDepth
	}
	maxDepth := currentDepth
	for _, selection := range selectionSet.Selections {
		switch sel := selection.(type) {
		case *ast.Field:
			if strings.HasPrefix(sel.Name.Value, "__") {
				continue
			}
			if sel.SelectionSet != nil {
				if depth := calculateSelectionSetDepth(sel.SelectionSet, currentDepth+1); depth > maxDepth {
					maxDepth = depth
				}
			}
		case *ast.InlineFragment:
			if depth := calculateSelectionSetDepth(sel.SelectionSet, currentDepth); depth > maxDepth {
				maxDepth = depth
			}
		case *ast.FragmentSpread:
			// Spreads are not resolved; count one level.
			if maxDepth < currentDepth+1 {
				maxDepth = currentDepth + 1
			}
		}
	}
	return maxDepth
}

// ValidateQueryDepth rejects a query nested deeper than maxDepth
func ValidateQueryDepth(query string, maxDepth int) error {
	document, err := parser.Parse(parser.ParseParams{Source: query})
	if err != nil {
		return fmt.Errorf("failed to parse query: %w", err)
	}
	if depth := calculateQueryDepth(document); depth > maxDepth {
		return fmt.Errorf("query depth %d exceeds maximum allowed depth %d", depth, maxDepth)
	}
	return nil
}
