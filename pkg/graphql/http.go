package graphql

import (
	"encoding/json"
	"net/http"

	"github.com/graphql-go/graphql"

	"github.com/dd0wney/cluso-canvas/pkg/logging"
)

// GraphQLRequest represents a GraphQL HTTP request
type GraphQLRequest struct {
	Query         string         `json:"query"`
	Variables     map[string]any `json:"variables,omitempty"`
	OperationName string         `json:"operationName,omitempty"`
}

// GraphQLResponse represents a GraphQL HTTP response
type GraphQLResponse struct {
	Data   any            `json:"data,omitempty"`
	Errors []GraphQLError `json:"errors,omitempty"`
}

// GraphQLError represents a GraphQL error
type GraphQLError struct {
	Message string `json:"message"`
}

// Poster runs fn on the engine's event loop
type Poster func(fn func()) error

// GraphQLHandler serves POST requests, executing each on the event loop
type GraphQLHandler struct {
	executor *Executor
	post     Poster
	logger   logging.Logger
}

// NewGraphQLHandler creates a handler executing through post
func NewGraphQLHandler(x *Executor, post Poster, logger logging.Logger) *GraphQLHandler {
	return &GraphQLHandler{
		executor: x,
		post:     post,
		logger:   logging.OrNop(logger).With(logging.Component("graphql")),
	}
}

// ServeHTTP handles HTTP requests for GraphQL queries
func (h *GraphQLHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req GraphQLRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	done := make(chan *graphql.Result, 1)
	err := h.post(func() {
		done <- h.executor.Execute(r.Context(), req.Query, req.Variables)
	})
	if err != nil {
		h.logger.Warn("request not scheduled", logging.Error(err))
		http.Error(w, "Engine unavailable", http.StatusServiceUnavailable)
		return
	}

	var result *graphql.Result
	select {
	case result = <-done:
	case <-r.Context().Done():
		return
	}

	response := GraphQLResponse{Data: result.Data}
	if result.HasErrors() {
		response.Errors = make([]GraphQLError, len(result.Errors))
		for i, err := range result.Errors {
			response.Errors[i] = GraphQLError{Message: err.Message}
		}
	}

	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.logger.Error("failed to write response", logging.Error(err))
	}
}
