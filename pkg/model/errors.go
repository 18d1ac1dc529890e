package model

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors
var (
	ErrConsistencyConflict = errors.New("consistency conflict")
	ErrUnresolvedEndpoint  = errors.New("unresolved endpoint")
	ErrRequestFailure      = errors.New("request failed")
	ErrInvalidTransition   = errors.New("invalid transition")
	ErrAssetNotFound       = errors.New("asset not found")
	ErrGroupNotFound       = errors.New("group not found")
	ErrRelationNotFound    = errors.New("relation not found")
	ErrInvalidID           = errors.New("invalid ID")
)

// DiagramError provides structured error information for engine operations.
type DiagramError struct {
	Op      string // Operation that failed (e.g., "UpsertAsset", "relocateAsset")
	Entity  string // Entity kind (e.g., "asset", "group", "relation")
	ID      string // Entity ID (if applicable)
	Cause   error  // Underlying error
	Context string // Additional context
	// Message is the human-readable text shown to the user, if any
	Message string
}

// Error implements the error interface.
func (e *DiagramError) Error() string {
	parts := []string{e.Op}
	if e.Entity != "" {
		parts = append(parts, e.Entity)
	}
	if e.ID != "" {
		parts = append(parts, e.ID)
	}
	s := strings.Join(parts, " ")
	if e.Context != "" {
		s += " (" + e.Context + ")"
	}
	return fmt.Sprintf("%s: %v", s, e.Cause)
}

// Unwrap returns the underlying cause for error chain support.
func (e *DiagramError) Unwrap() error {
	return e.Cause
}

// UserMessage returns the text for the notification surface
func (e *DiagramError) UserMessage() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Error()
}

// ErrorBuilder provides a fluent interface for building DiagramErrors.
type ErrorBuilder struct {
	err DiagramError
}

// NewError creates a new error builder with the given operation.
func NewError(op string) *ErrorBuilder {
	return &ErrorBuilder{err: DiagramError{Op: op}}
}

// Asset sets the entity to "asset" with the given ID.
func (b *ErrorBuilder) Asset(id string) *ErrorBuilder {
	b.err.Entity = KindAsset.String()
	b.err.ID = id
	return b
}

// Group sets the entity to "group" with the given ID.
func (b *ErrorBuilder) Group(id string) *ErrorBuilder {
	b.err.Entity = KindGroup.String()
	b.err.ID = id
	return b
}

// Relation sets the entity to "relation" with the given ID.
func (b *ErrorBuilder) Relation(id string) *ErrorBuilder {
	b.err.Entity = KindRelation.String()
	b.err.ID = id
	return b
}

// Entity sets an arbitrary entity kind and ID.
func (b *ErrorBuilder) Entity(kind EntityKind, id string) *ErrorBuilder {
	b.err.Entity = kind.String()
	b.err.ID = id
	return b
}

// Context sets additional context information.
func (b *ErrorBuilder) Context(ctx string) *ErrorBuilder {
	b.err.Context = ctx
	return b
}

// Message sets the user-facing message.
func (b *ErrorBuilder) Message(msg string) *ErrorBuilder {
	b.err.Message = msg
	return b
}

// Cause sets the underlying error cause.
func (b *ErrorBuilder) Cause(err error) *ErrorBuilder {
	b.err.Cause = err
	return b
}

// Build returns the constructed DiagramError.
func (b *ErrorBuilder) Build() *DiagramError {
	e := b.err
	return &e
}

// Err returns the error as an error interface.
func (b *ErrorBuilder) Err() error {
	return b.Build()
}

// AssetNotFoundError creates an asset not found error.
func AssetNotFoundError(op, id string) error {
	return NewError(op).Asset(id).Cause(ErrAssetNotFound).Err()
}

// GroupNotFoundError creates a group not found error.
func GroupNotFoundError(op, id string) error {
	return NewError(op).Group(id).Cause(ErrGroupNotFound).Err()
}

// RelationNotFoundError creates a relation not found error.
func RelationNotFoundError(op, id string) error {
	return NewError(op).Relation(id).Cause(ErrRelationNotFound).Err()
}

// ConflictError reports a membership disagreement on an asset upsert.
func ConflictError(assetID, wantGroup, listedIn string) error {
	return NewError("UpsertAsset").Asset(assetID).
		Context(fmt.Sprintf("groupId %q but listed by group %q", wantGroup, listedIn)).
		Cause(ErrConsistencyConflict).Err()
}

// RequestFailureError wraps a rejected Model Service call with a message for the user.
func RequestFailureError(op string, kind EntityKind, id string, cause error) error {
	return NewError(op).Entity(kind, id).
		Message(fmt.Sprintf("Could not %s %s: %v", humanizeOp(op), id, cause)).
		Cause(fmt.Errorf("%w: %w", ErrRequestFailure, cause)).Err()
}

// InvalidTransitionError reports an event the interaction machine cannot take.
func InvalidTransitionError(event, state string) error {
	return NewError(event).Context("state " + state).Cause(ErrInvalidTransition).Err()
}

// UnresolvedEndpointError reports a relation endpoint the router cannot anchor.
func UnresolvedEndpointError(relationID, assetID string) error {
	return NewError("route").Relation(relationID).
		Context("endpoint " + assetID).Cause(ErrUnresolvedEndpoint).Err()
}

// IsNotFound returns true if the error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrAssetNotFound) || errors.Is(err, ErrGroupNotFound) || errors.Is(err, ErrRelationNotFound)
}

// IsConflict returns true for consistency conflicts.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConsistencyConflict)
}

// IsRequestFailure returns true for rejected Model Service calls.
func IsRequestFailure(err error) bool {
	return errors.Is(err, ErrRequestFailure)
}

// IsInvalidTransition returns true for rejected interaction events.
func IsInvalidTransition(err error) bool {
	return errors.Is(err, ErrInvalidTransition)
}

// UserMessage extracts the user-facing message from err.
func UserMessage(err error) string {
	var de *DiagramError
	if errors.As(err, &de) {
		return de.UserMessage()
	}
	if err == nil {
		return ""
	}
	return err.Error()
}

func humanizeOp(op string) string {
	out := make([]rune, 0, len(op)+4)
	for i, r := range op {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				out = append(out, ' ')
			}
			r += 'a' - 'A'
		}
		out = append(out, r)
	}
	return string(out)
}
