// Package graphql exposes the engine's frame, connection state and
// relation catalogue, plus a handful of edits, through a GraphQL schema.
package graphql

import (
	"github.com/dd0wney/cluso-canvas/pkg/geom"
	"github.com/dd0wney/cluso-canvas/pkg/reconcile"
	"github.com/dd0wney/cluso-canvas/pkg/render"
	"github.com/dd0wney/cluso-canvas/pkg/schema"
)

// Backend is what the schema resolves against. *engine.Engine satisfies
// it; calls must happen on the engine's event loop.
type Backend interface {
	Frame() render.Frame
	ValidOutgoingTypes(assetType string) []schema.RelationType
	ValidIncomingTypes(assetType string) []schema.RelationType
	Notifications() []reconcile.Notification

	RelocateAsset(id string, pos geom.Point) error
	RenameAsset(id, name string) error
	SetGroupExpanded(id string, expanded bool) error
	CreateRelation(from, to, relType, label string) (string, error)
	DeleteRelation(id string) error
	SetRelationHidden(id string, hidden bool) error
	Recenter() error
	RecenterOnEntities(ids []string) error
}
