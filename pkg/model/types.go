// Package model defines the diagram's canonical entities: assets, groups and
// relations, plus the pending-operation record used by reconciliation.
package model

import (
	"slices"
	"time"

	"github.com/dd0wney/cluso-canvas/pkg/geom"
)

// Asset is a modeled system entity rendered as a node
type Asset struct {
	ID       string     `json:"id" yaml:"id"`
	Type     string     `json:"type" yaml:"type"`
	Name     string     `json:"name" yaml:"name"`
	Position geom.Point `json:"position" yaml:"position"`
	Asserted bool       `json:"asserted" yaml:"asserted"`
	// GroupID is empty when the asset is ungrouped
	GroupID string `json:"groupId,omitempty" yaml:"groupId,omitempty"`
	// InferredRelationIDs is derived by the server and never edited locally
	InferredRelationIDs []string `json:"inferredRelationIds,omitempty" yaml:"-"`
}

// Grouped reports whether the asset belongs to a group
func (a *Asset) Grouped() bool {
	return a.GroupID != ""
}

// Clone creates a deep copy of an asset
func (a *Asset) Clone() *Asset {
	clone := *a
	clone.InferredRelationIDs = slices.Clone(a.InferredRelationIDs)
	return &clone
}

// Group visually and logically aggregates a set of assets
type Group struct {
	ID        string     `json:"id" yaml:"id"`
	Label     string     `json:"label" yaml:"label"`
	Position  geom.Point `json:"position" yaml:"position"`
	Size      geom.Size  `json:"size" yaml:"size"`
	Expanded  bool       `json:"expanded" yaml:"expanded"`
	Resizable bool       `json:"resizable" yaml:"resizable"`
	// Members is kept sorted so snapshots compare deterministically
	Members []string `json:"members" yaml:"members"`
}

// Bounds returns the group's expanded geometry
func (g *Group) Bounds() geom.Rect {
	return geom.RectAt(g.Position, g.Size)
}

// HasMember reports whether assetID is listed as a member
func (g *Group) HasMember(assetID string) bool {
	_, found := slices.BinarySearch(g.Members, assetID)
	return found
}

// AddMember inserts assetID, keeping Members sorted. Returns false if present.
func (g *Group) AddMember(assetID string) bool {
	i, found := slices.BinarySearch(g.Members, assetID)
	if found {
		return false
	}
	g.Members = slices.Insert(g.Members, i, assetID)
	return true
}

// RemoveMember drops assetID. Returns false if it was not a member.
func (g *Group) RemoveMember(assetID string) bool {
	i, found := slices.BinarySearch(g.Members, assetID)
	if !found {
		return false
	}
	g.Members = slices.Delete(g.Members, i, i+1)
	return true
}

// Normalize sorts and de-duplicates Members
func (g *Group) Normalize() {
	slices.Sort(g.Members)
	g.Members = slices.Compact(g.Members)
}

// Clone creates a deep copy of a group
func (g *Group) Clone() *Group {
	clone := *g
	clone.Members = slices.Clone(g.Members)
	return &clone
}

// Relation is a directed, typed edge between two assets
type Relation struct {
	ID       string `json:"id" yaml:"id"`
	From     string `json:"from" yaml:"from"`
	To       string `json:"to" yaml:"to"`
	Type     string `json:"type" yaml:"type"`
	Label    string `json:"label" yaml:"label"`
	Asserted bool   `json:"asserted" yaml:"asserted"`
	Visible  bool   `json:"visible" yaml:"visible"`
	Hidden   bool   `json:"hidden" yaml:"hidden"`
	// InferredAssetIDs lists assets whose presence caused the server to infer this relation
	InferredAssetIDs []string `json:"inferredAssetIds,omitempty" yaml:"-"`
	// Deleting marks a relation whose delete request is in flight
	Deleting bool `json:"deleting,omitempty" yaml:"-"`
}

// Touches reports whether assetID is either endpoint
func (r *Relation) Touches(assetID string) bool {
	return r.From == assetID || r.To == assetID
}

// Clone creates a deep copy of a relation
func (r *Relation) Clone() *Relation {
	clone := *r
	clone.InferredAssetIDs = slices.Clone(r.InferredAssetIDs)
	return &clone
}

// EntityKind names which collection an id belongs to
type EntityKind int

const (
	KindAsset EntityKind = iota
	KindGroup
	KindRelation
)

func (k EntityKind) String() string {
	switch k {
	case KindAsset:
		return "asset"
	case KindGroup:
		return "group"
	case KindRelation:
		return "relation"
	default:
		return "unknown"
	}
}

// OperationKind is the kind of a pending optimistic mutation
type OperationKind int

const (
	OpAddToGroup OperationKind = iota
	OpRemoveFromGroup
	OpMoveBetweenGroups
	OpRelocate
	OpResize
	OpRename
	OpCreate
	OpDelete
	OpSetExpanded
	OpRedefine
	OpSetHidden
)

func (k OperationKind) String() string {
	switch k {
	case OpAddToGroup:
		return "add-to-group"
	case OpRemoveFromGroup:
		return "remove-from-group"
	case OpMoveBetweenGroups:
		return "move-between-groups"
	case OpRelocate:
		return "relocate"
	case OpResize:
		return "resize"
	case OpRename:
		return "rename"
	case OpCreate:
		return "create"
	case OpDelete:
		return "delete"
	case OpSetExpanded:
		return "set-expanded"
	case OpRedefine:
		return "redefine"
	case OpSetHidden:
		return "set-hidden"
	default:
		return "unknown"
	}
}

// PendingOperation records an optimistic mutation awaiting the server
type PendingOperation struct {
	EntityID      string
	Kind          OperationKind
	Optimistic    any
	Awaiting      bool
	CorrelationID string
	IssuedAt      time.Time
}

// Placement is one entry of a batch relocation
type Placement struct {
	ID       string     `json:"id" yaml:"id" validate:"required"`
	Position geom.Point `json:"position" yaml:"position"`
}
