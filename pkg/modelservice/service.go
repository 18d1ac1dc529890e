// Package modelservice defines the Model Service contract the engine calls
// for every mutation, and an in-memory authoritative implementation.
package modelservice

import (
	"context"
	"errors"

	"github.com/dd0wney/cluso-canvas/pkg/geom"
	"github.com/dd0wney/cluso-canvas/pkg/model"
)

// Operation names, used for failure injection, metrics and messages
const (
	OpCreateAsset            = "createAsset"
	OpRelocateAsset          = "relocateAsset"
	OpRelocateAssets         = "relocateAssets"
	OpRenameAsset            = "renameAsset"
	OpDeleteAsset            = "deleteAsset"
	OpCreateGroup            = "createGroup"
	OpAddAssetToGroup        = "addAssetToGroup"
	OpRemoveAssetFromGroup   = "removeAssetFromGroup"
	OpMoveAssetBetweenGroups = "moveAssetBetweenGroups"
	OpRelocateGroup          = "relocateGroup"
	OpResizeGroup            = "resizeGroup"
	OpRenameGroup            = "renameGroup"
	OpSetGroupExpanded       = "setGroupExpanded"
	OpDeleteGroup            = "deleteGroup"
	OpCreateRelation         = "createRelation"
	OpRedefineRelation       = "redefineRelation"
	OpDeleteRelation         = "deleteRelation"
	OpSetRelationHidden      = "setRelationHidden"
)

// ErrRejected is returned when the service refuses a well-formed request
var ErrRejected = errors.New("rejected by model service")

// Change is the canonical result of a mutation: every entity the server
// created or updated, and the IDs it removed. Inferred relations the
// mutation caused to appear or disappear are included.
type Change struct {
	Assets    []model.Asset    `json:"assets,omitempty"`
	Groups    []model.Group    `json:"groups,omitempty"`
	Relations []model.Relation `json:"relations,omitempty"`
	Removed   Removed          `json:"removed"`
}

// Removed lists deleted entity IDs
type Removed struct {
	Assets    []string `json:"assets,omitempty"`
	Groups    []string `json:"groups,omitempty"`
	Relations []string `json:"relations,omitempty"`
}

// Diagram is a full copy of the server model
type Diagram struct {
	Assets    []model.Asset    `json:"assets" yaml:"assets"`
	Groups    []model.Group    `json:"groups" yaml:"groups"`
	Relations []model.Relation `json:"relations" yaml:"relations"`
}

// CreateAssetRequest creates an asset, optionally inside a group
type CreateAssetRequest struct {
	Type     string     `json:"type" validate:"required,typename,max=64"`
	Name     string     `json:"name" validate:"max=128"`
	Position geom.Point `json:"position"`
	GroupID  string     `json:"groupId,omitempty"`
}

// RelocateAssetRequest moves one asset
type RelocateAssetRequest struct {
	ID       string     `json:"id" validate:"required"`
	Position geom.Point `json:"position"`
}

// RelocateAssetsRequest moves several assets as one coordinated change
type RelocateAssetsRequest struct {
	Placements []model.Placement `json:"placements" validate:"required,min=1,max=1000,dive"`
}

// RenameAssetRequest renames an asset
type RenameAssetRequest struct {
	ID   string `json:"id" validate:"required"`
	Name string `json:"name" validate:"required,max=128"`
}

// CreateGroupRequest creates a group around existing ungrouped assets
type CreateGroupRequest struct {
	Label     string     `json:"label" validate:"required,max=128"`
	Position  geom.Point `json:"position"`
	Size      geom.Size  `json:"size"`
	Resizable bool       `json:"resizable"`
	Members   []string   `json:"members" validate:"dive,required"`
}

// MembershipRequest adds an asset to, or removes it from, a group
type MembershipRequest struct {
	AssetID string `json:"assetId" validate:"required"`
	GroupID string `json:"groupId" validate:"required"`
}

// MoveRequest moves an asset from one group to another
type MoveRequest struct {
	AssetID     string `json:"assetId" validate:"required"`
	FromGroupID string `json:"fromGroupId" validate:"required"`
	ToGroupID   string `json:"toGroupId" validate:"required,nefield=FromGroupID"`
}

// RelocateGroupRequest moves a group; its members move by the same delta
type RelocateGroupRequest struct {
	ID       string     `json:"id" validate:"required"`
	Position geom.Point `json:"position"`
}

// ResizeGroupRequest changes a group's stored size
type ResizeGroupRequest struct {
	ID   string    `json:"id" validate:"required"`
	Size geom.Size `json:"size"`
}

// RenameGroupRequest relabels a group
type RenameGroupRequest struct {
	ID    string `json:"id" validate:"required"`
	Label string `json:"label" validate:"required,max=128"`
}

// SetGroupExpandedRequest persists a group's expanded flag
type SetGroupExpandedRequest struct {
	ID       string `json:"id" validate:"required"`
	Expanded bool   `json:"expanded"`
}

// DeleteGroupRequest deletes a group and optionally its members
type DeleteGroupRequest struct {
	ID            string `json:"id" validate:"required"`
	DeleteMembers bool   `json:"deleteMembers"`
}

// CreateRelationRequest creates an asserted relation
type CreateRelationRequest struct {
	From  string `json:"from" validate:"required"`
	To    string `json:"to" validate:"required,nefield=From"`
	Type  string `json:"type" validate:"required,typename,max=64"`
	Label string `json:"label" validate:"max=128"`
}

// RedefineRelationRequest changes a relation's type
type RedefineRelationRequest struct {
	ID    string `json:"id" validate:"required"`
	Type  string `json:"type" validate:"required,typename,max=64"`
	Label string `json:"label" validate:"max=128"`
}

// SetRelationHiddenRequest hides or unhides a relation
type SetRelationHiddenRequest struct {
	ID     string `json:"id" validate:"required"`
	Hidden bool   `json:"hidden"`
}

// Service is the Model Service contract. Every method returns the
// canonical entities it changed.
type Service interface {
	Load(ctx context.Context) (*Diagram, error)

	CreateAsset(ctx context.Context, req CreateAssetRequest) (*Change, error)
	RelocateAsset(ctx context.Context, req RelocateAssetRequest) (*Change, error)
	RelocateAssets(ctx context.Context, req RelocateAssetsRequest) (*Change, error)
	RenameAsset(ctx context.Context, req RenameAssetRequest) (*Change, error)
	DeleteAsset(ctx context.Context, id string) (*Change, error)

	CreateGroup(ctx context.Context, req CreateGroupRequest) (*Change, error)
	AddAssetToGroup(ctx context.Context, req MembershipRequest) (*Change, error)
	RemoveAssetFromGroup(ctx context.Context, req MembershipRequest) (*Change, error)
	MoveAssetBetweenGroups(ctx context.Context, req MoveRequest) (*Change, error)
	RelocateGroup(ctx context.Context, req RelocateGroupRequest) (*Change, error)
	ResizeGroup(ctx context.Context, req ResizeGroupRequest) (*Change, error)
	RenameGroup(ctx context.Context, req RenameGroupRequest) (*Change, error)
	SetGroupExpanded(ctx context.Context, req SetGroupExpandedRequest) (*Change, error)
	DeleteGroup(ctx context.Context, req DeleteGroupRequest) (*Change, error)

	CreateRelation(ctx context.Context, req CreateRelationRequest) (*Change, error)
	RedefineRelation(ctx context.Context, req RedefineRelationRequest) (*Change, error)
	DeleteRelation(ctx context.Context, id string) (*Change, error)
	SetRelationHidden(ctx context.Context, req SetRelationHiddenRequest) (*Change, error)
}
