package engine

import (
	"context"

	"github.com/dd0wney/cluso-canvas/pkg/containment"
	"github.com/dd0wney/cluso-canvas/pkg/geom"
	"github.com/dd0wney/cluso-canvas/pkg/logging"
	"github.com/dd0wney/cluso-canvas/pkg/model"
	"github.com/dd0wney/cluso-canvas/pkg/modelservice"
	"github.com/dd0wney/cluso-canvas/pkg/reconcile"
	"github.com/dd0wney/cluso-canvas/pkg/store"
)

// changeMembership issues one membership transition. When to is set the
// asset is also relocated, in the same operation, after the membership
// change is confirmed.
func (e *Engine) changeMembership(t containment.Transition, to *geom.Point) error {
	if t.Kind == containment.NoChange {
		if to != nil {
			return e.RelocateAsset(t.AssetID, *to)
		}
		return nil
	}
	// The server answers with both groups' member lists, so the groups
	// serialize too.
	keys := []store.Ref{store.AssetRef(t.AssetID)}
	for _, g := range []string{t.From, t.To} {
		if g != "" {
			keys = append(keys, store.GroupRef(g))
		}
	}
	var name string
	switch t.Kind {
	case containment.Add:
		name = modelservice.OpAddAssetToGroup
	case containment.Remove:
		name = modelservice.OpRemoveAssetFromGroup
	default:
		name = modelservice.OpMoveAssetBetweenGroups
	}
	e.logger.Debug("membership change", logging.AssetID(t.AssetID), logging.Operation(t.Kind.String()))

	return e.submit(&reconcile.Operation{
		Name:   name,
		Kind:   t.Kind.OperationKind(),
		Entity: store.AssetRef(t.AssetID),
		Keys:   keys,
		Apply: func() (any, error) {
			if to != nil {
				if err := e.moveAsset(t.AssetID, *to); err != nil {
					return nil, err
				}
			}
			return t, e.groups.Begin(t)
		},
		Request: func(ctx context.Context) (any, error) {
			changes := make([]*modelservice.Change, 0, 2)
			ch, err := e.membershipRequest(ctx, t)
			if err != nil {
				return nil, err
			}
			changes = append(changes, ch)
			if to != nil {
				ch, err := e.service.RelocateAsset(ctx, modelservice.RelocateAssetRequest{ID: t.AssetID, Position: *to})
				if err != nil {
					return nil, err
				}
				changes = append(changes, ch)
			}
			return changes, nil
		},
		Commit: e.commit,
		Settled: func(ok bool) {
			if ok {
				e.groups.Complete(t.AssetID)
			} else {
				e.groups.Abort(t.AssetID)
			}
		},
	})
}

func (e *Engine) membershipRequest(ctx context.Context, t containment.Transition) (*modelservice.Change, error) {
	switch t.Kind {
	case containment.Add:
		return e.service.AddAssetToGroup(ctx, modelservice.MembershipRequest{AssetID: t.AssetID, GroupID: t.To})
	case containment.Remove:
		return e.service.RemoveAssetFromGroup(ctx, modelservice.MembershipRequest{AssetID: t.AssetID, GroupID: t.From})
	default:
		return e.service.MoveAssetBetweenGroups(ctx, modelservice.MoveRequest{
			AssetID: t.AssetID, FromGroupID: t.From, ToGroupID: t.To,
		})
	}
}

// AddAssetToGroup puts an ungrouped asset into a group
func (e *Engine) AddAssetToGroup(assetID, groupID string) error {
	return e.changeMembership(containment.Transition{AssetID: assetID, Kind: containment.Add, To: groupID}, nil)
}

// RemoveAssetFromGroup ungroups an asset
func (e *Engine) RemoveAssetFromGroup(assetID string) error {
	from, ok := e.store.GroupOf(assetID)
	if !ok {
		return model.NewError("RemoveAssetFromGroup").Asset(assetID).Message("asset is not grouped").Err()
	}
	return e.changeMembership(containment.Transition{AssetID: assetID, Kind: containment.Remove, From: from}, nil)
}

// MoveAssetToGroup moves a grouped asset into another group
func (e *Engine) MoveAssetToGroup(assetID, groupID string) error {
	from, ok := e.store.GroupOf(assetID)
	if !ok {
		return e.AddAssetToGroup(assetID, groupID)
	}
	if from == groupID {
		return nil
	}
	return e.changeMembership(containment.Transition{AssetID: assetID, Kind: containment.Move, From: from, To: groupID}, nil)
}

// BeginGesture opens a drag-and-drop gesture whose raw membership events
// arrive through ObserveMembership
func (e *Engine) BeginGesture(gesture, assetID string) {
	from, _ := e.store.GroupOf(assetID)
	e.dedup.Start(gesture, assetID, from)
}

// ObserveMembership feeds one raw, possibly duplicated, membership event
func (e *Engine) ObserveMembership(ev containment.RawEvent) {
	e.dedup.Observe(ev)
}

// SettleGesture closes a gesture and issues at most one membership change
func (e *Engine) SettleGesture(gesture string) error {
	t, ok := e.dedup.Settle(gesture)
	if !ok {
		return nil
	}
	return e.changeMembership(t, nil)
}
