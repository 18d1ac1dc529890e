package engine

import (
	"context"

	"github.com/dd0wney/cluso-canvas/pkg/geom"
	"github.com/dd0wney/cluso-canvas/pkg/model"
	"github.com/dd0wney/cluso-canvas/pkg/modelservice"
	"github.com/dd0wney/cluso-canvas/pkg/reconcile"
	"github.com/dd0wney/cluso-canvas/pkg/store"
)

// CreateAsset adds an asset, optionally inside a group. The returned ID is
// a local placeholder replaced by the server's ID on commit.
func (e *Engine) CreateAsset(assetType, name string, pos geom.Point, groupID string) (string, error) {
	id := tempID("asset")
	req := modelservice.CreateAssetRequest{Type: assetType, Name: name, Position: pos, GroupID: groupID}
	keys := []store.Ref{store.AssetRef(id)}
	if groupID != "" {
		keys = append(keys, store.GroupRef(groupID))
	}
	err := e.submit(&reconcile.Operation{
		Name:   modelservice.OpCreateAsset,
		Kind:   model.OpCreate,
		Entity: store.AssetRef(id),
		Keys:   keys,
		Apply: func() (any, error) {
			a := model.Asset{ID: id, Type: assetType, Name: name, Position: pos, Asserted: true}
			if err := e.store.UpsertAsset(a, store.OriginLocal); err != nil {
				return nil, err
			}
			if groupID != "" {
				if err := e.store.Assign(id, groupID); err != nil {
					return nil, err
				}
			}
			return a, nil
		},
		Request: call(func(ctx context.Context) (*modelservice.Change, error) {
			return e.service.CreateAsset(ctx, req)
		}),
		Commit: func(res any) error {
			if _, err := e.store.RemoveAsset(id); err != nil && !model.IsNotFound(err) {
				return err
			}
			e.machine.Forget(id)
			return e.commit(res)
		},
	})
	return id, err
}

// RelocateAsset moves one asset without changing its membership
func (e *Engine) RelocateAsset(id string, pos geom.Point) error {
	return e.submit(&reconcile.Operation{
		Name:   modelservice.OpRelocateAsset,
		Kind:   model.OpRelocate,
		Entity: store.AssetRef(id),
		Apply:  func() (any, error) { return pos, e.moveAsset(id, pos) },
		Request: call(func(ctx context.Context) (*modelservice.Change, error) {
			return e.service.RelocateAsset(ctx, modelservice.RelocateAssetRequest{ID: id, Position: pos})
		}),
		Commit: e.commit,
	})
}

func (e *Engine) moveAsset(id string, pos geom.Point) error {
	a, ok := e.store.Asset(id)
	if !ok {
		return model.AssetNotFoundError("RelocateAsset", id)
	}
	a.Position = pos
	return e.store.UpsertAsset(*a, store.OriginLocal)
}

// RelocateAssets moves several assets as one coordinated change
func (e *Engine) RelocateAssets(placements []model.Placement) error {
	return e.relocateAssets(placements, nil)
}

func (e *Engine) relocateAssets(placements []model.Placement, settled func(bool)) error {
	if len(placements) == 0 {
		return nil
	}
	ids := make([]string, len(placements))
	for i, p := range placements {
		ids[i] = p.ID
	}
	batch := append([]model.Placement(nil), placements...)
	return e.submit(&reconcile.Operation{
		Name:   modelservice.OpRelocateAssets,
		Kind:   model.OpRelocate,
		Entity: store.AssetRef(ids[0]),
		Keys:   assetRefs(ids),
		Apply: func() (any, error) {
			for _, p := range batch {
				if err := e.moveAsset(p.ID, p.Position); err != nil {
					return nil, err
				}
			}
			return batch, nil
		},
		Request: call(func(ctx context.Context) (*modelservice.Change, error) {
			return e.service.RelocateAssets(ctx, modelservice.RelocateAssetsRequest{Placements: batch})
		}),
		Commit:  e.commit,
		Settled: settled,
	})
}

// RenameAsset renames an asset
func (e *Engine) RenameAsset(id, name string) error {
	return e.submit(&reconcile.Operation{
		Name:   modelservice.OpRenameAsset,
		Kind:   model.OpRename,
		Entity: store.AssetRef(id),
		Apply: func() (any, error) {
			a, ok := e.store.Asset(id)
			if !ok {
				return nil, model.AssetNotFoundError("RenameAsset", id)
			}
			a.Name = name
			return name, e.store.UpsertAsset(*a, store.OriginLocal)
		},
		Request: call(func(ctx context.Context) (*modelservice.Change, error) {
			return e.service.RenameAsset(ctx, modelservice.RenameAssetRequest{ID: id, Name: name})
		}),
		Commit: e.commit,
	})
}

// DeleteAsset removes an asset together with its incident relations
func (e *Engine) DeleteAsset(id string) error {
	keys := []store.Ref{store.AssetRef(id)}
	if g, ok := e.store.GroupOf(id); ok {
		keys = append(keys, store.GroupRef(g))
	}
	return e.submit(&reconcile.Operation{
		Name:   modelservice.OpDeleteAsset,
		Kind:   model.OpDelete,
		Entity: store.AssetRef(id),
		Keys:   keys,
		TouchesFn: func() []store.Ref {
			touches := []store.Ref{store.AssetRef(id)}
			if g, ok := e.store.GroupOf(id); ok {
				touches = append(touches, store.GroupRef(g))
			}
			return append(touches, e.incident(id)...)
		},
		Apply: func() (any, error) {
			removed, err := e.store.RemoveAsset(id)
			if err != nil {
				return nil, err
			}
			e.machine.Forget(id)
			e.groups.Forget(id)
			return removed, nil
		},
		Request: call(func(ctx context.Context) (*modelservice.Change, error) {
			return e.service.DeleteAsset(ctx, id)
		}),
		Commit: e.commit,
	})
}

// Recenter centres every asset in the visible area
func (e *Engine) Recenter() error {
	assets := e.store.Assets()
	current := make([]model.Placement, len(assets))
	for i, a := range assets {
		current[i] = model.Placement{ID: a.ID, Position: a.Position}
	}
	return e.recenter(current)
}

// RecenterOnEntities translates the given assets so their bounding box sits
// in the middle of the visible area. Redraw is suppressed until the batch
// settles, so the move appears once.
func (e *Engine) RecenterOnEntities(ids []string) error {
	current := make([]model.Placement, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		a, ok := e.store.Asset(id)
		if !ok {
			return model.AssetNotFoundError("RecenterOnEntities", id)
		}
		current = append(current, model.Placement{ID: a.ID, Position: a.Position})
	}
	return e.recenter(current)
}

func (e *Engine) recenter(current []model.Placement) error {
	moves := e.view.RecenterOnEntities(current)
	if len(moves) == 0 {
		return nil
	}
	e.view.SetSuppressRedraw(true)
	err := e.relocateAssets(moves, func(bool) { e.view.SetSuppressRedraw(false) })
	if err != nil {
		e.view.SetSuppressRedraw(false)
		e.publish()
	}
	return err
}
