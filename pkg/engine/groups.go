package engine

import (
	"context"

	"github.com/dd0wney/cluso-canvas/pkg/geom"
	"github.com/dd0wney/cluso-canvas/pkg/model"
	"github.com/dd0wney/cluso-canvas/pkg/modelservice"
	"github.com/dd0wney/cluso-canvas/pkg/reconcile"
	"github.com/dd0wney/cluso-canvas/pkg/store"
)

// CreateGroup creates a group around ungrouped assets. The returned ID is a
// local placeholder until the server's group arrives.
func (e *Engine) CreateGroup(label string, pos geom.Point, size geom.Size, resizable bool, members []string) (string, error) {
	id := tempID("group")
	req := modelservice.CreateGroupRequest{
		Label: label, Position: pos, Size: size, Resizable: resizable,
		Members: append([]string(nil), members...),
	}
	keys := append([]store.Ref{store.GroupRef(id)}, assetRefs(members)...)
	err := e.submit(&reconcile.Operation{
		Name:   modelservice.OpCreateGroup,
		Kind:   model.OpCreate,
		Entity: store.GroupRef(id),
		Keys:   keys,
		Apply: func() (any, error) {
			g := model.Group{
				ID: id, Label: label, Position: pos, Size: size,
				Expanded: true, Resizable: resizable, Members: req.Members,
			}
			return g, e.store.UpsertGroup(g, store.OriginLocal)
		},
		Request: call(func(ctx context.Context) (*modelservice.Change, error) {
			return e.service.CreateGroup(ctx, req)
		}),
		Commit: func(res any) error {
			if _, err := e.store.RemoveGroup(id, false); err != nil && !model.IsNotFound(err) {
				return err
			}
			return e.commit(res)
		},
	})
	return id, err
}

// groupKeys serializes a group operation against the group and its members
func (e *Engine) groupKeys(id string) []store.Ref {
	keys := []store.Ref{store.GroupRef(id)}
	if g, ok := e.store.Group(id); ok {
		keys = append(keys, assetRefs(g.Members)...)
	}
	return keys
}

// RelocateGroup moves a group; its members move by the same delta
func (e *Engine) RelocateGroup(id string, pos geom.Point) error {
	return e.submit(&reconcile.Operation{
		Name:   modelservice.OpRelocateGroup,
		Kind:   model.OpRelocate,
		Entity: store.GroupRef(id),
		Keys:   e.groupKeys(id),
		Apply: func() (any, error) {
			g, ok := e.store.Group(id)
			if !ok {
				return nil, model.GroupNotFoundError("RelocateGroup", id)
			}
			delta := pos.Sub(g.Position)
			g.Position = pos
			if err := e.store.UpsertGroup(*g, store.OriginLocal); err != nil {
				return nil, err
			}
			for _, m := range g.Members {
				a, ok := e.store.Asset(m)
				if !ok {
					continue
				}
				if err := e.moveAsset(m, a.Position.Add(delta)); err != nil {
					return nil, err
				}
			}
			return pos, nil
		},
		Request: call(func(ctx context.Context) (*modelservice.Change, error) {
			return e.service.RelocateGroup(ctx, modelservice.RelocateGroupRequest{ID: id, Position: pos})
		}),
		Commit: e.commit,
	})
}

// updateGroup submits a single-group edit
func (e *Engine) updateGroup(name string, kind model.OperationKind, id string,
	mutate func(g *model.Group) error, req func(ctx context.Context) (*modelservice.Change, error)) error {
	return e.submit(&reconcile.Operation{
		Name:   name,
		Kind:   kind,
		Entity: store.GroupRef(id),
		Apply: func() (any, error) {
			g, ok := e.store.Group(id)
			if !ok {
				return nil, model.GroupNotFoundError(name, id)
			}
			if err := mutate(g); err != nil {
				return nil, err
			}
			return *g, e.store.UpsertGroup(*g, store.OriginLocal)
		},
		Request: call(req),
		Commit:  e.commit,
	})
}

// ResizeGroup changes a resizable group's stored size
func (e *Engine) ResizeGroup(id string, size geom.Size) error {
	return e.updateGroup(modelservice.OpResizeGroup, model.OpResize, id,
		func(g *model.Group) error {
			if !g.Resizable {
				return model.NewError(modelservice.OpResizeGroup).Group(id).Message("group is not resizable").Err()
			}
			g.Size = size
			return nil
		},
		func(ctx context.Context) (*modelservice.Change, error) {
			return e.service.ResizeGroup(ctx, modelservice.ResizeGroupRequest{ID: id, Size: size})
		})
}

// RenameGroup relabels a group
func (e *Engine) RenameGroup(id, label string) error {
	return e.updateGroup(modelservice.OpRenameGroup, model.OpRename, id,
		func(g *model.Group) error {
			g.Label = label
			return nil
		},
		func(ctx context.Context) (*modelservice.Change, error) {
			return e.service.RenameGroup(ctx, modelservice.RenameGroupRequest{ID: id, Label: label})
		})
}

// SetGroupExpanded expands or collapses a group and persists the flag
func (e *Engine) SetGroupExpanded(id string, expanded bool) error {
	return e.submit(&reconcile.Operation{
		Name:   modelservice.OpSetGroupExpanded,
		Kind:   model.OpSetExpanded,
		Entity: store.GroupRef(id),
		Apply: func() (any, error) {
			return expanded, e.groups.SetExpanded(id, expanded)
		},
		Request: call(func(ctx context.Context) (*modelservice.Change, error) {
			return e.service.SetGroupExpanded(ctx, modelservice.SetGroupExpandedRequest{ID: id, Expanded: expanded})
		}),
		Commit: e.commit,
	})
}

// ToggleGroup flips a group between expanded and collapsed
func (e *Engine) ToggleGroup(id string) error {
	g, ok := e.store.Group(id)
	if !ok {
		return model.GroupNotFoundError("ToggleGroup", id)
	}
	return e.SetGroupExpanded(id, !g.Expanded)
}

// DeleteGroup deletes a group. Members are ungrouped, or deleted with their
// relations when deleteMembers is set.
func (e *Engine) DeleteGroup(id string, deleteMembers bool) error {
	return e.submit(&reconcile.Operation{
		Name:   modelservice.OpDeleteGroup,
		Kind:   model.OpDelete,
		Entity: store.GroupRef(id),
		Keys:   e.groupKeys(id),
		TouchesFn: func() []store.Ref {
			touches := e.groupKeys(id)
			if g, ok := e.store.Group(id); ok && deleteMembers {
				touches = append(touches, e.incident(g.Members...)...)
			}
			return touches
		},
		Apply: func() (any, error) {
			deleted, err := e.store.RemoveGroup(id, deleteMembers)
			if err != nil {
				return nil, err
			}
			for _, m := range deleted {
				e.machine.Forget(m)
				e.groups.Forget(m)
			}
			return deleted, nil
		},
		Request: call(func(ctx context.Context) (*modelservice.Change, error) {
			return e.service.DeleteGroup(ctx, modelservice.DeleteGroupRequest{ID: id, DeleteMembers: deleteMembers})
		}),
		Commit: e.commit,
	})
}
