package engine

import (
	"context"

	"github.com/dd0wney/cluso-canvas/pkg/model"
	"github.com/dd0wney/cluso-canvas/pkg/modelservice"
	"github.com/dd0wney/cluso-canvas/pkg/reconcile"
	"github.com/dd0wney/cluso-canvas/pkg/store"
)

// CreateRelation creates an asserted relation of a catalogue type. The
// returned ID is a local placeholder until the server's relation arrives.
func (e *Engine) CreateRelation(from, to, relType, label string) (string, error) {
	id := tempID("relation")
	req := modelservice.CreateRelationRequest{From: from, To: to, Type: relType, Label: label}
	err := e.submit(&reconcile.Operation{
		Name:   modelservice.OpCreateRelation,
		Kind:   model.OpCreate,
		Entity: store.RelationRef(id),
		Apply: func() (any, error) {
			src, ok := e.store.Asset(from)
			if !ok {
				return nil, model.AssetNotFoundError(modelservice.OpCreateRelation, from)
			}
			dst, ok := e.store.Asset(to)
			if !ok {
				return nil, model.AssetNotFoundError(modelservice.OpCreateRelation, to)
			}
			if !e.catalogue.Permits(relType, src.Type, dst.Type) {
				return nil, model.NewError(modelservice.OpCreateRelation).Relation(id).
					Message("relation type " + relType + " is not permitted between " + src.Type + " and " + dst.Type).Err()
			}
			r := model.Relation{ID: id, From: from, To: to, Type: relType, Label: label, Asserted: true, Visible: true}
			return r, e.store.UpsertRelation(r, store.OriginLocal)
		},
		Request: call(func(ctx context.Context) (*modelservice.Change, error) {
			return e.service.CreateRelation(ctx, req)
		}),
		Commit: func(res any) error {
			if err := e.store.RemoveRelation(id); err != nil && !model.IsNotFound(err) {
				return err
			}
			return e.commit(res)
		},
	})
	return id, err
}

// RedefineRelation changes an asserted relation's type
func (e *Engine) RedefineRelation(id, relType, label string) error {
	return e.updateRelation(modelservice.OpRedefineRelation, model.OpRedefine, id,
		func(r *model.Relation) error {
			src, _ := e.store.Asset(r.From)
			dst, _ := e.store.Asset(r.To)
			if src != nil && dst != nil && !e.catalogue.Permits(relType, src.Type, dst.Type) {
				return model.NewError(modelservice.OpRedefineRelation).Relation(id).
					Message("relation type " + relType + " is not permitted").Err()
			}
			r.Type = relType
			r.Label = label
			return nil
		},
		func(ctx context.Context) (*modelservice.Change, error) {
			return e.service.RedefineRelation(ctx, modelservice.RedefineRelationRequest{ID: id, Type: relType, Label: label})
		})
}

// SetRelationHidden hides or unhides a relation
func (e *Engine) SetRelationHidden(id string, hidden bool) error {
	return e.updateRelation(modelservice.OpSetRelationHidden, model.OpSetHidden, id,
		func(r *model.Relation) error {
			r.Hidden = hidden
			return nil
		},
		func(ctx context.Context) (*modelservice.Change, error) {
			return e.service.SetRelationHidden(ctx, modelservice.SetRelationHiddenRequest{ID: id, Hidden: hidden})
		})
}

// DeleteRelation deletes an asserted relation. The edge stays drawn, busy
// and without interactions, until the server confirms.
func (e *Engine) DeleteRelation(id string) error {
	return e.updateRelation(modelservice.OpDeleteRelation, model.OpDelete, id,
		func(r *model.Relation) error {
			if !r.Asserted {
				return model.NewError(modelservice.OpDeleteRelation).Relation(id).
					Message("inferred relations cannot be deleted").Err()
			}
			r.Deleting = true
			return nil
		},
		func(ctx context.Context) (*modelservice.Change, error) {
			return e.service.DeleteRelation(ctx, id)
		})
}

// DeleteEdge deletes the relation behind a rendered edge
func (e *Engine) DeleteEdge(edgeID string) error {
	if !e.IsEdgeDeletable(edgeID) {
		return model.NewError("DeleteEdge").Relation(edgeID).Message("edge is not deletable").Err()
	}
	return e.DeleteRelation(edgeID)
}

func (e *Engine) updateRelation(name string, kind model.OperationKind, id string,
	mutate func(r *model.Relation) error, req func(ctx context.Context) (*modelservice.Change, error)) error {
	return e.submit(&reconcile.Operation{
		Name:   name,
		Kind:   kind,
		Entity: store.RelationRef(id),
		Apply: func() (any, error) {
			r, ok := e.store.Relation(id)
			if !ok {
				return nil, model.RelationNotFoundError(name, id)
			}
			if err := mutate(r); err != nil {
				return nil, err
			}
			return *r, e.store.UpsertRelation(*r, store.OriginLocal)
		},
		Request: call(req),
		Commit:  e.commit,
	})
}
