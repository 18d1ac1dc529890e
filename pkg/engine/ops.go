package engine

import (
	"context"
	"fmt"

	"github.com/dd0wney/cluso-canvas/pkg/logging"
	"github.com/dd0wney/cluso-canvas/pkg/model"
	"github.com/dd0wney/cluso-canvas/pkg/modelservice"
	"github.com/dd0wney/cluso-canvas/pkg/reconcile"
	"github.com/dd0wney/cluso-canvas/pkg/store"
)

// submit routes op through reconciliation. Every settle, and the optimistic
// update itself, ends in a refresh.
func (e *Engine) submit(op *reconcile.Operation) error {
	settled := op.Settled
	op.Settled = func(ok bool) {
		if settled != nil {
			settled(ok)
		}
		e.refresh()
	}
	queued, err := e.reconcile.Submit(op)
	if err != nil {
		e.logger.Warn("operation rejected locally", logging.Operation(op.Name), logging.Error(err))
		e.notify(reconcile.Notification{
			Level:   reconcile.LevelWarning,
			Message: model.UserMessage(err),
			Op:      op.Name,
			Entity:  op.Entity.ID,
			Err:     err,
		})
		return err
	}
	if queued {
		e.logger.Debug("operation queued behind pending request", logging.Operation(op.Name))
	}
	e.refresh()
	return nil
}

// call adapts a typed service call to a reconciliation request
func call(fn func(ctx context.Context) (*modelservice.Change, error)) reconcile.Request {
	return func(ctx context.Context) (any, error) {
		ch, err := fn(ctx)
		if err != nil {
			return nil, err
		}
		return ch, nil
	}
}

// commit writes a canonical result, a *Change or a sequence of them
func (e *Engine) commit(res any) error {
	switch v := res.(type) {
	case nil:
		return nil
	case *modelservice.Change:
		return e.applyChange(v)
	case []*modelservice.Change:
		for _, ch := range v {
			if err := e.applyChange(ch); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("unexpected model service result %T", res)
	}
}

// incident returns relation refs touching any of the assets
func (e *Engine) incident(assetIDs ...string) []store.Ref {
	var out []store.Ref
	for _, id := range assetIDs {
		for _, rid := range e.store.IncidentRelations(id) {
			out = append(out, store.RelationRef(rid))
		}
	}
	return out
}

func assetRefs(ids []string) []store.Ref {
	out := make([]store.Ref, len(ids))
	for i, id := range ids {
		out[i] = store.AssetRef(id)
	}
	return out
}
