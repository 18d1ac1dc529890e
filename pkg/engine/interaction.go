package engine

import (
	"github.com/dd0wney/cluso-canvas/pkg/geom"
	"github.com/dd0wney/cluso-canvas/pkg/interaction"
	"github.com/dd0wney/cluso-canvas/pkg/logging"
	"github.com/dd0wney/cluso-canvas/pkg/model"
)

// after publishes a frame when an interaction event was accepted
func (e *Engine) after(err error) error {
	if err == nil {
		e.publish()
	}
	return err
}

// Hover enters hover on an asset and expands its glyph overlay
func (e *Engine) Hover(assetID string) error { return e.after(e.machine.Hover(assetID)) }

// Unhover leaves hover on an asset
func (e *Engine) Unhover(assetID string) {
	e.machine.Unhover(assetID)
	e.publish()
}

// Click selects an asset, or toggles it while the modifier is held
func (e *Engine) Click(assetID string) error { return e.after(e.machine.Click(assetID)) }

// ModifierDown enters multi-select
func (e *Engine) ModifierDown() error { return e.after(e.machine.ModifierDown()) }

// ModifierUp leaves multi-select
func (e *Engine) ModifierUp() error { return e.after(e.machine.ModifierUp()) }

// Escape cancels the active connection or drag
func (e *Engine) Escape() {
	e.machine.Escape()
	e.publish()
}

// BackgroundClick cancels a connection or clears the selection
func (e *Engine) BackgroundClick() error { return e.after(e.machine.BackgroundClick()) }

// StartConnection begins drawing a connection from sourceID
func (e *Engine) StartConnection(sourceID string, pointer geom.Point) error {
	return e.after(e.machine.StartConnection(sourceID, pointer))
}

// MovePointer tracks the free end of the connection line
func (e *Engine) MovePointer(p geom.Point) error { return e.after(e.machine.MovePointer(p)) }

// HoverTarget highlights a candidate target
func (e *Engine) HoverTarget(assetID string) error { return e.after(e.machine.HoverTarget(assetID)) }

// LeaveTarget clears the target highlight
func (e *Engine) LeaveTarget() error { return e.after(e.machine.LeaveTarget()) }

// CompleteConnection releases the connection over targetID. A single
// applicable type commits at once; several leave the machine waiting for
// ChooseType.
func (e *Engine) CompleteConnection(targetID string) (interaction.Outcome, error) {
	out, err := e.machine.CompleteConnection(targetID)
	if err != nil {
		return out, err
	}
	return out, e.settleConnection(out)
}

// ChooseType picks one of the offered relation types
func (e *Engine) ChooseType(index int) (interaction.Outcome, error) {
	out, err := e.machine.ChooseType(index)
	if err != nil {
		return out, err
	}
	return out, e.settleConnection(out)
}

// CancelConnection abandons the connection
func (e *Engine) CancelConnection() {
	e.machine.CancelConnection()
	e.publish()
}

func (e *Engine) settleConnection(out interaction.Outcome) error {
	switch out.Kind {
	case interaction.OutcomeCommit:
		rel := out.Relation
		_, err := e.CreateRelation(rel.From, rel.To, rel.Type.Name, rel.Type.Label)
		return err
	case interaction.OutcomeCancelled:
		if out.Warning != "" {
			e.warn(out.Warning)
		}
	}
	e.publish()
	return nil
}

// StartAssetDrag begins dragging an asset, or the selection it belongs to
func (e *Engine) StartAssetDrag(assetID string, pointer geom.Point) error {
	return e.after(e.machine.StartAssetDrag(assetID, pointer))
}

// StartGroupDrag begins dragging a group with its members
func (e *Engine) StartGroupDrag(groupID string, pointer geom.Point) error {
	return e.after(e.machine.StartGroupDrag(groupID, pointer))
}

// DragTo moves the drag preview
func (e *Engine) DragTo(pointer geom.Point) error { return e.after(e.machine.DragTo(pointer)) }

// CancelDrag drops the drag preview
func (e *Engine) CancelDrag() {
	e.machine.CancelDrag()
	e.publish()
}

// EndDrag finishes a drag. A single asset dropped into, out of or between
// groups issues one membership change; other drags issue relocations.
func (e *Engine) EndDrag(pointer geom.Point) error {
	res, err := e.machine.EndDrag(pointer)
	if err != nil {
		return err
	}
	if len(res.Moves) == 0 {
		e.publish()
		return nil
	}
	switch {
	case res.Kind == interaction.DragGroup:
		return e.RelocateGroup(res.Moves[0].ID, res.Moves[0].Position)
	case len(res.Moves) == 1:
		return e.dropAsset(res.Moves[0])
	default:
		e.logger.Debug("multi-asset drag", logging.Count(len(res.Moves)))
		return e.RelocateAssets(res.Moves)
	}
}

// dropAsset places an asset at the end of its drag, changing membership
// when its centre landed in a different group
func (e *Engine) dropAsset(p model.Placement) error {
	centre := geom.RectAt(p.Position, e.groups.Shapes().Asset).Center()
	t := e.groups.PlanDrop(p.ID, centre)
	pos := p.Position
	return e.changeMembership(t, &pos)
}

// TakeOverlaySteps returns and clears the overlay expand/collapse log
func (e *Engine) TakeOverlaySteps() []interaction.OverlayStep {
	return e.machine.TakeOverlaySteps()
}

// Pan scrolls the viewport by a screen delta
func (e *Engine) Pan(delta geom.Point) {
	e.view.Pan(delta)
	e.publish()
}

// Zoom scales the viewport about its centre
func (e *Engine) Zoom(factor float64) {
	e.view.ZoomBy(factor)
	e.publish()
}
