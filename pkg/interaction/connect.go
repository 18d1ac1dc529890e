package interaction

import (
	"fmt"
	"slices"

	"github.com/dd0wney/cluso-canvas/pkg/geom"
	"github.com/dd0wney/cluso-canvas/pkg/logging"
)

// StartConnection enters Drawing from sourceID and computes the candidate
// targets: every other asset whose type has at least one valid relation
// type with the source's, in either direction.
func (m *Machine) StartConnection(sourceID string, pointer geom.Point) error {
	if m.state.Mode != ModeNone {
		return m.reject("StartConnection")
	}
	src, ok := m.entities.Asset(sourceID)
	if !ok {
		return m.reject("StartConnection")
	}

	candidates := make([]string, 0)
	for _, a := range m.entities.Assets() {
		if a.ID == sourceID {
			continue
		}
		if m.catalogue.Compatible(src.Type, a.Type) {
			candidates = append(candidates, a.ID)
		}
	}

	m.collapseOverlay()
	m.state.Hovered = ""
	m.state.Mode = ModeConnect
	m.state.Connection = Connection{
		Phase:      PhaseDrawing,
		SourceID:   sourceID,
		SourceType: src.Type,
		Candidates: candidates,
		Pointer:    pointer,
	}
	m.logger.Debug("connection started", logging.AssetID(sourceID), logging.Count(len(candidates)))
	return nil
}

// MovePointer tracks the free end of the connection line
func (m *Machine) MovePointer(p geom.Point) error {
	switch m.state.Connection.Phase {
	case PhaseDrawing, PhaseTargetHover:
		m.state.Connection.Pointer = p
		return nil
	default:
		return m.reject("MovePointer")
	}
}

// HoverTarget highlights assetID when it is a candidate. Hovering anything
// else leaves no target highlighted.
func (m *Machine) HoverTarget(assetID string) error {
	c := &m.state.Connection
	if c.Phase != PhaseDrawing && c.Phase != PhaseTargetHover {
		return m.reject("HoverTarget")
	}
	if c.IsCandidate(assetID) {
		c.Phase = PhaseTargetHover
		c.TargetID = assetID
		return nil
	}
	c.Phase = PhaseDrawing
	c.TargetID = ""
	return nil
}

// LeaveTarget drops the target highlight
func (m *Machine) LeaveTarget() error {
	c := &m.state.Connection
	if c.Phase != PhaseDrawing && c.Phase != PhaseTargetHover {
		return m.reject("LeaveTarget")
	}
	c.Phase = PhaseDrawing
	c.TargetID = ""
	return nil
}

// CompleteConnection ends the gesture over targetID, or over empty canvas
// when targetID is empty. With exactly one valid relation type the
// connection commits; with several it waits for ChooseType; otherwise it is
// cancelled.
func (m *Machine) CompleteConnection(targetID string) (Outcome, error) {
	c := m.state.Connection
	if c.Phase != PhaseDrawing && c.Phase != PhaseTargetHover {
		return Outcome{}, m.reject("CompleteConnection")
	}
	if targetID == "" || !c.IsCandidate(targetID) {
		m.resetConnection("no target")
		return Outcome{Kind: OutcomeCancelled}, nil
	}
	tgt, ok := m.entities.Asset(targetID)
	if !ok {
		m.resetConnection("target vanished")
		return Outcome{Kind: OutcomeCancelled}, nil
	}

	options := m.catalogue.TypesBetween(c.SourceType, tgt.Type)
	switch len(options) {
	case 0:
		warning := fmt.Sprintf("No relation type connects %s to %s", c.SourceType, tgt.Type)
		m.logger.Warn("connection cancelled", logging.String("reason", warning))
		m.resetConnection("no valid type")
		return Outcome{Kind: OutcomeCancelled, Warning: warning}, nil
	case 1:
		from, to := options[0].Endpoints(c.SourceID, targetID)
		m.resetConnection("commit")
		return Outcome{Kind: OutcomeCommit, Relation: NewRelation{From: from, To: to, Type: options[0].Type}}, nil
	default:
		m.state.Connection.Phase = PhaseDisambiguating
		m.state.Connection.TargetID = targetID
		m.state.Connection.Options = options
		return Outcome{Kind: OutcomeDisambiguate, Options: slices.Clone(options)}, nil
	}
}

// ChooseType picks entry index of the disambiguation list and commits
func (m *Machine) ChooseType(index int) (Outcome, error) {
	c := m.state.Connection
	if c.Phase != PhaseDisambiguating {
		return Outcome{}, m.reject("ChooseType")
	}
	if index < 0 || index >= len(c.Options) {
		return Outcome{}, m.reject("ChooseType")
	}
	opt := c.Options[index]
	from, to := opt.Endpoints(c.SourceID, c.TargetID)
	m.resetConnection("commit")
	return Outcome{Kind: OutcomeCommit, Relation: NewRelation{From: from, To: to, Type: opt.Type}}, nil
}

// CancelConnection abandons the gesture from any connection phase
func (m *Machine) CancelConnection() {
	if m.state.Mode == ModeConnect {
		m.resetConnection("cancel")
	}
}

// resetConnection returns to Idle and clears every connection highlight.
// It runs on every commit and cancel path regardless of outcome.
func (m *Machine) resetConnection(reason string) {
	if m.state.Connection.Active() {
		m.logger.Debug("connection reset", logging.String("reason", reason))
	}
	m.state.Connection = Connection{}
	if m.state.Mode == ModeConnect {
		m.state.Mode = ModeNone
	}
}
