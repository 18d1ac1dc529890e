// Package containment enforces the asset-to-group membership invariant and
// drives add, remove and move transitions plus group expand and collapse.
package containment

import (
	"fmt"
	"slices"

	"github.com/dd0wney/cluso-canvas/pkg/geom"
	"github.com/dd0wney/cluso-canvas/pkg/logging"
	"github.com/dd0wney/cluso-canvas/pkg/model"
	"github.com/dd0wney/cluso-canvas/pkg/store"
)

// State is an asset's position in the membership state machine
type State int

const (
	Ungrouped State = iota
	PendingAdd
	Grouped
	PendingRemove
	PendingMove
)

func (s State) String() string {
	switch s {
	case Ungrouped:
		return "ungrouped"
	case PendingAdd:
		return "pending-add"
	case Grouped:
		return "grouped"
	case PendingRemove:
		return "pending-remove"
	case PendingMove:
		return "pending-move"
	default:
		return "unknown"
	}
}

// Kind is the semantic membership change of one gesture
type Kind int

const (
	NoChange Kind = iota
	Add
	Remove
	Move
)

func (k Kind) String() string {
	switch k {
	case Add:
		return "add"
	case Remove:
		return "remove"
	case Move:
		return "move"
	default:
		return "none"
	}
}

// OperationKind maps a transition kind to its pending-operation kind
func (k Kind) OperationKind() model.OperationKind {
	switch k {
	case Add:
		return model.OpAddToGroup
	case Remove:
		return model.OpRemoveFromGroup
	default:
		return model.OpMoveBetweenGroups
	}
}

// Transition is one membership change for one asset. From or To is empty
// when the asset is, or becomes, ungrouped.
type Transition struct {
	AssetID string
	Kind    Kind
	From    string
	To      string
}

func (t Transition) String() string {
	return fmt.Sprintf("%s %s (%q -> %q)", t.Kind, t.AssetID, t.From, t.To)
}

// classify derives the kind from the endpoints of a move
func classify(assetID, from, to string) Transition {
	t := Transition{AssetID: assetID, From: from, To: to}
	switch {
	case from == to:
		t.Kind = NoChange
	case from == "":
		t.Kind = Add
	case to == "":
		t.Kind = Remove
	default:
		t.Kind = Move
	}
	return t
}

// Shapes holds the rendered sizes the manager needs for geometry
type Shapes struct {
	Asset          geom.Size `yaml:"asset"`
	CollapsedGroup geom.Size `yaml:"collapsedGroup"`
	GroupPadding   float64   `yaml:"groupPadding"`
}

// DefaultShapes matches the host shell's node and placeholder sizes
func DefaultShapes() Shapes {
	return Shapes{
		Asset:          geom.Size{Width: 120, Height: 60},
		CollapsedGroup: geom.Size{Width: 160, Height: 48},
		GroupPadding:   16,
	}
}

// Manager owns the pending side of the membership state machine. The
// settled side (who is grouped where) lives in the store.
type Manager struct {
	store   *store.Store
	shapes  Shapes
	pending map[string]Transition
	logger  logging.Logger
}

// NewManager creates a manager writing membership to st
func NewManager(st *store.Store, shapes Shapes, logger logging.Logger) *Manager {
	return &Manager{
		store:   st,
		shapes:  shapes,
		pending: make(map[string]Transition),
		logger:  logging.OrNop(logger).With(logging.Component("containment")),
	}
}

// Shapes returns the configured shape sizes
func (m *Manager) Shapes() Shapes { return m.shapes }

// State returns the asset's membership state
func (m *Manager) State(assetID string) State {
	if t, ok := m.pending[assetID]; ok {
		switch t.Kind {
		case Add:
			return PendingAdd
		case Remove:
			return PendingRemove
		default:
			return PendingMove
		}
	}
	if m.store.IsAssetInAnyGroup(assetID) {
		return Grouped
	}
	return Ungrouped
}

// Pending returns the in-flight transition for an asset
func (m *Manager) Pending(assetID string) (Transition, bool) {
	t, ok := m.pending[assetID]
	return t, ok
}

// GroupingInProgress reports whether any asset entering or leaving the group
// is pending.
func (m *Manager) GroupingInProgress(groupID string) bool {
	for _, t := range m.pending {
		if t.From == groupID || t.To == groupID {
			return true
		}
	}
	return false
}

// AnyGroupingInProgress reports whether some membership change is in flight.
// Router passes are suppressed while it holds.
func (m *Manager) AnyGroupingInProgress() bool {
	return len(m.pending) > 0
}

// GroupsInProgress returns the IDs of groups with pending members, sorted
func (m *Manager) GroupsInProgress() []string {
	seen := make(map[string]bool)
	for _, t := range m.pending {
		if t.From != "" {
			seen[t.From] = true
		}
		if t.To != "" {
			seen[t.To] = true
		}
	}
	out := make([]string, 0, len(seen))
	for g := range seen {
		out = append(out, g)
	}
	slices.Sort(out)
	return out
}

// DropTarget returns the group whose stored bounds contain point. Only
// expanded groups accept drops; when several overlap the smallest wins,
// then the lowest ID.
func (m *Manager) DropTarget(point geom.Point) string {
	best := ""
	bestArea := 0.0
	for _, g := range m.store.Groups() {
		if !g.Expanded || !g.Bounds().Contains(point) {
			continue
		}
		area := g.Bounds().Area()
		if best == "" || area < bestArea {
			best, bestArea = g.ID, area
		}
	}
	return best
}

// PlanDrop decides the transition for an asset whose drag ended with its
// centre at point. A gesture that starts and ends in the same group is a
// NoChange transition and must not be issued.
func (m *Manager) PlanDrop(assetID string, point geom.Point) Transition {
	from, _ := m.store.GroupOf(assetID)
	return classify(assetID, from, m.DropTarget(point))
}

// Begin applies a transition optimistically and marks the asset pending
func (m *Manager) Begin(t Transition) error {
	if t.Kind == NoChange {
		return nil
	}
	if _, busy := m.pending[t.AssetID]; busy {
		return model.InvalidTransitionError("Begin", m.State(t.AssetID).String())
	}
	if current, _ := m.store.GroupOf(t.AssetID); current != t.From {
		return model.ConflictError(t.AssetID, t.From, current)
	}
	if err := m.store.Assign(t.AssetID, t.To); err != nil {
		return err
	}
	m.pending[t.AssetID] = t
	m.logger.Debug("membership transition started",
		logging.AssetID(t.AssetID), logging.Operation(t.Kind.String()),
		logging.String("from", t.From), logging.String("to", t.To))
	return nil
}

// Complete settles a pending transition after the server acknowledged it
func (m *Manager) Complete(assetID string) {
	if t, ok := m.pending[assetID]; ok {
		delete(m.pending, assetID)
		m.logger.Debug("membership transition confirmed",
			logging.AssetID(assetID), logging.Operation(t.Kind.String()))
	}
}

// Abort drops a pending transition. The caller restores the store.
func (m *Manager) Abort(assetID string) {
	if t, ok := m.pending[assetID]; ok {
		delete(m.pending, assetID)
		m.logger.Info("membership transition rolled back",
			logging.AssetID(assetID), logging.Operation(t.Kind.String()))
	}
}

// Forget drops pending state for an asset that no longer exists
func (m *Manager) Forget(assetID string) {
	delete(m.pending, assetID)
}

// SetExpanded writes a group's persisted expanded flag
func (m *Manager) SetExpanded(groupID string, expanded bool) error {
	g, ok := m.store.Group(groupID)
	if !ok {
		return model.GroupNotFoundError("SetExpanded", groupID)
	}
	if g.Expanded == expanded {
		return nil
	}
	g.Expanded = expanded
	return m.store.UpsertGroup(*g, store.OriginLocal)
}

// Collapse hides member rendering and clears the expanded flag
func (m *Manager) Collapse(groupID string) error { return m.SetExpanded(groupID, false) }

// Expand shows members and sets the expanded flag
func (m *Manager) Expand(groupID string) error { return m.SetExpanded(groupID, true) }
