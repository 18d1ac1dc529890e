package interaction

import (
	"slices"

	"github.com/dd0wney/cluso-canvas/pkg/geom"
	"github.com/dd0wney/cluso-canvas/pkg/logging"
	"github.com/dd0wney/cluso-canvas/pkg/model"
	"github.com/dd0wney/cluso-canvas/pkg/schema"
	"github.com/dd0wney/cluso-canvas/pkg/store"
)

// Observer is told about rejected events
type Observer interface {
	ObserveInvalidTransition(event string)
}

// OverlayHeight is the height of the glyph bar drawn above a hovered asset
const OverlayHeight = 28.0

// OverlayRect returns the glyph-bar geometry for an asset rectangle
func OverlayRect(asset geom.Rect) geom.Rect {
	return geom.Rect{
		Min:  geom.Point{X: asset.Min.X, Y: asset.Min.Y - OverlayHeight},
		Size: geom.Size{Width: asset.Size.Width, Height: OverlayHeight},
	}
}

// Machine owns the interaction state. Every event either applies a full
// transition or returns an invalid-transition error and changes nothing.
type Machine struct {
	state     State
	entities  store.Reader
	catalogue *schema.Catalogue
	observer  Observer
	logger    logging.Logger

	// overlayLog records overlay expand/collapse steps in order
	overlayLog []OverlayStep
}

// OverlayStep is one expand or collapse of an asset's glyph bar
type OverlayStep struct {
	AssetID  string
	Expanded bool
}

// NewMachine creates an idle machine reading entities from r
func NewMachine(r store.Reader, c *schema.Catalogue, obs Observer, logger logging.Logger) *Machine {
	return &Machine{
		entities:  r,
		catalogue: c,
		observer:  obs,
		logger:    logging.OrNop(logger).With(logging.Component("interaction")),
	}
}

// State returns a copy of the current state
func (m *Machine) State() State { return m.state.Clone() }

// Mode returns the active modal interaction
func (m *Machine) Mode() Mode { return m.state.Mode }

// Connection returns the connection-drawing state
func (m *Machine) Connection() Connection { return m.State().Connection }

// TakeOverlaySteps returns and clears the overlay step log
func (m *Machine) TakeOverlaySteps() []OverlayStep {
	out := m.overlayLog
	m.overlayLog = nil
	return out
}

func (m *Machine) describe() string {
	if m.state.Mode == ModeConnect {
		return m.state.Mode.String() + "/" + m.state.Connection.Phase.String()
	}
	return m.state.Mode.String()
}

func (m *Machine) reject(event string) error {
	err := model.InvalidTransitionError(event, m.describe())
	m.logger.Debug("ignored event", logging.State(m.describe()), logging.Error(err))
	if m.observer != nil {
		m.observer.ObserveInvalidTransition(event)
	}
	return err
}

// Hover makes assetID the hovered asset. The previous asset's overlay is
// collapsed before the new one expands. Hover entry is suppressed while a
// connection is being drawn.
func (m *Machine) Hover(assetID string) error {
	if m.state.Mode == ModeConnect {
		return nil
	}
	if _, ok := m.entities.Asset(assetID); !ok {
		return m.reject("Hover")
	}
	if m.state.Hovered == assetID {
		return nil
	}
	m.collapseOverlay()
	m.state.Hovered = assetID
	m.state.Overlay = assetID
	m.overlayLog = append(m.overlayLog, OverlayStep{AssetID: assetID, Expanded: true})
	return nil
}

// Unhover clears hover if assetID is the hovered asset
func (m *Machine) Unhover(assetID string) {
	if m.state.Hovered != assetID {
		return
	}
	m.collapseOverlay()
	m.state.Hovered = ""
}

func (m *Machine) collapseOverlay() {
	if m.state.Overlay == "" {
		return
	}
	m.overlayLog = append(m.overlayLog, OverlayStep{AssetID: m.state.Overlay, Expanded: false})
	m.state.Overlay = ""
}

// ModifierDown enters multi-select
func (m *Machine) ModifierDown() error {
	switch m.state.Mode {
	case ModeMultiSelect:
		return nil
	case ModeNone:
		m.state.Mode = ModeMultiSelect
		return nil
	default:
		return m.reject("ModifierDown")
	}
}

// ModifierUp leaves multi-select; the selection is kept
func (m *Machine) ModifierUp() error {
	if m.state.Mode != ModeMultiSelect {
		return nil
	}
	m.state.Mode = ModeNone
	return nil
}

// Click selects an asset. In multi-select it toggles membership of the
// selection set; otherwise it replaces the set.
func (m *Machine) Click(assetID string) error {
	if _, ok := m.entities.Asset(assetID); !ok {
		return m.reject("Click")
	}
	switch m.state.Mode {
	case ModeMultiSelect:
		if i := slices.Index(m.state.Selected, assetID); i >= 0 {
			m.state.Selected = slices.Delete(slices.Clone(m.state.Selected), i, i+1)
		} else {
			sel := append(slices.Clone(m.state.Selected), assetID)
			slices.Sort(sel)
			m.state.Selected = sel
		}
		return nil
	case ModeNone:
		m.state.Selected = []string{assetID}
		return nil
	default:
		return m.reject("Click")
	}
}

// ClearSelection empties the selection set
func (m *Machine) ClearSelection() {
	m.state.Selected = nil
}

// Forget drops references to an entity that no longer exists
func (m *Machine) Forget(assetID string) {
	if m.state.Hovered == assetID {
		m.Unhover(assetID)
	}
	if i := slices.Index(m.state.Selected, assetID); i >= 0 {
		m.state.Selected = slices.Delete(slices.Clone(m.state.Selected), i, i+1)
	}
	if c := m.state.Connection; c.Active() && (c.SourceID == assetID || c.TargetID == assetID) {
		m.resetConnection("entity removed")
	}
}

// Escape cancels whatever modal interaction is active
func (m *Machine) Escape() {
	switch m.state.Mode {
	case ModeConnect:
		m.resetConnection("escape")
	case ModeDrag:
		m.CancelDrag()
	}
}

// BackgroundClick cancels a connection, or clears the selection when
// nothing modal is active. It is rejected mid-drag.
func (m *Machine) BackgroundClick() error {
	switch m.state.Mode {
	case ModeDrag:
		return m.reject("BackgroundClick")
	case ModeConnect:
		m.resetConnection("background click")
	case ModeNone:
		m.ClearSelection()
		m.collapseOverlay()
		m.state.Hovered = ""
	}
	return nil
}
