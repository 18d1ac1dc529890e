// Package interaction is the pointer and keyboard state machine: hover,
// multi-select, drag and connection drawing. It holds only transient state
// that is never persisted; entity data is read from the store.
package interaction

import (
	"github.com/dd0wney/cluso-canvas/pkg/geom"
	"github.com/dd0wney/cluso-canvas/pkg/schema"
)

// Mode is the single active modal interaction
type Mode int

const (
	ModeNone Mode = iota
	ModeDrag
	ModeConnect
	ModeMultiSelect
)

func (m Mode) String() string {
	switch m {
	case ModeDrag:
		return "drag"
	case ModeConnect:
		return "connect"
	case ModeMultiSelect:
		return "multi-select"
	default:
		return "none"
	}
}

// MarshalText encodes the mode by name
func (m Mode) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

// Phase is the connection-drawing sub-state
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseDrawing
	PhaseTargetHover
	PhaseDisambiguating
)

func (p Phase) String() string {
	switch p {
	case PhaseDrawing:
		return "drawing"
	case PhaseTargetHover:
		return "target-hover"
	case PhaseDisambiguating:
		return "disambiguating"
	default:
		return "idle"
	}
}

// MarshalText encodes the phase by name
func (p Phase) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

// Connection is the connection-drawing state. The zero value is Idle with
// no highlights.
type Connection struct {
	Phase      Phase           `json:"phase"`
	SourceID   string          `json:"sourceId,omitempty"`
	SourceType string          `json:"sourceType,omitempty"`
	Candidates []string        `json:"candidates,omitempty"`
	TargetID   string          `json:"targetId,omitempty"`
	Options    []schema.Option `json:"options,omitempty"`
	Pointer    geom.Point      `json:"pointer"`
}

// IsCandidate reports whether assetID is a valid target for the drawing
func (c Connection) IsCandidate(assetID string) bool {
	for _, id := range c.Candidates {
		if id == assetID {
			return true
		}
	}
	return false
}

// Active reports whether a connection is being drawn or disambiguated
func (c Connection) Active() bool { return c.Phase != PhaseIdle }

// DragKind says what is being dragged
type DragKind int

const (
	DragAssets DragKind = iota
	DragGroup
)

// Drag is an in-progress drag. Nothing is written to the store until the
// drag ends.
type Drag struct {
	Kind    DragKind              `json:"kind"`
	IDs     []string              `json:"ids"`
	Start   geom.Point            `json:"start"`
	Delta   geom.Point            `json:"delta"`
	Origins map[string]geom.Point `json:"origins"`
}

// State is the whole transient interaction state, one serializable value
type State struct {
	Mode    Mode   `json:"mode"`
	Hovered string `json:"hovered,omitempty"`
	// Overlay is the asset whose glyph bar is expanded; at most one
	Overlay    string     `json:"overlay,omitempty"`
	Selected   []string   `json:"selected,omitempty"`
	Connection Connection `json:"connection"`
	Drag       *Drag      `json:"drag,omitempty"`
}

// IsSelected reports whether assetID is in the selection set
func (s State) IsSelected(assetID string) bool {
	for _, id := range s.Selected {
		if id == assetID {
			return true
		}
	}
	return false
}

// Clone deep-copies the state so callers cannot alias the machine's slices
func (s State) Clone() State {
	out := s
	out.Selected = append([]string(nil), s.Selected...)
	out.Connection.Candidates = append([]string(nil), s.Connection.Candidates...)
	out.Connection.Options = append([]schema.Option(nil), s.Connection.Options...)
	if s.Drag != nil {
		d := *s.Drag
		d.IDs = append([]string(nil), s.Drag.IDs...)
		d.Origins = make(map[string]geom.Point, len(s.Drag.Origins))
		for k, v := range s.Drag.Origins {
			d.Origins[k] = v
		}
		out.Drag = &d
	}
	return out
}

// OutcomeKind is how a connection gesture ended
type OutcomeKind int

const (
	OutcomeNone OutcomeKind = iota
	OutcomeCommit
	OutcomeDisambiguate
	OutcomeCancelled
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeCommit:
		return "commit"
	case OutcomeDisambiguate:
		return "disambiguate"
	case OutcomeCancelled:
		return "cancelled"
	default:
		return "none"
	}
}

// NewRelation is the relation a committed connection asks to create
type NewRelation struct {
	From string
	To   string
	Type schema.RelationType
}

// Outcome is the result of completing or choosing on a connection
type Outcome struct {
	Kind     OutcomeKind
	Relation NewRelation
	Options  []schema.Option
	// Warning is set when a gesture was cancelled for having no valid type
	Warning string
}
