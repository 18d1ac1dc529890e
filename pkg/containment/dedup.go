package containment

import (
	"github.com/dd0wney/cluso-canvas/pkg/logging"
)

// RawKind is a low-level membership notification from a drag source
type RawKind int

const (
	RawAdded RawKind = iota
	RawRemoved
)

// RawEvent is one notification, possibly duplicated, emitted during a
// gesture. A move between groups typically arrives as a removed/added pair.
type RawEvent struct {
	Gesture string
	AssetID string
	GroupID string
	Kind    RawKind
}

type gestureEvents struct {
	assetID string
	start   string
	removed string
	added   string
	seen    int
}

// Deduplicator folds the raw notifications of one gesture into a single
// semantic transition.
type Deduplicator struct {
	gestures map[string]*gestureEvents
	logger   logging.Logger
}

// NewDeduplicator creates an empty deduplicator
func NewDeduplicator(logger logging.Logger) *Deduplicator {
	return &Deduplicator{
		gestures: make(map[string]*gestureEvents),
		logger:   logging.OrNop(logger).With(logging.Component("containment")),
	}
}

// Start opens a gesture for an asset whose membership at drag start was
// startGroup.
func (d *Deduplicator) Start(gesture, assetID, startGroup string) {
	d.gestures[gesture] = &gestureEvents{assetID: assetID, start: startGroup}
}

// Observe records a raw notification. Events for unknown gestures, or for
// a different asset than the gesture's, are dropped.
func (d *Deduplicator) Observe(ev RawEvent) {
	g, ok := d.gestures[ev.Gesture]
	if !ok || g.assetID != ev.AssetID {
		d.logger.Debug("dropping raw membership event",
			logging.String("gesture", ev.Gesture), logging.AssetID(ev.AssetID))
		return
	}
	g.seen++
	switch ev.Kind {
	case RawAdded:
		g.added = ev.GroupID
	case RawRemoved:
		if g.removed == "" {
			g.removed = ev.GroupID
		}
		if g.added == ev.GroupID {
			g.added = ""
		}
	}
}

// Settle closes the gesture and returns its one transition. The final
// group is the last group added to, or none when the last event removed
// the asset. A gesture ending where it started yields NoChange.
func (d *Deduplicator) Settle(gesture string) (Transition, bool) {
	g, ok := d.gestures[gesture]
	if !ok {
		return Transition{}, false
	}
	delete(d.gestures, gesture)

	end := g.start
	switch {
	case g.added != "":
		end = g.added
	case g.removed != "":
		end = ""
	}
	t := classify(g.assetID, g.start, end)
	if g.seen > 1 {
		d.logger.Debug("deduplicated raw membership events",
			logging.AssetID(g.assetID), logging.Count(g.seen), logging.Operation(t.Kind.String()))
	}
	return t, true
}
