// Package store is the in-memory Entity Store: the single owner of canonical
// asset, group and relation data.
package store

import (
	"slices"

	"github.com/dd0wney/cluso-canvas/pkg/logging"
	"github.com/dd0wney/cluso-canvas/pkg/model"
)

// Origin says who produced a value being written to the store
type Origin int

const (
	// OriginLocal is an optimistic or user-edit value; conflicts are rejected
	OriginLocal Origin = iota
	// OriginServer is a Model Service confirmed value; conflicts resolve in its favour
	OriginServer
)

func (o Origin) String() string {
	if o == OriginServer {
		return "server"
	}
	return "local"
}

// Reader is the read-only view of entity data used by the router,
// containment and render projection. All returned entities are copies.
type Reader interface {
	Asset(id string) (*model.Asset, bool)
	Group(id string) (*model.Group, bool)
	Relation(id string) (*model.Relation, bool)
	// Assets returns every asset ordered by ID
	Assets() []*model.Asset
	// Groups returns every group ordered by ID
	Groups() []*model.Group
	// Relations returns every relation in insertion order
	Relations() []*model.Relation
	// GroupOf returns the group listing assetID as a member
	GroupOf(assetID string) (string, bool)
}

// Options configures a Store
type Options struct {
	Logger logging.Logger
	// OnConflict is called for every consistency conflict, resolved or rejected
	OnConflict func(err error, origin Origin)
}

// Store holds assets, groups and relations. It is not safe for concurrent
// use; the engine event loop is its only caller.
type Store struct {
	assets    map[string]*model.Asset
	groups    map[string]*model.Group
	relations map[string]*model.Relation
	relOrder  []string
	memberOf  map[string]string
	// gone holds entities whose removal the server confirmed; Restore
	// never re-creates them
	gone map[Ref]bool

	logger     logging.Logger
	onConflict func(error, Origin)
}

// New creates an empty store
func New(opts Options) *Store {
	return &Store{
		assets:     make(map[string]*model.Asset),
		groups:     make(map[string]*model.Group),
		relations:  make(map[string]*model.Relation),
		relOrder:   make([]string, 0),
		memberOf:   make(map[string]string),
		gone:       make(map[Ref]bool),
		logger:     logging.OrNop(opts.Logger).With(logging.Component("store")),
		onConflict: opts.OnConflict,
	}
}

func (s *Store) conflict(err error, origin Origin) {
	s.logger.Warn("consistency conflict", logging.Error(err), logging.String("origin", origin.String()))
	if s.onConflict != nil {
		s.onConflict(err, origin)
	}
}

// Asset returns a copy of the asset with the given ID
func (s *Store) Asset(id string) (*model.Asset, bool) {
	a, ok := s.assets[id]
	if !ok {
		return nil, false
	}
	return a.Clone(), true
}

// Group returns a copy of the group with the given ID
func (s *Store) Group(id string) (*model.Group, bool) {
	g, ok := s.groups[id]
	if !ok {
		return nil, false
	}
	return g.Clone(), true
}

// Relation returns a copy of the relation with the given ID
func (s *Store) Relation(id string) (*model.Relation, bool) {
	r, ok := s.relations[id]
	if !ok {
		return nil, false
	}
	return r.Clone(), true
}

// HasAsset reports whether an asset exists without copying it
func (s *Store) HasAsset(id string) bool {
	_, ok := s.assets[id]
	return ok
}

// HasGroup reports whether a group exists without copying it
func (s *Store) HasGroup(id string) bool {
	_, ok := s.groups[id]
	return ok
}

// Assets returns copies of every asset ordered by ID
func (s *Store) Assets() []*model.Asset {
	out := make([]*model.Asset, 0, len(s.assets))
	for _, id := range sortedKeys(s.assets) {
		out = append(out, s.assets[id].Clone())
	}
	return out
}

// Groups returns copies of every group ordered by ID
func (s *Store) Groups() []*model.Group {
	out := make([]*model.Group, 0, len(s.groups))
	for _, id := range sortedKeys(s.groups) {
		out = append(out, s.groups[id].Clone())
	}
	return out
}

// Relations returns copies of every relation in insertion order
func (s *Store) Relations() []*model.Relation {
	out := make([]*model.Relation, 0, len(s.relOrder))
	for _, id := range s.relOrder {
		out = append(out, s.relations[id].Clone())
	}
	return out
}

// GroupOf returns the group listing assetID as a member
func (s *Store) GroupOf(assetID string) (string, bool) {
	g, ok := s.memberOf[assetID]
	return g, ok
}

// IsAssetInAnyGroup reports whether the asset is a member of some group
func (s *Store) IsAssetInAnyGroup(assetID string) bool {
	_, ok := s.memberOf[assetID]
	return ok
}

// Counts returns the number of assets, groups and relations
func (s *Store) Counts() (assets, groups, relations int) {
	return len(s.assets), len(s.groups), len(s.relations)
}

// IncidentRelations returns the IDs of relations touching assetID, in insertion order
func (s *Store) IncidentRelations(assetID string) []string {
	out := make([]string, 0)
	for _, id := range s.relOrder {
		if s.relations[id].Touches(assetID) {
			out = append(out, id)
		}
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
