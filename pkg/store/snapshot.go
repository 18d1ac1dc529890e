package store

import (
	"slices"

	"github.com/dd0wney/cluso-canvas/pkg/logging"
	"github.com/dd0wney/cluso-canvas/pkg/model"
)

// Ref names one entity in the store
type Ref struct {
	Kind model.EntityKind
	ID   string
}

// AssetRef, GroupRef and RelationRef build refs
func AssetRef(id string) Ref    { return Ref{Kind: model.KindAsset, ID: id} }
func GroupRef(id string) Ref    { return Ref{Kind: model.KindGroup, ID: id} }
func RelationRef(id string) Ref { return Ref{Kind: model.KindRelation, ID: id} }

// Capture is a point-in-time copy of selected entities, including their
// absence, used to roll back an optimistic mutation.
type Capture struct {
	assets    map[string]*model.Asset
	groups    map[string]*model.Group
	relations map[string]*model.Relation
	relIndex  map[string]int
}

// Capture copies the referenced entities. Missing entities are recorded as
// absent so that Restore deletes anything created since.
func (s *Store) Capture(refs ...Ref) *Capture {
	c := &Capture{
		assets:    make(map[string]*model.Asset),
		groups:    make(map[string]*model.Group),
		relations: make(map[string]*model.Relation),
		relIndex:  make(map[string]int),
	}
	for _, ref := range refs {
		if ref.ID == "" {
			continue
		}
		switch ref.Kind {
		case model.KindAsset:
			if a, ok := s.assets[ref.ID]; ok {
				c.assets[ref.ID] = a.Clone()
			} else {
				c.assets[ref.ID] = nil
			}
		case model.KindGroup:
			if g, ok := s.groups[ref.ID]; ok {
				c.groups[ref.ID] = g.Clone()
			} else {
				c.groups[ref.ID] = nil
			}
		case model.KindRelation:
			if r, ok := s.relations[ref.ID]; ok {
				c.relations[ref.ID] = r.Clone()
				c.relIndex[ref.ID] = slices.Index(s.relOrder, ref.ID)
			} else {
				c.relations[ref.ID] = nil
			}
		}
	}
	return c
}

// ConfirmRemoved records that the server deleted the referenced entities.
// A later server upsert of the same ID clears the mark.
func (s *Store) ConfirmRemoved(refs ...Ref) {
	for _, ref := range refs {
		if ref.ID != "" {
			s.gone[ref] = true
		}
	}
}

// Restore writes a capture back, bypassing conflict checks. Captured
// assets get their captured membership back; captured groups get their own
// fields back but keep whatever other assets joined them since, so
// rolling back one asset never clobbers another asset's membership.
// Entities whose removal the server confirmed stay removed.
func (s *Store) Restore(c *Capture) {
	for _, id := range sortedKeys(c.groups) {
		g := c.groups[id]
		cur, exists := s.groups[id]
		switch {
		case g == nil:
			if exists {
				for _, m := range slices.Clone(cur.Members) {
					s.unlink(m)
				}
				delete(s.groups, id)
			}
		case exists:
			next := g.Clone()
			next.Members = cur.Members
			s.groups[id] = next
		case s.gone[GroupRef(id)]:
			s.logger.Debug("not restoring removed group", logging.GroupID(id))
		default:
			next := g.Clone()
			next.Members = nil
			s.groups[id] = next
			for _, m := range g.Members {
				if _, ok := s.assets[m]; !ok {
					continue
				}
				if _, grouped := s.memberOf[m]; !grouped {
					s.link(m, id)
				}
			}
		}
	}

	for _, id := range sortedKeys(c.assets) {
		a := c.assets[id]
		if a == nil {
			if _, ok := s.assets[id]; ok {
				_, _ = s.RemoveAsset(id)
			}
			continue
		}
		if _, ok := s.assets[id]; !ok && s.gone[AssetRef(id)] {
			continue
		}
		s.unlink(id)
		next := a.Clone()
		next.GroupID = ""
		s.assets[id] = next
		if a.GroupID != "" {
			if _, ok := s.groups[a.GroupID]; ok {
				s.link(id, a.GroupID)
			}
		}
	}

	for _, id := range sortedKeys(c.relations) {
		r := c.relations[id]
		if r == nil {
			s.dropRelation(id)
			continue
		}
		_, exists := s.relations[id]
		if !exists && s.gone[RelationRef(id)] {
			continue
		}
		if !exists {
			idx := c.relIndex[id]
			if idx < 0 || idx > len(s.relOrder) {
				idx = len(s.relOrder)
			}
			s.relOrder = slices.Insert(s.relOrder, idx, id)
		}
		s.relations[id] = r.Clone()
	}
	s.reindex()
}

// reindex rebuilds memberOf from group member lists, drops members that no
// longer exist, and aligns every asset's GroupID with the lists.
func (s *Store) reindex() {
	s.memberOf = make(map[string]string, len(s.memberOf))
	for _, gid := range sortedKeys(s.groups) {
		g := s.groups[gid]
		kept := g.Members[:0]
		for _, m := range g.Members {
			if _, ok := s.assets[m]; !ok {
				continue
			}
			if _, taken := s.memberOf[m]; taken {
				continue
			}
			s.memberOf[m] = gid
			kept = append(kept, m)
		}
		g.Members = kept
	}
	for id, a := range s.assets {
		a.GroupID = s.memberOf[id]
	}
}

// Snapshot is a frozen, deep copy of the whole store implementing Reader
type Snapshot struct {
	inner *Store
}

// Snapshot copies the full store contents
func (s *Store) Snapshot() *Snapshot {
	cp := New(Options{})
	for id, a := range s.assets {
		cp.assets[id] = a.Clone()
	}
	for id, g := range s.groups {
		cp.groups[id] = g.Clone()
	}
	for id, r := range s.relations {
		cp.relations[id] = r.Clone()
	}
	cp.relOrder = slices.Clone(s.relOrder)
	for k, v := range s.memberOf {
		cp.memberOf[k] = v
	}
	for k, v := range s.gone {
		cp.gone[k] = v
	}
	return &Snapshot{inner: cp}
}

func (sn *Snapshot) Asset(id string) (*model.Asset, bool)       { return sn.inner.Asset(id) }
func (sn *Snapshot) Group(id string) (*model.Group, bool)       { return sn.inner.Group(id) }
func (sn *Snapshot) Relation(id string) (*model.Relation, bool) { return sn.inner.Relation(id) }
func (sn *Snapshot) Assets() []*model.Asset                     { return sn.inner.Assets() }
func (sn *Snapshot) Groups() []*model.Group                     { return sn.inner.Groups() }
func (sn *Snapshot) Relations() []*model.Relation               { return sn.inner.Relations() }
func (sn *Snapshot) GroupOf(assetID string) (string, bool)      { return sn.inner.GroupOf(assetID) }
