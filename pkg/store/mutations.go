package store

import (
	"slices"

	"github.com/dd0wney/cluso-canvas/pkg/logging"
	"github.com/dd0wney/cluso-canvas/pkg/model"
)

// UpsertAsset inserts or replaces an asset.
//
// When a.GroupID disagrees with the group currently listing the asset, the
// write is a consistency conflict: a server value wins and membership is
// moved to match it, a local value is rejected and the store is unchanged.
func (s *Store) UpsertAsset(a model.Asset, origin Origin) error {
	if origin == OriginServer {
		delete(s.gone, AssetRef(a.ID))
	}
	if a.ID == "" {
		return model.NewError("UpsertAsset").Asset("").Cause(model.ErrInvalidID).Err()
	}

	if a.GroupID != "" {
		if _, ok := s.groups[a.GroupID]; !ok {
			if origin == OriginLocal {
				return model.GroupNotFoundError("UpsertAsset", a.GroupID)
			}
			// The group may arrive later; UpsertGroup re-links its members.
			s.conflict(model.ConflictError(a.ID, a.GroupID, ""), origin)
			a.GroupID = ""
		}
	}

	listedIn := s.memberOf[a.ID]
	if listedIn != a.GroupID {
		err := model.ConflictError(a.ID, a.GroupID, listedIn)
		s.conflict(err, origin)
		if origin == OriginLocal {
			return err
		}
		s.unlink(a.ID)
		if a.GroupID != "" {
			s.link(a.ID, a.GroupID)
		}
	}

	stored := a.Clone()
	s.assets[a.ID] = stored
	return nil
}

// RemoveAsset deletes an asset, drops it from its group and removes every
// incident relation from the local set. It returns the removed relation IDs;
// no server deletes are implied.
func (s *Store) RemoveAsset(id string) ([]string, error) {
	if _, ok := s.assets[id]; !ok {
		return nil, model.AssetNotFoundError("RemoveAsset", id)
	}
	s.unlink(id)
	delete(s.assets, id)

	removed := s.IncidentRelations(id)
	for _, rid := range removed {
		s.dropRelation(rid)
	}
	if len(removed) > 0 {
		s.logger.Debug("removed incident relations", logging.AssetID(id), logging.Count(len(removed)))
	}
	return removed, nil
}

// UpsertGroup inserts or replaces a group, including its member list.
//
// Members that do not exist are dropped. A member already listed by another
// group is a conflict: a server value takes it over, a local value is
// rejected. Assets no longer listed become ungrouped.
func (s *Store) UpsertGroup(g model.Group, origin Origin) error {
	if g.ID == "" {
		return model.NewError("UpsertGroup").Group("").Cause(model.ErrInvalidID).Err()
	}
	if origin == OriginServer {
		delete(s.gone, GroupRef(g.ID))
	}
	next := g.Clone()
	next.Normalize()

	members := make([]string, 0, len(next.Members))
	for _, m := range next.Members {
		if _, ok := s.assets[m]; !ok {
			if origin == OriginLocal {
				return model.AssetNotFoundError("UpsertGroup", m)
			}
			s.logger.Warn("dropping unknown group member", logging.GroupID(g.ID), logging.AssetID(m))
			continue
		}
		if other, ok := s.memberOf[m]; ok && other != g.ID {
			err := model.ConflictError(m, g.ID, other)
			s.conflict(err, origin)
			if origin == OriginLocal {
				return err
			}
		}
		members = append(members, m)
	}
	next.Members = members

	if prev, ok := s.groups[g.ID]; ok {
		for _, m := range prev.Members {
			if !next.HasMember(m) {
				s.unlink(m)
			}
		}
	}

	s.groups[g.ID] = next
	for _, m := range members {
		if other, ok := s.memberOf[m]; ok && other != g.ID {
			s.groups[other].RemoveMember(m)
		}
		s.memberOf[m] = g.ID
		s.assets[m].GroupID = g.ID
	}
	return nil
}

// RemoveGroup deletes a group. Members are ungrouped, or deleted together
// with their incident relations when deleteMembers is set. It returns the
// IDs of deleted assets.
func (s *Store) RemoveGroup(id string, deleteMembers bool) ([]string, error) {
	g, ok := s.groups[id]
	if !ok {
		return nil, model.GroupNotFoundError("RemoveGroup", id)
	}
	members := slices.Clone(g.Members)
	for _, m := range members {
		s.unlink(m)
	}
	delete(s.groups, id)

	if !deleteMembers {
		return nil, nil
	}
	for _, m := range members {
		if _, err := s.RemoveAsset(m); err != nil {
			return nil, err
		}
	}
	return members, nil
}

// UpsertRelation inserts or replaces a relation, keeping its original
// position in insertion order. A local value must reference existing assets.
func (s *Store) UpsertRelation(r model.Relation, origin Origin) error {
	if r.ID == "" {
		return model.NewError("UpsertRelation").Relation("").Cause(model.ErrInvalidID).Err()
	}
	if origin == OriginServer {
		delete(s.gone, RelationRef(r.ID))
	}
	if origin == OriginLocal {
		for _, end := range []string{r.From, r.To} {
			if _, ok := s.assets[end]; !ok {
				return model.AssetNotFoundError("UpsertRelation", end)
			}
		}
	}
	if _, exists := s.relations[r.ID]; !exists {
		s.relOrder = append(s.relOrder, r.ID)
	}
	s.relations[r.ID] = r.Clone()
	return nil
}

// RemoveRelation deletes a relation
func (s *Store) RemoveRelation(id string) error {
	if _, ok := s.relations[id]; !ok {
		return model.RelationNotFoundError("RemoveRelation", id)
	}
	s.dropRelation(id)
	return nil
}

// SetRelationDeleting toggles the pending-delete marker
func (s *Store) SetRelationDeleting(id string, deleting bool) error {
	r, ok := s.relations[id]
	if !ok {
		return model.RelationNotFoundError("SetRelationDeleting", id)
	}
	r.Deleting = deleting
	return nil
}

// Assign moves an asset into groupID, or out of any group when groupID is
// empty, updating both sides of the membership. Containment transitions are
// its only caller.
func (s *Store) Assign(assetID, groupID string) error {
	if _, ok := s.assets[assetID]; !ok {
		return model.AssetNotFoundError("Assign", assetID)
	}
	if groupID != "" {
		if _, ok := s.groups[groupID]; !ok {
			return model.GroupNotFoundError("Assign", groupID)
		}
	}
	s.unlink(assetID)
	if groupID != "" {
		s.link(assetID, groupID)
	}
	return nil
}

func (s *Store) link(assetID, groupID string) {
	s.groups[groupID].AddMember(assetID)
	s.memberOf[assetID] = groupID
	if a, ok := s.assets[assetID]; ok {
		a.GroupID = groupID
	}
}

func (s *Store) unlink(assetID string) {
	if g, ok := s.memberOf[assetID]; ok {
		if grp, exists := s.groups[g]; exists {
			grp.RemoveMember(assetID)
		}
		delete(s.memberOf, assetID)
	}
	if a, ok := s.assets[assetID]; ok {
		a.GroupID = ""
	}
}

func (s *Store) dropRelation(id string) {
	delete(s.relations, id)
	if i := slices.Index(s.relOrder, id); i >= 0 {
		s.relOrder = slices.Delete(s.relOrder, i, i+1)
	}
}
