package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-canvas/pkg/geom"
	"github.com/dd0wney/cluso-canvas/pkg/logging"
	"github.com/dd0wney/cluso-canvas/pkg/model"
)

func seeded(t *testing.T) (*Store, *logging.MemoryLogger) {
	t.Helper()
	log := logging.NewMemoryLogger()
	s := New(Options{Logger: log})
	for _, id := range []string{"a1", "a2", "a3"} {
		require.NoError(t, s.UpsertAsset(model.Asset{ID: id, Type: "Host", Name: id}, OriginServer))
	}
	require.NoError(t, s.UpsertGroup(model.Group{ID: "g1", Label: "Cell", Expanded: true, Members: []string{"a1"}}, OriginServer))
	require.NoError(t, s.UpsertGroup(model.Group{ID: "g2", Label: "Zone", Expanded: true}, OriginServer))
	require.NoError(t, s.UpsertRelation(model.Relation{ID: "r1", From: "a1", To: "a2", Type: "connects-to"}, OriginServer))
	require.NoError(t, s.UpsertRelation(model.Relation{ID: "r2", From: "a2", To: "a3", Type: "connects-to"}, OriginServer))
	return s, log
}

func TestUpsertGroupLinksMembers(t *testing.T) {
	s, _ := seeded(t)

	a, ok := s.Asset("a1")
	require.True(t, ok)
	assert.Equal(t, "g1", a.GroupID)

	g, _ := s.GroupOf("a1")
	assert.Equal(t, "g1", g)
	assert.True(t, s.IsAssetInAnyGroup("a1"))
	assert.False(t, s.IsAssetInAnyGroup("a2"))
}

func TestUpsertAssetLocalConflictRejected(t *testing.T) {
	var conflicts int
	s, _ := seeded(t)
	s.onConflict = func(error, Origin) { conflicts++ }

	err := s.UpsertAsset(model.Asset{ID: "a1", Type: "Host", GroupID: "g2"}, OriginLocal)
	require.Error(t, err)
	assert.True(t, model.IsConflict(err))
	assert.Equal(t, 1, conflicts)

	a, _ := s.Asset("a1")
	assert.Equal(t, "g1", a.GroupID, "store must be unchanged")
	g1, _ := s.Group("g1")
	assert.Equal(t, []string{"a1"}, g1.Members)
}

func TestUpsertAssetServerConflictAdopted(t *testing.T) {
	s, log := seeded(t)

	err := s.UpsertAsset(model.Asset{ID: "a1", Type: "Host", GroupID: "g2"}, OriginServer)
	require.NoError(t, err)

	a, _ := s.Asset("a1")
	assert.Equal(t, "g2", a.GroupID)
	g1, _ := s.Group("g1")
	g2, _ := s.Group("g2")
	assert.Empty(t, g1.Members)
	assert.Equal(t, []string{"a1"}, g2.Members)
	assert.Equal(t, 1, log.Count(logging.WarnLevel, "consistency conflict"))
}

func TestUpsertAssetUnknownGroup(t *testing.T) {
	s, _ := seeded(t)

	err := s.UpsertAsset(model.Asset{ID: "a2", GroupID: "missing"}, OriginLocal)
	assert.True(t, model.IsNotFound(err))

	require.NoError(t, s.UpsertAsset(model.Asset{ID: "a2", GroupID: "missing"}, OriginServer))
	a, _ := s.Asset("a2")
	assert.Empty(t, a.GroupID)
}

func TestRemoveAssetDropsIncidentRelations(t *testing.T) {
	s, _ := seeded(t)

	removed, err := s.RemoveAsset("a2")
	require.NoError(t, err)
	assert.Equal(t, []string{"r1", "r2"}, removed)
	assert.Empty(t, s.Relations())

	removed, err = s.RemoveAsset("a1")
	require.NoError(t, err)
	assert.Empty(t, removed)
	g1, _ := s.Group("g1")
	assert.Empty(t, g1.Members)

	_, err = s.RemoveAsset("a1")
	assert.True(t, model.IsNotFound(err))
}

func TestUpsertGroupDropsStaleMembers(t *testing.T) {
	s, _ := seeded(t)

	require.NoError(t, s.UpsertGroup(model.Group{ID: "g1", Members: []string{"a2", "ghost"}}, OriginServer))

	a1, _ := s.Asset("a1")
	a2, _ := s.Asset("a2")
	assert.Empty(t, a1.GroupID)
	assert.Equal(t, "g1", a2.GroupID)
	g1, _ := s.Group("g1")
	assert.Equal(t, []string{"a2"}, g1.Members)
}

func TestUpsertGroupLocalRejectsStolenMember(t *testing.T) {
	s, _ := seeded(t)

	err := s.UpsertGroup(model.Group{ID: "g2", Members: []string{"a1"}}, OriginLocal)
	assert.True(t, model.IsConflict(err))
	g2, _ := s.Group("g2")
	assert.Empty(t, g2.Members)

	require.NoError(t, s.UpsertGroup(model.Group{ID: "g2", Members: []string{"a1"}}, OriginServer))
	g1, _ := s.Group("g1")
	g2, _ = s.Group("g2")
	assert.Empty(t, g1.Members)
	assert.Equal(t, []string{"a1"}, g2.Members)
}

func TestRemoveGroup(t *testing.T) {
	t.Run("ungroup members", func(t *testing.T) {
		s, _ := seeded(t)
		deleted, err := s.RemoveGroup("g1", false)
		require.NoError(t, err)
		assert.Empty(t, deleted)
		a1, ok := s.Asset("a1")
		require.True(t, ok)
		assert.Empty(t, a1.GroupID)
	})

	t.Run("delete members", func(t *testing.T) {
		s, _ := seeded(t)
		deleted, err := s.RemoveGroup("g1", true)
		require.NoError(t, err)
		assert.Equal(t, []string{"a1"}, deleted)
		assert.False(t, s.HasAsset("a1"))
		_, ok := s.Relation("r1")
		assert.False(t, ok)
	})
}

func TestRelationOrderSurvivesUpdate(t *testing.T) {
	s, _ := seeded(t)
	require.NoError(t, s.UpsertRelation(model.Relation{ID: "r1", From: "a1", To: "a2", Label: "renamed"}, OriginLocal))

	rels := s.Relations()
	require.Len(t, rels, 2)
	assert.Equal(t, "r1", rels[0].ID)
	assert.Equal(t, "renamed", rels[0].Label)

	err := s.UpsertRelation(model.Relation{ID: "r9", From: "a1", To: "nope"}, OriginLocal)
	assert.True(t, model.IsNotFound(err))
}

func TestAssign(t *testing.T) {
	s, _ := seeded(t)

	require.NoError(t, s.Assign("a1", "g2"))
	g1, _ := s.Group("g1")
	g2, _ := s.Group("g2")
	assert.Empty(t, g1.Members)
	assert.Equal(t, []string{"a1"}, g2.Members)

	require.NoError(t, s.Assign("a1", ""))
	assert.False(t, s.IsAssetInAnyGroup("a1"))

	assert.True(t, model.IsNotFound(s.Assign("a1", "nope")))
	assert.True(t, model.IsNotFound(s.Assign("nope", "g1")))
}

func TestCaptureRestore(t *testing.T) {
	s, _ := seeded(t)
	c := s.Capture(AssetRef("a1"), GroupRef("g1"), GroupRef("g2"), RelationRef("r1"), AssetRef("new"))

	require.NoError(t, s.Assign("a1", "g2"))
	a1, _ := s.Asset("a1")
	a1.Position = geom.Point{X: 40, Y: 40}
	require.NoError(t, s.UpsertAsset(*a1, OriginLocal))
	require.NoError(t, s.RemoveRelation("r1"))
	require.NoError(t, s.UpsertAsset(model.Asset{ID: "new"}, OriginLocal))

	s.Restore(c)

	a1, _ = s.Asset("a1")
	assert.Equal(t, "g1", a1.GroupID)
	assert.Equal(t, geom.Point{}, a1.Position)
	g2, _ := s.Group("g2")
	assert.Empty(t, g2.Members)
	assert.False(t, s.HasAsset("new"))

	rels := s.Relations()
	require.Len(t, rels, 2)
	assert.Equal(t, "r1", rels[0].ID, "restored relation keeps its order")
}

func TestSnapshotIsIsolated(t *testing.T) {
	s, _ := seeded(t)
	snap := s.Snapshot()

	require.NoError(t, s.Assign("a1", "g2"))
	_, err := s.RemoveAsset("a3")
	require.NoError(t, err)

	g, _ := snap.GroupOf("a1")
	assert.Equal(t, "g1", g)
	_, ok := snap.Asset("a3")
	assert.True(t, ok)
	assert.Len(t, snap.Relations(), 2)
}

func TestReadsReturnCopies(t *testing.T) {
	s, _ := seeded(t)
	g, _ := s.Group("g1")
	g.Members = append(g.Members, "a2")

	again, _ := s.Group("g1")
	assert.Equal(t, []string{"a1"}, again.Members)
}

func TestRestoreKeepsOtherMembers(t *testing.T) {
	s, _ := seeded(t)
	c := s.Capture(AssetRef("a1"), GroupRef("g1"), GroupRef("g2"))

	require.NoError(t, s.Assign("a1", "g2"))
	require.NoError(t, s.Assign("a2", "g2"))

	s.Restore(c)

	g2, _ := s.Group("g2")
	assert.Equal(t, []string{"a2"}, g2.Members)
	a1, _ := s.Asset("a1")
	assert.Equal(t, "g1", a1.GroupID)
}

func TestRestoreRecreatesDeletedGroup(t *testing.T) {
	s, _ := seeded(t)
	c := s.Capture(GroupRef("g1"), AssetRef("a1"))

	_, err := s.RemoveGroup("g1", false)
	require.NoError(t, err)
	s.Restore(c)

	g1, ok := s.Group("g1")
	require.True(t, ok)
	assert.Equal(t, []string{"a1"}, g1.Members)
	assert.True(t, s.IsAssetInAnyGroup("a1"))
}

func TestRestoreSkipsServerRemovedEntities(t *testing.T) {
	s, _ := seeded(t)
	c := s.Capture(GroupRef("g1"), AssetRef("a1"), RelationRef("r1"))

	// A rolled-back membership change resolves after the server deleted g1.
	_, err := s.RemoveGroup("g1", false)
	require.NoError(t, err)
	require.NoError(t, s.RemoveRelation("r1"))
	s.ConfirmRemoved(GroupRef("g1"), RelationRef("r1"))
	s.Restore(c)

	assert.False(t, s.HasGroup("g1"))
	_, ok := s.Relation("r1")
	assert.False(t, ok)
	a1, ok := s.Asset("a1")
	require.True(t, ok)
	assert.Equal(t, "", a1.GroupID, "no membership in a group that is gone")
}

func TestServerUpsertClearsRemoval(t *testing.T) {
	s, _ := seeded(t)
	c := s.Capture(GroupRef("g1"))

	_, err := s.RemoveGroup("g1", false)
	require.NoError(t, err)
	s.ConfirmRemoved(GroupRef("g1"))
	require.NoError(t, s.UpsertGroup(model.Group{ID: "g1", Label: "again", Expanded: true}, OriginServer))
	_, err = s.RemoveGroup("g1", false)
	require.NoError(t, err)
	s.Restore(c)

	assert.True(t, s.HasGroup("g1"), "a group the server re-created is restorable again")
}
