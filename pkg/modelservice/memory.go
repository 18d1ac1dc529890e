package modelservice

import (
	"context"
	"fmt"
	"math"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dd0wney/cluso-canvas/pkg/geom"
	"github.com/dd0wney/cluso-canvas/pkg/logging"
	"github.com/dd0wney/cluso-canvas/pkg/model"
	"github.com/dd0wney/cluso-canvas/pkg/schema"
	"github.com/dd0wney/cluso-canvas/pkg/store"
	"github.com/dd0wney/cluso-canvas/pkg/validation"
)

// InferredPrefix starts the ID of every server-inferred relation
const InferredPrefix = "inferred-"

// Memory is an in-process authoritative Model Service. It keeps its own
// store, validates every request, assigns IDs and derives inferred
// relations. It is safe for concurrent use.
type Memory struct {
	mu        sync.Mutex
	st        *store.Store
	catalogue *schema.Catalogue
	failures  map[string][]error
	latency   time.Duration
	newID     func() string
	logger    logging.Logger
}

// MemoryOption configures a Memory service
type MemoryOption func(*Memory)

// WithLatency delays every request, honouring context cancellation
func WithLatency(d time.Duration) MemoryOption {
	return func(m *Memory) { m.latency = d }
}

// WithIDGenerator replaces the uuid generator
func WithIDGenerator(gen func() string) MemoryOption {
	return func(m *Memory) { m.newID = gen }
}

// WithLogger sets the logger
func WithLogger(l logging.Logger) MemoryOption {
	return func(m *Memory) { m.logger = logging.OrNop(l).With(logging.Component("modelservice")) }
}

// NewMemory creates an empty service validating relations against c
func NewMemory(c *schema.Catalogue, opts ...MemoryOption) *Memory {
	if c == nil {
		c = schema.DefaultCatalogue()
	}
	m := &Memory{
		st:        store.New(store.Options{}),
		catalogue: c,
		failures:  make(map[string][]error),
		newID:     func() string { return uuid.New().String() },
		logger:    logging.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// FailNext makes the next call of op fail with err. Calls queue up.
func (m *Memory) FailNext(op string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[op] = append(m.failures[op], err)
}

func (m *Memory) begin(ctx context.Context, op string, req any) error {
	if m.latency > 0 {
		timer := time.NewTimer(m.latency)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if q := m.failures[op]; len(q) > 0 {
		m.failures[op] = q[1:]
		m.logger.Info("injected failure", logging.Operation(op), logging.Error(q[0]))
		return q[0]
	}
	if req != nil {
		if err := validation.Struct(req); err != nil {
			return fmt.Errorf("%w: %v", ErrRejected, err)
		}
	}
	return nil
}

func rejected(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrRejected, fmt.Sprintf(format, args...))
}

func finite(p geom.Point) bool {
	return !math.IsNaN(p.X) && !math.IsNaN(p.Y) && !math.IsInf(p.X, 0) && !math.IsInf(p.Y, 0)
}

func validSize(s geom.Size) bool {
	return s.Width > 0 && s.Height > 0 && !math.IsInf(s.Width, 0) && !math.IsInf(s.Height, 0)
}

// changeset accumulates what a mutation touched
type changeset struct {
	assets, groups, relations map[string]bool
	removed                   Removed
}

func newChangeset() *changeset {
	return &changeset{
		assets:    make(map[string]bool),
		groups:    make(map[string]bool),
		relations: make(map[string]bool),
	}
}

func (m *Memory) build(cs *changeset) *Change {
	c := &Change{Removed: cs.removed}
	for _, id := range sortedIDs(cs.assets) {
		if a, ok := m.st.Asset(id); ok {
			c.Assets = append(c.Assets, *a)
		}
	}
	for _, id := range sortedIDs(cs.groups) {
		if g, ok := m.st.Group(id); ok {
			c.Groups = append(c.Groups, *g)
		}
	}
	for _, id := range sortedIDs(cs.relations) {
		if r, ok := m.st.Relation(id); ok {
			c.Relations = append(c.Relations, *r)
		}
	}
	return c
}

func sortedIDs(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

// Load returns a full copy of the model
func (m *Memory) Load(ctx context.Context) (*Diagram, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(ctx, "load", nil); err != nil {
		return nil, err
	}
	d := &Diagram{}
	for _, a := range m.st.Assets() {
		d.Assets = append(d.Assets, *a)
	}
	for _, g := range m.st.Groups() {
		d.Groups = append(d.Groups, *g)
	}
	for _, r := range m.st.Relations() {
		d.Relations = append(d.Relations, *r)
	}
	return d, nil
}

// CreateAsset assigns an ID and stores a new asset
func (m *Memory) CreateAsset(ctx context.Context, req CreateAssetRequest) (*Change, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(ctx, OpCreateAsset, &req); err != nil {
		return nil, err
	}
	if !finite(req.Position) {
		return nil, rejected("position must be finite")
	}
	if req.GroupID != "" && !m.st.HasGroup(req.GroupID) {
		return nil, model.GroupNotFoundError(OpCreateAsset, req.GroupID)
	}
	a := model.Asset{ID: m.newID(), Type: req.Type, Name: req.Name, Position: req.Position, Asserted: true}
	if err := m.st.UpsertAsset(a, store.OriginServer); err != nil {
		return nil, err
	}
	cs := newChangeset()
	cs.assets[a.ID] = true
	if req.GroupID != "" {
		if err := m.st.Assign(a.ID, req.GroupID); err != nil {
			return nil, err
		}
		cs.groups[req.GroupID] = true
	}
	m.logger.Debug("asset created", logging.AssetID(a.ID))
	return m.build(cs), nil
}

func (m *Memory) relocate(id string, p geom.Point, cs *changeset, op string) error {
	a, ok := m.st.Asset(id)
	if !ok {
		return model.AssetNotFoundError(op, id)
	}
	if !finite(p) {
		return rejected("position must be finite")
	}
	a.Position = p
	cs.assets[id] = true
	return m.st.UpsertAsset(*a, store.OriginServer)
}

// RelocateAsset moves one asset
func (m *Memory) RelocateAsset(ctx context.Context, req RelocateAssetRequest) (*Change, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(ctx, OpRelocateAsset, &req); err != nil {
		return nil, err
	}
	cs := newChangeset()
	if err := m.relocate(req.ID, req.Position, cs, OpRelocateAsset); err != nil {
		return nil, err
	}
	return m.build(cs), nil
}

// RelocateAssets moves every listed asset or none of them
func (m *Memory) RelocateAssets(ctx context.Context, req RelocateAssetsRequest) (*Change, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(ctx, OpRelocateAssets, &req); err != nil {
		return nil, err
	}
	if err := validation.ValidateBatchSize(len(req.Placements)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRejected, err)
	}
	for _, p := range req.Placements {
		if !m.st.HasAsset(p.ID) {
			return nil, model.AssetNotFoundError(OpRelocateAssets, p.ID)
		}
		if !finite(p.Position) {
			return nil, rejected("position of %s must be finite", p.ID)
		}
	}
	cs := newChangeset()
	for _, p := range req.Placements {
		if err := m.relocate(p.ID, p.Position, cs, OpRelocateAssets); err != nil {
			return nil, err
		}
	}
	return m.build(cs), nil
}

// RenameAsset renames an asset
func (m *Memory) RenameAsset(ctx context.Context, req RenameAssetRequest) (*Change, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(ctx, OpRenameAsset, &req); err != nil {
		return nil, err
	}
	a, ok := m.st.Asset(req.ID)
	if !ok {
		return nil, model.AssetNotFoundError(OpRenameAsset, req.ID)
	}
	a.Name = strings.TrimSpace(req.Name)
	if err := m.st.UpsertAsset(*a, store.OriginServer); err != nil {
		return nil, err
	}
	cs := newChangeset()
	cs.assets[a.ID] = true
	return m.build(cs), nil
}

// DeleteAsset deletes an asset and every relation touching it
func (m *Memory) DeleteAsset(ctx context.Context, id string) (*Change, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(ctx, OpDeleteAsset, nil); err != nil {
		return nil, err
	}
	if id == "" {
		return nil, rejected("id is required")
	}
	cs := newChangeset()
	if g, ok := m.st.GroupOf(id); ok {
		cs.groups[g] = true
	}
	removed, err := m.st.RemoveAsset(id)
	if err != nil {
		return nil, err
	}
	cs.removed.Assets = []string{id}
	cs.removed.Relations = removed
	m.refreshInferred(cs)
	return m.build(cs), nil
}

// CreateGroup creates a group around existing ungrouped assets
func (m *Memory) CreateGroup(ctx context.Context, req CreateGroupRequest) (*Change, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(ctx, OpCreateGroup, &req); err != nil {
		return nil, err
	}
	if !validSize(req.Size) {
		return nil, rejected("group size must be positive")
	}
	for _, id := range req.Members {
		if !m.st.HasAsset(id) {
			return nil, model.AssetNotFoundError(OpCreateGroup, id)
		}
		if g, ok := m.st.GroupOf(id); ok {
			return nil, rejected("asset %s already belongs to group %s", id, g)
		}
	}
	g := model.Group{
		ID: m.newID(), Label: req.Label, Position: req.Position, Size: req.Size,
		Expanded: true, Resizable: req.Resizable, Members: slices.Clone(req.Members),
	}
	if err := m.st.UpsertGroup(g, store.OriginServer); err != nil {
		return nil, err
	}
	cs := newChangeset()
	cs.groups[g.ID] = true
	for _, id := range req.Members {
		cs.assets[id] = true
	}
	return m.build(cs), nil
}

// AddAssetToGroup puts an ungrouped asset into a group
func (m *Memory) AddAssetToGroup(ctx context.Context, req MembershipRequest) (*Change, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(ctx, OpAddAssetToGroup, &req); err != nil {
		return nil, err
	}
	if err := m.requireAssetAndGroup(OpAddAssetToGroup, req.AssetID, req.GroupID); err != nil {
		return nil, err
	}
	if g, ok := m.st.GroupOf(req.AssetID); ok {
		return nil, rejected("asset %s already belongs to group %s", req.AssetID, g)
	}
	return m.assign(req.AssetID, "", req.GroupID)
}

// RemoveAssetFromGroup ungroups an asset
func (m *Memory) RemoveAssetFromGroup(ctx context.Context, req MembershipRequest) (*Change, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(ctx, OpRemoveAssetFromGroup, &req); err != nil {
		return nil, err
	}
	if err := m.requireAssetAndGroup(OpRemoveAssetFromGroup, req.AssetID, req.GroupID); err != nil {
		return nil, err
	}
	if g, _ := m.st.GroupOf(req.AssetID); g != req.GroupID {
		return nil, rejected("asset %s is not in group %s", req.AssetID, req.GroupID)
	}
	return m.assign(req.AssetID, req.GroupID, "")
}

// MoveAssetBetweenGroups moves an asset from one group to another
func (m *Memory) MoveAssetBetweenGroups(ctx context.Context, req MoveRequest) (*Change, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(ctx, OpMoveAssetBetweenGroups, &req); err != nil {
		return nil, err
	}
	if err := m.requireAssetAndGroup(OpMoveAssetBetweenGroups, req.AssetID, req.ToGroupID); err != nil {
		return nil, err
	}
	if g, _ := m.st.GroupOf(req.AssetID); g != req.FromGroupID {
		return nil, rejected("asset %s is not in group %s", req.AssetID, req.FromGroupID)
	}
	return m.assign(req.AssetID, req.FromGroupID, req.ToGroupID)
}

func (m *Memory) requireAssetAndGroup(op, assetID, groupID string) error {
	if !m.st.HasAsset(assetID) {
		return model.AssetNotFoundError(op, assetID)
	}
	if !m.st.HasGroup(groupID) {
		return model.GroupNotFoundError(op, groupID)
	}
	return nil
}

func (m *Memory) assign(assetID, from, to string) (*Change, error) {
	if err := m.st.Assign(assetID, to); err != nil {
		return nil, err
	}
	cs := newChangeset()
	cs.assets[assetID] = true
	for _, g := range []string{from, to} {
		if g != "" {
			cs.groups[g] = true
		}
	}
	return m.build(cs), nil
}

func (m *Memory) updateGroup(ctx context.Context, op string, req any, id string, mutate func(g *model.Group, cs *changeset) error) (*Change, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(ctx, op, req); err != nil {
		return nil, err
	}
	g, ok := m.st.Group(id)
	if !ok {
		return nil, model.GroupNotFoundError(op, id)
	}
	cs := newChangeset()
	if err := mutate(g, cs); err != nil {
		return nil, err
	}
	if err := m.st.UpsertGroup(*g, store.OriginServer); err != nil {
		return nil, err
	}
	cs.groups[id] = true
	return m.build(cs), nil
}

// RelocateGroup moves a group; members move by the same delta
func (m *Memory) RelocateGroup(ctx context.Context, req RelocateGroupRequest) (*Change, error) {
	return m.updateGroup(ctx, OpRelocateGroup, &req, req.ID, func(g *model.Group, cs *changeset) error {
		if !finite(req.Position) {
			return rejected("position must be finite")
		}
		delta := req.Position.Sub(g.Position)
		for _, id := range g.Members {
			a, ok := m.st.Asset(id)
			if !ok {
				continue
			}
			if err := m.relocate(id, a.Position.Add(delta), cs, OpRelocateGroup); err != nil {
				return err
			}
		}
		g.Position = req.Position
		return nil
	})
}

// ResizeGroup changes a resizable group's stored size
func (m *Memory) ResizeGroup(ctx context.Context, req ResizeGroupRequest) (*Change, error) {
	return m.updateGroup(ctx, OpResizeGroup, &req, req.ID, func(g *model.Group, _ *changeset) error {
		if !g.Resizable {
			return rejected("group %s is not resizable", g.ID)
		}
		if !validSize(req.Size) {
			return rejected("group size must be positive")
		}
		g.Size = req.Size
		return nil
	})
}

// RenameGroup relabels a group
func (m *Memory) RenameGroup(ctx context.Context, req RenameGroupRequest) (*Change, error) {
	return m.updateGroup(ctx, OpRenameGroup, &req, req.ID, func(g *model.Group, _ *changeset) error {
		g.Label = strings.TrimSpace(req.Label)
		return nil
	})
}

// SetGroupExpanded persists the expanded flag
func (m *Memory) SetGroupExpanded(ctx context.Context, req SetGroupExpandedRequest) (*Change, error) {
	return m.updateGroup(ctx, OpSetGroupExpanded, &req, req.ID, func(g *model.Group, _ *changeset) error {
		g.Expanded = req.Expanded
		return nil
	})
}

// DeleteGroup deletes a group, ungrouping or deleting its members
func (m *Memory) DeleteGroup(ctx context.Context, req DeleteGroupRequest) (*Change, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(ctx, OpDeleteGroup, &req); err != nil {
		return nil, err
	}
	g, ok := m.st.Group(req.ID)
	if !ok {
		return nil, model.GroupNotFoundError(OpDeleteGroup, req.ID)
	}
	cs := newChangeset()
	var relations []string
	if req.DeleteMembers {
		for _, id := range g.Members {
			relations = append(relations, m.st.IncidentRelations(id)...)
		}
	}
	deleted, err := m.st.RemoveGroup(req.ID, req.DeleteMembers)
	if err != nil {
		return nil, err
	}
	cs.removed.Groups = []string{req.ID}
	if req.DeleteMembers {
		cs.removed.Assets = deleted
		slices.Sort(relations)
		cs.removed.Relations = slices.Compact(relations)
		m.refreshInferred(cs)
	} else {
		for _, id := range g.Members {
			cs.assets[id] = true
		}
	}
	return m.build(cs), nil
}

// CreateRelation creates an asserted relation permitted by the catalogue
func (m *Memory) CreateRelation(ctx context.Context, req CreateRelationRequest) (*Change, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(ctx, OpCreateRelation, &req); err != nil {
		return nil, err
	}
	from, ok := m.st.Asset(req.From)
	if !ok {
		return nil, model.AssetNotFoundError(OpCreateRelation, req.From)
	}
	to, ok := m.st.Asset(req.To)
	if !ok {
		return nil, model.AssetNotFoundError(OpCreateRelation, req.To)
	}
	rt, err := m.permitted(req.Type, from.Type, to.Type)
	if err != nil {
		return nil, err
	}
	label := req.Label
	if label == "" {
		label = rt.Label
	}
	r := model.Relation{
		ID: m.newID(), From: req.From, To: req.To, Type: req.Type, Label: label,
		Asserted: true, Visible: true,
	}
	if err := m.st.UpsertRelation(r, store.OriginServer); err != nil {
		return nil, err
	}
	cs := newChangeset()
	cs.relations[r.ID] = true
	m.refreshInferred(cs)
	return m.build(cs), nil
}

func (m *Memory) permitted(relType, fromType, toType string) (schema.RelationType, error) {
	rt, ok := m.catalogue.Lookup(relType)
	if !ok {
		return rt, rejected("unknown relation type %q", relType)
	}
	if !m.catalogue.Permits(relType, fromType, toType) {
		return rt, rejected("%s cannot connect %s to %s", relType, fromType, toType)
	}
	return rt, nil
}

func (m *Memory) assertedRelation(op, id string) (*model.Relation, error) {
	r, ok := m.st.Relation(id)
	if !ok {
		return nil, model.RelationNotFoundError(op, id)
	}
	if !r.Asserted {
		return nil, rejected("relation %s is inferred", id)
	}
	return r, nil
}

// RedefineRelation changes an asserted relation's type
func (m *Memory) RedefineRelation(ctx context.Context, req RedefineRelationRequest) (*Change, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(ctx, OpRedefineRelation, &req); err != nil {
		return nil, err
	}
	r, err := m.assertedRelation(OpRedefineRelation, req.ID)
	if err != nil {
		return nil, err
	}
	from, _ := m.st.Asset(r.From)
	to, _ := m.st.Asset(r.To)
	if from == nil || to == nil {
		return nil, rejected("relation %s has a dangling endpoint", r.ID)
	}
	rt, err := m.permitted(req.Type, from.Type, to.Type)
	if err != nil {
		return nil, err
	}
	r.Type = req.Type
	r.Label = req.Label
	if r.Label == "" {
		r.Label = rt.Label
	}
	if err := m.st.UpsertRelation(*r, store.OriginServer); err != nil {
		return nil, err
	}
	cs := newChangeset()
	cs.relations[r.ID] = true
	m.refreshInferred(cs)
	return m.build(cs), nil
}

// DeleteRelation deletes an asserted relation
func (m *Memory) DeleteRelation(ctx context.Context, id string) (*Change, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(ctx, OpDeleteRelation, nil); err != nil {
		return nil, err
	}
	if _, err := m.assertedRelation(OpDeleteRelation, id); err != nil {
		return nil, err
	}
	if err := m.st.RemoveRelation(id); err != nil {
		return nil, err
	}
	cs := newChangeset()
	cs.removed.Relations = []string{id}
	m.refreshInferred(cs)
	return m.build(cs), nil
}

// SetRelationHidden hides or unhides any relation, inferred ones included
func (m *Memory) SetRelationHidden(ctx context.Context, req SetRelationHiddenRequest) (*Change, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(ctx, OpSetRelationHidden, &req); err != nil {
		return nil, err
	}
	r, ok := m.st.Relation(req.ID)
	if !ok {
		return nil, model.RelationNotFoundError(OpSetRelationHidden, req.ID)
	}
	r.Hidden = req.Hidden
	if err := m.st.UpsertRelation(*r, store.OriginServer); err != nil {
		return nil, err
	}
	cs := newChangeset()
	cs.relations[r.ID] = true
	return m.build(cs), nil
}

var _ Service = (*Memory)(nil)
