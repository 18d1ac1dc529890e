package modelservice

import (
	"slices"
	"strings"

	"github.com/dd0wney/cluso-canvas/pkg/logging"
	"github.com/dd0wney/cluso-canvas/pkg/model"
	"github.com/dd0wney/cluso-canvas/pkg/store"
)

// Relation types the inference rule reads and writes
const (
	runsOn     = "runs-on"
	connectsTo = "connects-to"
)

func inferredID(a, b string) string {
	return InferredPrefix + a + "--" + b
}

// refreshInferred recomputes the derived relations: two assets that run on
// the same host are inferred to connect to each other. Relations that
// appear, change or disappear are recorded in cs, as are assets whose
// InferredRelationIDs changed.
func (m *Memory) refreshInferred(cs *changeset) {
	hosts := make(map[string][]string)
	for _, r := range m.st.Relations() {
		if r.Asserted && r.Type == runsOn {
			hosts[r.To] = append(hosts[r.To], r.From)
		}
	}

	want := make(map[string]*model.Relation)
	for host, procs := range hosts {
		slices.Sort(procs)
		procs = slices.Compact(procs)
		for i := 0; i < len(procs); i++ {
			for j := i + 1; j < len(procs); j++ {
				id := inferredID(procs[i], procs[j])
				r, ok := want[id]
				if !ok {
					r = &model.Relation{
						ID: id, From: procs[i], To: procs[j], Type: connectsTo,
						Label: "connects to (inferred)", Visible: true,
					}
					want[id] = r
				}
				r.InferredAssetIDs = append(r.InferredAssetIDs, host)
			}
		}
	}

	perAsset := make(map[string][]string)
	for id, r := range want {
		slices.Sort(r.InferredAssetIDs)
		perAsset[r.From] = append(perAsset[r.From], id)
		perAsset[r.To] = append(perAsset[r.To], id)
	}

	for _, r := range m.st.Relations() {
		if r.Asserted || !strings.HasPrefix(r.ID, InferredPrefix) {
			continue
		}
		if _, keep := want[r.ID]; !keep {
			_ = m.st.RemoveRelation(r.ID)
			cs.removed.Relations = append(cs.removed.Relations, r.ID)
			delete(cs.relations, r.ID)
		}
	}
	for _, id := range sortedRelationIDs(want) {
		next := want[id]
		if cur, ok := m.st.Relation(id); ok {
			next.Hidden = cur.Hidden
			if slices.Equal(cur.InferredAssetIDs, next.InferredAssetIDs) && cur.Hidden == next.Hidden {
				continue
			}
		}
		_ = m.st.UpsertRelation(*next, store.OriginServer)
		cs.relations[id] = true
	}

	for _, a := range m.st.Assets() {
		ids := perAsset[a.ID]
		slices.Sort(ids)
		if slices.Equal(a.InferredRelationIDs, ids) {
			continue
		}
		a.InferredRelationIDs = ids
		_ = m.st.UpsertAsset(*a, store.OriginServer)
		cs.assets[a.ID] = true
	}
	if len(want) > 0 {
		m.logger.Debug("inferred relations refreshed", logging.Count(len(want)))
	}
}

func sortedRelationIDs(m map[string]*model.Relation) []string {
	out := make([]string, 0, len(m))
	for id := range m {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}
