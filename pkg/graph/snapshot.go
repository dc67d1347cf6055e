package graph

import (
	"github.com/feathrgo/registry/pkg/apierr"
	"github.com/feathrgo/registry/pkg/model"
)

// Snapshot is the graph's serializable state: every live entity and edge,
// plus the id sets a restore must reconstruct (tombstones, entry points).
// pkg/raftstore's FSM wraps this to build the bytes handed to
// raft.SnapshotSink and read back in Restore.
type Snapshot struct {
	Entities    []*model.Entity
	Edges       []model.Edge
	Tombstones  []model.ID
	EntryPoints []model.ID
}

// Snapshot captures the registry's current state. Entities are copied (with
// their properties cloned), so later connect/disconnect side effects do not
// reach the snapshot. Edges are recorded once per forward/reflection pair
// (only the ones with IsDownstream true), since Restore and BatchLoad rebuild
// each reflection from Edge.Reflection.
func (r *Registry) Snapshot() *Snapshot {
	s := &Snapshot{
		Tombstones:  make([]model.ID, 0, len(r.tombstones)),
		EntryPoints: append([]model.ID(nil), r.entryPoints...),
	}
	for _, e := range r.byID {
		c := *e
		c.Properties = e.Properties.Clone()
		s.Entities = append(s.Entities, &c)
	}
	seen := make(map[model.Edge]bool)
	for _, edges := range r.edgesFrom {
		for _, edge := range edges {
			if !edge.Type.IsDownstream() {
				continue
			}
			if seen[edge] {
				continue
			}
			seen[edge] = true
			s.Edges = append(s.Edges, edge)
		}
	}
	for id := range r.tombstones {
		s.Tombstones = append(s.Tombstones, id)
	}
	return s
}

// Restore replaces the registry's contents with a snapshot, bypassing every
// validation BatchLoad itself bypasses (see BatchLoad's doc comment) since a
// snapshot is, by construction, state a validating apply already accepted.
func (r *Registry) Restore(s *Snapshot) error {
	r.byID = make(map[model.ID]*model.Entity, len(s.Entities))
	r.byQualifiedName = make(map[string]model.ID, len(s.Entities))
	r.tombstones = make(map[model.ID]struct{}, len(s.Tombstones))
	r.edgesFrom = make(map[model.ID][]model.Edge)
	r.edgesTo = make(map[model.ID][]model.Edge)
	r.entryPoints = append([]model.ID(nil), s.EntryPoints...)

	for _, e := range s.Entities {
		r.byID[e.ID] = e
		r.byQualifiedName[e.QualifiedName] = e.ID
	}
	for _, id := range s.Tombstones {
		r.tombstones[id] = struct{}{}
	}
	for _, edge := range s.Edges {
		r.edgesFrom[edge.From] = append(r.edgesFrom[edge.From], edge)
		r.edgesTo[edge.To] = append(r.edgesTo[edge.To], edge)
		reflected := edge.Reflection()
		r.edgesFrom[reflected.From] = append(r.edgesFrom[reflected.From], reflected)
		r.edgesTo[reflected.To] = append(r.edgesTo[reflected.To], reflected)
	}

	if r.fts != nil {
		r.fts.Disable()
		for _, e := range s.Entities {
			r.fts.AddDoc(docOf(e))
		}
		r.fts.Commit()
		r.fts.Enable()
	}
	return nil
}

// BatchLoad ingests a complete entity/edge set in one pass, ahead of live
// traffic, bypassing the normal per-create validation (duplicate checks,
// edge-matrix checks) that would otherwise make loading a large pre-existing
// graph quadratic: the caller is trusted to hand BatchLoad an already-valid
// graph (typically a snapshot taken from another node, or a bulk import).
// The search index is disabled for the duration and committed once at the
// end, so indexing cost is linear in the number of entities rather than the
// number of AddDoc calls times the cost of a Commit-per-insert.
func (r *Registry) BatchLoad(entities []*model.Entity, edges []model.Edge) error {
	if len(r.byID) != 0 {
		return apierr.New(apierr.Internal, "BatchLoad requires an empty registry")
	}
	if r.fts != nil {
		r.fts.Disable()
	}

	for _, e := range entities {
		r.byID[e.ID] = e
		r.byQualifiedName[e.QualifiedName] = e.ID
		if e.Type.IsEntryPoint() {
			r.entryPoints = append(r.entryPoints, e.ID)
		}
		if r.fts != nil {
			r.fts.AddDoc(docOf(e))
		}
	}
	for _, edge := range edges {
		r.edgesFrom[edge.From] = append(r.edgesFrom[edge.From], edge)
		r.edgesTo[edge.To] = append(r.edgesTo[edge.To], edge)
		reflected := edge.Reflection()
		r.edgesFrom[reflected.From] = append(r.edgesFrom[reflected.From], reflected)
		r.edgesTo[reflected.To] = append(r.edgesTo[reflected.To], reflected)
	}

	if r.fts != nil {
		r.fts.Commit()
		r.fts.Enable()
	}
	return nil
}
