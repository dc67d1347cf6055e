// Package graph is the in-memory typed property graph: the node arena, the
// indices that key entities by id and by qualified name, and the connect/
// disconnect operations that keep edges and their denormalized
// back-references consistent. It is the state a Raft log entry mutates once
// applied; pkg/raftstore wraps a *Registry inside an FSM.
package graph

import (
	"strings"

	"github.com/feathrgo/registry/pkg/apierr"
	"github.com/feathrgo/registry/pkg/model"
	"github.com/feathrgo/registry/pkg/search"
)

// Registry is the mutable entity/edge graph. It holds no lock of its own:
// pkg/raftstore's FSM serializes every mutation through the single apply
// path, and reads take the FSM's RWMutex, so Registry methods assume the
// caller already holds the appropriate lock.
type Registry struct {
	// byID is the arena: every live entity, keyed by its stable id.
	byID map[model.ID]*model.Entity
	// byQualifiedName enforces global qualified-name uniqueness.
	byQualifiedName map[string]model.ID
	// tombstones records deleted ids so a replayed creation with the same id
	// is rejected rather than silently resurrected.
	tombstones map[model.ID]struct{}
	// entryPoints lists every live Project id, in creation order, backing
	// ListProjects.
	entryPoints []model.ID
	// edgesFrom/edgesTo index the live edge set for traversal.
	edgesFrom map[model.ID][]model.Edge
	edgesTo   map[model.ID][]model.Edge

	fts *search.Index
}

// New builds an empty registry wired to the given full-text index. Passing
// nil disables indexing (used by tests that only exercise graph shape).
func New(fts *search.Index) *Registry {
	return &Registry{
		byID:            make(map[model.ID]*model.Entity),
		byQualifiedName: make(map[string]model.ID),
		tombstones:      make(map[model.ID]struct{}),
		edgesFrom:       make(map[model.ID][]model.Edge),
		edgesTo:         make(map[model.ID][]model.Edge),
		fts:             fts,
	}
}

// InsertEntity adds a brand-new entity to the graph. Duplicate-id is checked
// before duplicate-qualified-name, so a retried creation with a reused id
// surfaces DuplicateId even if the qualified name also collides.
func (r *Registry) InsertEntity(e *model.Entity) error {
	if _, exists := r.byID[e.ID]; exists {
		return apierr.New(apierr.DuplicateID, "entity %s already exists", e.ID)
	}
	if _, dead := r.tombstones[e.ID]; dead {
		return apierr.New(apierr.DuplicateID, "entity %s was deleted", e.ID)
	}
	if _, exists := r.byQualifiedName[e.QualifiedName]; exists {
		return apierr.New(apierr.DuplicateQualifiedName, "qualified name %q already exists", e.QualifiedName)
	}

	r.byID[e.ID] = e
	r.byQualifiedName[e.QualifiedName] = e.ID
	if e.Type.IsEntryPoint() {
		r.entryPoints = append(r.entryPoints, e.ID)
	}
	if r.fts != nil {
		r.fts.AddDoc(docOf(e))
		r.fts.Commit()
	}
	return nil
}

// GetEntity looks up a live entity by id.
func (r *Registry) GetEntity(id model.ID) (*model.Entity, error) {
	e, ok := r.byID[id]
	if !ok {
		return nil, apierr.New(apierr.EntityNotFound, "entity %s not found", id)
	}
	return e, nil
}

// GetEntityByQualifiedName looks up a live entity by its qualified name.
func (r *Registry) GetEntityByQualifiedName(qualifiedName string) (*model.Entity, error) {
	id, ok := r.byQualifiedName[qualifiedName]
	if !ok {
		return nil, apierr.New(apierr.EntityNotFound, "qualified name %q not found", qualifiedName)
	}
	return r.byID[id], nil
}

// ListProjects returns up to limit live Project entities starting at offset,
// in entry-point (creation) order. Supplements get_project's single-entity
// lookup with the paged listing the original API also exposed.
func (r *Registry) ListProjects(offset, limit int) ([]*model.Entity, error) {
	if offset < 0 || limit < 0 {
		return nil, apierr.New(apierr.BadRequest, "offset and limit must be non-negative")
	}
	if offset >= len(r.entryPoints) {
		return nil, nil
	}
	end := offset + limit
	if limit == 0 || end > len(r.entryPoints) {
		end = len(r.entryPoints)
	}
	out := make([]*model.Entity, 0, end-offset)
	for _, id := range r.entryPoints[offset:end] {
		if e, ok := r.byID[id]; ok {
			out = append(out, e)
		}
	}
	return out, nil
}

// SearchEntity delegates to the full-text index and maps results back to
// live entities, filtering out any hit that has since been tombstoned or no
// longer matches the requested type set.
func (r *Registry) SearchEntity(query string, types map[model.EntityType]bool, scope *model.ID, limit, offset int) ([]*model.Entity, error) {
	if r.fts == nil {
		return nil, nil
	}
	hits := r.fts.Search(query, limit+offset)

	var scopePrefix string
	if scope != nil {
		scopeEntity, ok := r.byID[*scope]
		if !ok {
			return nil, apierr.New(apierr.EntityNotFound, "scope entity %s not found", *scope)
		}
		scopePrefix = scopeEntity.QualifiedName
	}

	out := make([]*model.Entity, 0, len(hits))
	for _, hit := range hits {
		id, err := model.ParseID(hit.ID)
		if err != nil {
			continue
		}
		e, ok := r.byID[id]
		if !ok {
			continue
		}
		if len(types) != 0 && !types[e.Type] {
			continue
		}
		if scope != nil && !strings.HasPrefix(e.QualifiedName, scopePrefix+"__") {
			continue
		}
		out = append(out, e)
	}
	if offset >= len(out) {
		return nil, nil
	}
	end := len(out)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return out[offset:end], nil
}

// Connect creates edge and its reflection between two live entities,
// validating the (fromType, toType, edgeType) shape and applying both
// sides' denormalization hooks.
func (r *Registry) Connect(fromID, toID model.ID, t model.EdgeType) error {
	from, err := r.GetEntity(fromID)
	if err != nil {
		return err
	}
	to, err := r.GetEntity(toID)
	if err != nil {
		return err
	}
	if !model.ValidateEdge(from.Type, to.Type, t) {
		return apierr.New(apierr.InvalidEdge, "%s -%s-> %s is not a legal edge", from.Type, t, to.Type)
	}

	if err := model.Connect(from, to, t); err != nil {
		return apierr.New(apierr.Internal, "%s", err)
	}
	reflected := t.Reflection()
	if err := model.Connect(to, from, reflected); err != nil {
		return apierr.New(apierr.Internal, "%s", err)
	}

	edge := model.Edge{From: fromID, To: toID, Type: t}
	r.edgesFrom[fromID] = append(r.edgesFrom[fromID], edge)
	r.edgesTo[toID] = append(r.edgesTo[toID], edge)
	r.edgesFrom[toID] = append(r.edgesFrom[toID], edge.Reflection())
	r.edgesTo[fromID] = append(r.edgesTo[fromID], edge.Reflection())
	return nil
}

// Disconnect removes edge and its reflection, undoing both sides'
// denormalization.
func (r *Registry) Disconnect(fromID, toID model.ID, t model.EdgeType) error {
	from, err := r.GetEntity(fromID)
	if err != nil {
		return err
	}
	to, err := r.GetEntity(toID)
	if err != nil {
		return err
	}

	model.Disconnect(from, to, t)
	model.Disconnect(to, from, t.Reflection())

	r.edgesFrom[fromID] = removeEdge(r.edgesFrom[fromID], toID, t)
	r.edgesTo[toID] = removeEdge(r.edgesTo[toID], fromID, t)
	r.edgesFrom[toID] = removeEdge(r.edgesFrom[toID], fromID, t.Reflection())
	r.edgesTo[fromID] = removeEdge(r.edgesTo[fromID], toID, t.Reflection())
	return nil
}

// DeleteEntityByID removes an entity with no outgoing Contains or Produces
// edge: one that isn't itself the parent or source of something still live.
// An entity with only upstream edges (BelongsTo, Consumes) pointing out of it
// is a leaf from the deletion rule's point of view and may be removed;
// deleting one with a live downstream edge is rejected with DeleteInUsed.
func (r *Registry) DeleteEntityByID(id model.ID) error {
	e, err := r.GetEntity(id)
	if err != nil {
		return err
	}

	for _, edge := range r.edgesFrom[id] {
		if edge.Type.IsDownstream() {
			return apierr.New(apierr.DeleteInUsed, "entity %s is still connected via %s", id, edge.Type)
		}
	}

	for _, edge := range append([]model.Edge(nil), r.edgesFrom[id]...) {
		if err := r.Disconnect(id, edge.To, edge.Type); err != nil {
			return err
		}
	}

	delete(r.byID, id)
	delete(r.byQualifiedName, e.QualifiedName)
	delete(r.edgesFrom, id)
	delete(r.edgesTo, id)
	r.tombstones[id] = struct{}{}
	r.entryPoints = removeID(r.entryPoints, id)
	if r.fts != nil {
		r.fts.Remove(id.String())
	}
	return nil
}

// GetNeighbors returns every edge incident to id in the given direction.
func (r *Registry) GetNeighbors(id model.ID, outgoing bool) []model.Edge {
	if outgoing {
		return r.edgesFrom[id]
	}
	return r.edgesTo[id]
}

func removeEdge(edges []model.Edge, other model.ID, t model.EdgeType) []model.Edge {
	out := edges[:0]
	for _, e := range edges {
		keep := e.Type != t || (e.To != other && e.From != other)
		if keep {
			out = append(out, e)
		}
	}
	return out
}

func removeID(ids []model.ID, id model.ID) []model.ID {
	out := ids[:0]
	for _, x := range ids {
		if x != id {
			out = append(out, x)
		}
	}
	return out
}

// docOf builds the full-text document for e. Scopes is the "__"-delimited
// prefix of the entity's own qualified name, letting a search for a
// project's name also surface its children without graph needing a parent
// pointer on every entity.
func docOf(e *model.Entity) search.Doc {
	return search.Doc{
		ID:     e.ID.String(),
		Name:   e.Name,
		Scopes: scopeOf(e.QualifiedName),
		Type:   string(e.Type),
		Body:   e.QualifiedName,
	}
}

func scopeOf(qualifiedName string) string {
	for i := 0; i < len(qualifiedName)-1; i++ {
		if qualifiedName[i] == '_' && qualifiedName[i+1] == '_' {
			return qualifiedName[:i]
		}
	}
	return qualifiedName
}
