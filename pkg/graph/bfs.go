package graph

import (
	"github.com/feathrgo/registry/pkg/apierr"
	"github.com/feathrgo/registry/pkg/model"
)

// BFS traverses from id following only edges of type t, up to size_limit
// entities, and returns every entity reached (excluding id itself) along
// with the edges traversed to reach them.
func (r *Registry) BFS(id model.ID, t model.EdgeType, sizeLimit int) ([]*model.Entity, []model.Edge, error) {
	if _, err := r.GetEntity(id); err != nil {
		return nil, nil, err
	}

	visited := map[model.ID]bool{id: true}
	queue := []model.ID{id}
	var entities []*model.Entity
	var edges []model.Edge

	for len(queue) > 0 && (sizeLimit <= 0 || len(entities) < sizeLimit) {
		cur := queue[0]
		queue = queue[1:]
		for _, edge := range r.edgesFrom[cur] {
			if edge.Type != t || visited[edge.To] {
				continue
			}
			visited[edge.To] = true
			e, err := r.GetEntity(edge.To)
			if err != nil {
				continue
			}
			entities = append(entities, e)
			edges = append(edges, edge)
			queue = append(queue, edge.To)
			if sizeLimit > 0 && len(entities) >= sizeLimit {
				break
			}
		}
	}
	return entities, edges, nil
}

// GetLineage returns every entity upstream (via Consumes) and downstream
// (via Produces) of id, directly or indirectly, deduplicated, along with the
// edges traversed in either direction.
func (r *Registry) GetLineage(id model.ID, sizeLimit int) ([]*model.Entity, []model.Edge, error) {
	upstream, upstreamEdges, err := r.BFS(id, model.Consumes, sizeLimit)
	if err != nil {
		return nil, nil, err
	}
	downstream, downstreamEdges, err := r.BFS(id, model.Produces, sizeLimit)
	if err != nil {
		return nil, nil, err
	}

	seen := make(map[model.ID]bool)
	var entities []*model.Entity
	for _, e := range append(upstream, downstream...) {
		if !seen[e.ID] {
			seen[e.ID] = true
			entities = append(entities, e)
		}
	}

	seenEdges := make(map[model.Edge]bool)
	var edges []model.Edge
	for _, e := range append(upstreamEdges, downstreamEdges...) {
		if !seenEdges[e] {
			seenEdges[e] = true
			edges = append(edges, e)
		}
	}
	return entities, edges, nil
}

// GetEntityDownstream is the one-directional half of GetLineage, following
// only Produces edges. Supplements get_lineage with the narrower traversal
// a consumer wants when it only cares what depends on an entity, not what it
// depends on.
func (r *Registry) GetEntityDownstream(id model.ID, sizeLimit int) ([]*model.Entity, []model.Edge, error) {
	return r.BFS(id, model.Produces, sizeLimit)
}

// GetChildren returns the direct Contains-children of a Project or Anchor,
// filtered to the requested entity types.
func (r *Registry) GetChildren(id model.ID, types map[model.EntityType]bool) ([]*model.Entity, error) {
	parent, err := r.GetEntity(id)
	if err != nil {
		return nil, err
	}
	if parent.Type != model.TypeProject && parent.Type != model.TypeAnchor {
		return nil, apierr.New(apierr.WrongEntityType, "entity %s has type %s, want Project or Anchor", id, parent.Type)
	}

	var out []*model.Entity
	for _, edge := range r.edgesFrom[id] {
		if edge.Type != model.Contains {
			continue
		}
		child, err := r.GetEntity(edge.To)
		if err != nil {
			continue
		}
		if len(types) == 0 || types[child.Type] {
			out = append(out, child)
		}
	}
	return out, nil
}

// GetProject returns a Project's complete subgraph: every entity it
// (transitively) Contains, plus every edge of any type incident to the
// reachable node set (so e.g. the BelongsTo reflections and any Consumes/
// Produces edges among the reached entities are included, not just the
// Contains edges traversed to reach them).
func (r *Registry) GetProject(qualifiedName string) ([]*model.Entity, []model.Edge, error) {
	project, err := r.GetEntityByQualifiedName(qualifiedName)
	if err != nil {
		return nil, nil, err
	}
	if project.Type != model.TypeProject {
		return nil, nil, apierr.New(apierr.WrongEntityType, "%q is not a Project", qualifiedName)
	}
	entities, _, err := r.BFS(project.ID, model.Contains, 0)
	if err != nil {
		return nil, nil, err
	}
	entities = append([]*model.Entity{project}, entities...)

	seen := make(map[model.Edge]bool)
	var edges []model.Edge
	for _, e := range entities {
		for _, edge := range append(r.edgesFrom[e.ID], r.edgesTo[e.ID]...) {
			if !seen[edge] {
				seen[edge] = true
				edges = append(edges, edge)
			}
		}
	}
	return entities, edges, nil
}
