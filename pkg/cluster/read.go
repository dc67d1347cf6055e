package cluster

import (
	"github.com/feathrgo/registry/pkg/api"
	"github.com/feathrgo/registry/pkg/apierr"
	"github.com/feathrgo/registry/pkg/graph"
	"github.com/feathrgo/registry/pkg/model"
)

func toTypeSet(types []model.EntityType) map[model.EntityType]bool {
	if len(types) == 0 {
		return nil
	}
	set := make(map[model.EntityType]bool, len(types))
	for _, t := range types {
		set[t] = true
	}
	return set
}

// dispatchRead serves a non-writing request directly against a read-locked
// registry — the mirror of raftstore's dispatch for writing requests, kept
// in pkg/cluster since reads never touch the Raft log.
func dispatchRead(r *graph.Registry, req api.Request) api.Response {
	switch req.Op {
	case api.OpGetEntity:
		e, err := r.GetEntity(req.EntityID)
		if err != nil {
			return api.ErrorResponse(err)
		}
		return api.EntityResponse(e)
	case api.OpGetEntityByQualifiedName:
		e, err := r.GetEntityByQualifiedName(req.QualifiedName)
		if err != nil {
			return api.ErrorResponse(err)
		}
		return api.EntityResponse(e)
	case api.OpListProjects:
		es, err := r.ListProjects(req.Offset, req.Limit)
		if err != nil {
			return api.ErrorResponse(err)
		}
		return api.EntitiesResponse(es)
	case api.OpGetProject:
		entities, edges, err := r.GetProject(req.QualifiedName)
		if err != nil {
			return api.ErrorResponse(err)
		}
		return api.LineageResponse(entities, edges)
	case api.OpGetChildren:
		es, err := r.GetChildren(req.EntityID, toTypeSet(req.EntityTypes))
		if err != nil {
			return api.ErrorResponse(err)
		}
		return api.EntitiesResponse(es)
	case api.OpGetLineage:
		entities, edges, err := r.GetLineage(req.EntityID, req.SizeLimit)
		if err != nil {
			return api.ErrorResponse(err)
		}
		return api.LineageResponse(entities, edges)
	case api.OpGetDownstream:
		entities, edges, err := r.GetEntityDownstream(req.EntityID, req.SizeLimit)
		if err != nil {
			return api.ErrorResponse(err)
		}
		return api.LineageResponse(entities, edges)
	case api.OpSearchEntity:
		es, err := r.SearchEntity(req.Query, toTypeSet(req.EntityTypes), req.Scope, req.Limit, req.Offset)
		if err != nil {
			return api.ErrorResponse(err)
		}
		return api.EntitiesResponse(es)
	default:
		return api.ErrorResponse(apierr.New(apierr.BadRequest, "%s is not a reading operation", req.Op))
	}
}
