package api

import (
	"github.com/feathrgo/registry/pkg/apierr"
	"github.com/feathrgo/registry/pkg/model"
)

// Kind discriminates Response's variants.
type Kind string

const (
	KindUnit          Kind = "Unit"
	KindID            Kind = "Id"
	KindEntity        Kind = "Entity"
	KindEntities      Kind = "Entities"
	KindEntityLineage Kind = "EntityLineage"
	KindError         Kind = "Error"
)

// EntityLineage is the wire shape GetLineage/GetProject/GetDownstream
// return: the entities reached, keyed by id for O(1) client-side lookup,
// plus the edges traversed to reach them (for GetProject, every edge
// incident to a reached entity).
type EntityLineage struct {
	GuidEntityMap map[model.ID]*model.Entity `json:"guidEntityMap"`
	Relations     []model.Edge               `json:"relations"`
}

// Response is the tagged union every operation resolves to, whether handled
// locally or forwarded: the same value crosses the Raft-apply boundary and
// the inter-node forwarding boundary unchanged.
type Response struct {
	Kind Kind `json:"kind"`

	ID       model.ID       `json:"id,omitempty"`
	Entity   *model.Entity  `json:"entity,omitempty"`
	Entities []*model.Entity `json:"entities,omitempty"`
	Lineage  *EntityLineage `json:"lineage,omitempty"`
	Err      *apierr.Error  `json:"error,omitempty"`
}

func Unit() Response                      { return Response{Kind: KindUnit} }
func IDResponse(id model.ID) Response      { return Response{Kind: KindID, ID: id} }
func EntityResponse(e *model.Entity) Response { return Response{Kind: KindEntity, Entity: e} }
func EntitiesResponse(es []*model.Entity) Response {
	return Response{Kind: KindEntities, Entities: es}
}
func LineageResponse(entities []*model.Entity, edges []model.Edge) Response {
	m := make(map[model.ID]*model.Entity, len(entities))
	for _, e := range entities {
		m[e.ID] = e
	}
	return Response{Kind: KindEntityLineage, Lineage: &EntityLineage{GuidEntityMap: m, Relations: edges}}
}
func ErrorResponse(err error) Response {
	return Response{Kind: KindError, Err: apierr.AsAPIError(err)}
}

// AsError returns the carried error, or nil if this response is not an error
// response.
func (r Response) AsError() error {
	if r.Kind != KindError || r.Err == nil {
		return nil
	}
	return r.Err
}
