// Package api defines the tagged-union request/response algebra every
// inbound operation is translated into before it reaches the router, the
// Raft log, or the forwarding boundary between nodes. The algebra is
// deliberately flat and JSON-serializable: a Request is exactly what goes
// into a Raft client-write entry, and a Response is exactly what comes back
// out, unchanged, whether the operation was handled locally or forwarded.
package api

import "github.com/feathrgo/registry/pkg/model"

// Op discriminates Request's variants.
type Op string

const (
	OpGetEntity               Op = "GetEntity"
	OpGetEntityByQualifiedName Op = "GetEntityByQualifiedName"
	OpListProjects             Op = "ListProjects"
	OpGetProject               Op = "GetProject"
	OpGetChildren              Op = "GetChildren"
	OpGetLineage               Op = "GetLineage"
	OpGetDownstream            Op = "GetDownstream"
	OpSearchEntity             Op = "SearchEntity"

	OpNewProject        Op = "NewProject"
	OpNewSource         Op = "NewSource"
	OpNewAnchor         Op = "NewAnchor"
	OpNewAnchorFeature  Op = "NewAnchorFeature"
	OpNewDerivedFeature Op = "NewDerivedFeature"
	OpDeleteEntity      Op = "DeleteEntity"
)

// writingOps is the exhaustive set of operations that mutate graph state;
// IsWritingRequest is a pure function of this set, never of request content,
// so routing decisions are deterministic before the state machine is even
// touched.
var writingOps = map[Op]bool{
	OpNewProject:        true,
	OpNewSource:         true,
	OpNewAnchor:         true,
	OpNewAnchorFeature:  true,
	OpNewDerivedFeature: true,
	OpDeleteEntity:      true,
}

// Request is the tagged union of every operation the service exposes. Only
// the fields relevant to Op are populated, using Go's plain
// struct-plus-discriminator idiom so the value stays a single, directly
// JSON-serializable shape suitable for the Raft log.
type Request struct {
	Op Op `json:"op"`

	// Pre-assigned by the node that originates a creation request: never
	// generated while applying the request.
	ID model.ID `json:"id,omitempty"`

	EntityID      model.ID `json:"entityId,omitempty"`
	QualifiedName string   `json:"qualifiedName,omitempty"`
	ProjectID     model.ID `json:"projectId,omitempty"`
	AnchorID      model.ID `json:"anchorId,omitempty"`

	EntityTypes []model.EntityType `json:"entityTypes,omitempty"`
	SizeLimit   int                `json:"sizeLimit,omitempty"`

	Query  string    `json:"query,omitempty"`
	Scope  *model.ID `json:"scope,omitempty"`
	Limit  int       `json:"limit,omitempty"`
	Offset int       `json:"offset,omitempty"`

	ProjectDef        *model.ProjectDef        `json:"projectDef,omitempty"`
	SourceDef         *model.SourceDef         `json:"sourceDef,omitempty"`
	AnchorDef         *model.AnchorDef         `json:"anchorDef,omitempty"`
	AnchorFeatureDef  *model.AnchorFeatureDef  `json:"anchorFeatureDef,omitempty"`
	DerivedFeatureDef *model.DerivedFeatureDef `json:"derivedFeatureDef,omitempty"`

	// Requestor is the x-registry-requestor header value, carried into the
	// log entry so every replica records the identical value.
	Requestor string `json:"requestor,omitempty"`
}

// IsWritingRequest reports whether r mutates graph state. Writing requests
// go through the Raft log; everything else is served straight from a read
// guard on the state machine.
func (r Request) IsWritingRequest() bool {
	return writingOps[r.Op]
}
