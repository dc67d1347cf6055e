// Package model defines the registry's typed entity/edge graph: the nodes
// (Project, Source, Anchor, AnchorFeature, DerivedFeature), the directed
// edges between them (Contains/BelongsTo, Consumes/Produces), and the
// connect/disconnect hooks that keep each entity's denormalized
// back-references (Project.Anchors, Anchor.Features, ...) in sync with the
// live edge set.
//
// Everything here is pure: no locking, no storage, no search. pkg/graph owns
// the mutable registry that wraps these types; it holds no lock either, and
// leaves locking to its caller (pkg/raftstore's FSM).
package model

import (
	"time"

	"github.com/google/uuid"
)

// ID is the registry's 128-bit stable entity identifier. It is pre-assigned
// by the node that originates a creation request, before the request enters
// the Raft log, so that every replica applies the identical identifier.
type ID uuid.UUID

// NewID generates a fresh random identifier.
func NewID() ID { return ID(uuid.New()) }

// Nil is the zero identifier, used as a sentinel for "no back-reference."
var Nil ID

func (id ID) String() string { return uuid.UUID(id).String() }

// ParseID parses a textual UUID into an ID.
func ParseID(s string) (ID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return ID{}, err
	}
	return ID(u), nil
}

func (id ID) IsNil() bool { return id == Nil }

// EntityType tags an entity with its place in the typed graph.
type EntityType string

const (
	TypeProject        EntityType = "Project"
	TypeSource         EntityType = "Source"
	TypeAnchor         EntityType = "Anchor"
	TypeAnchorFeature  EntityType = "AnchorFeature"
	TypeDerivedFeature EntityType = "DerivedFeature"
	TypeUnknown        EntityType = "Unknown"
)

// IsEntryPoint reports whether entities of this type head the graph's list
// of entry points (used by Project-rooted traversals such as get_project
// and the supplemented ListProjects operation).
func (t EntityType) IsEntryPoint() bool { return t == TypeProject }

// EntityRef is a lightweight back-reference to another live entity, stored
// denormalized inside Project/Anchor/DerivedFeature properties. It
// mirrors the original registry's EntityRef (guid + type + qualified name)
// without the general unique_attributes map, since the registry only ever
// keys entities by qualified name.
type EntityRef struct {
	ID            ID         `json:"guid"`
	TypeName      EntityType `json:"typeName"`
	QualifiedName string     `json:"qualifiedName"`
}

// Properties is the polymorphic per-type payload every entity carries. Each
// concrete *Props type below implements it; callers type-switch on the
// concrete type (the idiomatic Go stand-in for the original's tagged
// `Attributes` enum).
type Properties interface {
	EntityType() EntityType
	// Clone returns a deep copy, so Registry can mutate connect/disconnect
	// side effects without aliasing a caller's copy.
	Clone() Properties
}

// Entity is one node of the registry graph.
type Entity struct {
	ID            ID
	Type          EntityType
	Name          string
	QualifiedName string
	Properties    Properties
	CreatedBy     string // x-registry-requestor, informational only
	CreatedAt     time.Time
}

// ProjectProps is the Project property variant: a bare qualified name, tags,
// and denormalized back-references to every entity it Contains.
type ProjectProps struct {
	QualifiedName  string
	Tags           map[string]string
	Sources        []EntityRef
	Anchors        []EntityRef
	AnchorFeatures []EntityRef
	DerivedFeatures []EntityRef
}

func (p *ProjectProps) EntityType() EntityType { return TypeProject }
func (p *ProjectProps) Clone() Properties {
	c := *p
	c.Tags = cloneTags(p.Tags)
	c.Sources = append([]EntityRef(nil), p.Sources...)
	c.Anchors = append([]EntityRef(nil), p.Anchors...)
	c.AnchorFeatures = append([]EntityRef(nil), p.AnchorFeatures...)
	c.DerivedFeatures = append([]EntityRef(nil), p.DerivedFeatures...)
	return &c
}

// SourceProps is the Source property variant: a pointer at raw or
// preprocessed data.
type SourceProps struct {
	QualifiedName         string
	Path                  string
	Preprocessing         *string
	EventTimestampColumn  *string
	TimestampFormat       *string
	SourceType            string
	Tags                  map[string]string
}

func (p *SourceProps) EntityType() EntityType { return TypeSource }
func (p *SourceProps) Clone() Properties {
	c := *p
	c.Tags = cloneTags(p.Tags)
	return &c
}

// AnchorProps is the Anchor property variant: groups AnchorFeatures over one
// Source.
type AnchorProps struct {
	QualifiedName string
	Features      []EntityRef
	Source        *EntityRef
	Tags          map[string]string
}

func (p *AnchorProps) EntityType() EntityType { return TypeAnchor }
func (p *AnchorProps) Clone() Properties {
	c := *p
	c.Features = append([]EntityRef(nil), p.Features...)
	c.Tags = cloneTags(p.Tags)
	if p.Source != nil {
		src := *p.Source
		c.Source = &src
	}
	return &c
}

// VectorType mirrors the original registry's feature vector shape tag.
type VectorType string

const VectorTensor VectorType = "TENSOR"

// TensorCategory is density: dense or sparse tensors.
type TensorCategory string

const (
	TensorDense  TensorCategory = "DENSE"
	TensorSparse TensorCategory = "SPARSE"
)

// ValueType is a feature's scalar value type.
type ValueType string

const (
	ValueUnspecified ValueType = "UNSPECIFIED"
	ValueBool        ValueType = "BOOL"
	ValueInt32       ValueType = "INT32"
	ValueInt64       ValueType = "INT64"
	ValueFloat       ValueType = "FLOAT"
	ValueDouble      ValueType = "DOUBLE"
	ValueString      ValueType = "STRING"
	ValueBytes       ValueType = "BYTES"
)

// FeatureType describes a feature's vector shape.
type FeatureType struct {
	Type          VectorType
	TensorCategory TensorCategory
	DimensionType []ValueType
	ValType       ValueType
}

// Aggregation is a window-aggregation function.
type Aggregation string

const (
	AggNOP            Aggregation = "NOP"
	AggAvg            Aggregation = "AVG"
	AggMax            Aggregation = "MAX"
	AggMin            Aggregation = "MIN"
	AggSum            Aggregation = "SUM"
	AggUnion          Aggregation = "UNION"
	AggElementwiseAvg Aggregation = "ELEMENTWISE_AVG"
	AggElementwiseMin Aggregation = "ELEMENTWISE_MIN"
	AggElementwiseMax Aggregation = "ELEMENTWISE_MAX"
	AggElementwiseSum Aggregation = "ELEMENTWISE_SUM"
	AggLatest         Aggregation = "LATEST"
)

// TransformKind discriminates FeatureTransformation's three shapes.
type TransformKind string

const (
	TransformExpression TransformKind = "expression"
	TransformWindowAgg  TransformKind = "window_agg"
	TransformUDF        TransformKind = "udf"
)

// FeatureTransformation is a closed sum of the three ways a feature value is
// computed: an inline expression, a window aggregation, or a named UDF.
type FeatureTransformation struct {
	Kind TransformKind

	// Kind == TransformExpression
	TransformExpr string

	// Kind == TransformWindowAgg
	DefExpr string
	AggFunc *Aggregation
	Window  *string
	GroupBy *string
	Filter  *string
	Limit   *uint64

	// Kind == TransformUDF
	UDFName string
}

// TypedKey is one join/grouping key a feature is keyed by.
type TypedKey struct {
	KeyColumn       string
	KeyColumnType   ValueType
	FullName        *string
	Description     *string
	KeyColumnAlias  *string
}

// AnchorFeatureProps is the AnchorFeature property variant.
type AnchorFeatureProps struct {
	QualifiedName  string
	Type           FeatureType
	Transformation FeatureTransformation
	Key            []TypedKey
	Tags           map[string]string
}

func (p *AnchorFeatureProps) EntityType() EntityType { return TypeAnchorFeature }
func (p *AnchorFeatureProps) Clone() Properties {
	c := *p
	c.Key = append([]TypedKey(nil), p.Key...)
	c.Tags = cloneTags(p.Tags)
	return &c
}

// DerivedFeatureProps is the DerivedFeature property variant: as
// AnchorFeatureProps, plus the denormalized input sets.
type DerivedFeatureProps struct {
	QualifiedName        string
	Type                 FeatureType
	Transformation       FeatureTransformation
	Key                  []TypedKey
	InputAnchorFeatures  []EntityRef
	InputDerivedFeatures []EntityRef
	Tags                 map[string]string
}

func (p *DerivedFeatureProps) EntityType() EntityType { return TypeDerivedFeature }
func (p *DerivedFeatureProps) Clone() Properties {
	c := *p
	c.Key = append([]TypedKey(nil), p.Key...)
	c.InputAnchorFeatures = append([]EntityRef(nil), p.InputAnchorFeatures...)
	c.InputDerivedFeatures = append([]EntityRef(nil), p.InputDerivedFeatures...)
	c.Tags = cloneTags(p.Tags)
	return &c
}

func cloneTags(tags map[string]string) map[string]string {
	if tags == nil {
		return nil
	}
	c := make(map[string]string, len(tags))
	for k, v := range tags {
		c[k] = v
	}
	return c
}

// Ref builds the EntityRef other entities should carry for e.
func (e *Entity) Ref() EntityRef {
	return EntityRef{ID: e.ID, TypeName: e.Type, QualifiedName: e.QualifiedName}
}
