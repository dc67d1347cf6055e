package model

import "fmt"

// EdgeType is the directed relationship between two entities.
type EdgeType string

const (
	// BelongsTo: Feature/Source/Anchor belongs to its Project.
	BelongsTo EdgeType = "BelongsTo"
	// Contains: Project contains Feature/Source/Anchor; Anchor contains
	// AnchorFeatures.
	Contains EdgeType = "Contains"
	// Consumes: Anchor/AnchorFeature uses Source; DerivedFeature uses
	// AnchorFeatures/DerivedFeatures.
	Consumes EdgeType = "Consumes"
	// Produces: Source used by Anchor/AnchorFeature; AnchorFeature/
	// DerivedFeature feeds a DerivedFeature.
	Produces EdgeType = "Produces"
)

// Reflection returns the edge type of the implicit reverse edge that every
// connect/disconnect keeps in lockstep with the forward edge.
func (t EdgeType) Reflection() EdgeType {
	switch t {
	case BelongsTo:
		return Contains
	case Contains:
		return BelongsTo
	case Consumes:
		return Produces
	case Produces:
		return Consumes
	default:
		return t
	}
}

// IsDownstream reports whether traversing this edge moves toward entities
// that depend on the source (Contains, Produces) — the edges that block
// DeleteEntityByID and that Snapshot records. GetEntityDownstream follows
// only the Produces half.
func (t EdgeType) IsDownstream() bool {
	return t == Contains || t == Produces
}

// IsUpstream reports whether traversing this edge moves toward entities the
// source depends on (BelongsTo, Consumes). GetLineage's upstream half
// follows only the Consumes half.
func (t EdgeType) IsUpstream() bool {
	return t == BelongsTo || t == Consumes
}

type edgeKey struct {
	From EntityType
	To   EntityType
	Type EdgeType
}

// validEdges is the exhaustive (from_type, to_type, edge_type) adjacency
// table: any edge not listed here is rejected with InvalidEdge. Kept as a
// literal table, not computed, so the legal shape of the graph is visible
// in one place.
var validEdges = map[edgeKey]bool{
	{TypeProject, TypeSource, Contains}:                true,
	{TypeProject, TypeAnchor, Contains}:                true,
	{TypeProject, TypeAnchorFeature, Contains}:         true,
	{TypeProject, TypeDerivedFeature, Contains}:        true,
	{TypeSource, TypeProject, BelongsTo}:                true,
	{TypeSource, TypeAnchor, Produces}:                  true,
	{TypeSource, TypeAnchorFeature, Produces}:           true,
	{TypeAnchor, TypeProject, BelongsTo}:                true,
	{TypeAnchor, TypeSource, Consumes}:                  true,
	{TypeAnchor, TypeAnchorFeature, Contains}:           true,
	{TypeAnchorFeature, TypeProject, BelongsTo}:         true,
	{TypeAnchorFeature, TypeSource, Consumes}:           true,
	{TypeAnchorFeature, TypeAnchor, BelongsTo}:          true,
	{TypeAnchorFeature, TypeDerivedFeature, Produces}:   true,
	{TypeDerivedFeature, TypeProject, BelongsTo}:        true,
	{TypeDerivedFeature, TypeAnchorFeature, Consumes}:   true,
	{TypeDerivedFeature, TypeDerivedFeature, Produces}:  true,
	{TypeDerivedFeature, TypeDerivedFeature, Consumes}:  true,
}

// ValidateEdge reports whether an edge of type t from an entity of type
// from to an entity of type to is a legal edge in the typed graph.
// Every reflected pair used by Connect/Disconnect is also present in this
// table, since reflection just swaps from/to and flips the edge type.
func ValidateEdge(from, to EntityType, t EdgeType) bool {
	return validEdges[edgeKey{from, to, t}]
}

// Edge is one directed relationship in the graph. Registry always stores
// edges in forward/reflection pairs; Edge itself carries no properties
// beyond its endpoints and type, since nothing in the model needs
// edge-scoped data beyond what Connect's denormalization writes into the
// endpoints' properties.
type Edge struct {
	From ID
	To   ID
	Type EdgeType
}

// Reflection returns the implicit reverse edge.
func (e Edge) Reflection() Edge {
	return Edge{From: e.To, To: e.From, Type: e.Type.Reflection()}
}

func (e Edge) String() string {
	return fmt.Sprintf("%s -%s-> %s", e.From, e.Type, e.To)
}

// Connect applies the denormalization side effect of adding an edge of type
// t from from to to, per the original registry's per-type connect()
// semantics; pkg/graph calls it once for the edge and once for its
// reflection. It mutates the properties of from in place;
// callers (pkg/graph) are responsible for holding the write lock and for
// having already validated the edge via ValidateEdge.
func Connect(from, to *Entity, t EdgeType) error {
	ref := to.Ref()
	switch t {
	case Contains:
		switch p := from.Properties.(type) {
		case *ProjectProps:
			switch to.Type {
			case TypeSource:
				p.Sources = appendRef(p.Sources, ref)
			case TypeAnchor:
				p.Anchors = appendRef(p.Anchors, ref)
			case TypeAnchorFeature:
				p.AnchorFeatures = appendRef(p.AnchorFeatures, ref)
			case TypeDerivedFeature:
				p.DerivedFeatures = appendRef(p.DerivedFeatures, ref)
			default:
				return fmt.Errorf("model: Project cannot Contain %s", to.Type)
			}
		case *AnchorProps:
			if to.Type != TypeAnchorFeature {
				return fmt.Errorf("model: Anchor cannot Contain %s", to.Type)
			}
			p.Features = appendRef(p.Features, ref)
		default:
			return fmt.Errorf("model: %s cannot Contain", from.Type)
		}
	case BelongsTo:
		// BelongsTo is the reflection of Contains; its denormalization is
		// carried entirely by the Contains side, so there is nothing
		// additional to record on the child.
	case Consumes:
		switch p := from.Properties.(type) {
		case *AnchorProps:
			if to.Type != TypeSource {
				return fmt.Errorf("model: Anchor can only Consume a Source")
			}
			src := ref
			p.Source = &src
		case *AnchorFeatureProps:
			if to.Type != TypeSource {
				return fmt.Errorf("model: AnchorFeature can only Consume a Source")
			}
			// No back-reference to record: AnchorFeatureProps carries no
			// source field, unlike AnchorProps.
		case *DerivedFeatureProps:
			switch to.Type {
			case TypeAnchorFeature:
				p.InputAnchorFeatures = appendRef(p.InputAnchorFeatures, ref)
			case TypeDerivedFeature:
				p.InputDerivedFeatures = appendRef(p.InputDerivedFeatures, ref)
			default:
				return fmt.Errorf("model: DerivedFeature cannot Consume %s", to.Type)
			}
		default:
			return fmt.Errorf("model: %s cannot Consume", from.Type)
		}
	case Produces:
		// Produces is the reflection of Consumes; the consuming side
		// records the relationship, so Produces itself is a no-op here.
	}
	return nil
}

// Disconnect undoes Connect's denormalization for edge type t between from
// and to.
func Disconnect(from, to *Entity, t EdgeType) {
	switch t {
	case Contains:
		switch p := from.Properties.(type) {
		case *ProjectProps:
			switch to.Type {
			case TypeSource:
				p.Sources = removeRef(p.Sources, to.ID)
			case TypeAnchor:
				p.Anchors = removeRef(p.Anchors, to.ID)
			case TypeAnchorFeature:
				p.AnchorFeatures = removeRef(p.AnchorFeatures, to.ID)
			case TypeDerivedFeature:
				p.DerivedFeatures = removeRef(p.DerivedFeatures, to.ID)
			}
		case *AnchorProps:
			p.Features = removeRef(p.Features, to.ID)
		}
	case Consumes:
		switch p := from.Properties.(type) {
		case *AnchorProps:
			if p.Source != nil && p.Source.ID == to.ID {
				p.Source = nil
			}
		case *DerivedFeatureProps:
			p.InputAnchorFeatures = removeRef(p.InputAnchorFeatures, to.ID)
			p.InputDerivedFeatures = removeRef(p.InputDerivedFeatures, to.ID)
		}
	}
}

func appendRef(refs []EntityRef, ref EntityRef) []EntityRef {
	for _, r := range refs {
		if r.ID == ref.ID {
			return refs
		}
	}
	return append(refs, ref)
}

func removeRef(refs []EntityRef, id ID) []EntityRef {
	out := refs[:0]
	for _, r := range refs {
		if r.ID != id {
			out = append(out, r)
		}
	}
	return out
}
