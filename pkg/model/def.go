package model

// The Def types are the create-request payloads clients submit; pkg/graph's
// creators turn a validated Def into an Entity plus the edges that attach it
// to its parent. Validation tags below feed go-playground/validator, whose
// failures the router turns into BadRequest.

// ProjectDef creates a Project: the graph's only entry point type.
type ProjectDef struct {
	QualifiedName string            `json:"qualifiedName" validate:"required"`
	Tags          map[string]string `json:"tags"`
}

// SourceDef creates a Source under a Project.
type SourceDef struct {
	Name                 string            `json:"name" validate:"required"`
	QualifiedName        string            `json:"qualifiedName"`
	SourceType           string            `json:"type" validate:"required"`
	Path                 string            `json:"path" validate:"required"`
	EventTimestampColumn *string           `json:"eventTimestampColumn"`
	TimestampFormat      *string           `json:"timestampFormat"`
	Preprocessing        *string           `json:"preprocessing"`
	Tags                 map[string]string `json:"tags"`
}

// AnchorDef creates an Anchor grouping features over one Source.
type AnchorDef struct {
	Name          string            `json:"name" validate:"required"`
	QualifiedName string            `json:"qualifiedName"`
	SourceID      ID                `json:"sourceId" validate:"required"`
	Tags          map[string]string `json:"tags"`
}

// AnchorFeatureDef creates an AnchorFeature under an Anchor.
type AnchorFeatureDef struct {
	Name           string                `json:"name" validate:"required"`
	QualifiedName  string                `json:"qualifiedName"`
	FeatureType    FeatureType           `json:"featureType" validate:"required"`
	Transformation FeatureTransformation `json:"transformation" validate:"required"`
	Key            []TypedKey            `json:"key"`
	Tags           map[string]string     `json:"tags"`
}

// DerivedFeatureDef creates a DerivedFeature from a set of anchor-feature and
// derived-feature inputs.
type DerivedFeatureDef struct {
	Name                 string                `json:"name" validate:"required"`
	QualifiedName        string                `json:"qualifiedName"`
	FeatureType          FeatureType           `json:"featureType" validate:"required"`
	Transformation       FeatureTransformation `json:"transformation" validate:"required"`
	Key                  []TypedKey            `json:"key"`
	InputAnchorFeatures  []ID                  `json:"inputAnchorFeatures"`
	InputDerivedFeatures []ID                  `json:"inputDerivedFeatures"`
	Tags                 map[string]string     `json:"tags"`
}

// QualifiedNameOf derives the dotted qualified name a def would get if its
// own QualifiedName field is left blank: <parentQualifiedName>__<name>,
// matching the original registry's default-naming convention.
func QualifiedNameOf(parentQualifiedName, name string) string {
	return parentQualifiedName + "__" + name
}
