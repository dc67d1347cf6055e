package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateEdge(t *testing.T) {
	cases := []struct {
		name string
		from EntityType
		to   EntityType
		t    EdgeType
		want bool
	}{
		{"project contains source", TypeProject, TypeSource, Contains, true},
		{"project contains anchor", TypeProject, TypeAnchor, Contains, true},
		{"anchor contains anchor feature", TypeAnchor, TypeAnchorFeature, Contains, true},
		{"anchor consumes source", TypeAnchor, TypeSource, Consumes, true},
		{"derived feature consumes anchor feature", TypeDerivedFeature, TypeAnchorFeature, Consumes, true},
		{"derived feature consumes derived feature", TypeDerivedFeature, TypeDerivedFeature, Consumes, true},
		{"source contains project is illegal", TypeSource, TypeProject, Contains, false},
		{"anchor feature contains project is illegal", TypeAnchorFeature, TypeProject, Contains, false},
		{"source belongs to project, the reflection of contains, is legal", TypeSource, TypeProject, BelongsTo, true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, ValidateEdge(c.from, c.to, c.t))
		})
	}
}

func TestEdgeTypeReflection(t *testing.T) {
	assert.Equal(t, BelongsTo, Contains.Reflection())
	assert.Equal(t, Contains, BelongsTo.Reflection())
	assert.Equal(t, Produces, Consumes.Reflection())
	assert.Equal(t, Consumes, Produces.Reflection())
}

func TestConnectDenormalizesProjectAndSource(t *testing.T) {
	project := &Entity{ID: NewID(), Type: TypeProject, QualifiedName: "proj", Properties: &ProjectProps{}}
	source := &Entity{ID: NewID(), Type: TypeSource, QualifiedName: "proj__src", Properties: &SourceProps{}}

	require.NoError(t, Connect(project, source, Contains))
	require.NoError(t, Connect(source, project, Contains.Reflection()))

	props := project.Properties.(*ProjectProps)
	require.Len(t, props.Sources, 1)
	assert.Equal(t, source.ID, props.Sources[0].ID)

	Disconnect(project, source, Contains)
	Disconnect(source, project, Contains.Reflection())
	assert.Empty(t, project.Properties.(*ProjectProps).Sources)
}

func TestConnectAnchorConsumesSource(t *testing.T) {
	anchor := &Entity{ID: NewID(), Type: TypeAnchor, QualifiedName: "proj__anchor", Properties: &AnchorProps{}}
	source := &Entity{ID: NewID(), Type: TypeSource, QualifiedName: "proj__src", Properties: &SourceProps{}}

	require.NoError(t, Connect(anchor, source, Consumes))
	props := anchor.Properties.(*AnchorProps)
	require.NotNil(t, props.Source)
	assert.Equal(t, source.ID, props.Source.ID)
}

func TestConnectAnchorFeatureConsumesSourceIsNoop(t *testing.T) {
	feature := &Entity{ID: NewID(), Type: TypeAnchorFeature, QualifiedName: "proj__anchor__f1", Properties: &AnchorFeatureProps{}}
	source := &Entity{ID: NewID(), Type: TypeSource, QualifiedName: "proj__src", Properties: &SourceProps{}}

	assert.NoError(t, Connect(feature, source, Consumes))

	other := &Entity{ID: NewID(), Type: TypeProject, QualifiedName: "other", Properties: &ProjectProps{}}
	assert.Error(t, Connect(feature, other, Consumes))
}

func TestEdgeTypeIsDownstreamAndUpstream(t *testing.T) {
	assert.True(t, Contains.IsDownstream())
	assert.True(t, Produces.IsDownstream())
	assert.False(t, BelongsTo.IsDownstream())
	assert.False(t, Consumes.IsDownstream())

	assert.True(t, BelongsTo.IsUpstream())
	assert.True(t, Consumes.IsUpstream())
	assert.False(t, Contains.IsUpstream())
	assert.False(t, Produces.IsUpstream())
}
