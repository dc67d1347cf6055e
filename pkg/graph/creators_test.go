package graph

import (
	"testing"

	"github.com/feathrgo/registry/pkg/apierr"
	"github.com/feathrgo/registry/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildChain creates a full Project -> Source -> Anchor -> AnchorFeature ->
// DerivedFeature chain and returns every id, for tests that need a populated
// graph without repeating the wiring.
func buildChain(t *testing.T, r *Registry) (projectID, sourceID, anchorID, featureID, derivedID model.ID) {
	t.Helper()

	projectID, err := r.NewProject(model.NewID(), model.ProjectDef{QualifiedName: "proj"}, "alice")
	require.NoError(t, err)

	sourceID, err = r.NewSource(model.NewID(), projectID, model.SourceDef{
		Name: "src", SourceType: "hdfs", Path: "s3://bucket/key",
	}, "alice")
	require.NoError(t, err)

	anchorID, err = r.NewAnchor(model.NewID(), projectID, model.AnchorDef{
		Name: "anchor", SourceID: sourceID,
	}, "alice")
	require.NoError(t, err)

	featureID, err = r.NewAnchorFeature(model.NewID(), projectID, anchorID, model.AnchorFeatureDef{
		Name:        "f1",
		FeatureType: model.FeatureType{Type: model.VectorTensor, ValType: model.ValueFloat},
	}, "alice")
	require.NoError(t, err)

	derivedID, err = r.NewDerivedFeature(model.NewID(), projectID, model.DerivedFeatureDef{
		Name:                "d1",
		FeatureType:         model.FeatureType{Type: model.VectorTensor, ValType: model.ValueFloat},
		InputAnchorFeatures: []model.ID{featureID},
	}, "alice")
	require.NoError(t, err)

	return projectID, sourceID, anchorID, featureID, derivedID
}

func TestBuildChainWiresContainsAndConsumes(t *testing.T) {
	r := New(nil)
	projectID, sourceID, anchorID, featureID, derivedID := buildChain(t, r)

	project, err := r.GetEntity(projectID)
	require.NoError(t, err)
	pp := project.Properties.(*model.ProjectProps)
	assert.Len(t, pp.Sources, 1)
	assert.Len(t, pp.Anchors, 1)
	assert.Len(t, pp.AnchorFeatures, 1)
	assert.Len(t, pp.DerivedFeatures, 1)

	anchor, err := r.GetEntity(anchorID)
	require.NoError(t, err)
	ap := anchor.Properties.(*model.AnchorProps)
	require.NotNil(t, ap.Source)
	assert.Equal(t, sourceID, ap.Source.ID)
	assert.Len(t, ap.Features, 1)

	derived, err := r.GetEntity(derivedID)
	require.NoError(t, err)
	dp := derived.Properties.(*model.DerivedFeatureProps)
	require.Len(t, dp.InputAnchorFeatures, 1)
	assert.Equal(t, featureID, dp.InputAnchorFeatures[0].ID)
}

func TestNewSourceDefaultsQualifiedName(t *testing.T) {
	r := New(nil)
	projectID, err := r.NewProject(model.NewID(), model.ProjectDef{QualifiedName: "proj"}, "alice")
	require.NoError(t, err)

	sourceID, err := r.NewSource(model.NewID(), projectID, model.SourceDef{
		Name: "src", SourceType: "hdfs", Path: "s3://bucket/key",
	}, "alice")
	require.NoError(t, err)

	src, err := r.GetEntity(sourceID)
	require.NoError(t, err)
	assert.Equal(t, "proj__src", src.QualifiedName)
}

func TestNewSourceRejectsWrongParentType(t *testing.T) {
	r := New(nil)
	projectID, err := r.NewProject(model.NewID(), model.ProjectDef{QualifiedName: "proj"}, "alice")
	require.NoError(t, err)
	sourceID, err := r.NewSource(model.NewID(), projectID, model.SourceDef{
		Name: "src", SourceType: "hdfs", Path: "p",
	}, "alice")
	require.NoError(t, err)

	_, err = r.NewSource(model.NewID(), sourceID, model.SourceDef{
		Name: "nested", SourceType: "hdfs", Path: "p",
	}, "alice")
	require.Error(t, err)
	assert.Equal(t, apierr.WrongEntityType, apierr.AsAPIError(err).Kind)
}

func TestNewDerivedFeatureRejectsSelfConsumption(t *testing.T) {
	r := New(nil)
	projectID, _, _, featureID, _ := buildChain(t, r)
	selfID := model.NewID()

	_, err := r.NewDerivedFeature(selfID, projectID, model.DerivedFeatureDef{
		Name:                 "cyclic",
		FeatureType:          model.FeatureType{Type: model.VectorTensor, ValType: model.ValueFloat},
		InputAnchorFeatures:  []model.ID{featureID},
		InputDerivedFeatures: []model.ID{selfID},
	}, "alice")
	require.Error(t, err)
	assert.Equal(t, apierr.InvalidEdge, apierr.AsAPIError(err).Kind)
}

func TestNewAnchorFeatureConsumesAnchorsSource(t *testing.T) {
	r := New(nil)
	_, sourceID, _, featureID, _ := buildChain(t, r)

	var sawConsumesSource bool
	for _, edge := range r.GetNeighbors(featureID, true) {
		if edge.Type == model.Consumes && edge.To == sourceID {
			sawConsumesSource = true
		}
	}
	assert.True(t, sawConsumesSource, "AnchorFeature should Consume its anchor's Source")
}

func TestNewAnchorRequiresSourceOfTypeSource(t *testing.T) {
	r := New(nil)
	projectID, err := r.NewProject(model.NewID(), model.ProjectDef{QualifiedName: "proj"}, "alice")
	require.NoError(t, err)

	_, err = r.NewAnchor(model.NewID(), projectID, model.AnchorDef{
		Name: "anchor", SourceID: projectID,
	}, "alice")
	require.Error(t, err)
	assert.Equal(t, apierr.WrongEntityType, apierr.AsAPIError(err).Kind)
}
