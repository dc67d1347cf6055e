package graph

import (
	"testing"

	"github.com/feathrgo/registry/pkg/apierr"
	"github.com/feathrgo/registry/pkg/model"
	"github.com/feathrgo/registry/pkg/search"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotRestoreRoundTrip(t *testing.T) {
	src := New(search.New())
	projectID, sourceID, anchorID, featureID, derivedID := buildChain(t, src)
	require.NoError(t, src.DeleteEntityByID(derivedID))

	snap := src.Snapshot()

	dst := New(search.New())
	require.NoError(t, dst.Restore(snap))

	for _, id := range []model.ID{projectID, sourceID, anchorID, featureID} {
		_, err := dst.GetEntity(id)
		assert.NoError(t, err)
	}

	_, err := dst.GetEntity(derivedID)
	require.Error(t, err)
	assert.Equal(t, apierr.EntityNotFound, apierr.AsAPIError(err).Kind)

	// A creation replayed with the tombstoned id must still be rejected after
	// restoring from a snapshot taken post-deletion.
	dup := newProjectEntity("resurrected")
	dup.ID = derivedID
	err = dst.InsertEntity(dup)
	require.Error(t, err)
	assert.Equal(t, apierr.DuplicateID, apierr.AsAPIError(err).Kind)

	project, err := dst.GetEntity(projectID)
	require.NoError(t, err)
	assert.Len(t, project.Properties.(*model.ProjectProps).Sources, 1)
	assert.Len(t, project.Properties.(*model.ProjectProps).Anchors, 1)

	results, err := dst.SearchEntity("anchor", nil, nil, 10, 0)
	require.NoError(t, err)
	assert.NotEmpty(t, results)
}

func TestBatchLoadRejectsNonEmptyRegistry(t *testing.T) {
	r := New(nil)
	_, err := r.NewProject(model.NewID(), model.ProjectDef{QualifiedName: "proj"}, "alice")
	require.NoError(t, err)

	err = r.BatchLoad(nil, nil)
	require.Error(t, err)
	assert.Equal(t, apierr.Internal, apierr.AsAPIError(err).Kind)
}

func TestBatchLoadReconstructsReflectionEdges(t *testing.T) {
	src := New(nil)
	projectID, sourceID, _, _, _ := buildChain(t, src)
	snap := src.Snapshot()

	dst := New(search.New())
	require.NoError(t, dst.BatchLoad(snap.Entities, snap.Edges))

	children, err := dst.GetChildren(projectID, nil)
	require.NoError(t, err)
	assert.NotEmpty(t, children)

	// Only the downstream half (project -Contains-> source) was recorded; the
	// source's BelongsTo edge back to its project is a rebuilt reflection.
	assert.Contains(t, dst.GetNeighbors(sourceID, true), model.Edge{From: sourceID, To: projectID, Type: model.BelongsTo})

	// The source's recorded Produces edge to the anchor still blocks its
	// deletion after the load.
	var leafFeature model.ID
	for _, e := range children {
		if e.Type == model.TypeSource {
			leafFeature = e.ID
		}
	}
	err = dst.DeleteEntityByID(leafFeature)
	require.Error(t, err, "source is still consumed by the anchor")
	assert.Equal(t, apierr.DeleteInUsed, apierr.AsAPIError(err).Kind)
}
