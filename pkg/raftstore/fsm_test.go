package raftstore

import (
	"bytes"
	"encoding/json"
	"io"
	"testing"

	"github.com/hashicorp/raft"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feathrgo/registry/pkg/api"
	"github.com/feathrgo/registry/pkg/apierr"
	"github.com/feathrgo/registry/pkg/graph"
	"github.com/feathrgo/registry/pkg/model"
	"github.com/feathrgo/registry/pkg/search"
)

func applyRequest(t *testing.T, f *FSM, req api.Request) api.Response {
	t.Helper()
	data, err := json.Marshal(req)
	require.NoError(t, err)
	resp := f.Apply(&raft.Log{Data: data})
	out, ok := resp.(api.Response)
	require.True(t, ok, "Apply must return api.Response")
	return out
}

func TestApplyNewProjectThenRead(t *testing.T) {
	f := NewFSM(search.New())
	id := model.NewID()

	resp := applyRequest(t, f, api.Request{
		Op:         api.OpNewProject,
		ID:         id,
		ProjectDef: &model.ProjectDef{QualifiedName: "proj"},
		Requestor:  "alice",
	})
	require.Equal(t, api.KindID, resp.Kind)
	assert.Equal(t, id, resp.ID)

	readResp := f.Read(func(r *graph.Registry) api.Response {
		e, err := r.GetEntity(id)
		if err != nil {
			return api.ErrorResponse(err)
		}
		return api.EntityResponse(e)
	})
	require.Equal(t, api.KindEntity, readResp.Kind)
	assert.Equal(t, id, readResp.Entity.ID)
}

func TestApplyCorruptLogEntryReturnsInternalError(t *testing.T) {
	f := NewFSM(nil)
	resp := f.Apply(&raft.Log{Data: []byte("not json")})
	out, ok := resp.(api.Response)
	require.True(t, ok)
	assert.Equal(t, api.KindError, out.Kind)
	assert.Equal(t, apierr.Internal, out.Err.Kind)
}

func TestApplyUnknownOpIsBadRequest(t *testing.T) {
	f := NewFSM(nil)
	resp := applyRequest(t, f, api.Request{Op: api.OpGetEntity})
	assert.Equal(t, api.KindError, resp.Kind)
	assert.Equal(t, apierr.BadRequest, resp.Err.Kind)
}

func TestApplyDeleteEntityReturnsUnit(t *testing.T) {
	f := NewFSM(nil)
	id := model.NewID()
	applyRequest(t, f, api.Request{Op: api.OpNewProject, ID: id, ProjectDef: &model.ProjectDef{QualifiedName: "proj"}})

	resp := applyRequest(t, f, api.Request{Op: api.OpDeleteEntity, EntityID: id})
	assert.Equal(t, api.KindUnit, resp.Kind)
}

func TestApplyDeleteUnknownEntityIsNotFound(t *testing.T) {
	f := NewFSM(nil)
	resp := applyRequest(t, f, api.Request{Op: api.OpDeleteEntity, EntityID: model.NewID()})
	assert.Equal(t, api.KindError, resp.Kind)
	assert.Equal(t, apierr.EntityNotFound, resp.Err.Kind)
}

// fakeSnapshotSink is an in-memory raft.SnapshotSink, enough to exercise
// fsmSnapshot.Persist/FSM.Restore without a real file snapshot store.
type fakeSnapshotSink struct {
	bytes.Buffer
}

func (s *fakeSnapshotSink) ID() string           { return "fake" }
func (s *fakeSnapshotSink) Cancel() error        { return nil }
func (s *fakeSnapshotSink) Close() error         { return nil }

func TestSnapshotRestoreRoundTripsThroughFSM(t *testing.T) {
	f := NewFSM(search.New())
	id := model.NewID()
	applyRequest(t, f, api.Request{Op: api.OpNewProject, ID: id, ProjectDef: &model.ProjectDef{QualifiedName: "proj"}})

	snap, err := f.Snapshot()
	require.NoError(t, err)

	sink := &fakeSnapshotSink{}
	require.NoError(t, snap.Persist(sink))

	restored := NewFSM(search.New())
	require.NoError(t, restored.Restore(io.NopCloser(&sink.Buffer)))

	resp := restored.Read(func(r *graph.Registry) api.Response {
		e, err := r.GetEntity(id)
		if err != nil {
			return api.ErrorResponse(err)
		}
		return api.EntityResponse(e)
	})
	require.Equal(t, api.KindEntity, resp.Kind)
	assert.Equal(t, id, resp.Entity.ID)
}

func TestFSMSnapshotReleaseIsNoop(t *testing.T) {
	f := NewFSM(nil)
	snap, err := f.Snapshot()
	require.NoError(t, err)
	snap.Release()
}
