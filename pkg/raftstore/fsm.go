// Package raftstore wires the graph registry and full-text index into a
// hashicorp/raft state machine: apply discipline, snapshotting, and the
// store that owns the Raft instance and its on-disk log/snapshot backends.
package raftstore

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/hashicorp/raft"

	"github.com/feathrgo/registry/pkg/api"
	"github.com/feathrgo/registry/pkg/apierr"
	"github.com/feathrgo/registry/pkg/graph"
	"github.com/feathrgo/registry/pkg/model"
	"github.com/feathrgo/registry/pkg/search"
)

// FSM is the single state machine cell: the graph registry, guarded by one
// RWMutex. Writes go through Raft.Apply; reads take RLock and
// call the registry directly, never through the log. The last-applied-index
// barrier itself is not duplicated here — Store reads it straight off
// raft.Raft.AppliedIndex(), which Raft keeps consistent across Apply and
// snapshot Restore, where an FSM-local counter would not be.
type FSM struct {
	mu       sync.RWMutex
	registry *graph.Registry
}

// NewFSM builds an FSM around a fresh, empty registry backed by fts.
func NewFSM(fts *search.Index) *FSM {
	return &FSM{registry: graph.New(fts)}
}

// Read runs fn with a read lock held on the registry, for every
// non-writing operation the router serves locally.
func (f *FSM) Read(fn func(*graph.Registry) api.Response) api.Response {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return fn(f.registry)
}

// Apply implements raft.FSM. It is invoked once per committed log entry, in
// strict log order, by Raft's own single-threaded apply loop — no
// additional locking against concurrent Apply calls is needed, only against
// concurrent readers, hence the RWMutex rather than a plain mutex.
func (f *FSM) Apply(l *raft.Log) interface{} {
	var req api.Request
	if err := json.Unmarshal(l.Data, &req); err != nil {
		return api.ErrorResponse(apierr.New(apierr.Internal, "corrupt log entry: %s", err))
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	return dispatch(f.registry, req)
}

// dispatch applies one writing request to the registry and returns the
// response the client ultimately receives — the same value whether the
// request was applied locally or forwarded from a follower.
func dispatch(r *graph.Registry, req api.Request) api.Response {
	switch req.Op {
	case api.OpNewProject:
		id, err := r.NewProject(req.ID, *req.ProjectDef, req.Requestor)
		return idOrError(id, err)
	case api.OpNewSource:
		id, err := r.NewSource(req.ID, req.ProjectID, *req.SourceDef, req.Requestor)
		return idOrError(id, err)
	case api.OpNewAnchor:
		id, err := r.NewAnchor(req.ID, req.ProjectID, *req.AnchorDef, req.Requestor)
		return idOrError(id, err)
	case api.OpNewAnchorFeature:
		id, err := r.NewAnchorFeature(req.ID, req.ProjectID, req.AnchorID, *req.AnchorFeatureDef, req.Requestor)
		return idOrError(id, err)
	case api.OpNewDerivedFeature:
		id, err := r.NewDerivedFeature(req.ID, req.ProjectID, *req.DerivedFeatureDef, req.Requestor)
		return idOrError(id, err)
	case api.OpDeleteEntity:
		if err := r.DeleteEntityByID(req.EntityID); err != nil {
			return api.ErrorResponse(err)
		}
		return api.Unit()
	default:
		return api.ErrorResponse(apierr.New(apierr.BadRequest, "%s is not a writing operation", req.Op))
	}
}

func idOrError(id model.ID, err error) api.Response {
	if err != nil {
		return api.ErrorResponse(err)
	}
	return api.IDResponse(id)
}

// fsmSnapshot implements raft.FSMSnapshot: a point-in-time copy of the
// registry, serialized to JSON on Persist.
type fsmSnapshot struct {
	snapshot *graph.Snapshot
}

// Snapshot implements raft.FSM. It copies the registry's live entities and
// edges under read lock and hands the copy to Persist outside the lock, so
// a slow snapshot write never blocks new Apply calls.
func (f *FSM) Snapshot() (raft.FSMSnapshot, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return &fsmSnapshot{snapshot: f.registry.Snapshot()}, nil
}

func (s *fsmSnapshot) Persist(sink raft.SnapshotSink) error {
	err := func() error {
		enc := json.NewEncoder(sink)
		return enc.Encode(s.snapshot)
	}()
	if err != nil {
		sink.Cancel()
		return fmt.Errorf("raftstore: persist snapshot: %w", err)
	}
	return sink.Close()
}

func (s *fsmSnapshot) Release() {}

// Restore implements raft.FSM. It replaces the entire state machine with
// the snapshot's contents and rebuilds the full-text index by enumerating
// the restored entities, per the snapshot-install contract.
func (f *FSM) Restore(rc io.ReadCloser) error {
	defer rc.Close()

	var snap graph.Snapshot
	if err := json.NewDecoder(rc).Decode(&snap); err != nil {
		return fmt.Errorf("raftstore: decode snapshot: %w", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	return f.registry.Restore(&snap)
}
