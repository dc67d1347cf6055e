package raftstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/hashicorp/raft"
	raftboltdb "github.com/hashicorp/raft-boltdb/v2"
	"go.uber.org/zap"

	"github.com/feathrgo/registry/pkg/api"
	"github.com/feathrgo/registry/pkg/apierr"
	"github.com/feathrgo/registry/pkg/graph"
	"github.com/feathrgo/registry/pkg/search"
)

// Event is the payload StorageCallback receives after every applied
// request: purely observational, never able to affect the response already
// produced by apply.
type Event struct {
	Request  api.Request
	Response api.Response
	Index    uint64
}

// StorageCallback is invoked, best-effort, after each committed apply.
type StorageCallback func(Event)

// Store owns the Raft instance and its on-disk log/stable/snapshot
// backends, plus the FSM they drive. It is the thing cmd/registryd
// constructs once per process and hands to the router.
type Store struct {
	cfg    *Config
	log    *zap.Logger
	fsm    *FSM
	raft   *raft.Raft
	logs   *raftboltdb.BoltStore
	stable *raftboltdb.BoltStore
	snaps  *raft.FileSnapshotStore

	onEvent StorageCallback

	eventsSinceSnapshot atomic.Uint64
}

// Open starts a Store: purges stale journal/snapshot files for a different
// node id than this one (a previous instance_prefix deployment sharing the
// same disk), opens the bolt-backed log/stable stores and file snapshot
// store, and constructs the raft.Raft instance around fsm.
func Open(cfg *Config, fts *search.Index, transport raft.Transport, logger *zap.Logger) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := purgeStale(cfg, logger); err != nil {
		return nil, fmt.Errorf("raftstore: purge stale files: %w", err)
	}

	if err := os.MkdirAll(cfg.JournalPath, 0o755); err != nil {
		return nil, fmt.Errorf("raftstore: create journal dir: %w", err)
	}
	if err := os.MkdirAll(cfg.SnapshotPath, 0o755); err != nil {
		return nil, fmt.Errorf("raftstore: create snapshot dir: %w", err)
	}

	logStorePath := filepath.Join(cfg.JournalPath, cfg.InstancePrefix+"-"+cfg.NodeID+"-log.bolt")
	logs, err := raftboltdb.New(raftboltdb.Options{Path: logStorePath})
	if err != nil {
		return nil, fmt.Errorf("raftstore: open log store: %w", err)
	}
	stablePath := filepath.Join(cfg.JournalPath, cfg.InstancePrefix+"-"+cfg.NodeID+"-stable.bolt")
	stable, err := raftboltdb.New(raftboltdb.Options{Path: stablePath})
	if err != nil {
		return nil, fmt.Errorf("raftstore: open stable store: %w", err)
	}
	snaps, err := raft.NewFileSnapshotStore(cfg.SnapshotPath, 3, os.Stderr)
	if err != nil {
		return nil, fmt.Errorf("raftstore: open snapshot store: %w", err)
	}

	fsm := NewFSM(fts)

	raftCfg := raft.DefaultConfig()
	raftCfg.LocalID = raft.ServerID(cfg.NodeID)

	r, err := raft.NewRaft(raftCfg, fsm, logs, stable, snaps, transport)
	if err != nil {
		return nil, fmt.Errorf("raftstore: start raft: %w", err)
	}

	return &Store{
		cfg:    cfg,
		log:    logger,
		fsm:    fsm,
		raft:   r,
		logs:   logs,
		stable: stable,
		snaps:  snaps,
	}, nil
}

// purgeStale removes journal/snapshot files matching instance_prefix but
// tagged for a node id other than cfg.NodeID, per the startup contract: a
// node that reuses a shared data directory under a new identity should not
// resurrect a previous node's state.
func purgeStale(cfg *Config, logger *zap.Logger) error {
	for _, dir := range []string{cfg.JournalPath, cfg.SnapshotPath} {
		entries, err := os.ReadDir(dir)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return err
		}
		prefix := cfg.InstancePrefix + "-"
		ownPrefix := prefix + cfg.NodeID + "-"
		for _, entry := range entries {
			name := entry.Name()
			if !strings.HasPrefix(name, prefix) || strings.HasPrefix(name, ownPrefix) {
				continue
			}
			path := filepath.Join(dir, name)
			if logger != nil {
				logger.Info("purging stale raft state", zap.String("path", path))
			}
			if err := os.RemoveAll(path); err != nil {
				return err
			}
		}
	}
	return nil
}

// Bootstrap initializes a brand-new single-node cluster with this node as
// its sole voter, at the given advertise address. Joining nodes use Join
// (pkg/cluster) instead, never Bootstrap.
func (s *Store) Bootstrap(advertiseAddr string) error {
	cfg := raft.Configuration{
		Servers: []raft.Server{{
			Suffrage: raft.Voter,
			ID:       raft.ServerID(s.cfg.NodeID),
			Address:  raft.ServerAddress(advertiseAddr),
		}},
	}
	return s.raft.BootstrapCluster(cfg).Error()
}

// AppliedIndex returns the Raft log index of the last applied entry — the
// freshness barrier a router compares an opt_seq request against.
func (s *Store) AppliedIndex() uint64 {
	return s.raft.AppliedIndex()
}

// IsLeader reports whether this node currently believes itself the Raft
// leader.
func (s *Store) IsLeader() bool {
	return s.raft.State() == raft.Leader
}

// LeaderAddr returns the current leader's transport address, if known.
func (s *Store) LeaderAddr() raft.ServerAddress {
	addr, _ := s.raft.LeaderWithID()
	return addr
}

// Raft exposes the underlying raft.Raft for membership-change operations
// (pkg/cluster's ManagementHandler) that need direct access beyond Propose/Read.
func (s *Store) Raft() *raft.Raft { return s.raft }

// Read serves a non-writing request straight from the state machine,
// without going through the Raft log.
func (s *Store) Read(fn func(*graph.Registry) api.Response) api.Response {
	return s.fsm.Read(fn)
}

// Propose submits a writing request through the Raft log and returns the
// response produced by applying it, once committed. Only the leader may
// call this; callers are expected to have already routed accordingly.
func (s *Store) Propose(req api.Request) api.Response {
	data, err := json.Marshal(req)
	if err != nil {
		return api.ErrorResponse(apierr.New(apierr.Internal, "encode request: %s", err))
	}

	future := s.raft.Apply(data, s.cfg.ApplyTimeout)
	if err := future.Error(); err != nil {
		return api.ErrorResponse(apierr.New(apierr.Internal, "raft apply: %s", err))
	}

	resp, _ := future.Response().(api.Response)

	if n := s.eventsSinceSnapshot.Add(1); n >= s.cfg.SnapshotPerEvents {
		s.eventsSinceSnapshot.Store(0)
		go s.maybeSnapshot()
	}
	if s.onEvent != nil {
		s.onEvent(Event{Request: req, Response: resp, Index: s.raft.AppliedIndex()})
	}
	return resp
}

// OnEvent registers the observational storage callback.
func (s *Store) OnEvent(cb StorageCallback) { s.onEvent = cb }

func (s *Store) maybeSnapshot() {
	future := s.raft.Snapshot()
	if err := future.Error(); err != nil && s.log != nil {
		s.log.Warn("snapshot failed", zap.Error(err))
	}
}

// BatchLoad loads a complete graph ahead of live traffic, bypassing the
// Raft log entirely: it is meant for bringing a brand-new leader's state
// machine up to a known-good starting point before the first request is
// served, not for ongoing replication (which goes through Propose/Apply as
// usual).
func (s *Store) BatchLoad(snapshot *graph.Snapshot) error {
	s.fsm.mu.Lock()
	defer s.fsm.mu.Unlock()
	return s.fsm.registry.BatchLoad(snapshot.Entities, snapshot.Edges)
}

// Shutdown stops Raft and closes the on-disk backends.
func (s *Store) Shutdown() error {
	if err := s.raft.Shutdown().Error(); err != nil {
		return err
	}
	if err := s.logs.Close(); err != nil {
		return err
	}
	return s.stable.Close()
}
