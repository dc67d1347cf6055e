package raftstore

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config is the store's configuration: snapshot/journal locations, the
// instance prefix under which Open purges files belonging to other node ids
// on every start (this node's own files are kept), the snapshot cadence, and
// an optional shared secret gating the membership-change endpoints (the
// /metrics endpoint is not gated). Populated from environment variables
// rather than a config file.
type Config struct {
	NodeID            string
	BindAddr          string
	SnapshotPath      string
	JournalPath       string
	InstancePrefix    string
	SnapshotPerEvents uint64
	ManagementCode    string // empty disables the check
	ApplyTimeout      time.Duration
}

const (
	envNodeID            = "REGISTRY_NODE_ID"
	envBindAddr          = "REGISTRY_BIND_ADDR"
	envSnapshotPath      = "REGISTRY_SNAPSHOT_PATH"
	envJournalPath       = "REGISTRY_JOURNAL_PATH"
	envInstancePrefix    = "REGISTRY_INSTANCE_PREFIX"
	envSnapshotPerEvents = "REGISTRY_SNAPSHOT_PER_EVENTS"
	envManagementCode    = "REGISTRY_MANAGEMENT_CODE"
	envApplyTimeoutMS    = "REGISTRY_APPLY_TIMEOUT_MS"
)

// ConfigFromEnv loads a Config from the environment, applying the same
// defaults a single-node dev deployment would want.
func ConfigFromEnv() (*Config, error) {
	cfg := &Config{
		NodeID:            getenv(envNodeID, "node1"),
		BindAddr:          getenv(envBindAddr, "127.0.0.1:7420"),
		SnapshotPath:      getenv(envSnapshotPath, "./data/snapshots"),
		JournalPath:       getenv(envJournalPath, "./data/journal"),
		InstancePrefix:    getenv(envInstancePrefix, "registry"),
		SnapshotPerEvents: 1000,
		ManagementCode:    os.Getenv(envManagementCode),
		ApplyTimeout:      10 * time.Second,
	}

	if raw := os.Getenv(envSnapshotPerEvents); raw != "" {
		n, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("raftstore: invalid %s: %w", envSnapshotPerEvents, err)
		}
		cfg.SnapshotPerEvents = n
	}
	if raw := os.Getenv(envApplyTimeoutMS); raw != "" {
		ms, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("raftstore: invalid %s: %w", envApplyTimeoutMS, err)
		}
		cfg.ApplyTimeout = time.Duration(ms) * time.Millisecond
	}

	return cfg, cfg.Validate()
}

// Validate checks the configuration is complete enough to start a store.
func (c *Config) Validate() error {
	if c.NodeID == "" {
		return fmt.Errorf("raftstore: %s must not be empty", envNodeID)
	}
	if c.SnapshotPath == "" || c.JournalPath == "" {
		return fmt.Errorf("raftstore: snapshot and journal paths must not be empty")
	}
	if c.SnapshotPerEvents == 0 {
		return fmt.Errorf("raftstore: %s must be positive", envSnapshotPerEvents)
	}
	return nil
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
