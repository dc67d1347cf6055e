package raftstore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigFromEnvDefaults(t *testing.T) {
	for _, key := range []string{
		envNodeID, envBindAddr, envSnapshotPath, envJournalPath,
		envInstancePrefix, envSnapshotPerEvents, envManagementCode, envApplyTimeoutMS,
	} {
		t.Setenv(key, "")
	}

	cfg, err := ConfigFromEnv()
	require.NoError(t, err)
	assert.Equal(t, "node1", cfg.NodeID)
	assert.Equal(t, "127.0.0.1:7420", cfg.BindAddr)
	assert.Equal(t, "registry", cfg.InstancePrefix)
	assert.Equal(t, uint64(1000), cfg.SnapshotPerEvents)
	assert.Equal(t, "", cfg.ManagementCode)
	assert.Equal(t, 10*time.Second, cfg.ApplyTimeout)
}

func TestConfigFromEnvOverrides(t *testing.T) {
	t.Setenv(envNodeID, "node-7")
	t.Setenv(envSnapshotPerEvents, "42")
	t.Setenv(envApplyTimeoutMS, "500")
	t.Setenv(envManagementCode, "s3cr3t")

	cfg, err := ConfigFromEnv()
	require.NoError(t, err)
	assert.Equal(t, "node-7", cfg.NodeID)
	assert.Equal(t, uint64(42), cfg.SnapshotPerEvents)
	assert.Equal(t, 500*time.Millisecond, cfg.ApplyTimeout)
	assert.Equal(t, "s3cr3t", cfg.ManagementCode)
}

func TestConfigFromEnvRejectsInvalidSnapshotPerEvents(t *testing.T) {
	t.Setenv(envSnapshotPerEvents, "not-a-number")
	_, err := ConfigFromEnv()
	require.Error(t, err)
}

func TestConfigValidateRejectsEmptyNodeID(t *testing.T) {
	cfg := &Config{SnapshotPath: "a", JournalPath: "b", SnapshotPerEvents: 1}
	err := cfg.Validate()
	require.Error(t, err)
}

func TestConfigValidateRejectsZeroSnapshotPerEvents(t *testing.T) {
	cfg := &Config{NodeID: "n", SnapshotPath: "a", JournalPath: "b"}
	err := cfg.Validate()
	require.Error(t, err)
}

func TestConfigValidateAcceptsCompleteConfig(t *testing.T) {
	cfg := &Config{NodeID: "n", SnapshotPath: "a", JournalPath: "b", SnapshotPerEvents: 1}
	assert.NoError(t, cfg.Validate())
}
