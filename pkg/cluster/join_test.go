package cluster

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string    { return &s }
func f64Ptr(f float64) *float64  { return &f }

func gaugeMetric(value float64, labels map[string]string) *dto.Metric {
	m := &dto.Metric{Gauge: &dto.Gauge{Value: f64Ptr(value)}}
	for k, v := range labels {
		m.Label = append(m.Label, &dto.LabelPair{Name: strPtr(k), Value: strPtr(v)})
	}
	return m
}

func TestFirstSetLabelReturnsOnlyNonZeroGauge(t *testing.T) {
	family := &dto.MetricFamily{
		Metric: []*dto.Metric{
			gaugeMetric(0, map[string]string{"id": "node-stale"}),
			gaugeMetric(1, map[string]string{"id": "node-current"}),
		},
	}
	assert.Equal(t, "node-current", firstSetLabel(family, "id"))
}

func TestFirstSetLabelNilFamily(t *testing.T) {
	assert.Equal(t, "", firstSetLabel(nil, "id"))
}

func TestFirstSetLabelNoMatchingLabelName(t *testing.T) {
	family := &dto.MetricFamily{
		Metric: []*dto.Metric{gaugeMetric(1, map[string]string{"addr": "10.0.0.1:7420"})},
	}
	assert.Equal(t, "", firstSetLabel(family, "id"))
}

func TestCheckManagementCode(t *testing.T) {
	assert.True(t, checkManagementCode("", "anything"), "empty configured code disables the check")
	assert.True(t, checkManagementCode("secret", "secret"))
	assert.False(t, checkManagementCode("secret", "wrong"))
	assert.False(t, checkManagementCode("secret", ""))
}

func TestDiscoverLeaderScrapesMetricsEndpoint(t *testing.T) {
	seed := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		_, _ = w.Write([]byte(
			"# TYPE registry_raft_leader_id gauge\n" +
				`registry_raft_leader_id{id="node-2"} 1` + "\n" +
				"# TYPE registry_raft_leader_addr gauge\n" +
				`registry_raft_leader_addr{addr="127.0.0.1:7421"} 1` + "\n",
		))
	}))
	defer seed.Close()

	j := NewJoiner("")
	id, addr, err := j.discoverLeader(context.Background(), seed.Listener.Addr().String())
	require.NoError(t, err)
	assert.Equal(t, "node-2", id)
	assert.Equal(t, "127.0.0.1:7421", addr)
}
