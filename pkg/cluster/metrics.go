package cluster

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics publishes the two gauges a joining node's Join walk reads off a
// seed's /metrics endpoint to discover the current leader without a
// dedicated discovery RPC: the leader's raft server id and its advertise
// address, encoded as a label on a constant-1 gauge (the id/addr are not
// numeric, so they travel as labels rather than the value itself).
type Metrics struct {
	registry  *prometheus.Registry
	leaderID  *prometheus.GaugeVec
	leaderAdr *prometheus.GaugeVec
}

// NewMetrics builds a Metrics publisher under its own registry, so a
// process embedding this package never collides with metrics another
// component in the same binary registers against the default registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	leaderID := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "registry_raft_leader_id",
		Help: "Raft server id of the node this process currently believes is leader, labeled on the id itself.",
	}, []string{"id"})
	leaderAddr := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "registry_raft_leader_addr",
		Help: "Raft advertise address of the node this process currently believes is leader, labeled on the address itself.",
	}, []string{"addr"})
	reg.MustRegister(leaderID, leaderAddr)
	return &Metrics{registry: reg, leaderID: leaderID, leaderAdr: leaderAddr}
}

// SetLeader republishes the current leader id/address, removing every
// previously published series first so a stale leader doesn't linger in scraped output
// after a new election.
func (m *Metrics) SetLeader(id, addr string) {
	m.leaderID.Reset()
	m.leaderAdr.Reset()
	m.leaderID.WithLabelValues(id).Set(1)
	m.leaderAdr.WithLabelValues(addr).Set(1)
}

// Handler exposes the Prometheus text-exposition endpoint Join's seed walk
// scrapes.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
