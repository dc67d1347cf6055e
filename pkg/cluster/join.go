package cluster

import (
	"bytes"
	"context"
	"crypto/subtle"
	"fmt"
	"net/http"
	"time"

	"github.com/hashicorp/raft"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
)

const (
	metricLeaderID   = "registry_raft_leader_id"
	metricLeaderAddr = "registry_raft_leader_addr"
)

// Joiner drives a brand-new node's entry into an existing cluster: walk a
// seed list, ask each seed's /metrics endpoint who it thinks the leader is,
// and issue the membership change against that leader's own Store.
type Joiner struct {
	http           *http.Client
	managementCode string
}

// NewJoiner builds a Joiner. managementCode, when non-empty, is sent on
// every membership-change request and must match the target node's own
// configured code.
func NewJoiner(managementCode string) *Joiner {
	return &Joiner{http: &http.Client{Timeout: 10 * time.Second}, managementCode: managementCode}
}

// Join walks seeds in order, and for the first one that answers, resolves
// the current leader via its /metrics gauges, then calls add-learner (to
// join as a non-voter) and, if promote is set, a membership-change call to
// become a full voter. It falls through to the next seed on any failure and
// returns an error once every seed has failed.
func (j *Joiner) Join(ctx context.Context, nodeID, advertiseAddr string, seeds []string, promote bool) error {
	var lastErr error
	for _, seed := range seeds {
		leaderID, leaderAddr, err := j.discoverLeader(ctx, seed)
		if err != nil {
			lastErr = err
			continue
		}

		if err := j.postManagement(ctx, leaderAddr, "/internal/add-learner", nodeID, advertiseAddr); err != nil {
			lastErr = fmt.Errorf("add-learner via %s (leader %s): %w", seed, leaderID, err)
			continue
		}
		if promote {
			if err := j.postManagement(ctx, leaderAddr, "/internal/change-membership", nodeID, advertiseAddr); err != nil {
				lastErr = fmt.Errorf("promote via leader %s: %w", leaderAddr, err)
				continue
			}
		}
		return nil
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("cluster: no seeds provided")
	}
	return fmt.Errorf("cluster: join failed after exhausting seeds: %w", lastErr)
}

// discoverLeader scrapes seed's Prometheus text-exposition endpoint and
// reads the leader id/addr off the gauge labels Metrics.SetLeader publishes.
func (j *Joiner) discoverLeader(ctx context.Context, seed string) (id, addr string, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://"+seed+"/metrics", nil)
	if err != nil {
		return "", "", err
	}
	resp, err := j.http.Do(req)
	if err != nil {
		return "", "", err
	}
	defer resp.Body.Close()

	var parser expfmt.TextParser
	families, err := parser.TextToMetricFamilies(resp.Body)
	if err != nil {
		return "", "", fmt.Errorf("parse metrics from %s: %w", seed, err)
	}

	id = firstSetLabel(families[metricLeaderID], "id")
	addr = firstSetLabel(families[metricLeaderAddr], "addr")
	if id == "" || addr == "" {
		return "", "", fmt.Errorf("seed %s published no leader gauges", seed)
	}
	return id, addr, nil
}

// firstSetLabel returns the value of labelName on the first metric in
// family whose gauge value is set (non-zero) — Metrics.SetLeader always
// publishes exactly one such series per gauge, the rest reset to absent.
func firstSetLabel(family *dto.MetricFamily, labelName string) string {
	if family == nil {
		return ""
	}
	for _, m := range family.GetMetric() {
		if m.GetGauge().GetValue() == 0 {
			continue
		}
		for _, lp := range m.GetLabel() {
			if lp.GetName() == labelName {
				return lp.GetValue()
			}
		}
	}
	return ""
}

func (j *Joiner) postManagement(ctx context.Context, addr, path, nodeID, advertiseAddr string) error {
	body := nodeID + " " + advertiseAddr
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "http://"+addr+path, bytes.NewReader([]byte(body)))
	if err != nil {
		return err
	}
	if j.managementCode != "" {
		req.Header.Set("X-Management-Code", j.managementCode)
	}
	resp, err := j.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s returned %d", path, resp.StatusCode)
	}
	return nil
}

// checkManagementCode constant-time compares the caller-supplied code
// against the configured one. An empty configured code disables the check
// (everyone is authorized). No ecosystem dependency wraps a single
// constant-time string compare any better than the stdlib primitive
// written for exactly this.
func checkManagementCode(configured, supplied string) bool {
	if configured == "" {
		return true
	}
	return subtle.ConstantTimeCompare([]byte(configured), []byte(supplied)) == 1
}

// ManagementHandler serves the internal add-learner/change-membership
// endpoints a Joiner's postManagement call hits, gated by the configured
// management code.
func ManagementHandler(r *raft.Raft, managementCode string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if !checkManagementCode(managementCode, req.Header.Get("X-Management-Code")) {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}

		var nodeID, addr string
		if _, err := fmt.Fscan(req.Body, &nodeID, &addr); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}

		var future raft.IndexFuture
		switch req.URL.Path {
		case "/internal/add-learner":
			future = r.AddNonvoter(raft.ServerID(nodeID), raft.ServerAddress(addr), 0, 10*time.Second)
		case "/internal/change-membership":
			future = r.AddVoter(raft.ServerID(nodeID), raft.ServerAddress(addr), 0, 10*time.Second)
		default:
			http.NotFound(w, req)
			return
		}

		if err := future.Error(); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
}
