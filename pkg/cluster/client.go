package cluster

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	"github.com/feathrgo/registry/pkg/api"
)

// forwardEnvelope is the wire shape Client posts to a leader's internal
// forwarding endpoint: the request plus the caller's optional bounded-
// staleness sequence number, which the leader ignores (it is always fresh)
// but carries along so the response shape matches a local Handle call.
type forwardEnvelope struct {
	Request api.Request `json:"request"`
	OptSeq  *uint64     `json:"opt_seq,omitempty"`
}

// LeaderAddr resolves the current Raft leader's internal forwarding
// address. Client calls it fresh on every Forward, so a leader change
// between calls is picked up without restarting the breaker.
type LeaderAddr func() string

// Client forwards a request to whichever node Raft currently considers
// leader, over a plain internal HTTP endpoint, with a circuit breaker
// around the call: a partitioned or just-crashed leader fails fast instead
// of letting every caller pile up waiting on the same dead address while a
// new leader is elected.
type Client struct {
	http    *http.Client
	breaker *gobreaker.CircuitBreaker
	leader  LeaderAddr
}

// NewClient builds a forwarding Client. leader is consulted on every call;
// name labels the breaker in logs/metrics when more than one is embedded in
// a process.
func NewClient(name string, leader LeaderAddr) *Client {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Interval:    10 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 3 {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= 0.6
		},
	})
	return &Client{
		http:    &http.Client{Timeout: 10 * time.Second},
		breaker: breaker,
		leader:  leader,
	}
}

// Forward posts req to the current leader's internal forwarding endpoint
// and decodes its response.
func (c *Client) Forward(ctx context.Context, req api.Request, optSeq *uint64) (api.Response, error) {
	addr := c.leader()
	if addr == "" {
		return api.Response{}, fmt.Errorf("cluster: no known leader to forward to")
	}

	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.post(ctx, addr, req, optSeq)
	})
	if err != nil {
		return api.Response{}, err
	}
	return result.(api.Response), nil
}

func (c *Client) post(ctx context.Context, addr string, req api.Request, optSeq *uint64) (api.Response, error) {
	body, err := json.Marshal(forwardEnvelope{Request: req, OptSeq: optSeq})
	if err != nil {
		return api.Response{}, fmt.Errorf("cluster: encode forward envelope: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, "http://"+addr+"/internal/forward", bytes.NewReader(body))
	if err != nil {
		return api.Response{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return api.Response{}, fmt.Errorf("cluster: forward to %s: %w", addr, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		return api.Response{}, fmt.Errorf("cluster: leader %s returned %d: %s", addr, resp.StatusCode, data)
	}

	var out api.Response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return api.Response{}, fmt.Errorf("cluster: decode forward response: %w", err)
	}
	return out, nil
}

// ForwardHandler serves the /internal/forward endpoint a Client's Forward
// posts to: it decodes the envelope and runs it straight through a Router,
// the same path a locally-originated request would take.
func ForwardHandler(router *Router) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var env forwardEnvelope
		if err := json.NewDecoder(r.Body).Decode(&env); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		resp := router.Handle(r.Context(), env.Request, env.OptSeq)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	})
}
