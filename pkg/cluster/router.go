// Package cluster is the router that decides whether an inbound
// operation is handled on this node or forwarded to the current Raft
// leader, the forwarding client itself, and cluster-join/management-code
// handling.
package cluster

import (
	"context"

	"github.com/feathrgo/registry/pkg/api"
	"github.com/feathrgo/registry/pkg/apierr"
	"github.com/feathrgo/registry/pkg/graph"
	"github.com/feathrgo/registry/pkg/raftstore"
)

// Store is the subset of *raftstore.Store the router depends on, kept as an
// interface so router tests can substitute a fake without standing up real
// Raft/bolt backends.
type Store interface {
	IsLeader() bool
	AppliedIndex() uint64
	Read(fn func(*graph.Registry) api.Response) api.Response
	Propose(req api.Request) api.Response
}

// Router implements the routing decision table: local-leader handling,
// forward-to-leader for writes, and bounded-staleness local reads gated on
// an opt_seq apply-index barrier.
type Router struct {
	store  Store
	client *Client
}

// NewRouter builds a Router over store, forwarding through client when a
// request must leave this node.
func NewRouter(store Store, client *Client) *Router {
	return &Router{store: store, client: client}
}

// Handle routes req, honoring an optional opt_seq bounded-staleness barrier,
// per the decision table:
//
//	if local node is leader:            handle locally
//	else if writing:
//	    if optSeq == nil:                forward to leader
//	    else:                            BadRequest (reject, don't forward)
//	else (reading, non-leader):
//	    if optSeq == nil:                forward (linearizable read)
//	    else if local applied >= optSeq: handle locally
//	    else:                            forward
func (ro *Router) Handle(ctx context.Context, req api.Request, optSeq *uint64) api.Response {
	if ro.store.IsLeader() {
		return ro.handleLocal(req)
	}

	if req.IsWritingRequest() {
		if optSeq != nil {
			return api.ErrorResponse(apierr.New(apierr.BadRequest, "writes must go to leader"))
		}
		return ro.forward(ctx, req, optSeq)
	}

	if optSeq == nil {
		return ro.forward(ctx, req, optSeq)
	}
	if ro.store.AppliedIndex() >= *optSeq {
		return ro.handleLocal(req)
	}
	return ro.forward(ctx, req, optSeq)
}

func (ro *Router) handleLocal(req api.Request) api.Response {
	if req.IsWritingRequest() {
		if err := req.Validate(); err != nil {
			return api.ErrorResponse(err)
		}
		return ro.store.Propose(req)
	}
	return ro.store.Read(func(r *graph.Registry) api.Response {
		return dispatchRead(r, req)
	})
}

func (ro *Router) forward(ctx context.Context, req api.Request, optSeq *uint64) api.Response {
	if ro.client == nil {
		return api.ErrorResponse(apierr.New(apierr.Internal, "no forwarding client configured"))
	}
	resp, err := ro.client.Forward(ctx, req, optSeq)
	if err != nil {
		return api.ErrorResponse(apierr.New(apierr.Internal, "forward to leader: %s", err))
	}
	return resp
}
