// Package main provides the registryd CLI entry point.
package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hashicorp/raft"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/feathrgo/registry/pkg/cluster"
	"github.com/feathrgo/registry/pkg/raftstore"
	"github.com/feathrgo/registry/pkg/search"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "registryd",
		Short: "registryd - Raft-replicated typed feature registry",
		Long: `registryd is a distributed, in-memory, Raft-replicated metadata
service for a typed feature graph: projects, sources, anchors, and anchor
and derived features, connected by a small validated edge set.`,
	}

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("registryd v%s (%s)\n", version, commit)
		},
	})

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start a registry node",
		RunE:  runServe,
	}
	serveCmd.Flags().String("advertise-addr", "", "Raft advertise address (default: bind addr)")
	serveCmd.Flags().Bool("bootstrap", false, "Bootstrap a brand-new single-node cluster")
	serveCmd.Flags().StringSlice("join", nil, "Seed addresses to join an existing cluster")
	serveCmd.Flags().Bool("voter", true, "Join as a voter rather than a learner")
	rootCmd.AddCommand(serveCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	advertiseAddr, _ := cmd.Flags().GetString("advertise-addr")
	bootstrap, _ := cmd.Flags().GetBool("bootstrap")
	seeds, _ := cmd.Flags().GetStringSlice("join")
	asVoter, _ := cmd.Flags().GetBool("voter")

	logger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("building logger: %w", err)
	}
	defer logger.Sync()

	cfg, err := raftstore.ConfigFromEnv()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if advertiseAddr == "" {
		advertiseAddr = cfg.BindAddr
	}

	fts := search.New()

	return serve(cfg, fts, advertiseAddr, bootstrap, seeds, asVoter, logger)
}

func serve(cfg *raftstore.Config, fts *search.Index, advertiseAddr string, bootstrap bool, seeds []string, asVoter bool, logger *zap.Logger) error {
	resolved, err := net.ResolveTCPAddr("tcp", cfg.BindAddr)
	if err != nil {
		return fmt.Errorf("resolving bind address: %w", err)
	}
	transport, err := raft.NewTCPTransport(cfg.BindAddr, resolved, 3, 10*time.Second, os.Stderr)
	if err != nil {
		return fmt.Errorf("starting raft transport: %w", err)
	}

	store, err := raftstore.Open(cfg, fts, transport, logger)
	if err != nil {
		return fmt.Errorf("opening raft store: %w", err)
	}

	metrics := cluster.NewMetrics()
	client := cluster.NewClient("registry-forward", func() string {
		return string(store.LeaderAddr())
	})
	router := cluster.NewRouter(store, client)

	mux := http.NewServeMux()
	mux.Handle("/internal/forward", cluster.ForwardHandler(router))
	mux.Handle("/internal/add-learner", cluster.ManagementHandler(store.Raft(), cfg.ManagementCode))
	mux.Handle("/internal/change-membership", cluster.ManagementHandler(store.Raft(), cfg.ManagementCode))
	mux.Handle("/metrics", metrics.Handler())

	httpServer := &http.Server{Addr: cfg.BindAddr, Handler: mux}
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server stopped", zap.Error(err))
		}
	}()

	switch {
	case bootstrap:
		if err := store.Bootstrap(advertiseAddr); err != nil {
			return fmt.Errorf("bootstrapping cluster: %w", err)
		}
		logger.Info("bootstrapped single-node cluster", zap.String("node_id", cfg.NodeID))
	case len(seeds) > 0:
		joiner := cluster.NewJoiner(cfg.ManagementCode)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := joiner.Join(ctx, cfg.NodeID, advertiseAddr, seeds, asVoter); err != nil {
			return fmt.Errorf("joining cluster: %w", err)
		}
		logger.Info("joined cluster", zap.String("node_id", cfg.NodeID), zap.Strings("seeds", seeds))
	}

	go publishLeaderGauges(store, metrics)

	logger.Info("registryd ready", zap.String("bind_addr", cfg.BindAddr))

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	_ = httpServer.Shutdown(ctx)
	return store.Shutdown()
}

// publishLeaderGauges keeps Metrics' leader id/addr gauges current so a
// joining node's Joiner can discover the leader by scraping this node's
// /metrics endpoint.
func publishLeaderGauges(store *raftstore.Store, metrics *cluster.Metrics) {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()
	for range ticker.C {
		leaderAddr, leaderID := store.Raft().LeaderWithID()
		if leaderID == "" {
			continue
		}
		metrics.SetLeader(string(leaderID), string(leaderAddr))
	}
}
