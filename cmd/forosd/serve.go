package main

import (
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/encoding"

	fconfig "github.com/daoran/foros/internal/config"
	"github.com/daoran/foros/internal/lifecycle"
	"github.com/daoran/foros/internal/metrics"
	"github.com/daoran/foros/internal/raft"
	"github.com/daoran/foros/internal/raftstore"
	"github.com/daoran/foros/internal/transport/grpcraft"
)

func newServeCmd(logger zerolog.Logger) *cobra.Command {
	var configPath, metricsAddr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run a single foros node until terminated",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, logger, configPath, metricsAddr)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "foros.yaml", "path to the node's YAML configuration")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", ":9090", "address to serve /metrics on")
	return cmd
}

func runServe(cmd *cobra.Command, logger zerolog.Logger, configPath, metricsAddr string) error {
	cfg, err := fconfig.Load(configPath)
	if err != nil {
		return err
	}
	logger = logger.With().Str("cluster", cfg.ClusterName).Uint32("node_id", cfg.NodeID).Logger()

	store, err := raftstore.OpenBoltStore(cfg.BoltPath)
	if err != nil {
		return fmt.Errorf("forosd: open store: %w", err)
	}
	defer store.Close()

	registry := prometheus.NewRegistry()
	recorder := metrics.NewRecorder(registry, cfg.ClusterName, cfg.NodeID)
	go serveMetrics(metricsAddr, registry, logger)

	grpcServer := grpc.NewServer(grpc.ForceServerCodec(encoding.GetCodec("raftgob")))
	rctx := raft.NewContext(raft.ContextConfig{
		ClusterName:            cfg.ClusterName,
		LocalID:                raft.NodeID(cfg.NodeID),
		ElectionTimeoutMin:     cfg.ElectionTimeoutMin,
		ElectionTimeoutMax:     cfg.ElectionTimeoutMax,
		BroadcastTimeout:       cfg.BroadcastTimeout,
		DataReplicationEnabled: cfg.DataReplicationEnabled,
		Store:                  store,
		Metrics:                recorder,
		Logger:                 logger,
	})

	bridge := lifecycle.NewBridge(logPublisher{logger: logger}, recorder, logger)
	rctx.StateMachine().Subscribe(bridge)

	grpcraft.NewServer(grpcServer).RegisterNode(cfg.ClusterName, raft.NodeID(cfg.NodeID), rctx)

	listener, err := net.Listen("tcp", cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("forosd: listen on %s: %w", cfg.ListenAddr, err)
	}
	go func() {
		logger.Info().Str("addr", cfg.ListenAddr).Msg("serving raft rpcs")
		if err := grpcServer.Serve(listener); err != nil {
			logger.Error().Err(err).Msg("grpc server stopped")
		}
	}()

	peerAddrs := make(map[raft.NodeID]string, len(cfg.PeerAddrs))
	for id, addr := range cfg.PeerAddrs {
		peerAddrs[raft.NodeID(id)] = addr
	}
	dialer := grpcraft.NewDialer(cfg.ClusterName, peerAddrs, cfg.BroadcastTimeout)
	defer dialer.Close()

	peerIDs := make([]raft.NodeID, 0, len(cfg.PeerIDs))
	for _, id := range cfg.PeerIDs {
		peerIDs = append(peerIDs, raft.NodeID(id))
	}
	rctx.Initialize(peerIDs, dialer)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info().Msg("shutting down")
	rctx.Shutdown()
	grpcServer.GracefulStop()
	return nil
}

func serveMetrics(addr string, gatherer prometheus.Gatherer, logger zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Error().Err(err).Msg("metrics server stopped")
	}
}
