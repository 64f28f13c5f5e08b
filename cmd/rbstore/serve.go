package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"rbstore/api/grpcserver"
	"rbstore/config"
	"rbstore/infra/feed"
	"rbstore/infra/logging"
	"rbstore/infra/metrics"
	"rbstore/jobs/broadcaster"
	"rbstore/service"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the gRPC index server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			log, err := logging.New(os.Stderr, cfg.Log.Level, cfg.Log.Format)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, log)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	// ---------------- Metrics ----------------

	m := metrics.New()

	// ---------------- Change feed ----------------

	pub, err := feed.Open(cfg.FeedPublisher(), log)
	if err != nil {
		return err
	}
	var (
		sink service.Sink
		bc   *broadcaster.Broadcaster
	)
	if pub != nil {
		bc = broadcaster.New(pub, cfg.Broadcaster(), log, m)
		sink = bc
	}

	// ---------------- Index ----------------

	svc := service.New(sink, m, log)

	// ---------------- gRPC ----------------

	lis, err := net.Listen("tcp", cfg.Server.Listen)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.Server.Listen, err)
	}
	grpcSrv := grpcserver.NewGRPCServer(grpcserver.NewServer(svc, log), m)

	// ---------------- HTTP (metrics) ----------------

	var httpSrv *http.Server
	if cfg.Server.MetricsListen != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", m.Handler())
		mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
			st := svc.Stats()
			fmt.Fprintf(w, "ok entries=%d version=%d\n", st.Entries, st.LastVersion)
		})
		httpSrv = &http.Server{Addr: cfg.Server.MetricsListen, Handler: mux}
	}

	// ---------------- Run ----------------

	g, gctx := errgroup.WithContext(ctx)
	feedCtx, stopFeed := context.WithCancel(context.Background())
	defer stopFeed()

	if bc != nil {
		g.Go(func() error { return bc.Run(feedCtx) })
	}
	g.Go(func() error {
		log.Info("rbstore serving", "grpc", cfg.Server.Listen, "metrics", cfg.Server.MetricsListen)
		if err := grpcSrv.Serve(lis); !errors.Is(err, grpc.ErrServerStopped) {
			return err
		}
		return nil
	})
	if httpSrv != nil {
		g.Go(func() error {
			if err := httpSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")

		// Writers first, so the feed drains everything they produced.
		grpcSrv.GracefulStop()
		stopFeed()

		if httpSrv == nil {
			return nil
		}
		sctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return httpSrv.Shutdown(sctx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
