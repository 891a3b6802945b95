package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/lexigraph/internal/config"
	"github.com/alfredjeanlab/lexigraph/internal/events"
	"github.com/alfredjeanlab/lexigraph/internal/lexicon"
	"github.com/alfredjeanlab/lexigraph/internal/server"
	lexsync "github.com/alfredjeanlab/lexigraph/internal/sync"
)

const shutdownGrace = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:               "serve",
	Short:             "Run the lexigraph HTTP and gRPC server",
	GroupID:           "system",
	Args:              cobra.NoArgs,
	PersistentPreRunE: noClient,
	RunE: func(cmd *cobra.Command, args []string) error {
		debug, _ := cmd.Flags().GetBool("debug")
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return serve(ctx, cfg, newLogger(debug))
	},
}

// daemon is a running server. Components register teardown steps as they
// start; stop runs them in reverse, so listeners close first and the store
// closes only after any in-flight rebuild has drained.
type daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	engine   *lexicon.Engine
	srv      *server.LexiconServer
	teardown []func()
}

func (d *daemon) onStop(name string, fn func() error) {
	d.teardown = append(d.teardown, func() {
		if err := fn(); err != nil {
			d.logger.Error("shutdown step failed", "component", name, "err", err)
			return
		}
		d.logger.Debug("stopped", "component", name)
	})
}

func (d *daemon) stop() {
	for i := len(d.teardown) - 1; i >= 0; i-- {
		d.teardown[i]()
	}
}

// serve runs the server until ctx is done.
func serve(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	d := &daemon{cfg: cfg, logger: logger}
	defer d.stop()

	st, err := openStore(cfg, logger)
	if err != nil {
		return err
	}
	d.onStop("store", st.Close)
	d.engine = lexicon.New(st, engineOptions(cfg, st, logger))

	var bus *events.Bus
	publisher := events.Discard
	if cfg.NATSURL != "" {
		if bus, err = events.Connect(cfg.NATSURL); err != nil {
			return err
		}
		d.onStop("nats", bus.Close)
		publisher = bus
	}
	logger.Info("event bus", "enabled", bus != nil)
	d.onStop("rebuild", func() error {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		return d.engine.Drain(ctx)
	})

	d.srv = server.NewLexiconServer(d.engine, publisher, server.Options{
		SearchRateLimit: cfg.SearchRateLimit,
		SearchRateBurst: cfg.SearchRateBurst,
		Logger:          logger,
	})

	if err := d.startGRPC(); err != nil {
		return err
	}
	if err := d.startHTTP(); err != nil {
		return err
	}
	d.onStop("health", func() error { d.srv.Shutdown(); return nil })
	if sched := startExportScheduler(cfg, d.engine, logger); sched != nil {
		d.onStop("export scheduler", func() error { sched.Stop(); return nil })
	}
	if bus != nil {
		if err := events.ListenRebuildRequests(ctx, bus, d.srv.HandleRebuildRequest, logger); err != nil {
			logger.Error("rebuild requests disabled", "err", err)
		}
	}
	if cfg.RebuildOnStart {
		if _, err := d.srv.Rebuild(ctx, "startup", false); err != nil {
			logger.Error("startup rebuild not started", "err", err)
		}
	}

	logger.Info("lexigraph serving", "http_addr", cfg.HTTPAddr, "grpc_addr", cfg.GRPCAddr, "store", storeKind(cfg))
	<-ctx.Done()
	logger.Info("shutting down")
	return nil
}

func (d *daemon) startGRPC() error {
	if d.cfg.GRPCAddr == "" {
		return nil
	}
	lis, err := net.Listen("tcp", d.cfg.GRPCAddr)
	if err != nil {
		return fmt.Errorf("grpc listen: %w", err)
	}
	gs := server.NewGRPCServer(d.srv, d.cfg.AuthToken)
	go func() {
		if err := gs.Serve(lis); err != nil {
			d.logger.Error("grpc server", "err", err)
		}
	}()
	d.onStop("grpc", func() error { gs.GracefulStop(); return nil })
	return nil
}

func (d *daemon) startHTTP() error {
	lis, err := net.Listen("tcp", d.cfg.HTTPAddr)
	if err != nil {
		return fmt.Errorf("http listen: %w", err)
	}
	hs := &http.Server{
		Handler:           d.srv.NewHTTPHandler(d.cfg.AuthToken),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := hs.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			d.logger.Error("http server", "err", err)
		}
	}()
	d.onStop("http", func() error {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		return hs.Shutdown(ctx)
	})
	return nil
}

// startExportScheduler starts periodic exports when an interval and at
// least one destination are configured.
func startExportScheduler(cfg *config.Config, src lexsync.Source, logger *slog.Logger) *lexsync.Scheduler {
	if cfg.ExportInterval <= 0 {
		return nil
	}
	var dests []lexsync.Destination
	if cfg.ExportS3Bucket != "" {
		d, err := lexsync.NewS3Destination(context.Background(),
			cfg.ExportS3Bucket, cfg.ExportS3Key, cfg.ExportS3Region, cfg.ExportS3Endpoint)
		if err != nil {
			logger.Error("s3 export disabled", "err", err)
		} else {
			dests = append(dests, d)
		}
	}
	if cfg.ExportGitRepo != "" {
		dests = append(dests, lexsync.NewGitDestination(cfg.ExportGitRepo, cfg.ExportGitFile, cfg.ExportGitBranch))
	}
	if len(dests) == 0 {
		logger.Warn("export interval set without destinations")
		return nil
	}
	sched := lexsync.NewScheduler(src, dests, cfg.ExportInterval, logger)
	sched.Start()
	logger.Info("export scheduler started", "interval", cfg.ExportInterval, "destinations", len(dests))
	return sched
}

func storeKind(cfg *config.Config) string {
	if cfg.UsesPostgres() {
		return "postgres"
	}
	return "badger"
}

func init() {
	serveCmd.Flags().Bool("debug", false, "enable debug logging")
}
