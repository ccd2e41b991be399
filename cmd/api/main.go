package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ivankudzin/jobswipe/internal/app/apiapp"
	"github.com/ivankudzin/jobswipe/internal/config"
	"github.com/ivankudzin/jobswipe/internal/infra/logger"
)

type serveOptions struct {
	configPath   string
	addr         string
	drainTimeout time.Duration
}

func main() {
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "jobswipe-api:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := serveOptions{}
	cmd := &cobra.Command{
		Use:          "jobswipe-api",
		Short:        "Serve the JobSwipe HTTP and websocket API",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, opts)
		},
	}

	defaultConfig := os.Getenv("APP_CONFIG")
	if defaultConfig == "" {
		defaultConfig = "configs/config.yaml"
	}
	cmd.Flags().StringVar(&opts.configPath, "config", defaultConfig, "Path to the YAML config")
	cmd.Flags().StringVar(&opts.addr, "addr", "", "Listen address, overrides http.addr")
	cmd.Flags().DurationVar(&opts.drainTimeout, "drain-timeout", 10*time.Second, "How long in-flight requests get on shutdown")
	return cmd
}

// serve runs the API until ctx ends, then drains it within drainTimeout.
func serve(ctx context.Context, opts serveOptions) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return fmt.Errorf("load config %s: %w", opts.configPath, err)
	}
	if opts.addr != "" {
		cfg.HTTP.Addr = opts.addr
	}

	log, err := logger.New(cfg.Log.Level, "api", logger.WithFormat(cfg.Log.Format))
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	app, err := apiapp.New(ctx, cfg, log)
	if err != nil {
		log.Error("api bootstrap failed", zap.Error(err))
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return app.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("api draining", zap.Duration("timeout", opts.drainTimeout))
		drainCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), opts.drainTimeout)
		defer cancel()
		return app.Shutdown(drainCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("api stopped with error", zap.Error(err))
		return err
	}
	log.Info("api stopped")
	return nil
}
