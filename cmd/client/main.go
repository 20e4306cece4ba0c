package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	router "github.com/dkeye/voicecall/internal/adapters/http"
	"github.com/dkeye/voicecall/internal/adapters/rtc"
	sig "github.com/dkeye/voicecall/internal/adapters/signal"
	"github.com/dkeye/voicecall/internal/app/orch"
	"github.com/dkeye/voicecall/internal/config"
	"github.com/dkeye/voicecall/internal/domain"
	"github.com/dkeye/voicecall/internal/logging"
	"github.com/dkeye/voicecall/internal/metrics"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	fs := config.Flags("voicecall-client")
	if err := fs.Parse(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	cfg, err := config.Load(fs)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	closer := logging.Setup(cfg.Log)
	defer closer.Close()

	if err := run(ctx, cfg); err != nil {
		log.Error().Err(err).Msg("client stopped")
		os.Exit(1)
	}
	log.Info().Msg("Client exited gracefully")
}

func run(ctx context.Context, cfg *config.Config) error {
	callCfg, err := cfg.CallConfig()
	if err != nil {
		return err
	}
	if err := domain.ValidateUserID(domain.UserID(cfg.Client.UserID)); err != nil {
		return fmt.Errorf("client.user_id: %w", err)
	}
	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		return err
	}

	transport, err := rtc.NewTransport(rtc.Options{
		Devices: rtc.FileDevices{
			AudioFile:     cfg.Media.AudioFile,
			VideoFile:     cfg.Media.VideoFile,
			BackVideoFile: cfg.Media.BackVideoFile,
		},
		RecordDir: cfg.Media.RecordDir,
	})
	if err != nil {
		return err
	}

	client := sig.NewClient(sig.Options{
		URL:         cfg.Client.HubURL,
		UserID:      domain.UserID(cfg.Client.UserID),
		DisplayName: cfg.Client.DisplayName,
		Rooms:       cfg.Client.RoomIDs(),
		RetryDelay:  cfg.Client.RetryDelay,
	})
	calls := orch.New(transport, client, client, callCfg)

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router.SetupControlRouter(cfg.Mode, calls, client),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	runLinked(gctx, g, client, calls)
	g.Go(func() error {
		log.Info().Str("addr", addr).Str("user", cfg.Client.UserID).Msg("voicecall client started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

type runner interface {
	Run(ctx context.Context) error
}

// runLinked runs calls until ctx is done and keeps link running until calls
// has returned, so the hangup sent on shutdown still reaches the hub.
func runLinked(ctx context.Context, g *errgroup.Group, link, calls runner) {
	linkCtx, stopLink := context.WithCancel(context.WithoutCancel(ctx))
	g.Go(func() error { return link.Run(linkCtx) })
	g.Go(func() error {
		defer stopLink()
		return calls.Run(ctx)
	})
}
