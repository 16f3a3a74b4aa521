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

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	router "github.com/dkeye/chatrelay/internal/adapters/http"
	"github.com/dkeye/chatrelay/internal/adapters/tcp"
	"github.com/dkeye/chatrelay/internal/adapters/ws"
	"github.com/dkeye/chatrelay/internal/app"
	"github.com/dkeye/chatrelay/internal/config"
	"github.com/dkeye/chatrelay/internal/metrics"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	if len(os.Args) > 2 {
		fmt.Fprintf(os.Stderr, "usage: %s <port>\n", os.Args[0])
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if len(os.Args) == 2 {
		port, err := config.ParsePort(os.Args[1])
		if err != nil {
			log.Fatal().Err(err).Msg("bad port argument")
		}
		cfg.Port = port
	}
	if cfg.Port == 0 {
		fmt.Fprintf(os.Stderr, "usage: %s <port>\n", os.Args[0])
		os.Exit(2)
	}
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	} else {
		log.Warn().Str("log_level", cfg.LogLevel).Msg("unknown log level, keeping info")
	}

	m := metrics.New()
	loop := app.NewLoop(app.Options{
		Framing:    cfg.FramingMode(),
		QueueSize:  cfg.EventQueue,
		MaxNickLen: cfg.MaxNickLen,
		Metrics:    m,
	})

	srv, err := tcp.Listen(cfg.ListenAddr(), loop, tcp.Options{
		ReadBuffer:   cfg.ReadBuffer,
		WriteTimeout: cfg.WriteTimeout,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("cannot bind chat port")
	}

	go func() {
		if err := loop.Run(ctx); err != nil {
			log.Error().Err(err).Msg("event loop error")
		}
	}()

	var httpSrv *http.Server
	if cfg.HTTPAddr != "" {
		gw := ws.NewGateway(loop, ws.Options{
			ReadLimit:    int64(cfg.ReadBuffer),
			WriteTimeout: cfg.WriteTimeout,
		})
		httpSrv = &http.Server{
			Addr:              cfg.HTTPAddr,
			Handler:           router.SetupRouter(cfg, loop, gw, m),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			log.Info().Str("addr", cfg.HTTPAddr).Msg("admin http started")
			if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Msg("admin http error")
			}
		}()
	}

	log.Info().Str("addr", srv.Addr().String()).Msg("Chat relay started")
	failed := false
	if err := srv.Serve(ctx); err != nil {
		log.Error().Err(err).Msg("server error")
		failed = true
		cancel()
	}

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	if httpSrv != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Server forced to shutdown")
		}
		shutdownCancel()
	}
	<-loop.Done()
	log.Info().Msg("Server exited gracefully")
	if failed {
		os.Exit(1)
	}
}
