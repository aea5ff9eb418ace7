package app

import (
	"context"
	"fmt"
	stdhttp "net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/docrelay/internal/config"
	"github.com/vovakirdan/docrelay/internal/core"
	"github.com/vovakirdan/docrelay/internal/journal"
	"github.com/vovakirdan/docrelay/internal/journal/sqlite"
	transporthttp "github.com/vovakirdan/docrelay/internal/transport/http"
)

// App wires together core and transport layers.
type App struct {
	server          *stdhttp.Server
	shutdownTimeout time.Duration
	hub             *core.Hub
	journal         journal.Journal
	log             *zerolog.Logger
}

// New constructs the application with provided configuration.
func New(cfg *config.Config, logger *zerolog.Logger) (*App, error) {
	opts := []core.Option{core.WithLogger(logger)}

	var (
		jr     journal.Journal
		reader journal.Reader
	)
	if cfg.JournalPath != "" {
		st, err := sqlite.New(cfg.JournalPath, 0, logger)
		if err != nil {
			return nil, fmt.Errorf("init activity journal: %w", err)
		}
		logger.Info().Str("path", cfg.JournalPath).Msg("activity journal enabled")
		jr = st
		reader = st
		opts = append(opts, core.WithJournal(st))
	}

	hub := core.NewHub(opts...)
	server := transporthttp.NewServer(hub, reader, cfg, logger)

	return &App{
		server:          server,
		shutdownTimeout: cfg.ShutdownTimeout,
		hub:             hub,
		journal:         jr,
		log:             logger,
	}, nil
}

// Run starts the HTTP server and blocks until context cancellation or fatal error.
func (a *App) Run(ctx context.Context) error {
	serverErr := make(chan error, 1)

	hubCtx, stopHub := context.WithCancel(context.Background())
	hubDone := make(chan struct{})
	go func() {
		a.hub.Run(hubCtx)
		close(hubDone)
	}()

	go func() {
		a.log.Info().Str("addr", a.server.Addr).Msg("relay listening")
		if err := a.server.ListenAndServe(); err != nil && err != stdhttp.ErrServerClosed {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()

	var err error
	select {
	case err = <-serverErr:
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
		defer cancel()

		a.log.Info().Msg("shutting down http server")
		if shutdownErr := a.server.Shutdown(shutdownCtx); shutdownErr != nil {
			err = shutdownErr
		} else {
			err = <-serverErr
		}
	}

	// The hub outlives the listener so every client still gets its cleanup
	// recorded before the journal closes.
	stopHub()
	<-hubDone
	a.cleanup()
	return err
}

// cleanup closes the journal and other resources.
func (a *App) cleanup() {
	if a.journal != nil {
		if err := a.journal.Close(); err != nil {
			a.log.Warn().Err(err).Msg("failed to close activity journal")
		} else {
			a.log.Info().Msg("activity journal closed")
		}
	}
}
