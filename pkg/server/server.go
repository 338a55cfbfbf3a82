package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	findingshandlers "github.com/vg-tools/ledger-audit/pkg/handlers/findings"
	ledgerhandlers "github.com/vg-tools/ledger-audit/pkg/handlers/ledger"
	auditmiddleware "github.com/vg-tools/ledger-audit/pkg/server/middleware"
)

type WebAPI struct {
	router *chi.Mux
	logger *zerolog.Logger
	server *http.Server
}

type Dependencies struct {
	Findings *findingshandlers.Handler
	// Ledger is nil when the server runs without a loaded dataset; the
	// aggregate and audit-run routes are then not mounted.
	Ledger *ledgerhandlers.Handler
	Logger zerolog.Logger
}

type Config struct {
	Addr            string
	ShutdownTimeout time.Duration
	Dependencies    Dependencies
}

func ConfigureRouter(config Config) *chi.Mux {
	deps := config.Dependencies

	router := chi.NewRouter()
	router.Use(auditmiddleware.Logger(&deps.Logger))
	router.Use(middleware.Recoverer)

	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/findings", deps.Findings.ListFindings)
		r.Get("/findings/summary", deps.Findings.GetSummary)
		r.Get("/findings/{finding}", deps.Findings.GetFinding)
		r.Post("/findings/{finding}/transitions", deps.Findings.TransitionFinding)

		if deps.Ledger != nil {
			r.Get("/aggregates", deps.Ledger.GetAggregates)
			r.Get("/aggregates/trend", deps.Ledger.GetTrend)
			r.Post("/audit/runs", deps.Ledger.RunAudit)
		}
	})

	return router
}

func NewWebAPI(logger zerolog.Logger, config Config) *WebAPI {
	config.Dependencies.Logger = logger
	router := ConfigureRouter(config)

	return &WebAPI{
		router: router,
		logger: &logger,
		server: &http.Server{
			Addr:    config.Addr,
			Handler: router,
		},
	}
}

func (w *WebAPI) Start() error {
	serverErrors := make(chan error, 1)
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	go func() {
		w.logger.Info().Str("addr", w.server.Addr).Msg("starting server")
		serverErrors <- w.server.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-shutdown:
		w.logger.Info().Msg("shutdown initiated")

		// Give outstanding requests a deadline for completion.
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		err := w.server.Shutdown(ctx)
		if err != nil {
			w.logger.Error().Err(err).Msg("graceful shutdown failed")
			err = w.server.Close()
		}

		if err != nil {
			return err
		}
	}

	return nil
}
