package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/mcclellann/pawnledger/pkg/config"
	"github.com/mcclellann/pawnledger/pkg/ledger"
	"github.com/mcclellann/pawnledger/pkg/store"
	"github.com/mcclellann/pawnledger/pkg/valuation"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Server holds the ledger instance.
type Server struct {
	ledger   *ledger.Ledger
	storage  store.Storage // Keep a reference to the storage to close it
	location *time.Location
}

func NewServer(l *ledger.Ledger, s store.Storage, loc *time.Location) *Server {
	return &Server{
		ledger:   l,
		storage:  s,
		location: loc,
	}
}

// Close releases the storage once the HTTP server has stopped.
func (s *Server) Close() error {
	if err := s.storage.Close(); err != nil {
		return fmt.Errorf("failed to close storage: %w", err)
	}
	return nil
}

func (s *Server) routes() *mux.Router {
	router := mux.NewRouter()
	router.Use(requestLogger)

	router.HandleFunc("/health", s.healthHandler).Methods("GET")
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	router.HandleFunc("/loans", s.listLoansHandler).Methods("GET")
	router.HandleFunc("/loans", s.createLoanHandler).Methods("POST")
	router.HandleFunc("/loans/{id}", s.getLoanHandler).Methods("GET")
	router.HandleFunc("/loans/{id}", s.updateLoanHandler).Methods("PUT")
	router.HandleFunc("/loans/{id}", s.deleteLoanHandler).Methods("DELETE")
	router.HandleFunc("/loans/{id}/interest-payments", s.payInterestHandler).Methods("POST")
	router.HandleFunc("/loans/{id}/principal-adjustments", s.adjustPrincipalHandler).Methods("POST")
	router.HandleFunc("/loans/{id}/redeem", s.redeemHandler).Methods("POST")
	router.HandleFunc("/loans/{id}/liquidate", s.liquidateHandler).Methods("POST")

	router.HandleFunc("/overdue", s.overdueHandler).Methods("GET")
	router.HandleFunc("/customers", s.customersHandler).Methods("GET")
	router.HandleFunc("/customers/{name}/loans", s.customerLoansHandler).Methods("GET")
	router.HandleFunc("/customers/{name}/items", s.customerItemsHandler).Methods("GET")
	router.HandleFunc("/stats", s.statsHandler).Methods("GET")
	router.HandleFunc("/valuations", s.valuationHandler).Methods("POST")

	return router
}

// newLogger writes JSON lines in production and human-readable lines elsewhere.
func newLogger(cfg *config.Config, w io.Writer) zerolog.Logger {
	if cfg.IsProduction() {
		return zerolog.New(w).With().Timestamp().Logger()
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: w}).With().Timestamp().Logger()
}

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	log.Logger = newLogger(cfg, os.Stderr)

	sqliteStore, err := store.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("Failed to initialize SQLite store")
	}

	var estimator valuation.Estimator
	if cfg.Valuation.APIKey != "" {
		client, err := valuation.NewGeminiClient(context.Background(), cfg.Valuation, nil)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize Gemini client")
		}
		estimator = client
		log.Info().Str("model", cfg.Valuation.Model).Msg("Device valuation enabled")
	} else {
		log.Info().Msg("GEMINI_API_KEY not set, device valuation disabled")
	}

	l := ledger.NewLedger(sqliteStore,
		ledger.WithClock(ledger.SystemClock(cfg.Location)),
		ledger.WithDefaults(cfg.Defaults),
		ledger.WithAdvisor(valuation.NewAdvisor(estimator)),
	)
	server := NewServer(l, sqliteStore, cfg.Location)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      server.routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Str("timezone", cfg.Location.String()).Msg("Server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	if err := server.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close storage")
	}
	log.Info().Msg("Server exited")
}
