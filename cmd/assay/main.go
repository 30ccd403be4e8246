package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/MikeSquared-Agency/Assay/internal/api"
	"github.com/MikeSquared-Agency/Assay/internal/config"
	"github.com/MikeSquared-Agency/Assay/internal/hermes"
	"github.com/MikeSquared-Agency/Assay/internal/predictor"
	"github.com/MikeSquared-Agency/Assay/internal/report"
	"github.com/MikeSquared-Agency/Assay/internal/screening"
	"github.com/MikeSquared-Agency/Assay/internal/store"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	serve := flag.Bool("serve", false, "run the HTTP API instead of a single screening pass")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.Logging)
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Predictor
	pred, predictorName, err := newPredictor(cfg)
	if err != nil {
		logger.Error("failed to load predictor", "error", err, "path", cfg.Model.Path)
		os.Exit(1)
	}
	logger.Info("predictor ready", "predictor", predictorName)

	// Run store: Postgres when configured, otherwise in memory
	var db store.Store
	if cfg.Database.URL != "" {
		pg, err := store.NewPostgresStore(ctx, cfg.Database.URL)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		if cfg.Database.Migrate {
			if err := pg.Migrate(ctx); err != nil {
				logger.Error("failed to migrate database", "error", err)
				os.Exit(1)
			}
		}
		db = pg
		logger.Info("connected to database")
	} else {
		db = store.NewMemoryStore(nil)
		logger.Info("no database configured, keeping runs in memory")
	}
	defer db.Close()

	// Reference set: CSV file when configured, otherwise the database
	var reference store.ReferenceSource = db
	if cfg.Reference.Path != "" {
		reference = store.NewCSVReferenceSource(cfg.Reference.Path)
		logger.Info("reference set from file", "path", cfg.Reference.Path)
	}

	// Hermes (optional)
	var hermesClient hermes.Client
	if cfg.Hermes.URL != "" {
		hc, err := hermes.NewNATSClient(ctx, cfg.Hermes.URL, logger)
		if err != nil {
			logger.Warn("failed to connect to hermes, running without events", "error", err)
		} else {
			hermesClient = hc
			defer hc.Close()
			logger.Info("connected to hermes")
		}
	}

	pipeline := screening.New(pred, reference, db, hermesClient, screening.Options{
		PredictorName: predictorName,
		ReferenceFilter: store.ReferenceFilter{
			MaxDensity:     cfg.Reference.MaxDensity,
			MaxBulkModulus: cfg.Reference.MaxBulkModulus,
			StableOnly:     cfg.Reference.StableOnly,
		},
		Workers: cfg.Ranking.Workers,
	}, logger)

	defaults := screening.Request{
		Roles:            cfg.Candidates,
		Thresholds:       cfg.Thresholds(),
		RequireStability: cfg.Ranking.RequireStability,
	}

	if !*serve {
		if err := runOnce(ctx, pipeline, defaults, cfg.Output); err != nil {
			logger.Error("screening failed", "error", err)
			os.Exit(1)
		}
		return
	}

	// API server
	router := api.NewRouter(pipeline, db, defaults, cfg.Server.AdminToken, logger)
	apiServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Metrics server
	metricsServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.MetricsPort),
		Handler:           api.NewMetricsRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("API server starting", "port", cfg.Server.Port)
		if err := apiServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			logger.Error("API server error", "error", err)
		}
	}()

	go func() {
		logger.Info("metrics server starting", "port", cfg.Server.MetricsPort)
		if err := metricsServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server error", "error", err)
		}
	}()

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	_ = apiServer.Shutdown(shutdownCtx)
	_ = metricsServer.Shutdown(shutdownCtx)

	logger.Info("shutdown complete")
}

func newLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.Format, "text") {
		return slog.New(slog.NewTextHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}

// newPredictor uses the remote model server when one is configured and the
// local artifact otherwise.
func newPredictor(cfg *config.Config) (predictor.Predictor, string, error) {
	if cfg.Model.URL != "" {
		return predictor.NewHTTPClient(cfg.Model.URL, cfg.Model.Token, cfg.ModelTimeout()), "remote:" + cfg.Model.URL, nil
	}
	a, err := predictor.LoadArtifact(cfg.Model.Path)
	if err != nil {
		return nil, "", err
	}
	name := a.Name
	if name == "" {
		name = cfg.Model.Path
	}
	return predictor.FromArtifact(a), "artifact:" + name, nil
}

// runOnce screens the configured roles, prints the report to stdout and
// writes the candidate records to the output CSV.
func runOnce(ctx context.Context, p *screening.Pipeline, req screening.Request, out config.OutputConfig) error {
	res, err := p.Run(ctx, req)
	if err != nil {
		return err
	}

	f, err := report.NewFormatter(out.Format, os.Stdout)
	if err != nil {
		return err
	}
	if err := f.Format(report.FromResult(res)); err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	if out.Path != "" {
		if err := report.WriteCSVFile(out.Path, res.Records); err != nil {
			return err
		}
		slog.Info("candidates written", "path", out.Path, "count", len(res.Records))
	}
	return nil
}
