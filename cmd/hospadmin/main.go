package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"hospadmin/internal/backup"
	"hospadmin/internal/billing"
	"hospadmin/internal/cli"
	"hospadmin/internal/config"
	"hospadmin/internal/directory"
	"hospadmin/internal/events"
	"hospadmin/internal/ledger"
	"hospadmin/internal/metrics"
	"hospadmin/internal/outcome"
	"hospadmin/internal/pharmacy"
	"hospadmin/internal/report"
	"hospadmin/internal/scheduler"
	"hospadmin/internal/store"
)

func main() {
	// Initialize logger
	output := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	logger := zerolog.New(output).With().Timestamp().Logger()

	_ = godotenv.Load()

	cfg, err := config.Load(os.Getenv("HOSPADMIN_CONFIG_PATH"))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	catalog, err := openCatalog(cfg, &logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open storage")
	}
	defer catalog.Close()

	bus := events.NewBus()
	if cfg.Monitoring.PrometheusEnabled {
		metrics.Register()
		metrics.Subscribe(bus)
	}

	dir := directory.New(catalog.Users(), logger)
	ldg := ledger.New(catalog.Availability(), bus, logger)
	sched := scheduler.New(catalog.Appointments(), ldg, dir, catalog, bus,
		scheduler.Options{RejectPastDates: cfg.Scheduling.RejectPastDates}, logger)
	outcomes := outcome.New(catalog.Outcomes(), sched, logger)
	inventory := pharmacy.New(catalog.Medicines(), catalog.Replenishments(), bus, logger)
	bills := billing.New(catalog.Bills(), bus, logger)
	exporter := report.NewExporter(catalog, cfg.Report.Dir, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Monitoring.PrometheusEnabled {
		go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, &logger)
	}

	backupSvc := backup.NewService(cfg.Storage.DataDir, *cfg, &logger)
	go backupSvc.Start(ctx)

	app := cli.New(os.Stdin, os.Stdout)
	app.Directory = dir
	app.Scheduler = sched
	app.Ledger = ldg
	app.Outcomes = outcomes
	app.Inventory = inventory
	app.Billing = bills
	app.Reporter = exporter
	app.ConsultationFee = cfg.Scheduling.ConsultationFee
	app.LoginLimiter = rate.NewLimiter(rate.Limit(float64(cfg.Login.AttemptsPerMinute)/60.0), cfg.Login.AttemptsPerMinute)
	app.Logger = logger

	logger.Info().Str("backend", cfg.Storage.Backend).Msg("hospadmin started")
	if err := app.Run(ctx); err != nil && ctx.Err() == nil {
		logger.Fatal().Err(err).Msg("console loop failed")
	}
	logger.Info().Msg("goodbye")
}

func openCatalog(cfg *config.Config, logger *zerolog.Logger) (store.Catalog, error) {
	switch cfg.Storage.Backend {
	case "sqlite":
		return store.NewSQLiteCatalog(cfg.Storage.DBPath, logger)
	case "csv":
		return store.NewCSVCatalog(cfg.Storage.DataDir, logger), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info().Int("port", port).Msg("metrics server started")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("metrics server failed")
	}
}
