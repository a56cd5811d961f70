// Command npp runs the n-party-preferred pipeline: it distributes Senate
// ballot preferences to booth-level tallies, projects those onto SA1
// statistical areas, and combines SA1s into analysis districts, as
// configured by a scenario file.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/ahrav/go-npp/infrastructure/telemetry"
	"github.com/ahrav/go-npp/internal/application"
	"github.com/ahrav/go-npp/internal/ports"
)

func main() {
	var (
		configPath  = flag.String("config", "npp.yml", "path to the scenario configuration file")
		scenarios   = flag.String("scenario", "", "comma-separated scenario names to run (default: all)")
		phase       = flag.String("phase", "all", "phases to run: all, distribute, project or combine")
		writeJSON   = flag.Bool("js", false, "also write district results as JSON")
		parallel    = flag.Bool("parallel", false, "run scenarios concurrently")
		list        = flag.Bool("list", false, "list configured scenarios and exit")
		metricsAddr = flag.String("metrics-addr", "", "address to serve Prometheus metrics on (empty: disabled)")
		verbose     = flag.Bool("v", false, "enable debug logging")
	)
	flag.Parse()

	if err := run(*configPath, *scenarios, *phase, *writeJSON, *parallel, *list, *metricsAddr, *verbose); err != nil {
		fmt.Fprintln(os.Stderr, "npp:", err)
		os.Exit(1)
	}
}

func run(
	configPath, scenarios, phase string,
	writeJSON, parallel, list bool,
	metricsAddr string,
	verbose bool,
) error {
	logger, err := telemetry.NewLogger(verbose)
	if err != nil {
		return fmt.Errorf("failed to initialise logging: %w", err)
	}
	defer logger.Sync() //nolint:errcheck // stderr sync failure is unactionable

	loader, err := application.NewScenarioLoader()
	if err != nil {
		return err
	}
	config, err := loader.LoadFromFile(configPath)
	if err != nil {
		return err
	}

	if list {
		return application.ListScenarios(os.Stdout, config)
	}

	selection, err := application.ParsePhaseSelection(phase)
	if err != nil {
		return err
	}
	if writeJSON {
		for name, sc := range config.Scenarios {
			sc.WriteJSON = true
			config.Scenarios[name] = sc
		}
	}

	var metrics ports.MetricsCollector = telemetry.NewNopMetrics()
	if metricsAddr != "" {
		metrics = telemetry.NewPrometheusMetrics(prometheus.DefaultRegisterer)
		go serveMetrics(logger, metricsAddr)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runner, err := application.NewRunner(config, logger, metrics, parallel)
	if err != nil {
		return err
	}

	var names []string
	if scenarios != "" {
		names = strings.Split(scenarios, ",")
	}
	return runner.Run(ctx, names, selection)
}

// serveMetrics exposes the Prometheus endpoint for the life of the run.
func serveMetrics(logger *zap.Logger, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	logger.Info("serving metrics", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Warn("metrics server stopped", zap.Error(err))
	}
}
