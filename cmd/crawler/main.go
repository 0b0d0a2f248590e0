package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"car_resale/internal/config"
	"car_resale/internal/dataset"
	"car_resale/internal/domain"
	"car_resale/internal/metrics"
	"car_resale/internal/publisher"
	"car_resale/internal/scheduler"
	"car_resale/internal/service"
	"car_resale/internal/source/carro"
	"car_resale/internal/source/motorist"
	"car_resale/internal/source/sgcarmart"
	"car_resale/internal/source/web"
	"car_resale/internal/storage/postgres"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	once := flag.Bool("once", false, "run a single pass and exit")
	flag.Parse()

	logger := setupLogger("info")

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger = setupLogger(cfg.LogLevel)

	db, err := sqlx.Connect("postgres", cfg.Database.DSN())
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	logger.Info("connected to database")

	var pub service.Publisher = publisher.Discard{}
	if cfg.RabbitMQ.Enabled {
		rabbitMQ, err := publisher.NewRabbitMQ(publisher.Config{
			URL:        cfg.RabbitMQ.URL,
			Exchange:   cfg.RabbitMQ.Exchange,
			RoutingKey: cfg.RabbitMQ.RoutingKey,
			QueueName:  cfg.RabbitMQ.QueueName,
		}, logger)
		if err != nil {
			logger.Error("failed to connect to rabbitmq", "error", err)
			os.Exit(1)
		}
		pub = rabbitMQ
	}
	defer pub.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	if cfg.Metrics.Addr != "" {
		srv := serveMetrics(cfg.Metrics.Addr, reg, logger)
		defer func() {
			shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
			defer stop()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	crawlers, schemas, probers := buildSites(cfg, m, logger)

	var reconciler *service.ReconcileService
	if !cfg.Reconcile.Disabled {
		reconciler = service.NewReconcileService(probers, service.RetryPolicy{
			Tries:     cfg.Reconcile.Retry.Tries,
			BaseSleep: cfg.Reconcile.Retry.BaseSleep,
			Jitter:    cfg.Reconcile.Retry.Jitter,
		}, m, logger)
	}

	pipeline := service.NewPipeline(
		crawlers,
		schemas,
		postgres.NewDatasetStore(db),
		postgres.NewCrawlStateStore(db),
		postgres.NewTransactionManager(db),
		reconciler,
		pub,
		cfg.Datasets,
		logger,
	)

	sched := scheduler.NewScheduler(pipeline, cfg.Schedule.Interval, cfg.Schedule.RunTimeout, logger)

	logger.Info("starting car resale crawler",
		"sites", len(crawlers),
		"interval", cfg.Schedule.Interval,
		"reconcile", reconciler != nil,
		"once", *once,
	)

	if *once {
		sched.RunOnce(ctx)
		return
	}

	if err := sched.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("scheduler error", "error", err)
		os.Exit(1)
	}
}

// buildSites wires every enabled site in reconciliation order. Probers are
// registered even for disabled crawls so merged rows still get checked.
func buildSites(cfg *config.Config, m *metrics.Metrics, logger *slog.Logger) ([]service.Crawler, map[domain.Site]dataset.Schema, map[domain.Site]service.SiteProber) {
	httpCfg := web.Config{
		Timeout:           cfg.HTTP.Timeout,
		RequestsPerSecond: cfg.HTTP.RequestsPerSecond,
		Burst:             cfg.HTTP.Burst,
		UserAgent:         cfg.HTTP.UserAgent,
		MaxAttempts:       cfg.HTTP.Retry.MaxAttempts,
		InitialBackoff:    cfg.HTTP.Retry.InitialBackoff,
		MaxBackoff:        cfg.HTTP.Retry.MaxBackoff,
	}
	workers := func(site domain.Site) int {
		if n, ok := cfg.Reconcile.Workers[string(site)]; ok {
			return n
		}
		return 1
	}

	var crawlers []service.Crawler
	schemas := make(map[domain.Site]dataset.Schema)
	probers := make(map[domain.Site]service.SiteProber)

	sgcmClient := web.New(withReferer(httpCfg, cfg.SGCarMart.BaseURL), logger)
	sgcm := sgcarmart.New(sgcarmart.Config{
		BaseURL:  cfg.SGCarMart.BaseURL,
		PageSize: cfg.SGCarMart.PageSize,
	}, sgcmClient, logger)
	schemas[domain.SiteSGCarMart] = sgcarmart.Schema()
	probers[domain.SiteSGCarMart] = service.SiteProber{Prober: sgcm, Workers: workers(domain.SiteSGCarMart)}
	if !cfg.SGCarMart.Disabled {
		crawlers = append(crawlers, service.NewSGCarMartCrawler(sgcm, cfg.SGCarMart, m, logger))
	}

	headless := true
	if cfg.Carro.Headless != nil {
		headless = *cfg.Carro.Headless
	}
	carroClient := web.New(withReferer(httpCfg, cfg.Carro.BaseURL), logger)
	cr := carro.New(carro.Config{
		BaseURL:     cfg.Carro.BaseURL,
		APIURL:      cfg.Carro.APIURL,
		Headless:    headless,
		PageTimeout: cfg.Carro.PageTimeout,
		HTTP:        httpCfg,
	}, carroClient, logger)
	schemas[domain.SiteCarro] = carro.Schema()
	probers[domain.SiteCarro] = service.SiteProber{Prober: cr, Workers: workers(domain.SiteCarro)}
	if !cfg.Carro.Disabled {
		newSession := func(ctx context.Context) (service.Session, error) {
			s, err := cr.OpenHTTPSession(ctx)
			if err != nil {
				return nil, err
			}
			return s, nil
		}
		if cfg.Carro.Browser {
			newSession = func(ctx context.Context) (service.Session, error) {
				s, err := cr.OpenBrowserSession(ctx)
				if err != nil {
					return nil, err
				}
				return s, nil
			}
		}
		crawlers = append(crawlers, service.NewCarroCrawler(cr.Feed(), newSession, cfg.Carro, m, logger))
	}

	motoristClient := web.New(withReferer(httpCfg, cfg.Motorist.BaseURL), logger)
	mt := motorist.New(motorist.Config{BaseURL: cfg.Motorist.BaseURL}, motoristClient, logger)
	schemas[domain.SiteMotorist] = motorist.Schema()
	probers[domain.SiteMotorist] = service.SiteProber{Prober: mt, Workers: workers(domain.SiteMotorist)}
	if !cfg.Motorist.Disabled {
		crawlers = append(crawlers, service.NewMotoristCrawler(mt, cfg.Motorist, m, logger))
	}

	return crawlers, schemas, probers
}

func withReferer(cfg web.Config, referer string) web.Config {
	cfg.Referer = referer
	return cfg
}

func serveMetrics(addr string, reg *prometheus.Registry, logger *slog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		logger.Info("serving metrics", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "error", err)
		}
	}()
	return srv
}

func setupLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: logLevel}
	handler := slog.NewJSONHandler(os.Stdout, opts)
	return slog.New(handler)
}
