package server

import (
	"context"
	"log"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	drepo "ChartFeed/internal/domain/repository"
	"ChartFeed/internal/handler/api"
	"ChartFeed/internal/repository"
	backfillsvc "ChartFeed/internal/service/backfill"
	"ChartFeed/internal/usecase"
	cachepkg "ChartFeed/pkg/cache"
	pkgch "ChartFeed/pkg/clickhouse"
	"ChartFeed/pkg/config"
	xhttp "ChartFeed/pkg/http"
	pkgkafka "ChartFeed/pkg/kafka"
	applogger "ChartFeed/pkg/logger"
	pkgqueue "ChartFeed/pkg/queue"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg         *config.Config
	collector   *usecase.CandleCollector
	consumer    *pkgkafka.Consumer
	kh          pkgkafka.MessageHandler
	chClient    *pkgch.Client
	httpServer  *xhttp.Server
	httpHandler xhttp.Handler
	chartUC     *usecase.ChartUseCase
	backfill    *backfillsvc.Client
	storage     drepo.Storage
	queue       *pkgqueue.RedisQueue
	CandleProc  *usecase.CandleProcessor
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	collector *usecase.CandleCollector,
	consumer *pkgkafka.Consumer,
	kh pkgkafka.MessageHandler,
	chClient *pkgch.Client,
) *App {
	return &App{
		cfg:       cfg,
		collector: collector,
		consumer:  consumer,
		kh:        kh,
		chClient:  chClient,
	}
}

// SetHTTPHandler allows DI to inject an HTTP handler.
func (a *App) SetHTTPHandler(h xhttp.Handler) { a.httpHandler = h }

// SetChartUseCase allows DI to inject a prebuilt chart usecase.
func (a *App) SetChartUseCase(uc *usecase.ChartUseCase) { a.chartUC = uc }

// SetBackfill wires the REST backfill client and its storage target.
func (a *App) SetBackfill(bf *backfillsvc.Client, storage drepo.Storage) {
	a.backfill = bf
	a.storage = storage
}

// SetQueue wires the Redis queue used for chart precompute jobs.
func (a *App) SetQueue(q *pkgqueue.RedisQueue) { a.queue = q }

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// init app logger (console info by default)
	l, _ := applogger.New(&applogger.Config{Level: "info", Format: "console", Output: "stdout"})

	// aggregate repeated log lines onto the queue when one is wired
	if a.queue != nil {
		l.AddCollector(&applogger.CollectionConfig{
			TimeInterval:   30 * time.Second,
			CountThreshold: 100,
			Topic:          "app_logs",
			Publisher:      a.queue,
		})
	}

	// Build the chart usecases from ClickHouse unless DI injected them
	var candleStore *repository.CHCandleStore
	if a.chClient != nil {
		candleStore = repository.NewCHCandleStore(a.chClient)
		candleStore.SetLogger(l)
	}
	if a.chartUC == nil && candleStore != nil {
		uc := usecase.NewChartUseCase(candleStore)
		uc.SetLogger(l)
		uc.SetCache(a.buildChartCache(l), a.cfg.Charts.CacheTTL)
		a.chartUC = uc
	}

	// Setup Echo HTTP server using pkg/http and register routes via handler
	var httpHandler xhttp.Handler
	if a.httpHandler != nil {
		httpHandler = a.httpHandler
	} else if a.chartUC != nil {
		h := api.NewChartsEchoHandler(l, a.chartUC)
		if candleStore != nil {
			h.SetCandlesUseCase(usecase.NewCandlesUseCase(candleStore))
		}
		httpHandler = h
	}

	a.httpServer = xhttp.NewServer(httpHandler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
	)

	// Start collector
	go func() {
		if err := a.collector.Start(ctx); err != nil {
			l.Error("collector error", applogger.Error(err))
		}
	}()
	l.Info("collector started", applogger.Strings("symbols", a.cfg.Feed.Symbols))

	// Start consumer if configured
	if a.consumer != nil && a.kh != nil {
		a.consumer.RegisterHandler(a.kh)
		go func() {
			if err := a.consumer.Start(); err != nil {
				l.Error("kafka consumer error", applogger.Error(err))
			}
		}()
		l.Info("kafka consumer started", applogger.String("topic", a.kh.Topic()))
	}

	// One-shot backfill of the recent window behind the live feed
	if a.backfill != nil && a.storage != nil && a.cfg.Backfill.Enabled {
		go func() {
			if err := a.backfill.Run(ctx, a.storage, a.cfg.Feed.Symbols, a.cfg.Backfill.Resolution, a.cfg.Backfill.Window); err != nil {
				l.Error("backfill error", applogger.Error(err))
			}
		}()
		l.Info("backfill started", applogger.String("window", a.cfg.Backfill.Window.String()))
	}

	// Precompute loop: enqueue a cache-warming job per symbol on a ticker
	if a.queue != nil && a.chartUC != nil {
		a.queue.RegisterJob(usecase.NewChartPrecomputeJob(a.chartUC, l))
		a.queue.RegisterJob(usecase.NewLogSinkJob(l))
		if err := a.queue.Start(); err != nil {
			l.Error("queue start error", applogger.Error(err))
		} else if a.cfg.Charts.Precompute.Enabled {
			go a.precomputeLoop(ctx, l)
			l.Info("chart precompute started",
				applogger.String("interval", a.cfg.Charts.Precompute.Interval.String()))
		}
	}

	// Start HTTP server
	if err := a.httpServer.Start(); err != nil {
		l.Error("http server start error", applogger.Error(err))
		return err
	}

	// Wait for interrupt
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	l.Info("shutdown signal received")
	return a.shutdown(ctx)
}

// buildChartCache returns a layered memory+Redis cache when Redis is
// configured, falling back to the in-process cache otherwise.
func (a *App) buildChartCache(l *applogger.Logger) cachepkg.Service {
	if !a.cfg.Charts.Redis.Enabled {
		return cachepkg.NewMemoryCache()
	}

	host, port := "localhost", 6379
	if h, p, err := net.SplitHostPort(a.cfg.Charts.Redis.Addr); err == nil {
		host = h
		if n, err := strconv.Atoi(p); err == nil {
			port = n
		}
	}

	rc, err := cachepkg.NewRedisCache(
		cachepkg.WithRedisHost(host),
		cachepkg.WithRedisPort(port),
		cachepkg.WithRedisPassword(a.cfg.Charts.Redis.Password),
		cachepkg.WithRedisDB(a.cfg.Charts.Redis.DB),
		cachepkg.WithRedisPrefix("chartfeed:charts"),
	)
	if err != nil {
		l.Warn("chart redis cache unavailable, using memory cache", applogger.Error(err))
		return cachepkg.NewMemoryCache()
	}
	return cachepkg.NewLayeredCache(rc)
}

func (a *App) precomputeLoop(ctx context.Context, l *applogger.Logger) {
	interval := a.cfg.Charts.Precompute.Interval
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, sym := range a.cfg.Feed.Symbols {
				err := a.queue.PublishMessage(ctx, "chart_precompute", usecase.ChartPrecomputePayload{
					Symbol:   sym,
					N:        a.cfg.Charts.Precompute.N,
					TF:       a.cfg.Charts.Precompute.TF,
					Reversal: a.cfg.Charts.Precompute.Reversal,
				})
				if err != nil {
					l.Warn("precompute enqueue error",
						applogger.String("symbol", sym), applogger.Error(err))
				}
			}
		}
	}
}

// shutdown gracefully stops all services.
func (a *App) shutdown(ctx context.Context) error {
	// best-effort logging via stdout
	l, err := applogger.New(&applogger.Config{Level: "info", Format: "console", Output: "stdout"})
	if err != nil {
		log.Printf("failed to create logger: %v", err)
		return err
	}
	l.Info("shutting down...")

	// Stop collector (pipeline + stream)
	if err := a.collector.Shutdown(ctx); err != nil {
		l.Warn("collector stop error", applogger.Error(err))
	}

	// Shutdown HTTP server
	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		l.Error("http shutdown error", applogger.Error(err))
	}

	// Stop precompute queue
	if a.queue != nil {
		if err := a.queue.Stop(shutdownCtx); err != nil {
			l.Warn("queue stop error", applogger.Error(err))
		}
	}

	// Close infrastructure clients
	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			l.Warn("clickhouse close error", applogger.Error(err))
		}
	}

	// Stop consumer
	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			l.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}

	// Close candle processor resources (publisher/storage)
	if a.CandleProc != nil {
		a.CandleProc.Close()
	}

	l.Info("shutdown complete")
	return nil
}
