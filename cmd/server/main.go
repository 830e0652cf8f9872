package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/samsungplay/CS559-IP3/internal/api"
	"github.com/samsungplay/CS559-IP3/internal/app"
	"github.com/samsungplay/CS559-IP3/internal/config"
	"github.com/samsungplay/CS559-IP3/internal/eventbus"
	"github.com/samsungplay/CS559-IP3/internal/logging"
	"github.com/samsungplay/CS559-IP3/internal/observability"
	"github.com/samsungplay/CS559-IP3/internal/rebuild"
	"github.com/samsungplay/CS559-IP3/internal/storage"
	"github.com/samsungplay/CS559-IP3/internal/world"
	"github.com/samsungplay/CS559-IP3/internal/world/block"
)

func main() {
	configPath := flag.String("config", "", "путь к YAML конфигу (по умолчанию $VOXEL_CONFIG)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("❌ Ошибка загрузки конфигурации: %v", err)
	}

	if err := initLogging(cfg.Logging); err != nil {
		log.Fatalf("❌ Ошибка инициализации логирования: %v", err)
	}
	defer logging.CloseDefaultLogger()
	defer logging.GetLoggerManager().CloseAll()

	if err := run(cfg); err != nil {
		logging.Error("❌ %v", err)
		logging.CloseDefaultLogger()
		os.Exit(1)
	}
}

func initLogging(lc config.LoggingConfig) error {
	if lc.Dir != "" {
		logging.LogDir = lc.Dir
	}
	logger, err := logging.NewLogger("server")
	if err != nil {
		return err
	}
	logger.SetLevels(logging.ParseLevel(lc.Console), logging.ParseLevel(lc.File))
	logging.SetDefaultLogger(logger)
	return nil
}

func run(cfg *config.Config) error {
	logging.Info("🌍 Запуск сервера воксельного мира (seed=%d, radius=%d)", cfg.World.Seed, cfg.World.Radius)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// === ТЕЛЕМЕТРИЯ ===
	if cfg.Telemetry.Enabled {
		shutdown, err := observability.InitTelemetry(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.Endpoint)
		if err != nil {
			logging.Warn("⚠ OpenTelemetry недоступен: %v", err)
		} else {
			defer shutdown(context.Background())
		}
	}

	promReg := prometheus.NewRegistry()
	promReg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// === ХРАНИЛИЩЕ ===
	var store *storage.WorldStorage
	var err error
	if cfg.Storage.InMemory {
		store, err = storage.NewInMemoryStorage()
	} else {
		store, err = storage.NewWorldStorage(cfg.Storage.Path)
	}
	if err != nil {
		return fmt.Errorf("хранилище: %w", err)
	}
	defer store.Close()
	logging.Info("💾 Хранилище чанков открыто (path=%s, in_memory=%v)", cfg.Storage.Path, cfg.Storage.InMemory)

	// === ШИНА СОБЫТИЙ ===
	bus, err := openBus(cfg.EventBus)
	if err != nil {
		return err
	}
	defer bus.Close()
	if _, err := eventbus.StartLoggingListener(bus); err != nil {
		logging.Warn("⚠ LoggingListener: %v", err)
	}
	busMetrics, err := eventbus.NewMetricsExporter(bus, promReg)
	if err != nil {
		return fmt.Errorf("метрики шины: %w", err)
	}
	busMetrics.Start(time.Second)
	defer busMetrics.Stop()

	// === МИР ===
	registry := block.DefaultRegistry(cfg.BlockOptions())
	w := world.New(registry, cfg.WorldOptions())

	var gen world.Generator
	if cfg.World.Flat {
		gen = world.FlatGenerator{Height: cfg.World.FlatHeight}
	} else {
		terrain := world.NewTerrainGenerator(cfg.World.Seed, cfg.World.SeaLevel)
		terrain.PlantDensity = cfg.World.PlantDensity
		gen = terrain
	}

	worldMetrics, err := observability.NewWorldMetrics(promReg)
	if err != nil {
		return fmt.Errorf("метрики мира: %w", err)
	}

	engine := app.NewEngine(w, gen, store, rebuild.NewPublisher(bus, "world"), worldMetrics, app.Options{
		TickInterval:     cfg.TickInterval(),
		AutosaveInterval: cfg.AutosaveInterval(),
		GrassTrials:      cfg.World.GrassTrials,
		Seed:             cfg.World.Seed,
	})
	if _, _, err := engine.LoadOrGenerate(cfg.World.Radius); err != nil {
		return fmt.Errorf("подготовка мира: %w", err)
	}
	engine.Start()
	defer func() {
		if err := engine.Stop(); err != nil {
			logging.Error("❌ Ошибка сохранения мира: %v", err)
		}
	}()

	// === HTTP ===
	restPort := fmt.Sprintf(":%d", cfg.Server.GetRESTPort())
	rest, err := api.NewRestServer(api.Config{
		Port:       restPort,
		Runner:     engine,
		Registry:   registry,
		Prometheus: promReg,
	})
	if err != nil {
		return fmt.Errorf("REST API: %w", err)
	}
	go func() {
		if err := rest.Start(); err != nil {
			logging.Error("❌ Ошибка REST API: %v", err)
			stop()
		}
	}()

	metricsAddr := fmt.Sprintf(":%d", cfg.Server.GetMetricsPort())
	metricsSrv := &http.Server{
		Addr:              metricsAddr,
		Handler:           promhttp.HandlerFor(promReg, promhttp.HandlerOpts{}),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logging.Info("📈 Prometheus /metrics доступен по адресу %s", metricsAddr)
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error("Ошибка Prometheus HTTP сервера: %v", err)
		}
	}()

	logging.Info("✅ Все сервисы запущены")
	logging.Info("   🌐 REST API: http://localhost%s", restPort)
	logging.Info("   ❤️  Health check: http://localhost%s/health", restPort)
	logging.Info("💡 curl -X POST http://localhost%s/api/block -d '{\"x\":0,\"y\":60,\"z\":0,\"id\":7}'", restPort)

	<-ctx.Done()
	logging.Info("📡 Получен сигнал завершения, останавливаемся...")

	// === GRACEFUL SHUTDOWN ===
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rest.Stop(shutdownCtx); err != nil {
		logging.Error("❌ Ошибка остановки REST API: %v", err)
	}
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		logging.Error("❌ Ошибка остановки сервера метрик: %v", err)
	}

	logging.Info("👋 Сервер остановлен")
	return nil
}

// openBus JetStream при заданном URL, шина в памяти иначе
func openBus(ec config.EventBusConfig) (eventbus.EventBus, error) {
	if ec.URL == "" {
		logging.Info("🚌 Шина событий в памяти")
		return eventbus.NewMemoryBus(1024), nil
	}
	bus, err := eventbus.NewJetStreamBus(ec.URL, ec.Stream, time.Duration(ec.Retention)*time.Hour)
	if err != nil {
		return nil, fmt.Errorf("JetStream %s: %w", ec.URL, err)
	}
	logging.Info("🚌 JetStream подключен: %s (stream=%s)", ec.URL, ec.Stream)
	return bus, nil
}
