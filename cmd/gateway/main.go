package main

import (
	"context"
	"flag"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	cfgpkg "github.com/taoyao-code/power-gateway/internal/config"
	"github.com/taoyao-code/power-gateway/internal/engine"
	"github.com/taoyao-code/power-gateway/internal/httpserver"
	"github.com/taoyao-code/power-gateway/internal/ingest"
	"github.com/taoyao-code/power-gateway/internal/logging"
	"github.com/taoyao-code/power-gateway/internal/metrics"
	"github.com/taoyao-code/power-gateway/internal/migrate"
	"github.com/taoyao-code/power-gateway/internal/poller"
	"github.com/taoyao-code/power-gateway/internal/protocol/ydt/registry"
	"github.com/taoyao-code/power-gateway/internal/storage/pg"
	rediscache "github.com/taoyao-code/power-gateway/internal/storage/redis"
	"github.com/taoyao-code/power-gateway/internal/transport"
)

func main() {
	configPath := flag.String("config", "", "配置文件路径（默认 configs/example.yaml 或 POWER_CONFIG）")
	migrationsDir := flag.String("migrations", "migrations", "SQL迁移目录")
	flag.Parse()

	// 1) 加载配置
	cfg, err := cfgpkg.Load(*configPath)
	if err != nil {
		panic(err)
	}

	// 2) 初始化日志
	logger, err := logging.InitLogger(cfg.Logging)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)
	log := zap.L()

	// 3) 命令表
	table := registry.DefaultTable()
	if cfg.CommandTable != "" {
		table, err = registry.LoadTable(cfg.CommandTable)
		if err != nil {
			log.Fatal("load command table", zap.Error(err))
		}
	}
	reg, err := registry.Build(table)
	if err != nil {
		log.Fatal("build command registry", zap.Error(err))
	}
	log.Info("command registry ready", zap.Int("commands", reg.Len()))

	// 4) 指标
	promReg := metrics.NewRegistry()
	appMetrics := metrics.NewAppMetrics(promReg)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 5) 采样落地端
	sinks := []ingest.Sink{ingest.NewLogSink(log)}
	var latestStore httpserver.LatestStore
	if cfg.Redis.Enabled {
		client, err := rediscache.NewClient(cfg.Redis)
		if err != nil {
			log.Fatal("redis connect", zap.Error(err))
		}
		defer func() { _ = client.Close() }()
		cache := rediscache.NewLatestCache(client, cfg.Redis.LatestTTL)
		sinks = append(sinks, cache)
		latestStore = cache
	}
	var historyStore httpserver.HistoryStore
	if cfg.Database.Enabled {
		pool, err := pg.NewPool(rootCtx, cfg.Database, log)
		if err != nil {
			log.Fatal("postgres connect", zap.Error(err))
		}
		defer pool.Close()
		if err := (migrate.Runner{Dir: *migrationsDir}).Up(rootCtx, pool); err != nil {
			log.Fatal("apply migrations", zap.Error(err))
		}
		history := pg.NewHistorySink(pool)
		sinks = append(sinks, history)
		historyStore = history
	}
	fan := ingest.NewFanOut(log, sinks...)

	// 6) 每台设备：串口 + 引擎 + 轮询器
	fleet := poller.NewFleet()
	for _, dev := range cfg.Devices {
		tr := transport.New(dev.Serial, log.With(zap.String("device", dev.Name)))
		if err := tr.Connect(); err != nil {
			// 串口暂时不可用不挡启动，传输层会按周期重连
			log.Warn("serial not yet available", zap.String("device", dev.Name), zap.Error(err))
		}
		defer func(tr *transport.Serial) { _ = tr.Close() }(tr)

		eng := engine.New(dev.Address, reg, tr,
			engine.WithTimeout(dev.RequestTimeout),
			engine.WithLogger(log.With(zap.String("device", dev.Name))))
		fleet.Add(poller.New(dev, eng, fan, appMetrics, log))
	}
	if len(cfg.Devices) == 0 {
		log.Warn("no devices configured, serving HTTP only")
	}

	// 7) HTTP 服务
	var metricsHandler = metrics.Handler(promReg)
	if !cfg.Metrics.Enable {
		metricsHandler = nil
	}
	ready := func() bool { return len(cfg.Devices) == 0 || fleet.AnyOnline() }
	httpSrv := httpserver.New(cfg.HTTP, cfg.Metrics.Path, metricsHandler,
		ready, latestStore, historyStore)
	go func() {
		if err := httpSrv.Start(); err != nil {
			log.Error("http server error", zap.Error(err))
		}
	}()

	log.Info("power gateway started",
		zap.String("env", cfg.App.Env),
		zap.Int("devices", len(cfg.Devices)))

	// 8) 轮询直到收到退出信号
	if len(cfg.Devices) > 0 {
		fleet.Run(rootCtx)
	} else {
		<-rootCtx.Done()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = httpSrv.Shutdown(ctx)
	log.Info("power gateway stopped")
}
