package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/naturalnetworks/sungrow-bridge/bridge"
	"github.com/naturalnetworks/sungrow-bridge/config"
	"github.com/naturalnetworks/sungrow-bridge/heartbeat"
	"github.com/naturalnetworks/sungrow-bridge/logger"
	"github.com/naturalnetworks/sungrow-bridge/metrics"
	"github.com/naturalnetworks/sungrow-bridge/mqtt"
	"github.com/naturalnetworks/sungrow-bridge/sungrow"
	"github.com/naturalnetworks/sungrow-bridge/transformer"
	"github.com/naturalnetworks/sungrow-bridge/validator"
)

func main() {
	configPath := "config.yaml"

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if err := logger.InitFromConfig(cfg.Logger.Level, cfg.Logger.FilePath,
		cfg.Logger.MaxSize, cfg.Logger.MaxBackups, cfg.Logger.Console); err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer logger.Close()

	met := metrics.New()
	go func() {
		http.Handle("/metrics", promhttp.Handler())
		if err := http.ListenAndServe(cfg.Metrics.Addr, nil); err != nil {
			logger.Error("metrics listener failed: %v", err)
		}
	}()

	source, err := sungrow.NewClient(cfg.Sungrow)
	if err != nil {
		log.Fatalf("failed to initialize inverter client: %v", err)
	}

	publisher, err := mqtt.NewPublisher(cfg.MQTT)
	if err != nil {
		log.Fatalf("failed to initialize MQTT publisher: %v", err)
	}

	controller := bridge.NewController(source, publisher, met, cfg.Bridge.SensorID, cfg.MQTT.Topic)

	if len(cfg.Validators) > 0 {
		controller.SetValidator(validator.New(cfg.Validators))
	}

	hook, err := transformer.New(cfg.Transform)
	if err != nil {
		log.Fatalf("failed to initialize transform script: %v", err)
	}
	if hook != nil {
		controller.SetTransformer(hook)

		// Only the transform script is hot-reloadable; the bridge surface
		// (device, bus, identity, interval) stays fixed until restart.
		err = config.WatchConfig(configPath, func(newCfg *config.Config) error {
			return hook.Reload(newCfg.Transform)
		})
		if err != nil {
			logger.Warn("failed to watch config file: %v", err)
		}
	}

	var notifier bridge.HeartbeatNotifier = heartbeat.Noop{}
	if cfg.Bridge.HeartbeatAddr != "" {
		notifier = heartbeat.NewUDP(cfg.Bridge.HeartbeatAddr)
	}

	interval := time.Duration(cfg.Bridge.IntervalSeconds) * time.Second
	scheduler := bridge.NewScheduler(controller, notifier, interval)

	logger.Info("sungrow bridge started: %s -> %s:%d %s",
		cfg.Sungrow.Host, cfg.MQTT.Host, cfg.MQTT.Port, cfg.MQTT.Topic)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	scheduler.Run(ctx)
	logger.Info("service stopped")
}
