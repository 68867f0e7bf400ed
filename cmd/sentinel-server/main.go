package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/BrandonDHaskell/sentinel/internal/broadcast"
	"github.com/BrandonDHaskell/sentinel/internal/config"
	"github.com/BrandonDHaskell/sentinel/internal/db"
	"github.com/BrandonDHaskell/sentinel/internal/grpcapi"
	"github.com/BrandonDHaskell/sentinel/internal/httpapi"
	"github.com/BrandonDHaskell/sentinel/internal/sentinel/service"
	"github.com/BrandonDHaskell/sentinel/internal/sentinel/store"
	"github.com/BrandonDHaskell/sentinel/internal/sentinel/store/sqlite"
	"github.com/BrandonDHaskell/sentinel/internal/stream/cvcapture"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config", "error", err)
		os.Exit(1)
	}
	logger := newLogger(cfg).With("app", "sentinel-server")
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Storage
	conn, err := db.Open(ctx, db.Config{Path: cfg.DBPath, Env: cfg.Env})
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := db.Migrate(ctx, conn); err != nil {
		return err
	}
	if cfg.Env == "dev" {
		if err := db.SeedDev(ctx, conn); err != nil {
			return err
		}
	}

	writer := db.NewWorker(conn)
	defer writer.Close()

	registryStore := sqlite.NewRegistryStore(conn, writer)
	accessLog := sqlite.NewAccessLogStore(conn, writer)
	detections := sqlite.NewPlateDetectionStore(conn, writer)

	if cfg.SeedFile != "" {
		recs, err := store.LoadSeed(cfg.SeedFile)
		if err != nil {
			return err
		}
		if err := store.ApplySeed(ctx, registryStore, recs); err != nil {
			return err
		}
		logger.Info("registry seed applied", "file", cfg.SeedFile, "identities", len(recs))
	}

	// Recognizers
	rec := newRecognizers(cfg, logger)
	defer rec.Close()

	// Live fan-out
	hub := broadcast.NewHub()
	defer hub.Close()

	if cfg.MQTT.Broker != "" {
		fwd := broadcast.NewMQTTForwarder(broadcast.MQTTConfig{
			Broker:      cfg.MQTT.Broker,
			ClientID:    cfg.MQTT.ClientID,
			TopicPrefix: cfg.MQTT.TopicPrefix,
			Username:    cfg.MQTT.Username,
			Password:    cfg.MQTT.Password,
		}, logger)
		if err := fwd.Connect(ctx); err != nil {
			logger.Warn("mqtt forwarding disabled", "broker", cfg.MQTT.Broker, "error", err)
		} else {
			defer fwd.Disconnect()
			go fwd.Run(ctx, hub.Subscribe(broadcast.DefaultBuffer))
		}
	}

	// Services
	registry := service.NewRegistry(registryStore, rec.faceLabels)
	recorder := service.NewRecorder(accessLog, hub, logger)

	debounce := service.DebounceConfig{
		CooldownFrames: cfg.Detection.CooldownFrames,
		ResetEvery:     cfg.Detection.ResetEvery,
	}
	engine := service.NewEngine(service.EngineConfig{
		SampleEvery: cfg.Detection.SampleEvery,
		Plate: service.ChannelConfig{
			Recognizer: rec.plate,
			Timeout:    cfg.Plate.Timeout,
			Debounce:   debounce,
		},
		Face: service.ChannelConfig{
			Recognizer: rec.face,
			Timeout:    cfg.Face.Timeout,
			Debounce:   debounce,
		},
		UnknownFaceAlertEvery: cfg.Detection.UnknownFaceAlertEvery,
	}, service.EngineDeps{
		Registry:   registry,
		Recorder:   recorder,
		Detections: detections,
		Logger:     logger,
	})

	controller := service.NewStreamController(ctx, engine, cvcapture.Opener(cvcapture.Config{
		Devices:  cfg.Camera.Devices,
		MaxWidth: cfg.Camera.MaxWidth,
		Logger:   logger,
	}), logger)

	scanSvc := service.NewScanService(registry, recorder)
	queries := service.NewQueryService(accessLog, registry)

	pruner := service.NewDetectionPruner(detections, service.PrunerConfig{
		RetentionDays: cfg.DetectionRetentionDays,
		Interval:      time.Duration(cfg.PruneIntervalHours) * time.Hour,
	}, logger)
	pruner.Start(ctx)
	defer pruner.Stop()

	// HTTP
	srv := httpapi.NewServer(httpapi.Dependencies{
		Logger:     logger,
		Addr:       cfg.HTTPAddr,
		Scan:       scanSvc,
		Queries:    queries,
		Controller: controller,
		Hub:        hub,
	})

	go func() {
		logger.Info("http listening", "addr", cfg.HTTPAddr)
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	// gRPC
	var grpcSrv *grpcapi.Server
	if cfg.GRPCAddr != "" {
		grpcSrv = grpcapi.NewServer(grpcapi.Dependencies{
			Logger: logger,
			Addr:   cfg.GRPCAddr,
			Scan:   scanSvc,
			Hub:    hub,
		})
		go func() {
			logger.Info("grpc listening", "addr", cfg.GRPCAddr)
			if err := grpcSrv.Start(); err != nil {
				logger.Error("grpc server error", "error", err)
				stop()
			}
		}()
	}

	if cfg.Camera.AutoStart {
		if err := controller.Start(ctx); err != nil {
			logger.Warn("camera autostart failed", "error", err)
		}
	}

	<-ctx.Done()
	logger.Info("shutting down")

	if err := controller.Stop(); err != nil && !errors.Is(err, service.ErrNotRunning) {
		logger.Warn("camera stop", "error", err)
	}
	controller.Wait()
	// Ends websocket and gRPC watch streams so graceful shutdown can finish.
	hub.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	if grpcSrv != nil {
		_ = grpcSrv.Shutdown(shutdownCtx)
	}
	return nil
}

func newLogger(cfg config.Config) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
