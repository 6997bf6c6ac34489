package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"ici-report/internal/assets"
	"ici-report/internal/common/database"
	"ici-report/internal/common/logger"
	mqttcommon "ici-report/internal/common/mqtt"
	rediscommon "ici-report/internal/common/redis"
	"ici-report/internal/config"
	"ici-report/internal/consumer"
	httpapi "ici-report/internal/http"
	mqtttrigger "ici-report/internal/mqtt"
	"ici-report/internal/repository"
	"ici-report/internal/service"
	"ici-report/internal/storage"
	"ici-report/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "ici-report")
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Record store: Postgres when reachable, otherwise the JSON fixture.
	var db *sql.DB
	if cfg.DBEnabled {
		if d, err := database.NewPostgresDB(ctx, &cfg.Database); err == nil {
			db = d
			log.Info("DB enabled for ici-report")
		} else {
			log.Warn("DB enabled but connection failed, falling back to fixture", zap.Error(err))
		}
	}
	var records *repository.Store
	if db != nil {
		if cfg.ApplySchema {
			if err := repository.ApplySchema(ctx, db); err != nil {
				log.Fatal("Failed to apply schema", zap.Error(err))
			}
		}
		records = repository.NewPostgresStore(db)
	} else {
		fixture, err := repository.LoadFixture(cfg.FixturePath)
		if err != nil {
			log.Warn("No fixture loaded, record store is empty", zap.String("path", cfg.FixturePath), zap.Error(err))
		}
		records = repository.NewMemoryStore(fixture).Store()
	}

	bucket, err := storage.OpenBucket(ctx, cfg.Storage.BucketURL)
	if err != nil {
		log.Fatal("Failed to open bucket", zap.Error(err))
	}
	docs := storage.NewDocumentStore(bucket, cfg.Storage.Prefix, cfg.Storage.PublicBaseURL, log)

	prefetcher := assets.NewPrefetcher(assets.Options{
		BatchSize: cfg.Assets.BatchSize,
		Timeout:   cfg.Assets.Timeout(),
		MaxPixels: cfg.Assets.MaxPixels,
	}, log)
	reports := service.NewReportService(records, prefetcher, docs, cfg.Report.Location(), log)

	// Async jobs need Redis for both the queue and the status KV.
	var (
		redisClient *redis.Client
		jobs        service.JobService
		jobConsumer *consumer.JobConsumer
	)
	if cfg.Jobs.Enabled {
		redisClient = rediscommon.NewRedisClient(&cfg.Redis)
		if err := rediscommon.Ping(ctx, redisClient); err != nil {
			log.Warn("Redis unavailable, async jobs disabled", zap.Error(err))
			_ = redisClient.Close()
			redisClient = nil
		} else {
			jobStore := store.NewJobStore(store.NewRedisKV(redisClient), cfg.Jobs.TTL())
			jobs = service.NewJobService(reports, jobStore, service.NewStreamQueue(redisClient, cfg.Jobs.Stream), log)
			jobConsumer = consumer.NewJobConsumer(consumer.Options{
				Stream:    cfg.Jobs.Stream,
				Group:     cfg.Jobs.Group,
				Consumer:  cfg.Jobs.Consumer,
				BatchSize: cfg.Jobs.BatchSize,
			}, redisClient, jobs, log)
		}
	}

	var (
		mqttClient *mqttcommon.Client
		trigger    *mqtttrigger.Trigger
	)
	if cfg.MQTT.Enabled {
		if c, err := mqttcommon.NewClient(&cfg.MQTT.MQTTConfig, log); err == nil {
			mqttClient = c
			trigger = mqtttrigger.NewTrigger(c, reports, cfg.MQTT.RequestTopic, cfg.MQTT.ReplyTopic, cfg.MQTT.QoS, log)
			if err := trigger.Start(ctx); err != nil {
				log.Error("Failed to start MQTT trigger", zap.Error(err))
				trigger = nil
			}
		} else {
			log.Warn("MQTT enabled but connection failed, trigger disabled", zap.Error(err))
		}
	}

	router := httpapi.NewRouter(log)
	router.RegisterHealthRoutes()
	router.RegisterServiceReportRoutes(httpapi.NewServiceReportHandler(reports, jobs, log))
	router.RegisterFileRoutes(httpapi.NewFileHandler(docs, log))

	srv := service.NewServer(cfg.HTTP.Addr, router, log)

	errCh := make(chan error, 2)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	consumerDone := make(chan struct{})
	if jobConsumer != nil {
		go func() {
			defer close(consumerDone)
			if err := jobConsumer.Start(ctx); err != nil {
				errCh <- err
			}
		}()
	} else {
		close(consumerDone)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("Shutting down", zap.String("signal", sig.String()))
	case err := <-errCh:
		log.Error("Fatal component error, shutting down", zap.Error(err))
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = srv.Stop(shutdownCtx)
	if trigger != nil {
		trigger.Stop()
	}
	if mqttClient != nil {
		mqttClient.Disconnect()
	}
	<-consumerDone
	_ = rediscommon.Close(redisClient)
	_ = bucket.Close()
	_ = database.Close(db)
}
