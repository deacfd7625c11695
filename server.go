package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/bematende/bematende-backend/config"
	managementControllers "github.com/bematende/bematende-backend/internal/management/controllers"
	managementServices "github.com/bematende/bematende-backend/internal/management/services"
	monitorControllers "github.com/bematende/bematende-backend/internal/monitor/controllers"
	monitorServices "github.com/bematende/bematende-backend/internal/monitor/services"
	queueControllers "github.com/bematende/bematende-backend/internal/queue/controllers"
	"github.com/bematende/bematende-backend/internal/queue/repository"
	queueServices "github.com/bematende/bematende-backend/internal/queue/services"
	"github.com/bematende/bematende-backend/internal/routes"
	"github.com/bematende/bematende-backend/pkg/clock"
	"github.com/bematende/bematende-backend/pkg/logger"
	"github.com/bematende/bematende-backend/pkg/metrics"
	"github.com/bematende/bematende-backend/pkg/notify"
	"github.com/bematende/bematende-backend/pkg/storage/blob"
	"github.com/bematende/bematende-backend/pkg/storage/kv"
	"github.com/bematende/bematende-backend/pkg/storage/schema"
	"github.com/bematende/bematende-backend/ws"
)

func runServer(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg := config.LoadConfig()
	log := logger.New(cfg.AppEnv, cfg.LogLevel)

	if cfg.JWTSecret == "" {
		if !cfg.IsDev() {
			return errors.New("JWT_SECRET is required outside development")
		}
		cfg.JWTSecret = "bematende-dev-secret"
		log.Warn().Msg("JWT_SECRET not set, using development secret")
	}

	db, dialect, err := openDB(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := schema.Migrate(ctx, db, dialect); err != nil {
		return err
	}
	checks := map[string]routes.Pinger{"db": db}

	var patients repository.PatientRepository = repository.NewSQLRepository(db)
	if cfg.DBDriver == "rest" {
		patients = repository.NewRESTRepository(cfg.RestURL, 10*time.Second)
		log.Info().Str("url", cfg.RestURL).Msg("patient records served by REST backend")
	}

	var store kv.Store = kv.NewMemory()
	if cfg.RedisAddr != "" {
		rdb := kv.NewRedis(kv.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Prefix:   "bematende:",
		})
		defer rdb.Close()
		store = rdb
		checks["redis"] = rdb
	}

	m := metrics.New()
	clk := clock.NewSystem()

	var notifiers []monitorServices.Notifier
	if cfg.MQTTBroker != "" {
		client, err := notify.Connect(notify.MQTTConfig{
			Broker:   cfg.MQTTBroker,
			ClientID: cfg.MQTTClientID,
			Username: cfg.MQTTUsername,
			Password: cfg.MQTTPassword,
		})
		if err != nil {
			log.Warn().Err(err).Msg("MQTT disabled")
		} else {
			defer client.Close()
			notifiers = append(notifiers, monitorServices.NewMQTTNotifier(client, cfg.MQTTTopicPrefix))
		}
	}

	var slides monitorServices.SlideLister
	if cfg.SlidesBucket != "" {
		s, err := blob.New(ctx, blob.Config{
			Bucket:          cfg.SlidesBucket,
			Region:          cfg.SlidesRegion,
			Endpoint:        cfg.SlidesEndpoint,
			PathStyle:       cfg.SlidesPathStyle,
			AccessKeyID:     cfg.SlidesAccessKey,
			SecretAccessKey: cfg.SlidesSecretKey,
			PublicBaseURL:   cfg.SlidesPublicURL,
		})
		if err != nil {
			log.Warn().Err(err).Msg("campaign images disabled")
		} else {
			slides = s
		}
	}

	hub := ws.NewHub(log)
	channel := monitorServices.NewCallChannel(store, clk, m, log, notifiers...)
	if err := channel.Restore(ctx); err != nil {
		log.Warn().Err(err).Msg("failed to restore call history")
	}
	display := monitorServices.NewDisplay(channel, store, slides, hub, m, log, monitorServices.DisplayConfig{
		PollInterval:     cfg.MonitorPollInterval,
		SlideInterval:    cfg.MonitorSlideInterval,
		AutoClear:        cfg.MonitorAutoClear,
		AutoClearSeconds: cfg.MonitorAutoClearSecs,
		SlidePrefix:      cfg.SlidesPrefix,
	})
	display.Load(ctx)

	facilities := managementServices.NewFacilityService(db, cfg.DefaultFacility, log)
	users := managementServices.NewUserService(db, facilities, clk, cfg.JWTSecret, cfg.JWTTTL, log)
	if created, err := users.EnsureAdmin(ctx, cfg.AdminUsername, cfg.AdminPassword); err != nil {
		return fmt.Errorf("seed admin: %w", err)
	} else if created {
		log.Info().Str("username", cfg.AdminUsername).Msg("admin account created")
	}

	patientStore := queueServices.NewPatientStore(patients, clk, log)
	view := queueServices.NewQueueView(patientStore, store, clk, m, log)
	transitions := queueServices.NewTransitionService(patientStore, channel, facilities, m, log)

	e := echo.New()
	routes.Init(e, routes.Deps{
		Logger:     log,
		JWTSecret:  cfg.JWTSecret,
		Queue:      queueControllers.NewQueueController(patientStore, view, transitions),
		Monitor:    monitorControllers.NewMonitorController(channel, display),
		Auth:       managementControllers.NewAuthController(users),
		Facilities: managementControllers.NewFacilityController(facilities),
		Users:      managementControllers.NewUserController(users),
		Hub:        hub,
		Metrics:    m.Handler(),
		Checks:     checks,
	})

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go hub.Run(runCtx)
	go display.Run(runCtx)

	return serve(ctx, e, ":"+cfg.Port, log)
}

// serve menjalankan echo sampai ctx selesai lalu shutdown dengan batas waktu.
func serve(ctx context.Context, e *echo.Echo, addr string, log zerolog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("server starting")
		errCh <- e.Start(addr)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
