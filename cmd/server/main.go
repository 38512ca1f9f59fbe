package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	appsync "github.com/klinik/backend/internal/application/sync"
	"github.com/klinik/backend/internal/infrastructure/config"
	"github.com/klinik/backend/internal/infrastructure/frappe"
	"github.com/klinik/backend/internal/infrastructure/logger"
	"github.com/klinik/backend/internal/infrastructure/persistence"
	"github.com/klinik/backend/internal/infrastructure/satusehat"
	"github.com/klinik/backend/internal/infrastructure/scheduler"
	"github.com/klinik/backend/internal/infrastructure/telemetry"
	"github.com/klinik/backend/internal/interfaces/http/handler"
	"github.com/klinik/backend/internal/interfaces/http/router"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting clinic backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	tracerProvider, err := telemetry.NewTracerProvider(context.Background(), telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.App.Name,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracing", zap.Error(err))
	}
	defer func() {
		if err := tracerProvider.Shutdown(context.Background()); err != nil {
			log.Error("Tracer provider shutdown", zap.Error(err))
		}
	}()

	db, err := persistence.NewDatabase(&cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Failed to close database", zap.Error(err))
		}
	}()

	// Remote directories
	erpCfg := frappe.NewConfig(cfg.Frappe.BaseURL, cfg.Frappe.APIKey, cfg.Frappe.APISecret)
	erpCfg.TimeoutSeconds = cfg.Frappe.TimeoutSeconds
	erp, err := frappe.NewAdapter(erpCfg)
	if err != nil {
		log.Fatal("Failed to build ERP adapter", zap.Error(err))
	}

	registryCfg := satusehat.NewConfig(cfg.SatuSehat.BaseURL, cfg.SatuSehat.AuthURL, cfg.SatuSehat.ClientID, cfg.SatuSehat.ClientSecret)
	registryCfg.KFABaseURL = cfg.SatuSehat.KFABaseURL
	registryCfg.TimeoutSeconds = cfg.SatuSehat.TimeoutSeconds
	registry, err := satusehat.NewAdapter(registryCfg)
	if err != nil {
		log.Fatal("Failed to build registry adapter", zap.Error(err))
	}

	// Application service
	service := appsync.NewService(
		persistence.NewGormPatientRepository(db.DB),
		persistence.NewGormPractitionerRepository(db.DB),
		persistence.NewGormPharmacistRepository(db.DB),
		persistence.NewGormFormularyItemRepository(db.DB),
		persistence.NewGormSyncStateRepository(db.DB),
		appsync.NewDirectories(erp, registry),
		log,
	)
	service.SetBatchSize(cfg.Sync.BatchSize)

	// Scheduler
	var (
		sched   *scheduler.ReconcileScheduler
		trigger *scheduler.IntervalTrigger
		history handler.JobHistory
	)
	if cfg.Scheduler.Enabled {
		schedCfg := scheduler.DefaultConfig()
		schedCfg.MaxConcurrentJobs = cfg.Scheduler.MaxConcurrentJobs
		schedCfg.JobTimeout = cfg.Scheduler.JobTimeout

		executor := scheduler.NewEngineExecutor(service, cfg.Sync.BatchSize, cfg.Sync.PullPageSize)
		sched, err = scheduler.NewReconcileScheduler(schedCfg, executor, log)
		if err != nil {
			log.Fatal("Failed to build scheduler", zap.Error(err))
		}
		history = sched

		triggerCfg := scheduler.DefaultIntervalTriggerConfig()
		triggerCfg.ReconcileInterval = cfg.Scheduler.Interval
		triggerCfg.DrainInterval = cfg.Scheduler.DrainInterval
		trigger = scheduler.NewIntervalTrigger(triggerCfg, sched, log)
	}

	// HTTP
	engine := router.New(
		router.Config{
			CORSAllowOrigins: cfg.HTTP.CORSAllowOrigins,
			TracingEnabled:   cfg.Telemetry.Enabled,
		},
		log,
		router.Handlers{
			Patient:     handler.NewPatientHandler(service),
			Sync:        handler.NewSyncHandler(service, history),
			Integration: handler.NewIntegrationHandler(registry),
			System:      handler.NewSystemHandler(db),
		},
	)

	server := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	if sched != nil {
		if err := sched.Start(gctx); err != nil {
			log.Fatal("Failed to start scheduler", zap.Error(err))
		}
		if err := trigger.Start(gctx); err != nil {
			log.Fatal("Failed to start interval trigger", zap.Error(err))
		}
	}

	g.Go(func() error {
		log.Info("HTTP server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		if trigger != nil {
			if err := trigger.Stop(shutdownCtx); err != nil {
				log.Error("Interval trigger stop", zap.Error(err))
			}
		}
		if sched != nil {
			if err := sched.Stop(shutdownCtx); err != nil {
				log.Error("Scheduler stop", zap.Error(err))
			}
		}
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Fatal("Server exited with error", zap.Error(err))
	}
	log.Info("Server stopped")
}
