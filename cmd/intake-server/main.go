// cmd/intake-server/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"loan-intake/internal/api"
	"loan-intake/internal/common/camunda"
	"loan-intake/internal/common/config"
	"loan-intake/internal/common/logger"
	"loan-intake/internal/common/observability"
	"loan-intake/internal/intake/controller"
	"loan-intake/internal/intake/validator"
	"loan-intake/internal/scoring"

	sla "loan-intake/internal/workers/application/score-loan-application"
)

// readinessGroup is ready when every dependency is.
type readinessGroup []api.ReadinessChecker

func (g readinessGroup) Ready(ctx context.Context) error {
	for _, c := range g {
		if err := c.Ready(ctx); err != nil {
			return err
		}
	}
	return nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		boot := logger.New("info", "console")
		boot.Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	defer zapLog.Sync()

	log := logger.NewZapAdapter(zapLog)
	log.Info("starting intake server", map[string]interface{}{
		"version":     cfg.App.Version,
		"environment": cfg.App.Environment,
		"scoringUrl":  cfg.Scoring.URL(),
	})

	obs := observability.New(cfg.App.Name, log)
	defer obs.Shutdown()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scorer := scoring.NewClient(scoring.Config{
		BaseURL:   cfg.Scoring.BaseURL,
		Path:      cfg.Scoring.Path,
		ReadyPath: cfg.Scoring.ReadyPath,
		Timeout:   config.GetDuration(cfg.Scoring.Timeout),
	}, log, obs)
	v := validator.New(validator.BoundsFromConfig(cfg.Validation.Bounds))

	readiness := readinessGroup{scorer}

	// --- Optional workflow worker ---
	var jobWorker *camunda.CamundaWorker
	var zeebe *camunda.Client
	if cfg.Camunda.Enabled && config.IsWorkerEnabled(cfg, sla.TaskType) {
		zeebe, err = camunda.Connect(ctx, &camunda.ClientConfig{
			GatewayAddress:         cfg.Camunda.BrokerAddress,
			UsePlaintextConnection: true,
			ConnectionTimeout:      config.GetDuration(cfg.Camunda.RequestTimeout),
		}, log)
		if err != nil {
			zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
		}
		readiness = append(readiness, zeebe)

		wcfg := config.GetWorkerConfig(cfg, sla.TaskType)
		handler := sla.NewHandler(&sla.Config{
			Timeout: config.GetDuration(wcfg.Timeout),
		}, scorer, v, obs, log)
		jobWorker = camunda.NewWorker(zeebe.GetClient(), sla.TaskType, camunda.WorkerOptions{
			MaxJobsActive: wcfg.MaxJobsActive,
			Timeout:       config.GetDuration(wcfg.Timeout),
		}, handler.Handle, log)
	}

	// --- Form-session API ---
	store := api.NewSessionStore(config.GetDuration(cfg.Server.SessionTTL), func() (*controller.Controller, error) {
		return controller.New(controller.Options{
			Scorer:    scorer,
			Validator: v,
			Logger:    log,
			Recorder:  obs,
		})
	}, log)
	store.StartJanitor(ctx, config.GetDuration(cfg.Server.SweepInterval))

	if cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := api.NewRouter(api.NewHandlers(store, v, readiness, log), log)

	server := &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Info("http server listening", map[string]interface{}{"address": cfg.Server.Address})
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Fatal("http server failed", zap.Error(err))
		}
	}()

	var metricsServer *http.Server
	if cfg.Metrics.Enabled && cfg.Metrics.Address != "" && cfg.Metrics.Address != cfg.Server.Address {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsServer = &http.Server{Addr: cfg.Metrics.Address, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
		go func() {
			log.Info("metrics server listening", map[string]interface{}{"address": cfg.Metrics.Address})
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("metrics server failed", map[string]interface{}{"error": err})
			}
		}()
	}

	// --- Graceful Shutdown ---
	<-ctx.Done()
	log.Info("shutdown signal received", nil)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.GetDuration(cfg.Server.ShutdownTimeout))
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("http server shutdown failed", map[string]interface{}{"error": err})
	}
	if metricsServer != nil {
		_ = metricsServer.Shutdown(shutdownCtx)
	}
	if jobWorker != nil {
		jobWorker.Stop()
	}
	if zeebe != nil {
		if err := zeebe.Close(); err != nil {
			log.Error("error closing zeebe client", map[string]interface{}{"error": err})
		}
	}

	drained := make(chan struct{})
	go func() {
		store.Wait()
		close(drained)
	}()
	select {
	case <-drained:
	case <-shutdownCtx.Done():
		log.Warn("in-flight submissions still running at shutdown", nil)
	}

	log.Info("intake server stopped", nil)
}
