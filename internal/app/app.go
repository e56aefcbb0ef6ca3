// Package app — сборка и запуск сервиса: конфигурация, проводка
// зависимостей, HTTP-серверы и graceful shutdown.
package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/coursepay/internal/health"
	"github.com/vladislavdragonenkov/coursepay/internal/httpx"
	"github.com/vladislavdragonenkov/coursepay/internal/service/catalog"
	"github.com/vladislavdragonenkov/coursepay/internal/service/checkout"
	"github.com/vladislavdragonenkov/coursepay/internal/service/fulfillment"
	"github.com/vladislavdragonenkov/coursepay/internal/service/webhook"
	"github.com/vladislavdragonenkov/coursepay/internal/version"
)

// Run собирает сервис и блокируется до отмены контекста или падения
// одного из серверов.
func Run(ctx context.Context, cfg Config) error {
	logger := log.WithField("component", "app")

	deps, err := NewDependencies(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := deps.Close(); closeErr != nil {
			logger.WithError(closeErr).Warn("storage close with error")
		}
	}()

	kafkaProducer := initKafkaProducer(cfg.KafkaBrokers, logger)
	defer closeKafka(kafkaProducer, logger)

	saga := fulfillment.New(deps.Tenants, deps.Catalog, deps.Enrollments, deps.Users, deps.LMSFactory)
	processor := webhook.NewProcessor(deps.Tenants, deps.Orders, saga)
	if kafkaProducer != nil {
		saga = saga.WithPublisher(kafkaProducer)
		processor = processor.WithPublisher(kafkaProducer)
	}

	healthHandler := health.NewHandler(version.GetVersion())
	if deps.Store != nil {
		healthHandler.RegisterChecker("postgres", health.NewSimpleChecker("postgres", deps.Store.Ping))
	}

	router := httpx.NewRouter(httpx.Deps{
		Tenants:  deps.Tenants,
		Orders:   deps.Orders,
		Checkout: checkout.New(deps.Tenants, deps.Catalog, deps.Orders, deps.Gateway),
		Catalog:  catalog.New(deps.Tenants, deps.Catalog, deps.LMSFactory),
		Webhook:  processor,
		Saga:     saga,
		Health:   healthHandler,
	})

	metricsSrv := startMetricsServer(ctx, cfg.MetricsAddr, logger, healthHandler)

	apiSrv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("HTTP сервер слушает %s", cfg.HTTPAddr)
		errCh <- apiSrv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("получен сигнал остановки, останавливаем HTTP сервер")
		shutdownHTTP(apiSrv, logger)
		shutdownHTTP(metricsSrv, logger)
		return ctx.Err()
	case err := <-errCh:
		shutdownHTTP(metricsSrv, logger)
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// startMetricsServer запускает HTTP-обработчик /metrics для Prometheus.
func startMetricsServer(ctx context.Context, addr string, logger *log.Entry, healthHandler *health.Handler) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", healthHandler.ServeHTTP)
	mux.HandleFunc("/readyz", healthHandler.ReadinessHandler)
	mux.HandleFunc("/livez", health.LivenessHandler)

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		logger.Infof("метрики доступны по адресу %s/metrics", addr)
		logger.Infof("health checks: %s/healthz, %s/livez", addr, addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Warn("metrics server failed")
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownHTTP(srv, logger)
	}()

	return srv
}

// shutdownHTTP аккуратно останавливает HTTP-сервер.
func shutdownHTTP(srv *http.Server, logger *log.Entry) {
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Warn("http shutdown with error")
	}
}
