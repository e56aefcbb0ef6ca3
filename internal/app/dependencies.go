package app

import (
	"context"
	"net/http"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/coursepay/internal/domain"
	"github.com/vladislavdragonenkov/coursepay/internal/lms"
	"github.com/vladislavdragonenkov/coursepay/internal/payment"
	"github.com/vladislavdragonenkov/coursepay/internal/storage/memory"
	"github.com/vladislavdragonenkov/coursepay/internal/storage/postgres"
)

// Dependencies содержит все зависимости приложения.
type Dependencies struct {
	Tenants     domain.TenantRepository
	Catalog     domain.CatalogRepository
	Orders      domain.OrderRepository
	Enrollments domain.EnrollmentRepository
	Users       domain.UserMapRepository

	Gateway    domain.PaymentGateway
	LMSFactory domain.LMSFactory

	// Store не nil только в postgres-режиме; используется для
	// health-проверки и закрытия пула на остановке.
	Store  *postgres.Store
	Logger *log.Entry
}

// NewDependencies собирает зависимости приложения. Непустой PostgresDSN
// включает постоянное хранилище, иначе остаётся in-memory (dev/demo).
func NewDependencies(ctx context.Context, cfg Config, logger *log.Entry) (*Dependencies, error) {
	if logger == nil {
		logger = log.WithField("component", "app")
	}

	deps := &Dependencies{
		Gateway:    payment.NewStripeGateway(),
		LMSFactory: lms.Factory(lms.WithHTTPClient(&http.Client{Timeout: cfg.LMSTimeout})),
		Logger:     logger,
	}

	if cfg.PostgresDSN == "" {
		logger.Warn("postgres dsn is not set, using in-memory storage")
		deps.Tenants = memory.NewTenantRepository()
		deps.Catalog = memory.NewCatalogRepository()
		deps.Orders = memory.NewOrderRepository()
		deps.Enrollments = memory.NewEnrollmentRepository()
		deps.Users = memory.NewUserMapRepository()
		return deps, nil
	}

	store, err := postgres.Open(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, err
	}
	if err := store.EnsureSchema(ctx); err != nil {
		_ = store.Close()
		return nil, err
	}

	deps.Store = store
	deps.Tenants = postgres.NewTenantRepository(store)
	deps.Catalog = postgres.NewCatalogRepository(store)
	deps.Orders = postgres.NewOrderRepository(store)
	deps.Enrollments = postgres.NewEnrollmentRepository(store)
	deps.Users = postgres.NewUserMapRepository(store)
	logger.Info("postgres storage initialized")
	return deps, nil
}

// Close освобождает ресурсы хранилища.
func (d *Dependencies) Close() error {
	if d.Store != nil {
		return d.Store.Close()
	}
	return nil
}
