package memory

import (
	"sync"
	"time"

	"github.com/vladislavdragonenkov/coursepay/internal/domain"
)

// tenantRepositoryInMemory — in-memory реализация TenantRepository.
type tenantRepositoryInMemory struct {
	mu      sync.RWMutex
	tenants map[string]domain.Tenant
	// hosts: нормализованный хост → tenant id.
	hosts map[string]string
	// hostOrder сохраняет порядок привязки хостов арендатора,
	// первый привязанный считается первичным.
	hostOrder map[string][]string
	health    map[string]domain.WebhookHealth
}

// NewTenantRepository возвращает in-memory репозиторий для локальной разработки и тестов.
func NewTenantRepository() domain.TenantRepository {
	return &tenantRepositoryInMemory{
		tenants:   make(map[string]domain.Tenant),
		hosts:     make(map[string]string),
		hostOrder: make(map[string][]string),
		health:    make(map[string]domain.WebhookHealth),
	}
}

// Create сохраняет арендатора и привязывает первичный хост.
func (r *tenantRepositoryInMemory) Create(t domain.Tenant, host string) (domain.Tenant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	normalized := domain.NormalizeHost(host)
	if _, taken := r.hosts[normalized]; taken {
		return domain.Tenant{}, domain.ErrDomainTaken
	}

	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	r.tenants[t.ID] = t
	r.hosts[normalized] = t.ID
	r.hostOrder[t.ID] = append(r.hostOrder[t.ID], normalized)
	return t, nil
}

// Get возвращает арендатора или ErrTenantNotFound.
func (r *tenantRepositoryInMemory) Get(id string) (domain.Tenant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.tenants[id]
	if !ok {
		return domain.Tenant{}, domain.ErrTenantNotFound
	}
	return t, nil
}

// ResolveHost ищет арендатора по хосту: сначала реестр доменов, затем
// поле domain самого арендатора.
func (r *tenantRepositoryInMemory) ResolveHost(host string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	normalized := domain.NormalizeHost(host)
	if id, ok := r.hosts[normalized]; ok {
		return id, nil
	}
	for id, t := range r.tenants {
		if domain.NormalizeHost(t.Domain) == normalized && normalized != "" {
			return id, nil
		}
	}
	return "", domain.ErrTenantNotFound
}

// PrimaryHost возвращает первый привязанный хост арендатора
// (fallback — поле domain).
func (r *tenantRepositoryInMemory) PrimaryHost(tenantID string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if hosts := r.hostOrder[tenantID]; len(hosts) > 0 {
		return hosts[0], nil
	}
	t, ok := r.tenants[tenantID]
	if !ok {
		return "", domain.ErrTenantNotFound
	}
	if t.Domain == "" {
		return "", domain.ErrTenantHostMissing
	}
	return t.Domain, nil
}

// UpdateIntegrations обновляет секреты интеграций.
func (r *tenantRepositoryInMemory) UpdateIntegrations(t domain.Tenant) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.tenants[t.ID]
	if !ok {
		return domain.ErrTenantNotFound
	}
	current.LMSBaseURL = t.LMSBaseURL
	current.LMSToken = t.LMSToken
	current.StripeSecretKey = t.StripeSecretKey
	current.StripePublishableKey = t.StripePublishableKey
	current.StripeWebhookSecret = t.StripeWebhookSecret
	r.tenants[t.ID] = current
	return nil
}

// RecordWebhookVerified перезаписывает запись о последнем проверенном событии.
func (r *tenantRepositoryInMemory) RecordWebhookVerified(h domain.WebhookHealth) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if h.LastVerifiedAt.IsZero() {
		h.LastVerifiedAt = time.Now().UTC()
	}
	r.health[h.TenantID] = h
	return nil
}

var _ domain.TenantRepository = (*tenantRepositoryInMemory)(nil)
