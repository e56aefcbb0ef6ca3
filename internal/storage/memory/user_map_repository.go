package memory

import (
	"strings"
	"sync"
	"time"

	"github.com/vladislavdragonenkov/coursepay/internal/domain"
)

type mappingKey struct {
	tenantID string
	email    string
}

// userMapRepositoryInMemory — in-memory кэш email → LMS user id.
type userMapRepositoryInMemory struct {
	mu       sync.RWMutex
	mappings map[mappingKey]domain.UserMapping
}

// NewUserMapRepository возвращает in-memory кэш пользователей LMS.
func NewUserMapRepository() domain.UserMapRepository {
	return &userMapRepositoryInMemory{
		mappings: make(map[mappingKey]domain.UserMapping),
	}
}

func (r *userMapRepositoryInMemory) Upsert(m domain.UserMapping) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	m.Email = strings.ToLower(strings.TrimSpace(m.Email))
	r.mappings[mappingKey{tenantID: m.TenantID, email: m.Email}] = m
	return nil
}

func (r *userMapRepositoryInMemory) Lookup(tenantID, email string) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	key := mappingKey{tenantID: tenantID, email: strings.ToLower(strings.TrimSpace(email))}
	m, ok := r.mappings[key]
	if !ok {
		return 0, domain.ErrUserMappingNotFound
	}
	return m.LMSUserID, nil
}

var _ domain.UserMapRepository = (*userMapRepositoryInMemory)(nil)
