package persistence

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/iota-uz/nero/modules/core/domain/entities/domain"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const domainCacheKeyPrefix = "nero:domain:"

type cachedDomain struct {
	ID        string    `json:"id"`
	Host      string    `json:"host"`
	TenantID  string    `json:"tenant_id"`
	IsPrimary bool      `json:"is_primary"`
	CreatedAt time.Time `json:"created_at"`
}

// CachedDomainRepository is a read-through cache in front of the domain
// catalog. Host resolution runs on every inbound request and is read-mostly;
// writes (register/deregister) invalidate the affected hosts so a stale entry
// can never outlive a domain change by more than the delete that follows it.
type CachedDomainRepository struct {
	inner domain.Repository
	rdb   *redis.Client
	ttl   time.Duration
	log   *logrus.Logger
}

func NewCachedDomainRepository(inner domain.Repository, rdb *redis.Client, ttl time.Duration, log *logrus.Logger) domain.Repository {
	return &CachedDomainRepository{
		inner: inner,
		rdb:   rdb,
		ttl:   ttl,
		log:   log,
	}
}

func (r *CachedDomainRepository) GetByHost(ctx context.Context, host string) (*domain.Domain, error) {
	normalized, err := domain.NormalizeHost(host)
	if err != nil {
		return nil, ErrDomainNotFound
	}

	if cached, ok := r.lookup(ctx, normalized); ok {
		return cached, nil
	}

	d, err := r.inner.GetByHost(ctx, normalized)
	if err != nil {
		return nil, err
	}
	r.store(ctx, d)
	return d, nil
}

func (r *CachedDomainRepository) ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]*domain.Domain, error) {
	return r.inner.ListByTenant(ctx, tenantID)
}

func (r *CachedDomainRepository) Register(ctx context.Context, d *domain.Domain) (*domain.Domain, error) {
	registered, err := r.inner.Register(ctx, d)
	if err != nil {
		return nil, err
	}
	r.invalidate(ctx, registered.Host())
	return registered, nil
}

func (r *CachedDomainRepository) DeregisterByTenant(ctx context.Context, tenantID uuid.UUID) error {
	domains, err := r.inner.ListByTenant(ctx, tenantID)
	if err != nil {
		return err
	}
	if err := r.inner.DeregisterByTenant(ctx, tenantID); err != nil {
		return err
	}
	for _, d := range domains {
		r.invalidate(ctx, d.Host())
	}
	return nil
}

// Cache misses and redis failures fall through to the catalog; the cache is
// an optimization, never a source of truth.
func (r *CachedDomainRepository) lookup(ctx context.Context, host string) (*domain.Domain, bool) {
	raw, err := r.rdb.Get(ctx, domainCacheKeyPrefix+host).Bytes()
	if err != nil {
		return nil, false
	}

	var c cachedDomain
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, false
	}
	id, err := uuid.Parse(c.ID)
	if err != nil {
		return nil, false
	}
	tenantID, err := uuid.Parse(c.TenantID)
	if err != nil {
		return nil, false
	}

	d, err := domain.New(
		c.Host,
		tenantID,
		domain.WithID(id),
		domain.WithPrimary(c.IsPrimary),
		domain.WithCreatedAt(c.CreatedAt),
	)
	if err != nil {
		return nil, false
	}
	return d, true
}

func (r *CachedDomainRepository) store(ctx context.Context, d *domain.Domain) {
	raw, err := json.Marshal(cachedDomain{
		ID:        d.ID().String(),
		Host:      d.Host(),
		TenantID:  d.TenantID().String(),
		IsPrimary: d.IsPrimary(),
		CreatedAt: d.CreatedAt(),
	})
	if err != nil {
		return
	}
	if err := r.rdb.Set(ctx, domainCacheKeyPrefix+d.Host(), raw, r.ttl).Err(); err != nil {
		r.log.WithError(err).Warn("resolver cache unavailable")
	}
}

func (r *CachedDomainRepository) invalidate(ctx context.Context, host string) {
	if err := r.rdb.Del(ctx, domainCacheKeyPrefix+host).Err(); err != nil {
		r.log.WithError(err).Warn("resolver cache invalidation failed")
	}
}
