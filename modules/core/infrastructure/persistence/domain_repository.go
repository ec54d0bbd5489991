package persistence

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/iota-uz/nero/modules/core/domain/entities/domain"
	"github.com/iota-uz/nero/modules/core/infrastructure/persistence/models"
	"github.com/iota-uz/nero/pkg/composables"
)

var (
	ErrDomainNotFound = fmt.Errorf("domain not found")
	ErrDomainTaken    = fmt.Errorf("domain already registered")
	// ErrDomainAmbiguous means more than one row matched a host. The unique
	// index makes this impossible; seeing it is a data-integrity defect, not
	// a retryable error.
	ErrDomainAmbiguous = fmt.Errorf("host resolves to more than one tenant")
)

const (
	domainFindQuery = `SELECT id, host, tenant_id, is_primary, created_at FROM domains`
)

type DomainRepository struct{}

func NewDomainRepository() domain.Repository {
	return &DomainRepository{}
}

func (r *DomainRepository) GetByHost(ctx context.Context, host string) (*domain.Domain, error) {
	normalized, err := domain.NormalizeHost(host)
	if err != nil {
		return nil, ErrDomainNotFound
	}

	domains, err := r.queryDomains(ctx, domainFindQuery+" WHERE host = $1", normalized)
	if err != nil {
		return nil, err
	}

	switch len(domains) {
	case 0:
		return nil, ErrDomainNotFound
	case 1:
		return domains[0], nil
	default:
		return nil, ErrDomainAmbiguous
	}
}

func (r *DomainRepository) ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]*domain.Domain, error) {
	return r.queryDomains(
		ctx,
		domainFindQuery+" WHERE tenant_id = $1 ORDER BY is_primary DESC, host",
		tenantID.String(),
	)
}

func (r *DomainRepository) Register(ctx context.Context, d *domain.Domain) (*domain.Domain, error) {
	query := `
		INSERT INTO domains (id, host, tenant_id, is_primary, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}

	var idStr string
	if err := tx.QueryRow(
		ctx,
		query,
		d.ID().String(),
		d.Host(),
		d.TenantID().String(),
		d.IsPrimary(),
		d.CreatedAt(),
	).Scan(&idStr); err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDomainTaken
		}
		return nil, errors.Wrap(err, "failed to register domain")
	}

	return d, nil
}

func (r *DomainRepository) DeregisterByTenant(ctx context.Context, tenantID uuid.UUID) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx, `DELETE FROM domains WHERE tenant_id = $1`, tenantID.String())
	if err != nil {
		return errors.Wrap(err, "failed to deregister domains")
	}
	return nil
}

func (r *DomainRepository) queryDomains(ctx context.Context, query string, args ...interface{}) ([]*domain.Domain, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get transaction")
	}

	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to execute query")
	}
	defer rows.Close()

	var domains []*domain.Domain
	for rows.Next() {
		var d models.Domain
		if err := rows.Scan(
			&d.ID,
			&d.Host,
			&d.TenantID,
			&d.IsPrimary,
			&d.CreatedAt,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan domain row")
		}
		mapped, err := toDomainDomain(&d)
		if err != nil {
			return nil, err
		}
		domains = append(domains, mapped)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "row iteration error")
	}

	return domains, nil
}
