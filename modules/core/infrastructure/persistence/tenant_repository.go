package persistence

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/iota-uz/nero/modules/core/domain/entities/tenant"
	"github.com/iota-uz/nero/modules/core/infrastructure/persistence/models"
	"github.com/iota-uz/nero/pkg/composables"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrTenantNotFound     = fmt.Errorf("tenant not found")
	ErrTenantConflict     = fmt.Errorf("tenant or schema name already exists")
	ErrStaleTenantState   = fmt.Errorf("tenant state changed concurrently")
	ErrSchemaNameConflict = fmt.Errorf("schema name already allocated")
)

const (
	tenantFindQuery = `
		SELECT id, name, schema_name, state, contact_email, notification_email,
		       primary_color, secondary_color, theme, analytics_id, created_at, updated_at
		FROM tenants`
)

type TenantRepository struct{}

func NewTenantRepository() tenant.Repository {
	return &TenantRepository{}
}

func (r *TenantRepository) GetByID(ctx context.Context, id uuid.UUID) (*tenant.Tenant, error) {
	query := tenantFindQuery + " WHERE id = $1"
	tenants, err := r.queryTenants(ctx, query, id.String())
	if err != nil {
		return nil, err
	}

	if len(tenants) == 0 {
		return nil, ErrTenantNotFound
	}

	return tenants[0], nil
}

func (r *TenantRepository) List(ctx context.Context) ([]*tenant.Tenant, error) {
	return r.queryTenants(ctx, tenantFindQuery+" ORDER BY created_at")
}

func (r *TenantRepository) Create(ctx context.Context, t *tenant.Tenant) (*tenant.Tenant, error) {
	query := `
		INSERT INTO tenants (id, name, schema_name, state, contact_email, notification_email,
		                     primary_color, secondary_color, theme, analytics_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
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
		t.ID().String(),
		t.Name(),
		t.SchemaName(),
		string(t.State()),
		nullString(t.ContactEmail()),
		nullString(t.NotificationEmail()),
		nullString(t.PrimaryColor()),
		nullString(t.SecondaryColor()),
		nullString(t.Theme()),
		nullString(t.AnalyticsID()),
		t.CreatedAt(),
		t.UpdatedAt(),
	).Scan(&idStr); err != nil {
		if isUniqueViolation(err) {
			return nil, ErrTenantConflict
		}
		return nil, errors.Wrap(err, "failed to create tenant")
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil, err
	}

	return r.GetByID(ctx, id)
}

func (r *TenantRepository) UpdateState(ctx context.Context, id uuid.UUID, from, to tenant.State) error {
	// Guarding on the previous state keeps concurrent transitions from
	// interleaving into an illegal sequence; the lock scope is one row.
	query := `UPDATE tenants SET state = $1, updated_at = now() WHERE id = $2 AND state = $3`
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}

	tag, err := tx.Exec(ctx, query, string(to), id.String(), string(from))
	if err != nil {
		return errors.Wrap(err, "failed to update tenant state")
	}
	if tag.RowsAffected() == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return ErrStaleTenantState
	}
	return nil
}

func (r *TenantRepository) Update(ctx context.Context, t *tenant.Tenant) (*tenant.Tenant, error) {
	// schema_name is immutable after creation and deliberately absent here.
	query := `
		UPDATE tenants
		SET name = $1, contact_email = $2, notification_email = $3,
		    primary_color = $4, secondary_color = $5, theme = $6, analytics_id = $7, updated_at = $8
		WHERE id = $9
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
		t.Name(),
		nullString(t.ContactEmail()),
		nullString(t.NotificationEmail()),
		nullString(t.PrimaryColor()),
		nullString(t.SecondaryColor()),
		nullString(t.Theme()),
		nullString(t.AnalyticsID()),
		t.UpdatedAt(),
		t.ID().String(),
	).Scan(&idStr); err != nil {
		return nil, errors.Wrap(err, "failed to update tenant")
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil, err
	}

	return r.GetByID(ctx, id)
}

func (r *TenantRepository) SchemaNameExists(ctx context.Context, schemaName string) (bool, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return false, err
	}

	var exists bool
	err = tx.QueryRow(
		ctx,
		`SELECT EXISTS (SELECT 1 FROM tenants WHERE schema_name = $1)`,
		schemaName,
	).Scan(&exists)
	if err != nil {
		return false, errors.Wrap(err, "failed to check schema name")
	}
	return exists, nil
}

func (r *TenantRepository) queryTenants(ctx context.Context, query string, args ...interface{}) ([]*tenant.Tenant, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get transaction")
	}

	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to execute query")
	}
	defer rows.Close()

	var tenants []*tenant.Tenant
	for rows.Next() {
		var t models.Tenant
		if err := rows.Scan(
			&t.ID,
			&t.Name,
			&t.SchemaName,
			&t.State,
			&t.ContactEmail,
			&t.NotificationEmail,
			&t.PrimaryColor,
			&t.SecondaryColor,
			&t.Theme,
			&t.AnalyticsID,
			&t.CreatedAt,
			&t.UpdatedAt,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan tenant row")
		}
		mapped, err := toDomainTenant(&t)
		if err != nil {
			return nil, err
		}
		tenants = append(tenants, mapped)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "row iteration error")
	}

	return tenants, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
