package tenant

import (
	"context"

	"github.com/google/uuid"
)

// Repository is the durable catalog of tenants: the source of truth for which
// schemas exist and what provisioning state each tenant is in.
type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Tenant, error)
	List(ctx context.Context) ([]*Tenant, error)
	// Create records the tenant atomically: either the full descriptor is
	// stored or nothing is. Duplicate id or schema name is a conflict.
	Create(ctx context.Context, t *Tenant) (*Tenant, error)
	// UpdateState persists a state change guarded by the expected previous
	// state, so concurrent transitions cannot interleave illegally.
	UpdateState(ctx context.Context, id uuid.UUID, from, to State) error
	Update(ctx context.Context, t *Tenant) (*Tenant, error)
	// SchemaNameExists reports whether the schema name was ever allocated,
	// including by deleted tenants. Schema names are never reused.
	SchemaNameExists(ctx context.Context, schemaName string) (bool, error)
}
