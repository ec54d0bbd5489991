package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/iota-uz/nero/modules/core/domain/entities/domain"
	"github.com/iota-uz/nero/modules/core/domain/entities/tenant"
	"github.com/iota-uz/nero/pkg/composables"
	"github.com/iota-uz/nero/pkg/eventbus"
)

// ErrTenantUnavailable means the tenant exists but is not active. It is a
// client-facing condition, not an internal fault.
var ErrTenantUnavailable = fmt.Errorf("tenant is not available")

// TenantService exposes catalog reads, host resolution and the state
// transitions the billing collaborator drives through markState.
type TenantService struct {
	repo       tenant.Repository
	domainRepo domain.Repository
	publisher  eventbus.EventBus
}

func NewTenantService(repo tenant.Repository, domainRepo domain.Repository, publisher eventbus.EventBus) *TenantService {
	return &TenantService{
		repo:       repo,
		domainRepo: domainRepo,
		publisher:  publisher,
	}
}

func (s *TenantService) GetByID(ctx context.Context, id uuid.UUID) (*tenant.Tenant, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *TenantService) List(ctx context.Context) ([]*tenant.Tenant, error) {
	return s.repo.List(ctx)
}

// GetByHost resolves a request host to the owning tenant.
func (s *TenantService) GetByHost(ctx context.Context, host string) (*tenant.Tenant, error) {
	d, err := s.domainRepo.GetByHost(ctx, host)
	if err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, d.TenantID())
}

func (s *TenantService) Domains(ctx context.Context, tenantID uuid.UUID) ([]*domain.Domain, error) {
	return s.domainRepo.ListByTenant(ctx, tenantID)
}

// MarkState transitions the tenant to newState, enforcing the legal state
// machine. The transition is validated on the entity and persisted guarded by
// the previous state, so two concurrent callers cannot both win.
func (s *TenantService) MarkState(ctx context.Context, id uuid.UUID, newState tenant.State) (*tenant.Tenant, error) {
	var (
		updated   *tenant.Tenant
		fromState tenant.State
	)
	err := composables.InTx(ctx, func(txCtx context.Context) error {
		t, err := s.repo.GetByID(txCtx, id)
		if err != nil {
			return err
		}

		fromState = t.State()
		if err := t.Transition(newState); err != nil {
			return err
		}
		if err := s.repo.UpdateState(txCtx, id, fromState, newState); err != nil {
			return err
		}

		updated = t
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publisher.Publish(&tenant.StateChangedEvent{
		TenantID: id,
		From:     fromState,
		To:       newState,
	})
	return updated, nil
}
