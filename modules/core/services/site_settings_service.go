package services

import (
	"context"

	"github.com/iota-uz/nero/modules/core/domain/entities/sitesetting"
	"github.com/iota-uz/nero/pkg/composables"
)

// SiteSettingsService serves the per-tenant key/value settings. Every call
// runs in a schema-scoped transaction, so it only works on a context carrying
// a tenant scope and can only ever touch that tenant's table.
type SiteSettingsService struct {
	repo sitesetting.Repository
}

func NewSiteSettingsService(repo sitesetting.Repository) *SiteSettingsService {
	return &SiteSettingsService{repo: repo}
}

func (s *SiteSettingsService) List(ctx context.Context) ([]*sitesetting.Setting, error) {
	return composables.InScopedTxResult(ctx, func(txCtx context.Context) ([]*sitesetting.Setting, error) {
		return s.repo.List(txCtx)
	})
}

func (s *SiteSettingsService) Get(ctx context.Context, key string) (*sitesetting.Setting, error) {
	normalized, err := sitesetting.NormalizeKey(key)
	if err != nil {
		return nil, err
	}
	return composables.InScopedTxResult(ctx, func(txCtx context.Context) (*sitesetting.Setting, error) {
		return s.repo.Get(txCtx, normalized)
	})
}

func (s *SiteSettingsService) Set(ctx context.Context, key, value string) (*sitesetting.Setting, error) {
	normalized, err := sitesetting.NormalizeKey(key)
	if err != nil {
		return nil, err
	}
	return composables.InScopedTxResult(ctx, func(txCtx context.Context) (*sitesetting.Setting, error) {
		return s.repo.Set(txCtx, normalized, value)
	})
}

func (s *SiteSettingsService) Delete(ctx context.Context, key string) error {
	normalized, err := sitesetting.NormalizeKey(key)
	if err != nil {
		return err
	}
	return composables.InScopedTx(ctx, func(txCtx context.Context) error {
		return s.repo.Delete(txCtx, normalized)
	})
}
