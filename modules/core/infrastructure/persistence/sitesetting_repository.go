package persistence

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"

	"github.com/iota-uz/nero/modules/core/domain/entities/sitesetting"
	"github.com/iota-uz/nero/modules/core/infrastructure/persistence/models"
	"github.com/iota-uz/nero/pkg/composables"
)

var ErrSettingNotFound = fmt.Errorf("site setting not found")

// SiteSettingRepository queries the site_settings table of the tenant schema
// bound to the context's transaction. Table names stay unqualified: the
// search_path set by the scoped transaction decides which tenant's table is
// hit, so the repository itself cannot cross schemas.
type SiteSettingRepository struct{}

func NewSiteSettingRepository() sitesetting.Repository {
	return &SiteSettingRepository{}
}

func (r *SiteSettingRepository) List(ctx context.Context) ([]*sitesetting.Setting, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := tx.Query(ctx, `SELECT key, value, updated_at FROM site_settings ORDER BY key`)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list site settings")
	}
	defer rows.Close()

	var settings []*sitesetting.Setting
	for rows.Next() {
		var m models.SiteSetting
		if err := rows.Scan(&m.Key, &m.Value, &m.UpdatedAt); err != nil {
			return nil, errors.Wrap(err, "failed to scan site setting row")
		}
		settings = append(settings, toDomainSiteSetting(&m))
	}
	return settings, rows.Err()
}

func (r *SiteSettingRepository) Get(ctx context.Context, key string) (*sitesetting.Setting, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}

	var m models.SiteSetting
	err = tx.QueryRow(
		ctx,
		`SELECT key, value, updated_at FROM site_settings WHERE key = $1`,
		key,
	).Scan(&m.Key, &m.Value, &m.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrSettingNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get site setting %q", key)
	}
	return toDomainSiteSetting(&m), nil
}

func (r *SiteSettingRepository) Set(ctx context.Context, key, value string) (*sitesetting.Setting, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}

	var m models.SiteSetting
	err = tx.QueryRow(
		ctx,
		`INSERT INTO site_settings (key, value)
		 VALUES ($1, $2)
		 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()
		 RETURNING key, value, updated_at`,
		key, nullString(value),
	).Scan(&m.Key, &m.Value, &m.UpdatedAt)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to set site setting %q", key)
	}
	return toDomainSiteSetting(&m), nil
}

func (r *SiteSettingRepository) Delete(ctx context.Context, key string) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}

	tag, err := tx.Exec(ctx, `DELETE FROM site_settings WHERE key = $1`, key)
	if err != nil {
		return errors.Wrapf(err, "failed to delete site setting %q", key)
	}
	if tag.RowsAffected() == 0 {
		return ErrSettingNotFound
	}
	return nil
}
