package domain

import (
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Domain maps one host name to the tenant whose traffic it routes. Host names
// are unique across all tenants; each tenant has exactly one primary domain.
type Domain struct {
	id        uuid.UUID
	host      string
	tenantID  uuid.UUID
	isPrimary bool
	createdAt time.Time
}

type Option func(*Domain)

func WithID(id uuid.UUID) Option {
	return func(d *Domain) {
		d.id = id
	}
}

func WithPrimary(isPrimary bool) Option {
	return func(d *Domain) {
		d.isPrimary = isPrimary
	}
}

func WithCreatedAt(createdAt time.Time) Option {
	return func(d *Domain) {
		d.createdAt = createdAt
	}
}

func New(host string, tenantID uuid.UUID, opts ...Option) (*Domain, error) {
	normalized, err := NormalizeHost(host)
	if err != nil {
		return nil, err
	}
	d := &Domain{
		id:        uuid.New(),
		host:      normalized,
		tenantID:  tenantID,
		createdAt: time.Now(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

func (d *Domain) ID() uuid.UUID {
	return d.id
}

func (d *Domain) Host() string {
	return d.host
}

func (d *Domain) TenantID() uuid.UUID {
	return d.tenantID
}

func (d *Domain) IsPrimary() bool {
	return d.isPrimary
}

func (d *Domain) CreatedAt() time.Time {
	return d.createdAt
}

// NormalizeHost lowercases the host and strips any port so that comparisons
// are case-insensitive plain DNS names.
func NormalizeHost(raw string) (string, error) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if raw == "" {
		return "", fmt.Errorf("host name must not be empty")
	}
	if h, _, err := net.SplitHostPort(raw); err == nil {
		raw = strings.ToLower(strings.TrimSpace(h))
	}
	if strings.ContainsAny(raw, " /\\?#@") {
		return "", fmt.Errorf("invalid host name %q", raw)
	}
	return raw, nil
}
