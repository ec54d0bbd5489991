package domain_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/iota-uz/nero/modules/core/domain/entities/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeHost(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"acme.example.com", "acme.example.com", true},
		{"ACME.Example.COM", "acme.example.com", true},
		{"  acme.example.com  ", "acme.example.com", true},
		{"acme.example.com:8080", "acme.example.com", true},
		{"localhost:3200", "localhost", true},
		{"", "", false},
		{"   ", "", false},
		{"acme.example.com/path", "", false},
		{"user@acme.example.com", "", false},
	}
	for _, tc := range cases {
		got, err := domain.NormalizeHost(tc.in)
		if tc.ok {
			require.NoError(t, err, "input %q", tc.in)
			assert.Equal(t, tc.want, got)
		} else {
			require.Error(t, err, "input %q", tc.in)
		}
	}
}

func TestNew_NormalizesHost(t *testing.T) {
	t.Parallel()

	tenantID := uuid.New()
	d, err := domain.New("ACME.Example.com:443", tenantID, domain.WithPrimary(true))
	require.NoError(t, err)

	assert.Equal(t, "acme.example.com", d.Host())
	assert.Equal(t, tenantID, d.TenantID())
	assert.True(t, d.IsPrimary())
}

func TestNew_RejectsEmptyHost(t *testing.T) {
	t.Parallel()

	_, err := domain.New("", uuid.New())
	require.Error(t, err)
}
