package schema_test

import (
	"testing"
	"testing/fstest"

	"github.com/iota-uz/nero/modules/core/infrastructure/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromFS_ParsesAndOrders(t *testing.T) {
	t.Parallel()

	fsys := fstest.MapFS{
		"m/0002_second.sql": {Data: []byte("CREATE TABLE b ()")},
		"m/0001_first.sql":  {Data: []byte("CREATE TABLE a ()")},
		"m/README.md":       {Data: []byte("ignored")},
	}

	migrations, err := schema.FromFS(fsys, "m")
	require.NoError(t, err)
	require.Len(t, migrations, 2)

	assert.Equal(t, int64(1), migrations[0].Version)
	assert.Equal(t, "first", migrations[0].Name)
	assert.Equal(t, "CREATE TABLE a ()", migrations[0].SQL)
	assert.Equal(t, int64(2), migrations[1].Version)
}

func TestFromFS_RejectsBadFilenames(t *testing.T) {
	t.Parallel()

	cases := []string{
		"m/noversion.sql",
		"m/abc_name.sql",
		"m/_name.sql",
	}
	for _, file := range cases {
		fsys := fstest.MapFS{file: {Data: []byte("SELECT 1")}}
		_, err := schema.FromFS(fsys, "m")
		require.Error(t, err, "file %q should be rejected", file)
	}
}

func TestTenantMigrations_Embedded(t *testing.T) {
	t.Parallel()

	migrations, err := schema.TenantMigrations()
	require.NoError(t, err)
	require.NotEmpty(t, migrations)

	for i := 1; i < len(migrations); i++ {
		assert.Greater(t, migrations[i].Version, migrations[i-1].Version)
	}
}
