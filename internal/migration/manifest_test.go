package migration

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadManifest(t *testing.T) {
	m, err := LoadManifest()
	require.NoError(t, err)

	assert.Equal(t, uint(3), m.Version)
	assert.Equal(t, "3", m.SchemaVersion())
	assert.Len(t, m.Checksum, 64)
	assert.Equal(t, []string{
		"000001_system_bootstrap_state.up.sql",
		"000002_reference_data.up.sql",
		"000003_calc_runs.up.sql",
	}, m.Files)

	again, err := LoadManifest()
	require.NoError(t, err)
	assert.Equal(t, m.Checksum, again.Checksum)
}

func TestParseMigrationVersion(t *testing.T) {
	cases := map[string]struct {
		version uint
		ok      bool
	}{
		"000002_reference_data.up.sql": {2, true},
		"12_x.up.sql":                  {12, true},
		"reference.up.sql":             {0, false},
		"_x.up.sql":                    {0, false},
		"abc_x.up.sql":                 {0, false},
		"0_x.up.sql":                   {0, false},
	}
	for name, tc := range cases {
		v, ok := parseMigrationVersion(name)
		assert.Equal(t, tc.ok, ok, name)
		assert.Equal(t, tc.version, v, name)
	}
}
