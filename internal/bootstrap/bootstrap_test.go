package bootstrap

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/railzwaylabs/landedcost/internal/migration"
	referencedomain "github.com/railzwaylabs/landedcost/internal/reference/domain"
	"github.com/railzwaylabs/landedcost/internal/reference/loader"
	"github.com/railzwaylabs/landedcost/internal/reference/referencetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const createStateTable = `CREATE TABLE system_bootstrap_state (
	id BOOLEAN PRIMARY KEY,
	status TEXT NOT NULL,
	schema_version TEXT NOT NULL,
	checksum TEXT,
	activated_at DATETIME,
	created_at DATETIME NOT NULL
)`

func writeState(t *testing.T, db *gorm.DB, status, version, checksum string) {
	t.Helper()
	require.NoError(t, db.Exec("DELETE FROM system_bootstrap_state").Error)
	require.NoError(t, db.Exec(
		"INSERT INTO system_bootstrap_state (id, status, schema_version, checksum, created_at) VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)",
		true, status, version, checksum,
	).Error)
}

func TestSchemaGate(t *testing.T) {
	db := referencetest.OpenDB(t)
	require.NoError(t, db.Exec(createStateTable).Error)

	manifest, err := migration.LoadManifest()
	require.NoError(t, err)

	gate, err := NewSchemaGate(db)
	require.NoError(t, err)
	ctx := context.Background()

	assert.ErrorIs(t, gate.MustBeActive(ctx), ErrBootstrapStateNotFound)

	writeState(t, db, StatusInitializing, manifest.SchemaVersion(), manifest.Checksum)
	assert.ErrorIs(t, gate.MustBeActive(ctx), ErrBootstrapStateInactive)

	writeState(t, db, StatusActive, "1", manifest.Checksum)
	assert.ErrorIs(t, gate.MustBeActive(ctx), ErrSchemaVersionMismatch)

	writeState(t, db, StatusActive, manifest.SchemaVersion(), "deadbeef")
	assert.ErrorIs(t, gate.MustBeActive(ctx), ErrSchemaChecksumMismatch)

	writeState(t, db, " ACTIVE ", manifest.SchemaVersion(), manifest.Checksum)
	assert.NoError(t, gate.MustBeActive(ctx))
}

func TestSeedIfEmpty(t *testing.T) {
	db := referencetest.OpenDB(t)
	node, err := snowflake.NewNode(4)
	require.NoError(t, err)
	l := loader.New(db, node, zap.NewNop())
	ctx := context.Background()

	summary, err := SeedIfEmpty(ctx, db, l, "../../data/reference")
	require.NoError(t, err)
	require.NotNil(t, summary)
	assert.Equal(t, 2, summary[loader.FileTariffVersions])
	assert.Equal(t, 9, summary[loader.FileTariffRates])

	var versions []referencedomain.TariffVersion
	require.NoError(t, db.Order("label").Find(&versions).Error)
	require.Len(t, versions, 2)
	assert.True(t, versions[1].IsActive)

	again, err := SeedIfEmpty(ctx, db, l, "../../data/reference")
	require.NoError(t, err)
	assert.Nil(t, again)
}
