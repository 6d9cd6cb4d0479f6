package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/railzwaylabs/landedcost/internal/migration"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

const systemBootstrapStateTable = "system_bootstrap_state"

const (
	StatusInitializing = "initializing"
	StatusActive       = "active"
)

var (
	ErrBootstrapStateNotFound = errors.New("system bootstrap state not found")
	ErrBootstrapStateInactive = errors.New("system bootstrap state is not active")
	ErrSchemaVersionMismatch  = errors.New("schema version mismatch")
	ErrSchemaChecksumMismatch = errors.New("schema checksum mismatch")
)

type SystemBootstrapState struct {
	ID            bool       `gorm:"column:id"`
	Status        string     `gorm:"column:status"`
	SchemaVersion string     `gorm:"column:schema_version"`
	Checksum      *string    `gorm:"column:checksum"`
	ActivatedAt   *time.Time `gorm:"column:activated_at"`
	CreatedAt     time.Time  `gorm:"column:created_at"`
}

// SchemaGate reports whether the database carries the schema this binary
// was built with.
type SchemaGate interface {
	MustBeActive(ctx context.Context) error
}

type schemaGate struct {
	db       *gorm.DB
	manifest migration.Manifest
}

func NewSchemaGate(db *gorm.DB) (SchemaGate, error) {
	if db == nil {
		return nil, errors.New("schema gate requires database handle")
	}
	manifest, err := migration.LoadManifest()
	if err != nil {
		return nil, err
	}
	return &schemaGate{db: db, manifest: manifest}, nil
}

func (g *schemaGate) MustBeActive(ctx context.Context) error {
	state, err := loadSystemBootstrapState(ctx, g.db)
	if err != nil {
		return err
	}

	if state.Status != StatusActive {
		return fmt.Errorf("%w: status=%s", ErrBootstrapStateInactive, state.Status)
	}
	if want := g.manifest.SchemaVersion(); state.SchemaVersion != want {
		return fmt.Errorf("%w: state=%s expected=%s; run migrate", ErrSchemaVersionMismatch, state.SchemaVersion, want)
	}
	if state.Checksum != nil && *state.Checksum != "" && *state.Checksum != g.manifest.Checksum {
		return fmt.Errorf("%w: state=%s expected=%s", ErrSchemaChecksumMismatch, *state.Checksum, g.manifest.Checksum)
	}
	return nil
}

// EnforceSchemaGate fails application start when the schema is not active.
func EnforceSchemaGate(lc fx.Lifecycle, gate SchemaGate) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return gate.MustBeActive(ctx)
		},
	})
}

func loadSystemBootstrapState(ctx context.Context, db *gorm.DB) (*SystemBootstrapState, error) {
	var state SystemBootstrapState
	result := db.WithContext(ctx).Table(systemBootstrapStateTable).
		Select("id, status, schema_version, checksum, activated_at, created_at").
		Where("id = ?", true).
		Limit(1).
		Scan(&state)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, ErrBootstrapStateNotFound
	}

	state.Status = strings.ToLower(strings.TrimSpace(state.Status))
	state.SchemaVersion = strings.TrimSpace(state.SchemaVersion)
	if state.Checksum != nil {
		trimmed := strings.TrimSpace(*state.Checksum)
		state.Checksum = &trimmed
	}
	return &state, nil
}
