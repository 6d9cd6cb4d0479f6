// Package landedcosttest wires a calculator over the seeded in-memory
// reference store.
package landedcosttest

import (
	"testing"
	"time"

	"github.com/railzwaylabs/landedcost/internal/classification"
	"github.com/railzwaylabs/landedcost/internal/clock"
	"github.com/railzwaylabs/landedcost/internal/config"
	landedcostdomain "github.com/railzwaylabs/landedcost/internal/landedcost/domain"
	"github.com/railzwaylabs/landedcost/internal/landedcost/service"
	"github.com/railzwaylabs/landedcost/internal/preference"
	referencedomain "github.com/railzwaylabs/landedcost/internal/reference/domain"
	"github.com/railzwaylabs/landedcost/internal/reference/referencetest"
	"github.com/railzwaylabs/landedcost/internal/reference/repository"
	"github.com/railzwaylabs/landedcost/internal/risk"
	"github.com/railzwaylabs/landedcost/internal/tariff"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Now is the instant the tariff version is resolved at.
var Now = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

type Env struct {
	Service *service.Service
	Tariff  *tariff.Service
	Repo    referencedomain.Repository
	DB      *gorm.DB
	Fixture referencetest.Fixture
	Config  config.Config
}

type Options struct {
	Now      time.Time
	Config   *config.Config
	Recorder landedcostdomain.RunRecorder
	Models   []any
}

func New(t testing.TB, opts Options) Env {
	t.Helper()

	db := referencetest.OpenDB(t, opts.Models...)
	fixture := referencetest.Seed(t, db)
	return Wire(db, fixture, opts)
}

// Wire builds the services over an existing database.
func Wire(db *gorm.DB, fixture referencetest.Fixture, opts Options) Env {
	cfg := config.Default()
	if opts.Config != nil {
		cfg = *opts.Config
	}
	now := opts.Now
	if now.IsZero() {
		now = Now
	}

	log := zap.NewNop()
	repo := repository.NewRepository(db)
	tariffSvc := tariff.NewService(tariff.Params{Log: log, Repo: repo, Clock: clock.Fixed{At: now}})
	svc := service.NewService(service.Params{
		Log:        log,
		Config:     cfg,
		Repo:       repo,
		Tariff:     tariffSvc,
		Preference: preference.NewService(preference.Params{Log: log, Repo: repo}),
		Risk:       risk.NewService(risk.Params{Log: log, Repo: repo}),
		Classifier: classification.NewService(classification.Params{Log: log, Repo: repo}),
		Recorder:   opts.Recorder,
	})

	return Env{
		Service: svc,
		Tariff:  tariffSvc,
		Repo:    repo,
		DB:      db,
		Fixture: fixture,
		Config:  cfg,
	}
}
