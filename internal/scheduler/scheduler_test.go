package scheduler_test

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	calcrundomain "github.com/railzwaylabs/landedcost/internal/calcrun/domain"
	calcrunrepository "github.com/railzwaylabs/landedcost/internal/calcrun/repository"
	calcrunservice "github.com/railzwaylabs/landedcost/internal/calcrun/service"
	"github.com/railzwaylabs/landedcost/internal/clock"
	"github.com/railzwaylabs/landedcost/internal/config"
	"github.com/railzwaylabs/landedcost/internal/reference/referencetest"
	"github.com/railzwaylabs/landedcost/internal/reference/repository"
	"github.com/railzwaylabs/landedcost/internal/scheduler"
	"github.com/railzwaylabs/landedcost/internal/tariff"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

func TestRunOncePurgesExpiredRuns(t *testing.T) {
	db := referencetest.OpenDB(t, &calcrundomain.CalcRun{})
	fixture := referencetest.Seed(t, db)
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	log := zap.NewNop()

	node, err := snowflake.NewNode(5)
	require.NoError(t, err)
	for i, age := range []int{1, 30, 120, 400} {
		require.NoError(t, db.Create(&calcrundomain.CalcRun{
			ID:              node.Generate(),
			UserID:          "user-1",
			HS6:             referencetest.HSLaptop,
			OriginISO2:      "CN",
			Inputs:          datatypes.JSON(`{}`),
			Outputs:         datatypes.JSON(`{}`),
			LandedCostTotal: decimal.NewFromInt(int64(i)),
			Verdict:         "UNKNOWN",
			CreatedAt:       now.AddDate(0, 0, -age),
		}).Error)
	}

	cfg := config.Default()
	cfg.Scheduler.CalcRunRetentionDays = 90
	fixed := clock.Fixed{At: now}
	s := scheduler.New(scheduler.Params{
		Log:    log,
		Config: cfg,
		Clock:  fixed,
		Runs: calcrunservice.NewService(calcrunservice.Params{
			Log:   log,
			Repo:  calcrunrepository.NewRepository(db),
			GenID: fixture.Node,
			Clock: fixed,
		}),
		Tariff: tariff.NewService(tariff.Params{Log: log, Repo: repository.NewRepository(db), Clock: fixed}),
	})

	require.NoError(t, s.RunOnce(context.Background()))

	var remaining int64
	require.NoError(t, db.Model(&calcrundomain.CalcRun{}).Count(&remaining).Error)
	assert.Equal(t, int64(2), remaining)
}

func TestPurgeDisabled(t *testing.T) {
	cfg := config.Default()
	cfg.Scheduler.CalcRunRetentionDays = 0
	s := scheduler.New(scheduler.Params{Log: zap.NewNop(), Config: cfg, Clock: clock.New()})

	n, err := s.PurgeCalcRunsJob(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}
