package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	calcrundomain "github.com/railzwaylabs/landedcost/internal/calcrun/domain"
	"github.com/railzwaylabs/landedcost/internal/clock"
	landedcostdomain "github.com/railzwaylabs/landedcost/internal/landedcost/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

type Params struct {
	fx.In

	Log   *zap.Logger
	Repo  calcrundomain.Repository
	GenID *snowflake.Node
	Clock clock.Clock
}

type Service struct {
	log   *zap.Logger
	repo  calcrundomain.Repository
	genID *snowflake.Node
	clock clock.Clock
}

func NewService(p Params) *Service {
	return &Service{
		log:   p.Log.Named("calcrun.service"),
		repo:  p.Repo,
		genID: p.GenID,
		clock: p.Clock,
	}
}

// Record stores the normalized input and the full output of a calculation.
func (s *Service) Record(ctx context.Context, userID string, in landedcostdomain.CalcInput, out *landedcostdomain.CalcOutput) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return calcrundomain.ErrUserIDRequired
	}
	if out == nil {
		return fmt.Errorf("record calc run: nil output")
	}

	inputs, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encode calc run inputs: %w", err)
	}
	outputs, err := json.Marshal(out)
	if err != nil {
		return fmt.Errorf("encode calc run outputs: %w", err)
	}

	run := &calcrundomain.CalcRun{
		ID:              s.genID.Generate(),
		UserID:          userID,
		HS6:             out.Classification.HS6,
		OriginISO2:      out.OriginCountry,
		Inputs:          inputs,
		Outputs:         outputs,
		LandedCostTotal: out.LandedCostTotal,
		Verdict:         string(out.Verdict),
		CreatedAt:       s.clock.Now(ctx),
	}
	if err := s.repo.Insert(ctx, run); err != nil {
		return fmt.Errorf("insert calc run: %w", err)
	}

	s.log.Debug("calc run recorded",
		zap.String("run_id", run.ID.String()),
		zap.String("user_id", userID),
		zap.String("hs6", run.HS6),
		zap.String("verdict", run.Verdict),
	)
	return nil
}

func (s *Service) Get(ctx context.Context, userID string, id snowflake.ID) (*calcrundomain.CalcRun, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, calcrundomain.ErrUserIDRequired
	}
	run, err := s.repo.FindByID(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if run == nil {
		return nil, calcrundomain.ErrRunNotFound
	}
	return run, nil
}

// List returns the user's runs newest first.
func (s *Service) List(ctx context.Context, req calcrundomain.ListRequest) ([]calcrundomain.CalcRun, error) {
	req.UserID = strings.TrimSpace(req.UserID)
	if req.UserID == "" {
		return nil, calcrundomain.ErrUserIDRequired
	}
	switch {
	case req.PageSize == 0:
		req.PageSize = defaultPageSize
	case req.PageSize < 0 || req.PageSize > maxPageSize:
		return nil, calcrundomain.ErrInvalidPageSize
	}
	return s.repo.List(ctx, req)
}

// Purge deletes runs recorded before cutoff.
func (s *Service) Purge(ctx context.Context, cutoff time.Time) (int64, error) {
	deleted, err := s.repo.DeleteCreatedBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge calc runs: %w", err)
	}
	return deleted, nil
}
