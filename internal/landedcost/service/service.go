package service

import (
	"context"
	"time"

	"github.com/railzwaylabs/landedcost/internal/classification"
	"github.com/railzwaylabs/landedcost/internal/config"
	landedcostdomain "github.com/railzwaylabs/landedcost/internal/landedcost/domain"
	"github.com/railzwaylabs/landedcost/internal/observability"
	"github.com/railzwaylabs/landedcost/internal/preference"
	referencedomain "github.com/railzwaylabs/landedcost/internal/reference/domain"
	"github.com/railzwaylabs/landedcost/internal/risk"
	"github.com/railzwaylabs/landedcost/internal/tariff"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("github.com/railzwaylabs/landedcost/internal/landedcost")

// Settings are the engine constants a calculation uses.
type Settings struct {
	DestinationCountry  string
	VATRate             decimal.Decimal
	ATVUplift           decimal.Decimal
	Thresholds          landedcostdomain.Thresholds
	RiskTopN            int
	Concurrency         int
	MaxCompareScenarios int
}

func SettingsFromConfig(cfg config.EngineConfig) Settings {
	return Settings{
		DestinationCountry: cfg.DestinationCountry,
		VATRate:            decimal.NewFromFloat(cfg.VATRate),
		ATVUplift:          decimal.NewFromFloat(cfg.ATVUplift),
		Thresholds: landedcostdomain.Thresholds{
			Go:      decimal.NewFromFloat(cfg.GoMarginPercent),
			Caution: decimal.NewFromFloat(cfg.CautionMarginPct),
		},
		RiskTopN:            cfg.RiskTopN,
		Concurrency:         cfg.Concurrency,
		MaxCompareScenarios: cfg.MaxCompareScenarios,
	}
}

type Params struct {
	fx.In

	Log        *zap.Logger
	Config     config.Config
	Repo       referencedomain.Repository
	Tariff     *tariff.Service
	Preference *preference.Service
	Risk       *risk.Service
	Classifier *classification.Service
	Recorder   landedcostdomain.RunRecorder `optional:"true"`
	Metrics    *observability.Metrics       `optional:"true"`
}

type Service struct {
	log      *zap.Logger
	settings Settings

	repo       referencedomain.Repository
	tariff     *tariff.Service
	preference *preference.Service
	risk       *risk.Service
	classifier *classification.Service
	recorder   landedcostdomain.RunRecorder
	metrics    *observability.Metrics
}

func NewService(p Params) *Service {
	return &Service{
		log:      p.Log.Named("landedcost.service"),
		settings: SettingsFromConfig(p.Config.Engine),

		repo:       p.Repo,
		tariff:     p.Tariff,
		preference: p.Preference,
		risk:       p.Risk,
		classifier: p.Classifier,
		recorder:   p.Recorder,
		metrics:    p.Metrics,
	}
}

// Settings returns the engine constants in use.
func (s *Service) Settings() Settings {
	return s.settings
}

// Calculate costs one shipment. When userID is set the run is recorded;
// a recording failure is logged and does not fail the calculation.
func (s *Service) Calculate(ctx context.Context, in landedcostdomain.CalcInput, userID string) (*landedcostdomain.CalcOutput, error) {
	ctx, span := tracer.Start(ctx, "landedcost.Calculate")
	defer span.End()

	start := time.Now()
	normalized, out, err := s.calculate(ctx, in)
	s.observe(out, err, time.Since(start))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(
		attribute.String("hs6", out.Classification.HS6),
		attribute.String("origin", out.OriginCountry),
		attribute.String("tariff_version", out.TariffVersionLabel),
		attribute.String("verdict", string(out.Verdict)),
	)

	if userID != "" && s.recorder != nil {
		if err := s.recorder.Record(ctx, userID, normalized, out); err != nil {
			s.log.Warn("failed to record calculation run",
				zap.String("user_id", userID),
				zap.String("hs6", out.Classification.HS6),
				zap.Error(err),
			)
		}
	}
	return out, nil
}

func (s *Service) observe(out *landedcostdomain.CalcOutput, err error, elapsed time.Duration) {
	if s.metrics == nil {
		return
	}
	s.metrics.CalcDuration.Observe(elapsed.Seconds())
	if err != nil {
		s.metrics.Calculations.WithLabelValues(landedcostdomain.DescribeError(err).Code, "").Inc()
		return
	}
	s.metrics.Calculations.WithLabelValues("ok", string(out.Verdict)).Inc()
}
