package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	calcrunservice "github.com/railzwaylabs/landedcost/internal/calcrun/service"
	"github.com/railzwaylabs/landedcost/internal/config"
	landedcostservice "github.com/railzwaylabs/landedcost/internal/landedcost/service"
	"github.com/railzwaylabs/landedcost/internal/observability"
	"github.com/railzwaylabs/landedcost/internal/ratehunter"
	ratelimitdomain "github.com/railzwaylabs/landedcost/internal/ratelimit/domain"
	referenceservice "github.com/railzwaylabs/landedcost/internal/reference/service"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("server",
	fx.Provide(NewServer),
	fx.Invoke(RegisterLifecycle),
)

type ServerParams struct {
	fx.In

	Log        *zap.Logger
	Config     config.Config
	DB         *gorm.DB
	Calculator *landedcostservice.Service
	Hunter     *ratehunter.Service
	Reference  *referenceservice.Service
	Runs       *calcrunservice.Service
	Limiter    ratelimitdomain.Service `optional:"true"`
	Metrics    *observability.Metrics  `optional:"true"`
}

type Server struct {
	log     *zap.Logger
	cfg     config.Config
	db      *gorm.DB
	engine  *gin.Engine
	metrics *observability.Metrics
	limiter ratelimitdomain.Service

	calculator *landedcostservice.Service
	hunter     *ratehunter.Service
	reference  *referenceservice.Service
	runs       *calcrunservice.Service
}

func NewServer(p ServerParams) *Server {
	if p.Config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		log:        p.Log.Named("server"),
		cfg:        p.Config,
		db:         p.DB,
		metrics:    p.Metrics,
		limiter:    p.Limiter,
		calculator: p.Calculator,
		hunter:     p.Hunter,
		reference:  p.Reference,
		runs:       p.Runs,
	}
	s.engine = gin.New()
	s.engine.Use(gin.Recovery(), RequestID(), s.RequestLogger(), Tracing(), s.RequestMetrics())
	s.RegisterRoutes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) RegisterRoutes() {
	s.engine.GET("/healthz", s.Healthz)
	s.engine.GET("/metrics", s.Metrics)

	api := s.engine.Group("/api")

	calc := api.Group("", s.RateLimit())
	calc.POST("/calculate", s.Calculate)
	calc.POST("/compare", s.Compare)
	calc.POST("/rate-hunter", s.RateHunter)

	api.GET("/hscodes", s.ListHsCodes)
	api.GET("/hscodes/:hs6", s.GetHsCode)
	api.GET("/clusters", s.ListClusters)
	api.GET("/countries", s.ListCountries)
	api.GET("/tariff-versions", s.ListTariffVersions)

	api.GET("/runs", s.ListRuns)
	api.GET("/runs/:id", s.GetRun)
}

// RegisterLifecycle serves HTTP between fx start and stop.
func RegisterLifecycle(lc fx.Lifecycle, s *Server) {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.cfg.HTTP.Port),
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ln, err := net.Listen("tcp", srv.Addr)
			if err != nil {
				return fmt.Errorf("listen %s: %w", srv.Addr, err)
			}
			s.log.Info("http server listening", zap.String("addr", srv.Addr))
			go func() {
				if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					s.log.Error("http server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			timeout := time.Duration(s.cfg.HTTP.ShutdownSeconds) * time.Second
			if timeout <= 0 {
				timeout = 10 * time.Second
			}
			shutdownCtx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()
			s.log.Info("http server shutting down")
			return srv.Shutdown(shutdownCtx)
		},
	})
}
