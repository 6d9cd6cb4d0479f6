package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("config",
	fx.Provide(Load),
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Config holds all configuration for the application.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	Engine    EngineConfig    `mapstructure:"engine"`
	Bootstrap BootstrapConfig `mapstructure:"bootstrap"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`

	source *viper.Viper
}

type AppConfig struct {
	Name    string `mapstructure:"name"`
	Env     string `mapstructure:"env"`
	Version string `mapstructure:"version"`
}

type HTTPConfig struct {
	Port            int `mapstructure:"port"`
	ShutdownSeconds int `mapstructure:"shutdown_seconds"`
}

// DatabaseConfig holds database connection configuration.
type DatabaseConfig struct {
	Host                   string `mapstructure:"host"`
	Port                   int    `mapstructure:"port"`
	Username               string `mapstructure:"username"`
	Password               string `mapstructure:"password"`
	Name                   string `mapstructure:"name"`
	SSLMode                string `mapstructure:"sslmode"`
	MaxIdleConns           int    `mapstructure:"max_idle_conns"`
	MaxOpenConns           int    `mapstructure:"max_open_conns"`
	MaxConnLifetimeSeconds int    `mapstructure:"max_conn_lifetime_seconds"`
	LogSQL                 bool   `mapstructure:"log_sql"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type RateLimitConfig struct {
	Enabled           bool `mapstructure:"enabled"`
	RequestsPerMinute int  `mapstructure:"requests_per_minute"`
}

// BootstrapConfig gates reference seeding on serve start. An empty SeedDir
// disables it.
type BootstrapConfig struct {
	SeedDir string `mapstructure:"seed_dir"`
}

type SchedulerConfig struct {
	Enabled              bool `mapstructure:"enabled"`
	IntervalSeconds      int  `mapstructure:"interval_seconds"`
	CalcRunRetentionDays int  `mapstructure:"calc_run_retention_days"`
}

// EngineConfig carries the tunable constants of the landed-cost engine.
type EngineConfig struct {
	DestinationCountry  string   `mapstructure:"destination_country"`
	VATRate             float64  `mapstructure:"vat_rate"`
	ATVUplift           float64  `mapstructure:"atv_uplift"`
	GoMarginPercent     float64  `mapstructure:"go_margin_percent"`
	CautionMarginPct    float64  `mapstructure:"caution_margin_percent"`
	MaterialitySavings  float64  `mapstructure:"materiality_savings"`
	HunterCandidates    []string `mapstructure:"hunter_candidates"`
	Concurrency         int      `mapstructure:"concurrency"`
	MaxCompareScenarios int      `mapstructure:"max_compare_scenarios"`
	RiskTopN            int      `mapstructure:"risk_top_n"`
}

// Load reads configuration from an optional landedcost.yaml, a .env file and
// the process environment, in increasing order of precedence.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("landedcost")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/landedcost")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.Engine.DestinationCountry = strings.ToUpper(strings.TrimSpace(cfg.Engine.DestinationCountry))
	cfg.Engine.HunterCandidates = normalizeISOList(cfg.Engine.HunterCandidates)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	cfg.source = v
	return cfg, nil
}

// WatchFile logs edits to the loaded config file. Engine constants are read
// once at startup, so a change only takes effect after a restart.
func WatchFile(cfg Config, log *zap.Logger) {
	if cfg.source == nil || cfg.source.ConfigFileUsed() == "" {
		return
	}
	log = log.Named("config")
	cfg.source.OnConfigChange(func(e fsnotify.Event) {
		log.Warn("config file changed; restart to apply",
			zap.String("file", e.Name),
			zap.String("op", e.Op.String()),
		)
	})
	cfg.source.WatchConfig()
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "landedcost")
	v.SetDefault("app.env", EnvDevelopment)
	v.SetDefault("app.version", "dev")

	v.SetDefault("http.port", 8080)
	v.SetDefault("http.shutdown_seconds", 30)

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.username", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "landedcost")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.max_open_conns", 50)
	v.SetDefault("database.max_conn_lifetime_seconds", 3600)
	v.SetDefault("database.log_sql", false)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("ratelimit.enabled", false)
	v.SetDefault("ratelimit.requests_per_minute", 60)

	v.SetDefault("engine.destination_country", "ZA")
	v.SetDefault("engine.vat_rate", 0.15)
	v.SetDefault("engine.atv_uplift", 0.10)
	v.SetDefault("engine.go_margin_percent", 25.0)
	v.SetDefault("engine.caution_margin_percent", 12.0)
	v.SetDefault("engine.materiality_savings", 1000.0)
	v.SetDefault("engine.hunter_candidates", DefaultHunterCandidates)
	v.SetDefault("engine.concurrency", 4)
	v.SetDefault("engine.max_compare_scenarios", 10)
	v.SetDefault("engine.risk_top_n", 3)

	v.SetDefault("bootstrap.seed_dir", "")

	v.SetDefault("scheduler.enabled", true)
	v.SetDefault("scheduler.interval_seconds", 3600)
	v.SetDefault("scheduler.calc_run_retention_days", 90)
}

// DefaultHunterCandidates is the alternate-origin set scanned by the rate hunter.
var DefaultHunterCandidates = []string{"CN", "IN", "VN", "TH", "MY", "TR", "DE", "IT", "GB", "US", "BR", "MU"}

// Default returns the configuration used when nothing is overridden.
func Default() Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	_ = v.Unmarshal(&cfg)
	return cfg
}

// Validate checks that all required configuration is present.
func (c Config) Validate() error {
	if c.Database.Host == "" {
		return errors.New("database.host is required")
	}
	if c.Database.Name == "" {
		return errors.New("database.name is required")
	}
	if c.Engine.VATRate < 0 || c.Engine.VATRate >= 1 {
		return fmt.Errorf("engine.vat_rate out of range: %v", c.Engine.VATRate)
	}
	if c.Engine.CautionMarginPct > c.Engine.GoMarginPercent {
		return fmt.Errorf("engine.caution_margin_percent (%v) exceeds engine.go_margin_percent (%v)",
			c.Engine.CautionMarginPct, c.Engine.GoMarginPercent)
	}
	if len(c.Engine.DestinationCountry) != 2 {
		return fmt.Errorf("engine.destination_country must be ISO2: %q", c.Engine.DestinationCountry)
	}
	return nil
}

func (c Config) IsProduction() bool {
	return strings.EqualFold(c.App.Env, EnvProduction)
}

// DSN returns the database connection string.
func (c DatabaseConfig) DSN() string {
	dsn := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.Username, c.Password),
		Host:   fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:   c.Name,
	}
	query := dsn.Query()
	query.Add("sslmode", c.SSLMode)
	dsn.RawQuery = query.Encode()
	return dsn.String()
}

func normalizeISOList(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			iso := strings.ToUpper(strings.TrimSpace(part))
			if iso == "" {
				continue
			}
			if _, ok := seen[iso]; ok {
				continue
			}
			seen[iso] = struct{}{}
			out = append(out, iso)
		}
	}
	return out
}
