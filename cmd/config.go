package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"pharmaqueue/internal/core/domain/model/kernel"
	"pharmaqueue/internal/core/domain/model/order"
	"pharmaqueue/internal/core/domain/services"
	"pharmaqueue/internal/jobs"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

type Config struct {
	HTTPPort       string   `mapstructure:"HTTP_PORT"`
	Env            string   `mapstructure:"ENV"`
	LogLevel       string   `mapstructure:"LOG_LEVEL"`
	DatabaseURL    string   `mapstructure:"DATABASE_URL"`
	DBMaxConns     int32    `mapstructure:"DB_MAX_CONNS"`
	DBMinConns     int32    `mapstructure:"DB_MIN_CONNS"`
	DBMaxOpenConns int      `mapstructure:"DB_MAX_OPEN_CONNS"`
	AllowedOrigins []string `mapstructure:"ALLOWED_ORIGINS"`

	ActorID   string   `mapstructure:"ACTOR_ID"`
	AllowList []string `mapstructure:"STATUS_ALLOW_LIST"`

	FeedChannel       string        `mapstructure:"FEED_CHANNEL"`
	SubscribeTimeout  time.Duration `mapstructure:"FEED_SUBSCRIBE_TIMEOUT"`
	FallbackEnabled   bool          `mapstructure:"FALLBACK_ENABLED"`
	PollInterval      time.Duration `mapstructure:"FALLBACK_POLL_INTERVAL"`
	ReconnectDelay    time.Duration `mapstructure:"RECONNECT_DELAY"`
	MaxReconnectDelay time.Duration `mapstructure:"RECONNECT_MAX_DELAY"`

	SLATickInterval   time.Duration `mapstructure:"SLA_TICK_INTERVAL"`
	SLAReloadInterval time.Duration `mapstructure:"SLA_RELOAD_INTERVAL"`

	RequiredChecks     int  `mapstructure:"MAV_REQUIRED_CHECKS"`
	DistinctCheckers   bool `mapstructure:"MAV_DISTINCT_CHECKERS"`
	AlertOnInitialLoad bool `mapstructure:"ALERT_ON_INITIAL_LOAD"`
}

var configKeys = []string{
	"HTTP_PORT", "ENV", "LOG_LEVEL",
	"DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS", "DB_MAX_OPEN_CONNS",
	"ALLOWED_ORIGINS", "ACTOR_ID", "STATUS_ALLOW_LIST",
	"FEED_CHANNEL", "FEED_SUBSCRIBE_TIMEOUT",
	"FALLBACK_ENABLED", "FALLBACK_POLL_INTERVAL",
	"RECONNECT_DELAY", "RECONNECT_MAX_DELAY",
	"SLA_TICK_INTERVAL", "SLA_RELOAD_INTERVAL",
	"MAV_REQUIRED_CHECKS", "MAV_DISTINCT_CHECKERS", "ALERT_ON_INITIAL_LOAD",
}

// LoadConfig reads an optional .env file, then the environment. Values from
// the environment win over the file.
func LoadConfig(envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("HTTP_PORT", "8080")
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("DB_MAX_CONNS", 10)
	v.SetDefault("DB_MIN_CONNS", 2)
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("FEED_CHANNEL", "pharmaqueue_changes")
	v.SetDefault("FEED_SUBSCRIBE_TIMEOUT", 10*time.Second)
	v.SetDefault("FALLBACK_ENABLED", true)
	v.SetDefault("FALLBACK_POLL_INTERVAL", jobs.DefaultPollInterval)
	v.SetDefault("RECONNECT_DELAY", 3*time.Second)
	v.SetDefault("RECONNECT_MAX_DELAY", time.Minute)
	v.SetDefault("SLA_TICK_INTERVAL", 30*time.Second)
	v.SetDefault("SLA_RELOAD_INTERVAL", 5*time.Minute)
	v.SetDefault("MAV_REQUIRED_CHECKS", services.DefaultRequiredChecks)
	v.SetDefault("MAV_DISTINCT_CHECKERS", true)
	v.SetDefault("ALERT_ON_INITIAL_LOAD", true)

	for _, key := range configKeys {
		if err := v.BindEnv(key); err != nil {
			return Config{}, fmt.Errorf("bind %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.AllowedOrigins = splitList(v.GetString("ALLOWED_ORIGINS"))
	cfg.AllowList = splitList(v.GetString("STATUS_ALLOW_LIST"))

	return cfg, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (c Config) IsDev() bool {
	return c.Env == "development"
}

// Validate checks the settings every command needs. The database URL is
// checked separately because the demo runs without one.
func (c Config) Validate() error {
	var errs []error
	if c.HTTPPort == "" {
		errs = append(errs, errors.New("HTTP_PORT is required"))
	}
	if _, err := c.Actor(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.Statuses(); err != nil {
		errs = append(errs, fmt.Errorf("STATUS_ALLOW_LIST: %w", err))
	}
	if _, err := c.Gate(); err != nil {
		errs = append(errs, fmt.Errorf("MAV_REQUIRED_CHECKS: %w", err))
	}
	if c.FallbackEnabled && c.PollInterval <= 0 {
		errs = append(errs, errors.New("FALLBACK_POLL_INTERVAL must be positive when fallback is enabled"))
	}
	if c.ReconnectDelay <= 0 {
		errs = append(errs, errors.New("RECONNECT_DELAY must be positive"))
	}
	if c.MaxReconnectDelay < c.ReconnectDelay {
		errs = append(errs, errors.New("RECONNECT_MAX_DELAY must not be below RECONNECT_DELAY"))
	}
	if c.SLATickInterval <= 0 {
		errs = append(errs, errors.New("SLA_TICK_INTERVAL must be positive"))
	}
	return errors.Join(errs...)
}

func (c Config) RequireDatabase() error {
	if c.DatabaseURL == "" {
		return errors.New("DATABASE_URL is required")
	}
	return nil
}

// Actor returns the configured session identity, or a random one in
// development when none is set.
func (c Config) Actor() (kernel.UUID, error) {
	if c.ActorID == "" {
		if c.IsDev() {
			return kernel.NewUUID(), nil
		}
		return kernel.UUID{}, errors.New("ACTOR_ID is required outside development")
	}
	actor, err := kernel.UUIDFromString(c.ActorID)
	if err != nil {
		return kernel.UUID{}, fmt.Errorf("ACTOR_ID: %w", err)
	}
	return actor, nil
}

func (c Config) Statuses() ([]order.Status, error) {
	if len(c.AllowList) == 0 {
		return order.DefaultAllowList(), nil
	}
	return order.ParseStatuses(c.AllowList)
}

func (c Config) Gate() (services.DoubleCheckGate, error) {
	return services.NewDoubleCheckGate(c.RequiredChecks, c.DistinctCheckers)
}

// NewLogger builds the process logger: console output in development, JSON
// otherwise.
func NewLogger(cfg Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	logger := zerolog.New(os.Stdout)
	if cfg.IsDev() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.TimeOnly})
	}
	return logger.Level(level).With().Timestamp().Logger()
}
