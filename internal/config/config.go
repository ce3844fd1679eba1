package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	apperrors "github.com/pushkarkumarvats/DIG-7/internal/errors"
	"github.com/pushkarkumarvats/DIG-7/internal/prediction"
	"github.com/pushkarkumarvats/DIG-7/internal/ratelimit"
	"github.com/pushkarkumarvats/DIG-7/internal/security"
)

// Keys are plain environment names lowercased; AutomaticEnv maps them back.
const (
	KeyPort           = "port"
	KeyDataDir        = "data_dir"
	KeyLogLevel       = "log_level"
	KeyMLAPIURL       = "ml_api_url"
	KeyPredictTimeout = "predict_timeout"
	KeyBatchTimeout   = "batch_timeout"
	KeyHealthTimeout  = "health_timeout"
	KeyJWTSecret      = "jwt_secret"
	KeyTokenTTL       = "token_ttl"
	KeyDemoMode       = "demo_mode"
	KeyLiveScoring    = "live_scoring"
	KeyRedisAddr      = "redis_addr"
	KeyRedisPassword  = "redis_password"
	KeyRedisDB        = "redis_db"
	KeyRateLimit      = "rate_limit_per_min"
	KeyAllowedOrigins = "allowed_origins"
	KeyRequestTimeout = "request_timeout"
	KeyEnableHSTS     = "enable_hsts"
	KeyCacheTTL       = "recommend_cache_ttl"
)

const tokenIssuer = "vendor-scoring"

type Config struct {
	Port     int
	DataDir  string
	LogLevel string

	Prediction prediction.Config

	JWTSecret   string
	TokenIssuer string
	TokenTTL    time.Duration
	DemoMode    bool
	// LiveScoring ranks candidates on a fresh prediction instead of their
	// stored score.
	LiveScoring bool
	// CacheTTL bounds how long identical recommendation requests are served
	// from memory. Zero disables the cache.
	CacheTTL time.Duration

	Redis     ratelimit.RedisConfig
	RateLimit ratelimit.Config

	AllowedOrigins []string
	Security       security.Config
}

// New returns a viper instance carrying every default and reading the
// process environment.
func New() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.AutomaticEnv()
	return v
}

func SetDefaults(v *viper.Viper) {
	pred := prediction.DefaultConfig()
	rl := ratelimit.DefaultConfig()
	sec := security.DefaultConfig()

	v.SetDefault(KeyPort, 8080)
	v.SetDefault(KeyDataDir, "./data")
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyMLAPIURL, pred.BaseURL)
	v.SetDefault(KeyPredictTimeout, pred.PredictTimeout)
	v.SetDefault(KeyBatchTimeout, pred.BatchTimeout)
	v.SetDefault(KeyHealthTimeout, pred.HealthTimeout)
	v.SetDefault(KeyJWTSecret, "change-me-in-production")
	v.SetDefault(KeyTokenTTL, 24*time.Hour)
	v.SetDefault(KeyDemoMode, false)
	v.SetDefault(KeyLiveScoring, false)
	v.SetDefault(KeyRedisAddr, "")
	v.SetDefault(KeyRedisPassword, "")
	v.SetDefault(KeyRedisDB, 0)
	v.SetDefault(KeyRateLimit, rl.IPLimitPerMin)
	v.SetDefault(KeyAllowedOrigins, "http://localhost:3000")
	v.SetDefault(KeyRequestTimeout, sec.RequestTimeout)
	v.SetDefault(KeyEnableHSTS, false)
	v.SetDefault(KeyCacheTTL, 30*time.Second)
}

// LoadDotEnv reads .env from the working directory when present. Values
// already in the environment win.
func LoadDotEnv(files ...string) {
	_ = godotenv.Load(files...)
}

// Load builds a validated Config from v.
func Load(v *viper.Viper) (*Config, error) {
	pred := prediction.DefaultConfig()
	pred.BaseURL = v.GetString(KeyMLAPIURL)
	pred.PredictTimeout = v.GetDuration(KeyPredictTimeout)
	pred.BatchTimeout = v.GetDuration(KeyBatchTimeout)
	pred.HealthTimeout = v.GetDuration(KeyHealthTimeout)

	rl := ratelimit.DefaultConfig()
	rl.IPLimitPerMin = v.GetInt(KeyRateLimit)

	sec := security.DefaultConfig()
	sec.RequestTimeout = v.GetDuration(KeyRequestTimeout)
	sec.EnableHSTS = v.GetBool(KeyEnableHSTS)

	cfg := &Config{
		Port:        v.GetInt(KeyPort),
		DataDir:     v.GetString(KeyDataDir),
		LogLevel:    v.GetString(KeyLogLevel),
		Prediction:  pred,
		JWTSecret:   v.GetString(KeyJWTSecret),
		TokenIssuer: tokenIssuer,
		TokenTTL:    v.GetDuration(KeyTokenTTL),
		DemoMode:    v.GetBool(KeyDemoMode),
		LiveScoring: v.GetBool(KeyLiveScoring),
		CacheTTL:    v.GetDuration(KeyCacheTTL),
		Redis: ratelimit.RedisConfig{
			Addr:     v.GetString(KeyRedisAddr),
			Password: v.GetString(KeyRedisPassword),
			DB:       v.GetInt(KeyRedisDB),
		},
		RateLimit:      rl,
		AllowedOrigins: splitList(v.GetString(KeyAllowedOrigins)),
		Security:       sec,
	}

	if err := cfg.Validate(); err != nil {
		return nil, apperrors.NewConfigurationError(err.Error(), err)
	}
	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.DataDir == "" {
		return fmt.Errorf("data_dir must not be empty")
	}

	timeouts := map[string]time.Duration{
		KeyPredictTimeout: c.Prediction.PredictTimeout,
		KeyBatchTimeout:   c.Prediction.BatchTimeout,
		KeyHealthTimeout:  c.Prediction.HealthTimeout,
		KeyRequestTimeout: c.Security.RequestTimeout,
		KeyTokenTTL:       c.TokenTTL,
	}
	for key, d := range timeouts {
		if d <= 0 {
			return fmt.Errorf("%s must be positive, got %s", key, d)
		}
	}

	// A request that outlives its own oracle calls would cut them short and
	// the breaker would see the caller's deadline as an oracle failure.
	for key, d := range map[string]time.Duration{
		KeyPredictTimeout: c.Prediction.PredictTimeout,
		KeyBatchTimeout:   c.Prediction.BatchTimeout,
	} {
		if d >= c.Security.RequestTimeout {
			return fmt.Errorf("%s (%s) must be shorter than %s (%s)", key, d, KeyRequestTimeout, c.Security.RequestTimeout)
		}
	}

	if c.Prediction.BaseURL == "" {
		return fmt.Errorf("ml_api_url must not be empty")
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("jwt_secret must not be empty")
	}
	if c.CacheTTL < 0 {
		return fmt.Errorf("%s must not be negative, got %s", KeyCacheTTL, c.CacheTTL)
	}
	if c.RateLimit.IPLimitPerMin <= 0 {
		return fmt.Errorf("rate_limit_per_min must be positive, got %d", c.RateLimit.IPLimitPerMin)
	}
	return nil
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}
