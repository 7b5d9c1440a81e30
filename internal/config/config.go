// File: internal/config/config.go
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type ServerConfig struct {
	Port        int    `yaml:"port"`
	AdminAPIKey string `yaml:"admin_api_key" envconfig:"ADMIN_API_KEY"`
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type DatabaseConfig struct {
	URL string `yaml:"url" envconfig:"DATABASE_URL"`
}

type RedisConfig struct {
	URL      string        `yaml:"url" envconfig:"REDIS_URL"`
	Password string        `yaml:"password" envconfig:"REDIS_PASSWORD"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret" envconfig:"JWT_SECRET"`
	Issuer    string `yaml:"issuer"`
}

type AIConfig struct {
	OpenAIKey       string `yaml:"openai_key" envconfig:"OPENAI_API_KEY"`
	GeminiKey       string `yaml:"gemini_key" envconfig:"GEMINI_API_KEY"`
	DefaultModel    string `yaml:"default_model"`
	ConcurrentLimit int    `yaml:"concurrent_limit"` // max concurrent AI calls
	MaxInputTokens  int    `yaml:"max_input_tokens"`
	CreditCost      int64  `yaml:"credit_cost"` // credits charged per analysis
}

type PaymentConfig struct {
	Dodo struct {
		APIKey        string        `yaml:"api_key" envconfig:"DODO_API_KEY"`
		BaseURL       string        `yaml:"base_url"`
		WebhookSecret string        `yaml:"webhook_secret" envconfig:"DODO_WEBHOOK_SECRET"`
		CheckoutTTL   time.Duration `yaml:"checkout_ttl"`
	} `yaml:"dodo"`
}

type CreditsConfig struct {
	ReferralBonus int64 `yaml:"referral_bonus"`
}

type SchedulerConfig struct {
	Disabled          bool          `yaml:"disabled"` // lazy expiry on status checks still applies
	ExpireInterval    time.Duration `yaml:"expire_interval"`
	ReconcileInterval time.Duration `yaml:"reconcile_interval"`
	ReconcileAge      time.Duration `yaml:"reconcile_age"` // pending age before a provider poll
}

type SecurityConfig struct {
	EncryptionKey string `yaml:"encryption_key" envconfig:"ENCRYPTION_KEY"`
}

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Auth      AuthConfig      `yaml:"auth"`
	AI        AIConfig        `yaml:"ai"`
	Payment   PaymentConfig   `yaml:"payment"`
	Credits   CreditsConfig   `yaml:"credits"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Security  SecurityConfig  `yaml:"security"`

	Runtime RuntimeConfig `yaml:"-"`
}

func LoadConfig() (*Config, error) {
	var configPath string = ""
	var dev bool
	flag.StringVar(&configPath, "config", "config.yaml", "path to config yaml")
	flag.BoolVar(&dev, "dev", false, "development mode")
	flag.Parse()

	b, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	// secrets may come from the environment, overriding the yaml
	if err := envconfig.Process("sproutcv", &cfg); err != nil {
		return nil, fmt.Errorf("env overrides: %w", err)
	}

	// defaults
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.AI.ConcurrentLimit <= 0 {
		cfg.AI.ConcurrentLimit = 16
	}
	if cfg.AI.DefaultModel == "" {
		cfg.AI.DefaultModel = "gemini-2.0-flash"
	}
	if cfg.AI.MaxInputTokens <= 0 {
		cfg.AI.MaxInputTokens = 8000
	}
	if cfg.AI.CreditCost <= 0 {
		cfg.AI.CreditCost = 1
	}
	if cfg.Payment.Dodo.BaseURL == "" {
		cfg.Payment.Dodo.BaseURL = "https://live.dodopayments.com"
	}
	if cfg.Payment.Dodo.CheckoutTTL <= 0 {
		cfg.Payment.Dodo.CheckoutTTL = 30 * time.Minute
	}
	if cfg.Credits.ReferralBonus <= 0 {
		cfg.Credits.ReferralBonus = 5
	}
	if cfg.Scheduler.ExpireInterval <= 0 {
		cfg.Scheduler.ExpireInterval = 5 * time.Minute
	}
	if cfg.Scheduler.ReconcileInterval <= 0 {
		cfg.Scheduler.ReconcileInterval = 10 * time.Minute
	}
	if cfg.Scheduler.ReconcileAge <= 0 {
		cfg.Scheduler.ReconcileAge = 15 * time.Minute
	}
	cfg.Redis.TTL = normalizeTTL(cfg.Redis.TTL)

	// Minimal validation
	if cfg.Database.URL == "" {
		return nil, errors.New("database.url is required")
	}
	if cfg.Redis.URL == "" {
		return nil, errors.New("redis.url is required")
	}
	if cfg.Auth.JWTSecret == "" {
		return nil, errors.New("auth.jwt_secret is required")
	}
	if cfg.Payment.Dodo.WebhookSecret == "" {
		return nil, errors.New("payment.dodo.webhook_secret is required")
	}
	if cfg.Security.EncryptionKey == "" {
		return nil, errors.New("security.encryption_key is required")
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}

func normalizeTTL(d time.Duration) time.Duration {
	if d <= 0 {
		return time.Hour
	}
	return d
}
