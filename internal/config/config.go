package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	HTTPAddr        string   `yaml:"httpAddr" validate:"required"`
	DatabaseURL     string   `yaml:"databaseURL"`
	JWTSecret       string   `yaml:"jwtSecret" validate:"required"`
	CORSOrigins     []string `yaml:"corsOrigins"`
	MetricsUser     string   `yaml:"metricsUser"`
	MetricsPassword string   `yaml:"metricsPassword"`
	Timezone        string   `yaml:"timezone" validate:"required"`
	PublicURL       string   `yaml:"publicURL" validate:"required,url"`
	SupportURL      string   `yaml:"supportURL"`

	KV       KVConfig       `yaml:"kv"`
	Panel    PanelConfig    `yaml:"pterodactyl"`
	Renewals RenewalConfig  `yaml:"renewals"`
	Linkpays LinkpaysConfig `yaml:"linkpays"`

	location *time.Location
}

type KVConfig struct {
	Backend     string `yaml:"backend" validate:"oneof=postgres dynamo memory"`
	DynamoTable string `yaml:"dynamoTable" validate:"required_if=Backend dynamo"`
	AWSRegion   string `yaml:"awsRegion" validate:"required_if=Backend dynamo"`
}

type PanelConfig struct {
	Domain   string `yaml:"domain" validate:"required,url"`
	APIKey   string `yaml:"key" validate:"required"`
	PageSize int    `yaml:"pageSize" validate:"min=1,max=10000"`
}

type RenewalConfig struct {
	Enabled       bool          `yaml:"status"`
	DelayDays     int           `yaml:"delay" validate:"min=1"`
	Cost          int64         `yaml:"cost" validate:"min=0"`
	SweepInterval time.Duration `yaml:"sweepInterval" validate:"min=1s"`
}

type LinkpaysConfig struct {
	APIKeys []string `yaml:"apiKeys"`
	// ServiceURL is the shortener API endpoint, e.g. https://linkpays.in/api.
	ServiceURL        string `yaml:"serviceURL" validate:"required,url"`
	AliasPrefix       string `yaml:"aliasPrefix"`
	DailyLimit        int    `yaml:"dailyLimit" validate:"min=1"`
	CooldownMinutes   int    `yaml:"cooldown" validate:"min=0"`
	MinTimeToComplete int    `yaml:"minTimeToComplete" validate:"min=0"`
	Coins             int64  `yaml:"coins" validate:"min=1"`
	// CacheSize bounds the in-memory code and cooldown tables.
	CacheSize int `yaml:"cacheSize" validate:"min=1"`
}

func defaults() *Config {
	return &Config{
		HTTPAddr:    ":8080",
		CORSOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
		Timezone:    "UTC",
		PublicURL:   "http://localhost:8080",
		SupportURL:  "https://discord.gg/",
		KV:          KVConfig{Backend: "postgres"},
		Panel:       PanelConfig{PageSize: 100},
		Renewals: RenewalConfig{
			Enabled:       true,
			DelayDays:     7,
			Cost:          100,
			SweepInterval: 10 * time.Second,
		},
		Linkpays: LinkpaysConfig{
			ServiceURL:        "https://linkpays.in/api",
			AliasPrefix:       "dashgg",
			DailyLimit:        10,
			CooldownMinutes:   10,
			MinTimeToComplete: 30,
			Coins:             10,
			CacheSize:         10000,
		},
	}
}

// Load reads .env, then the optional SETTINGS_FILE (YAML), then environment
// overrides, and validates the result.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}

	cfg := defaults()

	if path := os.Getenv("SETTINGS_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read settings file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse settings file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	setString(&c.HTTPAddr, "HTTP_ADDR")
	setString(&c.DatabaseURL, "DATABASE_URL")
	setString(&c.JWTSecret, "JWT_SECRET")
	setList(&c.CORSOrigins, "CORS_ORIGINS")
	setString(&c.MetricsUser, "METRICS_USER")
	setString(&c.MetricsPassword, "METRICS_PASSWORD")
	setString(&c.Timezone, "TIMEZONE")
	setString(&c.PublicURL, "PUBLIC_URL")
	setString(&c.SupportURL, "SUPPORT_URL")

	setString(&c.KV.Backend, "KV_BACKEND")
	setString(&c.KV.DynamoTable, "KV_DYNAMO_TABLE")
	setString(&c.KV.AWSRegion, "AWS_REGION")

	setString(&c.Panel.Domain, "PANEL_DOMAIN")
	setString(&c.Panel.APIKey, "PANEL_API_KEY")

	c.Renewals.Enabled = envFlag("RENEWALS_ENABLED", c.Renewals.Enabled)
	setList(&c.Linkpays.APIKeys, "LINKPAYS_API_KEYS")
	setString(&c.Linkpays.ServiceURL, "LINKPAYS_SERVICE_URL")
	setString(&c.Linkpays.AliasPrefix, "LINKPAYS_ALIAS_PREFIX")

	ints := []struct {
		key string
		dst *int
	}{
		{"PANEL_PAGE_SIZE", &c.Panel.PageSize},
		{"RENEWAL_DELAY_DAYS", &c.Renewals.DelayDays},
		{"LINKPAYS_DAILY_LIMIT", &c.Linkpays.DailyLimit},
		{"LINKPAYS_COOLDOWN_MINUTES", &c.Linkpays.CooldownMinutes},
		{"LINKPAYS_MIN_TIME_TO_COMPLETE", &c.Linkpays.MinTimeToComplete},
		{"LINKPAYS_CACHE_SIZE", &c.Linkpays.CacheSize},
	}
	for _, i := range ints {
		if err := setInt(i.dst, i.key); err != nil {
			return err
		}
	}
	if err := setInt64(&c.Renewals.Cost, "RENEWAL_COST"); err != nil {
		return err
	}
	if err := setInt64(&c.Linkpays.Coins, "LINKPAYS_COINS"); err != nil {
		return err
	}

	if v := os.Getenv("RENEWAL_SWEEP_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("RENEWAL_SWEEP_INTERVAL: %w", err)
		}
		c.Renewals.SweepInterval = d
	}
	return nil
}

var validate = validator.New()

// Validate checks struct rules and resolves the timezone.
func (c *Config) Validate() error {
	c.Panel.Domain = strings.TrimRight(c.Panel.Domain, "/")
	c.PublicURL = strings.TrimRight(c.PublicURL, "/")

	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	// Accounts always live in Postgres, whatever the KV backend.
	if c.DatabaseURL == "" {
		return fmt.Errorf("invalid config: DATABASE_URL is required")
	}

	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return fmt.Errorf("invalid TIMEZONE %q: %w", c.Timezone, err)
	}
	c.location = loc
	return nil
}

// Location is the timezone daily counters roll over in.
func (c *Config) Location() *time.Location {
	if c.location == nil {
		return time.UTC
	}
	return c.location
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setList(dst *[]string, key string) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	*dst = out
}

func setInt(dst *int, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = n
	return nil
}

func setInt64(dst *int64, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = n
	return nil
}

func envFlag(name string, fallback bool) bool {
	val := os.Getenv(name)
	if val == "" {
		return fallback
	}
	return val == "true" || val == "1" || val == "yes"
}
