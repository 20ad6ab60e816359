// Package config loads planner configuration from YAML with environment overrides.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	yaml "gopkg.in/yaml.v3"
)

type Config struct {
	LocationsFile string `yaml:"locations_file"`
	WeightsFile   string `yaml:"weights_file"`
	CSVFile       string `yaml:"csv_file"`

	Capacity     int   `yaml:"capacity" validate:"gte=0"`
	Penalty      int64 `yaml:"penalty" validate:"gte=0"`
	MaxRouteCost int64 `yaml:"max_route_cost" validate:"gt=0"`

	Distance Distance  `yaml:"distance"`
	Cache    Cache     `yaml:"cache"`
	Solver   Solver    `yaml:"solver"`
	Store    Store     `yaml:"store"`
	HTTP     HTTP      `yaml:"http"`
	Auth     Auth      `yaml:"auth"`
	Webhooks []Webhook `yaml:"webhooks" validate:"dive"`
	Log      Log       `yaml:"log"`
	Report   Report    `yaml:"report"`
}

type Distance struct {
	Provider        string        `yaml:"provider" validate:"oneof=google haversine"`
	BaseURL         string        `yaml:"base_url" validate:"omitempty,url"`
	APIKey          string        `yaml:"api_key"`
	Mode            string        `yaml:"mode" validate:"oneof=driving walking bicycling transit"`
	Metric          string        `yaml:"metric" validate:"oneof=duration distance"`
	UnreachableCost int64         `yaml:"unreachable_cost" validate:"gt=0"`
	Strict          bool          `yaml:"strict"`
	MaxDestinations int           `yaml:"max_destinations" validate:"gte=1,lte=25"`
	RatePerSecond   float64       `yaml:"rate_per_second" validate:"gte=0"`
	Burst           int           `yaml:"burst" validate:"gte=1"`
	Concurrency     int           `yaml:"concurrency" validate:"gte=1"`
	Timeout         time.Duration `yaml:"timeout" validate:"gt=0"`
	SpeedKph        float64       `yaml:"speed_kph" validate:"gt=0"`
}

type Cache struct {
	Enabled  bool          `yaml:"enabled"`
	RedisURL string        `yaml:"redis_url"`
	TTL      time.Duration `yaml:"ttl" validate:"gte=0"`
}

type Solver struct {
	DurationLimit time.Duration `yaml:"duration_limit" validate:"gte=0"`
	Threads       int           `yaml:"threads" validate:"gte=0"`
}

type Store struct {
	DatabaseURL string `yaml:"database_url"`
	Migrate     bool   `yaml:"migrate"`
}

type HTTP struct {
	Addr            string        `yaml:"addr" validate:"required"`
	AllowOrigins    []string      `yaml:"allow_origins"`
	RateRPS         float64       `yaml:"rate_rps" validate:"gte=0"`
	RateBurst       int           `yaml:"rate_burst" validate:"gte=0"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" validate:"gt=0"`
	RedisURL        string        `yaml:"redis_url"`
}

type Auth struct {
	Mode       string   `yaml:"mode" validate:"oneof=dev token hmac"`
	Tokens     []string `yaml:"tokens" validate:"required_if=Mode token"`
	HMACSecret string   `yaml:"hmac_secret" validate:"required_if=Mode hmac"`
	RoleClaim  string   `yaml:"role_claim"`
}

type Webhook struct {
	URL    string   `yaml:"url" validate:"required,url"`
	Secret string   `yaml:"secret"`
	Events []string `yaml:"events" validate:"min=1"`
}

type Log struct {
	Level       string `yaml:"level" validate:"oneof=debug info warn error"`
	Development bool   `yaml:"development"`
}

type Report struct {
	Style string `yaml:"style" validate:"oneof=names loads"`
}

// DefaultMaxRouteCost bounds the cumulative cost of the route.
const DefaultMaxRouteCost = 648000

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		LocationsFile: "locations.txt",
		WeightsFile:   "weights.txt",
		Capacity:      400,
		Penalty:       4000000,
		MaxRouteCost:  DefaultMaxRouteCost,
		Distance: Distance{
			Provider:        "google",
			BaseURL:         "https://maps.googleapis.com/maps/api/distancematrix/json",
			Mode:            "driving",
			Metric:          "duration",
			UnreachableCost: 100000,
			MaxDestinations: 25,
			RatePerSecond:   10,
			Burst:           10,
			Concurrency:     4,
			Timeout:         10 * time.Second,
			SpeedKph:        50,
		},
		Cache:  Cache{TTL: 24 * time.Hour},
		Solver: Solver{DurationLimit: 10 * time.Second},
		Store:  Store{Migrate: true},
		HTTP: HTTP{
			Addr:            ":8080",
			ShutdownTimeout: 10 * time.Second,
		},
		Auth:   Auth{Mode: "dev", RoleClaim: "role"},
		Log:    Log{Level: "info"},
		Report: Report{Style: "names"},
	}
}

// Load reads path (a missing file is not an error), applies env overrides and validates.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse config %s: %w", path, err)
			}
		case errors.Is(err, fs.ErrNotExist):
		default:
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("DISTANCE_MATRIX_API_KEY"); v != "" {
		c.Distance.APIKey = v
	}
	if v := os.Getenv("DISTANCE_PROVIDER"); v != "" {
		c.Distance.Provider = strings.ToLower(v)
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.Store.DatabaseURL = v
	}
	if v := os.Getenv("DB_MIGRATE"); v != "" {
		c.Store.Migrate = v != "false"
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		c.Cache.RedisURL = v
		c.HTTP.RedisURL = v
	}
	if v := os.Getenv("PORT"); v != "" {
		c.HTTP.Addr = ":" + v
	}
	if v := os.Getenv("ALLOW_ORIGINS"); v != "" {
		c.HTTP.AllowOrigins = strings.Split(v, ",")
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = strings.ToLower(v)
	}
	if v := os.Getenv("AUTH_MODE"); v != "" {
		c.Auth.Mode = strings.ToLower(v)
	}
	if v := os.Getenv("AUTH_HMAC_SECRET"); v != "" {
		c.Auth.HMACSecret = v
	}
	if v := os.Getenv("AUTH_TOKENS"); v != "" {
		c.Auth.Tokens = strings.Split(v, ",")
	}
	if v := os.Getenv("RATE_RPS"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("RATE_RPS: %w", err)
		}
		c.HTTP.RateRPS = f
	}
	if v := os.Getenv("RATE_BURST"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("RATE_BURST: %w", err)
		}
		c.HTTP.RateBurst = n
	}
	return nil
}

// Validate checks the struct constraints.
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
