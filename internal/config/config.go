package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port        string `yaml:"port"`
		CORS        bool   `yaml:"cors"`
		ReadTimeout string `yaml:"read_timeout"`
	} `yaml:"server"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
	Store struct {
		Driver     string `yaml:"driver"`
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"store"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Lock struct {
		TTL string `yaml:"ttl"`
	} `yaml:"lock"`
	Provider struct {
		Kind    string `yaml:"kind"`
		Timeout string `yaml:"timeout"`
		OpenTDB struct {
			URL      string `yaml:"url"`
			UseToken bool   `yaml:"use_token"`
		} `yaml:"opentdb"`
		OpenAI struct {
			APIKey  string `yaml:"api_key"`
			Model   string `yaml:"model"`
			BaseURL string `yaml:"base_url"`
		} `yaml:"openai"`
	} `yaml:"provider"`
	Random struct {
		Source  string `yaml:"source"`
		DiceURL string `yaml:"dice_url"`
	} `yaml:"random"`
}

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"

	ProviderOpenTDB = "opentdb"
	ProviderOpenAI  = "openai"

	RandomDiceAPI = "diceapi"
	RandomLocal   = "local"
)

// Default returns the configuration used when no file is present.
func Default() Config {
	cfg := Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads YAML config from path. A missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return cfg, err
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	if cfg.Provider.OpenAI.APIKey == "" {
		cfg.Provider.OpenAI.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = "8080"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
	if c.Store.Driver == "" {
		c.Store.Driver = DriverSQLite
	}
	if c.Store.SQLitePath == "" {
		c.Store.SQLitePath = "trivia.sqlite"
	}
	if c.Provider.Kind == "" {
		c.Provider.Kind = ProviderOpenTDB
	}
	if c.Provider.OpenTDB.URL == "" {
		c.Provider.OpenTDB.URL = "https://opentdb.com"
	}
	if c.Provider.OpenAI.Model == "" {
		c.Provider.OpenAI.Model = "gpt-4o"
	}
	if c.Random.Source == "" {
		c.Random.Source = RandomDiceAPI
	}
	if c.Random.DiceURL == "" {
		c.Random.DiceURL = "http://roll.diceapi.com"
	}
}

// Validate rejects unknown drivers and incomplete backend settings.
func (c Config) Validate() error {
	switch c.Store.Driver {
	case DriverSQLite, DriverMemory:
	case DriverPostgres:
		if c.Postgres.URL == "" {
			return fmt.Errorf("store driver %q requires postgres.url", c.Store.Driver)
		}
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}
	switch c.Provider.Kind {
	case ProviderOpenTDB:
	case ProviderOpenAI:
		if c.Provider.OpenAI.APIKey == "" {
			return fmt.Errorf("provider %q requires an api key", c.Provider.Kind)
		}
	default:
		return fmt.Errorf("unknown provider %q", c.Provider.Kind)
	}
	switch c.Random.Source {
	case RandomDiceAPI, RandomLocal:
	default:
		return fmt.Errorf("unknown random source %q", c.Random.Source)
	}
	return nil
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
