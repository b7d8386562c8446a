package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"

	SequencePostgres = "postgres"
	SequenceRedis    = "redis"
	SequenceMemory   = "memory"
)

type ServerConfig struct {
	Port           int      `yaml:"port"`
	Mode           string   `yaml:"mode"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type DatabaseConfig struct {
	Driver  string `yaml:"driver"`
	DSN     string `yaml:"url"`
	Migrate bool   `yaml:"migrate"`
}

type SequenceConfig struct {
	Backend string `yaml:"backend"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type NATSConfig struct {
	URL  string `yaml:"url"`
	Name string `yaml:"name"`
}

type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type PDFConfig struct {
	FontPath    string `yaml:"font_path"`
	CompanyName string `yaml:"company_name"`
}

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Sequence SequenceConfig `yaml:"sequence"`
	Redis    RedisConfig    `yaml:"redis"`
	NATS     NATSConfig     `yaml:"nats"`
	Auth     AuthConfig     `yaml:"auth"`
	Log      LogConfig      `yaml:"log"`
	PDF      PDFConfig      `yaml:"pdf"`
}

// Load reads the YAML file at path (a missing file is fine), then a .env
// file if present, then applies environment overrides and defaults.
func Load(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		b, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(b, &cfg); err != nil {
				return nil, fmt.Errorf("parse %s: %w", path, err)
			}
		}
	}

	_ = godotenv.Load()
	cfg.applyEnv()
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() {
	if v, ok := envInt("PORT"); ok {
		c.Server.Port = v
	}
	setString(&c.Server.Mode, "GIN_MODE")
	if v := os.Getenv("ALLOWED_ORIGINS"); v != "" {
		c.Server.AllowedOrigins = splitList(v)
	}
	setString(&c.Database.Driver, "STORAGE_DRIVER")
	setString(&c.Database.DSN, "DATABASE_URL")
	if v := os.Getenv("DB_MIGRATE"); v != "" {
		c.Database.Migrate, _ = strconv.ParseBool(v)
	}
	setString(&c.Sequence.Backend, "SEQUENCE_BACKEND")
	setString(&c.Redis.Addr, "REDIS_ADDR")
	setString(&c.Redis.Password, "REDIS_PASSWORD")
	if v, ok := envInt("REDIS_DB"); ok {
		c.Redis.DB = v
	}
	setString(&c.NATS.URL, "NATS_URL")
	setString(&c.Auth.JWTSecret, "JWT_SECRET")
	setString(&c.Log.Level, "LOG_LEVEL")
	setString(&c.Log.Format, "LOG_FORMAT")
	setString(&c.PDF.FontPath, "PDF_FONT_PATH")
	setString(&c.PDF.CompanyName, "PDF_COMPANY_NAME")
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.Mode == "" {
		c.Server.Mode = "debug"
	}
	if len(c.Server.AllowedOrigins) == 0 {
		c.Server.AllowedOrigins = []string{"*"}
	}
	if c.Database.Driver == "" {
		if c.Database.DSN != "" {
			c.Database.Driver = StoragePostgres
		} else {
			c.Database.Driver = StorageMemory
		}
	}
	if c.Sequence.Backend == "" {
		if c.Database.Driver == StoragePostgres {
			c.Sequence.Backend = SequencePostgres
		} else {
			c.Sequence.Backend = SequenceMemory
		}
	}
	if c.NATS.Name == "" {
		c.NATS.Name = "salespipeline"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
	if c.PDF.CompanyName == "" {
		c.PDF.CompanyName = "Sales Pipeline"
	}
}

// Validate rejects combinations the server cannot start with.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case StorageMemory:
		if c.Sequence.Backend == SequencePostgres {
			return errors.New("sequence backend postgres requires storage driver postgres")
		}
	case StoragePostgres:
		if c.Database.DSN == "" {
			return errors.New("database url is required for the postgres driver")
		}
		if c.Sequence.Backend == SequenceMemory {
			return errors.New("sequence backend memory restarts from 1 and would reuse display ids stored in postgres")
		}
	default:
		return fmt.Errorf("unknown storage driver %q", c.Database.Driver)
	}
	switch c.Sequence.Backend {
	case SequencePostgres, SequenceMemory:
	case SequenceRedis:
		if c.Redis.Addr == "" {
			return errors.New("redis addr is required for the redis sequence backend")
		}
	default:
		return fmt.Errorf("unknown sequence backend %q", c.Sequence.Backend)
	}
	if c.Auth.JWTSecret == "" {
		return errors.New("jwt secret is required")
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.Server.Mode == "release"
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envInt(key string) (int, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
