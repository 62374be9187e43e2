package cli

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// DefaultSettingsFile is read from the working directory when --config is not set.
const DefaultSettingsFile = "callflow.yaml"

// Backends accepted by Settings.Backend.
const (
	BackendFile   = "file"
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendSQLite = "sqlite"
)

// Settings are the process-level settings of the callflow binary.
type Settings struct {
	Listen      string           `yaml:"listen"`
	DataDir     string           `yaml:"data_dir"`
	PathwayFile string           `yaml:"pathway_file"`
	Backend     string           `yaml:"backend"`
	Redis       RedisSettings    `yaml:"redis"`
	SQLitePath  string           `yaml:"sqlite_path"`
	Provider    ProviderSettings `yaml:"provider"`
	Log         LogSettings      `yaml:"log"`
	EnvFile     string           `yaml:"env_file"`
}

type RedisSettings struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	Prefix   string        `yaml:"prefix"`
	TTL      time.Duration `yaml:"ttl"`
	// Lock enables the distributed per-call lock for multi-replica deployments.
	Lock bool `yaml:"lock"`
}

type ProviderSettings struct {
	Timeout          time.Duration `yaml:"timeout"`
	MaxRetries       int           `yaml:"max_retries"`
	OpenAIBaseURL    string        `yaml:"openai_base_url"`
	AnthropicBaseURL string        `yaml:"anthropic_base_url"`
}

type LogSettings struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DefaultSettings returns the settings used when nothing is configured.
func DefaultSettings() Settings {
	return Settings{
		Listen:  "0.0.0.0:5000",
		DataDir: ".",
		Backend: BackendFile,
		Redis: RedisSettings{
			Addr:   "localhost:6379",
			Prefix: "callflow:call:",
		},
		Provider: ProviderSettings{
			Timeout:    60 * time.Second,
			MaxRetries: 2,
		},
		Log: LogSettings{
			Level:  "info",
			Format: "text",
		},
		EnvFile: ".env",
	}
}

// LoadSettings overlays the YAML file at path on the defaults.
// A missing file is only an error when required is true.
func LoadSettings(path string, required bool) (Settings, error) {
	s := DefaultSettings()
	if path == "" {
		return s, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !required {
			return s, nil
		}
		return s, fmt.Errorf("failed to read settings: %w", err)
	}
	if err := yaml.Unmarshal(data, &s); err != nil {
		return s, fmt.Errorf("failed to parse settings %s: %w", path, err)
	}
	return s, s.Validate()
}

// Validate checks enumerated fields.
func (s Settings) Validate() error {
	switch s.Backend {
	case BackendFile, BackendMemory, BackendRedis, BackendSQLite:
	default:
		return fmt.Errorf("unknown backend %q (want file, memory, redis or sqlite)", s.Backend)
	}
	switch s.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log format %q (want text or json)", s.Log.Format)
	}
	if s.Provider.MaxRetries < 0 {
		return fmt.Errorf("provider max retries must not be negative")
	}
	return nil
}

// LoadEnv loads KEY=VALUE pairs from file into the process environment without
// overriding variables that are already set. A missing file is ignored.
func LoadEnv(file string) error {
	if file == "" {
		return nil
	}
	if _, err := os.Stat(file); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return godotenv.Load(file)
}

type flagBinding struct {
	name  string
	apply func(dst, src *Settings)
}

var flagBindings = []flagBinding{
	{"listen", func(d, s *Settings) { d.Listen = s.Listen }},
	{"data-dir", func(d, s *Settings) { d.DataDir = s.DataDir }},
	{"pathway", func(d, s *Settings) { d.PathwayFile = s.PathwayFile }},
	{"backend", func(d, s *Settings) { d.Backend = s.Backend }},
	{"redis-addr", func(d, s *Settings) { d.Redis.Addr = s.Redis.Addr }},
	{"redis-password", func(d, s *Settings) { d.Redis.Password = s.Redis.Password }},
	{"redis-db", func(d, s *Settings) { d.Redis.DB = s.Redis.DB }},
	{"redis-prefix", func(d, s *Settings) { d.Redis.Prefix = s.Redis.Prefix }},
	{"redis-ttl", func(d, s *Settings) { d.Redis.TTL = s.Redis.TTL }},
	{"redis-lock", func(d, s *Settings) { d.Redis.Lock = s.Redis.Lock }},
	{"sqlite-path", func(d, s *Settings) { d.SQLitePath = s.SQLitePath }},
	{"provider-timeout", func(d, s *Settings) { d.Provider.Timeout = s.Provider.Timeout }},
	{"provider-retries", func(d, s *Settings) { d.Provider.MaxRetries = s.Provider.MaxRetries }},
	{"log-level", func(d, s *Settings) { d.Log.Level = s.Log.Level }},
	{"log-format", func(d, s *Settings) { d.Log.Format = s.Log.Format }},
	{"env-file", func(d, s *Settings) { d.EnvFile = s.EnvFile }},
}

// BindFlags registers the settings flags on fs, writing parsed values into target.
func BindFlags(fs *pflag.FlagSet, target *Settings) {
	d := DefaultSettings()
	fs.StringVar(&target.Listen, "listen", d.Listen, "HTTP listen address")
	fs.StringVar(&target.DataDir, "data-dir", d.DataDir, "Directory holding pathways, call states and config")
	fs.StringVar(&target.PathwayFile, "pathway", d.PathwayFile, "Pathway file (.json or .yaml); default <data-dir>/pathways.json")
	fs.StringVar(&target.Backend, "backend", d.Backend, "Call-state backend: file, memory, redis or sqlite")
	fs.StringVar(&target.Redis.Addr, "redis-addr", d.Redis.Addr, "Redis address")
	fs.StringVar(&target.Redis.Password, "redis-password", d.Redis.Password, "Redis password")
	fs.IntVar(&target.Redis.DB, "redis-db", d.Redis.DB, "Redis database")
	fs.StringVar(&target.Redis.Prefix, "redis-prefix", d.Redis.Prefix, "Redis key prefix")
	fs.DurationVar(&target.Redis.TTL, "redis-ttl", d.Redis.TTL, "Expiry of call states in Redis (0 keeps them forever)")
	fs.BoolVar(&target.Redis.Lock, "redis-lock", d.Redis.Lock, "Use a Redis lock per call (multi-replica deployments)")
	fs.StringVar(&target.SQLitePath, "sqlite-path", d.SQLitePath, "SQLite database; default <data-dir>/call_states.db")
	fs.DurationVar(&target.Provider.Timeout, "provider-timeout", d.Provider.Timeout, "Deadline of a provider call")
	fs.IntVar(&target.Provider.MaxRetries, "provider-retries", d.Provider.MaxRetries, "Retries of failed provider requests")
	fs.StringVar(&target.Log.Level, "log-level", d.Log.Level, "Log level: debug, info, warn, error")
	fs.StringVar(&target.Log.Format, "log-format", d.Log.Format, "Log format: text or json")
	fs.StringVar(&target.EnvFile, "env-file", d.EnvFile, "dotenv file with provider credentials")
}

// ApplyFlags copies the flags explicitly set on fs from flagged onto s.
func ApplyFlags(fs *pflag.FlagSet, s Settings, flagged Settings) Settings {
	for _, b := range flagBindings {
		if f := fs.Lookup(b.name); f != nil && f.Changed {
			b.apply(&s, &flagged)
		}
	}
	return s
}
