// Package config loads run configuration from files and the environment.
//
// A run file holds the pipeline options under [run] plus the settings of the
// optional backends. TOML and YAML are supported, chosen by extension:
//
//	[run]
//	input = "data/control"
//	w = [0.25, 0.5, 0.75]
//	nbsize = 10
//	d = 100
//
//	[cache]
//	backend = "redis"
//	redis_url = "redis://localhost:6379/0"
//
// Environment variables prefixed with MLTN2V_ override file values, and a
// .env file in the working directory is read first if present. CLI flags
// are applied last by the caller.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/matzehuels/mltn2v/pkg/errors"
	"github.com/matzehuels/mltn2v/pkg/pipeline"
)

// EnvPrefix prefixes every environment variable read by [ApplyEnv].
const EnvPrefix = "MLTN2V_"

// Cache backends.
const (
	CacheFile  = "file"
	CacheRedis = "redis"
	CacheNone  = "none"
)

// Config is the complete run configuration.
type Config struct {
	Run     pipeline.Options `toml:"run" yaml:"run"`
	Cache   Cache            `toml:"cache" yaml:"cache"`
	Sink    Sink             `toml:"sink" yaml:"sink"`
	Metrics Metrics          `toml:"metrics" yaml:"metrics"`
	Trainer Trainer          `toml:"trainer" yaml:"trainer"`
}

// Cache selects the cache backend. A non-empty Namespace prefixes every
// key so several projects can share one backend.
type Cache struct {
	Backend   string `toml:"backend" yaml:"backend"`
	Dir       string `toml:"dir" yaml:"dir"`
	RedisURL  string `toml:"redis_url" yaml:"redis_url"`
	Namespace string `toml:"namespace" yaml:"namespace"`
}

// Sink configures the optional MongoDB walk sink. An empty URI disables it.
type Sink struct {
	MongoURI   string `toml:"mongo_uri" yaml:"mongo_uri"`
	Database   string `toml:"database" yaml:"database"`
	Collection string `toml:"collection" yaml:"collection"`
}

// Metrics configures the Prometheus endpoint. An empty address disables it.
type Metrics struct {
	Addr string `toml:"addr" yaml:"addr"`
}

// Trainer configures the external word2vec command.
type Trainer struct {
	Binary string   `toml:"binary" yaml:"binary"`
	Args   []string `toml:"args" yaml:"args"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{Cache: Cache{Backend: CacheFile}}
}

// Validate checks the backend settings. Pipeline options are validated by
// the pipeline itself.
func (c *Config) Validate() error {
	switch c.Cache.Backend {
	case CacheFile, CacheNone:
	case CacheRedis:
		if c.Cache.RedisURL == "" {
			return errors.New(errors.ErrCodeInvalidConfig, "redis cache backend requires redis_url")
		}
	default:
		return errors.New(errors.ErrCodeInvalidConfig, "unknown cache backend %q (want file, redis or none)", c.Cache.Backend)
	}
	return nil
}

// Load reads a run file on top of the defaults. An empty path returns the
// defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "read config")
		}
		return nil, errors.Wrap(errors.ErrCodeInvalidPath, err, "read config")
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "parse %s", path)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "parse %s", path)
		}
	default:
		return nil, errors.New(errors.ErrCodeUnsupported, "unsupported config format %q (want .toml, .yaml or .yml)", filepath.Ext(path))
	}
	return cfg, nil
}

// LoadDotEnv loads variables from path into the environment without
// overriding variables that are already set. A missing file is ignored.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfig, err, "load %s", path)
	}
	return nil
}

// ApplyEnv overrides cfg with MLTN2V_* environment variables.
func ApplyEnv(cfg *Config) error {
	run := &cfg.Run
	for _, s := range []struct {
		key string
		dst *string
	}{
		{"INPUT", &run.Input},
		{"OUTPUT", &run.Output},
		{"CACHE", &cfg.Cache.Backend},
		{"CACHE_DIR", &cfg.Cache.Dir},
		{"REDIS_URL", &cfg.Cache.RedisURL},
		{"CACHE_NAMESPACE", &cfg.Cache.Namespace},
		{"MONGO_URI", &cfg.Sink.MongoURI},
		{"METRICS_ADDR", &cfg.Metrics.Addr},
		{"WORD2VEC", &cfg.Trainer.Binary},
	} {
		if v, ok := lookup(s.key); ok {
			*s.dst = v
		}
	}

	for _, s := range []struct {
		key string
		dst *int
	}{
		{"NBSIZE", &run.WalkLength},
		{"N_SAMPLES", &run.SamplesPerNode},
		{"WORKERS", &run.Workers},
		{"MAX_SWITCHES", &run.MaxForcedSwitches},
		{"D", &run.Dimensions},
		{"WINDOW", &run.Window},
		{"W2V_ITER", &run.Epochs},
		{"W2V_WORKERS", &run.TrainWorkers},
	} {
		if v, ok := lookup(s.key); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				return errors.Wrap(errors.ErrCodeInvalidConfig, err, "%s%s", EnvPrefix, s.key)
			}
			*s.dst = n
		}
	}

	for _, s := range []struct {
		key string
		dst *float64
	}{
		{"P", &run.P},
		{"Q", &run.Q},
		{"MIN_SUCCESS", &run.MinSuccessRatio},
	} {
		if v, ok := lookup(s.key); ok {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return errors.Wrap(errors.ErrCodeInvalidConfig, err, "%s%s", EnvPrefix, s.key)
			}
			*s.dst = f
		}
	}

	if v, ok := lookup("THRESH"); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return errors.Wrap(errors.ErrCodeInvalidConfig, err, "%sTHRESH", EnvPrefix)
		}
		run.Threshold = &f
	}
	if v, ok := lookup("SEED"); ok {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return errors.Wrap(errors.ErrCodeInvalidConfig, err, "%sSEED", EnvPrefix)
		}
		run.Seed = n
	}
	if v, ok := lookup("W"); ok {
		ws, err := ParseFloats(v)
		if err != nil {
			return errors.Wrap(errors.ErrCodeInvalidConfig, err, "%sW", EnvPrefix)
		}
		run.WValues = ws
	}
	return nil
}

// ParseFloats parses a comma-separated list of numbers.
func ParseFloats(s string) ([]float64, error) {
	var out []float64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		f, err := strconv.ParseFloat(part, 64)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

func lookup(key string) (string, bool) {
	v, ok := os.LookupEnv(EnvPrefix + key)
	if !ok || strings.TrimSpace(v) == "" {
		return "", false
	}
	return strings.TrimSpace(v), true
}
