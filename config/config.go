// Package config loads the settings shared by the ssmkv command-line tools.
//
// Settings come from an optional YAML file, then SSMKV_* environment variables, then command-line flags, each
// layer overriding the one before.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/thoas/go-funk"
	"gopkg.in/yaml.v3"
)

const (
	BackendSSM   = "ssm"
	BackendS3    = "s3"
	BackendRedis = "redis"

	LockNone  = "none"
	LockLocal = "local"
	LockRedis = "redis"
)

var (
	backends   = []string{BackendSSM, BackendS3, BackendRedis}
	lockKinds  = []string{LockNone, LockLocal, LockRedis}
	noopModes  = []string{"default", "write", "skip"}
	logFormats = []string{"text", "json"}
	logLevels  = []string{"trace", "debug", "info", "warn", "warning", "error", "fatal", "panic"}
)

// Config is the complete configuration of a tool invocation.
type Config struct {
	Backend        string        `yaml:"backend"`
	Namespace      string        `yaml:"namespace"`
	Region         string        `yaml:"region"`
	Endpoint       string        `yaml:"endpoint"`
	S3             S3Config      `yaml:"s3"`
	Redis          RedisConfig   `yaml:"redis"`
	Lock           LockConfig    `yaml:"lock"`
	CompareAndSwap bool          `yaml:"compareAndSwap"`
	MaxAttempts    int           `yaml:"maxAttempts"`
	NoopWrites     string        `yaml:"noopWrites"`
	Timeout        time.Duration `yaml:"timeout"`
	Log            LogConfig     `yaml:"log"`
}

type S3Config struct {
	Bucket string `yaml:"bucket"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// LockConfig selects the lock held around updates. Redis locks use the Redis settings above.
type LockConfig struct {
	Kind   string        `yaml:"kind"`
	Expiry time.Duration `yaml:"expiry"`
	Tries  int           `yaml:"tries"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the configuration used when nothing else is set.
func Default() Config {
	return Config{
		Backend:     BackendSSM,
		Redis:       RedisConfig{Addr: "localhost:6379"},
		Lock:        LockConfig{Kind: LockNone},
		MaxAttempts: 5,
		NoopWrites:  "default",
		Timeout:     30 * time.Second,
		Log:         LogConfig{Level: "info", Format: "text"},
	}
}

// Load reads the YAML file at path over the defaults. An empty path returns the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}

// LookupFunc looks up an environment variable, like os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// ApplyEnv overrides settings from SSMKV_* environment variables.
func (c *Config) ApplyEnv(lookup LookupFunc) error {
	var result *multierror.Error
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok {
			*dst = v
		}
	}
	num := func(key string, dst *int) {
		if v, ok := lookup(key); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				result = multierror.Append(result, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	str("SSMKV_BACKEND", &c.Backend)
	str("SSMKV_NAMESPACE", &c.Namespace)
	str("SSMKV_REGION", &c.Region)
	str("SSMKV_ENDPOINT", &c.Endpoint)
	str("SSMKV_S3_BUCKET", &c.S3.Bucket)
	str("SSMKV_REDIS_ADDR", &c.Redis.Addr)
	str("SSMKV_REDIS_PASSWORD", &c.Redis.Password)
	num("SSMKV_REDIS_DB", &c.Redis.DB)
	str("SSMKV_LOCK", &c.Lock.Kind)
	str("SSMKV_NOOP_WRITES", &c.NoopWrites)
	str("SSMKV_LOG_LEVEL", &c.Log.Level)
	str("SSMKV_LOG_FORMAT", &c.Log.Format)
	if v, ok := lookup("SSMKV_CAS"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("SSMKV_CAS: %w", err))
		} else {
			c.CompareAndSwap = b
		}
	}
	return result.ErrorOrNil()
}

// Validate reports every problem with the configuration at once.
func (c Config) Validate() error {
	var result *multierror.Error
	oneOf := func(field, value string, allowed []string) {
		if !funk.ContainsString(allowed, value) {
			result = multierror.Append(result, fmt.Errorf("%s must be one of %v, got %q", field, allowed, value))
		}
	}
	oneOf("backend", c.Backend, backends)
	oneOf("lock.kind", c.Lock.Kind, lockKinds)
	oneOf("noopWrites", c.NoopWrites, noopModes)
	oneOf("log.format", c.Log.Format, logFormats)
	oneOf("log.level", c.Log.Level, logLevels)

	if c.Backend == BackendS3 {
		if c.S3.Bucket == "" {
			result = multierror.Append(result, errors.New("s3.bucket is required for the s3 backend"))
		}
		if c.Namespace == "" {
			result = multierror.Append(result, errors.New("namespace is required for the s3 backend"))
		}
	}
	if (c.Backend == BackendRedis || c.Lock.Kind == LockRedis) && c.Redis.Addr == "" {
		result = multierror.Append(result, errors.New("redis.addr is required to use redis"))
	}
	if c.CompareAndSwap && c.Backend != BackendRedis {
		result = multierror.Append(result, fmt.Errorf("compareAndSwap is not supported by the %s backend", c.Backend))
	}
	if c.MaxAttempts < 1 {
		result = multierror.Append(result, fmt.Errorf("maxAttempts must be positive, got %d", c.MaxAttempts))
	}
	if c.Timeout < 0 {
		result = multierror.Append(result, fmt.Errorf("timeout must not be negative, got %s", c.Timeout))
	}
	return result.ErrorOrNil()
}
