// Package cli implements the ssmkv command-line tools. Each tool is a function from arguments to an exit code so
// it can run against an in-memory store in tests.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"github.com/mplewis/ssmkv"
	"github.com/mplewis/ssmkv/config"
)

// Exit codes.
const (
	ExitOK      = 0
	ExitFailure = 1
	ExitUsage   = 2
)

// Opener builds a Store from configuration. The returned function releases the Store's connections.
type Opener func(ctx context.Context, cfg config.Config, log *logrus.Logger) (*ssmkv.Store, func() error, error)

// Env is everything a tool takes from its surroundings.
type Env struct {
	Stdout io.Writer
	Stderr io.Writer
	Lookup config.LookupFunc
	Open   Opener
}

// DefaultEnv runs tools against the process environment and the real backends.
func DefaultEnv() Env {
	return Env{Stdout: os.Stdout, Stderr: os.Stderr, Lookup: os.LookupEnv, Open: Open}
}

// command holds the flag set and the flags every tool accepts.
type command struct {
	name       string
	fs         *pflag.FlagSet
	configPath string
	backend    string
	region     string
	namespace  string
	logLevel   string
	timeout    time.Duration
}

func newCommand(name, summary string, env Env) *command {
	c := &command{name: name, fs: pflag.NewFlagSet(name, pflag.ContinueOnError)}
	c.fs.SetOutput(env.Stderr)
	// accept --is_json as well as --is-json
	c.fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})
	c.fs.Usage = func() {
		fmt.Fprintf(env.Stderr, "%s: %s\n\nUsage of %s:\n%s", name, summary, name, c.fs.FlagUsages())
	}
	defaultPath, _ := env.Lookup("SSMKV_CONFIG")
	c.fs.StringVar(&c.configPath, "config", defaultPath, "YAML configuration file (env SSMKV_CONFIG)")
	c.fs.StringVar(&c.backend, "backend", "", "parameter store backend: ssm, s3 or redis")
	c.fs.StringVar(&c.region, "region", "", "AWS region")
	c.fs.StringVar(&c.namespace, "namespace", "", "prefix for parameter names")
	c.fs.StringVar(&c.logLevel, "log-level", "", "log level")
	c.fs.DurationVar(&c.timeout, "timeout", 0, "deadline for the whole operation")
	return c
}

// load layers the config file, the environment and the flags, then validates the result.
func (c *command) load(env Env) (config.Config, error) {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return cfg, err
	}
	if err := cfg.ApplyEnv(env.Lookup); err != nil {
		return cfg, err
	}
	if c.fs.Changed("backend") {
		cfg.Backend = c.backend
	}
	if c.fs.Changed("region") {
		cfg.Region = c.region
	}
	if c.fs.Changed("namespace") {
		cfg.Namespace = c.namespace
	}
	if c.fs.Changed("log-level") {
		cfg.Log.Level = c.logLevel
	}
	if c.fs.Changed("timeout") {
		cfg.Timeout = c.timeout
	}
	return cfg, cfg.Validate()
}

// run parses args and checks them before anything else happens, then opens the store and runs op under the
// configured deadline.
func (c *command) run(env Env, args []string, check func() error, op func(ctx context.Context, store *ssmkv.Store) error) int {
	if err := c.fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return ExitOK
		}
		return ExitUsage
	}
	if err := check(); err != nil {
		fmt.Fprintf(env.Stderr, "%s: %v\n", c.name, err)
		c.fs.Usage()
		return ExitUsage
	}

	cfg, err := c.load(env)
	if err != nil {
		fmt.Fprintf(env.Stderr, "%s: invalid configuration: %v\n", c.name, err)
		return ExitFailure
	}
	log := NewLogger(cfg.Log, env.Stderr)

	ctx := context.Background()
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	store, closeStore, err := env.Open(ctx, cfg, log)
	if err != nil {
		log.WithError(err).Errorf("Failed to open the %s parameter store", cfg.Backend)
		return ExitFailure
	}
	defer func() {
		if err := closeStore(); err != nil {
			log.WithError(err).Warn("Failed to close the parameter store")
		}
	}()

	if err := op(ctx, store); err != nil {
		log.WithError(err).Errorf("%s failed", c.name)
		if errors.Is(err, ssmkv.ErrInvalidArgument) {
			return ExitUsage
		}
		return ExitFailure
	}
	return ExitOK
}

func required(c *command, flags ...string) error {
	for _, f := range flags {
		if !c.fs.Changed(f) {
			return fmt.Errorf("--%s is required", f)
		}
	}
	return nil
}

func kindOf(isJSON bool) ssmkv.Kind {
	if isJSON {
		return ssmkv.KindMap
	}
	return ssmkv.KindSet
}
