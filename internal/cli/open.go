package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"github.com/mplewis/ssmkv"
	"github.com/mplewis/ssmkv/backing"
	"github.com/mplewis/ssmkv/config"
	"github.com/mplewis/ssmkv/lock"
)

// Open builds a Store on the configured backend and lock.
func Open(ctx context.Context, cfg config.Config, log *logrus.Logger) (*ssmkv.Store, func() error, error) {
	var client *redis.Client
	redisClient := func() *redis.Client {
		if client == nil {
			client = redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		}
		return client
	}
	closeAll := func() error {
		if client != nil {
			return client.Close()
		}
		return nil
	}
	fail := func(err error) (*ssmkv.Store, func() error, error) {
		_ = closeAll()
		return nil, nil, err
	}

	var b backing.Backing
	var err error
	switch cfg.Backend {
	case config.BackendSSM:
		b, err = backing.NewSSM(ctx, backing.SSMArgs{Namespace: cfg.Namespace, Region: cfg.Region, Endpoint: cfg.Endpoint})
	case config.BackendS3:
		b, err = backing.NewS3(ctx, backing.S3Args{Bucket: cfg.S3.Bucket, Namespace: cfg.Namespace, Region: cfg.Region, Endpoint: cfg.Endpoint})
	case config.BackendRedis:
		b, err = backing.NewRedis(backing.RedisArgs{Client: redisClient(), Namespace: cfg.Namespace})
	default:
		err = fmt.Errorf("unknown backend %q", cfg.Backend)
	}
	if err != nil {
		return fail(err)
	}

	var locker lock.Locker
	switch cfg.Lock.Kind {
	case config.LockLocal:
		locker = lock.NewLocal(lock.LocalArgs{})
	case config.LockRedis:
		locker, err = lock.NewRedis(lock.RedisArgs{
			Client:    redisClient(),
			Namespace: cfg.Namespace,
			Expiry:    cfg.Lock.Expiry,
			Tries:     cfg.Lock.Tries,
		})
		if err != nil {
			return fail(err)
		}
	}

	noop, err := ssmkv.ParseNoopWrites(cfg.NoopWrites)
	if err != nil {
		return fail(err)
	}
	store, err := ssmkv.New(ssmkv.Args{
		Backing:        b,
		Locker:         locker,
		CompareAndSwap: cfg.CompareAndSwap,
		MaxAttempts:    cfg.MaxAttempts,
		NoopWrites:     noop,
		Logger:         log,
	})
	if err != nil {
		return fail(err)
	}
	log.WithFields(logrus.Fields{"backend": cfg.Backend, "lock": cfg.Lock.Kind, "cas": cfg.CompareAndSwap}).Debug("Opened parameter store")
	return store, closeAll, nil
}

// NewLogger builds the logger for a tool invocation.
func NewLogger(cfg config.LogConfig, out io.Writer) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(out)
	if level, err := logrus.ParseLevel(cfg.Level); err == nil {
		log.SetLevel(level)
	}
	if cfg.Format == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return log
}
