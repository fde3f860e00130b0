package backing

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-redis/redis/v8"
)

// GLOBAL_NAMESPACE prefixes every Redis key written by this package.
const GLOBAL_NAMESPACE = "ssmkv"

const (
	fieldValue   = "value"
	fieldVersion = "version"
)

// Redis stores each parameter as a hash holding its value and a version counter.
type Redis struct {
	namespace string
	client    *redis.Client
}

var _ Versioned = (*Redis)(nil)

// RedisArgs are the arguments for creating a new Redis backing.
type RedisArgs struct {
	Client    *redis.Client // Required.
	Namespace string        // Optional. Separates parameter sets sharing one Redis database.
}

// NewRedis creates a new backing which stores parameters in Redis.
func NewRedis(args RedisArgs) (*Redis, error) {
	if args.Client == nil {
		return nil, errors.New("Redis backing requires a client")
	}
	return &Redis{client: args.Client, namespace: args.Namespace}, nil
}

func (r *Redis) nsKey(name Name) string {
	return fmt.Sprintf("%s:%s:%s", GLOBAL_NAMESPACE, r.namespace, name)
}

// Get returns the value for the given parameter.
func (r *Redis) Get(ctx context.Context, name Name) (string, error) {
	v, err := r.client.HGet(ctx, r.nsKey(name), fieldValue).Result()
	if err == redis.Nil {
		return "", ErrNotFound
	}
	return v, wrap("get", name, err)
}

// Put sets the value for the given parameter.
func (r *Redis) Put(ctx context.Context, name Name, value string, overwrite bool) error {
	if !overwrite {
		err := r.PutIfVersion(ctx, name, value, Missing)
		if errors.Is(err, ErrConflict) {
			return ErrAlreadyExists
		}
		return err
	}
	key := r.nsKey(name)
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, fieldValue, value)
		pipe.HIncrBy(ctx, key, fieldVersion, 1)
		return nil
	})
	return wrap("put", name, err)
}

// GetVersioned returns the value and version for the given parameter.
func (r *Redis) GetVersioned(ctx context.Context, name Name) (Entry, error) {
	return readEntry(ctx, r.client, r.nsKey(name), name)
}

// PutIfVersion sets the value for the given parameter if its version still matches. The check and the write run
// in a WATCH transaction, so a concurrent writer makes the transaction fail with ErrConflict.
func (r *Redis) PutIfVersion(ctx context.Context, name Name, value string, version Version) error {
	key := r.nsKey(name)
	err := r.client.Watch(ctx, func(tx *redis.Tx) error {
		e, err := readEntry(ctx, tx, key, name)
		if errors.Is(err, ErrNotFound) {
			e = Entry{Version: Missing}
		} else if err != nil {
			return err
		}
		if e.Version != version {
			return ErrConflict
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, fieldValue, value)
			pipe.HSet(ctx, key, fieldVersion, int64(version)+1)
			return nil
		})
		return err
	}, key)
	if err == redis.TxFailedErr {
		return ErrConflict
	}
	return wrap("put", name, err)
}

// hashReader is satisfied by both a client and a WATCH transaction.
type hashReader interface {
	HMGet(ctx context.Context, key string, fields ...string) *redis.SliceCmd
}

// readEntry reads a parameter hash.
func readEntry(ctx context.Context, c hashReader, key string, name Name) (Entry, error) {
	vals, err := c.HMGet(ctx, key, fieldValue, fieldVersion).Result()
	if err != nil {
		return Entry{}, wrap("get", name, err)
	}
	value, ok := vals[0].(string)
	if !ok {
		return Entry{}, ErrNotFound
	}
	// a value written without a version counter still exists, so it must not read as Missing
	version := int64(1)
	if s, ok := vals[1].(string); ok {
		if _, err := fmt.Sscan(s, &version); err != nil {
			return Entry{}, wrap("get", name, fmt.Errorf("bad version %q: %w", s, err))
		}
	}
	return Entry{Value: value, Version: Version(version)}, nil
}
