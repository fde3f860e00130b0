// Package lock serializes read-modify-write cycles on a parameter.
//
// Parameter updates are not atomic: two writers racing on one name lose one of the updates. A Locker held for
// the duration of an update prevents that for every writer that uses the same Locker (Local) or the same Redis
// (Redis). Writers that bypass the lock still race.
package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredislib "github.com/go-redis/redis/v8"
	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v8"

	"github.com/mplewis/ssmkv/multilock"
)

// Release gives up a held lock.
type Release func() error

// Locker acquires an exclusive lock on a parameter name.
type Locker interface {
	Lock(ctx context.Context, name string) (Release, error)
}

// Default values for Args values, if unset.
const (
	DEFAULT_LOCK_TIMEOUT = 5 * time.Second
	DEFAULT_EXPIRY       = 15 * time.Second
	DEFAULT_TRIES        = 32
)

// Local locks parameter names within this process.
type Local struct {
	locks   *multilock.MultiLock
	timeout time.Duration
}

// LocalArgs is the set of arguments for creating a new Local. All are optional.
type LocalArgs struct {
	LockTimeout time.Duration // How long to wait for a name held by someone else before giving up.
}

// NewLocal builds a Local locker.
func NewLocal(args LocalArgs) *Local {
	if args.LockTimeout == 0 {
		args.LockTimeout = DEFAULT_LOCK_TIMEOUT
	}
	return &Local{locks: multilock.New(), timeout: args.LockTimeout}
}

// Lock acquires the lock for name, waiting up to the lock timeout or until ctx is done.
func (l *Local) Lock(ctx context.Context, name string) (Release, error) {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()
	if !l.locks.Acquire(ctx, name) {
		return nil, fmt.Errorf("timed out locking parameter %s: %w", name, ctx.Err())
	}
	return func() error {
		l.locks.Release(name)
		return nil
	}, nil
}

// Redis locks parameter names across processes with the Redlock algorithm.
type Redis struct {
	rs     *redsync.Redsync
	prefix string
	expiry time.Duration
	tries  int
}

// RedisArgs are the arguments for creating a new Redis locker.
type RedisArgs struct {
	Client    *goredislib.Client // Required.
	Namespace string             // Optional. Separates lock names sharing one Redis database.
	Expiry    time.Duration      // Optional. How long a lock lives if its holder never releases it.
	Tries     int                // Optional. How many attempts are made to acquire a held lock.
}

// NewRedis builds a Redis locker.
func NewRedis(args RedisArgs) (*Redis, error) {
	if args.Client == nil {
		return nil, errors.New("Redis locker requires a client")
	}
	if args.Expiry == 0 {
		args.Expiry = DEFAULT_EXPIRY
	}
	if args.Tries == 0 {
		args.Tries = DEFAULT_TRIES
	}
	return &Redis{
		rs:     redsync.New(goredis.NewPool(args.Client)),
		prefix: fmt.Sprintf("ssmkv:%s:lock:", args.Namespace),
		expiry: args.Expiry,
		tries:  args.Tries,
	}, nil
}

// Lock acquires the distributed lock for name.
func (r *Redis) Lock(ctx context.Context, name string) (Release, error) {
	mutex := r.rs.NewMutex(r.prefix+name, redsync.WithTries(r.tries), redsync.WithExpiry(r.expiry))
	if err := mutex.LockContext(ctx); err != nil {
		return nil, fmt.Errorf("locking parameter %s: %w", name, err)
	}
	return func() error {
		// the caller's context may already be done by the time the update finishes
		ok, err := mutex.UnlockContext(context.Background())
		if err != nil {
			return fmt.Errorf("unlocking parameter %s: %w", name, err)
		}
		if !ok {
			return fmt.Errorf("lock on parameter %s expired before it was released", name)
		}
		return nil
	}, nil
}
