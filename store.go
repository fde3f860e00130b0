package ssmkv

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/mplewis/ssmkv/backing"
	"github.com/mplewis/ssmkv/codec"
	"github.com/mplewis/ssmkv/lock"
)

// Store reads and updates collections held in parameters.
type Store struct {
	backing   backing.Backing
	versioned backing.Versioned
	locker    lock.Locker
	noop      NoopWrites
	attempts  int
	log       logrus.FieldLogger
	creates   singleflight.Group
}

// Args are the arguments for a new store.
type Args struct {
	Backing        backing.Backing    // Required. The backend for this store, where the parameters live.
	Locker         lock.Locker        // Optional. Held for the duration of every update of a parameter.
	CompareAndSwap bool               // Optional. Write updates only if the parameter is unchanged since it was read. The backing must be a backing.Versioned.
	MaxAttempts    int                // Optional. Read-modify-write attempts per compare-and-swap update.
	NoopWrites     NoopWrites         // Optional. Whether updates that change nothing still write the value back.
	Logger         logrus.FieldLogger // Optional. Defaults to the logrus standard logger.
}

// New builds a new Store.
func New(args Args) (*Store, error) {
	if args.Backing == nil {
		return nil, errors.New("store requires a backing")
	}
	if args.MaxAttempts <= 0 {
		args.MaxAttempts = DEFAULT_MAX_ATTEMPTS
	}
	if args.Logger == nil {
		args.Logger = logrus.StandardLogger()
	}
	s := &Store{
		backing:  args.Backing,
		locker:   args.Locker,
		noop:     args.NoopWrites,
		attempts: args.MaxAttempts,
		log:      args.Logger,
	}
	if args.CompareAndSwap {
		v, ok := args.Backing.(backing.Versioned)
		if !ok {
			return nil, fmt.Errorf("backing %T does not support compare-and-swap", args.Backing)
		}
		s.versioned = v
	}
	return s, nil
}

// Init makes sure the named parameter exists, creating it as an empty collection of the given kind if it does
// not, and returns its current value. An existing value is returned unchanged, whatever it holds.
func (s *Store) Init(ctx context.Context, name string, kind Kind) (string, error) {
	e, err := s.ensure(ctx, s.logger(name), name, kind)
	return e.Value, err
}

// Members returns the elements of a set parameter, creating the parameter if needed.
func (s *Store) Members(ctx context.Context, name string) (codec.Set, error) {
	raw, err := s.Init(ctx, name, KindSet)
	if err != nil {
		return nil, err
	}
	return codec.DecodeSet(raw)
}

// Entries returns the entries of a map parameter, creating the parameter if needed.
func (s *Store) Entries(ctx context.Context, name string) (codec.Map, error) {
	raw, err := s.Init(ctx, name, KindMap)
	if err != nil {
		return nil, err
	}
	return codec.DecodeMap(raw)
}

// UpdateSet adds elem to or removes it from the set parameter name. Removing an absent element succeeds.
func (s *Store) UpdateSet(ctx context.Context, name string, elem string, action Action) error {
	if _, err := ParseAction(string(action)); err != nil {
		return err
	}
	if action == Add {
		if elem == "" {
			return invalid("cannot add an empty element to set %s", name)
		}
		if strings.Contains(elem, ",") {
			return invalid("set element %q contains the separator ','", elem)
		}
	}
	return s.update(ctx, name, KindSet, action, func(log logrus.FieldLogger, raw string) (string, bool, error) {
		current, err := codec.DecodeSet(raw)
		if err != nil {
			return "", false, err
		}
		var changed bool
		if action == Add {
			log.Infof("Adding '%s' to %s", elem, name)
			changed = current.Add(elem)
		} else {
			log.Infof("Removing '%s' from %s", elem, name)
			changed = current.Remove(elem)
		}
		return codec.EncodeSet(current), changed, nil
	})
}

// UpdateMap sets key to value in, or removes key from, the map parameter name. Adding requires a value;
// removing an absent key succeeds without writing.
func (s *Store) UpdateMap(ctx context.Context, name string, key string, value *string, action Action) error {
	if _, err := ParseAction(string(action)); err != nil {
		return err
	}
	if action == Add && value == nil {
		return invalid("a value is required to add key %q to %s", key, name)
	}
	return s.update(ctx, name, KindMap, action, func(log logrus.FieldLogger, raw string) (string, bool, error) {
		current, err := codec.DecodeMap(raw)
		if err != nil {
			return "", false, err
		}
		if action == Add {
			log.Infof("Adding '%s' -> '%s' to %s", key, *value, name)
			before, ok := current[key]
			current.Set(key, *value)
			return codec.EncodeMap(current), !ok || !bytes.Equal(before, current[key]), nil
		}
		old, ok := current.Get(key)
		if !ok {
			log.Warnf("Key '%s' not found in %s", key, name)
			return codec.EncodeMap(current), false, nil
		}
		log.Infof("Removing '%s' -> '%s' from %s", key, old, name)
		current.Delete(key)
		return codec.EncodeMap(current), true, nil
	})
}

// mutation decodes raw, applies a change, and returns the new encoded value and whether the collection changed.
type mutation func(log logrus.FieldLogger, raw string) (next string, changed bool, err error)

// update runs one read-modify-write cycle, or several with compare-and-swap until one is not overtaken.
func (s *Store) update(ctx context.Context, name string, kind Kind, action Action, mutate mutation) error {
	log := s.logger(name).WithField("action", action)

	if s.locker != nil {
		release, err := s.locker.Lock(ctx, name)
		if err != nil {
			return err
		}
		defer func() {
			if err := release(); err != nil {
				log.WithError(err).Warnf("Failed to release lock on %s", name)
			}
		}()
	}

	attempts := 1
	if s.versioned != nil {
		attempts = s.attempts
	}
	for attempt := 1; attempt <= attempts; attempt++ {
		e, err := s.ensure(ctx, log, name, kind)
		if err != nil {
			return err
		}
		next, changed, err := mutate(log, e.Value)
		if err != nil {
			return err
		}
		if !s.noop.writes(kind, action, changed) {
			log.Debugf("No change to %s, skipping write", name)
			return nil
		}
		err = s.put(ctx, name, next, e.Version)
		if errors.Is(err, backing.ErrConflict) {
			log.WithField("attempt", attempt).Warnf("%s changed while it was being updated, retrying", name)
			continue
		}
		if err != nil {
			return err
		}
		log.WithFields(logrus.Fields{"before": e.Value, "after": next}).Infof("Updated %s to %s", name, next)
		return nil
	}
	return &ConflictError{Name: name, Attempts: attempts}
}

// put writes an updated value: unconditionally, or only over the version it was read at with compare-and-swap.
func (s *Store) put(ctx context.Context, name, value string, version backing.Version) error {
	if s.versioned != nil {
		return s.versioned.PutIfVersion(ctx, name, value, version)
	}
	return s.backing.Put(ctx, name, value, true)
}

func (s *Store) logger(name string) logrus.FieldLogger {
	return s.log.WithFields(logrus.Fields{"param": name, "op": uuid.NewString()})
}
