package ssmkv

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/mplewis/ssmkv/backing"
)

// ensure returns the current entry for name, creating the parameter with the empty value of kind first if it
// does not exist. The version in the entry is only filled in with compare-and-swap.
//
// Creation is not atomic with the read before it. Two processes that both find the parameter missing both
// write the same empty value, so the race is harmless. Within one process, concurrent creations of the same
// parameter share a single write.
func (s *Store) ensure(ctx context.Context, log logrus.FieldLogger, name string, kind Kind) (backing.Entry, error) {
	e, err := s.get(ctx, name)
	if !errors.Is(err, backing.ErrNotFound) {
		return e, err
	}

	log.Warnf("Parameter %s not found. Initialising.", name)
	// the shared create outlives any one caller's cancellation; each caller still stops waiting on its own ctx
	shared := context.WithoutCancel(ctx)
	ch := s.creates.DoChan(kind.String()+":"+name, func() (interface{}, error) {
		if err := s.create(shared, name, kind.EmptyValue()); err != nil {
			return nil, err
		}
		s.log.WithField("param", name).Infof("Created %s", name)
		// return what the backend stored, not what was written
		e, err := s.get(shared, name)
		if errors.Is(err, backing.ErrNotFound) {
			err = &backing.BackendError{Op: "get", Name: name, Err: errors.New("parameter missing right after it was created")}
		}
		return e, err
	})
	select {
	case <-ctx.Done():
		return backing.Entry{}, &backing.BackendError{Op: "create", Name: name, Err: ctx.Err()}
	case res := <-ch:
		if res.Err != nil {
			return backing.Entry{}, res.Err
		}
		return res.Val.(backing.Entry), nil
	}
}

func (s *Store) get(ctx context.Context, name string) (backing.Entry, error) {
	if s.versioned != nil {
		return s.versioned.GetVersioned(ctx, name)
	}
	v, err := s.backing.Get(ctx, name)
	return backing.Entry{Value: v}, err
}

// create writes the empty value. With compare-and-swap it only creates, and losing that race to another
// creator is fine: the read that follows sees the winner's value.
func (s *Store) create(ctx context.Context, name, empty string) error {
	if s.versioned == nil {
		return s.backing.Put(ctx, name, empty, true)
	}
	err := s.versioned.PutIfVersion(ctx, name, empty, backing.Missing)
	if errors.Is(err, backing.ErrConflict) {
		return nil
	}
	return err
}
