package kvstore

import (
	"context"
	"fmt"
	"io"
	"sync"
)

// DefaultPartition is the partition holding all flags.
const DefaultPartition = "default"

type job struct {
	fn   func(Store) error
	done chan error
}

// Partition is a single serialized actor in front of one backend. Every
// operation, and every Exec section, runs on the actor goroutine one at a time
// in submission order, so a read-then-write inside Exec cannot interleave with
// another writer of the same partition.
//
// Functions passed to Exec must use the Store they are given; calling back
// into the Partition from inside Exec deadlocks.
type Partition struct {
	name    string
	backend Store

	jobs      chan job
	closing   chan struct{}
	stopped   chan struct{}
	closeOnce sync.Once
}

// NewPartition starts the actor for backend.
func NewPartition(name string, backend Store) *Partition {
	p := &Partition{
		name:    name,
		backend: backend,
		jobs:    make(chan job),
		closing: make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go p.run()
	return p
}

// Name returns the partition name.
func (p *Partition) Name() string {
	return p.name
}

func (p *Partition) run() {
	defer close(p.stopped)
	for {
		select {
		case j := <-p.jobs:
			j.done <- p.invoke(j.fn)
		case <-p.closing:
			return
		}
	}
}

func (p *Partition) invoke(fn func(Store) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: partition %s: panic: %v", ErrStorage, p.name, r)
		}
	}()
	return fn(p.backend)
}

// Exec runs fn exclusively on the actor. The context only bounds the wait for
// the actor to accept the job; once accepted the job runs to completion.
func (p *Partition) Exec(ctx context.Context, fn func(Store) error) error {
	j := job{fn: fn, done: make(chan error, 1)}

	select {
	case p.jobs <- j:
	case <-p.closing:
		return ErrPartitionClosed
	case <-ctx.Done():
		return fmt.Errorf("%w: partition %s: %w", ErrStorage, p.name, ctx.Err())
	}

	return <-j.done
}

func (p *Partition) List(ctx context.Context, prefix string) (map[string][]byte, error) {
	var out map[string][]byte
	err := p.Exec(ctx, func(s Store) error {
		var err error
		out, err = s.List(ctx, prefix)
		return err
	})
	return out, err
}

func (p *Partition) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var (
		out   []byte
		found bool
	)
	err := p.Exec(ctx, func(s Store) error {
		var err error
		out, found, err = s.Get(ctx, key)
		return err
	})
	return out, found, err
}

func (p *Partition) Put(ctx context.Context, key string, value []byte) error {
	return p.Exec(ctx, func(s Store) error {
		return s.Put(ctx, key, value)
	})
}

func (p *Partition) Delete(ctx context.Context, key string) error {
	return p.Exec(ctx, func(s Store) error {
		return s.Delete(ctx, key)
	})
}

// Close stops the actor after the running job finishes and closes the backend
// if it owns resources.
func (p *Partition) Close() error {
	var err error
	p.closeOnce.Do(func() {
		close(p.closing)
		<-p.stopped
		if c, ok := p.backend.(io.Closer); ok {
			err = c.Close()
		}
	})
	return err
}

var _ SerializedStore = (*Partition)(nil)
