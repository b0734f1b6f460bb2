package keys

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

var (
	// ErrBackendLoading means the hash backend is not ready yet; retry later.
	ErrBackendLoading = errors.New("key backend is still loading")
	// ErrBackendFailed means the last initialization attempt failed.
	ErrBackendFailed = errors.New("key backend failed to load")
)

// State is the lifecycle state of a Backend.
type State int

const (
	StateLoading State = iota
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Hasher maps little-endian input bits to a field literal such as "123field".
type Hasher interface {
	HashToField(bits []bool) (string, error)
}

// InitFunc builds a Hasher. It may be slow.
type InitFunc func(ctx context.Context) (Hasher, error)

// Backend lazily initializes a Hasher once per process. Concurrent callers
// share one in-flight initialization; a failed attempt is not cached.
type Backend struct {
	init   InitFunc
	logger *zap.Logger

	mu     sync.Mutex
	state  State
	hasher Hasher
	err    error
	done   chan struct{}
}

func NewBackend(init InitFunc, logger *zap.Logger) *Backend {
	if init == nil {
		init = DefaultInit
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Backend{init: init, logger: logger, state: StateLoading}
}

// Start begins initialization in the background unless it is ready or in flight.
func (b *Backend) Start() {
	b.mu.Lock()
	b.startLocked()
	b.mu.Unlock()
}

// Load waits for the backend to become ready, starting it if needed.
func (b *Backend) Load(ctx context.Context) (Hasher, error) {
	b.mu.Lock()
	if b.hasher != nil {
		h := b.hasher
		b.mu.Unlock()
		return h, nil
	}
	done := b.startLocked()
	b.mu.Unlock()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-done:
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.hasher != nil {
		return b.hasher, nil
	}
	return nil, fmt.Errorf("%w: %v", ErrBackendFailed, b.err)
}

// Hasher returns the ready Hasher without blocking.
func (b *Backend) Hasher() (Hasher, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch b.state {
	case StateReady:
		return b.hasher, nil
	case StateFailed:
		return nil, fmt.Errorf("%w: %v", ErrBackendFailed, b.err)
	default:
		return nil, ErrBackendLoading
	}
}

// Status reports the current state and the last initialization error.
func (b *Backend) Status() (State, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state, b.err
}

func (b *Backend) startLocked() chan struct{} {
	if b.done != nil {
		return b.done
	}
	done := make(chan struct{})
	if b.hasher != nil {
		close(done)
		return done
	}
	b.done = done
	b.state = StateLoading
	b.err = nil
	b.logger.Debug("key backend loading")
	// Initialization outlives the caller that happened to trigger it.
	go b.run(done)
	return done
}

func (b *Backend) run(done chan struct{}) {
	h, err := b.init(context.Background())
	if err == nil {
		if _, err = h.HashToField(KeyBits(1, 1)); err != nil {
			err = fmt.Errorf("self test: %w", err)
		}
	}

	b.mu.Lock()
	if err != nil {
		b.state = StateFailed
		b.err = err
		b.logger.Warn("key backend failed", zap.Error(err))
	} else {
		b.state = StateReady
		b.hasher = h
		b.logger.Debug("key backend ready")
	}
	b.done = nil
	b.mu.Unlock()
	close(done)
}
