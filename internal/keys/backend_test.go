package keys

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type staticHasher struct{ out string }

func (h staticHasher) HashToField(bits []bool) (string, error) {
	return h.out, nil
}

func TestBackendNotLoadedReportsLoading(t *testing.T) {
	b := NewBackend(func(context.Context) (Hasher, error) {
		return staticHasher{out: "1field"}, nil
	}, nil)

	if _, err := b.Hasher(); !errors.Is(err, ErrBackendLoading) {
		t.Fatalf("expected loading error, got %v", err)
	}
	if state, _ := b.Status(); state != StateLoading {
		t.Fatalf("expected loading state, got %s", state)
	}
}

func TestBackendSharesInFlightInit(t *testing.T) {
	var calls int32
	release := make(chan struct{})
	b := NewBackend(func(context.Context) (Hasher, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return staticHasher{out: "1field"}, nil
	}, nil)

	var wg sync.WaitGroup
	errs := make(chan error, 4)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := b.Load(context.Background())
			errs <- err
		}()
	}

	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Fatalf("load: %v", err)
		}
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("expected one init, got %d", got)
	}
	if state, _ := b.Status(); state != StateReady {
		t.Fatalf("expected ready, got %s", state)
	}
	if _, err := b.Hasher(); err != nil {
		t.Fatalf("hasher: %v", err)
	}
}

func TestBackendRetriesAfterFailure(t *testing.T) {
	var calls int32
	b := NewBackend(func(context.Context) (Hasher, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			return nil, errors.New("boom")
		}
		return staticHasher{out: "1field"}, nil
	}, nil)

	if _, err := b.Load(context.Background()); !errors.Is(err, ErrBackendFailed) {
		t.Fatalf("expected failed error, got %v", err)
	}
	if _, err := b.Hasher(); !errors.Is(err, ErrBackendFailed) {
		t.Fatalf("expected failed hasher error, got %v", err)
	}

	if _, err := b.Load(context.Background()); err != nil {
		t.Fatalf("second load: %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Fatalf("expected two inits, got %d", got)
	}
}

func TestBackendLoadHonorsContext(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	b := NewBackend(func(context.Context) (Hasher, error) {
		<-release
		return staticHasher{out: "1field"}, nil
	}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := b.Load(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
}
