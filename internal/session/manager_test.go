package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/example/go-voxcore/internal/onnx"
)

// ---------------------------------------------------------------------------
// test doubles
// ---------------------------------------------------------------------------

type fakeRunner struct {
	style  StyleID
	kind   ModelKind
	closed atomic.Bool
}

func (r *fakeRunner) Run(_ context.Context, inputs map[string]*onnx.Tensor) (map[string]*onnx.Tensor, error) {
	return inputs, nil
}

func (r *fakeRunner) Close() {
	r.closed.Store(true)
}

type countingLoader struct {
	mu    sync.Mutex
	calls map[string]int
	delay time.Duration
	fail  func(style StyleID, kind ModelKind, call int) error
}

func newCountingLoader() *countingLoader {
	return &countingLoader{calls: make(map[string]int)}
}

func (l *countingLoader) Load(style StyleID, kind ModelKind, path string) (Runner, error) {
	l.mu.Lock()
	k := fmt.Sprintf("%d/%s", style, kind)
	l.calls[k]++
	call := l.calls[k]
	l.mu.Unlock()

	if l.delay > 0 {
		time.Sleep(l.delay)
	}
	if l.fail != nil {
		if err := l.fail(style, kind, call); err != nil {
			return nil, err
		}
	}
	return &fakeRunner{style: style, kind: kind}, nil
}

func (l *countingLoader) count(style StyleID, kind ModelKind) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls[fmt.Sprintf("%d/%s", style, kind)]
}

func testManifest(t *testing.T, ids ...StyleID) *Manifest {
	t.Helper()

	styles := make([]Style, 0, len(ids))
	for _, id := range ids {
		styles = append(styles, Style{
			ID:   id,
			Name: fmt.Sprintf("style-%d", id),
			Models: map[ModelKind]string{
				KindDuration:   fmt.Sprintf("duration-%d.onnx", id),
				KindIntonation: fmt.Sprintf("intonation-%d.onnx", id),
				KindDecode:     fmt.Sprintf("decode-%d.onnx", id),
			},
		})
	}
	m, err := NewManifest(styles)
	if err != nil {
		t.Fatalf("NewManifest: %v", err)
	}
	return m
}

// ---------------------------------------------------------------------------
// Acquire
// ---------------------------------------------------------------------------

func TestAcquire_LazyLoadAndReuse(t *testing.T) {
	loader := newCountingLoader()
	mgr := NewManager(testManifest(t, 1), loader)
	defer mgr.Close()

	ctx := context.Background()
	h1, err := mgr.Acquire(ctx, 1, KindDuration)
	if err != nil {
		t.Fatalf("first Acquire: %v", err)
	}
	h1.Release()

	h2, err := mgr.Acquire(ctx, 1, KindDuration)
	if err != nil {
		t.Fatalf("second Acquire: %v", err)
	}
	h2.Release()

	if got := loader.count(1, KindDuration); got != 1 {
		t.Errorf("loader called %d times, want 1", got)
	}
}

func TestAcquire_UnknownStyle(t *testing.T) {
	mgr := NewManager(testManifest(t, 1), newCountingLoader())
	defer mgr.Close()

	var unknownErr *UnknownStyleError
	_, err := mgr.Acquire(context.Background(), 999, KindDuration)
	if !errors.As(err, &unknownErr) {
		t.Fatalf("Acquire(999) error = %v, want UnknownStyleError", err)
	}
	if unknownErr.Style != 999 {
		t.Errorf("UnknownStyleError.Style = %d, want 999", unknownErr.Style)
	}
}

func TestAcquire_SingleFlightPerKey(t *testing.T) {
	loader := newCountingLoader()
	loader.delay = 20 * time.Millisecond
	mgr := NewManager(testManifest(t, 1), loader)
	defer mgr.Close()

	const workers = 8
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h, err := mgr.Acquire(context.Background(), 1, KindDecode)
			errs[i] = err
			if err == nil {
				h.Release()
			}
		}()
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Errorf("worker %d: %v", i, err)
		}
	}
	if got := loader.count(1, KindDecode); got != 1 {
		t.Errorf("loader called %d times for one key, want 1", got)
	}
}

func TestAcquire_IndependentKeysLoadSeparately(t *testing.T) {
	loader := newCountingLoader()
	mgr := NewManager(testManifest(t, 1, 2), loader)
	defer mgr.Close()

	ctx := context.Background()
	for _, style := range []StyleID{1, 2} {
		for _, kind := range Kinds() {
			h, err := mgr.Acquire(ctx, style, kind)
			if err != nil {
				t.Fatalf("Acquire(%d, %s): %v", style, kind, err)
			}
			h.Release()
		}
	}

	for _, style := range []StyleID{1, 2} {
		for _, kind := range Kinds() {
			if got := loader.count(style, kind); got != 1 {
				t.Errorf("loader count for (%d, %s) = %d, want 1", style, kind, got)
			}
		}
	}
}

func TestAcquire_FailedLoadIsRetryable(t *testing.T) {
	loader := newCountingLoader()
	loader.fail = func(_ StyleID, _ ModelKind, call int) error {
		if call == 1 {
			return errors.New("weights corrupted")
		}
		return nil
	}
	mgr := NewManager(testManifest(t, 1), loader)
	defer mgr.Close()

	ctx := context.Background()

	var loadErr *ModelLoadError
	_, err := mgr.Acquire(ctx, 1, KindDuration)
	if !errors.As(err, &loadErr) {
		t.Fatalf("first Acquire error = %v, want ModelLoadError", err)
	}

	h, err := mgr.Acquire(ctx, 1, KindDuration)
	if err != nil {
		t.Fatalf("retry Acquire: %v", err)
	}
	h.Release()

	if got := loader.count(1, KindDuration); got != 2 {
		t.Errorf("loader called %d times, want 2", got)
	}
}

// ---------------------------------------------------------------------------
// Unload
// ---------------------------------------------------------------------------

func TestUnload_RefusesWhileBorrowed(t *testing.T) {
	mgr := NewManager(testManifest(t, 1), newCountingLoader())
	defer mgr.Close()

	h, err := mgr.Acquire(context.Background(), 1, KindDecode)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}

	if err := mgr.Unload(1); err == nil {
		t.Error("Unload with active borrower should return error")
	}

	h.Release()
	if err := mgr.Unload(1); err != nil {
		t.Errorf("Unload after release: %v", err)
	}
}

func TestUnload_AllowsReload(t *testing.T) {
	loader := newCountingLoader()
	mgr := NewManager(testManifest(t, 1), loader)
	defer mgr.Close()

	ctx := context.Background()
	h, err := mgr.Acquire(ctx, 1, KindDuration)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	h.Release()

	if err := mgr.Unload(1); err != nil {
		t.Fatalf("Unload: %v", err)
	}

	h, err = mgr.Acquire(ctx, 1, KindDuration)
	if err != nil {
		t.Fatalf("Acquire after Unload: %v", err)
	}
	h.Release()

	if got := loader.count(1, KindDuration); got != 2 {
		t.Errorf("loader called %d times, want 2", got)
	}
}

func TestRelease_Idempotent(t *testing.T) {
	mgr := NewManager(testManifest(t, 1), newCountingLoader())
	defer mgr.Close()

	h, err := mgr.Acquire(context.Background(), 1, KindDuration)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	h.Release()
	h.Release()

	if err := mgr.Unload(1); err != nil {
		t.Errorf("Unload after double release: %v", err)
	}
}

// ---------------------------------------------------------------------------
// Preload / Close
// ---------------------------------------------------------------------------

func TestPreload_LoadsEveryKind(t *testing.T) {
	loader := newCountingLoader()
	mgr := NewManager(testManifest(t, 1, 2), loader)
	defer mgr.Close()

	if err := mgr.Preload(context.Background(), 1, 2); err != nil {
		t.Fatalf("Preload: %v", err)
	}

	for _, style := range []StyleID{1, 2} {
		for _, kind := range Kinds() {
			if got := loader.count(style, kind); got != 1 {
				t.Errorf("loader count for (%d, %s) = %d, want 1", style, kind, got)
			}
		}
	}
}

func TestPreload_UnknownStyle(t *testing.T) {
	mgr := NewManager(testManifest(t, 1), newCountingLoader())
	defer mgr.Close()

	var unknownErr *UnknownStyleError
	err := mgr.Preload(context.Background(), 1, 999)
	if !errors.As(err, &unknownErr) {
		t.Fatalf("Preload error = %v, want UnknownStyleError", err)
	}
}

func TestClose_DefersBorrowedSessionToRelease(t *testing.T) {
	mgr := NewManager(testManifest(t, 1), newCountingLoader())

	ctx := context.Background()
	borrowed, err := mgr.Acquire(ctx, 1, KindDecode)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}

	idle, err := mgr.Acquire(ctx, 1, KindDuration)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	idle.Release()

	mgr.Close()

	if !idle.runner.(*fakeRunner).closed.Load() {
		t.Error("idle session should be closed by Close")
	}
	r := borrowed.runner.(*fakeRunner)
	if r.closed.Load() {
		t.Fatal("borrowed session closed while handle still out")
	}
	if _, err := borrowed.Run(ctx, nil); err != nil {
		t.Errorf("Run on borrowed handle after Close: %v", err)
	}

	borrowed.Release()
	if !r.closed.Load() {
		t.Error("final Release should close the session")
	}
}

func TestClose_RejectsNewAcquires(t *testing.T) {
	mgr := NewManager(testManifest(t, 1), newCountingLoader())
	mgr.Close()

	if _, err := mgr.Acquire(context.Background(), 1, KindDuration); err == nil {
		t.Error("Acquire after Close should return error")
	}
}
