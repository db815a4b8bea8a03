package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/example/go-voxcore/internal/onnx"
)

type key struct {
	style StyleID
	kind  ModelKind
}

func (k key) String() string {
	return fmt.Sprintf("%d/%s", k.style, k.kind)
}

type entry struct {
	runner  Runner
	borrows int
	closing bool // set by Close while borrowed; the final Release closes the runner
}

// Manager maps (style, kind) keys to loaded sessions. Loading is mutually
// exclusive per key; inference on a loaded session is shared across workers.
type Manager struct {
	manifest *Manifest
	loader   Loader

	loads singleflight.Group

	mu       sync.Mutex
	sessions map[key]*entry
	closed   bool
}

func NewManager(manifest *Manifest, loader Loader) *Manager {
	return &Manager{
		manifest: manifest,
		loader:   loader,
		sessions: make(map[key]*entry),
	}
}

// Styles lists the styles the manager can serve.
func (m *Manager) Styles() []Style {
	return m.manifest.Styles()
}

// Acquire returns a borrowed handle for the (style, kind) session, loading it
// on first use. A second concurrent requester for the same key waits for the
// in-flight load instead of duplicating it. The caller must Release the
// handle when its inference call returns.
func (m *Manager) Acquire(ctx context.Context, style StyleID, kind ModelKind) (*Handle, error) {
	path, err := m.manifest.ModelPath(style, kind)
	if err != nil {
		return nil, err
	}

	k := key{style: style, kind: kind}
	for {
		m.mu.Lock()
		if m.closed {
			m.mu.Unlock()
			return nil, errors.New("session manager is closed")
		}
		if e, ok := m.sessions[k]; ok {
			e.borrows++
			m.mu.Unlock()
			return &Handle{m: m, key: k, runner: e.runner}, nil
		}
		m.mu.Unlock()

		ch := m.loads.DoChan(k.String(), func() (any, error) {
			return nil, m.load(k, path)
		})

		select {
		case <-ctx.Done():
			// The load keeps running and will be cached for later requests;
			// only this waiter gives up.
			return nil, ctx.Err()
		case res := <-ch:
			if res.Err != nil {
				return nil, res.Err
			}
		}
		// Loop to borrow the freshly loaded entry. An Unload may have won
		// the race, in which case the next iteration loads again.
	}
}

func (m *Manager) load(k key, path string) error {
	runner, err := m.loader.Load(k.style, k.kind, path)
	if err != nil {
		return &ModelLoadError{Style: k.style, Kind: k.kind, Path: path, Err: err}
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		runner.Close()
		return errors.New("session manager is closed")
	}
	m.sessions[k] = &entry{runner: runner}
	m.mu.Unlock()

	slog.Info("loaded model session", "style", k.style, "kind", k.kind, "path", path)

	return nil
}

// Preload eagerly loads every model kind for the given styles, independent
// styles in parallel.
func (m *Manager) Preload(ctx context.Context, styles ...StyleID) error {
	eg, egCtx := errgroup.WithContext(ctx)
	for _, style := range styles {
		eg.Go(func() error {
			for _, kind := range Kinds() {
				h, err := m.Acquire(egCtx, style, kind)
				if err != nil {
					return err
				}
				h.Release()
			}
			return nil
		})
	}
	return eg.Wait()
}

// Unload releases every session of a style. It refuses while any borrower
// holds one of the style's sessions.
func (m *Manager) Unload(style StyleID) error {
	m.mu.Lock()
	for _, kind := range Kinds() {
		if e, ok := m.sessions[key{style: style, kind: kind}]; ok && e.borrows > 0 {
			m.mu.Unlock()
			return fmt.Errorf("style %d: %s session has %d active borrowers", style, kind, e.borrows)
		}
	}

	var toClose []Runner
	for _, kind := range Kinds() {
		k := key{style: style, kind: kind}
		if e, ok := m.sessions[k]; ok {
			toClose = append(toClose, e.runner)
			delete(m.sessions, k)
		}
	}
	m.mu.Unlock()

	for _, r := range toClose {
		r.Close()
	}

	return nil
}

// Close shuts the manager down. Idle sessions are closed immediately; handles
// already borrowed stay valid and their final Release closes the session.
// New Acquire calls fail.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true

	toClose := make([]Runner, 0, len(m.sessions))
	for k, e := range m.sessions {
		if e.borrows > 0 {
			e.closing = true
			continue
		}
		toClose = append(toClose, e.runner)
		delete(m.sessions, k)
	}
	m.mu.Unlock()

	for _, r := range toClose {
		r.Close()
	}
}

// Handle is a borrowed session. It forwards inference calls to the loaded
// runner and returns the borrow on Release.
type Handle struct {
	m      *Manager
	key    key
	runner Runner
	once   sync.Once
}

func (h *Handle) Run(ctx context.Context, inputs map[string]*onnx.Tensor) (map[string]*onnx.Tensor, error) {
	return h.runner.Run(ctx, inputs)
}

// Release returns the borrow. Safe to call multiple times. If the manager was
// closed while this handle was out, the final Release closes the session.
func (h *Handle) Release() {
	h.once.Do(func() {
		var toClose Runner
		h.m.mu.Lock()
		if e, ok := h.m.sessions[h.key]; ok && e.borrows > 0 {
			e.borrows--
			if e.closing && e.borrows == 0 {
				toClose = e.runner
				delete(h.m.sessions, h.key)
			}
		}
		h.m.mu.Unlock()
		if toClose != nil {
			toClose.Close()
		}
	})
}
