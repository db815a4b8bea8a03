// Package session owns the loaded model sessions. It maps (style, model
// kind) keys to ready inference runners, loading lazily with one in-flight
// load per key, and tracks borrowers so unloading never pulls a session out
// from under an active inference call.
package session

import (
	"context"
	"fmt"

	"github.com/example/go-voxcore/internal/onnx"
)

// StyleID selects a trained voice configuration.
type StyleID int64

// ModelKind tags the three graphs a style is made of.
type ModelKind string

const (
	KindDuration   ModelKind = "duration"
	KindIntonation ModelKind = "intonation"
	KindDecode     ModelKind = "decode"
)

// Kinds lists every model kind a complete style provides.
func Kinds() []ModelKind {
	return []ModelKind{KindDuration, KindIntonation, KindDecode}
}

// Runner is a loaded model session ready for concurrent inference calls.
// onnx.Runner satisfies it; tests substitute deterministic fakes.
type Runner interface {
	Run(ctx context.Context, inputs map[string]*onnx.Tensor) (map[string]*onnx.Tensor, error)
	Close()
}

// Loader turns a model weight file into a ready Runner.
type Loader interface {
	Load(style StyleID, kind ModelKind, path string) (Runner, error)
}

// LoaderFunc adapts a function to the Loader interface.
type LoaderFunc func(style StyleID, kind ModelKind, path string) (Runner, error)

func (f LoaderFunc) Load(style StyleID, kind ModelKind, path string) (Runner, error) {
	return f(style, kind, path)
}

// ORTLoader loads ONNX graphs through ONNX Runtime.
type ORTLoader struct {
	Config onnx.RunnerConfig
}

func (l ORTLoader) Load(style StyleID, kind ModelKind, path string) (Runner, error) {
	return onnx.NewRunner(fmt.Sprintf("%s-%d", kind, style), path, l.Config)
}

// UnknownStyleError reports a request for a style no manifest entry covers.
// This is a caller fault and is not retried.
type UnknownStyleError struct {
	Style StyleID
}

func (e *UnknownStyleError) Error() string {
	return fmt.Sprintf("no models registered for style %d", e.Style)
}

// ModelLoadError reports a failure to turn a weight file into a ready
// session. The failed key stays loadable; a later request may retry.
type ModelLoadError struct {
	Style StyleID
	Kind  ModelKind
	Path  string
	Err   error
}

func (e *ModelLoadError) Error() string {
	return fmt.Sprintf("load %s model for style %d (%s): %v", e.Kind, e.Style, e.Path, e.Err)
}

func (e *ModelLoadError) Unwrap() error {
	return e.Err
}
