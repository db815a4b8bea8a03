// Package engine coordinates the synthesis pipeline: feature encoding,
// duration and pitch prediction, prosody transforms, waveform decoding, and
// final buffer assembly. Each Synthesize call runs start to finish on its
// caller's goroutine; the only shared state is the session manager.
package engine

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/example/go-voxcore/internal/audio"
	"github.com/example/go-voxcore/internal/feature"
	"github.com/example/go-voxcore/internal/ling"
	"github.com/example/go-voxcore/internal/session"
)

type Engine struct {
	sessions *session.Manager
	log      *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the slog.Logger used for per-request logging.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// New returns an engine backed by the given session manager. The manager's
// lifetime is owned by the caller.
func New(sessions *session.Manager, opts ...Option) *Engine {
	e := &Engine{
		sessions: sessions,
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Styles lists the styles the engine can synthesize with.
func (e *Engine) Styles() []session.Style {
	return e.sessions.Styles()
}

// Synthesize converts one utterance into a playable audio buffer. It is safe
// to call concurrently; no partial buffer is ever returned.
func (e *Engine) Synthesize(ctx context.Context, u ling.Utterance, style session.StyleID, params ProsodyParams) (audio.Buffer, error) {
	start := time.Now()

	samples, err := e.synthesizeSamples(ctx, u, style, params)
	if err != nil {
		return audio.Buffer{}, err
	}

	buf, err := audio.Assemble([][]float32{samples}, params.VolumeScale)
	if err != nil {
		return audio.Buffer{}, err
	}

	e.log.Debug(
		"synthesized utterance",
		"style", style,
		"phrases", len(u),
		"seconds", buf.Duration(),
		"elapsed", time.Since(start),
	)

	return buf, nil
}

// SynthesizeMany synthesizes several utterances (e.g. a request split on
// long pauses) in parallel and assembles the segments in request order.
func (e *Engine) SynthesizeMany(ctx context.Context, us []ling.Utterance, style session.StyleID, params ProsodyParams) (audio.Buffer, error) {
	if len(us) == 0 {
		return audio.Buffer{}, &audio.EmptyInputError{}
	}

	segments := make([][]float32, len(us))
	eg, egCtx := errgroup.WithContext(ctx)
	for i, u := range us {
		eg.Go(func() error {
			samples, err := e.synthesizeSamples(egCtx, u, style, params)
			if err != nil {
				return err
			}
			segments[i] = samples
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return audio.Buffer{}, err
	}

	return audio.Assemble(segments, params.VolumeScale)
}

// synthesizeSamples runs the full pipeline for one utterance up to raw
// decoder samples, before volume scaling.
func (e *Engine) synthesizeSamples(ctx context.Context, u ling.Utterance, style session.StyleID, params ProsodyParams) ([]float32, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if err := u.Validate(); err != nil {
		return nil, &feature.EncodingError{Reason: "invalid utterance", Err: err}
	}

	withLengths, err := e.ReplacePhonemeLength(ctx, u, style)
	if err != nil {
		return nil, err
	}

	withPitch, err := e.ReplaceMoraPitch(ctx, withLengths, style)
	if err != nil {
		return nil, err
	}

	if params.InterrogativeUpspeak {
		withPitch = adjustInterrogative(withPitch)
	}

	f, err := feature.Encode(withPitch)
	if err != nil {
		return nil, err
	}

	variance := Transform(BuildVariance(withPitch), params)

	return e.decode(ctx, f, variance, style)
}
