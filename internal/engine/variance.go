package engine

import (
	"context"
	"fmt"

	"github.com/example/go-voxcore/internal/feature"
	"github.com/example/go-voxcore/internal/ling"
	"github.com/example/go-voxcore/internal/onnx"
	"github.com/example/go-voxcore/internal/session"
)

// durationFloor is the minimum phoneme duration in seconds. The duration
// model may emit zero or negative values; every phoneme keeps at least this
// much time so no phoneme vanishes from the frame expansion.
const durationFloor = 0.01

// ReplacePhonemeLength runs the duration model and returns a copy of the
// utterance with consonant and vowel lengths filled in.
func (e *Engine) ReplacePhonemeLength(ctx context.Context, u ling.Utterance, style session.StyleID) (ling.Utterance, error) {
	f, err := feature.Encode(u)
	if err != nil {
		return nil, err
	}

	durations, err := e.predictDurations(ctx, f, style)
	if err != nil {
		return nil, err
	}

	out := u.Clone()
	moraIndex := 0
	assign := func(m *ling.Mora) {
		vi := f.VowelIndexes[moraIndex+1]
		if m.HasConsonant() {
			m.ConsonantLength = durations[vi-1]
		}
		m.VowelLength = durations[vi]
		moraIndex++
	}
	for pi := range out {
		for mi := range out[pi].Moras {
			assign(&out[pi].Moras[mi])
		}
		if out[pi].PauseMora != nil {
			assign(out[pi].PauseMora)
		}
	}

	return out, nil
}

// ReplaceMoraPitch runs the intonation model and returns a copy of the
// utterance with per-mora pitch filled in. Unvoiced morae keep pitch 0.
func (e *Engine) ReplaceMoraPitch(ctx context.Context, u ling.Utterance, style session.StyleID) (ling.Utterance, error) {
	f, err := feature.Encode(u)
	if err != nil {
		return nil, err
	}

	pitches, err := e.predictIntonation(ctx, f, style)
	if err != nil {
		return nil, err
	}

	out := u.Clone()
	moraIndex := 0
	assign := func(m *ling.Mora) {
		pitch := pitches[moraIndex+1]
		if !m.Voiced() {
			pitch = 0
		}
		m.Pitch = pitch
		moraIndex++
	}
	for pi := range out {
		for mi := range out[pi].Moras {
			assign(&out[pi].Moras[mi])
		}
		if out[pi].PauseMora != nil {
			assign(out[pi].PauseMora)
		}
	}

	return out, nil
}

// predictDurations invokes the duration graph and clamps every phoneme to
// the duration floor.
func (e *Engine) predictDurations(ctx context.Context, f *feature.Features, style session.StyleID) ([]float32, error) {
	h, err := e.sessions.Acquire(ctx, style, session.KindDuration)
	if err != nil {
		return nil, err
	}
	defer h.Release()

	inputs, err := tensorMap(map[string]tensorSpec{
		"phoneme_list": {ints: f.Phonemes, shape: []int64{int64(len(f.Phonemes))}},
		"speaker_id":   {ints: []int64{int64(style)}, shape: []int64{1}},
	})
	if err != nil {
		return nil, &InferenceError{Graph: "duration", Err: err}
	}

	outputs, err := h.Run(ctx, inputs)
	if err != nil {
		return nil, &InferenceError{Graph: "duration", Err: err}
	}

	durations, err := outputFloats(outputs, "phoneme_length", len(f.Phonemes))
	if err != nil {
		return nil, &InferenceError{Graph: "duration", Err: err}
	}

	for i, d := range durations {
		if d < durationFloor {
			durations[i] = durationFloor
		}
	}

	return durations, nil
}

// predictIntonation invokes the intonation graph over the vowel-indexed
// feature arrays and zeroes out entries whose vowel is unvoiced.
func (e *Engine) predictIntonation(ctx context.Context, f *feature.Features, style session.StyleID) ([]float32, error) {
	h, err := e.sessions.Acquire(ctx, style, session.KindIntonation)
	if err != nil {
		return nil, err
	}
	defer h.Release()

	n := len(f.VowelIndexes)
	shape := []int64{int64(n)}
	inputs, err := tensorMap(map[string]tensorSpec{
		"length":                   {ints: []int64{int64(n)}, shape: nil},
		"vowel_phoneme_list":       {ints: f.VowelPhonemes, shape: shape},
		"consonant_phoneme_list":   {ints: f.ConsonantPhonemes, shape: shape},
		"start_accent_list":        {ints: f.StartAccent, shape: shape},
		"end_accent_list":          {ints: f.EndAccent, shape: shape},
		"start_accent_phrase_list": {ints: f.StartAccentPhrase, shape: shape},
		"end_accent_phrase_list":   {ints: f.EndAccentPhrase, shape: shape},
		"speaker_id":               {ints: []int64{int64(style)}, shape: []int64{1}},
	})
	if err != nil {
		return nil, &InferenceError{Graph: "intonation", Err: err}
	}

	outputs, err := h.Run(ctx, inputs)
	if err != nil {
		return nil, &InferenceError{Graph: "intonation", Err: err}
	}

	pitches, err := outputFloats(outputs, "f0_list", n)
	if err != nil {
		return nil, &InferenceError{Graph: "intonation", Err: err}
	}

	for i := range pitches {
		if ling.IsUnvoicedPhoneme(ling.PhonemeName(f.VowelPhonemes[i])) {
			pitches[i] = 0
		}
	}

	return pitches, nil
}

type tensorSpec struct {
	ints   []int64
	floats []float32
	shape  []int64
}

func tensorMap(specs map[string]tensorSpec) (map[string]*onnx.Tensor, error) {
	out := make(map[string]*onnx.Tensor, len(specs))
	for name, spec := range specs {
		var (
			t   *onnx.Tensor
			err error
		)
		if spec.floats != nil {
			t, err = onnx.NewTensor(spec.floats, spec.shape)
		} else {
			t, err = onnx.NewTensor(spec.ints, spec.shape)
		}
		if err != nil {
			return nil, fmt.Errorf("tensor %q: %w", name, err)
		}
		out[name] = t
	}
	return out, nil
}

func outputFloats(outputs map[string]*onnx.Tensor, name string, want int) ([]float32, error) {
	t, ok := outputs[name]
	if !ok {
		return nil, fmt.Errorf("missing output %q", name)
	}
	data, err := t.Float32()
	if err != nil {
		return nil, fmt.Errorf("output %q: %w", name, err)
	}
	if len(data) != want {
		return nil, fmt.Errorf("output %q has %d values, want %d", name, len(data), want)
	}
	return data, nil
}
