package engine

import (
	"context"
	"fmt"
	"math"

	"github.com/example/go-voxcore/internal/audio"
	"github.com/example/go-voxcore/internal/feature"
	"github.com/example/go-voxcore/internal/ling"
	"github.com/example/go-voxcore/internal/session"
)

const (
	// samplesPerFrame is the decoder's hop size: one acoustic frame becomes
	// this many output samples.
	samplesPerFrame = 256

	// frameRate is the decoder's frame rate in frames per second.
	frameRate = float64(audio.SampleRate) / samplesPerFrame

	// edgePadSeconds of silence are fed to the decoder on each side and
	// trimmed from its output; the model wants warm-up context.
	edgePadSeconds = 0.4
)

// FrameCount converts a phoneme duration in seconds to a whole frame count,
// rounding half up. Ties round toward more frames so short phonemes survive.
func FrameCount(seconds float32) int {
	n := int(math.Floor(float64(seconds)*frameRate + 0.5))
	if n < 0 {
		return 0
	}
	return n
}

// TotalFrames returns the sum of per-phoneme rounded frame counts. The
// decoder's output length is exactly this many frames worth of samples.
func TotalFrames(durations []float32) int {
	total := 0
	for _, d := range durations {
		total += FrameCount(d)
	}
	return total
}

// decode expands the features and transformed variance to frame level and
// invokes the decode graph, returning raw samples at the native rate.
func (e *Engine) decode(ctx context.Context, f *feature.Features, v *Variance, style session.StyleID) ([]float32, error) {
	if len(v.Durations) != len(f.Phonemes) {
		return nil, &InferenceError{Graph: "decode", Err: fmt.Errorf(
			"duration count %d does not match phoneme count %d", len(v.Durations), len(f.Phonemes))}
	}
	if len(v.Contour) != len(f.VowelIndexes) {
		return nil, &InferenceError{Graph: "decode", Err: fmt.Errorf(
			"pitch count %d does not match mora count %d", len(v.Contour), len(f.VowelIndexes))}
	}

	f0, phoneme, frames := expandFrames(f, v)

	padFrames := int(math.Round(edgePadSeconds * frameRate))
	f0 = padF0(f0, padFrames)
	phoneme = padPhonemes(phoneme, padFrames)
	totalFrames := frames + 2*padFrames

	h, err := e.sessions.Acquire(ctx, style, session.KindDecode)
	if err != nil {
		return nil, err
	}
	defer h.Release()

	numPhonemes := int64(ling.NumPhonemes())
	inputs, err := tensorMap(map[string]tensorSpec{
		"f0":         {floats: f0, shape: []int64{int64(totalFrames), 1}},
		"phoneme":    {floats: phoneme, shape: []int64{int64(totalFrames), numPhonemes}},
		"speaker_id": {ints: []int64{int64(style)}, shape: []int64{1}},
	})
	if err != nil {
		return nil, &InferenceError{Graph: "decode", Err: err}
	}

	outputs, err := h.Run(ctx, inputs)
	if err != nil {
		return nil, &InferenceError{Graph: "decode", Err: err}
	}

	wave, err := outputFloats(outputs, "wave", totalFrames*samplesPerFrame)
	if err != nil {
		return nil, &InferenceError{Graph: "decode", Err: err}
	}

	padSamples := padFrames * samplesPerFrame
	return wave[padSamples : len(wave)-padSamples], nil
}

// expandFrames repeats each phoneme's one-hot encoding for its frame count
// and broadcasts each mora's contour pitch over all frames of that mora's
// phoneme span. Returns flat [frames][numPhonemes] one-hots, flat f0, and
// the frame count.
func expandFrames(f *feature.Features, v *Variance) (f0 []float32, phoneme []float32, frames int) {
	numPhonemes := ling.NumPhonemes()
	frames = TotalFrames(v.Durations)

	f0 = make([]float32, 0, frames)
	phoneme = make([]float32, 0, frames*numPhonemes)

	spanFrames := 0
	moraIndex := 0
	for i, duration := range v.Durations {
		count := FrameCount(duration)
		row := make([]float32, numPhonemes)
		row[f.Phonemes[i]] = 1
		for range count {
			phoneme = append(phoneme, row...)
		}
		spanFrames += count

		if moraIndex < len(f.VowelIndexes) && i == f.VowelIndexes[moraIndex] {
			for range spanFrames {
				f0 = append(f0, v.Contour[moraIndex])
			}
			spanFrames = 0
			moraIndex++
		}
	}

	return f0, phoneme, frames
}

func padF0(f0 []float32, padFrames int) []float32 {
	out := make([]float32, 0, len(f0)+2*padFrames)
	out = append(out, make([]float32, padFrames)...)
	out = append(out, f0...)
	out = append(out, make([]float32, padFrames)...)
	return out
}

func padPhonemes(phoneme []float32, padFrames int) []float32 {
	numPhonemes := ling.NumPhonemes()
	pad := make([]float32, padFrames*numPhonemes)
	pauID, _ := ling.PhonemeID(ling.PhonemePau)
	for i := 0; i < padFrames; i++ {
		pad[i*numPhonemes+int(pauID)] = 1
	}

	out := make([]float32, 0, len(phoneme)+2*len(pad))
	out = append(out, pad...)
	out = append(out, phoneme...)
	out = append(out, pad...)
	return out
}
