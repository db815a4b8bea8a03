package engine

import (
	"math"

	"github.com/example/go-voxcore/internal/ling"
)

// UnvoicedPitch is the sentinel log-f0 value marking an unvoiced mora.
const UnvoicedPitch float32 = 0

// Variance carries the predictor output aligned with the feature arrays:
// Durations has one entry per phoneme (boundary paus included), the pitch
// arrays one entry per mora phoneme. Contour is the interpolated pitch the
// decoder broadcasts per frame; Pitches preserves the unvoiced sentinel.
type Variance struct {
	Durations []float32
	Pitches   []float32
	Contour   []float32
	Voiced    []bool
}

// BuildVariance lays the filled-in utterance out as flat duration and pitch
// arrays bracketed by the boundary paus. The boundary durations start at
// zero; Transform replaces them with the requested edge silence.
func BuildVariance(u ling.Utterance) *Variance {
	moras := u.FlattenMoras()

	v := &Variance{
		Durations: []float32{0},
		Pitches:   []float32{UnvoicedPitch},
		Voiced:    []bool{false},
	}

	for _, mora := range moras {
		if mora.HasConsonant() {
			v.Durations = append(v.Durations, mora.ConsonantLength)
		}
		v.Durations = append(v.Durations, mora.VowelLength)

		voiced := mora.Voiced() && mora.Pitch > 0
		v.Pitches = append(v.Pitches, mora.Pitch)
		v.Voiced = append(v.Voiced, voiced)
	}

	v.Durations = append(v.Durations, 0)
	v.Pitches = append(v.Pitches, UnvoicedPitch)
	v.Voiced = append(v.Voiced, false)

	return v
}

// Transform applies the prosody parameters to a variance. It is pure: the
// input is never mutated. Steps, in order: unvoiced-pitch interpolation (on
// genuine voiced neighbors only), mean-preserving intonation scaling, global
// pitch shift, unvoiced re-marking, duration scaling, edge silence.
func Transform(v *Variance, p ProsodyParams) *Variance {
	out := &Variance{
		Durations: append([]float32(nil), v.Durations...),
		Pitches:   append([]float32(nil), v.Pitches...),
		Voiced:    append([]bool(nil), v.Voiced...),
	}

	out.Contour = interpolateUnvoiced(v.Pitches, v.Voiced)

	mean, ok := voicedMean(v.Pitches, v.Voiced)
	shift := float32(math.Pow(2, float64(p.PitchScale)))
	scale := func(pitch float32) float32 {
		if ok {
			pitch = (pitch-mean)*p.IntonationScale + mean
		}
		return pitch * shift
	}

	for i := range out.Contour {
		out.Contour[i] = scale(out.Contour[i])
	}
	for i, pitch := range out.Pitches {
		if !out.Voiced[i] {
			// Scaling must not resurrect an unvoiced mora.
			out.Pitches[i] = UnvoicedPitch
			continue
		}
		out.Pitches[i] = scale(pitch)
	}

	for i := range out.Durations {
		out.Durations[i] /= p.SpeedScale
	}

	// Edge silence is absolute, not subject to speed scaling, and the pause
	// pseudo-phonemes stay zero-pitch regardless of edge clamping.
	out.Durations[0] = p.PrePauseSeconds
	out.Durations[len(out.Durations)-1] = p.PostPauseSeconds
	out.Contour[0] = UnvoicedPitch
	out.Contour[len(out.Contour)-1] = UnvoicedPitch

	return out
}

// interpolateUnvoiced fills unvoiced spans by linear interpolation between
// the nearest voiced neighbors in the log-f0 domain. Leading and trailing
// unvoiced runs clamp to the nearest voiced value. With no voiced entries at
// all the result stays at the sentinel.
func interpolateUnvoiced(pitches []float32, voiced []bool) []float32 {
	out := append([]float32(nil), pitches...)

	prev := -1
	for i := 0; i < len(out); i++ {
		if !voiced[i] {
			continue
		}
		switch {
		case prev < 0:
			// Leading run clamps to the first voiced value.
			for j := 0; j < i; j++ {
				out[j] = out[i]
			}
		case i-prev > 1:
			span := float32(i - prev)
			for j := prev + 1; j < i; j++ {
				t := float32(j-prev) / span
				out[j] = out[prev]*(1-t) + out[i]*t
			}
		}
		prev = i
	}

	if prev >= 0 {
		// Trailing run clamps to the last voiced value.
		for j := prev + 1; j < len(out); j++ {
			out[j] = out[prev]
		}
	}

	return out
}

func voicedMean(pitches []float32, voiced []bool) (float32, bool) {
	var sum float32
	count := 0
	for i, p := range pitches {
		if voiced[i] {
			sum += p
			count++
		}
	}
	if count == 0 {
		return 0, false
	}
	return sum / float32(count), true
}
