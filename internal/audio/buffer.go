// Package audio assembles decoder output into the final sample buffer and
// encodes it as WAV.
package audio

// Output format of the waveform decoder.
const (
	SampleRate = 24000
	Channels   = 1
	BitDepth   = 16
)

// Buffer is the final linear PCM result of one synthesis request. The caller
// owns it once returned.
type Buffer struct {
	Samples    []float32
	SampleRate int
	Channels   int
}

// Duration returns the buffer length in seconds.
func (b Buffer) Duration() float64 {
	if b.SampleRate == 0 {
		return 0
	}
	return float64(len(b.Samples)) / float64(b.SampleRate)
}

// EmptyInputError reports an assembly request with zero segments.
type EmptyInputError struct{}

func (e *EmptyInputError) Error() string {
	return "no audio segments to assemble"
}

// Assemble concatenates per-utterance sample segments in request order,
// applying volume as a linear amplitude multiplier with clipping to [-1, 1].
// Pauses between segments were already encoded as silence durations, so no
// implicit gap is inserted.
func Assemble(segments [][]float32, volume float32) (Buffer, error) {
	if len(segments) == 0 {
		return Buffer{}, &EmptyInputError{}
	}

	total := 0
	for _, seg := range segments {
		total += len(seg)
	}

	samples := make([]float32, 0, total)
	for _, seg := range segments {
		for _, v := range seg {
			v *= volume
			if v > 1 {
				v = 1
			} else if v < -1 {
				v = -1
			}
			samples = append(samples, v)
		}
	}

	return Buffer{
		Samples:    samples,
		SampleRate: SampleRate,
		Channels:   Channels,
	}, nil
}
