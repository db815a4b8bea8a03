package engine

import "github.com/example/go-voxcore/internal/ling"

// Question-mora shaping for interrogative phrases.
const (
	upspeakVowelLength = 0.15
	upspeakPitchStep   = 0.3
	upspeakPitchMax    = 6.5
)

// adjustInterrogative appends a short rising mora to each interrogative
// phrase whose last mora is voiced, producing the question intonation. Runs
// after pitch prediction so the appended mora can build on the predicted
// contour.
func adjustInterrogative(u ling.Utterance) ling.Utterance {
	out := u.Clone()
	for i, phrase := range out {
		if !phrase.Interrogative || len(phrase.Moras) == 0 {
			continue
		}
		last := phrase.Moras[len(phrase.Moras)-1]
		if last.Pitch == 0 {
			continue
		}

		pitch := last.Pitch + upspeakPitchStep
		if pitch > upspeakPitchMax {
			pitch = upspeakPitchMax
		}
		out[i].Moras = append(out[i].Moras, ling.Mora{
			Text:        last.Text,
			Vowel:       last.Vowel,
			VowelLength: upspeakVowelLength,
			Pitch:       pitch,
		})
	}
	return out
}
