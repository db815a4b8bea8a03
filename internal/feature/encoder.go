// Package feature turns the nested accent-phrase structure into the flat
// numeric arrays the variance predictor and waveform decoder consume.
package feature

import (
	"fmt"

	"github.com/example/go-voxcore/internal/ling"
)

// EncodingError reports malformed linguistic input: an empty utterance, a
// phrase without morae, or a phoneme the models do not know. These are caller
// faults and are never retried.
type EncodingError struct {
	Reason string
	Err    error
}

func (e *EncodingError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("encode features: %s: %v", e.Reason, e.Err)
	}
	return "encode features: " + e.Reason
}

func (e *EncodingError) Unwrap() error {
	return e.Err
}

// Features holds the model-ready view of one utterance. Phonemes is the
// linear phoneme-id sequence with a pau at each end. The remaining arrays are
// indexed per mora phoneme (one entry per vowel-like phoneme, boundary paus
// included) and stay aligned with VowelIndexes throughout the pipeline.
type Features struct {
	Phonemes []int64

	VowelIndexes      []int
	VowelPhonemes     []int64
	ConsonantPhonemes []int64

	StartAccent       []int64
	EndAccent         []int64
	StartAccentPhrase []int64
	EndAccentPhrase   []int64
}

// MoraCount returns the number of real morae, excluding the two boundary
// paus.
func (f *Features) MoraCount() int {
	return len(f.VowelIndexes) - 2
}

// Encode flattens the utterance into model input arrays. It is a pure
// transform with no side effects.
func Encode(u ling.Utterance) (*Features, error) {
	if len(u) == 0 {
		return nil, &EncodingError{Reason: "utterance has no accent phrases"}
	}
	for i, phrase := range u {
		if len(phrase.Moras) == 0 {
			return nil, &EncodingError{Reason: fmt.Sprintf("accent phrase %d has no morae", i)}
		}
	}

	moras := u.FlattenMoras()

	phonemes, vowelIndexes, err := linearPhonemes(moras)
	if err != nil {
		return nil, &EncodingError{Reason: "unknown phoneme in utterance", Err: err}
	}

	f := &Features{
		Phonemes:     phonemes,
		VowelIndexes: vowelIndexes,
	}

	f.VowelPhonemes = make([]int64, len(vowelIndexes))
	f.ConsonantPhonemes = make([]int64, len(vowelIndexes))
	for i, vi := range vowelIndexes {
		f.VowelPhonemes[i] = phonemes[vi]
		f.ConsonantPhonemes[i] = ling.NoPhonemeID
		if i > 0 && vi-vowelIndexes[i-1] > 1 {
			f.ConsonantPhonemes[i] = phonemes[vi-1]
		}
	}

	f.StartAccent = sampleAtVowels(accentList(u, pointStartAccent), vowelIndexes)
	f.EndAccent = sampleAtVowels(accentList(u, pointEndAccent), vowelIndexes)
	f.StartAccentPhrase = sampleAtVowels(accentList(u, pointPhraseStart), vowelIndexes)
	f.EndAccentPhrase = sampleAtVowels(accentList(u, pointPhraseEnd), vowelIndexes)

	return f, nil
}

// linearPhonemes flattens morae into one phoneme-id sequence bracketed by
// pau, recording the index of each mora phoneme (pau boundaries included).
func linearPhonemes(moras []ling.Mora) ([]int64, []int, error) {
	pauID, err := ling.PhonemeID(ling.PhonemePau)
	if err != nil {
		return nil, nil, err
	}

	phonemes := []int64{pauID}
	vowelIndexes := []int{0}

	for _, mora := range moras {
		if mora.HasConsonant() {
			id, err := ling.PhonemeID(mora.Consonant)
			if err != nil {
				return nil, nil, err
			}
			phonemes = append(phonemes, id)
		}
		id, err := ling.PhonemeID(mora.Vowel)
		if err != nil {
			return nil, nil, err
		}
		phonemes = append(phonemes, id)
		vowelIndexes = append(vowelIndexes, len(phonemes)-1)
	}

	phonemes = append(phonemes, pauID)
	vowelIndexes = append(vowelIndexes, len(phonemes)-1)

	return phonemes, vowelIndexes, nil
}

type accentPoint int

const (
	pointStartAccent accentPoint = iota
	pointEndAccent
	pointPhraseStart
	pointPhraseEnd
)

// accentList builds a per-phoneme marker list (same indexing as the linear
// phoneme sequence, zero at the boundary paus) flagging the requested accent
// position within each phrase.
func accentList(u ling.Utterance, kind accentPoint) []int64 {
	out := []int64{0}
	for _, phrase := range u {
		point := phrasePoint(phrase, kind)
		for i, mora := range phrase.Moras {
			var value int64
			if i == point {
				value = 1
			}
			if mora.HasConsonant() {
				out = append(out, value)
			}
			out = append(out, value)
		}
		if phrase.PauseMora != nil {
			out = append(out, 0)
		}
	}
	out = append(out, 0)
	return out
}

// phrasePoint resolves the marked mora index for one accent list kind.
// The accent rise sits on the second mora unless the accent is on the first.
func phrasePoint(phrase ling.AccentPhrase, kind accentPoint) int {
	switch kind {
	case pointStartAccent:
		if phrase.Accent == 0 {
			return 0
		}
		return 1
	case pointEndAccent:
		return phrase.Accent
	case pointPhraseStart:
		return 0
	default:
		return len(phrase.Moras) - 1
	}
}

func sampleAtVowels(base []int64, vowelIndexes []int) []int64 {
	out := make([]int64, len(vowelIndexes))
	for i, vi := range vowelIndexes {
		out[i] = base[vi]
	}
	return out
}
