package ling

import (
	"errors"
	"fmt"
)

// Mora is the smallest pronounceable unit: an optional consonant followed by
// a vowel-like phoneme. Length and pitch fields start at zero and are filled
// in by the variance predictor; the front-end produces the phonemes only.
type Mora struct {
	Text            string  `json:"text"`
	Consonant       string  `json:"consonant,omitempty"`
	ConsonantLength float32 `json:"consonant_length,omitempty"`
	Vowel           string  `json:"vowel"`
	VowelLength     float32 `json:"vowel_length"`
	Pitch           float32 `json:"pitch"`
}

// HasConsonant reports whether the mora begins with a consonant phoneme.
func (m Mora) HasConsonant() bool {
	return m.Consonant != ""
}

// Voiced reports whether the mora carries a fundamental frequency.
func (m Mora) Voiced() bool {
	return !IsUnvoicedPhoneme(m.Vowel)
}

// AccentPhrase groups morae under a single pitch-accent contour. Accent is
// the zero-based index of the accented mora. PauseMora, when present, is a
// trailing silence mora separating this phrase from the next breath group.
type AccentPhrase struct {
	Moras         []Mora `json:"moras"`
	Accent        int    `json:"accent"`
	PauseMora     *Mora  `json:"pause_mora,omitempty"`
	Interrogative bool   `json:"is_interrogative,omitempty"`
}

// Utterance is one synthesis request: an ordered sequence of accent phrases.
// It is read-only through the pipeline; stages that adjust lengths or pitches
// return a fresh copy.
type Utterance []AccentPhrase

// Validate checks the structural invariants the pipeline relies on: at least
// one phrase, at least one mora per phrase, known phonemes, and an accent
// index inside the mora sequence.
func (u Utterance) Validate() error {
	if len(u) == 0 {
		return errors.New("utterance has no accent phrases")
	}
	for i, phrase := range u {
		if len(phrase.Moras) == 0 {
			return fmt.Errorf("accent phrase %d has no morae", i)
		}
		if phrase.Accent < 0 || phrase.Accent >= len(phrase.Moras) {
			return fmt.Errorf("accent phrase %d: accent index %d out of range [0,%d)",
				i, phrase.Accent, len(phrase.Moras))
		}
		for j, mora := range phrase.Moras {
			if mora.Vowel == "" {
				return fmt.Errorf("accent phrase %d mora %d has no vowel", i, j)
			}
			if _, err := PhonemeID(mora.Vowel); err != nil {
				return fmt.Errorf("accent phrase %d mora %d: %w", i, j, err)
			}
			if mora.Consonant != "" {
				if _, err := PhonemeID(mora.Consonant); err != nil {
					return fmt.Errorf("accent phrase %d mora %d: %w", i, j, err)
				}
			}
		}
		if phrase.PauseMora != nil && phrase.PauseMora.Vowel != PhonemePau {
			return fmt.Errorf("accent phrase %d: pause mora vowel %q, want %q",
				i, phrase.PauseMora.Vowel, PhonemePau)
		}
	}
	return nil
}

// FlattenMoras returns every mora of the utterance in order, including
// trailing pause morae.
func (u Utterance) FlattenMoras() []Mora {
	var out []Mora
	for _, phrase := range u {
		out = append(out, phrase.Moras...)
		if phrase.PauseMora != nil {
			out = append(out, *phrase.PauseMora)
		}
	}
	return out
}

// Clone returns a deep copy of the utterance so pipeline stages can replace
// lengths and pitches without mutating caller-owned data.
func (u Utterance) Clone() Utterance {
	out := make(Utterance, len(u))
	for i, phrase := range u {
		copied := phrase
		copied.Moras = append([]Mora(nil), phrase.Moras...)
		if phrase.PauseMora != nil {
			pause := *phrase.PauseMora
			copied.PauseMora = &pause
		}
		out[i] = copied
	}
	return out
}
