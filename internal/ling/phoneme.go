// Package ling holds the linguistic data model consumed by the synthesis
// pipeline: morae, accent phrases, utterances, and the OJT phoneme table that
// maps phoneme strings to the integer ids the acoustic models were trained on.
package ling

import "fmt"

// phonemeTable lists every phoneme the acoustic models know, in id order.
// Index 0 is the pause phoneme.
var phonemeTable = []string{
	"pau", "A", "E", "I", "N", "O", "U", "a", "b", "by",
	"ch", "cl", "d", "dy", "e", "f", "g", "gw", "gy", "h",
	"hy", "i", "j", "k", "kw", "ky", "m", "my", "n", "ny",
	"o", "p", "py", "r", "ry", "s", "sh", "t", "ts", "ty",
	"u", "v", "w", "y", "z",
}

var phonemeIDs = func() map[string]int64 {
	m := make(map[string]int64, len(phonemeTable))
	for i, p := range phonemeTable {
		m[p] = int64(i)
	}
	return m
}()

// Mora phonemes carry the pitch of a mora: vowels, the moraic nasal, the
// devoiced vowels, the sokuon, and pause.
var moraPhonemes = map[string]bool{
	"a": true, "i": true, "u": true, "e": true, "o": true, "N": true,
	"A": true, "I": true, "U": true, "E": true, "O": true,
	"cl": true, "pau": true,
}

// Unvoiced mora phonemes have no fundamental frequency.
var unvoicedMoraPhonemes = map[string]bool{
	"A": true, "I": true, "U": true, "E": true, "O": true,
	"cl": true, "pau": true,
}

const (
	// PhonemePau is the silence phoneme inserted at utterance and phrase
	// boundaries.
	PhonemePau = "pau"

	// NoPhonemeID marks an absent phoneme slot (e.g. a mora without a
	// consonant) in model input vectors.
	NoPhonemeID int64 = -1
)

// NumPhonemes returns the size of the phoneme vocabulary, which is also the
// width of the decoder's one-hot phoneme input.
func NumPhonemes() int {
	return len(phonemeTable)
}

// PhonemeID returns the model id for a phoneme string.
func PhonemeID(phoneme string) (int64, error) {
	id, ok := phonemeIDs[phoneme]
	if !ok {
		return 0, fmt.Errorf("unknown phoneme %q", phoneme)
	}
	return id, nil
}

// PhonemeName returns the phoneme string for a model id, or "" for ids
// outside the table (including NoPhonemeID).
func PhonemeName(id int64) string {
	if id < 0 || id >= int64(len(phonemeTable)) {
		return ""
	}
	return phonemeTable[id]
}

// IsMoraPhoneme reports whether the phoneme closes a mora (vowel-like).
func IsMoraPhoneme(phoneme string) bool {
	return moraPhonemes[phoneme]
}

// IsUnvoicedPhoneme reports whether the phoneme carries no pitch.
func IsUnvoicedPhoneme(phoneme string) bool {
	return unvoicedMoraPhonemes[phoneme]
}
