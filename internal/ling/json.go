package ling

import (
	"encoding/json"
	"fmt"
	"io"
)

// utteranceDoc is the wire shape emitted by accent-estimation front-ends.
type utteranceDoc struct {
	AccentPhrases []AccentPhrase `json:"accent_phrases"`
}

// DecodeUtterance reads an accent-phrase JSON document from r. This is the
// boundary with the linguistic front-end: the core consumes the structure and
// never parses raw text itself.
func DecodeUtterance(r io.Reader) (Utterance, error) {
	var doc utteranceDoc
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode utterance: %w", err)
	}

	u := Utterance(doc.AccentPhrases)
	if err := u.Validate(); err != nil {
		return nil, fmt.Errorf("invalid utterance: %w", err)
	}
	return u, nil
}

// EncodeUtterance writes the utterance as an accent-phrase JSON document.
// Useful for round-tripping audio queries through the two-pass flow.
func EncodeUtterance(w io.Writer, u Utterance) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(utteranceDoc{AccentPhrases: u}); err != nil {
		return fmt.Errorf("encode utterance: %w", err)
	}
	return nil
}
