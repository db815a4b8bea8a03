package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const utteranceJSON = `{
	"accent_phrases": [
		{
			"moras": [
				{"text": "ア", "vowel": "a", "vowel_length": 0.1, "pitch": 5.0}
			],
			"accent": 0
		}
	]
}`

func TestReadUtterance_Stdin(t *testing.T) {
	u, err := readUtterance("-", strings.NewReader(utteranceJSON))
	if err != nil {
		t.Fatalf("readUtterance: %v", err)
	}
	if len(u) != 1 || len(u[0].Moras) != 1 {
		t.Errorf("utterance = %+v, want one phrase with one mora", u)
	}
}

func TestReadUtterance_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "input.json")
	if err := os.WriteFile(path, []byte(utteranceJSON), 0o644); err != nil {
		t.Fatalf("write input: %v", err)
	}

	u, err := readUtterance(path, nil)
	if err != nil {
		t.Fatalf("readUtterance: %v", err)
	}
	if len(u) != 1 {
		t.Errorf("got %d phrases, want 1", len(u))
	}
}

func TestReadUtterance_MissingFile(t *testing.T) {
	if _, err := readUtterance("/nonexistent/input.json", nil); err == nil {
		t.Error("readUtterance succeeded with missing file")
	}
}

func TestReadUtterance_InvalidJSON(t *testing.T) {
	if _, err := readUtterance("-", strings.NewReader("{broken")); err == nil {
		t.Error("readUtterance accepted invalid JSON")
	}
}

func TestWriteSynthOutput_Stdout(t *testing.T) {
	var stdout bytes.Buffer
	data := []byte("RIFF....WAVE")

	if err := writeSynthOutput("-", data, &stdout); err != nil {
		t.Fatalf("writeSynthOutput: %v", err)
	}
	if !bytes.Equal(stdout.Bytes(), data) {
		t.Error("stdout bytes do not match input")
	}
}

func TestWriteSynthOutput_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.wav")
	data := []byte("RIFF....WAVE")

	if err := writeSynthOutput(path, data, nil); err != nil {
		t.Fatalf("writeSynthOutput: %v", err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Error("written bytes do not match input")
	}
}

func TestWriteSynthOutput_BadPath(t *testing.T) {
	if err := writeSynthOutput("/nonexistent/dir/out.wav", []byte("x"), nil); err == nil {
		t.Error("writeSynthOutput succeeded with unwritable path")
	}
}
