//go:build integration

package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/example/go-voxcore/internal/audio"
	"github.com/example/go-voxcore/internal/testutil"
)

func TestSynthIntegration(t *testing.T) {
	testutil.RequireONNXRuntime(t)

	manifest := strings.TrimSpace(os.Getenv("VOXTTS_TEST_MANIFEST"))
	if manifest == "" {
		t.Skip("set VOXTTS_TEST_MANIFEST to a styles manifest with real models for integration test")
	}
	testutil.RequireStylesManifest(t, manifest)

	input := filepath.Join(t.TempDir(), "input.json")
	if err := os.WriteFile(input, []byte(utteranceJSON), 0o644); err != nil {
		t.Fatalf("write input: %v", err)
	}

	out := filepath.Join(t.TempDir(), "out.wav")
	root := NewRootCmd()
	root.SetArgs([]string{
		"synth",
		"--paths-styles-manifest", manifest,
		"--input", input,
		"--out", out,
		"--style", "1",
	})

	if err := root.Execute(); err != nil {
		t.Fatalf("synth command failed: %v", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read output wav: %v", err)
	}
	if len(data) < 12 || string(data[:4]) != "RIFF" {
		t.Fatalf("invalid WAV RIFF header")
	}

	samples, err := audio.DecodeWAV(data)
	if err != nil {
		t.Fatalf("decode output wav: %v", err)
	}
	if len(samples) == 0 {
		t.Fatalf("expected non-zero duration audio")
	}
}
