package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/example/go-voxcore/internal/config"
)

func TestNewRootCmd_Subcommands(t *testing.T) {
	cmd := NewRootCmd()

	for _, name := range []string{"synth", "styles", "serve"} {
		found := false
		for _, sub := range cmd.Commands() {
			if sub.Name() == name {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("subcommand %q not registered", name)
		}
	}
}

func TestNewRootCmd_ConfigFlags(t *testing.T) {
	cmd := NewRootCmd()

	for _, name := range []string{"config", "log-level", "paths-styles-manifest", "ort-lib"} {
		if cmd.PersistentFlags().Lookup(name) == nil {
			t.Errorf("persistent flag %q not registered", name)
		}
	}
}

func TestProsodyFromConfig(t *testing.T) {
	cfg := config.EngineConfig{
		SpeedScale:           1.2,
		PitchScale:           0.1,
		IntonationScale:      0.9,
		VolumeScale:          0.8,
		PrePauseSeconds:      0.15,
		PostPauseSeconds:     0.25,
		InterrogativeUpspeak: false,
	}

	p := prosodyFromConfig(cfg)

	if p.SpeedScale != 1.2 {
		t.Errorf("SpeedScale = %v; want 1.2", p.SpeedScale)
	}
	if p.PitchScale != float32(0.1) {
		t.Errorf("PitchScale = %v; want 0.1", p.PitchScale)
	}
	if p.PrePauseSeconds != 0.15 {
		t.Errorf("PrePauseSeconds = %v; want 0.15", p.PrePauseSeconds)
	}
	if p.PostPauseSeconds != 0.25 {
		t.Errorf("PostPauseSeconds = %v; want 0.25", p.PostPauseSeconds)
	}
	if p.InterrogativeUpspeak {
		t.Error("InterrogativeUpspeak = true; want false")
	}
}

func TestStylesCommand(t *testing.T) {
	dir := t.TempDir()
	manifest := filepath.Join(dir, "styles.json")
	content := `{
		"styles": [
			{"id": 1, "name": "metan-normal", "models": {
				"duration": "d.onnx", "intonation": "i.onnx", "decode": "w.onnx"}},
			{"id": 3, "name": "zundamon-normal", "models": {
				"duration": "d.onnx", "intonation": "i.onnx", "decode": "w.onnx"}}
		]
	}`
	if err := os.WriteFile(manifest, []byte(content), 0o644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}

	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"styles", "--paths-styles-manifest", manifest})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	got := out.String()
	for _, want := range []string{"ID", "NAME", "metan-normal", "zundamon-normal"} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
}

func TestStylesCommand_MissingManifest(t *testing.T) {
	cmd := NewRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"styles", "--paths-styles-manifest", "/nonexistent/styles.json"})

	if err := cmd.Execute(); err == nil {
		t.Error("Execute succeeded with missing manifest")
	}
}
