package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/example/go-voxcore/internal/config"
	"github.com/example/go-voxcore/internal/engine"
	"github.com/example/go-voxcore/internal/onnx"
	"github.com/example/go-voxcore/internal/server"
	"github.com/example/go-voxcore/internal/session"
)

var (
	cfgFile   string
	activeCfg config.Config
)

func NewRootCmd() *cobra.Command {
	defaults := config.DefaultConfig()

	cmd := &cobra.Command{
		Use:   "voxtts",
		Short: "VoxTTS synthesis command line",
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			loaded, err := config.Load(config.LoadOptions{
				Cmd:        cmd,
				ConfigFile: cfgFile,
				Defaults:   defaults,
			})
			if err != nil {
				return err
			}
			activeCfg = loaded
			setupLogger(loaded.LogLevel)
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Optional config file (yaml|toml|json)")
	config.RegisterFlags(cmd.PersistentFlags(), defaults)

	cmd.AddCommand(newSynthCmd())
	cmd.AddCommand(newStylesCmd())
	cmd.AddCommand(newServeCmd())

	return cmd
}

// setupLogger configures the process-wide slog default logger.
func setupLogger(levelStr string) {
	lvl, err := server.ParseLogLevel(levelStr)
	if err != nil {
		lvl = slog.LevelInfo
	}
	h := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(h))
}

func requireConfig() (config.Config, error) {
	if activeCfg.Paths.StylesManifest == "" {
		return config.Config{}, fmt.Errorf("configuration not loaded")
	}
	return activeCfg, nil
}

// newEngine wires the manifest, the ORT loader, and the session manager into
// a ready engine. The caller must Close the returned manager.
func newEngine(cfg config.Config) (*engine.Engine, *session.Manager, error) {
	manifest, err := session.LoadManifest(cfg.Paths.StylesManifest)
	if err != nil {
		return nil, nil, err
	}

	libPath, err := onnx.DetectLibrary(cfg.Runtime.ORTLibraryPath)
	if err != nil {
		return nil, nil, err
	}

	loader := session.ORTLoader{Config: onnx.RunnerConfig{
		LibraryPath: libPath,
		APIVersion:  cfg.Runtime.ORTAPIVersion,
	}}

	mgr := session.NewManager(manifest, loader)
	return engine.New(mgr), mgr, nil
}

// prosodyFromConfig turns the configured engine defaults into request params.
func prosodyFromConfig(cfg config.EngineConfig) engine.ProsodyParams {
	return engine.ProsodyParams{
		SpeedScale:           float32(cfg.SpeedScale),
		PitchScale:           float32(cfg.PitchScale),
		IntonationScale:      float32(cfg.IntonationScale),
		VolumeScale:          float32(cfg.VolumeScale),
		PrePauseSeconds:      float32(cfg.PrePauseSeconds),
		PostPauseSeconds:     float32(cfg.PostPauseSeconds),
		InterrogativeUpspeak: cfg.InterrogativeUpspeak,
	}
}
