// Package config loads voxtts configuration from defaults, a config file,
// environment variables, and command-line flags, in increasing precedence.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	LogLevel string        `mapstructure:"log_level"`
	Paths    PathsConfig   `mapstructure:"paths"`
	Runtime  RuntimeConfig `mapstructure:"runtime"`
	Engine   EngineConfig  `mapstructure:"engine"`
	Server   ServerConfig  `mapstructure:"server"`
}

type PathsConfig struct {
	StylesManifest string `mapstructure:"styles_manifest"`
}

type RuntimeConfig struct {
	ORTLibraryPath string `mapstructure:"ort_library_path"`
	ORTAPIVersion  uint32 `mapstructure:"ort_api_version"`
}

type EngineConfig struct {
	SpeedScale           float64 `mapstructure:"speed_scale"`
	PitchScale           float64 `mapstructure:"pitch_scale"`
	IntonationScale      float64 `mapstructure:"intonation_scale"`
	VolumeScale          float64 `mapstructure:"volume_scale"`
	PrePauseSeconds      float64 `mapstructure:"pre_pause_seconds"`
	PostPauseSeconds     float64 `mapstructure:"post_pause_seconds"`
	InterrogativeUpspeak bool    `mapstructure:"interrogative_upspeak"`
	PreloadStyles        []int64 `mapstructure:"preload_styles"`
}

type ServerConfig struct {
	ListenAddr     string        `mapstructure:"listen_addr"`
	Workers        int           `mapstructure:"workers"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

type LoadOptions struct {
	Cmd        flagBinder
	ConfigFile string
	Defaults   Config
}

type flagBinder interface {
	Flags() *pflag.FlagSet
}

func DefaultConfig() Config {
	return Config{
		LogLevel: "info",
		Paths: PathsConfig{
			StylesManifest: "models/styles.json",
		},
		Runtime: RuntimeConfig{
			ORTLibraryPath: "",
			ORTAPIVersion:  23,
		},
		Engine: EngineConfig{
			SpeedScale:           1,
			PitchScale:           0,
			IntonationScale:      1,
			VolumeScale:          1,
			PrePauseSeconds:      0.1,
			PostPauseSeconds:     0.1,
			InterrogativeUpspeak: true,
			PreloadStyles:        nil,
		},
		Server: ServerConfig{
			ListenAddr:     ":8080",
			Workers:        2,
			RequestTimeout: 60 * time.Second,
		},
	}
}

func RegisterFlags(fs *pflag.FlagSet, defaults Config) {
	fs.String("log-level", defaults.LogLevel, "Log level (debug|info|warn|error)")
	fs.String("paths-styles-manifest", defaults.Paths.StylesManifest, "Path to styles manifest JSON")
	fs.String("runtime-ort-library-path", defaults.Runtime.ORTLibraryPath, "Path to ONNX Runtime shared library")
	fs.String("ort-lib", defaults.Runtime.ORTLibraryPath, "Path to ONNX Runtime shared library (alias for --runtime-ort-library-path)")
	fs.Uint32("runtime-ort-api-version", defaults.Runtime.ORTAPIVersion, "ONNX Runtime API version")
	fs.Float64("engine-speed-scale", defaults.Engine.SpeedScale, "Default speech speed multiplier")
	fs.Float64("engine-pitch-scale", defaults.Engine.PitchScale, "Default pitch shift (octaves)")
	fs.Float64("engine-intonation-scale", defaults.Engine.IntonationScale, "Default intonation contrast multiplier")
	fs.Float64("engine-volume-scale", defaults.Engine.VolumeScale, "Default output volume multiplier")
	fs.Float64("engine-pre-pause-seconds", defaults.Engine.PrePauseSeconds, "Silence before the utterance in seconds")
	fs.Float64("engine-post-pause-seconds", defaults.Engine.PostPauseSeconds, "Silence after the utterance in seconds")
	fs.Bool("engine-interrogative-upspeak", defaults.Engine.InterrogativeUpspeak, "Raise pitch at the end of questions")
	fs.Int64Slice("engine-preload-styles", defaults.Engine.PreloadStyles, "Style ids to load eagerly at startup")
	fs.String("server-listen-addr", defaults.Server.ListenAddr, "HTTP listen address")
	fs.Int("server-workers", defaults.Server.Workers, "Max concurrent synthesis requests")
	fs.Duration("server-request-timeout", defaults.Server.RequestTimeout, "Per-request synthesis deadline")
}

func Load(opts LoadOptions) (Config, error) {
	v := viper.New()

	setDefaults(v, opts.Defaults)
	if opts.Cmd != nil {
		if err := v.BindPFlags(opts.Cmd.Flags()); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}
	registerAliases(v)

	v.SetEnvPrefix("VOXTTS")
	replacer := strings.NewReplacer("-", "_", ".", "_", "__", "_")
	v.SetEnvKeyReplacer(replacer)
	if err := v.BindEnv("runtime.ort_library_path", "VOXTTS_ORT_LIB", "ORT_LIBRARY_PATH"); err != nil {
		return Config{}, fmt.Errorf("bind ort env vars: %w", err)
	}
	v.AutomaticEnv()

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	} else {
		v.SetConfigName("voxtts")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper, c Config) {
	v.SetDefault("log_level", c.LogLevel)
	v.SetDefault("paths.styles_manifest", c.Paths.StylesManifest)
	v.SetDefault("runtime.ort_library_path", c.Runtime.ORTLibraryPath)
	v.SetDefault("runtime.ort_api_version", c.Runtime.ORTAPIVersion)
	v.SetDefault("engine.speed_scale", c.Engine.SpeedScale)
	v.SetDefault("engine.pitch_scale", c.Engine.PitchScale)
	v.SetDefault("engine.intonation_scale", c.Engine.IntonationScale)
	v.SetDefault("engine.volume_scale", c.Engine.VolumeScale)
	v.SetDefault("engine.pre_pause_seconds", c.Engine.PrePauseSeconds)
	v.SetDefault("engine.post_pause_seconds", c.Engine.PostPauseSeconds)
	v.SetDefault("engine.interrogative_upspeak", c.Engine.InterrogativeUpspeak)
	v.SetDefault("engine.preload_styles", c.Engine.PreloadStyles)
	v.SetDefault("server.listen_addr", c.Server.ListenAddr)
	v.SetDefault("server.workers", c.Server.Workers)
	v.SetDefault("server.request_timeout", c.Server.RequestTimeout)
}

func registerAliases(v *viper.Viper) {
	v.RegisterAlias("log_level", "log-level")
	v.RegisterAlias("paths.styles_manifest", "paths-styles-manifest")
	v.RegisterAlias("runtime.ort_library_path", "runtime-ort-library-path")
	v.RegisterAlias("runtime.ort_library_path", "ort-lib")
	v.RegisterAlias("runtime.ort_api_version", "runtime-ort-api-version")
	v.RegisterAlias("engine.speed_scale", "engine-speed-scale")
	v.RegisterAlias("engine.pitch_scale", "engine-pitch-scale")
	v.RegisterAlias("engine.intonation_scale", "engine-intonation-scale")
	v.RegisterAlias("engine.volume_scale", "engine-volume-scale")
	v.RegisterAlias("engine.pre_pause_seconds", "engine-pre-pause-seconds")
	v.RegisterAlias("engine.post_pause_seconds", "engine-post-pause-seconds")
	v.RegisterAlias("engine.interrogative_upspeak", "engine-interrogative-upspeak")
	v.RegisterAlias("engine.preload_styles", "engine-preload-styles")
	v.RegisterAlias("server.listen_addr", "server-listen-addr")
	v.RegisterAlias("server.workers", "server-workers")
	v.RegisterAlias("server.request_timeout", "server-request-timeout")
}
