package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/example/go-voxcore/internal/audio"
	"github.com/example/go-voxcore/internal/ling"
	"github.com/example/go-voxcore/internal/session"
)

func newSynthCmd() *cobra.Command {
	var input string
	var out string
	var styleID int64

	cmd := &cobra.Command{
		Use:   "synth",
		Short: "Synthesize an accent-phrase document to WAV",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			u, err := readUtterance(input, os.Stdin)
			if err != nil {
				return err
			}

			eng, mgr, err := newEngine(cfg)
			if err != nil {
				return err
			}
			defer mgr.Close()

			params := prosodyFromConfig(cfg.Engine)
			buf, err := eng.Synthesize(cmd.Context(), u, session.StyleID(styleID), params)
			if err != nil {
				return err
			}

			wav, err := audio.EncodeWAV(buf)
			if err != nil {
				return err
			}

			return writeSynthOutput(out, wav, os.Stdout)
		},
	}

	cmd.Flags().StringVar(&input, "input", "-", "Accent-phrase JSON path ('-' for stdin)")
	cmd.Flags().StringVar(&out, "out", "out.wav", "Output WAV path ('-' for stdout)")
	cmd.Flags().Int64Var(&styleID, "style", 0, "Style id to synthesize with")

	return cmd
}

func readUtterance(path string, stdin io.Reader) (ling.Utterance, error) {
	var r io.Reader
	if path == "-" {
		r = stdin
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open input: %w", err)
		}
		defer func() { _ = f.Close() }()
		r = f
	}
	return ling.DecodeUtterance(r)
}

func writeSynthOutput(out string, data []byte, stdout io.Writer) error {
	if out == "-" {
		_, err := stdout.Write(data)
		return err
	}

	if err := os.WriteFile(out, data, 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}
