package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/leonardotrapani/voxchunk/internal/audio"
	"github.com/leonardotrapani/voxchunk/internal/config"
	"github.com/leonardotrapani/voxchunk/internal/deps"
	"github.com/leonardotrapani/voxchunk/internal/transcriber"
	"github.com/leonardotrapani/voxchunk/internal/tui"
	"github.com/leonardotrapani/voxchunk/internal/wav"
	"github.com/spf13/cobra"
)

func configureCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "configure",
		Short: "Interactive configuration setup",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := configPath
			if path == "" {
				p, err := config.GetConfigPath()
				if err != nil {
					return err
				}
				path = p
			}

			cfg, err := config.LoadPath(configPath)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			result, err := tui.Run(cfg)
			if err != nil {
				return fmt.Errorf("configuration wizard error: %w", err)
			}
			if result.Cancelled {
				fmt.Fprintln(cmd.OutOrStdout(), "Configuration cancelled.")
				return nil
			}

			if err := config.Save(result.Config, path); err != nil {
				return fmt.Errorf("failed to save config: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Configuration saved to %s\n", path)
			return nil
		},
	}
}

func wavCmd() *cobra.Command {
	var rate int

	cmd := &cobra.Command{
		Use:   "wav <in.pcm> <out.wav>",
		Short: "Wrap raw s16le mono PCM in a WAV container",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if rate <= 0 {
				return fmt.Errorf("invalid --rate %d", rate)
			}
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			if len(raw)%2 != 0 {
				return fmt.Errorf("%s: odd byte count %d is not 16-bit PCM", args[0], len(raw))
			}
			if err := os.WriteFile(args[1], wav.EncodePCM(raw, rate), 0644); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d samples, %v)\n", args[1], len(raw)/2,
				time.Duration(len(raw)/2)*time.Second/time.Duration(rate))
			return nil
		},
	}
	cmd.Flags().IntVar(&rate, "rate", audio.DefaultSampleRate, "sample rate in Hz")
	return cmd
}

func inspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <file.wav>",
		Short: "Print the header of a WAV container",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			h, err := wav.ParseHeader(data)
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "file:            %s\n", args[0])
			fmt.Fprintf(out, "chunk size:      %d\n", h.ChunkSize)
			fmt.Fprintf(out, "audio format:    %d\n", h.AudioFormat)
			fmt.Fprintf(out, "channels:        %d\n", h.Channels)
			fmt.Fprintf(out, "sample rate:     %d\n", h.SampleRate)
			fmt.Fprintf(out, "byte rate:       %d\n", h.ByteRate)
			fmt.Fprintf(out, "block align:     %d\n", h.BlockAlign)
			fmt.Fprintf(out, "bits per sample: %d\n", h.BitsPerSample)
			fmt.Fprintf(out, "data size:       %d\n", h.DataSize)
			fmt.Fprintf(out, "samples:         %d\n", h.SampleCount())
			fmt.Fprintf(out, "duration:        %v\n", h.Duration())
			return nil
		},
	}
}

func transcribeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "transcribe <file.wav>",
		Short: "Send one WAV file straight to the configured provider",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}

			adapter, err := transcriber.New(cfg.ToTranscriberConfig())
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Server.ProviderTimeout)
			defer cancel()
			text, err := adapter.Transcribe(ctx, data, filepath.Base(args[0]))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), text)
			return nil
		},
	}
}

func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check that required external programs are installed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			statuses := deps.Check(cmd.Context())
			out := cmd.OutOrStdout()
			for _, s := range statuses {
				state := "missing"
				if s.Installed {
					state = s.Path
					if s.Version != "" {
						state += " (" + s.Version + ")"
					}
				}
				fmt.Fprintf(out, "%-12s %-28s %s\n", s.Name, s.Purpose, state)
			}
			if missing := deps.Missing(statuses); len(missing) > 0 {
				return fmt.Errorf("missing required programs: %v", missing)
			}
			return nil
		},
	}
}
