package main

import (
	"fmt"
	"os"

	"github.com/leonardotrapani/voxchunk/internal/bus"
	"github.com/leonardotrapani/voxchunk/internal/config"
	"github.com/spf13/cobra"
)

var configPath string

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "voxchunk",
		Short:        "Chunked microphone transcription",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "config file (default $XDG_CONFIG_HOME/voxchunk/config.toml)")

	root.AddCommand(
		serveCmd(),
		daemonCmd(),
		recordCmd(),
		busCmd("toggle", "Toggle recording on/off", bus.CmdToggle),
		busCmd("status", "Get current recording status", bus.CmdStatus),
		busCmd("version", "Get protocol version", bus.CmdVersion),
		busCmd("stop", "Stop the daemon", bus.CmdQuit),
		configureCmd(),
		wavCmd(),
		inspectCmd(),
		transcribeCmd(),
		doctorCmd(),
	)
	return root
}

func busCmd(use, short string, command byte) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := bus.SendCommand(command)
			if err != nil {
				return fmt.Errorf("failed to reach daemon (is 'voxchunk daemon' running?): %w", err)
			}
			fmt.Fprint(cmd.OutOrStdout(), resp)
			return nil
		},
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadPath(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
