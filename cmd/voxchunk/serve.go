package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/leonardotrapani/voxchunk/internal/config"
	"github.com/leonardotrapani/voxchunk/internal/server"
	"github.com/leonardotrapani/voxchunk/internal/transcriber"
	"github.com/spf13/cobra"
)

func serveCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the transcription proxy",
		Long: `Serve POST /transcribe, forwarding each uploaded WAV container to the
configured speech-to-text provider. Provider settings are reloaded when the
config file changes.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.address)")
	return cmd
}

func runServe(addr string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mgr, err := config.NewManager(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := mgr.StartWatching(ctx); err != nil {
		log.Printf("Config manager: hot reload disabled: %v", err)
	}
	defer mgr.Stop()

	cfg := mgr.GetConfig()
	mgr.OnReload(reloadLogger(cfg))
	srvCfg := cfg.ToServerConfig()
	if addr != "" {
		srvCfg.Address = addr
	}
	if cfg.ResolveAPIKey() == "" {
		log.Printf("server: no API key for %s; set %s or transcription.api_key", cfg.Transcription.Provider, transcriber.APIKeyEnv(cfg.Transcription.Provider))
	}

	srv := server.New(srvCfg, func() (transcriber.Adapter, error) {
		return transcriber.New(mgr.GetConfig().ToTranscriberConfig())
	})

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), mgr.GetConfig().Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return <-errCh
}

// reloadLogger reports what a config reload changed for the running proxy.
// Hooks run on the watcher goroutine one at a time.
func reloadLogger(initial *config.Config) func(*config.Config) {
	prev := *initial
	return func(cfg *config.Config) {
		next := cfg.Transcription
		if next.Provider != prev.Transcription.Provider || next.Model != prev.Transcription.Model || next.Language != prev.Transcription.Language {
			log.Printf("server: transcription now %s model=%s language=%q", next.Provider, next.Model, next.Language)
		}
		if cfg.ResolveAPIKey() == "" {
			log.Printf("server: no API key for %s; requests will fail until one is set", next.Provider)
		}
		if cfg.Server != prev.Server {
			log.Printf("server: [server] settings changed; restart to apply them")
		}
		prev = *cfg
	}
}
