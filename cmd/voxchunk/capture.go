package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/leonardotrapani/voxchunk/internal/config"
	"github.com/leonardotrapani/voxchunk/internal/daemon"
	"github.com/leonardotrapani/voxchunk/internal/display"
	"github.com/leonardotrapani/voxchunk/internal/notify"
	"github.com/leonardotrapani/voxchunk/internal/recording"
	"github.com/leonardotrapani/voxchunk/internal/session"
	"github.com/leonardotrapani/voxchunk/internal/upload"
	"github.com/spf13/cobra"
)

func newNotifier(cfg *config.Config) notify.Notifier {
	if !cfg.Notifications.Enabled {
		return notify.Nop{}
	}
	return notify.New(cfg.Notifications.Type)
}

func daemonCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "daemon",
		Short: "Run the capture daemon controlled by toggle/status/stop",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			transcript := display.New(cmd.OutOrStdout())
			uploader, err := upload.New(cfg.ToUploadConfig(), transcript)
			if err != nil {
				return fmt.Errorf("failed to create upload client: %w", err)
			}

			recorder := recording.NewRecorder(cfg.ToRecordingConfig())
			d := daemon.New(recorder, cfg.ToSessionConfig(), uploader, transcript, newNotifier(cfg))
			return d.Run()
		},
	}
}

func recordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "record",
		Short: "Capture and transcribe in the foreground until Ctrl-C",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return runRecord(cmd, cfg)
		},
	}
}

func runRecord(cmd *cobra.Command, cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	notifier := newNotifier(cfg)
	transcript := display.New(cmd.OutOrStdout())
	uploader, err := upload.New(cfg.ToUploadConfig(), transcript)
	if err != nil {
		return fmt.Errorf("failed to create upload client: %w", err)
	}

	failed := make(chan error, 1)
	sessCfg := cfg.ToSessionConfig()
	sessCfg.OnError = func(err error) {
		notifier.Error(err.Error())
		failed <- err
	}
	sess := session.New(recording.NewRecorder(cfg.ToRecordingConfig()), sessCfg)

	// Uploads get their own context so Ctrl-C does not cancel them.
	uploadCtx := context.Background()
	if err := sess.Start(ctx, func(w session.Window) {
		uploader.Dispatch(uploadCtx, w)
	}); err != nil {
		notifier.Error(err.Error())
		return fmt.Errorf("failed to start capture: %w", err)
	}
	notifier.RecordingStarted()
	log.Printf("Recording to %s, press Ctrl-C to stop", cfg.Upload.Endpoint)

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-failed:
	case <-sess.Done():
		select {
		case runErr = <-failed:
		default:
			runErr = session.ErrSourceClosed
		}
	}

	sess.Stop()
	notifier.RecordingStopped()

	log.Printf("Waiting for pending uploads...")
	uploader.Wait()

	if text := transcript.Text(); text != "" {
		fmt.Fprintln(cmd.OutOrStdout())
		fmt.Fprintln(cmd.OutOrStdout(), text)
	}
	return runErr
}
