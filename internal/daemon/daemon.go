package daemon

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/leonardotrapani/voxchunk/internal/bus"
	"github.com/leonardotrapani/voxchunk/internal/display"
	"github.com/leonardotrapani/voxchunk/internal/notify"
	"github.com/leonardotrapani/voxchunk/internal/session"
	"github.com/leonardotrapani/voxchunk/internal/upload"
)

// Daemon owns one capture session and serves control commands on the bus
// socket. Completed windows go to the upload client; transcripts land in
// the transcript display.
type Daemon struct {
	mu         sync.Mutex
	notifier   notify.Notifier
	session    *session.Session
	uploader   *upload.Client
	transcript *display.Transcript

	ctx    context.Context
	cancel context.CancelFunc

	// uploads outlive the session and the accept loop; they are drained on exit
	uploadCtx context.Context
}

func New(source session.Source, cfg session.Config, uploader *upload.Client, transcript *display.Transcript, n notify.Notifier) *Daemon {
	if n == nil {
		n = notify.Desktop{}
	}
	ctx, cancel := context.WithCancel(context.Background())
	d := &Daemon{
		notifier:   n,
		uploader:   uploader,
		transcript: transcript,
		ctx:        ctx,
		cancel:     cancel,
		uploadCtx:  context.Background(),
	}

	onError := cfg.OnError
	cfg.OnError = func(err error) {
		if onError != nil {
			onError(err)
		}
		go d.notifier.Error(fmt.Sprintf("Capture failed: %v", err))
	}
	d.session = session.New(source, cfg)
	return d
}

// Recording reports whether the session is capturing.
func (d *Daemon) Recording() bool {
	return d.session.State() == session.Active
}

func (d *Daemon) Transcript() *display.Transcript {
	return d.transcript
}

// Shutdown asks Run to return.
func (d *Daemon) Shutdown() {
	d.cancel()
}

func (d *Daemon) Run() error {
	if err := bus.CheckExistingDaemon(); err != nil {
		return err
	}

	ln, err := bus.Listen()
	if err != nil {
		return err
	}
	defer ln.Close()

	if err := bus.CreatePidFile(); err != nil {
		return fmt.Errorf("failed to create PID file: %w", err)
	}
	defer bus.RemovePidFile()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(sigCh)

	go func() {
		select {
		case sig := <-sigCh:
			log.Printf("Received signal %v, shutting down gracefully", sig)
			d.cancel()
		case <-d.ctx.Done():
		}
	}()

	go func() {
		<-d.ctx.Done()
		ln.Close()
	}()

	defer d.drain()

	log.Printf("Daemon started, listening on socket")

	for {
		c, err := ln.Accept()
		if err != nil {
			if d.ctx.Err() != nil {
				log.Printf("Shutdown requested")
				return nil
			}
			log.Printf("Accept error: %v", err)
			return fmt.Errorf("accept failed: %w", err)
		}
		go d.handle(c)
	}
}

// drain stops capture and waits for in-flight uploads.
func (d *Daemon) drain() {
	d.mu.Lock()
	d.session.Stop()
	d.mu.Unlock()

	d.uploader.Wait()
	log.Printf("Daemon stopped, %d transcript entries", d.transcript.Len())
}

func (d *Daemon) handle(c net.Conn) {
	defer c.Close()

	line, err := bufio.NewReader(c).ReadString('\n')
	if err != nil {
		log.Printf("Client read error: %v", err)
		fmt.Fprintf(c, "ERR read_error: %v\n", err)
		return
	}
	if len(line) == 0 {
		fmt.Fprint(c, "ERR empty\n")
		return
	}
	cmd := line[0]

	switch cmd {
	case bus.CmdToggle:
		recording, err := d.toggle()
		if err != nil {
			fmt.Fprintf(c, "ERR %v\n", err)
			return
		}
		fmt.Fprintf(c, "STATUS recording=%t\n", recording)
	case bus.CmdStatus:
		fmt.Fprintf(c, "STATUS status=%s entries=%d\n", d.session.State(), d.transcript.Len())
	case bus.CmdVersion:
		fmt.Fprintf(c, "STATUS proto=%s\n", bus.ProtoVer)
	case bus.CmdQuit:
		fmt.Fprint(c, "OK quitting\n")
		d.cancel()
	default:
		log.Printf("Unknown command: %c", cmd)
		fmt.Fprintf(c, "ERR unknown=%q\n", cmd)
	}
}

func (d *Daemon) toggle() (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.session.State() == session.Active {
		d.session.Stop()
		go d.notifier.RecordingStopped()
		return false, nil
	}

	err := d.session.Start(d.ctx, func(w session.Window) {
		d.uploader.Dispatch(d.uploadCtx, w)
	})
	if err != nil && !errors.Is(err, session.ErrAlreadyActive) {
		log.Printf("Failed to start capture: %v", err)
		go d.notifier.Error(fmt.Sprintf("Cannot start recording: %v", err))
		return false, err
	}

	go d.watch(d.session.Done())
	go d.notifier.RecordingStarted()
	return true, nil
}

// watch resets the session when its goroutine exits without a Stop, which
// happens when the audio source fails.
func (d *Daemon) watch(done <-chan struct{}) {
	if done == nil {
		return
	}
	<-done

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.session.Done() == done {
		log.Printf("Capture ended unexpectedly, returning to idle")
		d.session.Stop()
	}
}
