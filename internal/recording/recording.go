package recording

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os/exec"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

var (
	ErrPermissionDenied  = errors.New("microphone access denied")
	ErrDeviceUnavailable = errors.New("no audio input device available")
)

type AudioFrame struct {
	Samples   []int16
	Timestamp time.Time
}

type Config struct {
	SampleRate        int
	Channels          int
	Format            string
	BufferSize        int
	Device            string
	ChannelBufferSize int
}

func DefaultConfig() Config {
	return Config{
		SampleRate:        16000,
		Channels:          1,
		Format:            "s16",
		BufferSize:        8192,
		Device:            "",
		ChannelBufferSize: 30,
	}
}

// Recorder streams microphone audio from pw-record as signed 16-bit frames.
type Recorder struct {
	config    Config
	recording atomic.Bool

	mu     sync.Mutex // guards cancel
	cancel context.CancelFunc

	wg sync.WaitGroup

	// overridable in tests
	lookPath func(string) (string, error)
	probeCmd func(ctx context.Context) *exec.Cmd
}

func NewRecorder(config Config) *Recorder {
	return &Recorder{
		config:   config,
		lookPath: exec.LookPath,
		probeCmd: func(ctx context.Context) *exec.Cmd {
			return exec.CommandContext(ctx, "pw-cli", "info")
		},
	}
}

func NewDefaultRecorder() *Recorder { return NewRecorder(DefaultConfig()) }

func (r *Recorder) IsRecording() bool {
	return r.recording.Load()
}

func (r *Recorder) SampleRate() int {
	return r.config.SampleRate
}

// Probe checks that an input device can be opened.
func (r *Recorder) Probe(ctx context.Context) error {
	if _, err := r.lookPath("pw-record"); err != nil {
		return fmt.Errorf("%w: pw-record not found: %v (install pipewire-tools)", ErrDeviceUnavailable, err)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	checkCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := r.probeCmd(checkCtx).Run(); err != nil {
		return fmt.Errorf("%w: PipeWire refused connection: %v", ErrPermissionDenied, err)
	}
	return nil
}

func (r *Recorder) Start(ctx context.Context) (<-chan AudioFrame, <-chan error, error) {
	if r.recording.Load() {
		return nil, nil, fmt.Errorf("already recording")
	}

	if err := r.validateConfig(); err != nil {
		return nil, nil, err
	}

	recordingCtx, cancel := context.WithCancel(ctx)

	frameCh := make(chan AudioFrame, r.config.ChannelBufferSize)
	errCh := make(chan error, 1)

	r.mu.Lock()
	r.cancel = cancel
	r.mu.Unlock()

	r.recording.Store(true)
	r.wg.Add(1)
	go r.captureLoop(recordingCtx, frameCh, errCh)

	return frameCh, errCh, nil
}

func (r *Recorder) Stop() error {
	if !r.recording.Load() {
		return nil
	}
	r.requestCancel()
	return nil
}

func (r *Recorder) Wait() {
	r.wg.Wait()
}

func (r *Recorder) captureLoop(ctx context.Context, frameCh chan<- AudioFrame, errCh chan<- error) {
	// errCh closes first so a consumer that sees frameCh closed can still
	// pick up the final error.
	defer func() {
		close(errCh)
		close(frameCh)
		r.recording.Store(false)

		r.mu.Lock()
		r.cancel = nil
		r.mu.Unlock()

		r.wg.Done()
	}()

	cmd := exec.CommandContext(ctx, "pw-record", r.buildPwRecordArgs()...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		r.emitErr(errCh, fmt.Errorf("create stdout pipe: %w", err))
		r.requestCancel()
		return
	}

	stderr, err := cmd.StderrPipe()
	if err != nil {
		r.emitErr(errCh, fmt.Errorf("create stderr pipe: %w", err))
		r.requestCancel()
		return
	}

	if err := cmd.Start(); err != nil {
		if ctx.Err() != nil {
			return
		}
		r.emitErr(errCh, fmt.Errorf("%w: start pw-record: %v", ErrDeviceUnavailable, err))
		r.requestCancel()
		return
	}

	var lastLine string
	stderrDone := make(chan struct{})
	go func() {
		defer close(stderrDone)
		scanner := bufio.NewScanner(stderr)
		for scanner.Scan() {
			lastLine = scanner.Text()
			log.Printf("recording: pw-record: %s", lastLine)
		}
	}()

	r.readFrames(ctx, stdout, frameCh, errCh)

	<-stderrDone
	err = cmd.Wait()
	if ctx.Err() != nil {
		return
	}

	// pw-record ended without being asked to.
	switch {
	case err != nil && lastLine != "":
		r.emitErr(errCh, fmt.Errorf("%w: pw-record exited: %v (%s)", ErrDeviceUnavailable, err, lastLine))
	case err != nil:
		r.emitErr(errCh, fmt.Errorf("%w: pw-record exited: %v", ErrDeviceUnavailable, err))
	default:
		r.emitErr(errCh, fmt.Errorf("%w: pw-record exited unexpectedly", ErrDeviceUnavailable))
	}
}

// readFrames converts the s16le byte stream into sample frames. An odd
// trailing byte is held back and prefixed to the next read. Each send blocks
// until the consumer takes the frame or ctx is done.
func (r *Recorder) readFrames(ctx context.Context, src io.Reader, frameCh chan<- AudioFrame, errCh chan<- error) {
	buffer := make([]byte, r.config.BufferSize)
	var carry []byte

	for {
		n, readErr := src.Read(buffer)
		if n > 0 {
			data := append(carry, buffer[:n]...)
			whole := len(data) &^ 1
			carry = append([]byte(nil), data[whole:]...)

			if whole > 0 {
				frame := AudioFrame{Samples: BytesToSamples(data[:whole]), Timestamp: time.Now()}

				select {
				case frameCh <- frame:
				case <-ctx.Done():
					return
				}
			}
		}

		if readErr != nil {
			if errors.Is(readErr, io.EOF) || ctx.Err() != nil {
				return
			}
			r.emitErr(errCh, fmt.Errorf("read audio: %w", readErr))
			r.requestCancel()
			return
		}

		select {
		case <-ctx.Done():
			return
		default:
		}
	}
}

func (r *Recorder) requestCancel() {
	r.mu.Lock()
	cancel := r.cancel
	r.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (r *Recorder) emitErr(errCh chan<- error, err error) {
	select {
	case errCh <- err:
	default:
	}
	log.Printf("recording: %v", err)
}

func (r *Recorder) buildPwRecordArgs() []string {
	args := []string{
		"--format", r.config.Format,
		"--rate", strconv.Itoa(r.config.SampleRate),
		"--channels", strconv.Itoa(r.config.Channels),
		"-", // stdout
	}
	if r.config.Device != "" {
		args = append(args, "--target", r.config.Device)
	}
	return args
}

func (r *Recorder) validateConfig() error {
	if r.config.SampleRate <= 0 {
		return fmt.Errorf("invalid SampleRate: %d", r.config.SampleRate)
	}
	if r.config.Channels != 1 {
		return fmt.Errorf("invalid Channels: %d (only mono is supported)", r.config.Channels)
	}
	if r.config.BufferSize <= 0 {
		return fmt.Errorf("invalid BufferSize: %d", r.config.BufferSize)
	}
	if r.config.ChannelBufferSize <= 0 {
		return fmt.Errorf("invalid ChannelBufferSize: %d", r.config.ChannelBufferSize)
	}
	if r.config.Format != "s16" {
		return fmt.Errorf("invalid Format: %q (only s16 is supported)", r.config.Format)
	}
	if r.config.BufferSize%2 != 0 {
		log.Printf("recording: BufferSize %d not aligned to sample size; samples will straddle reads", r.config.BufferSize)
	}
	return nil
}
