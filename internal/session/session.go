// Package session turns a live audio source into a sequence of fixed-length
// windows delivered to a callback.
package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/leonardotrapani/voxchunk/internal/audio"
	"github.com/leonardotrapani/voxchunk/internal/recording"
)

type State string

const (
	Idle   State = "idle"
	Active State = "active"
)

var (
	ErrAlreadyActive = errors.New("capture session already active")
	ErrSourceClosed  = fmt.Errorf("%w: audio source closed", recording.ErrDeviceUnavailable)
)

// Source delivers audio frames. *recording.Recorder implements it.
type Source interface {
	Probe(ctx context.Context) error
	Start(ctx context.Context) (<-chan recording.AudioFrame, <-chan error, error)
	Stop() error
	Wait()
	SampleRate() int
}

// Window is one completed audio window.
type Window struct {
	Seq        uint64
	Samples    []int16
	SampleRate int
	CapturedAt time.Time
}

type Config struct {
	Window time.Duration
	// OnError is called from the session goroutine when the source fails.
	OnError func(error)
}

// Session owns a source and the windowing state fed from it. Buffered samples
// are only touched by the session goroutine while Active.
type Session struct {
	source Source
	config Config

	mu        sync.Mutex // guards state, permitted, cancel, done
	state     State
	permitted bool
	cancel    context.CancelFunc
	done      chan struct{}

	windower  *audio.Windower
	seq       uint64
	discarded int
}

func New(source Source, config Config) *Session {
	if config.Window <= 0 {
		config.Window = audio.DefaultWindow
	}
	return &Session{source: source, config: config, state: Idle}
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// RequestPermission acquires access to the input device. Failures are
// returned as is and never retried.
func (s *Session) RequestPermission(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requestPermissionLocked(ctx)
}

func (s *Session) requestPermissionLocked(ctx context.Context) error {
	if s.permitted {
		return nil
	}
	if err := s.source.Probe(ctx); err != nil {
		return err
	}
	s.permitted = true
	return nil
}

// Start begins capture. onWindow is invoked on the session goroutine once per
// completed window, in capture order. It must not call back into the Session.
func (s *Session) Start(ctx context.Context, onWindow func(Window)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == Active {
		return ErrAlreadyActive
	}

	if err := s.requestPermissionLocked(ctx); err != nil {
		return err
	}

	sampleRate := s.source.SampleRate()
	w, err := audio.NewWindower(sampleRate, s.config.Window, func(samples []int16) {
		s.seq++
		if onWindow != nil {
			onWindow(Window{
				Seq:        s.seq,
				Samples:    samples,
				SampleRate: sampleRate,
				CapturedAt: time.Now(),
			})
		}
	})
	if err != nil {
		return fmt.Errorf("create windower: %w", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	frameCh, errCh, err := s.source.Start(runCtx)
	if err != nil {
		cancel()
		return fmt.Errorf("start audio source: %w", err)
	}

	s.windower = w
	s.seq = 0
	s.cancel = cancel
	s.done = make(chan struct{})
	s.state = Active

	go s.run(runCtx, frameCh, errCh, s.done)

	log.Printf("session: capture started at %d Hz, %v windows", sampleRate, s.config.Window)
	return nil
}

func (s *Session) run(ctx context.Context, frameCh <-chan recording.AudioFrame, errCh <-chan error, done chan<- struct{}) {
	defer close(done)

	for {
		select {
		case <-ctx.Done():
			return

		case frame, ok := <-frameCh:
			if !ok {
				if ctx.Err() == nil {
					s.fail(sourceEndErr(errCh))
				}
				return
			}
			s.windower.Push(frame.Samples)

		case err, ok := <-errCh:
			if !ok {
				errCh = nil
				continue
			}
			if err != nil {
				s.fail(err)
				return
			}
		}
	}
}

// sourceEndErr picks up an error the source queued before closing its frame
// channel.
func sourceEndErr(errCh <-chan error) error {
	if errCh != nil {
		select {
		case err, ok := <-errCh:
			if ok && err != nil {
				return err
			}
		default:
		}
	}
	return ErrSourceClosed
}

func (s *Session) fail(err error) {
	log.Printf("session: audio source error: %v", err)
	if s.config.OnError != nil {
		s.config.OnError(err)
	}
}

// Stop halts frame delivery and waits for the session goroutine to exit.
// Samples short of a full window are discarded. Uploads already handed off
// by onWindow are not affected. Stop on an idle session is a no-op.
func (s *Session) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != Active {
		return
	}

	if err := s.source.Stop(); err != nil {
		log.Printf("session: error stopping audio source: %v", err)
	}
	s.cancel()
	<-s.done
	s.source.Wait()

	s.discarded = s.windower.Buffered()
	s.windower.Reset()

	s.cancel = nil
	s.done = nil
	s.permitted = false
	s.state = Idle

	log.Printf("session: capture stopped after %d windows, discarded %d buffered samples", s.seq, s.discarded)
}

// Buffered reports samples held in the windower. It is 0 while Active, since
// only the session goroutine may read the live buffer.
func (s *Session) Buffered() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Active || s.windower == nil {
		return 0
	}
	return s.windower.Buffered()
}

// Discarded is the number of sub-window samples dropped by the last Stop.
func (s *Session) Discarded() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.discarded
}

// Done is closed when the session goroutine exits on its own, such as after
// a source error. It returns nil while idle.
func (s *Session) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done
}
