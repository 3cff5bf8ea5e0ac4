package session_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/leonardotrapani/voxchunk/internal/recording"
	"github.com/leonardotrapani/voxchunk/internal/session"
	"github.com/leonardotrapani/voxchunk/internal/testutil"
)

func collect(ch chan session.Window) func(session.Window) {
	return func(w session.Window) { ch <- w }
}

func waitWindow(t *testing.T, ch chan session.Window) session.Window {
	t.Helper()
	select {
	case w := <-ch:
		return w
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for window")
		return session.Window{}
	}
}

func TestSessionEmitsWindows(t *testing.T) {
	src := testutil.NewFakeSource()
	s := session.New(src, session.Config{Window: time.Second})
	windows := make(chan session.Window, 8)

	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := s.Start(ctx, collect(windows)); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Stop()

	if s.State() != session.Active {
		t.Fatalf("state = %s, want active", s.State())
	}

	for i := 0; i < 3; i++ {
		if !src.Send(testutil.Ramp(i*8000, 8000)) {
			t.Fatalf("frame %d not consumed", i)
		}
	}

	w := waitWindow(t, windows)
	if w.Seq != 1 {
		t.Errorf("seq = %d, want 1", w.Seq)
	}
	if len(w.Samples) != 16000 {
		t.Errorf("window len = %d, want 16000", len(w.Samples))
	}
	if w.SampleRate != 16000 {
		t.Errorf("sample rate = %d", w.SampleRate)
	}
	if w.Samples[0] != 0 || w.Samples[15999] != 15999 {
		t.Error("window does not hold the first 16000 samples")
	}

	select {
	case extra := <-windows:
		t.Errorf("unexpected extra window %d", extra.Seq)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSessionStopDiscardsPartialWindow(t *testing.T) {
	src := testutil.NewFakeSource()
	s := session.New(src, session.Config{})
	windows := make(chan session.Window, 8)

	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := s.Start(ctx, collect(windows)); err != nil {
		t.Fatalf("Start: %v", err)
	}
	src.Send(testutil.Ramp(0, 20000))
	waitWindow(t, windows)

	s.Stop()
	if s.State() != session.Idle {
		t.Fatalf("state after stop = %s", s.State())
	}
	if s.Discarded() != 4000 {
		t.Errorf("discarded = %d, want 4000", s.Discarded())
	}
	if s.Buffered() != 0 {
		t.Errorf("buffered after stop = %d", s.Buffered())
	}

	// The next session starts empty: 16000 fresh samples form exactly one
	// window that begins with the first new sample.
	if err := s.Start(ctx, collect(windows)); err != nil {
		t.Fatalf("restart: %v", err)
	}
	defer s.Stop()

	src.Send(testutil.Ramp(-1000, 12000))
	src.Send(testutil.Ramp(11000, 4000))
	w := waitWindow(t, windows)
	if w.Samples[0] != -1000 {
		t.Errorf("first sample = %d, want -1000", w.Samples[0])
	}
	if w.Seq != 1 {
		t.Errorf("sequence should restart, got %d", w.Seq)
	}
}

func TestSessionStopIdleIsNoop(t *testing.T) {
	src := testutil.NewFakeSource()
	s := session.New(src, session.Config{})

	s.Stop()
	s.Stop()

	if _, _, stops := src.Counts(); stops != 0 {
		t.Errorf("source stopped %d times on idle session", stops)
	}
}

func TestSessionStartTwice(t *testing.T) {
	src := testutil.NewFakeSource()
	s := session.New(src, session.Config{})

	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := s.Start(ctx, nil); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Stop()

	if err := s.Start(ctx, nil); !errors.Is(err, session.ErrAlreadyActive) {
		t.Errorf("second Start err = %v, want ErrAlreadyActive", err)
	}
	if _, starts, _ := src.Counts(); starts != 1 {
		t.Errorf("source started %d times", starts)
	}
}

func TestSessionPermission(t *testing.T) {
	t.Run("denied is surfaced and not retried", func(t *testing.T) {
		src := testutil.NewFakeSource()
		src.ProbeErr = recording.ErrPermissionDenied
		s := session.New(src, session.Config{})

		err := s.Start(context.Background(), nil)
		if !errors.Is(err, recording.ErrPermissionDenied) {
			t.Fatalf("err = %v, want ErrPermissionDenied", err)
		}
		if probes, starts, _ := src.Counts(); probes != 1 || starts != 0 {
			t.Errorf("probes=%d starts=%d", probes, starts)
		}
		if s.State() != session.Idle {
			t.Errorf("state = %s", s.State())
		}
	})

	t.Run("device unavailable", func(t *testing.T) {
		src := testutil.NewFakeSource()
		src.ProbeErr = recording.ErrDeviceUnavailable
		s := session.New(src, session.Config{})

		if err := s.RequestPermission(context.Background()); !errors.Is(err, recording.ErrDeviceUnavailable) {
			t.Errorf("err = %v, want ErrDeviceUnavailable", err)
		}
	})

	t.Run("granted permission is reused by start", func(t *testing.T) {
		src := testutil.NewFakeSource()
		s := session.New(src, session.Config{})

		if err := s.RequestPermission(context.Background()); err != nil {
			t.Fatalf("RequestPermission: %v", err)
		}
		if err := s.Start(context.Background(), nil); err != nil {
			t.Fatalf("Start: %v", err)
		}
		s.Stop()

		if probes, _, _ := src.Counts(); probes != 1 {
			t.Errorf("probes = %d, want 1", probes)
		}
	})
}

func TestSessionSourceError(t *testing.T) {
	src := testutil.NewFakeSource()
	gotErr := make(chan error, 1)
	s := session.New(src, session.Config{OnError: func(err error) { gotErr <- err }})

	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := s.Start(ctx, nil); err != nil {
		t.Fatalf("Start: %v", err)
	}
	done := s.Done()

	boom := errors.New("device unplugged")
	src.Fail(boom)

	select {
	case err := <-gotErr:
		if !errors.Is(err, boom) {
			t.Errorf("OnError got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("OnError not called")
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("session goroutine did not exit")
	}

	s.Stop()
	if s.State() != session.Idle {
		t.Errorf("state = %s", s.State())
	}
}

func TestSessionSourceClosed(t *testing.T) {
	exited := errors.New("pw-record exited: exit status 1")

	tests := []struct {
		name    string
		queued  error
		wantErr error
	}{
		{"with queued error", exited, exited},
		{"without error", nil, session.ErrSourceClosed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := testutil.NewFakeSource()
			gotErr := make(chan error, 1)
			s := session.New(src, session.Config{OnError: func(err error) { gotErr <- err }})

			ctx, cancel := testutil.TestContext()
			defer cancel()

			if err := s.Start(ctx, nil); err != nil {
				t.Fatalf("Start: %v", err)
			}
			done := s.Done()
			src.Close(tt.queued)

			select {
			case err := <-gotErr:
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("OnError got %v, want %v", err, tt.wantErr)
				}
			case <-time.After(2 * time.Second):
				t.Fatal("OnError not called after the source closed")
			}

			select {
			case <-done:
			case <-time.After(2 * time.Second):
				t.Fatal("session goroutine did not exit")
			}
			s.Stop()
		})
	}

	if !errors.Is(session.ErrSourceClosed, recording.ErrDeviceUnavailable) {
		t.Error("ErrSourceClosed should wrap ErrDeviceUnavailable")
	}
}

func TestSessionStopDoesNotReportError(t *testing.T) {
	src := testutil.NewFakeSource()
	gotErr := make(chan error, 1)
	s := session.New(src, session.Config{OnError: func(err error) { gotErr <- err }})

	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := s.Start(ctx, nil); err != nil {
		t.Fatalf("Start: %v", err)
	}
	s.Stop()

	select {
	case err := <-gotErr:
		t.Errorf("OnError called on Stop: %v", err)
	default:
	}
}

func TestSessionBufferedWhileActive(t *testing.T) {
	src := testutil.NewFakeSource()
	s := session.New(src, session.Config{})

	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := s.Start(ctx, nil); err != nil {
		t.Fatalf("Start: %v", err)
	}
	src.Send(testutil.Ramp(0, 8000))

	// Polled from another goroutine while capture runs.
	if got := s.Buffered(); got != 0 {
		t.Errorf("Buffered while active = %d, want 0", got)
	}

	s.Stop()
	if s.Discarded() != 8000 {
		t.Errorf("discarded = %d, want 8000", s.Discarded())
	}
}
