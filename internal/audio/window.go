package audio

import (
	"fmt"
	"time"
)

const (
	DefaultSampleRate = 16000
	DefaultWindow     = time.Second
)

// Windower accumulates frames and cuts them into fixed-duration windows.
//
// Every Push drains all complete windows currently buffered, so a burst of
// several seconds of audio yields several windows immediately instead of one
// per arrival. The sub-window remainder stays buffered for the next Push.
//
// A Windower has no internal locking; exactly one goroutine may call Push
// and Reset.
type Windower struct {
	sampleRate    int
	window        time.Duration
	windowSamples int
	buf           Buffer
	emit          func([]int16)
}

func NewWindower(sampleRate int, window time.Duration, emit func([]int16)) (*Windower, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate: %d", sampleRate)
	}
	if window <= 0 {
		return nil, fmt.Errorf("invalid window duration: %v", window)
	}
	n := int(float64(sampleRate) * window.Seconds())
	if n <= 0 {
		return nil, fmt.Errorf("window %v is shorter than one sample at %d Hz", window, sampleRate)
	}
	if emit == nil {
		emit = func([]int16) {}
	}
	return &Windower{
		sampleRate:    sampleRate,
		window:        window,
		windowSamples: n,
		emit:          emit,
	}, nil
}

// Push appends frame and emits every complete window. It returns the number
// of windows emitted.
func (w *Windower) Push(frame []int16) int {
	w.buf.Append(frame)

	emitted := 0
	for w.buf.Len() >= w.windowSamples {
		w.emit(w.buf.Take(w.windowSamples))
		emitted++
	}
	return emitted
}

func (w *Windower) durationMs() float64 {
	return float64(w.buf.Len()) / float64(w.sampleRate) * 1000
}

// Buffered is the number of samples waiting for a full window.
func (w *Windower) Buffered() int {
	return w.buf.Len()
}

func (w *Windower) Duration() time.Duration {
	return time.Duration(w.durationMs() * float64(time.Millisecond))
}

func (w *Windower) WindowSamples() int {
	return w.windowSamples
}

func (w *Windower) SampleRate() int {
	return w.sampleRate
}

// Reset drops buffered samples without emitting them.
func (w *Windower) Reset() {
	w.buf.Reset()
}
