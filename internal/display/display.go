// Package display keeps the running transcript and prints it as it grows.
package display

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

var (
	colorSeq  = lipgloss.Color("#64748B")
	colorText = lipgloss.Color("#F8FAFC")
)

type Entry struct {
	Seq        uint64
	Text       string
	ReceivedAt time.Time
}

// Transcript is the display buffer for transcripts. Entries are kept in
// arrival order, which may differ from capture order.
type Transcript struct {
	mu      sync.Mutex
	entries []Entry
	out     io.Writer

	seqStyle  lipgloss.Style
	textStyle lipgloss.Style
}

// New returns a Transcript printing to out. A nil out only buffers.
func New(out io.Writer) *Transcript {
	t := &Transcript{out: out}

	renderer := lipgloss.NewRenderer(io.Discard)
	if out != nil {
		renderer = lipgloss.NewRenderer(out, termenv.WithColorCache(true))
	}
	t.seqStyle = renderer.NewStyle().Foreground(colorSeq)
	t.textStyle = renderer.NewStyle().Foreground(colorText)
	return t
}

func (t *Transcript) Append(seq uint64, text string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.entries = append(t.entries, Entry{Seq: seq, Text: text, ReceivedAt: time.Now()})

	text = strings.TrimSpace(text)
	if t.out == nil || text == "" {
		return
	}
	fmt.Fprintf(t.out, "%s %s\n", t.seqStyle.Render(fmt.Sprintf("[%04d]", seq)), t.textStyle.Render(text))
}

func (t *Transcript) Entries() []Entry {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Entry, len(t.entries))
	copy(out, t.entries)
	return out
}

// Text joins all non-empty transcripts with single spaces.
func (t *Transcript) Text() string {
	t.mu.Lock()
	defer t.mu.Unlock()

	parts := make([]string, 0, len(t.entries))
	for _, e := range t.entries {
		if s := strings.TrimSpace(e.Text); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}

func (t *Transcript) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}
