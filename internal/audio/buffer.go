package audio

import "fmt"

// Merge returns a new slice holding existing followed by incoming.
// Neither input is modified.
func Merge(existing, incoming []int16) []int16 {
	out := make([]int16, len(existing)+len(incoming))
	copy(out, existing)
	copy(out[len(existing):], incoming)
	return out
}

// ExtractPrefix splits buf into its first n samples and the rest.
// Both results are independent copies. n outside [0, len(buf)] is a
// programming error and panics.
func ExtractPrefix(buf []int16, n int) (prefix, remainder []int16) {
	if n < 0 || n > len(buf) {
		panic(fmt.Sprintf("audio: extract %d samples from buffer of %d", n, len(buf)))
	}
	prefix = make([]int16, n)
	copy(prefix, buf[:n])
	remainder = make([]int16, len(buf)-n)
	copy(remainder, buf[n:])
	return prefix, remainder
}

// Buffer is an ordered queue of signed 16-bit samples. It is not safe for
// concurrent use; a single owner appends and takes.
type Buffer struct {
	samples []int16
}

func (b *Buffer) Append(frame []int16) {
	if len(frame) == 0 {
		return
	}
	b.samples = Merge(b.samples, frame)
}

// Take removes and returns the first n samples.
func (b *Buffer) Take(n int) []int16 {
	prefix, rest := ExtractPrefix(b.samples, n)
	b.samples = rest
	return prefix
}

func (b *Buffer) Len() int {
	return len(b.samples)
}

// Samples returns a copy of the buffered samples.
func (b *Buffer) Samples() []int16 {
	out := make([]int16, len(b.samples))
	copy(out, b.samples)
	return out
}

func (b *Buffer) Reset() {
	b.samples = nil
}
