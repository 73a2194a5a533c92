// Package abr implements throughput-driven adaptive bitrate selection.
package abr

// DefaultWindowSize is the number of throughput samples kept by default.
const DefaultWindowSize = 5

// Window is a fixed-capacity FIFO of recent throughput samples in bits
// per second, oldest first. It is not safe for concurrent use; the
// adaptation controller owns it exclusively.
type Window struct {
	samples  []float64
	capacity int
}

// NewWindow creates a window holding at most capacity samples. A
// non-positive capacity falls back to DefaultWindowSize.
func NewWindow(capacity int) *Window {
	if capacity <= 0 {
		capacity = DefaultWindowSize
	}
	return &Window{
		samples:  make([]float64, 0, capacity),
		capacity: capacity,
	}
}

// Record appends a sample, evicting the oldest one when the window is
// already full.
func (w *Window) Record(sample float64) {
	if len(w.samples) >= w.capacity {
		copy(w.samples, w.samples[1:])
		w.samples = w.samples[:len(w.samples)-1]
	}
	w.samples = append(w.samples, sample)
}

// Replace discards all current samples and loads the given sequence,
// keeping only the most recent capacity entries if it is longer.
func (w *Window) Replace(samples []float64) {
	if len(samples) > w.capacity {
		samples = samples[len(samples)-w.capacity:]
	}
	w.samples = w.samples[:0]
	w.samples = append(w.samples, samples...)
}

// Snapshot returns a copy of the samples in arrival order, oldest
// first. The caller owns the returned slice.
func (w *Window) Snapshot() []float64 {
	out := make([]float64, len(w.samples))
	copy(out, w.samples)
	return out
}

// Len returns the number of samples currently held.
func (w *Window) Len() int {
	return len(w.samples)
}

// Capacity returns the maximum number of samples the window holds.
func (w *Window) Capacity() int {
	return w.capacity
}

// Reset discards all samples.
func (w *Window) Reset() {
	w.samples = w.samples[:0]
}
