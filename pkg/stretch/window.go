package stretch

import "time"

// windowSize is how many reporting intervals feed the ETA average.
const windowSize = 10

// window is a bounded FIFO of interval durations. Once full, the oldest
// sample is evicted first.
type window struct {
	samples []time.Duration
	sum     time.Duration
}

func newWindow() *window {
	return &window{samples: make([]time.Duration, 0, windowSize+1)}
}

// push records d and drops the oldest sample when more than windowSize are held.
func (w *window) push(d time.Duration) {
	w.samples = append(w.samples, d)
	w.sum += d
	if len(w.samples) > windowSize {
		w.sum -= w.samples[0]
		w.samples = append(w.samples[:0], w.samples[1:]...)
	}
}

// mean returns the average interval duration, or 0 with no samples.
func (w *window) mean() time.Duration {
	if len(w.samples) == 0 {
		return 0
	}
	return w.sum / time.Duration(len(w.samples))
}

func (w *window) len() int {
	return len(w.samples)
}
