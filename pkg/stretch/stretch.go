package stretch

import (
	"context"
	"errors"
	"math/bits"
	"time"

	"github.com/screa/promokey/internal/crypto"
	"github.com/screa/promokey/pkg/types"
)

// ErrInvalidTarget is returned for a zero iteration count.
var ErrInvalidTarget = errors.New("target must be a positive iteration count")

// Option configures a Stretcher
type Option func(*Stretcher)

// WithObserver registers a callback for progress events. It may be given
// more than once; observers are called in registration order.
func WithObserver(fn types.ProgressFunc) Option {
	return func(s *Stretcher) {
		if fn != nil {
			s.observers = append(s.observers, fn)
		}
	}
}

// WithClock replaces time.Now for ETA measurement.
func WithClock(now func() time.Time) Option {
	return func(s *Stretcher) {
		s.now = now
	}
}

// Stretcher runs the sequential hash stretch. It holds no per-run state,
// so one value may serve concurrent Run calls.
type Stretcher struct {
	observers []types.ProgressFunc
	now       func() time.Time
}

// New creates a Stretcher
func New(opts ...Option) *Stretcher {
	s := &Stretcher{now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Stretch is a convenience wrapper around New(WithObserver(fn)).Run.
func Stretch(ctx context.Context, input []byte, target uint64, fn types.ProgressFunc) ([crypto.DigestSize]byte, error) {
	return New(WithObserver(fn)).Run(ctx, input, target)
}

// Interval returns how many iterations make up one whole percent of target.
func Interval(target uint64) uint64 {
	if target == 0 {
		return 0
	}
	return (target + 99) / 100
}

// Run hashes input exactly target times: once over input, then target-1
// times over the previous 32 byte digest.
//
// Progress is emitted once per Interval(target) iterations plus a final
// 100% event. The context is polled at the same points; a cancelled run
// returns ctx.Err() and a zero digest, never a short stretch.
func (s *Stretcher) Run(ctx context.Context, input []byte, target uint64) ([crypto.DigestSize]byte, error) {
	var zero [crypto.DigestSize]byte
	if target == 0 {
		return zero, ErrInvalidTarget
	}
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	interval := Interval(target)
	win := newWindow()
	last := s.now()
	lastPercent := -1

	digest := crypto.Sum(input)
	for i := uint64(1); i < target; i++ {
		digest = crypto.Round(digest)
		if i%interval != 0 {
			continue
		}

		if err := ctx.Err(); err != nil {
			return zero, err
		}

		now := s.now()
		win.push(now.Sub(last))
		last = now

		pct := percent(i, target)
		if pct <= lastPercent {
			continue
		}
		lastPercent = pct
		perIter := win.mean().Seconds() / float64(interval)
		s.emit(types.ProgressEvent{
			Percent: pct,
			ETA:     float64(target-i) * perIter,
		})
	}

	if lastPercent < 100 {
		s.emit(types.ProgressEvent{Percent: 100, ETA: 0})
	}
	return digest, nil
}

func (s *Stretcher) emit(ev types.ProgressEvent) {
	for _, fn := range s.observers {
		fn(ev)
	}
}

// percent computes floor(i*100/target) without overflowing for large targets.
// Requires i < target.
func percent(i, target uint64) int {
	hi, lo := bits.Mul64(i, 100)
	q, _ := bits.Div64(hi, lo, target)
	return int(q)
}
