// Package promo derives deterministic private keys from promo codes.
//
// A derivation stretches the UTF-8 bytes of the code through the current
// target of the published schedule and encodes the result as a compressed
// WIF string. Callers re-deriving against an older target pass it
// explicitly with WithTarget.
package promo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/screa/promokey/internal/logger"
	"github.com/screa/promokey/pkg/keyenc"
	"github.com/screa/promokey/pkg/stretch"
	"github.com/screa/promokey/pkg/types"
)

const (
	// CurrentTarget is the latest published iteration count.
	CurrentTarget uint64 = 12_500_000

	// DefaultMinTarget is the smallest override accepted by default.
	DefaultMinTarget uint64 = 1_000_000
)

// ErrTargetTooSmall is returned when a target is below the configured floor.
var ErrTargetTooSmall = errors.New("target below minimum iteration count")

// DefaultSchedule returns the published target history. Entries are only
// ever appended here.
func DefaultSchedule() types.Schedule {
	return types.NewSchedule(CurrentTarget)
}

// PromoCode is the cleartext a key is derived from
type PromoCode struct {
	text string
}

// NewPromoCode wraps text
func NewPromoCode(text string) PromoCode {
	return PromoCode{text: text}
}

// String returns the original text
func (p PromoCode) String() string {
	return p.text
}

// Bytes returns the UTF-8 encoding fed to the stretch.
func (p PromoCode) Bytes() []byte {
	return []byte(p.text)
}

// Option configures a Deriver
type Option func(*Deriver)

// WithSchedule replaces the default target history.
func WithSchedule(s types.Schedule) Option {
	return func(d *Deriver) {
		d.schedule = s
	}
}

// WithTarget pins the derivation to an explicit, usually historical, target.
func WithTarget(target uint64) Option {
	return func(d *Deriver) {
		d.target = target
	}
}

// WithVersion sets the WIF network prefix.
func WithVersion(v byte) Option {
	return func(d *Deriver) {
		d.version = v
	}
}

// WithObserver registers a progress callback.
func WithObserver(fn types.ProgressFunc) Option {
	return func(d *Deriver) {
		if fn != nil {
			d.observers = append(d.observers, fn)
		}
	}
}

// WithMinTarget lowers or raises the floor applied to the chosen target.
func WithMinTarget(floor uint64) Option {
	return func(d *Deriver) {
		d.minTarget = floor
	}
}

// WithLogger sets the logger used for start and finish messages.
func WithLogger(l *logger.Logger) Option {
	return func(d *Deriver) {
		d.logger = l
	}
}

// Deriver turns promo codes into keys. It is safe for concurrent use; each
// Derive call owns its own hashing state.
type Deriver struct {
	schedule  types.Schedule
	target    uint64
	version   byte
	minTarget uint64
	observers []types.ProgressFunc
	logger    *logger.Logger
}

// NewDeriver creates a Deriver and validates its settings up front, so a
// bad target never reaches the hashing loop.
func NewDeriver(opts ...Option) (*Deriver, error) {
	d := &Deriver{
		schedule:  DefaultSchedule(),
		version:   keyenc.DefaultVersion,
		minTarget: DefaultMinTarget,
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.logger == nil {
		d.logger = logger.Discard()
	}

	if err := d.schedule.Validate(); err != nil {
		return nil, fmt.Errorf("invalid schedule: %w", err)
	}
	if d.target == 0 {
		d.target = d.schedule.Current()
	}
	if d.target < d.minTarget {
		return nil, fmt.Errorf("%w: %d < %d", ErrTargetTooSmall, d.target, d.minTarget)
	}
	return d, nil
}

// Target returns the iteration count this Deriver applies.
func (d *Deriver) Target() uint64 {
	return d.target
}

// Version returns the WIF prefix this Deriver applies.
func (d *Deriver) Version() byte {
	return d.version
}

// Derive stretches code and encodes the resulting key. extra observers are
// notified after the ones registered on the Deriver.
func (d *Deriver) Derive(ctx context.Context, code PromoCode, extra ...types.ProgressFunc) (*types.DerivedKey, error) {
	opts := make([]stretch.Option, 0, len(d.observers)+len(extra))
	for _, fn := range d.observers {
		opts = append(opts, stretch.WithObserver(fn))
	}
	for _, fn := range extra {
		opts = append(opts, stretch.WithObserver(fn))
	}

	start := time.Now()
	d.logger.Debugf("Deriving key with target %d, version %d", d.target, d.version)

	digest, err := stretch.New(opts...).Run(ctx, code.Bytes(), d.target)
	if err != nil {
		return nil, fmt.Errorf("stretch: %w", err)
	}

	key := keyenc.Encode(digest, d.version)
	key.Target = d.target
	d.logger.Debugf("Derived key in %v", time.Since(start))
	return key, nil
}

// Derive is a one-shot helper using the default schedule.
func Derive(ctx context.Context, text string, opts ...Option) (*types.DerivedKey, error) {
	d, err := NewDeriver(opts...)
	if err != nil {
		return nil, err
	}
	return d.Derive(ctx, NewPromoCode(text))
}
