package types

import (
	"errors"
	"fmt"
	"time"
)

// Errors
var (
	ErrEmptySchedule   = errors.New("target schedule must contain at least one entry")
	ErrZeroTarget      = errors.New("target schedule entries must be positive")
	ErrIndexOutOfRange = errors.New("target schedule index out of range")
)

// KeySize is the length of a raw derived private key.
const KeySize = 32

// DerivedKey is the output of a single derivation
type DerivedKey struct {
	Bytes   [KeySize]byte
	WIF     string
	Version byte
	Target  uint64
}

// ProgressEvent reports how far a stretch has advanced
type ProgressEvent struct {
	Percent int     // 0-100
	ETA     float64 // estimated seconds remaining
}

// ProgressFunc receives progress events synchronously from the hashing loop.
// Implementations must return quickly.
type ProgressFunc func(ProgressEvent)

// Schedule is the append-only list of iteration counts published over time.
// The last entry is the target currently in force.
type Schedule struct {
	targets []uint64
}

// NewSchedule copies targets into a new schedule
func NewSchedule(targets ...uint64) Schedule {
	cp := make([]uint64, len(targets))
	copy(cp, targets)
	return Schedule{targets: cp}
}

// Validate checks that the schedule is usable
func (s Schedule) Validate() error {
	if len(s.targets) == 0 {
		return ErrEmptySchedule
	}
	for i, t := range s.targets {
		if t == 0 {
			return fmt.Errorf("entry %d: %w", i, ErrZeroTarget)
		}
	}
	return nil
}

// Current returns the latest target, or 0 for an empty schedule.
func (s Schedule) Current() uint64 {
	if len(s.targets) == 0 {
		return 0
	}
	return s.targets[len(s.targets)-1]
}

// At returns the historical target at index i.
func (s Schedule) At(i int) (uint64, error) {
	if i < 0 || i >= len(s.targets) {
		return 0, fmt.Errorf("%w: %d (len %d)", ErrIndexOutOfRange, i, len(s.targets))
	}
	return s.targets[i], nil
}

// Len returns the number of published targets
func (s Schedule) Len() int {
	return len(s.targets)
}

// Targets returns a copy of all entries, oldest first.
func (s Schedule) Targets() []uint64 {
	cp := make([]uint64, len(s.targets))
	copy(cp, s.targets)
	return cp
}

// Append returns a new schedule with target added as the current entry.
// The receiver is left untouched.
func (s Schedule) Append(target uint64) Schedule {
	next := make([]uint64, len(s.targets), len(s.targets)+1)
	copy(next, s.targets)
	return Schedule{targets: append(next, target)}
}

// Extends reports whether s keeps every entry of prev, in order, as a prefix.
func (s Schedule) Extends(prev Schedule) bool {
	if len(s.targets) < len(prev.targets) {
		return false
	}
	for i, t := range prev.targets {
		if s.targets[i] != t {
			return false
		}
	}
	return true
}

// BatchResult is the outcome of deriving one code in a batch
type BatchResult struct {
	Index    int
	Code     string
	Key      *DerivedKey
	Err      error
	Duration time.Duration
}
