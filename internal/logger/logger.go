package logger

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/screa/promokey/pkg/types"
)

// Log flags
const (
	LstdFlags     = log.LstdFlags
	Lmicroseconds = log.Lmicroseconds
)

// Logger wraps the standard log.Logger with derivation-aware helpers
type Logger struct {
	*log.Logger
	verbose bool
}

// New creates a logger writing to stdout
func New() *Logger {
	return NewWriter(os.Stdout)
}

// NewWriter creates a new logger that writes to the provided writer
func NewWriter(w io.Writer) *Logger {
	return &Logger{
		Logger: log.New(w, "", log.LstdFlags),
	}
}

// Discard returns a logger that drops everything. Used by library callers
// that did not supply one.
func Discard() *Logger {
	return NewWriter(io.Discard)
}

// SetVerbose toggles Debugf output
func (l *Logger) SetVerbose(v bool) {
	l.verbose = v
}

// Debugf logs only in verbose mode
func (l *Logger) Debugf(format string, args ...interface{}) {
	if l.verbose {
		l.Output(2, fmt.Sprintf(format, args...))
	}
}

// Progress logs a progress event. Its signature matches types.ProgressFunc.
func (l *Logger) Progress(ev types.ProgressEvent) {
	l.Printf("Progress: %3d%%, ETA %s", ev.Percent, FormatETA(ev.ETA))
}

// FormatETA renders seconds as a compact h/m/s string
func FormatETA(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	s := int64(seconds + 0.5)
	h, s := s/3600, s%3600
	m, s := s/60, s%60
	switch {
	case h > 0:
		return fmt.Sprintf("%dh%02dm%02ds", h, m, s)
	case m > 0:
		return fmt.Sprintf("%dm%02ds", m, s)
	default:
		return fmt.Sprintf("%ds", s)
	}
}
