package thermal

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Sample is one telemetry record.
type Sample struct {
	Time      time.Time
	SetPoint  float64
	Control   float64
	Periphery float64
}

// TelemetryLog appends samples as tab-separated lines:
//
//	<unix seconds>\t<set point>\t<control>\t<periphery>\n
//
// It is safe for concurrent use. Close is idempotent.
type TelemetryLog struct {
	mu      sync.Mutex
	w       io.Writer
	closer  io.Closer
	closed  bool
	last    Sample
	hasLast bool
	count   int

	closeOnce sync.Once
	closeErr  error
}

// OpenTelemetryLog opens path in append mode, creating it and its parent
// directory as needed.
func OpenTelemetryLog(path string) (*TelemetryLog, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("thermal: create telemetry dir: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("thermal: open telemetry log: %w", err)
	}

	return &TelemetryLog{w: f, closer: f}, nil
}

// NewTelemetryLog returns a log writing to w. If w is an io.Closer it is
// closed by Close.
func NewTelemetryLog(w io.Writer) *TelemetryLog {
	l := &TelemetryLog{w: w}
	if c, ok := w.(io.Closer); ok {
		l.closer = c
	}

	return l
}

// Append writes s.
func (l *TelemetryLog) Append(s Sample) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return ErrTelemetryClosed
	}

	ts := float64(s.Time.Unix()) + float64(s.Time.Nanosecond())/1e9
	if _, err := fmt.Fprintf(l.w, "%f\t%f\t%f\t%f\n", ts, s.SetPoint, s.Control, s.Periphery); err != nil {
		return fmt.Errorf("thermal: write telemetry: %w", err)
	}

	l.last = s
	l.hasLast = true
	l.count++

	return nil
}

// Last returns the most recently appended sample.
func (l *TelemetryLog) Last() (Sample, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.last, l.hasLast
}

// Count returns the number of samples appended.
func (l *TelemetryLog) Count() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.count
}

// Closed reports whether Close has been called.
func (l *TelemetryLog) Closed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.closed
}

// Close closes the underlying writer once. Later calls return the first
// result.
func (l *TelemetryLog) Close() error {
	l.closeOnce.Do(func() {
		l.mu.Lock()
		defer l.mu.Unlock()

		l.closed = true
		if l.closer != nil {
			l.closeErr = l.closer.Close()
		}
	})

	return l.closeErr
}
