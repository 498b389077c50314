package thermal

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// Readout writes a single console line that is refreshed in place with a
// carriage return. A nil *Readout discards everything.
type Readout struct {
	mu     sync.Mutex
	w      io.Writer
	active bool
}

// NewReadout returns a Readout writing to w.
func NewReadout(w io.Writer) *Readout {
	return &Readout{w: w}
}

// Progress rewrites the current line. total is shown when positive.
func (r *Readout) Progress(cycle int, elapsed, total time.Duration, temp float64) {
	if r == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if total > 0 {
		fmt.Fprintf(r.w, "%d\t%d/%d s\t%0.2f C  \r", cycle, int(elapsed.Seconds()), int(total.Seconds()), temp)
	} else {
		fmt.Fprintf(r.w, "%d\t%d s\t%0.2f C  \r", cycle, int(elapsed.Seconds()), temp)
	}
	r.active = true
}

// Done terminates the current line, if one was written.
func (r *Readout) Done() {
	if r == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.active {
		fmt.Fprintln(r.w)
		r.active = false
	}
}
