package mirror

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// ProgressState is a snapshot of a Progress.
type ProgressState struct {
	Completed int
	Total     int
}

// Progress counts downloaded files against the number of files discovered so
// far. The total grows while the walk goes deeper, so the rendered total grows
// with it.
type Progress struct {
	mu        sync.Mutex
	completed int
	total     int
	started   time.Time

	out            io.Writer
	live           bool          // redraw a single line with \r
	updateInterval time.Duration // minimum gap between lines when not live
	lastUpdate     time.Time
}

// NewProgress renders to out, redrawing one line when live is true and
// printing at most one line per interval otherwise. A nil out renders nothing.
func NewProgress(out io.Writer, live bool, interval time.Duration) *Progress {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &Progress{
		started:        time.Now(),
		out:            out,
		live:           live,
		updateInterval: interval,
	}
}

// AddTotal records n newly discovered files.
func (p *Progress) AddTotal(n int) {
	if n <= 0 {
		return
	}
	p.mu.Lock()
	p.total += n
	p.mu.Unlock()
}

// Complete records one downloaded file and renders.
func (p *Progress) Complete() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.completed++
	p.render(false)
}

func (p *Progress) State() ProgressState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return ProgressState{Completed: p.completed, Total: p.total}
}

// Finish renders the final state and ends the line.
func (p *Progress) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.render(true)
	if p.out != nil && p.live {
		fmt.Fprintln(p.out)
	}
}

// render must be called with mu held.
func (p *Progress) render(force bool) {
	if p.out == nil {
		return
	}

	now := time.Now()
	if !p.live && !force && now.Sub(p.lastUpdate) < p.updateInterval {
		return
	}
	p.lastUpdate = now

	current := p.completed
	if current > p.total {
		current = p.total
	}

	percent := 100.0
	if p.total > 0 {
		percent = float64(current) / float64(p.total) * 100
	}

	line := fmt.Sprintf(" * Downloading files: %d/%d (%.1f%%) ETA %s", current, p.total, percent, p.eta(now, current))
	if p.live {
		fmt.Fprintf(p.out, "\r\033[K%s", line)
	} else {
		fmt.Fprintln(p.out, line)
	}
}

func (p *Progress) eta(now time.Time, current int) string {
	if current == 0 {
		return "--"
	}
	if current >= p.total {
		return "0s"
	}
	perFile := now.Sub(p.started) / time.Duration(current)
	remaining := perFile * time.Duration(p.total-current)
	return remaining.Round(time.Second).String()
}
