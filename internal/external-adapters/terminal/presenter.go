// Package terminal renders pipeline progress for interactive use.
package terminal

import (
	"fmt"
	"io"
	"math"
	"os"
	"strings"
	"sync"

	"github.com/pterm/pterm"
)

const barWidth = 24

type progressEvent struct {
	message  string
	fraction float64
}

// Presenter receives progress from the pipeline worker and renders it on its
// own goroutine. Report never blocks on output; events are rendered in the
// order they were reported with non-decreasing fractions.
type Presenter struct {
	out io.Writer

	mu     sync.Mutex
	queue  []progressEvent
	last   float64
	closed bool

	wake chan struct{}
	done chan struct{}
}

// NewPresenter starts a presenter writing to out (stderr when nil)
func NewPresenter(out io.Writer) *Presenter {
	if out == nil {
		out = os.Stderr
	}
	p := &Presenter{
		out:  out,
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
	go p.drain()
	return p
}

// Report queues a progress notification. Fractions are clamped to [0, 1] and
// never move backwards. Calls after Close are dropped.
func (p *Presenter) Report(message string, fraction float64) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	switch {
	case math.IsNaN(fraction):
		fraction = p.last
	case fraction > 1:
		fraction = 1
	case fraction < p.last:
		fraction = p.last
	}
	p.last = fraction
	p.queue = append(p.queue, progressEvent{message: message, fraction: fraction})

	// Signal under the lock so Close cannot close wake between check and send
	select {
	case p.wake <- struct{}{}:
	default:
	}
	p.mu.Unlock()
}

// Close flushes queued events and stops the render goroutine
func (p *Presenter) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		<-p.done
		return
	}
	p.closed = true
	close(p.wake)
	p.mu.Unlock()

	<-p.done
}

func (p *Presenter) drain() {
	defer close(p.done)
	for range p.wake {
		p.flush()
	}
	p.flush()
}

func (p *Presenter) flush() {
	for {
		p.mu.Lock()
		if len(p.queue) == 0 {
			p.mu.Unlock()
			return
		}
		batch := p.queue
		p.queue = nil
		p.mu.Unlock()

		for _, e := range batch {
			p.render(e)
		}
	}
}

func (p *Presenter) render(e progressEvent) {
	// Rendering problems must not take the process down
	defer func() { _ = recover() }()

	filled := int(e.fraction * barWidth)
	bar := strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)
	_, _ = fmt.Fprintf(p.out, "%s %s %s\n",
		pterm.FgCyan.Sprint(bar),
		pterm.Bold.Sprintf("%3.0f%%", e.fraction*100),
		e.message,
	)
}

// Success prints a final success line. Call it after Close so it does not
// interleave with queued progress.
func (p *Presenter) Success(format string, args ...any) {
	pterm.Success.WithWriter(p.out).Printfln(format, args...)
}

// Warning prints a highlighted warning line
func (p *Presenter) Warning(format string, args ...any) {
	pterm.Warning.WithWriter(p.out).Printfln(format, args...)
}

// Failure prints a final error line
func (p *Presenter) Failure(format string, args ...any) {
	pterm.Error.WithWriter(p.out).Printfln(format, args...)
}
