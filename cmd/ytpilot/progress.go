package main

import (
	"fmt"
	"io"
	"sync"

	"github.com/pterm/pterm"

	"github.com/ytpilot/ytpilot/internal/binary"
)

// progressUI draws one pterm progress bar per binary being downloaded.
// Callbacks arrive on the downloader's reporter goroutine.
type progressUI struct {
	mu     sync.Mutex
	out    io.Writer
	bars   map[binary.Binary]*pterm.ProgressbarPrinter
	totals map[binary.Binary]int64
}

func newProgressUI(out io.Writer) *progressUI {
	return &progressUI{
		out:    out,
		bars:   make(map[binary.Binary]*pterm.ProgressbarPrinter),
		totals: make(map[binary.Binary]int64),
	}
}

// callbacks returns the manager's progress hook, or nil when out is not a
// terminal.
func (p *progressUI) callbacks() func(binary.Binary) binary.ProgressFunc {
	if p == nil || !isTerminal(p.out) {
		return nil
	}
	return func(name binary.Binary) binary.ProgressFunc {
		return func(downloaded, total int64) {
			p.update(name, downloaded, total)
		}
	}
}

func (p *progressUI) update(name binary.Binary, downloaded, total int64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	bar, ok := p.bars[name]
	if !ok || p.totals[name] != total {
		if ok {
			_, _ = bar.Stop()
		}
		size := int(total)
		if size <= 0 {
			// Unknown length: count kilobytes against a growing ceiling.
			size = int(downloaded/1024) + 1
		}
		started, err := pterm.DefaultProgressbar.
			WithTotal(size).
			WithTitle(fmt.Sprintf("Downloading %s", name)).
			WithWriter(p.out).
			Start()
		if err != nil {
			return
		}
		bar = started
		p.bars[name] = bar
		p.totals[name] = total
	}

	current := int(downloaded)
	if total <= 0 {
		current = int(downloaded / 1024)
		if current >= bar.Total {
			bar.Total = current + 1
		}
	}
	if delta := current - bar.Current; delta > 0 {
		bar.Add(delta)
	}
}

// finish stops the bar for name, if one was started.
func (p *progressUI) finish(name binary.Binary) {
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if bar, ok := p.bars[name]; ok {
		_, _ = bar.Stop()
		delete(p.bars, name)
		delete(p.totals, name)
	}
}
