package migrator

import (
	"fmt"
	"sync"

	"github.com/gosuri/uiprogress"
	"github.com/mattn/go-runewidth"
)

// Progress renders one bar per table during the copy stage. A nil or
// disabled Progress hands out no-op bars.
type Progress struct {
	mu      sync.Mutex
	ui      *uiprogress.Progress
	started bool
}

// NewProgress returns a Progress, or nil when disabled.
func NewProgress(enabled bool) *Progress {
	if !enabled {
		return nil
	}
	return &Progress{ui: uiprogress.New()}
}

// Enabled reports whether bars are drawn.
func (p *Progress) Enabled() bool {
	return p != nil
}

// TableBar advances the bar of one table.
type TableBar struct {
	bar *uiprogress.Bar
}

// AddTable adds a bar for table with total rows.
func (p *Progress) AddTable(table string, total int) *TableBar {
	if p == nil {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		p.ui.Start()
		p.started = true
	}
	if total < 1 {
		total = 1
	}
	label := runewidth.FillRight(runewidth.Truncate(table, 24, "…"), 24)
	bar := p.ui.AddBar(total).AppendCompleted()
	bar.PrependFunc(func(b *uiprogress.Bar) string {
		return fmt.Sprintf("%s %d/%d", label, b.Current(), b.Total)
	})
	return &TableBar{bar: bar}
}

// Incr advances the bar by one row.
func (b *TableBar) Incr() {
	if b == nil {
		return
	}
	b.bar.Incr()
}

// Stop flushes and stops rendering.
func (p *Progress) Stop() {
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		p.ui.Stop()
		p.started = false
	}
}
