package printer

import (
	"fmt"
	"io"
	"sync"

	"github.com/slok/cupload/internal/model"
)

// ProgressPrinter prints a progress line per task every time the task
// changes its status, its stage or advances a progress step.
// It's meant to be used as an orchestrator listener.
type ProgressPrinter struct {
	w        io.Writer
	barWidth int
	step     float64
	last     map[string]string
	mu       sync.Mutex
}

// NewProgressPrinter creates a new progress printer. Progress is reported in
// increments of step percent (10 if 0).
func NewProgressPrinter(w io.Writer, step float64) *ProgressPrinter {
	if step <= 0 {
		step = 10
	}
	return &ProgressPrinter{
		w:        w,
		barWidth: 30,
		step:     step,
		last:     map[string]string{},
	}
}

// PrintProgress prints the tasks of the snapshot that changed since the previous call.
func (p *ProgressPrinter) PrintProgress(b model.Batch) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, t := range b.Tasks {
		// Only full steps are shown to not flood the output.
		shown := float64(int(t.Progress/p.step)) * p.step
		if t.Status == model.TaskStatusSucceeded {
			shown = 100
		}

		key := fmt.Sprintf("%s|%s|%.0f", t.Status, StageLabel(t), shown)
		if p.last[t.ID] == key {
			continue
		}
		p.last[t.ID] = key

		line := fmt.Sprintf("  %s %3.0f%% %s (%s) %s", ProgressBar(shown, p.barWidth), shown, t.Source.Name, FormatBytes(t.Source.Size), StageLabel(t))
		if t.Status == model.TaskStatusFailed && t.Error != "" {
			line += ": " + t.Error
		}
		fmt.Fprintln(p.w, line)
	}
}
