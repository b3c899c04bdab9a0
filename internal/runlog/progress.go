package runlog

import (
	"time"

	"github.com/samcharles93/listener/internal/logger"
)

// Progress reports a long-running task through a logger, throttled to one
// line per interval.
type Progress struct {
	log      logger.Logger
	task     string
	total    int
	interval time.Duration
	now      func() time.Time

	start time.Time
	last  time.Time
}

// StartTask logs the start of a task of total steps.
func StartTask(log logger.Logger, task string, total int) *Progress {
	p := &Progress{
		log:      log,
		task:     task,
		total:    total,
		interval: time.Second,
		now:      time.Now,
	}
	p.start = p.now()
	p.last = p.start
	log.Info("task started", "task", task, "total", total)
	return p
}

// Update records that step of total is being worked on.
func (p *Progress) Update(step int, args ...any) {
	now := p.now()
	if now.Sub(p.last) < p.interval && step != p.total {
		return
	}
	p.last = now
	attrs := append([]any{"task", p.task, "step", step, "total", p.total}, args...)
	if eta, ok := p.eta(step, now); ok {
		attrs = append(attrs, "eta", eta.Round(time.Second).String())
	}
	p.log.Info("progress", attrs...)
}

func (p *Progress) eta(step int, now time.Time) (time.Duration, bool) {
	if step <= 0 || p.total <= 0 || step > p.total {
		return 0, false
	}
	elapsed := now.Sub(p.start)
	perStep := elapsed / time.Duration(step)
	return perStep * time.Duration(p.total-step), true
}

// End logs the task's total duration.
func (p *Progress) End() time.Duration {
	elapsed := p.now().Sub(p.start)
	p.log.Info("task finished", "task", p.task, "elapsed", elapsed.Round(time.Millisecond).String())
	return elapsed
}
