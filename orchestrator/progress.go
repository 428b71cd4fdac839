package orchestrator

import "time"

// Status is the generation state machine phase.
type Status string

const (
	StatusPending         Status = "pending"
	StatusGeneratingText  Status = "generating_text"
	StatusQualityCheck    Status = "quality_check"
	StatusGeneratingAudio Status = "generating_audio"
	StatusGeneratingImage Status = "generating_image"
	StatusCompleted       Status = "completed"
	StatusFailed          Status = "failed"
	StatusTimedOut        Status = "timed_out"
)

// Progress is a snapshot of an in-flight generation, pushed to the
// request's observer at each phase transition.
type Progress struct {
	Status             Status
	Elapsed            time.Duration
	EstimatedRemaining time.Duration
	Task               string
	Percent            int
}

// progressReporter pushes progress to an optional observer. Percent is
// clamped to be monotonically non-decreasing.
type progressReporter struct {
	fn       func(Progress)
	start    time.Time
	deadline time.Duration
	percent  int
}

func (p *progressReporter) report(status Status, task string, percent int) {
	if percent < p.percent {
		percent = p.percent
	}
	p.percent = percent

	if p.fn == nil {
		return
	}

	elapsed := time.Since(p.start)
	remaining := p.deadline - elapsed
	if remaining < 0 {
		remaining = 0
	}
	p.fn(Progress{
		Status:             status,
		Elapsed:            elapsed,
		EstimatedRemaining: remaining,
		Task:               task,
		Percent:            percent,
	})
}
