package runbook

import (
	"time"

	"github.com/imamik/hostctl/internal/platform/ssh"
	"github.com/imamik/hostctl/internal/ui"
)

// StepReport is the outcome of one step.
type StepReport struct {
	Index   int
	Name    string
	Action  string
	Command string
	// Result is set for steps that ran a remote command.
	Result   *ssh.Result
	Err      error
	Status   string
	Skipped  bool
	Duration time.Duration
}

// ExitCode returns the remote exit status, 0 for successful non-shell
// steps and -1 for failed ones.
func (s StepReport) ExitCode() int {
	if s.Result != nil {
		return s.Result.ExitCode
	}
	if s.Err != nil {
		return -1
	}
	return 0
}

// Output returns the captured remote output, if any.
func (s StepReport) Output() string {
	if s.Result == nil {
		return ""
	}
	return s.Result.Combined()
}

// Report is the outcome of a runbook run.
type Report struct {
	Runbook   string
	Host      string
	DryRun    bool
	StartedAt time.Time
	Duration  time.Duration
	Steps     []StepReport
}

// Failed returns the steps that failed, including ignored failures.
func (r *Report) Failed() []StepReport {
	var out []StepReport
	for _, s := range r.Steps {
		if s.Err != nil {
			out = append(out, s)
		}
	}
	return out
}

// Count returns the number of steps with the given status.
func (r *Report) Count(status string) int {
	n := 0
	for _, s := range r.Steps {
		if s.Status == status {
			n++
		}
	}
	return n
}

func (r *Report) summaryRows() []ui.SummaryRow {
	rows := make([]ui.SummaryRow, len(r.Steps))
	for i, s := range r.Steps {
		rows[i] = ui.SummaryRow{
			Index:    s.Index,
			Name:     s.Name,
			Action:   s.Action,
			Status:   s.Status,
			Duration: s.Duration,
		}
	}
	return rows
}
