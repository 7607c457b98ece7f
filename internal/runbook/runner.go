package runbook

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/charmbracelet/huh"

	"github.com/imamik/hostctl/internal/ui"
)

// ErrAborted is returned when the operator declines a confirmation prompt.
var ErrAborted = errors.New("aborted by operator")

// ConfirmFunc asks the operator a yes/no question.
type ConfirmFunc func(ctx context.Context, prompt string) (bool, error)

// Options tune a run.
type Options struct {
	// DryRun prints what each step would do without touching the host.
	DryRun bool
	// FromStep skips steps before this 1-based index.
	FromStep int
	// AssumeYes answers every confirmation prompt with yes.
	AssumeYes bool
	// Confirm asks for confirmation. Defaults to a huh prompt.
	Confirm ConfirmFunc
	// DefaultTimeout bounds steps that set no timeout. Zero means none.
	DefaultTimeout time.Duration
	// OnStep is called after every step, including skipped ones.
	OnStep func(StepReport)
	// Now returns the current time; used for backup names.
	Now func() time.Time
	// HTTPClient serves http_check steps.
	HTTPClient *http.Client
}

// Runner executes runbooks against one host.
type Runner struct {
	exec Executor
	out  *ui.Printer
	opts Options
}

// NewRunner creates a runner. A nil printer discards output.
func NewRunner(exec Executor, out *ui.Printer, opts Options) *Runner {
	if out == nil {
		out = ui.Discard()
	}
	if opts.Confirm == nil {
		opts.Confirm = PromptConfirm
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	return &Runner{exec: exec, out: out, opts: opts}
}

// Run executes the steps of rb in order. The first failing step stops the
// run unless it is marked continue_on_error; later steps are reported as
// skipped. The returned report is non-nil whenever validation passed.
func (r *Runner) Run(ctx context.Context, rb *Runbook) (*Report, error) {
	if err := rb.Validate(); err != nil {
		return nil, err
	}
	if r.opts.FromStep < 0 || r.opts.FromStep > len(rb.Steps) {
		return nil, fmt.Errorf("from-step %d out of range (runbook has %d steps)", r.opts.FromStep, len(rb.Steps))
	}

	env := &stepEnv{
		exec:       r.exec,
		out:        r.out,
		now:        r.opts.Now,
		httpClient: r.opts.HTTPClient,
	}
	report := &Report{
		Runbook:   rb.Name,
		Host:      r.exec.Host(),
		DryRun:    r.opts.DryRun,
		StartedAt: r.opts.Now(),
	}

	log.Printf("[Runner] Starting %s on %s (%d steps)", rb.Name, report.Host, len(rb.Steps))
	r.out.RunHeader(rb.Name, report.Host, len(rb.Steps))

	var runErr error
	for i := range rb.Steps {
		sr := r.runStep(ctx, env, &rb.Steps[i], i+1, len(rb.Steps), runErr != nil)
		if sr.Status == ui.StatusFailed && runErr == nil {
			runErr = fmt.Errorf("step %d (%s) failed: %w", sr.Index, sr.Name, sr.Err)
		}
		report.Steps = append(report.Steps, sr)
		if r.opts.OnStep != nil {
			r.opts.OnStep(sr)
		}
	}

	report.Duration = r.opts.Now().Sub(report.StartedAt)
	r.out.Summary(report.summaryRows(), report.Duration)
	r.out.Result(runErr)
	log.Printf("[Runner] Finished %s on %s: err=%v", rb.Name, report.Host, runErr)

	return report, runErr
}

func (r *Runner) runStep(ctx context.Context, env *stepEnv, step *Step, index, total int, stopped bool) StepReport {
	act, _ := step.action()
	sr := StepReport{Index: index, Name: step.DisplayName(), Action: act.kind()}
	text, shell := act.describe(env)
	sr.Command = text

	if stopped || index < r.opts.FromStep {
		sr.Status = ui.StatusSkipped
		sr.Skipped = true
		if !stopped {
			r.out.StepHeader(index, total, sr.Name)
			r.out.StepStatus(sr.Status, 0, nil)
		}
		return sr
	}

	r.out.StepHeader(index, total, sr.Name)
	if shell {
		r.out.Command(text)
	} else {
		r.out.Info("%s", text)
	}

	if r.opts.DryRun {
		if d, ok := act.(detailer); ok {
			r.out.Output(d.detail(), "")
		}
		sr.Status = ui.StatusDryRun
		r.out.StepStatus(sr.Status, 0, nil)
		return sr
	}

	if step.Confirm && !r.opts.AssumeYes {
		ok, err := r.opts.Confirm(ctx, fmt.Sprintf("Run step %d (%s) on %s?", index, sr.Name, r.exec.Host()))
		if err == nil && !ok {
			err = ErrAborted
		}
		if err != nil {
			sr.Err = err
			sr.Status = ui.StatusFailed
			r.out.StepStatus(sr.Status, 0, err)
			return sr
		}
	}

	stepCtx, cancel := r.stepContext(ctx, step)
	start := time.Now()
	log.Printf("[Runner] Step %d/%d %s (%s)", index, total, sr.Name, sr.Action)
	sr.Result, sr.Err = act.execute(stepCtx, env)
	sr.Duration = time.Since(start)
	cancel()

	switch {
	case sr.Err == nil:
		sr.Status = ui.StatusOK
	case step.ContinueOnError && ctx.Err() == nil:
		sr.Status = ui.StatusIgnored
	default:
		sr.Status = ui.StatusFailed
	}
	r.out.StepStatus(sr.Status, sr.Duration, sr.Err)
	return sr
}

func (r *Runner) stepContext(ctx context.Context, step *Step) (context.Context, context.CancelFunc) {
	timeout := step.Timeout
	if timeout == 0 {
		timeout = r.opts.DefaultTimeout
	}
	if timeout == 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

// PromptConfirm asks a yes/no question on the terminal.
func PromptConfirm(ctx context.Context, prompt string) (bool, error) {
	var ok bool
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(prompt).
				Affirmative("Yes").
				Negative("No").
				Value(&ok),
		),
	)
	if err := form.RunWithContext(ctx); err != nil {
		return false, fmt.Errorf("confirmation canceled: %w", err)
	}
	return ok, nil
}
