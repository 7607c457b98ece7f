package handlers

import (
	"context"
	"log"
	"time"

	"github.com/imamik/hostctl/internal/config"
	"github.com/imamik/hostctl/internal/history"
	"github.com/imamik/hostctl/internal/metrics"
	"github.com/imamik/hostctl/internal/runbook"
)

// runRecorder persists step outcomes to history and metrics. Either sink may
// be absent; failures are logged and never fail the run.
type runRecorder struct {
	host  string
	store *history.Store
	runID uint

	metrics     *metrics.Recorder
	pushgateway string
}

// startRecording opens the configured sinks and records the start of a run.
func startRecording(ctx context.Context, cfg *config.Config, runbookName, hostName string) *runRecorder {
	rec := &runRecorder{host: hostName}

	if !cfg.History.Disabled {
		path, err := config.ExpandHome(cfg.History.Path)
		if err == nil {
			rec.store, err = openHistory(path)
		}
		if err != nil {
			log.Printf("[History] Disabled for this run: %v", err)
		} else {
			run, err := rec.store.StartRun(ctx, runbookName, hostName)
			if err != nil {
				log.Printf("[History] Failed to start run: %v", err)
				_ = rec.store.Close()
				rec.store = nil
			} else {
				rec.runID = run.ID
			}
		}
	}

	if cfg.Metrics.Pushgateway != "" {
		rec.metrics = metrics.NewRecorder()
		rec.pushgateway = cfg.Metrics.Pushgateway
	}
	return rec
}

// step records one finished step.
func (r *runRecorder) step(ctx context.Context, sr runbook.StepReport) {
	if sr.Skipped {
		return
	}
	if r.metrics != nil {
		r.metrics.RecordStep(sr.Action, sr.Status, sr.Duration)
	}
	if r.store == nil {
		return
	}

	step := history.StepRun{
		Index:      sr.Index,
		Name:       sr.Name,
		Action:     sr.Action,
		Command:    sr.Command,
		ExitCode:   sr.ExitCode(),
		Output:     sr.Output(),
		Status:     sr.Status,
		DurationMs: sr.Duration.Milliseconds(),
	}
	if err := r.store.RecordStep(ctx, r.runID, step); err != nil {
		log.Printf("[History] Failed to record step %d: %v", sr.Index, err)
	}
}

// finish closes the run and pushes metrics.
func (r *runRecorder) finish(ctx context.Context, runErr error) {
	if r.store != nil {
		if err := r.store.FinishRun(ctx, r.runID, runErr); err != nil {
			log.Printf("[History] Failed to finish run %d: %v", r.runID, err)
		}
		if err := r.store.Close(); err != nil {
			log.Printf("[History] Close: %v", err)
		}
	}

	if r.metrics == nil {
		return
	}
	if runErr == nil {
		r.metrics.RecordRunSuccess(time.Now())
	}
	if err := r.metrics.Push(ctx, r.pushgateway, "", r.host); err != nil {
		log.Printf("[Metrics] Push to %s failed: %v", r.pushgateway, err)
	}
}
