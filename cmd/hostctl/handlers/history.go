package handlers

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/imamik/hostctl/internal/config"
	"github.com/imamik/hostctl/internal/history"
)

// HistoryList prints the most recent runs, newest first.
func HistoryList(ctx context.Context, configPath string, limit int) error {
	store, err := openConfiguredHistory(configPath)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	runs, err := store.ListRuns(ctx, limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("No runs recorded yet.")
		return nil
	}

	w := tabwriter.NewWriter(stdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tRUNBOOK\tHOST\tSTATUS\tSTARTED\tDURATION")
	for _, r := range runs {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n",
			r.ID, r.Runbook, r.Host, r.Status,
			r.StartedAt.Local().Format("2006-01-02 15:04:05"),
			runDuration(&r))
	}
	return w.Flush()
}

// HistoryShow prints one run with the output of each step.
func HistoryShow(ctx context.Context, configPath string, id uint) error {
	store, err := openConfiguredHistory(configPath)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	run, err := store.GetRun(ctx, id)
	if err != nil {
		return err
	}

	fmt.Printf("Run %d: %s on %s\n", run.ID, run.Runbook, run.Host)
	fmt.Printf("  Status:   %s\n", run.Status)
	fmt.Printf("  Started:  %s\n", run.StartedAt.Local().Format(time.RFC3339))
	fmt.Printf("  Duration: %s\n", runDuration(run))
	if run.Error != "" {
		fmt.Printf("  Error:    %s\n", run.Error)
	}

	for _, s := range run.Steps {
		fmt.Println()
		fmt.Printf("[%d] %s (%s) %s, exit %d, %s\n",
			s.Index, s.Name, s.Action, s.Status, s.ExitCode,
			(time.Duration(s.DurationMs) * time.Millisecond).String())
		if s.Command != "" {
			fmt.Printf("    $ %s\n", firstLine(s.Command))
		}
		if out := strings.TrimRight(s.Output, "\n"); out != "" {
			for _, line := range strings.Split(out, "\n") {
				fmt.Printf("    %s\n", line)
			}
		}
	}
	return nil
}

func openConfiguredHistory(configPath string) (*history.Store, error) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return nil, err
	}
	if cfg.History.Disabled {
		return nil, fmt.Errorf("history is disabled in the inventory")
	}
	path, err := config.ExpandHome(cfg.History.Path)
	if err != nil {
		return nil, err
	}
	return openHistory(path)
}

func runDuration(r *history.Run) string {
	if r.FinishedAt == nil {
		return "-"
	}
	return r.Duration().Round(time.Millisecond).String()
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i] + " ..."
	}
	return s
}
