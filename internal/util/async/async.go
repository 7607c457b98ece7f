package async

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Task represents an asynchronous operation with a name and function.
type Task struct {
	Name string
	Func func(context.Context) error
}

// RunParallel executes tasks concurrently, at most limit at a time
// (limit <= 0 means no limit), and waits for all of them.
// Every failure is returned, joined, in task order and prefixed with the
// task name.
//
// Example:
//
//	tasks := []Task{
//	    {Name: "prod", Func: runOn("prod")},
//	    {Name: "staging", Func: runOn("staging")},
//	}
//	if err := RunParallel(ctx, tasks, 2); err != nil {
//	    return err
//	}
func RunParallel(ctx context.Context, tasks []Task, limit int) error {
	if len(tasks) == 0 {
		return nil
	}
	if limit <= 0 || limit > len(tasks) {
		limit = len(tasks)
	}

	errs := make([]error, len(tasks))
	sem := make(chan struct{}, limit)
	var wg sync.WaitGroup

	for i, task := range tasks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				errs[i] = fmt.Errorf("%s: %w", task.Name, ctx.Err())
				return
			}
			defer func() { <-sem }()

			if err := task.Func(ctx); err != nil {
				errs[i] = fmt.Errorf("%s: %w", task.Name, err)
			}
		}()
	}

	wg.Wait()
	return errors.Join(errs...)
}
