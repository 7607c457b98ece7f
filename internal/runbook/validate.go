package runbook

import (
	"errors"
	"fmt"
)

// Validate checks that every step has exactly one well-formed action.
func (rb *Runbook) Validate() error {
	var errs []error
	if len(rb.Steps) == 0 {
		errs = append(errs, errors.New("runbook has no steps"))
	}

	for i := range rb.Steps {
		s := &rb.Steps[i]
		label := fmt.Sprintf("step %d", i+1)
		if s.Name != "" {
			label += fmt.Sprintf(" (%s)", s.Name)
		}

		if s.Timeout < 0 {
			errs = append(errs, fmt.Errorf("%s: timeout cannot be negative", label))
		}

		a, err := s.action()
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", label, err))
			continue
		}
		if err := a.validate(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %s: %w", label, a.kind(), err))
		}
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid runbook %s: %w", rb.Name, err)
	}
	return nil
}
