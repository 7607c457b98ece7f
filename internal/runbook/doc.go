// Package runbook loads and executes declarative host maintenance scripts.
//
// A runbook is a YAML document listing steps. Each step carries exactly one
// action: a shell command, a file write or in-place edit, an upload, a
// docker operation, or a local wait. String fields are Go templates
// rendered with the runbook's vars (plus --var overrides) and the sprig
// function library before validation, so secrets can come from the
// environment with {{ env "NAME" }}.
//
// Referencing an undefined var is an error. Text that must reach the host
// with literal braces, such as a docker --format argument, is escaped with a
// raw string action:
//
//	run:
//	  command: docker inspect --format {{`'{{.State.Running}}'`}} api
//
// The [Runner] executes the steps strictly in order over one [Executor]
// (normally an SSH client) and produces a [Report].
package runbook
