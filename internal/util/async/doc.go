// Package async runs independent tasks concurrently and collects their errors.
//
// hostctl uses [RunParallel] when one runbook targets several hosts: each host
// gets its own task and its own SSH connection, while steps inside a host stay
// strictly sequential.
package async
