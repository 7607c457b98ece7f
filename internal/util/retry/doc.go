// Package retry provides exponential backoff retry logic for transient failures.
//
// [WithExponentialBackoff] retries an operation with configurable max attempts,
// initial delay, and maximum delay. hostctl uses it when dialing SSH hosts
// that are rebooting or briefly refusing connections; authentication and host
// key failures are wrapped with [Fatal] so they surface immediately.
package retry
