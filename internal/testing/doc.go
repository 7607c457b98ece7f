// Package testing provides test utilities, builders, and fakes for unit tests.
//
// This package centralizes common testing patterns to avoid duplication across test files:
//   - InventoryBuilder: Fluent builder for hostctl.yaml inventories
//   - FakeHost: In-memory remote host with scripted command responses and files
//
// Usage:
//
//	path := testing.NewInventoryBuilder().
//	    WithHost("prod", "203.0.113.10").
//	    WithHistory(filepath.Join(dir, "history.db")).
//	    Save(t, dir)
//
//	host := testing.NewFakeHost("203.0.113.10")
//	host.Responses["docker ps"] = testing.Response{Stdout: "backend\n"}
package testing
