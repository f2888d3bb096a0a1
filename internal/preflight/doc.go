// Package preflight checks that a sift data directory can be served before
// any index is opened.
//
// The package validates:
//   - Write permissions in the data directory
//   - Disk space availability (minimum 100MB, warning below 1GB)
//   - File descriptor limits (minimum 1024, warning below 4096)
//   - Whether another process holds the data directory lock
//   - Index artifacts written by a different storage backend
//
// Use the Checker type to run all validations:
//
//	checker := preflight.New(preflight.WithBackend(backend))
//	results := checker.RunAll(ctx, "/srv/sift")
//	if checker.HasCriticalFailures(results) {
//	    // Handle failures
//	}
package preflight
