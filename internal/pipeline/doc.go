// Package pipeline provides the ordered pipe execution engine used for both
// outgoing requests and incoming responses.
//
// A Pipeline holds pipes in two priority classes. High-priority pipes run
// before normal-priority pipes; within a class pipes run in registration
// order:
//
//	p := pipeline.New[*domain.PendingRequest]()
//	p.Pipe(a, false) // normal
//	p.Pipe(b, true)  // high
//	p.Pipe(c, false) // normal
//	p.Pipe(d, true)  // high
//	// Process runs b, d, a, c
//
// # Pipe Contract
//
// Each pipe receives the current subject and returns a Result:
//
//   - Keep() leaves the subject as is. Pipes that only observe, or that
//     mutate the subject through its pointer, return Keep.
//   - Replace(v) makes v the subject for every following pipe and the value
//     Process returns.
//
// A pipe error stops processing and is returned unchanged. Mutations already
// applied by earlier pipes are not rolled back.
//
// # Merging
//
// Pipes and SetPipes let callers concatenate pipelines declared at different
// scopes (connector defaults plus per-request pipes). SetPipes stores the
// given order verbatim; it does not re-sort by priority.
package pipeline
