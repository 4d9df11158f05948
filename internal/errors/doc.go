// Package errors provides structured, actionable error reports for liveroute.
//
// Router failures (unmatched paths, parameter decode failures, rejected
// guards, invalid route trees) carry a stable code that maps to a
// registered template:
//   - A short message describing the error
//   - A detailed explanation
//   - A documentation URL
//
// # Usage
//
//	report := errors.Describe(err).
//	    WithSuggestion("Register a route for /orders or add a catch boundary")
//
//	fmt.Println(report.Format())
//	// Output:
//	// ERROR R001: Route not found
//	//
//	//   No compiled route matches the requested path.
//	//
//	//   Hint: Register a route for /orders or add a catch boundary
//	//
//	//   Learn more: https://liveroute.dev/docs/errors/R001
package errors
