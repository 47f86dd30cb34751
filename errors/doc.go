// Package errors provides structured error types for the binpack library.
//
// Errors are categorized by Phase (which traversal pass failed) and Kind
// (error category). The Error type includes rich context: the element path
// from the argument list down to the offending value, the Go type name, and
// a cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseRead, errors.KindBoundsViolation).
//		Path("arg[0]", "[elem]").
//		Detail("need %d bytes, %d remaining", 4, 2).
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.UnsupportedType(errors.PhaseClassify, path, "chan int")
//	err := errors.BoundsViolation(errors.PhaseRead, path, 4, 2)
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
