// Package errors provides structured error types for the scale-codec library.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error
// category). The Error type includes rich context: field path, the shape of
// the dynamic value involved, the name of the target type, a byte offset for
// wire/text failures, and a cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseEncode, errors.KindTypeMismatch).
//		Path("Balances", "transfer_allow_death", "value").
//		ValueShape("string").
//		TypeName("u128").
//		Detail("cannot encode a string into an integer type").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.TypeMismatch(errors.PhaseEncode, path, "string", "u128")
//	err := errors.UnexpectedEOF(errors.PhaseDecode, path, 4, 1)
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
