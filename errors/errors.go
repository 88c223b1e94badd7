package errors

import (
	"fmt"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseEncode  Phase = "encode"  // value to SCALE bytes
	PhaseDecode  Phase = "decode"  // SCALE bytes to value
	PhaseHash    Phase = "hash"    // type shape hashing / validation
	PhaseLookup  Phase = "lookup"  // metadata lookups by name or id
	PhaseParse   Phase = "parse"   // value literal / metadata blob parsing
	PhaseFetch   Phase = "fetch"   // RPC fetching
	PhaseExtract Phase = "extract" // runtime wasm metadata extraction
)

// Kind categorizes the error
type Kind string

const (
	KindTypeMismatch         Kind = "type_mismatch"
	KindUnexpectedEOF        Kind = "unexpected_eof"
	KindInvalidUTF8          Kind = "invalid_utf8"
	KindInvalidBool          Kind = "invalid_bool"
	KindInvalidChar          Kind = "invalid_char"
	KindFieldMissing         Kind = "field_missing"
	KindFieldCount           Kind = "field_count"
	KindArrayLength          Kind = "array_length"
	KindVariantNotFound      Kind = "variant_not_found"
	KindVariantIndexNotFound Kind = "variant_index_not_found"
	KindTypeNotFound         Kind = "type_not_found"
	KindNotFound             Kind = "not_found"
	KindLeftoverBytes        Kind = "leftover_bytes"
	KindWrongHasherCount     Kind = "wrong_hasher_count"
	KindIncompatibleCodegen  Kind = "incompatible_codegen"
	KindUnsupported          Kind = "unsupported"
	KindInvalidData          Kind = "invalid_data"
	KindOverflow             Kind = "overflow"
	KindUnexpectedToken      Kind = "unexpected_token"
	KindTransport            Kind = "transport"
	KindRPC                  Kind = "rpc"
)

// Error is the structured error type used throughout the library
type Error struct {
	Value      any
	Cause      error
	Phase      Phase
	Kind       Kind
	ValueShape string // shape of the dynamic value involved (e.g. "variant")
	TypeName   string // name or kind of the target type descriptor
	Detail     string
	Path       []string
	Offset     int // byte offset into wire bytes or literal text, -1 if unset
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
	}
	if e.Offset > 0 {
		fmt.Fprintf(&b, " (offset %d)", e.Offset)
	}

	if e.ValueShape != "" || e.TypeName != "" {
		b.WriteString(": ")
		if e.ValueShape != "" && e.TypeName != "" {
			b.WriteString("value shape ")
			b.WriteString(e.ValueShape)
			b.WriteString(", target type ")
			b.WriteString(e.TypeName)
		} else if e.ValueShape != "" {
			b.WriteString("value shape ")
			b.WriteString(e.ValueShape)
		} else {
			b.WriteString("target type ")
			b.WriteString(e.TypeName)
		}
	}

	if e.Detail != "" {
		if e.ValueShape != "" || e.TypeName != "" {
			b.WriteString(" - ")
		} else {
			b.WriteString(": ")
		}
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying cause
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase:  phase,
			Kind:   kind,
			Offset: -1,
		},
	}
}

// Path sets the field path
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// ValueShape sets the shape of the dynamic value involved
func (b *Builder) ValueShape(s string) *Builder {
	b.err.ValueShape = s
	return b
}

// TypeName sets the name of the target type descriptor
func (b *Builder) TypeName(t string) *Builder {
	b.err.TypeName = t
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Offset sets the byte offset at which the error occurred
func (b *Builder) Offset(n int) *Builder {
	b.err.Offset = n
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// TypeMismatch creates a type mismatch error
func TypeMismatch(phase Phase, path []string, valueShape, typeName string) *Error {
	return &Error{
		Phase:      phase,
		Kind:       KindTypeMismatch,
		Path:       path,
		ValueShape: valueShape,
		TypeName:   typeName,
		Offset:     -1,
	}
}

// UnexpectedEOF creates an end-of-input error
func UnexpectedEOF(phase Phase, path []string, want, have int) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnexpectedEOF,
		Path:   path,
		Detail: fmt.Sprintf("need %d more byte(s), have %d", want, have),
		Offset: -1,
	}
}

// InvalidUTF8 creates an invalid UTF-8 error
func InvalidUTF8(phase Phase, path []string, data []byte) *Error {
	preview := data
	if len(preview) > 32 {
		preview = preview[:32]
	}
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidUTF8,
		Path:   path,
		Detail: fmt.Sprintf("invalid UTF-8 sequence: %x", preview),
		Offset: -1,
	}
}

// InvalidBool creates an invalid boolean byte error
func InvalidBool(phase Phase, path []string, b byte) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidBool,
		Path:   path,
		Detail: fmt.Sprintf("boolean byte must be 0x00 or 0x01, got 0x%02x", b),
		Value:  b,
		Offset: -1,
	}
}

// FieldMissing creates a missing field error
func FieldMissing(phase Phase, path []string, fieldName string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindFieldMissing,
		Path:   path,
		Detail: fmt.Sprintf("required field %q not found", fieldName),
		Offset: -1,
	}
}

// FieldCount creates a field count mismatch error
func FieldCount(phase Phase, path []string, want, have int) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindFieldCount,
		Path:   path,
		Detail: fmt.Sprintf("expected %d field(s), got %d", want, have),
		Offset: -1,
	}
}

// ArrayLength creates an array length mismatch error
func ArrayLength(phase Phase, path []string, want, have int) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindArrayLength,
		Path:   path,
		Detail: fmt.Sprintf("array wants exactly %d element(s), got %d", want, have),
		Offset: -1,
	}
}

// VariantNotFound creates an unknown variant name error
func VariantNotFound(phase Phase, path []string, name, typeName string) *Error {
	return &Error{
		Phase:    phase,
		Kind:     KindVariantNotFound,
		Path:     path,
		TypeName: typeName,
		Detail:   fmt.Sprintf("variant %q not found", name),
		Offset:   -1,
	}
}

// VariantIndexNotFound creates an unknown variant discriminant error.
// This usually means the bytes were produced under different metadata
// than the one used for decoding.
func VariantIndexNotFound(phase Phase, path []string, index byte, typeName string) *Error {
	return &Error{
		Phase:    phase,
		Kind:     KindVariantIndexNotFound,
		Path:     path,
		TypeName: typeName,
		Detail:   fmt.Sprintf("no variant with index %d; bytes may have been encoded against different metadata", index),
		Value:    index,
		Offset:   -1,
	}
}

// TypeNotFound creates an unresolvable type id error
func TypeNotFound(phase Phase, id uint32) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindTypeNotFound,
		Detail: fmt.Sprintf("type id %d not found in registry", id),
		Value:  id,
		Offset: -1,
	}
}

// NotFound creates a named lookup failure error
func NotFound(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Detail: fmt.Sprintf("%s %q not found", what, name),
		Offset: -1,
	}
}

// LeftoverBytes creates an under-consumption error.
// Accepting leftover bytes silently would mask either a metadata mismatch
// or a malformed blob, so callers decoding exact-length input must check.
func LeftoverBytes(phase Phase, remaining int) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindLeftoverBytes,
		Detail: fmt.Sprintf("%d byte(s) left undecoded", remaining),
		Offset: -1,
	}
}

// WrongHasherCount creates a hasher/key arity mismatch error
func WrongHasherCount(phase Phase, hashers, fields int) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindWrongHasherCount,
		Detail: fmt.Sprintf("storage entry has %d hasher(s) but %d key field(s)", hashers, fields),
		Offset: -1,
	}
}

// IncompatibleCodegen creates a codegen/runtime hash mismatch error
func IncompatibleCodegen(what, name string) *Error {
	return &Error{
		Phase:  PhaseHash,
		Kind:   KindIncompatibleCodegen,
		Detail: fmt.Sprintf("generated code for %s %q is not compatible with the node", what, name),
		Offset: -1,
	}
}

// Unsupported creates an unsupported operation error
func Unsupported(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnsupported,
		Detail: what,
		Offset: -1,
	}
}

// Overflow creates a numeric overflow error
func Overflow(phase Phase, path []string, value any, targetType string) *Error {
	return &Error{
		Phase:    phase,
		Kind:     KindOverflow,
		Path:     path,
		TypeName: targetType,
		Detail:   fmt.Sprintf("value %v overflows %s", value, targetType),
		Value:    value,
		Offset:   -1,
	}
}

// UnexpectedToken creates a literal parse error with a byte offset
func UnexpectedToken(offset int, expected, got string) *Error {
	return &Error{
		Phase:  PhaseParse,
		Kind:   KindUnexpectedToken,
		Detail: fmt.Sprintf("expected %s, got %s", expected, got),
		Offset: offset,
	}
}

// InvalidData creates an invalid data error
func InvalidData(phase Phase, path []string, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidData,
		Path:   path,
		Detail: detail,
		Offset: -1,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
		Offset: -1,
	}
}
