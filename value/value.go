package value

import (
	"github.com/holiman/uint256"
)

// Kind discriminates the closed set of value shapes.
type Kind int

const (
	KindPrimitive Kind = iota
	KindComposite
	KindVariant
	KindBitSequence
)

func (k Kind) String() string {
	switch k {
	case KindPrimitive:
		return "primitive"
	case KindComposite:
		return "composite"
	case KindVariant:
		return "variant"
	case KindBitSequence:
		return "bit sequence"
	default:
		return "unknown"
	}
}

// PrimKind discriminates primitive payloads.
type PrimKind int

const (
	PrimBool PrimKind = iota
	PrimChar
	PrimString
	PrimUint    // fits in uint64
	PrimInt     // fits in int64
	PrimBigUint // up to 256 bits
	PrimBigInt  // sign + magnitude, up to 256 bits
)

func (k PrimKind) String() string {
	switch k {
	case PrimBool:
		return "bool"
	case PrimChar:
		return "char"
	case PrimString:
		return "string"
	case PrimUint:
		return "uint"
	case PrimInt:
		return "int"
	case PrimBigUint:
		return "big uint"
	case PrimBigInt:
		return "big int"
	default:
		return "unknown"
	}
}

// Primitive is a runtime primitive value. Only the field matching Kind is
// meaningful.
type Primitive struct {
	Kind PrimKind
	Bool bool
	Char rune
	Str  string
	Uint uint64
	Int  int64
	Big  *uint256.Int // magnitude; sign carried by Neg for PrimBigInt
	Neg  bool
}

// Field is one member of a composite. Name is empty for positional fields.
type Field struct {
	Name  string
	Value Value
}

// Value is the dynamic intermediate representation. Only the fields
// matching Kind are meaningful. Variants reuse Fields/Named for their
// payload.
type Value struct {
	Kind      Kind
	Primitive Primitive
	Fields    []Field
	Named     bool
	Variant   string
	Bits      []bool
}

// Constructors.

// Bool creates a boolean primitive value.
func Bool(v bool) Value {
	return Value{Kind: KindPrimitive, Primitive: Primitive{Kind: PrimBool, Bool: v}}
}

// Char creates a char primitive value.
func Char(r rune) Value {
	return Value{Kind: KindPrimitive, Primitive: Primitive{Kind: PrimChar, Char: r}}
}

// String creates a string primitive value.
func String(s string) Value {
	return Value{Kind: KindPrimitive, Primitive: Primitive{Kind: PrimString, Str: s}}
}

// Uint creates an unsigned integer primitive value.
func Uint(v uint64) Value {
	return Value{Kind: KindPrimitive, Primitive: Primitive{Kind: PrimUint, Uint: v}}
}

// Int creates a signed integer primitive value.
func Int(v int64) Value {
	return Value{Kind: KindPrimitive, Primitive: Primitive{Kind: PrimInt, Int: v}}
}

// BigUint creates an unsigned integer primitive wider than 64 bits.
func BigUint(v *uint256.Int) Value {
	return Value{Kind: KindPrimitive, Primitive: Primitive{Kind: PrimBigUint, Big: v}}
}

// BigInt creates a signed integer primitive wider than 64 bits, carried
// as a sign and a magnitude.
func BigInt(neg bool, magnitude *uint256.Int) Value {
	return Value{Kind: KindPrimitive, Primitive: Primitive{Kind: PrimBigInt, Big: magnitude, Neg: neg}}
}

// Named creates a named composite value. Field order is preserved.
func Named(fields ...Field) Value {
	return Value{Kind: KindComposite, Named: true, Fields: fields}
}

// Unnamed creates an unnamed composite value.
func Unnamed(values ...Value) Value {
	fields := make([]Field, len(values))
	for i, v := range values {
		fields[i] = Field{Value: v}
	}
	return Value{Kind: KindComposite, Fields: fields}
}

// Bytes creates an unnamed composite of u8 primitives, the shape that
// encodes against Vec<u8> and [u8; N] types.
func Bytes(b []byte) Value {
	values := make([]Field, len(b))
	for i, v := range b {
		values[i] = Field{Value: Uint(uint64(v))}
	}
	return Value{Kind: KindComposite, Fields: values}
}

// VariantNamed creates a variant value with named fields.
func VariantNamed(name string, fields ...Field) Value {
	return Value{Kind: KindVariant, Variant: name, Named: true, Fields: fields}
}

// VariantUnnamed creates a variant value with positional fields.
func VariantUnnamed(name string, values ...Value) Value {
	v := Unnamed(values...)
	return Value{Kind: KindVariant, Variant: name, Fields: v.Fields}
}

// BitSequence creates a bit sequence value.
func BitSequence(bits []bool) Value {
	return Value{Kind: KindBitSequence, Bits: bits}
}

// IntoComposite returns the value unchanged if it is already a composite,
// and otherwise wraps it as a one-element unnamed composite. This is the
// coercion applied whenever a bare value is supplied where a field list
// is structurally expected, e.g. 42 as the whole argument list of a
// single-argument call.
func (v Value) IntoComposite() Value {
	if v.Kind == KindComposite {
		return v
	}
	return Unnamed(v)
}

// Values returns the field values of a composite or variant, dropping
// names.
func (v Value) Values() []Value {
	out := make([]Value, len(v.Fields))
	for i, f := range v.Fields {
		out[i] = f.Value
	}
	return out
}

// FieldByName returns the named field's value.
func (v Value) FieldByName(name string) (Value, bool) {
	for _, f := range v.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return Value{}, false
}

// Equal compares two values structurally. Composites compare by their
// field values; when both sides are named the names must match too, but a
// named composite equals an unnamed one with the same values in order,
// since descriptors decide whether names matter. Numeric primitives
// compare by numeric value regardless of representation width.
func Equal(a, b Value) bool {
	if a.Kind == KindVariant || b.Kind == KindVariant {
		if a.Kind != b.Kind || a.Variant != b.Variant {
			return false
		}
		return fieldsEqual(a, b)
	}
	switch a.Kind {
	case KindPrimitive:
		if b.Kind != KindPrimitive {
			return false
		}
		return primitiveEqual(a.Primitive, b.Primitive)
	case KindComposite:
		if b.Kind != KindComposite {
			return false
		}
		return fieldsEqual(a, b)
	case KindBitSequence:
		if b.Kind != KindBitSequence || len(a.Bits) != len(b.Bits) {
			return false
		}
		for i := range a.Bits {
			if a.Bits[i] != b.Bits[i] {
				return false
			}
		}
		return true
	}
	return false
}

func fieldsEqual(a, b Value) bool {
	if len(a.Fields) != len(b.Fields) {
		return false
	}
	named := a.Named && b.Named
	for i := range a.Fields {
		if named && a.Fields[i].Name != b.Fields[i].Name {
			return false
		}
		if !Equal(a.Fields[i].Value, b.Fields[i].Value) {
			return false
		}
	}
	return true
}

func primitiveEqual(a, b Primitive) bool {
	// Numeric primitives compare by value across representations.
	an, aok := normalizeNumeric(a)
	bn, bok := normalizeNumeric(b)
	if aok || bok {
		if !aok || !bok {
			return false
		}
		return an.neg == bn.neg && an.mag.Eq(bn.mag)
	}
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case PrimBool:
		return a.Bool == b.Bool
	case PrimChar:
		return a.Char == b.Char
	case PrimString:
		return a.Str == b.Str
	}
	return false
}

type numeric struct {
	neg bool
	mag *uint256.Int
}

func normalizeNumeric(p Primitive) (numeric, bool) {
	switch p.Kind {
	case PrimUint:
		return numeric{mag: uint256.NewInt(p.Uint)}, true
	case PrimInt:
		if p.Int < 0 {
			return numeric{neg: true, mag: uint256.NewInt(uint64(-p.Int))}, true
		}
		return numeric{mag: uint256.NewInt(uint64(p.Int))}, true
	case PrimBigUint:
		return numeric{mag: p.Big}, true
	case PrimBigInt:
		return numeric{neg: p.Neg && !p.Big.IsZero(), mag: p.Big}, true
	default:
		return numeric{}, false
	}
}
