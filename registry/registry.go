package registry

import (
	"fmt"
	"strings"
)

// TypeId identifies a type within one Registry snapshot.
type TypeId uint32

// Kind discriminates the closed set of type descriptor shapes.
type Kind int

const (
	KindPrimitive Kind = iota
	KindComposite
	KindVariant
	KindSequence
	KindArray
	KindTuple
	KindCompact
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
	case KindSequence:
		return "sequence"
	case KindArray:
		return "array"
	case KindTuple:
		return "tuple"
	case KindCompact:
		return "compact"
	case KindBitSequence:
		return "bit sequence"
	default:
		return "unknown"
	}
}

// PrimitiveKind enumerates the primitive types a chain can declare.
type PrimitiveKind int

const (
	Bool PrimitiveKind = iota
	Char
	Str
	U8
	U16
	U32
	U64
	U128
	U256
	I8
	I16
	I32
	I64
	I128
	I256
)

// Bits returns the bit width of an integer primitive, or 0 for
// bool, char and str.
func (p PrimitiveKind) Bits() int {
	switch p {
	case U8, I8:
		return 8
	case U16, I16:
		return 16
	case U32, I32:
		return 32
	case U64, I64:
		return 64
	case U128, I128:
		return 128
	case U256, I256:
		return 256
	default:
		return 0
	}
}

// Signed reports whether the primitive is a signed integer.
func (p PrimitiveKind) Signed() bool {
	return p >= I8 && p <= I256
}

func (p PrimitiveKind) String() string {
	switch p {
	case Bool:
		return "bool"
	case Char:
		return "char"
	case Str:
		return "str"
	case U8:
		return "u8"
	case U16:
		return "u16"
	case U32:
		return "u32"
	case U64:
		return "u64"
	case U128:
		return "u128"
	case U256:
		return "u256"
	case I8:
		return "i8"
	case I16:
		return "i16"
	case I32:
		return "i32"
	case I64:
		return "i64"
	case I128:
		return "i128"
	case I256:
		return "i256"
	default:
		return "unknown"
	}
}

// BitOrder is the declared bit ordering of a bit sequence.
type BitOrder int

const (
	Lsb0 BitOrder = iota
	Msb0
)

func (o BitOrder) String() string {
	if o == Msb0 {
		return "Msb0"
	}
	return "Lsb0"
}

// Field is one member of a composite or variant. An empty name means the
// field is positional.
type Field struct {
	Name string
	Type TypeId
}

// VariantDef is one case of a variant type. Index is the wire
// discriminant byte; it need not match the position in the variant list.
type VariantDef struct {
	Name   string
	Index  byte
	Fields []Field
}

// Type is a single descriptor. Exactly the fields relevant to Kind are
// populated; the rest are zero.
type Type struct {
	// Path is the declared namespaced name, e.g. ["sp_core", "AccountId32"].
	// It is display-only and never affects encoding or hashing.
	Path []string

	Kind      Kind
	Primitive PrimitiveKind // KindPrimitive
	Fields    []Field       // KindComposite
	Variants  []VariantDef  // KindVariant
	Elem      TypeId        // KindSequence, KindArray, KindCompact
	Len       uint32        // KindArray
	Tuple     []TypeId      // KindTuple
	BitStore  PrimitiveKind // KindBitSequence: U8, U16, U32 or U64
	BitOrder  BitOrder      // KindBitSequence
}

// VariantByName returns the variant with the given name. Lookup is
// case sensitive.
func (t *Type) VariantByName(name string) (*VariantDef, bool) {
	for i := range t.Variants {
		if t.Variants[i].Name == name {
			return &t.Variants[i], true
		}
	}
	return nil, false
}

// VariantByIndex returns the variant with the given wire discriminant.
func (t *Type) VariantByIndex(index byte) (*VariantDef, bool) {
	for i := range t.Variants {
		if t.Variants[i].Index == index {
			return &t.Variants[i], true
		}
	}
	return nil, false
}

// References calls fn for every type id this descriptor refers to.
func (t *Type) References(fn func(TypeId)) {
	switch t.Kind {
	case KindComposite:
		for _, f := range t.Fields {
			fn(f.Type)
		}
	case KindVariant:
		for _, v := range t.Variants {
			for _, f := range v.Fields {
				fn(f.Type)
			}
		}
	case KindSequence, KindArray, KindCompact:
		fn(t.Elem)
	case KindTuple:
		for _, id := range t.Tuple {
			fn(id)
		}
	}
}

// Registry is a dense, append-only collection of type descriptors.
type Registry struct {
	types []Type
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{}
}

// Push appends a descriptor and returns its id. Descriptors may reference
// ids that have not been pushed yet, which is how recursive types are
// built: reserve ids first, fill in later with Set.
func (r *Registry) Push(t Type) TypeId {
	r.types = append(r.types, t)
	return TypeId(len(r.types) - 1)
}

// Set replaces the descriptor at an existing id, growing the registry if
// the id was never pushed. Used by the metadata decoder, which learns ids
// before it learns their definitions.
func (r *Registry) Set(id TypeId, t Type) {
	for TypeId(len(r.types)) <= id {
		r.types = append(r.types, Type{})
	}
	r.types[id] = t
}

// Resolve returns the descriptor for id, or false if the id is not in
// this registry.
func (r *Registry) Resolve(id TypeId) (*Type, bool) {
	if int(id) >= len(r.types) {
		return nil, false
	}
	return &r.types[id], true
}

// Len returns the number of descriptors.
func (r *Registry) Len() int {
	return len(r.types)
}

// Name renders a human-readable name for a type, following references.
// Recursive types render their path at the point of recursion.
func (r *Registry) Name(id TypeId) string {
	return r.name(id, map[TypeId]bool{})
}

func (r *Registry) name(id TypeId, seen map[TypeId]bool) string {
	t, ok := r.Resolve(id)
	if !ok {
		return fmt.Sprintf("<unresolved %d>", id)
	}
	if seen[id] {
		if len(t.Path) > 0 {
			return t.Path[len(t.Path)-1]
		}
		return fmt.Sprintf("<recursive %d>", id)
	}
	seen[id] = true
	defer delete(seen, id)

	switch t.Kind {
	case KindPrimitive:
		return t.Primitive.String()
	case KindComposite, KindVariant:
		if len(t.Path) > 0 {
			return strings.Join(t.Path, "::")
		}
		return t.Kind.String()
	case KindSequence:
		return "Vec<" + r.name(t.Elem, seen) + ">"
	case KindArray:
		return fmt.Sprintf("[%s; %d]", r.name(t.Elem, seen), t.Len)
	case KindTuple:
		parts := make([]string, len(t.Tuple))
		for i, e := range t.Tuple {
			parts[i] = r.name(e, seen)
		}
		return "(" + strings.Join(parts, ", ") + ")"
	case KindCompact:
		return "Compact<" + r.name(t.Elem, seen) + ">"
	case KindBitSequence:
		return fmt.Sprintf("BitVec<%s, %s>", t.BitStore, t.BitOrder)
	default:
		return "unknown"
	}
}
