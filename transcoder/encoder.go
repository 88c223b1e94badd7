package transcoder

import (
	"github.com/holiman/uint256"

	"github.com/wippyai/scale-codec/errors"
	"github.com/wippyai/scale-codec/registry"
	"github.com/wippyai/scale-codec/scale"
	"github.com/wippyai/scale-codec/value"
)

// Encoder encodes dynamic values against one registry snapshot.
type Encoder struct {
	types *registry.Registry
}

// NewEncoder creates an encoder over the given registry.
func NewEncoder(types *registry.Registry) *Encoder {
	return &Encoder{types: types}
}

// Encode encodes v against the descriptor at id and returns the wire
// bytes.
func (e *Encoder) Encode(v value.Value, id registry.TypeId) ([]byte, error) {
	return e.AppendEncode(nil, v, id)
}

// AppendEncode appends the encoding of v to dst. If it fails, dst's
// contents beyond the original length are undefined and the caller must
// discard them.
func (e *Encoder) AppendEncode(dst []byte, v value.Value, id registry.TypeId) ([]byte, error) {
	return e.encode(dst, v, id, nil)
}

func (e *Encoder) encode(dst []byte, v value.Value, id registry.TypeId, path []string) ([]byte, error) {
	ty, ok := e.types.Resolve(id)
	if !ok {
		return nil, errors.TypeNotFound(errors.PhaseEncode, uint32(id))
	}

	switch ty.Kind {
	case registry.KindPrimitive:
		return e.encodePrimitive(dst, v, ty, path)
	case registry.KindComposite:
		return e.encodeFieldSet(dst, v, ty.Fields, path)
	case registry.KindVariant:
		return e.encodeVariant(dst, v, ty, path)
	case registry.KindSequence:
		return e.encodeSequence(dst, v, ty, path)
	case registry.KindArray:
		return e.encodeArray(dst, v, ty, path)
	case registry.KindTuple:
		return e.encodeTuple(dst, v, ty, path)
	case registry.KindCompact:
		return e.encodeCompact(dst, v, ty.Elem, path)
	case registry.KindBitSequence:
		return e.encodeBitSequence(dst, v, ty, path)
	default:
		return nil, errors.Unsupported(errors.PhaseEncode, "unknown type descriptor kind")
	}
}

func (e *Encoder) encodePrimitive(dst []byte, v value.Value, ty *registry.Type, path []string) ([]byte, error) {
	if v.Kind != value.KindPrimitive {
		return nil, errors.TypeMismatch(errors.PhaseEncode, path, v.Kind.String(), ty.Primitive.String())
	}
	p := v.Primitive

	switch ty.Primitive {
	case registry.Bool:
		if p.Kind != value.PrimBool {
			return nil, errors.TypeMismatch(errors.PhaseEncode, path, p.Kind.String(), "bool")
		}
		return scale.AppendBool(dst, p.Bool), nil
	case registry.Char:
		if p.Kind != value.PrimChar {
			return nil, errors.TypeMismatch(errors.PhaseEncode, path, p.Kind.String(), "char")
		}
		return scale.AppendChar(dst, p.Char), nil
	case registry.Str:
		if p.Kind != value.PrimString {
			return nil, errors.TypeMismatch(errors.PhaseEncode, path, p.Kind.String(), "str")
		}
		return scale.AppendString(dst, p.Str), nil
	default:
		if ty.Primitive.Signed() {
			return e.encodeSignedInt(dst, p, ty.Primitive, path)
		}
		return e.encodeUnsignedInt(dst, p, ty.Primitive, path)
	}
}

func (e *Encoder) encodeUnsignedInt(dst []byte, p value.Primitive, prim registry.PrimitiveKind, path []string) ([]byte, error) {
	mag, neg, ok := numericParts(p)
	if !ok {
		return nil, errors.TypeMismatch(errors.PhaseEncode, path, p.Kind.String(), prim.String())
	}
	if neg {
		return nil, errors.Overflow(errors.PhaseEncode, path, "-"+mag.Dec(), prim.String())
	}
	bits := prim.Bits()
	if mag.BitLen() > bits {
		return nil, errors.Overflow(errors.PhaseEncode, path, mag.Dec(), prim.String())
	}
	if bits <= 64 {
		return scale.AppendUint(dst, mag.Uint64(), bits), nil
	}
	return scale.AppendBig(dst, mag, bits), nil
}

func (e *Encoder) encodeSignedInt(dst []byte, p value.Primitive, prim registry.PrimitiveKind, path []string) ([]byte, error) {
	mag, neg, ok := numericParts(p)
	if !ok {
		return nil, errors.TypeMismatch(errors.PhaseEncode, path, p.Kind.String(), prim.String())
	}
	bits := prim.Bits()

	// Range check: magnitude <= 2^(bits-1) for negatives, < 2^(bits-1)
	// for non-negatives.
	limit := new(uint256.Int).Lsh(uint256.NewInt(1), uint(bits-1))
	if neg {
		if mag.Gt(limit) {
			return nil, errors.Overflow(errors.PhaseEncode, path, "-"+mag.Dec(), prim.String())
		}
	} else if !mag.Lt(limit) {
		return nil, errors.Overflow(errors.PhaseEncode, path, mag.Dec(), prim.String())
	}

	if bits <= 64 {
		n := int64(mag.Uint64())
		if neg {
			n = -n
		}
		return scale.AppendInt(dst, n, bits), nil
	}

	// Two's complement of the magnitude over the target width.
	tc := mag
	if neg && !mag.IsZero() {
		tc = new(uint256.Int).Neg(mag)
		if bits == 128 {
			tc[2], tc[3] = 0, 0
		}
	}
	return scale.AppendBig(dst, tc, bits), nil
}

func (e *Encoder) encodeFieldSet(dst []byte, v value.Value, fields []registry.Field, path []string) ([]byte, error) {
	if v.Kind != value.KindComposite {
		// A one-field composite accepts its inner content directly.
		if len(fields) == 1 {
			return e.encode(dst, v, fields[0].Type, fieldPath(path, fields[0].Name, 0))
		}
		return nil, errors.TypeMismatch(errors.PhaseEncode, path, v.Kind.String(), "composite")
	}
	if len(v.Fields) != len(fields) {
		return nil, errors.FieldCount(errors.PhaseEncode, path, len(fields), len(v.Fields))
	}

	// Named values match descriptor fields by name in any order, as long
	// as every descriptor field is named.
	if v.Named && allNamed(fields) {
		seen := map[string]bool{}
		var err error
		for i, f := range fields {
			if seen[f.Name] {
				return nil, errors.InvalidData(errors.PhaseEncode, path, "descriptor field name "+f.Name+" appears twice")
			}
			seen[f.Name] = true
			fv, ok := v.FieldByName(f.Name)
			if !ok {
				return nil, errors.FieldMissing(errors.PhaseEncode, path, f.Name)
			}
			dst, err = e.encode(dst, fv, f.Type, fieldPath(path, f.Name, i))
			if err != nil {
				return nil, err
			}
		}
		return dst, nil
	}

	// Positional otherwise.
	var err error
	for i, f := range fields {
		dst, err = e.encode(dst, v.Fields[i].Value, f.Type, fieldPath(path, f.Name, i))
		if err != nil {
			return nil, err
		}
	}
	return dst, nil
}

func (e *Encoder) encodeVariant(dst []byte, v value.Value, ty *registry.Type, path []string) ([]byte, error) {
	if v.Kind != value.KindVariant {
		return nil, errors.TypeMismatch(errors.PhaseEncode, path, v.Kind.String(), "variant")
	}
	def, ok := ty.VariantByName(v.Variant)
	if !ok {
		return nil, errors.VariantNotFound(errors.PhaseEncode, path, v.Variant, typeDisplayName(ty))
	}
	dst = append(dst, def.Index)
	inner := value.Value{Kind: value.KindComposite, Named: v.Named, Fields: v.Fields}
	return e.encodeFieldSet(dst, inner, def.Fields, append(path, v.Variant))
}

func (e *Encoder) encodeSequence(dst []byte, v value.Value, ty *registry.Type, path []string) ([]byte, error) {
	if v.Kind != value.KindComposite {
		return nil, errors.TypeMismatch(errors.PhaseEncode, path, v.Kind.String(), "sequence")
	}
	dst = scale.AppendCompactUint(dst, uint64(len(v.Fields)))
	var err error
	for i, f := range v.Fields {
		dst, err = e.encode(dst, f.Value, ty.Elem, fieldPath(path, "", i))
		if err != nil {
			return nil, err
		}
	}
	return dst, nil
}

func (e *Encoder) encodeArray(dst []byte, v value.Value, ty *registry.Type, path []string) ([]byte, error) {
	if v.Kind != value.KindComposite {
		return nil, errors.TypeMismatch(errors.PhaseEncode, path, v.Kind.String(), "array")
	}
	if uint32(len(v.Fields)) != ty.Len {
		return nil, errors.ArrayLength(errors.PhaseEncode, path, int(ty.Len), len(v.Fields))
	}
	var err error
	for i, f := range v.Fields {
		dst, err = e.encode(dst, f.Value, ty.Elem, fieldPath(path, "", i))
		if err != nil {
			return nil, err
		}
	}
	return dst, nil
}

func (e *Encoder) encodeTuple(dst []byte, v value.Value, ty *registry.Type, path []string) ([]byte, error) {
	if v.Kind != value.KindComposite {
		if len(ty.Tuple) == 1 {
			return e.encode(dst, v, ty.Tuple[0], fieldPath(path, "", 0))
		}
		return nil, errors.TypeMismatch(errors.PhaseEncode, path, v.Kind.String(), "tuple")
	}
	if len(v.Fields) != len(ty.Tuple) {
		return nil, errors.FieldCount(errors.PhaseEncode, path, len(ty.Tuple), len(v.Fields))
	}
	var err error
	for i, id := range ty.Tuple {
		dst, err = e.encode(dst, v.Fields[i].Value, id, fieldPath(path, "", i))
		if err != nil {
			return nil, err
		}
	}
	return dst, nil
}

// encodeCompact encodes a numeric value in compact form. The wrapped type
// may itself be a one-field composite, which compact encoding sees
// through, so this recurses until it finds the integer primitive.
func (e *Encoder) encodeCompact(dst []byte, v value.Value, inner registry.TypeId, path []string) ([]byte, error) {
	ty, ok := e.types.Resolve(inner)
	if !ok {
		return nil, errors.TypeNotFound(errors.PhaseEncode, uint32(inner))
	}

	switch ty.Kind {
	case registry.KindComposite:
		if len(ty.Fields) != 1 {
			return nil, errors.Unsupported(errors.PhaseEncode, "compact encoding of a multi-field composite")
		}
		if v.Kind == value.KindComposite {
			if len(v.Fields) != 1 {
				return nil, errors.FieldCount(errors.PhaseEncode, path, 1, len(v.Fields))
			}
			v = v.Fields[0].Value
		}
		return e.encodeCompact(dst, v, ty.Fields[0].Type, path)
	case registry.KindPrimitive:
	default:
		return nil, errors.Unsupported(errors.PhaseEncode, "compact encoding of a "+ty.Kind.String()+" type")
	}

	if ty.Primitive.Signed() || ty.Primitive.Bits() == 0 {
		return nil, errors.Unsupported(errors.PhaseEncode, "compact encoding of "+ty.Primitive.String())
	}
	if v.Kind != value.KindPrimitive {
		return nil, errors.TypeMismatch(errors.PhaseEncode, path, v.Kind.String(), "Compact<"+ty.Primitive.String()+">")
	}
	mag, neg, ok := numericParts(v.Primitive)
	if !ok || neg {
		return nil, errors.TypeMismatch(errors.PhaseEncode, path, v.Primitive.Kind.String(), "Compact<"+ty.Primitive.String()+">")
	}
	if mag.BitLen() > ty.Primitive.Bits() {
		return nil, errors.Overflow(errors.PhaseEncode, path, mag.Dec(), "Compact<"+ty.Primitive.String()+">")
	}
	return scale.AppendCompactBig(dst, mag), nil
}

func (e *Encoder) encodeBitSequence(dst []byte, v value.Value, ty *registry.Type, path []string) ([]byte, error) {
	if v.Kind != value.KindBitSequence {
		return nil, errors.TypeMismatch(errors.PhaseEncode, path, v.Kind.String(), "bit sequence")
	}
	return appendBits(dst, v.Bits, ty.BitStore, ty.BitOrder)
}

func fieldPath(path []string, name string, index int) []string {
	if name == "" {
		return path
	}
	return append(path, name)
}

func allNamed(fields []registry.Field) bool {
	for _, f := range fields {
		if f.Name == "" {
			return false
		}
	}
	return len(fields) > 0
}

// numericParts extracts sign and magnitude from a numeric primitive.
func numericParts(p value.Primitive) (*uint256.Int, bool, bool) {
	switch p.Kind {
	case value.PrimUint:
		return uint256.NewInt(p.Uint), false, true
	case value.PrimInt:
		if p.Int < 0 {
			return uint256.NewInt(uint64(-p.Int)), true, true
		}
		return uint256.NewInt(uint64(p.Int)), false, true
	case value.PrimBigUint:
		return p.Big, false, true
	case value.PrimBigInt:
		return p.Big, p.Neg && !p.Big.IsZero(), true
	default:
		return nil, false, false
	}
}
