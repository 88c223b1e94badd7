package transcoder

import (
	"github.com/holiman/uint256"

	"github.com/wippyai/scale-codec/errors"
	"github.com/wippyai/scale-codec/registry"
	"github.com/wippyai/scale-codec/scale"
	"github.com/wippyai/scale-codec/value"
)

// Decoder decodes SCALE wire bytes against one registry snapshot.
type Decoder struct {
	types *registry.Registry
}

// NewDecoder creates a decoder over the given registry.
func NewDecoder(types *registry.Registry) *Decoder {
	return &Decoder{types: types}
}

// Decode consumes one value of the descriptor at id from the front of b
// and returns it with the number of bytes consumed. Failures abort the
// whole decode; no partial value is returned.
func (d *Decoder) Decode(b []byte, id registry.TypeId) (value.Value, int, error) {
	return d.decode(b, id, nil)
}

// DecodeExact decodes one value that must occupy all of b. Leftover
// bytes are an error: silently accepting them would mask either a
// metadata mismatch or a malformed blob.
func (d *Decoder) DecodeExact(b []byte, id registry.TypeId) (value.Value, error) {
	v, n, err := d.decode(b, id, nil)
	if err != nil {
		return value.Value{}, err
	}
	if n != len(b) {
		return value.Value{}, errors.LeftoverBytes(errors.PhaseDecode, len(b)-n)
	}
	return v, nil
}

func (d *Decoder) decode(b []byte, id registry.TypeId, path []string) (value.Value, int, error) {
	ty, ok := d.types.Resolve(id)
	if !ok {
		return value.Value{}, 0, errors.TypeNotFound(errors.PhaseDecode, uint32(id))
	}

	switch ty.Kind {
	case registry.KindPrimitive:
		return d.decodePrimitive(b, ty)
	case registry.KindComposite:
		v, n, err := d.decodeFieldSet(b, ty.Fields, path)
		if err != nil {
			return value.Value{}, 0, err
		}
		return v, n, nil
	case registry.KindVariant:
		return d.decodeVariant(b, ty, path)
	case registry.KindSequence:
		return d.decodeSequence(b, ty, path)
	case registry.KindArray:
		return d.decodeArray(b, ty, path)
	case registry.KindTuple:
		return d.decodeTuple(b, ty, path)
	case registry.KindCompact:
		return d.decodeCompact(b, ty.Elem, path)
	case registry.KindBitSequence:
		bits, n, err := decodeBits(b, ty.BitStore, ty.BitOrder)
		if err != nil {
			return value.Value{}, 0, err
		}
		return value.BitSequence(bits), n, nil
	default:
		return value.Value{}, 0, errors.Unsupported(errors.PhaseDecode, "unknown type descriptor kind")
	}
}

func (d *Decoder) decodePrimitive(b []byte, ty *registry.Type) (value.Value, int, error) {
	switch ty.Primitive {
	case registry.Bool:
		v, n, err := scale.DecodeBool(b)
		if err != nil {
			return value.Value{}, 0, err
		}
		return value.Bool(v), n, nil
	case registry.Char:
		r, n, err := scale.DecodeChar(b)
		if err != nil {
			return value.Value{}, 0, err
		}
		return value.Char(r), n, nil
	case registry.Str:
		s, n, err := scale.DecodeString(b)
		if err != nil {
			return value.Value{}, 0, err
		}
		return value.String(s), n, nil
	}

	bits := ty.Primitive.Bits()
	if !ty.Primitive.Signed() {
		if bits <= 64 {
			v, n, err := scale.DecodeUint(b, bits)
			if err != nil {
				return value.Value{}, 0, err
			}
			return value.Uint(v), n, nil
		}
		v, n, err := scale.DecodeBig(b, bits)
		if err != nil {
			return value.Value{}, 0, err
		}
		return value.BigUint(v), n, nil
	}

	if bits <= 64 {
		v, n, err := scale.DecodeInt(b, bits)
		if err != nil {
			return value.Value{}, 0, err
		}
		return value.Int(v), n, nil
	}
	raw, n, err := scale.DecodeBig(b, bits)
	if err != nil {
		return value.Value{}, 0, err
	}
	neg, mag := fromTwosComplement(raw, bits)
	return value.BigInt(neg, mag), n, nil
}

// fromTwosComplement splits a two's-complement little-endian integer of
// the given width into sign and magnitude.
func fromTwosComplement(raw *uint256.Int, bits int) (bool, *uint256.Int) {
	signWord := bits/64 - 1
	if raw[signWord]>>63 == 0 {
		return false, raw
	}
	mag := new(uint256.Int).Neg(raw)
	if bits == 128 {
		mag[2], mag[3] = 0, 0
	}
	return true, mag
}

func (d *Decoder) decodeFieldSet(b []byte, fields []registry.Field, path []string) (value.Value, int, error) {
	named := allNamed(fields)
	out := make([]value.Field, 0, len(fields))
	n := 0
	for i, f := range fields {
		fv, consumed, err := d.decode(b[n:], f.Type, fieldPath(path, f.Name, i))
		if err != nil {
			return value.Value{}, 0, err
		}
		n += consumed
		name := ""
		if named {
			name = f.Name
		}
		out = append(out, value.Field{Name: name, Value: fv})
	}
	return value.Value{Kind: value.KindComposite, Named: named, Fields: out}, n, nil
}

func (d *Decoder) decodeVariant(b []byte, ty *registry.Type, path []string) (value.Value, int, error) {
	if len(b) == 0 {
		return value.Value{}, 0, errors.UnexpectedEOF(errors.PhaseDecode, path, 1, 0)
	}
	def, ok := ty.VariantByIndex(b[0])
	if !ok {
		return value.Value{}, 0, errors.VariantIndexNotFound(errors.PhaseDecode, path, b[0], typeDisplayName(ty))
	}
	fieldsValue, n, err := d.decodeFieldSet(b[1:], def.Fields, append(path, def.Name))
	if err != nil {
		return value.Value{}, 0, err
	}
	return value.Value{
		Kind:    value.KindVariant,
		Variant: def.Name,
		Named:   fieldsValue.Named,
		Fields:  fieldsValue.Fields,
	}, 1 + n, nil
}

func (d *Decoder) decodeSequence(b []byte, ty *registry.Type, path []string) (value.Value, int, error) {
	count, n, err := scale.DecodeCompactUint(b)
	if err != nil {
		return value.Value{}, 0, err
	}
	// Elements have no fixed width, so the count alone cannot be
	// validated up front. Cap the allocation by the remaining input
	// instead; a lying prefix then fails on EOF without a huge make.
	capHint := count
	if rem := uint64(len(b) - n); capHint > rem {
		capHint = rem
	}
	out := make([]value.Field, 0, capHint)
	for i := uint64(0); i < count; i++ {
		fv, consumed, err := d.decode(b[n:], ty.Elem, path)
		if err != nil {
			return value.Value{}, 0, err
		}
		n += consumed
		out = append(out, value.Field{Value: fv})
	}
	return value.Value{Kind: value.KindComposite, Fields: out}, n, nil
}

func (d *Decoder) decodeArray(b []byte, ty *registry.Type, path []string) (value.Value, int, error) {
	out := make([]value.Field, 0, ty.Len)
	n := 0
	for i := uint32(0); i < ty.Len; i++ {
		fv, consumed, err := d.decode(b[n:], ty.Elem, path)
		if err != nil {
			return value.Value{}, 0, err
		}
		n += consumed
		out = append(out, value.Field{Value: fv})
	}
	return value.Value{Kind: value.KindComposite, Fields: out}, n, nil
}

func (d *Decoder) decodeTuple(b []byte, ty *registry.Type, path []string) (value.Value, int, error) {
	out := make([]value.Field, 0, len(ty.Tuple))
	n := 0
	for i, id := range ty.Tuple {
		fv, consumed, err := d.decode(b[n:], id, fieldPath(path, "", i))
		if err != nil {
			return value.Value{}, 0, err
		}
		n += consumed
		out = append(out, value.Field{Value: fv})
	}
	return value.Value{Kind: value.KindComposite, Fields: out}, n, nil
}

// decodeCompact reads a compact integer. The wrapped type may be a chain
// of one-field composites around the integer primitive; the decoded
// value is wrapped back into the same composite shape so it mirrors what
// the encoder accepts.
func (d *Decoder) decodeCompact(b []byte, inner registry.TypeId, path []string) (value.Value, int, error) {
	ty, ok := d.types.Resolve(inner)
	if !ok {
		return value.Value{}, 0, errors.TypeNotFound(errors.PhaseDecode, uint32(inner))
	}

	switch ty.Kind {
	case registry.KindComposite:
		if len(ty.Fields) != 1 {
			return value.Value{}, 0, errors.Unsupported(errors.PhaseDecode, "compact decoding of a multi-field composite")
		}
		f := ty.Fields[0]
		innerValue, n, err := d.decodeCompact(b, f.Type, fieldPath(path, f.Name, 0))
		if err != nil {
			return value.Value{}, 0, err
		}
		if f.Name != "" {
			return value.Named(value.Field{Name: f.Name, Value: innerValue}), n, nil
		}
		return value.Unnamed(innerValue), n, nil
	case registry.KindPrimitive:
	default:
		return value.Value{}, 0, errors.Unsupported(errors.PhaseDecode, "compact decoding of a "+ty.Kind.String()+" type")
	}

	if ty.Primitive.Signed() || ty.Primitive.Bits() == 0 {
		return value.Value{}, 0, errors.Unsupported(errors.PhaseDecode, "compact decoding of "+ty.Primitive.String())
	}
	if ty.Primitive.Bits() <= 64 {
		v, n, err := scale.DecodeCompactUint(b)
		if err != nil {
			return value.Value{}, 0, err
		}
		return value.Uint(v), n, nil
	}
	v, n, err := scale.DecodeCompactBig(b)
	if err != nil {
		return value.Value{}, 0, err
	}
	return value.BigUint(v), n, nil
}
