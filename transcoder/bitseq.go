package transcoder

import (
	"strings"

	"github.com/wippyai/scale-codec/errors"
	"github.com/wippyai/scale-codec/registry"
	"github.com/wippyai/scale-codec/scale"
)

// storeBits returns the width of one bit-storage unit, or an error for a
// store type the wire format does not define.
func storeBits(store registry.PrimitiveKind) (int, error) {
	switch store {
	case registry.U8, registry.U16, registry.U32, registry.U64:
		return store.Bits(), nil
	default:
		return 0, errors.Unsupported(errors.PhaseEncode, "bit sequences stored in "+store.String())
	}
}

// appendBits encodes a bit list as a compact bit count followed by
// bit-packed storage units, each unit serialized little-endian.
func appendBits(dst []byte, bits []bool, store registry.PrimitiveKind, order registry.BitOrder) ([]byte, error) {
	unit, err := storeBits(store)
	if err != nil {
		return nil, err
	}
	dst = scale.AppendCompactUint(dst, uint64(len(bits)))

	for start := 0; start < len(bits); start += unit {
		var word uint64
		for i := 0; i < unit && start+i < len(bits); i++ {
			if !bits[start+i] {
				continue
			}
			if order == registry.Msb0 {
				word |= 1 << (unit - 1 - i)
			} else {
				word |= 1 << i
			}
		}
		dst = scale.AppendUint(dst, word, unit)
	}
	return dst, nil
}

// decodeBits reads a compact bit count followed by bit-packed storage
// units and returns the bit list plus bytes consumed.
func decodeBits(b []byte, store registry.PrimitiveKind, order registry.BitOrder) ([]bool, int, error) {
	unit, err := storeBits(store)
	if err != nil {
		return nil, 0, errors.Wrap(errors.PhaseDecode, errors.KindUnsupported, err, "bit sequence store")
	}
	count, n, err := scale.DecodeCompactUint(b)
	if err != nil {
		return nil, 0, err
	}

	// The count is untrusted wire input; verify the storage units it
	// implies actually fit in the remaining bytes before allocating.
	if count > 0 {
		units := (count-1)/uint64(unit) + 1
		need := units * uint64(unit/8)
		if have := uint64(len(b) - n); need > have {
			return nil, 0, errors.UnexpectedEOF(errors.PhaseDecode, nil, n+int(need), len(b))
		}
	}

	bits := make([]bool, 0, count)
	for start := uint64(0); start < count; start += uint64(unit) {
		word, consumed, err := scale.DecodeUint(b[n:], unit)
		if err != nil {
			return nil, 0, err
		}
		n += consumed
		for i := 0; i < unit && start+uint64(i) < count; i++ {
			if order == registry.Msb0 {
				bits = append(bits, word&(1<<(unit-1-i)) != 0)
			} else {
				bits = append(bits, word&(1<<i) != 0)
			}
		}
	}
	return bits, n, nil
}

func typeDisplayName(ty *registry.Type) string {
	if len(ty.Path) > 0 {
		return strings.Join(ty.Path, "::")
	}
	return ty.Kind.String()
}
