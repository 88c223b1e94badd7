package scale

import (
	"unicode/utf8"

	"github.com/holiman/uint256"

	"github.com/wippyai/scale-codec/errors"
)

// AppendBool appends a single boolean byte to dst.
func AppendBool(dst []byte, v bool) []byte {
	if v {
		return append(dst, 0x01)
	}
	return append(dst, 0x00)
}

// DecodeBool reads a single boolean byte. Any value other than
// 0x00 or 0x01 is a decode error.
func DecodeBool(b []byte) (bool, int, error) {
	if len(b) == 0 {
		return false, 0, errors.UnexpectedEOF(errors.PhaseDecode, nil, 1, 0)
	}
	switch b[0] {
	case 0x00:
		return false, 1, nil
	case 0x01:
		return true, 1, nil
	default:
		return false, 0, errors.InvalidBool(errors.PhaseDecode, nil, b[0])
	}
}

// AppendUint appends v as a little-endian integer of the given bit width
// (8, 16, 32 or 64).
func AppendUint(dst []byte, v uint64, bits int) []byte {
	for i := 0; i < bits/8; i++ {
		dst = append(dst, byte(v>>(8*i)))
	}
	return dst
}

// DecodeUint reads a little-endian unsigned integer of the given bit width
// (8, 16, 32 or 64).
func DecodeUint(b []byte, bits int) (uint64, int, error) {
	n := bits / 8
	if len(b) < n {
		return 0, 0, errors.UnexpectedEOF(errors.PhaseDecode, nil, n, len(b))
	}
	var v uint64
	for i := 0; i < n; i++ {
		v |= uint64(b[i]) << (8 * i)
	}
	return v, n, nil
}

// AppendInt appends v as a little-endian two's-complement integer of the
// given bit width (8, 16, 32 or 64).
func AppendInt(dst []byte, v int64, bits int) []byte {
	return AppendUint(dst, uint64(v), bits)
}

// DecodeInt reads a little-endian two's-complement signed integer of the
// given bit width (8, 16, 32 or 64) and sign-extends it.
func DecodeInt(b []byte, bits int) (int64, int, error) {
	v, n, err := DecodeUint(b, bits)
	if err != nil {
		return 0, 0, err
	}
	shift := 64 - bits
	return int64(v<<shift) >> shift, n, nil
}

// AppendBig appends v as a little-endian integer of the given bit width
// (128 or 256). The upper limbs must be zero for 128-bit targets; callers
// are expected to have range-checked.
func AppendBig(dst []byte, v *uint256.Int, bits int) []byte {
	for i := 0; i < bits/8; i++ {
		dst = append(dst, byte(v[i/8]>>(8*(i%8))))
	}
	return dst
}

// DecodeBig reads a little-endian unsigned integer of the given bit width
// (128 or 256).
func DecodeBig(b []byte, bits int) (*uint256.Int, int, error) {
	n := bits / 8
	if len(b) < n {
		return nil, 0, errors.UnexpectedEOF(errors.PhaseDecode, nil, n, len(b))
	}
	v := new(uint256.Int)
	for i := 0; i < n; i++ {
		v[i/8] |= uint64(b[i]) << (8 * (i % 8))
	}
	return v, n, nil
}

// AppendChar appends a char as a little-endian u32 code point.
func AppendChar(dst []byte, r rune) []byte {
	return AppendUint(dst, uint64(uint32(r)), 32)
}

// DecodeChar reads a little-endian u32 and validates it is a unicode
// scalar value.
func DecodeChar(b []byte) (rune, int, error) {
	v, n, err := DecodeUint(b, 32)
	if err != nil {
		return 0, 0, err
	}
	r := rune(v)
	if !utf8.ValidRune(r) {
		return 0, 0, &errors.Error{
			Phase:  errors.PhaseDecode,
			Kind:   errors.KindInvalidChar,
			Detail: "u32 is not a unicode scalar value",
			Value:  uint32(v),
			Offset: -1,
		}
	}
	return r, n, nil
}

// AppendBytes appends a compact length prefix followed by the raw bytes.
func AppendBytes(dst, v []byte) []byte {
	dst = AppendCompactUint(dst, uint64(len(v)))
	return append(dst, v...)
}

// DecodeBytes reads a compact length prefix followed by that many bytes.
func DecodeBytes(b []byte) ([]byte, int, error) {
	length, n, err := DecodeCompactUint(b)
	if err != nil {
		return nil, 0, err
	}
	end := n + int(length)
	if uint64(len(b)-n) < length {
		return nil, 0, errors.UnexpectedEOF(errors.PhaseDecode, nil, end, len(b))
	}
	out := make([]byte, length)
	copy(out, b[n:end])
	return out, end, nil
}

// AppendString appends a string as a compact-length-prefixed byte sequence.
func AppendString(dst []byte, s string) []byte {
	dst = AppendCompactUint(dst, uint64(len(s)))
	return append(dst, s...)
}

// DecodeString reads a compact-length-prefixed byte sequence and validates
// it is UTF-8.
func DecodeString(b []byte) (string, int, error) {
	raw, n, err := DecodeBytes(b)
	if err != nil {
		return "", 0, err
	}
	if !utf8.Valid(raw) {
		return "", 0, errors.InvalidUTF8(errors.PhaseDecode, nil, raw)
	}
	return string(raw), n, nil
}
