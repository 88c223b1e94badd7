package scale

import (
	"encoding/binary"

	"github.com/holiman/uint256"

	"github.com/wippyai/scale-codec/errors"
)

// Compact mode tags, stored in the low two bits of the first byte.
const (
	compactSingleByte byte = 0b00
	compactTwoByte    byte = 0b01
	compactFourByte   byte = 0b10
	compactBigNumber  byte = 0b11
)

// AppendCompactUint appends the compact encoding of n to dst.
// The shortest valid mode for n's magnitude is always chosen.
func AppendCompactUint(dst []byte, n uint64) []byte {
	switch {
	case n < 1<<6:
		return append(dst, byte(n)<<2)
	case n < 1<<14:
		return binary.LittleEndian.AppendUint16(dst, uint16(n)<<2|uint16(compactTwoByte))
	case n < 1<<30:
		return binary.LittleEndian.AppendUint32(dst, uint32(n)<<2|uint32(compactFourByte))
	default:
		byteLen := 8
		for n>>(8*(byteLen-1)) == 0 {
			byteLen--
		}
		dst = append(dst, byte(byteLen-4)<<2|compactBigNumber)
		for i := 0; i < byteLen; i++ {
			dst = append(dst, byte(n>>(8*i)))
		}
		return dst
	}
}

// AppendCompactBig appends the compact encoding of n to dst.
// Values that fit in 64 bits take the same bytes AppendCompactUint produces.
func AppendCompactBig(dst []byte, n *uint256.Int) []byte {
	if n.IsUint64() {
		return AppendCompactUint(dst, n.Uint64())
	}
	byteLen := (n.BitLen() + 7) / 8
	dst = append(dst, byte(byteLen-4)<<2|compactBigNumber)
	for i := 0; i < byteLen; i++ {
		limb := n[i/8]
		dst = append(dst, byte(limb>>(8*(i%8))))
	}
	return dst
}

// DecodeCompactUint decodes a compact integer that must fit in 64 bits.
// It returns the value and the number of bytes consumed.
func DecodeCompactUint(b []byte) (uint64, int, error) {
	if len(b) == 0 {
		return 0, 0, errors.UnexpectedEOF(errors.PhaseDecode, nil, 1, 0)
	}
	switch b[0] & 0b11 {
	case compactSingleByte:
		return uint64(b[0] >> 2), 1, nil
	case compactTwoByte:
		if len(b) < 2 {
			return 0, 0, errors.UnexpectedEOF(errors.PhaseDecode, nil, 2, len(b))
		}
		return uint64(binary.LittleEndian.Uint16(b) >> 2), 2, nil
	case compactFourByte:
		if len(b) < 4 {
			return 0, 0, errors.UnexpectedEOF(errors.PhaseDecode, nil, 4, len(b))
		}
		return uint64(binary.LittleEndian.Uint32(b) >> 2), 4, nil
	default:
		byteLen := int(b[0]>>2) + 4
		if byteLen > 8 {
			big, n, err := DecodeCompactBig(b)
			if err != nil {
				return 0, 0, err
			}
			if !big.IsUint64() {
				return 0, 0, errors.Overflow(errors.PhaseDecode, nil, big.String(), "u64")
			}
			return big.Uint64(), n, nil
		}
		if len(b) < 1+byteLen {
			return 0, 0, errors.UnexpectedEOF(errors.PhaseDecode, nil, 1+byteLen, len(b))
		}
		var v uint64
		for i := 0; i < byteLen; i++ {
			v |= uint64(b[1+i]) << (8 * i)
		}
		return v, 1 + byteLen, nil
	}
}

// DecodeCompactBig decodes a compact integer of up to 256 bits.
// It returns the value and the number of bytes consumed.
func DecodeCompactBig(b []byte) (*uint256.Int, int, error) {
	if len(b) == 0 {
		return nil, 0, errors.UnexpectedEOF(errors.PhaseDecode, nil, 1, 0)
	}
	if b[0]&0b11 != compactBigNumber {
		v, n, err := DecodeCompactUint(b)
		if err != nil {
			return nil, 0, err
		}
		return uint256.NewInt(v), n, nil
	}
	byteLen := int(b[0]>>2) + 4
	if byteLen > 32 {
		return nil, 0, errors.Unsupported(errors.PhaseDecode, "compact integers wider than 256 bits")
	}
	if len(b) < 1+byteLen {
		return nil, 0, errors.UnexpectedEOF(errors.PhaseDecode, nil, 1+byteLen, len(b))
	}
	v := new(uint256.Int)
	for i := 0; i < byteLen; i++ {
		v[i/8] |= uint64(b[1+i]) << (8 * (i % 8))
	}
	return v, 1 + byteLen, nil
}
