package scale

import (
	"bytes"
	"errors"
	"testing"

	"github.com/holiman/uint256"

	scaleerrors "github.com/wippyai/scale-codec/errors"
)

func TestCompactUint_KnownEncodings(t *testing.T) {
	tests := []struct {
		name string
		n    uint64
		want []byte
	}{
		{"zero", 0, []byte{0x00}},
		{"one", 1, []byte{0x04}},
		{"five", 5, []byte{0x14}},
		{"single byte max", 63, []byte{0xfc}},
		{"two byte min", 64, []byte{0x01, 0x01}},
		{"two byte", 69, []byte{0x15, 0x01}},
		{"two byte max", 16383, []byte{0xfd, 0xff}},
		{"four byte min", 16384, []byte{0x02, 0x00, 0x01, 0x00}},
		{"four byte max", 1<<30 - 1, []byte{0xfe, 0xff, 0xff, 0xff}},
		{"big mode min", 1 << 30, []byte{0x03, 0x00, 0x00, 0x00, 0x40}},
		{"big mode u64 max", 1<<64 - 1, []byte{0x13, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AppendCompactUint(nil, tt.n)
			if !bytes.Equal(got, tt.want) {
				t.Fatalf("AppendCompactUint(%d) = %x, want %x", tt.n, got, tt.want)
			}
			v, consumed, err := DecodeCompactUint(got)
			if err != nil {
				t.Fatalf("DecodeCompactUint(%x): %v", got, err)
			}
			if v != tt.n || consumed != len(got) {
				t.Errorf("DecodeCompactUint(%x) = (%d, %d), want (%d, %d)", got, v, consumed, tt.n, len(got))
			}
		})
	}
}

func TestCompactUint_Canonicality(t *testing.T) {
	// Every mode boundary must produce the shortest encoding for its side.
	boundaries := []struct {
		n       uint64
		wantLen int
	}{
		{63, 1}, {64, 2},
		{16383, 2}, {16384, 4},
		{1<<30 - 1, 4}, {1 << 30, 5},
		{1<<32 - 1, 5}, {1 << 32, 6},
		{1<<40 - 1, 6}, {1 << 40, 7},
	}
	for _, b := range boundaries {
		got := AppendCompactUint(nil, b.n)
		if len(got) != b.wantLen {
			t.Errorf("AppendCompactUint(%d) has %d bytes, want %d", b.n, len(got), b.wantLen)
		}
	}
}

func TestCompactBig_RoundTrip(t *testing.T) {
	tests := []struct {
		name string
		v    *uint256.Int
	}{
		{"small", uint256.NewInt(5)},
		{"u64 boundary", uint256.NewInt(1<<64 - 1)},
		{"u128", new(uint256.Int).Lsh(uint256.NewInt(1), 100)},
		{"u256 max", new(uint256.Int).Sub(new(uint256.Int).Lsh(uint256.NewInt(1), 256), uint256.NewInt(1))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enc := AppendCompactBig(nil, tt.v)
			got, consumed, err := DecodeCompactBig(enc)
			if err != nil {
				t.Fatalf("DecodeCompactBig: %v", err)
			}
			if consumed != len(enc) {
				t.Errorf("consumed %d of %d bytes", consumed, len(enc))
			}
			if !got.Eq(tt.v) {
				t.Errorf("round trip = %s, want %s", got, tt.v)
			}
		})
	}
}

func TestCompactBig_SmallValuesMatchUintEncoding(t *testing.T) {
	for _, n := range []uint64{0, 1, 63, 64, 16384, 1 << 31} {
		a := AppendCompactUint(nil, n)
		b := AppendCompactBig(nil, uint256.NewInt(n))
		if !bytes.Equal(a, b) {
			t.Errorf("encodings diverge for %d: %x vs %x", n, a, b)
		}
	}
}

func TestDecodeCompact_ShortInput(t *testing.T) {
	tests := []struct {
		name string
		b    []byte
	}{
		{"empty", nil},
		{"two byte mode cut", []byte{0x01}},
		{"four byte mode cut", []byte{0x02, 0x00}},
		{"big mode cut", []byte{0x03, 0x00, 0x00}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := DecodeCompactUint(tt.b); err == nil {
				t.Errorf("DecodeCompactUint(%x) should fail", tt.b)
			}
		})
	}
}

func TestBool(t *testing.T) {
	if got := AppendBool(nil, true); !bytes.Equal(got, []byte{0x01}) {
		t.Errorf("true = %x, want 01", got)
	}
	if got := AppendBool(nil, false); !bytes.Equal(got, []byte{0x00}) {
		t.Errorf("false = %x, want 00", got)
	}

	v, n, err := DecodeBool([]byte{0x01, 0xff})
	if err != nil || !v || n != 1 {
		t.Errorf("DecodeBool(01) = (%v, %d, %v)", v, n, err)
	}

	_, _, err = DecodeBool([]byte{0x02})
	var serr *scaleerrors.Error
	if !errors.As(err, &serr) || serr.Kind != scaleerrors.KindInvalidBool {
		t.Errorf("DecodeBool(02) error = %v, want invalid_bool", err)
	}
}

func TestFixedWidthInts(t *testing.T) {
	tests := []struct {
		name string
		v    uint64
		bits int
		want []byte
	}{
		{"u8", 0xab, 8, []byte{0xab}},
		{"u16", 0xabcd, 16, []byte{0xcd, 0xab}},
		{"u32", 42, 32, []byte{0x2a, 0x00, 0x00, 0x00}},
		{"u64", 0x0102030405060708, 64, []byte{0x08, 0x07, 0x06, 0x05, 0x04, 0x03, 0x02, 0x01}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AppendUint(nil, tt.v, tt.bits)
			if !bytes.Equal(got, tt.want) {
				t.Fatalf("AppendUint = %x, want %x", got, tt.want)
			}
			v, n, err := DecodeUint(got, tt.bits)
			if err != nil || v != tt.v || n != len(tt.want) {
				t.Errorf("DecodeUint = (%d, %d, %v), want (%d, %d, nil)", v, n, err, tt.v, len(tt.want))
			}
		})
	}
}

func TestSignedInts(t *testing.T) {
	for _, tt := range []struct {
		v    int64
		bits int
	}{
		{-1, 8}, {-128, 8}, {127, 8},
		{-1, 16}, {-32768, 16},
		{-1234567, 32},
		{-1, 64}, {1 << 62, 64},
	} {
		enc := AppendInt(nil, tt.v, tt.bits)
		got, n, err := DecodeInt(enc, tt.bits)
		if err != nil || got != tt.v || n != tt.bits/8 {
			t.Errorf("i%d round trip of %d = (%d, %d, %v)", tt.bits, tt.v, got, n, err)
		}
	}
}

func TestBig_LittleEndian(t *testing.T) {
	v := uint256.NewInt(258) // 0x0102
	enc := AppendBig(nil, v, 128)
	want := make([]byte, 16)
	want[0], want[1] = 0x02, 0x01
	if !bytes.Equal(enc, want) {
		t.Fatalf("AppendBig(258, 128) = %x, want %x", enc, want)
	}
	got, n, err := DecodeBig(enc, 128)
	if err != nil || n != 16 || !got.Eq(v) {
		t.Errorf("DecodeBig = (%s, %d, %v)", got, n, err)
	}
}

func TestChar(t *testing.T) {
	enc := AppendChar(nil, '語')
	r, n, err := DecodeChar(enc)
	if err != nil || r != '語' || n != 4 {
		t.Errorf("char round trip = (%q, %d, %v)", r, n, err)
	}

	// Surrogate code points are not unicode scalar values.
	bad := AppendUint(nil, 0xd800, 32)
	if _, _, err := DecodeChar(bad); err == nil {
		t.Error("DecodeChar(0xd800) should fail")
	}
}

func TestString(t *testing.T) {
	enc := AppendString(nil, "hello")
	if !bytes.Equal(enc, []byte{0x14, 'h', 'e', 'l', 'l', 'o'}) {
		t.Fatalf("AppendString = %x", enc)
	}
	s, n, err := DecodeString(enc)
	if err != nil || s != "hello" || n != 6 {
		t.Errorf("DecodeString = (%q, %d, %v)", s, n, err)
	}

	_, _, err = DecodeString([]byte{0x08, 0xff, 0xfe})
	var serr *scaleerrors.Error
	if !errors.As(err, &serr) || serr.Kind != scaleerrors.KindInvalidUTF8 {
		t.Errorf("invalid UTF-8 error = %v", err)
	}

	// Length prefix pointing past the input.
	if _, _, err := DecodeString([]byte{0x28, 'h', 'i'}); err == nil {
		t.Error("truncated string should fail")
	}
}
