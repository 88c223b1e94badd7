package transcoder

import (
	"bytes"
	"errors"
	"testing"

	"github.com/holiman/uint256"

	scaleerrors "github.com/wippyai/scale-codec/errors"
	"github.com/wippyai/scale-codec/registry"
	"github.com/wippyai/scale-codec/value"
)

// testTypes builds a registry with one of everything.
type testTypes struct {
	reg *registry.Registry

	boolId, u8, u16, u32, u64, u128, i32, i128, str, char registry.TypeId
	compactU8, compactU32, compactU128                    registry.TypeId
	accountId                                             registry.TypeId // [u8; 32]
	vecU8, vecU32                                         registry.TypeId
	point                                                 registry.TypeId // { x: u32, y: u32 }
	pair                                                  registry.TypeId // (u32, bool)
	balance                                               registry.TypeId // composite { 0: u128 } newtype
	compactBalance                                        registry.TypeId
	call                                                  registry.TypeId // variant
	bitsLsb8, bitsMsb16                                   registry.TypeId
}

func newTestTypes() *testTypes {
	tt := &testTypes{reg: registry.New()}
	r := tt.reg

	tt.boolId = r.Push(registry.Type{Kind: registry.KindPrimitive, Primitive: registry.Bool})
	tt.u8 = r.Push(registry.Type{Kind: registry.KindPrimitive, Primitive: registry.U8})
	tt.u16 = r.Push(registry.Type{Kind: registry.KindPrimitive, Primitive: registry.U16})
	tt.u32 = r.Push(registry.Type{Kind: registry.KindPrimitive, Primitive: registry.U32})
	tt.u64 = r.Push(registry.Type{Kind: registry.KindPrimitive, Primitive: registry.U64})
	tt.u128 = r.Push(registry.Type{Kind: registry.KindPrimitive, Primitive: registry.U128})
	tt.i32 = r.Push(registry.Type{Kind: registry.KindPrimitive, Primitive: registry.I32})
	tt.i128 = r.Push(registry.Type{Kind: registry.KindPrimitive, Primitive: registry.I128})
	tt.str = r.Push(registry.Type{Kind: registry.KindPrimitive, Primitive: registry.Str})
	tt.char = r.Push(registry.Type{Kind: registry.KindPrimitive, Primitive: registry.Char})

	tt.compactU8 = r.Push(registry.Type{Kind: registry.KindCompact, Elem: tt.u8})
	tt.compactU32 = r.Push(registry.Type{Kind: registry.KindCompact, Elem: tt.u32})
	tt.compactU128 = r.Push(registry.Type{Kind: registry.KindCompact, Elem: tt.u128})

	tt.accountId = r.Push(registry.Type{Kind: registry.KindArray, Elem: tt.u8, Len: 32})
	tt.vecU8 = r.Push(registry.Type{Kind: registry.KindSequence, Elem: tt.u8})
	tt.vecU32 = r.Push(registry.Type{Kind: registry.KindSequence, Elem: tt.u32})

	tt.point = r.Push(registry.Type{
		Kind: registry.KindComposite,
		Path: []string{"demo", "Point"},
		Fields: []registry.Field{
			{Name: "x", Type: tt.u32},
			{Name: "y", Type: tt.u32},
		},
	})
	tt.pair = r.Push(registry.Type{Kind: registry.KindTuple, Tuple: []registry.TypeId{tt.u32, tt.boolId}})

	tt.balance = r.Push(registry.Type{
		Kind:   registry.KindComposite,
		Path:   []string{"demo", "Balance"},
		Fields: []registry.Field{{Type: tt.u128}},
	})
	tt.compactBalance = r.Push(registry.Type{Kind: registry.KindCompact, Elem: tt.balance})

	tt.call = r.Push(registry.Type{
		Kind: registry.KindVariant,
		Path: []string{"demo", "Call"},
		Variants: []registry.VariantDef{
			{Name: "Transfer", Index: 0, Fields: []registry.Field{
				{Name: "dest", Type: tt.accountId},
				{Name: "value", Type: tt.compactU128},
			}},
			{Name: "Remark", Index: 1, Fields: []registry.Field{
				{Name: "remark", Type: tt.vecU8},
			}},
			{Name: "Noop", Index: 7},
		},
	})

	tt.bitsLsb8 = r.Push(registry.Type{Kind: registry.KindBitSequence, BitStore: registry.U8, BitOrder: registry.Lsb0})
	tt.bitsMsb16 = r.Push(registry.Type{Kind: registry.KindBitSequence, BitStore: registry.U16, BitOrder: registry.Msb0})

	return tt
}

func TestEncode_CompactU8(t *testing.T) {
	tt := newTestTypes()
	enc := NewEncoder(tt.reg)

	// 5 shifted left two bits, single byte mode.
	b, err := enc.Encode(value.Uint(5), tt.compactU8)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if !bytes.Equal(b, []byte{0x14}) {
		t.Fatalf("Encode(5, Compact<u8>) = %x, want 14", b)
	}

	dec := NewDecoder(tt.reg)
	v, n, err := dec.Decode(b, tt.compactU8)
	if err != nil || n != 1 {
		t.Fatalf("Decode = (%v, %d, %v)", v, n, err)
	}
	if !value.Equal(v, value.Uint(5)) {
		t.Errorf("Decode = %v, want 5", v)
	}
}

func TestEncode_Bool(t *testing.T) {
	tt := newTestTypes()
	enc := NewEncoder(tt.reg)

	b, err := enc.Encode(value.Bool(true), tt.boolId)
	if err != nil || !bytes.Equal(b, []byte{0x01}) {
		t.Fatalf("Encode(true) = (%x, %v)", b, err)
	}

	dec := NewDecoder(tt.reg)
	_, _, err = dec.Decode([]byte{0x02}, tt.boolId)
	var serr *scaleerrors.Error
	if !errors.As(err, &serr) || serr.Kind != scaleerrors.KindInvalidBool {
		t.Errorf("Decode(0x02) error = %v, want invalid_bool", err)
	}
}

func TestEncode_TransferCall(t *testing.T) {
	tt := newTestTypes()
	enc := NewEncoder(tt.reg)

	account := make([]byte, 32)
	for i := range account {
		account[i] = byte(i)
	}
	call := value.VariantNamed("Transfer",
		value.Field{Name: "dest", Value: value.Bytes(account)},
		value.Field{Name: "value", Value: value.Uint(10000)},
	)

	b, err := enc.Encode(call, tt.call)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	want := append([]byte{0x00}, account...)
	want = append(want, 0x41, 0x9c) // compact(10000), two byte mode
	if !bytes.Equal(b, want) {
		t.Fatalf("Encode(Transfer) = %x, want %x", b, want)
	}
}

func TestEncode_NamedFieldsAnyOrder(t *testing.T) {
	tt := newTestTypes()
	enc := NewEncoder(tt.reg)

	inOrder := value.Named(
		value.Field{Name: "x", Value: value.Uint(1)},
		value.Field{Name: "y", Value: value.Uint(2)},
	)
	reversed := value.Named(
		value.Field{Name: "y", Value: value.Uint(2)},
		value.Field{Name: "x", Value: value.Uint(1)},
	)

	a, err := enc.Encode(inOrder, tt.point)
	if err != nil {
		t.Fatalf("Encode(in order): %v", err)
	}
	b, err := enc.Encode(reversed, tt.point)
	if err != nil {
		t.Fatalf("Encode(reversed): %v", err)
	}
	if !bytes.Equal(a, b) {
		t.Errorf("field order changed the encoding: %x vs %x", a, b)
	}
}

func TestEncode_FieldErrors(t *testing.T) {
	tt := newTestTypes()
	enc := NewEncoder(tt.reg)

	tests := []struct {
		name string
		v    value.Value
		id   registry.TypeId
		kind scaleerrors.Kind
	}{
		{
			"missing field",
			value.Named(
				value.Field{Name: "x", Value: value.Uint(1)},
				value.Field{Name: "z", Value: value.Uint(2)},
			),
			tt.point,
			scaleerrors.KindFieldMissing,
		},
		{
			"field count",
			value.Named(value.Field{Name: "x", Value: value.Uint(1)}),
			tt.point,
			scaleerrors.KindFieldCount,
		},
		{
			"array length",
			value.Bytes([]byte{1, 2, 3}),
			tt.accountId,
			scaleerrors.KindArrayLength,
		},
		{
			"variant not found",
			value.VariantUnnamed("Transfur"),
			tt.call,
			scaleerrors.KindVariantNotFound,
		},
		{
			"string into integer",
			value.String("5"),
			tt.u32,
			scaleerrors.KindTypeMismatch,
		},
		{
			"negative into unsigned",
			value.Int(-1),
			tt.u32,
			scaleerrors.KindOverflow,
		},
		{
			"too wide",
			value.Uint(300),
			tt.u8,
			scaleerrors.KindOverflow,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := enc.Encode(tc.v, tc.id)
			var serr *scaleerrors.Error
			if !errors.As(err, &serr) || serr.Kind != tc.kind {
				t.Errorf("error = %v, want kind %q", err, tc.kind)
			}
		})
	}
}

func TestEncode_NumericWidening(t *testing.T) {
	tt := newTestTypes()
	enc := NewEncoder(tt.reg)

	// A small uint encodes against wider and signed targets.
	for _, id := range []registry.TypeId{tt.u8, tt.u32, tt.u64, tt.u128, tt.i32, tt.i128} {
		if _, err := enc.Encode(value.Uint(5), id); err != nil {
			t.Errorf("Encode(5, %s): %v", tt.reg.Name(id), err)
		}
	}
	// A negative int encodes against signed targets only.
	if _, err := enc.Encode(value.Int(-5), tt.i128); err != nil {
		t.Errorf("Encode(-5, i128): %v", err)
	}
}

func TestRoundTrip(t *testing.T) {
	tt := newTestTypes()
	enc := NewEncoder(tt.reg)
	dec := NewDecoder(tt.reg)

	u128v := new(uint256.Int).Lsh(uint256.NewInt(3), 100)

	tests := []struct {
		name string
		v    value.Value
		id   registry.TypeId
	}{
		{"bool", value.Bool(true), tt.boolId},
		{"u8", value.Uint(200), tt.u8},
		{"u64", value.Uint(1 << 60), tt.u64},
		{"u128", value.BigUint(u128v), tt.u128},
		{"i32 negative", value.Int(-123456), tt.i32},
		{"i128 negative", value.BigInt(true, u128v), tt.i128},
		{"char", value.Char('語'), tt.char},
		{"string", value.String("hello"), tt.str},
		{"compact u32", value.Uint(1 << 20), tt.compactU32},
		{"compact u128 big", value.BigUint(u128v), tt.compactU128},
		{"vec", value.Unnamed(value.Uint(1), value.Uint(2), value.Uint(3)), tt.vecU32},
		{"empty vec", value.Unnamed(), tt.vecU8},
		{"array", value.Bytes(bytes.Repeat([]byte{0xaa}, 32)), tt.accountId},
		{"named composite", value.Named(
			value.Field{Name: "x", Value: value.Uint(7)},
			value.Field{Name: "y", Value: value.Uint(9)},
		), tt.point},
		{"tuple", value.Unnamed(value.Uint(1), value.Bool(false)), tt.pair},
		{"variant with fields", value.VariantNamed("Remark",
			value.Field{Name: "remark", Value: value.Bytes([]byte("hi"))},
		), tt.call},
		{"fieldless variant", value.VariantUnnamed("Noop"), tt.call},
		{"bits lsb0 u8", value.BitSequence([]bool{true, false, true, true, false, true, false, false, true}), tt.bitsLsb8},
		{"bits msb0 u16", value.BitSequence([]bool{true, true, false}), tt.bitsMsb16},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			b, err := enc.Encode(tc.v, tc.id)
			if err != nil {
				t.Fatalf("Encode: %v", err)
			}
			got, err := dec.DecodeExact(b, tc.id)
			if err != nil {
				t.Fatalf("DecodeExact(%x): %v", b, err)
			}
			if !value.Equal(got, tc.v) {
				t.Errorf("round trip = %v, want %v", got, tc.v)
			}
		})
	}
}

func TestRoundTrip_CompactNewtype(t *testing.T) {
	tt := newTestTypes()
	enc := NewEncoder(tt.reg)
	dec := NewDecoder(tt.reg)

	// Compact<Balance> where Balance is a one-field composite over u128.
	// The bare number is accepted on encode; decode wraps it back in the
	// composite shape.
	b, err := enc.Encode(value.Uint(69), tt.compactBalance)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if !bytes.Equal(b, []byte{0x15, 0x01}) {
		t.Fatalf("Encode(69, Compact<Balance>) = %x, want 1501", b)
	}

	got, err := dec.DecodeExact(b, tt.compactBalance)
	if err != nil {
		t.Fatalf("DecodeExact: %v", err)
	}
	want := value.Unnamed(value.Uint(69))
	if !value.Equal(got, want) {
		t.Errorf("decode = %v, want %v", got, want)
	}
}

func TestDecode_VariantByIndexNotPosition(t *testing.T) {
	tt := newTestTypes()
	dec := NewDecoder(tt.reg)

	// Noop is declared third but its wire discriminant is 7.
	v, n, err := dec.Decode([]byte{0x07}, tt.call)
	if err != nil || n != 1 {
		t.Fatalf("Decode(07) = (%v, %d, %v)", v, n, err)
	}
	if v.Variant != "Noop" {
		t.Errorf("Decode(07) = variant %q, want Noop", v.Variant)
	}

	// Index 2 is not declared by anything.
	_, _, err = dec.Decode([]byte{0x02}, tt.call)
	var serr *scaleerrors.Error
	if !errors.As(err, &serr) || serr.Kind != scaleerrors.KindVariantIndexNotFound {
		t.Errorf("Decode(02) error = %v, want variant_index_not_found", err)
	}
}

func TestDecode_LeftoverBytes(t *testing.T) {
	tt := newTestTypes()
	dec := NewDecoder(tt.reg)

	_, err := dec.DecodeExact([]byte{0x01, 0x00, 0x00, 0x00, 0xff}, tt.u32)
	var serr *scaleerrors.Error
	if !errors.As(err, &serr) || serr.Kind != scaleerrors.KindLeftoverBytes {
		t.Errorf("error = %v, want leftover_bytes", err)
	}

	// Decode without the exactness requirement reports consumption
	// instead.
	v, n, err := dec.Decode([]byte{0x01, 0x00, 0x00, 0x00, 0xff}, tt.u32)
	if err != nil || n != 4 || !value.Equal(v, value.Uint(1)) {
		t.Errorf("Decode = (%v, %d, %v)", v, n, err)
	}
}

func TestDecode_ShortInput(t *testing.T) {
	tt := newTestTypes()
	dec := NewDecoder(tt.reg)

	tests := []struct {
		name string
		b    []byte
		id   registry.TypeId
	}{
		{"empty u32", nil, tt.u32},
		{"cut u32", []byte{1, 2}, tt.u32},
		{"cut string", []byte{0x28, 'h'}, tt.str},
		{"cut array", bytes.Repeat([]byte{0}, 16), tt.accountId},
		{"variant with no discriminant", nil, tt.call},
		{"cut variant fields", []byte{0x01, 0x08, 'h'}, tt.call},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, _, err := dec.Decode(tc.b, tc.id); err == nil {
				t.Error("Decode should fail on short input")
			}
		})
	}
}

func TestDecode_LyingLengthPrefix(t *testing.T) {
	tt := newTestTypes()
	dec := NewDecoder(tt.reg)

	// A compact count claiming ~1G entries inside a 4-byte blob must
	// fail on EOF without sizing any buffer by the claimed count.
	blob := []byte{0xfe, 0xff, 0xff, 0xff}

	_, _, err := dec.Decode(blob, tt.bitsLsb8)
	var serr *scaleerrors.Error
	if !errors.As(err, &serr) || serr.Kind != scaleerrors.KindUnexpectedEOF {
		t.Errorf("bit sequence error = %v, want unexpected_eof", err)
	}

	_, _, err = dec.Decode(blob, tt.vecU32)
	if !errors.As(err, &serr) || serr.Kind != scaleerrors.KindUnexpectedEOF {
		t.Errorf("sequence error = %v, want unexpected_eof", err)
	}
}

func TestDecode_UnresolvableType(t *testing.T) {
	tt := newTestTypes()
	dec := NewDecoder(tt.reg)

	_, _, err := dec.Decode([]byte{0}, registry.TypeId(9999))
	var serr *scaleerrors.Error
	if !errors.As(err, &serr) || serr.Kind != scaleerrors.KindTypeNotFound {
		t.Errorf("error = %v, want type_not_found", err)
	}
}

func TestBitSequence_Packing(t *testing.T) {
	tt := newTestTypes()
	enc := NewEncoder(tt.reg)

	// Lsb0/u8: bit i lands at position i within each byte.
	b, err := enc.Encode(value.BitSequence([]bool{true, false, true}), tt.bitsLsb8)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	// compact(3) = 0x0c, then 0b00000101.
	if !bytes.Equal(b, []byte{0x0c, 0x05}) {
		t.Errorf("Lsb0 packing = %x, want 0c05", b)
	}

	// Msb0/u16: first bit is the top bit of the unit, units are LE.
	b, err = enc.Encode(value.BitSequence([]bool{true}), tt.bitsMsb16)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if !bytes.Equal(b, []byte{0x04, 0x00, 0x80}) {
		t.Errorf("Msb0 packing = %x, want 040080", b)
	}
}

func TestEncode_ScalarAgainstNewtype(t *testing.T) {
	tt := newTestTypes()
	enc := NewEncoder(tt.reg)
	dec := NewDecoder(tt.reg)

	// Balance is { u128 }; a bare number is accepted for it.
	b, err := enc.Encode(value.Uint(7), tt.balance)
	if err != nil {
		t.Fatalf("Encode(7, Balance): %v", err)
	}
	got, err := dec.DecodeExact(b, tt.balance)
	if err != nil {
		t.Fatalf("DecodeExact: %v", err)
	}
	if !value.Equal(got, value.Unnamed(value.Uint(7))) {
		t.Errorf("decode = %v", got)
	}
}
