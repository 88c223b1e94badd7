package metadata

import (
	stderrors "errors"
	"testing"

	"github.com/wippyai/scale-codec/errors"
	"github.com/wippyai/scale-codec/registry"
	"github.com/wippyai/scale-codec/scale"
)

// blob builds metadata wire bytes piece by piece.
type blob struct {
	b []byte
}

func (w *blob) u32(v uint32)       { w.b = scale.AppendUint(w.b, uint64(v), 32) }
func (w *blob) byte(v byte)        { w.b = append(w.b, v) }
func (w *blob) compact(n uint64)   { w.b = scale.AppendCompactUint(w.b, n) }
func (w *blob) str(s string)       { w.b = scale.AppendString(w.b, s) }
func (w *blob) bytes(v []byte)     { w.b = scale.AppendBytes(w.b, v) }
func (w *blob) bool(v bool)        { w.b = scale.AppendBool(w.b, v) }
func (w *blob) strings(ss ...string) {
	w.compact(uint64(len(ss)))
	for _, s := range ss {
		w.str(s)
	}
}

// field emits one unnamed or named field with no type name and no docs.
func (w *blob) field(name string, ty uint64) {
	if name == "" {
		w.bool(false)
	} else {
		w.bool(true)
		w.str(name)
	}
	w.compact(ty)
	w.bool(false) // no type name
	w.compact(0)  // docs
}

// typeHeader emits the id, path and type parameters of one registry entry.
func (w *blob) typeHeader(id uint64, path []string, params ...func(*blob)) {
	w.compact(id)
	w.strings(path...)
	w.compact(uint64(len(params)))
	for _, p := range params {
		p(w)
	}
}

func param(name string, ty uint64) func(*blob) {
	return func(w *blob) {
		w.str(name)
		w.byte(1) // Some
		w.compact(ty)
	}
}

// testV14Blob encodes a small v14 metadata: a u32, outer call and event
// enums, the extrinsic wrapper type and a pallet error enum, plus one
// pallet with storage, a call, a constant and an error.
func testV14Blob() []byte {
	w := &blob{}
	w.u32(magic)
	w.byte(14)

	w.compact(5) // type count

	// 0: u32
	w.typeHeader(0, nil)
	w.byte(5) // primitive
	w.byte(byte(registry.U32))
	w.compact(0) // docs

	// 1: RuntimeCall enum with one pallet arm
	w.typeHeader(1, []string{"test_runtime", "RuntimeCall"})
	w.byte(1)    // variant
	w.compact(1) // one variant
	w.str("System")
	w.compact(1) // one field
	w.field("", 0)
	w.byte(0)    // index
	w.compact(0) // variant docs
	w.compact(0) // type docs

	// 2: RuntimeEvent enum, no variants
	w.typeHeader(2, []string{"test_runtime", "RuntimeEvent"})
	w.byte(1)
	w.compact(0)
	w.compact(0)

	// 3: extrinsic wrapper with the four part parameters
	w.typeHeader(3, []string{"test_runtime", "UncheckedExtrinsic"},
		param("Address", 0),
		param("Call", 1),
		param("Signature", 0),
		param("Extra", 0),
	)
	w.byte(0)    // composite
	w.compact(0) // no fields
	w.compact(0) // docs

	// 4: pallet error enum
	w.typeHeader(4, []string{"pallet_system", "Error"})
	w.byte(1)
	w.compact(1)
	w.str("TooBig")
	w.compact(0) // no fields
	w.byte(0)
	w.compact(0)
	w.compact(0)

	// pallets
	w.compact(1)
	w.str("System")
	w.bool(true) // storage
	w.str("System")
	w.compact(1) // one entry
	w.str("Account")
	w.byte(1) // default modifier
	w.byte(1) // map
	w.compact(1)
	w.byte(byte(HasherBlake2_128Concat))
	w.compact(0)         // key u32
	w.compact(0)         // value u32
	w.bytes([]byte{0})   // default
	w.compact(0)         // docs
	w.byte(1)            // calls: Some
	w.compact(1)
	w.byte(0) // events: None
	w.compact(1)
	w.str("Version")
	w.compact(0)
	w.bytes([]byte{1, 0, 0, 0})
	w.compact(0) // docs
	w.byte(1)    // errors: Some
	w.compact(4)
	w.byte(0) // index

	// extrinsic
	w.compact(3) // ty
	w.byte(4)    // version
	w.compact(1) // one signed extension
	w.str("CheckNonce")
	w.compact(0)
	w.compact(0)

	// runtime type
	w.compact(0)

	return w.b
}

func TestDecodeV14(t *testing.T) {
	m, err := Decode(testV14Blob())
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	if m.Version != 14 {
		t.Errorf("Version = %d, want 14", m.Version)
	}
	// Five declared types plus the synthesized outer error enum.
	if m.Types.Len() != 6 {
		t.Fatalf("Types.Len() = %d, want 6", m.Types.Len())
	}

	p, err := m.PalletByName("System")
	if err != nil {
		t.Fatalf("PalletByName: %v", err)
	}
	if p.Index != 0 || p.Calls == nil || *p.Calls != 1 || p.Events != nil {
		t.Errorf("pallet = %+v", p)
	}

	e, err := m.StorageEntry("System", "Account")
	if err != nil {
		t.Fatalf("StorageEntry: %v", err)
	}
	if !e.IsMap() || len(e.Hashers) != 1 || e.Hashers[0] != HasherBlake2_128Concat || *e.Key != 0 || e.Value != 0 {
		t.Errorf("entry = %+v", e)
	}
	if e.Modifier != ModifierDefault || len(e.Default) != 1 {
		t.Errorf("entry modifier/default = %+v", e)
	}

	c, ok := p.Constant("Version")
	if !ok || c.Type != 0 || len(c.Value) != 4 {
		t.Errorf("constant = %+v ok=%v", c, ok)
	}

	// The extrinsic part types come from the wrapper's parameters.
	ext := m.Extrinsic
	if ext.Version != 4 || ext.Address != 0 || ext.Call != 1 || ext.Signature != 0 || ext.Extra != 0 {
		t.Errorf("extrinsic = %+v", ext)
	}
	if len(ext.SignedExtensions) != 1 || ext.SignedExtensions[0].Identifier != "CheckNonce" {
		t.Errorf("signed extensions = %+v", ext.SignedExtensions)
	}

	// Outer enums: call and event located by name, error synthesized
	// from the pallet error types.
	if m.OuterEnums.Call != 1 || m.OuterEnums.Event != 2 {
		t.Errorf("outer enums = %+v", m.OuterEnums)
	}
	errTy, ok := m.Types.Resolve(m.OuterEnums.Error)
	if !ok || errTy.Kind != registry.KindVariant {
		t.Fatalf("outer error enum not a variant: %+v", errTy)
	}
	v, ok := errTy.VariantByName("System")
	if !ok || v.Index != 0 || len(v.Fields) != 1 || v.Fields[0].Type != 4 {
		t.Errorf("outer error variant = %+v ok=%v", v, ok)
	}
	if got := errTy.Path[len(errTy.Path)-1]; got != "RuntimeError" {
		t.Errorf("outer error ident = %q", got)
	}

	// A decoded snapshot hashes without panicking.
	_ = NewHasher(m).Hash()

	// And it can be called through the lookup surface.
	if _, err := m.CallVariant("System", "no_such"); err == nil {
		t.Error("unknown call should be an error")
	}
}

func testV15Blob() []byte {
	w := &blob{}
	w.u32(magic)
	w.byte(15)

	w.compact(3)

	// 0: u8
	w.typeHeader(0, nil)
	w.byte(5)
	w.byte(byte(registry.U8))
	w.compact(0)

	// 1: Vec<u8>
	w.typeHeader(1, nil)
	w.byte(2) // sequence
	w.compact(0)
	w.compact(0)

	// 2: BitVec<u8, Lsb0> order marker plus the bit sequence itself is
	// skipped here; use an empty variant standing in for the outer enums.
	w.typeHeader(2, []string{"test_runtime", "RuntimeCall"})
	w.byte(1)
	w.compact(0)
	w.compact(0)

	// pallets (with docs in v15)
	w.compact(1)
	w.str("Filler")
	w.bool(false) // no storage
	w.byte(0)     // no calls
	w.byte(0)     // no events
	w.compact(0)  // no constants
	w.byte(0)     // no errors
	w.byte(42)    // index
	w.compact(0)  // docs

	// extrinsic: version then the four part types and extensions
	w.byte(4)
	w.compact(0) // address
	w.compact(2) // call
	w.compact(0) // signature
	w.compact(0) // extra
	w.compact(0) // no signed extensions

	// runtime type
	w.compact(0)

	// runtime APIs
	w.compact(1)
	w.str("Core")
	w.compact(1) // one method
	w.str("version")
	w.compact(1) // one input
	w.str("flags")
	w.compact(0)
	w.compact(1) // output type
	w.compact(0) // method docs
	w.compact(0) // api docs

	// outer enums
	w.compact(2)
	w.compact(2)
	w.compact(2)

	// custom values
	w.compact(1)
	w.str("genesis")
	w.compact(1)
	w.bytes([]byte{9, 9})

	return w.b
}

func TestDecodeV15(t *testing.T) {
	m, err := Decode(testV15Blob())
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	if m.Version != 15 || m.Types.Len() != 3 {
		t.Fatalf("version/types = %d/%d", m.Version, m.Types.Len())
	}
	p, err := m.PalletByIndex(42)
	if err != nil || p.Name != "Filler" {
		t.Errorf("PalletByIndex(42) = %v, %v", p, err)
	}
	if m.Extrinsic.Call != 2 || m.Extrinsic.Version != 4 {
		t.Errorf("extrinsic = %+v", m.Extrinsic)
	}

	api, err := m.API("Core")
	if err != nil {
		t.Fatalf("API: %v", err)
	}
	method, ok := api.Method("version")
	if !ok || len(method.Inputs) != 1 || method.Inputs[0].Name != "flags" || method.Output != 1 {
		t.Errorf("method = %+v ok=%v", method, ok)
	}

	if m.OuterEnums.Call != 2 || m.OuterEnums.Event != 2 || m.OuterEnums.Error != 2 {
		t.Errorf("outer enums = %+v", m.OuterEnums)
	}
	if len(m.Custom) != 1 || m.Custom[0].Name != "genesis" || len(m.Custom[0].Value) != 2 {
		t.Errorf("custom = %+v", m.Custom)
	}

	_ = NewHasher(m).Hash()
}

func TestDecode_BitSequenceTypes(t *testing.T) {
	w := &blob{}
	w.u32(magic)
	w.byte(15)

	w.compact(4)

	// 0: u8 store
	w.typeHeader(0, nil)
	w.byte(5)
	w.byte(byte(registry.U8))
	w.compact(0)

	// 1: Lsb0 order marker: an empty composite with the telling path
	w.typeHeader(1, []string{"bitvec", "order", "Lsb0"})
	w.byte(0)
	w.compact(0)
	w.compact(0)

	// 2: the bit sequence: store type then order type
	w.typeHeader(2, nil)
	w.byte(7)
	w.compact(0)
	w.compact(1)
	w.compact(0)

	// 3: outer enum stand-in
	w.typeHeader(3, nil)
	w.byte(1)
	w.compact(0)
	w.compact(0)

	w.compact(0) // no pallets

	w.byte(4)
	w.compact(0)
	w.compact(3)
	w.compact(0)
	w.compact(0)
	w.compact(0)

	w.compact(0) // runtime ty
	w.compact(0) // apis
	w.compact(3)
	w.compact(3)
	w.compact(3)
	w.compact(0) // custom

	m, err := Decode(w.b)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	ty, ok := m.Types.Resolve(2)
	if !ok || ty.Kind != registry.KindBitSequence {
		t.Fatalf("type 2 = %+v", ty)
	}
	if ty.BitStore != registry.U8 || ty.BitOrder != registry.Lsb0 {
		t.Errorf("bit sequence = store %v order %v", ty.BitStore, ty.BitOrder)
	}
}

func TestDecode_Errors(t *testing.T) {
	good := testV14Blob()

	tests := []struct {
		name string
		b    []byte
		kind errors.Kind
	}{
		{"empty", nil, errors.KindUnexpectedEOF},
		{"bad magic", []byte{1, 2, 3, 4, 14}, errors.KindInvalidData},
		{"unsupported version", append(scale.AppendUint(nil, magic, 32), 13), errors.KindUnsupported},
		{"truncated", good[:len(good)-4], errors.KindUnexpectedEOF},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Decode(tc.b)
			var serr *errors.Error
			if !stderrors.As(err, &serr) || serr.Kind != tc.kind {
				t.Errorf("Decode error = %v, want kind %q", err, tc.kind)
			}
		})
	}
}
