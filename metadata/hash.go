package metadata

import (
	"encoding/binary"

	"github.com/pierrec/xxHash/xxHash64"

	"github.com/wippyai/scale-codec/errors"
	"github.com/wippyai/scale-codec/registry"
)

// Hash is a 32-byte shape fingerprint. Two metadata snapshots that hash
// equal are interchangeable for encoding and decoding purposes, even if
// type ids, type names or declaration order differ.
type Hash [32]byte

// hashBytes is the digest used throughout: four 64-bit xxHash runs with
// seeds 0 through 3, concatenated little-endian.
func hashBytes(data []byte) Hash {
	var out Hash
	for seed := uint64(0); seed < 4; seed++ {
		binary.LittleEndian.PutUint64(out[seed*8:], xxHash64.Checksum(data, seed))
	}
	return out
}

func hashString(s string) Hash {
	return hashBytes([]byte(s))
}

// xorHash folds two hashes order-insensitively.
func xorHash(a, b Hash) Hash {
	var out Hash
	for i := range out {
		out[i] = a[i] ^ b[i]
	}
	return out
}

func concatHash(parts ...Hash) Hash {
	buf := make([]byte, 0, len(parts)*len(Hash{}))
	for _, p := range parts {
		buf = append(buf, p[:]...)
	}
	return hashBytes(buf)
}

// fillHash repeats one byte across a full hash. Used for kind tags and
// other single-byte facts that participate in concatenation.
func fillHash(b byte) Hash {
	var out Hash
	for i := range out {
		out[i] = b
	}
	return out
}

// Kind tag bytes. The values are part of the fingerprint format and
// never change.
const (
	tagComposite byte = iota
	tagVariant
	tagSequence
	tagArray
	tagTuple
	tagPrimitive
	tagCompact
	tagBitSequence
)

// recursiveSentinel stands in for a type whose hash is still being
// computed, so that recursive types terminate with a stable digest.
var recursiveSentinel = fillHash(123)

// cachedHash is the two-state memo entry: in progress, or finished with
// a concrete hash.
type cachedHash struct {
	done bool
	hash Hash
}

func (c cachedHash) value() Hash {
	if !c.done {
		return recursiveSentinel
	}
	return c.hash
}

// outerEnumHashes carries precomputed hashes for the runtime-wide call,
// event and error enums. Those enums may have been stripped to a pallet
// subset, so their hashes are pinned up front and substituted whenever
// the ids are encountered during traversal.
type outerEnumHashes struct {
	callId, eventId, errorId       registry.TypeId
	callHash, eventHash, errorHash Hash
	valid                          bool
}

func (o *outerEnumHashes) resolve(id registry.TypeId) (Hash, bool) {
	if !o.valid {
		return Hash{}, false
	}
	switch id {
	case o.errorId:
		return o.errorHash, true
	case o.eventId:
		return o.eventHash, true
	case o.callId:
		return o.callHash, true
	}
	return Hash{}, false
}

// combined folds the three enum hashes into the single interface token.
func (o *outerEnumHashes) combined() Hash {
	return concatHash(o.callHash, o.errorHash, o.eventHash)
}

func newOuterEnumHashes(m *Metadata, onlyVariants []string) *outerEnumHashes {
	enumHash := func(id registry.TypeId) Hash {
		ty, ok := m.Types.Resolve(id)
		if ok && ty.Kind == registry.KindVariant {
			return variantTypeHash(m.Types, ty, onlyVariants, map[registry.TypeId]cachedHash{}, &outerEnumHashes{})
		}
		return typeHash(m.Types, id, map[registry.TypeId]cachedHash{}, &outerEnumHashes{})
	}
	return &outerEnumHashes{
		callId:    m.OuterEnums.Call,
		eventId:   m.OuterEnums.Event,
		errorId:   m.OuterEnums.Error,
		callHash:  enumHash(m.OuterEnums.Call),
		eventHash: enumHash(m.OuterEnums.Event),
		errorHash: enumHash(m.OuterEnums.Error),
		valid:     true,
	}
}

func fieldHash(reg *registry.Registry, f *registry.Field, cache map[registry.TypeId]cachedHash, outer *outerEnumHashes) Hash {
	var nameHash Hash
	if f.Name != "" {
		nameHash = hashString(f.Name)
	}
	return concatHash(nameHash, typeHash(reg, f.Type, cache, outer))
}

func variantHash(reg *registry.Registry, v *registry.VariantDef, cache map[registry.TypeId]cachedHash, outer *outerEnumHashes) Hash {
	var fieldsHash Hash
	for i := range v.Fields {
		// Field order within a variant does not affect encode or decode
		// by name, so fold order-insensitively.
		fieldsHash = xorHash(fieldsHash, fieldHash(reg, &v.Fields[i], cache, outer))
	}
	// The wire discriminant is part of the shape: two enums that differ
	// only in variant indices encode incompatibly.
	return concatHash(hashString(v.Name), hashBytes([]byte{v.Index}), fieldsHash)
}

// variantTypeHash hashes a variant type definition. When onlyVariants is
// non-nil, variants outside the list are left out of the fingerprint
// entirely; this reflects enums stripped to a pallet subset.
func variantTypeHash(reg *registry.Registry, ty *registry.Type, onlyVariants []string, cache map[registry.TypeId]cachedHash, outer *outerEnumHashes) Hash {
	var variantsHash Hash
	for i := range ty.Variants {
		v := &ty.Variants[i]
		if onlyVariants != nil && !containsString(onlyVariants, v.Name) {
			continue
		}
		variantsHash = xorHash(variantsHash, variantHash(reg, v, cache, outer))
	}
	return concatHash(fillHash(tagVariant), variantsHash)
}

func containsString(list []string, s string) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}

// typeHash computes the shape fingerprint of one type. A dangling type
// reference panics: metadata always registers every id it mentions, so
// hitting one is a bug in the caller, not an input error.
func typeHash(reg *registry.Registry, id registry.TypeId, cache map[registry.TypeId]cachedHash, outer *outerEnumHashes) Hash {
	if h, ok := outer.resolve(id); ok {
		return h
	}
	if c, ok := cache[id]; ok {
		return c.value()
	}
	cache[id] = cachedHash{}

	ty, ok := reg.Resolve(id)
	if !ok {
		panic("metadata: hash of unregistered type id")
	}

	var h Hash
	switch ty.Kind {
	case registry.KindComposite:
		var fieldsHash Hash
		for i := range ty.Fields {
			fieldsHash = xorHash(fieldsHash, fieldHash(reg, &ty.Fields[i], cache, outer))
		}
		h = concatHash(fillHash(tagComposite), fieldsHash)
	case registry.KindVariant:
		h = variantTypeHash(reg, ty, nil, cache, outer)
	case registry.KindSequence:
		h = concatHash(fillHash(tagSequence), typeHash(reg, ty.Elem, cache, outer))
	case registry.KindArray:
		// The length is part of the shape.
		var tag Hash
		tag[0] = tagArray
		binary.BigEndian.PutUint32(tag[1:5], ty.Len)
		h = concatHash(tag, typeHash(reg, ty.Elem, cache, outer))
	case registry.KindTuple:
		h = hashBytes([]byte{tagTuple})
		for _, elem := range ty.Tuple {
			h = concatHash(h, typeHash(reg, elem, cache, outer))
		}
	case registry.KindPrimitive:
		h = hashBytes([]byte{tagPrimitive, byte(ty.Primitive)})
	case registry.KindCompact:
		h = concatHash(fillHash(tagCompact), typeHash(reg, ty.Elem, cache, outer))
	case registry.KindBitSequence:
		h = concatHash(fillHash(tagBitSequence), bitOrderTypeHash(), hashBytes([]byte{tagPrimitive, byte(ty.BitStore)}))
	}

	cache[id] = cachedHash{done: true, hash: h}
	return h
}

// bitOrderTypeHash is the fingerprint of a bit order marker. On the wire
// these are empty composites, and names never enter the fingerprint, so
// every order hashes identically.
func bitOrderTypeHash() Hash {
	return concatHash(fillHash(tagComposite), Hash{})
}

// TypeHash returns the shape fingerprint of a type. A non-nil
// onlyVariants list restricts hashing of a variant type to the named
// variants; it is ignored for other kinds.
func TypeHash(reg *registry.Registry, id registry.TypeId, onlyVariants []string) Hash {
	if onlyVariants != nil {
		if ty, ok := reg.Resolve(id); ok && ty.Kind == registry.KindVariant {
			return variantTypeHash(reg, ty, onlyVariants, map[registry.TypeId]cachedHash{}, &outerEnumHashes{})
		}
	}
	return typeHash(reg, id, map[registry.TypeId]cachedHash{}, &outerEnumHashes{})
}

func extrinsicHash(m *Metadata, outer *outerEnumHashes) Hash {
	reg := m.Types
	addressHash := typeHash(reg, m.Extrinsic.Address, map[registry.TypeId]cachedHash{}, outer)
	// The call type is covered by the outer enums, not repeated here.
	signatureHash := typeHash(reg, m.Extrinsic.Signature, map[registry.TypeId]cachedHash{}, outer)
	extraHash := typeHash(reg, m.Extrinsic.Extra, map[registry.TypeId]cachedHash{}, outer)

	h := concatHash(addressHash, signatureHash, extraHash, fillHash(m.Extrinsic.Version))
	for _, ext := range m.Extrinsic.SignedExtensions {
		h = concatHash(
			h,
			hashString(ext.Identifier),
			typeHash(reg, ext.Type, map[registry.TypeId]cachedHash{}, outer),
			typeHash(reg, ext.Additional, map[registry.TypeId]cachedHash{}, outer),
		)
	}
	return h
}

func storageEntryHash(reg *registry.Registry, e *StorageEntry, outer *outerEnumHashes) Hash {
	h := concatHash(hashString(e.Name), fillHash(byte(e.Modifier)), hashBytes(e.Default))

	if !e.IsMap() {
		return concatHash(h, typeHash(reg, e.Value, map[registry.TypeId]cachedHash{}, outer))
	}
	for _, hasher := range e.Hashers {
		h = concatHash(h, fillHash(byte(hasher)))
	}
	return concatHash(
		h,
		typeHash(reg, *e.Key, map[registry.TypeId]cachedHash{}, outer),
		typeHash(reg, e.Value, map[registry.TypeId]cachedHash{}, outer),
	)
}

func palletHash(m *Metadata, p *Pallet, outer *outerEnumHashes) Hash {
	reg := m.Types
	optional := func(id *registry.TypeId) Hash {
		if id == nil {
			return Hash{}
		}
		return typeHash(reg, *id, map[registry.TypeId]cachedHash{}, outer)
	}

	callHash := optional(p.Calls)
	eventHash := optional(p.Events)
	errorHash := optional(p.Errors)

	var constantsHash Hash
	for i := range p.Constants {
		c := &p.Constants[i]
		constantsHash = xorHash(constantsHash, concatHash(
			hashString(c.Name),
			typeHash(reg, c.Type, map[registry.TypeId]cachedHash{}, outer),
		))
	}

	var storageHash Hash
	if p.Storage != nil {
		var entriesHash Hash
		for i := range p.Storage.Entries {
			entriesHash = xorHash(entriesHash, storageEntryHash(reg, &p.Storage.Entries[i], outer))
		}
		storageHash = concatHash(hashString(p.Storage.Prefix), entriesHash)
	}

	return concatHash(callHash, eventHash, errorHash, constantsHash, storageHash)
}

func runtimeMethodHash(reg *registry.Registry, traitName string, method *RuntimeAPIMethod, outer *outerEnumHashes) Hash {
	h := concatHash(hashString(traitName), hashString(method.Name))
	for _, in := range method.Inputs {
		h = concatHash(h, hashString(in.Name), typeHash(reg, in.Type, map[registry.TypeId]cachedHash{}, outer))
	}
	return concatHash(h, typeHash(reg, method.Output, map[registry.TypeId]cachedHash{}, outer))
}

func runtimeAPIHash(reg *registry.Registry, api *RuntimeAPI, outer *outerEnumHashes) Hash {
	var methodsHash Hash
	for i := range api.Methods {
		methodsHash = xorHash(methodsHash, runtimeMethodHash(reg, api.Name, &api.Methods[i], outer))
	}
	return concatHash(hashString(api.Name), methodsHash)
}

func customHash(m *Metadata, outer *outerEnumHashes) Hash {
	var h Hash
	for i := range m.Custom {
		c := &m.Custom[i]
		nameHash := hashString(c.Name)
		var one Hash
		if _, ok := m.Types.Resolve(c.Type); !ok {
			one = hashBytes(nameHash[:])
		} else {
			one = concatHash(nameHash, typeHash(m.Types, c.Type, map[registry.TypeId]cachedHash{}, outer))
		}
		h = xorHash(h, one)
	}
	return h
}

// StorageHash fingerprints one storage entry of a pallet.
func StorageHash(m *Metadata, pallet, entry string) (Hash, error) {
	e, err := m.StorageEntry(pallet, entry)
	if err != nil {
		return Hash{}, err
	}
	return storageEntryHash(m.Types, e, &outerEnumHashes{}), nil
}

// ConstantHash fingerprints the type of one pallet constant.
func ConstantHash(m *Metadata, pallet, constant string) (Hash, error) {
	p, err := m.PalletByName(pallet)
	if err != nil {
		return Hash{}, err
	}
	c, ok := p.Constant(constant)
	if !ok {
		return Hash{}, errors.NotFound(errors.PhaseLookup, "constant", pallet+"."+constant)
	}
	return typeHash(m.Types, c.Type, map[registry.TypeId]cachedHash{}, &outerEnumHashes{}), nil
}

// CallHash fingerprints the argument shape of one call.
func CallHash(m *Metadata, pallet, call string) (Hash, error) {
	v, err := m.CallVariant(pallet, call)
	if err != nil {
		return Hash{}, err
	}
	return variantHash(m.Types, v, map[registry.TypeId]cachedHash{}, &outerEnumHashes{}), nil
}

// RuntimeAPIMethodHash fingerprints one runtime API method, including
// its trait name.
func RuntimeAPIMethodHash(m *Metadata, api, method string) (Hash, error) {
	a, err := m.API(api)
	if err != nil {
		return Hash{}, err
	}
	mm, ok := a.Method(method)
	if !ok {
		return Hash{}, errors.NotFound(errors.PhaseLookup, "runtime api method", api+"."+method)
	}
	return runtimeMethodHash(m.Types, a.Name, mm, &outerEnumHashes{}), nil
}

// Hasher fingerprints a whole metadata snapshot, optionally restricted
// to a subset of pallets or runtime APIs. The restricted hash of a full
// snapshot equals the full hash of a snapshot retained to that subset.
type Hasher struct {
	m             *Metadata
	onlyPallets   []string
	onlyAPIs      []string
	includeCustom bool
}

// NewHasher starts a full-metadata hash over m.
func NewHasher(m *Metadata) *Hasher {
	return &Hasher{m: m, includeCustom: true}
}

// OnlyPallets restricts the hash to the named pallets.
func (h *Hasher) OnlyPallets(names []string) *Hasher {
	h.onlyPallets = names
	return h
}

// OnlyAPIs restricts the hash to the named runtime APIs.
func (h *Hasher) OnlyAPIs(names []string) *Hasher {
	h.onlyAPIs = names
	return h
}

// IgnoreCustom leaves custom values out of the hash.
func (h *Hasher) IgnoreCustom() *Hasher {
	h.includeCustom = false
	return h
}

// Hash computes the fingerprint.
func (h *Hasher) Hash() Hash {
	m := h.m
	outer := newOuterEnumHashes(m, h.onlyPallets)

	var palletsHash Hash
	for i := range m.Pallets {
		p := &m.Pallets[i]
		if h.onlyPallets != nil && !containsString(h.onlyPallets, p.Name) {
			continue
		}
		palletsHash = xorHash(palletsHash, palletHash(m, p, outer))
	}

	var apisHash Hash
	for i := range m.APIs {
		api := &m.APIs[i]
		if h.onlyAPIs != nil && !containsString(h.onlyAPIs, api.Name) {
			continue
		}
		apisHash = xorHash(apisHash, runtimeAPIHash(m.Types, api, outer))
	}

	extHash := extrinsicHash(m, outer)
	runtimeHash := typeHash(m.Types, m.Runtime, map[registry.TypeId]cachedHash{}, outer)

	var custom Hash
	if h.includeCustom {
		custom = customHash(m, outer)
	}

	return concatHash(palletsHash, apisHash, extHash, runtimeHash, outer.combined(), custom)
}

// ValidateFull compares a full-metadata fingerprint against one baked
// into generated code.
func ValidateFull(m *Metadata, expected Hash) error {
	if NewHasher(m).Hash() != expected {
		return errors.IncompatibleCodegen("metadata", "runtime")
	}
	return nil
}

// ValidateCall checks a call's fingerprint against a generated one.
func ValidateCall(m *Metadata, pallet, call string, expected Hash) error {
	h, err := CallHash(m, pallet, call)
	if err != nil {
		return err
	}
	if h != expected {
		return errors.IncompatibleCodegen("call", pallet+"."+call)
	}
	return nil
}

// ValidateStorage checks a storage entry's fingerprint against a
// generated one.
func ValidateStorage(m *Metadata, pallet, entry string, expected Hash) error {
	h, err := StorageHash(m, pallet, entry)
	if err != nil {
		return err
	}
	if h != expected {
		return errors.IncompatibleCodegen("storage entry", pallet+"."+entry)
	}
	return nil
}

// ValidateConstant checks a constant's fingerprint against a generated
// one.
func ValidateConstant(m *Metadata, pallet, constant string, expected Hash) error {
	h, err := ConstantHash(m, pallet, constant)
	if err != nil {
		return err
	}
	if h != expected {
		return errors.IncompatibleCodegen("constant", pallet+"."+constant)
	}
	return nil
}
