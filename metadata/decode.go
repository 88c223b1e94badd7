package metadata

import (
	"strconv"

	"github.com/wippyai/scale-codec/errors"
	"github.com/wippyai/scale-codec/registry"
	"github.com/wippyai/scale-codec/scale"
)

// magic is the reserved u32 prefix of encoded runtime metadata, "meta"
// when laid out little-endian.
const magic = 0x6174656d

// Decode parses a raw metadata blob, as returned by state_getMetadata,
// into a Metadata snapshot. Versions 14 and 15 are supported; anything
// else is an unsupported error.
func Decode(b []byte) (*Metadata, error) {
	d := &reader{b: b}

	m, err := d.u32()
	if err != nil {
		return nil, err
	}
	if m != magic {
		return nil, errors.InvalidData(errors.PhaseParse, nil, "bad metadata magic")
	}
	version, err := d.byte()
	if err != nil {
		return nil, err
	}

	switch version {
	case 14:
		return decodeV14(d)
	case 15:
		return decodeV15(d)
	default:
		return nil, errors.Unsupported(errors.PhaseParse, "metadata version "+strconv.Itoa(int(version)))
	}
}

// reader is a consuming cursor over the metadata bytes.
type reader struct {
	b   []byte
	off int
}

func (r *reader) take(n int) ([]byte, error) {
	if len(r.b)-r.off < n {
		return nil, errors.UnexpectedEOF(errors.PhaseParse, nil, n, len(r.b)-r.off)
	}
	out := r.b[r.off : r.off+n]
	r.off += n
	return out, nil
}

func (r *reader) byte() (byte, error) {
	b, err := r.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *reader) u32() (uint32, error) {
	v, n, err := scale.DecodeUint(r.b[r.off:], 32)
	if err != nil {
		return 0, err
	}
	r.off += n
	return uint32(v), nil
}

func (r *reader) compact() (uint64, error) {
	v, n, err := scale.DecodeCompactUint(r.b[r.off:])
	if err != nil {
		return 0, err
	}
	r.off += n
	return v, nil
}

func (r *reader) length() (int, error) {
	n, err := r.compact()
	if err != nil {
		return 0, err
	}
	// A length that cannot fit in the remaining input is malformed.
	if n > uint64(len(r.b)-r.off) {
		return 0, errors.InvalidData(errors.PhaseParse, nil, "length prefix exceeds input")
	}
	return int(n), nil
}

func (r *reader) string() (string, error) {
	s, n, err := scale.DecodeString(r.b[r.off:])
	if err != nil {
		return "", err
	}
	r.off += n
	return s, nil
}

func (r *reader) strings() ([]string, error) {
	n, err := r.length()
	if err != nil {
		return nil, err
	}
	out := make([]string, n)
	for i := range out {
		if out[i], err = r.string(); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (r *reader) bytes() ([]byte, error) {
	n, err := r.length()
	if err != nil {
		return nil, err
	}
	b, err := r.take(n)
	if err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, b)
	return out, nil
}

func (r *reader) bool() (bool, error) {
	v, n, err := scale.DecodeBool(r.b[r.off:])
	if err != nil {
		return false, err
	}
	r.off += n
	return v, nil
}

// typeId reads a compact-encoded type reference.
func (r *reader) typeId() (registry.TypeId, error) {
	n, err := r.compact()
	if err != nil {
		return 0, err
	}
	if n > 0xffffffff {
		return 0, errors.InvalidData(errors.PhaseParse, nil, "type id out of range")
	}
	return registry.TypeId(n), nil
}

func (r *reader) optionTypeId() (*registry.TypeId, error) {
	tag, err := r.byte()
	if err != nil {
		return nil, err
	}
	switch tag {
	case 0:
		return nil, nil
	case 1:
		id, err := r.typeId()
		if err != nil {
			return nil, err
		}
		return &id, nil
	default:
		return nil, errors.InvalidData(errors.PhaseParse, nil, "bad option tag")
	}
}

// rawType is a portable registry entry before flattening: the descriptor
// plus the generic parameters, which the v14 conversion needs to find the
// extrinsic part types.
type rawType struct {
	id     registry.TypeId
	path   []string
	params []rawParam
	ty     registry.Type
}

type rawParam struct {
	name string
	ty   *registry.TypeId
}

func (t *rawType) ident() string {
	if len(t.path) == 0 {
		return ""
	}
	return t.path[len(t.path)-1]
}

// decodeTypes parses the portable type registry into raw entries.
func decodeTypes(r *reader) ([]rawType, error) {
	n, err := r.length()
	if err != nil {
		return nil, err
	}
	types := make([]rawType, 0, n)
	for i := 0; i < n; i++ {
		id, err := r.typeId()
		if err != nil {
			return nil, err
		}
		rt, err := decodeType(r)
		if err != nil {
			return nil, err
		}
		rt.id = id
		types = append(types, rt)
	}
	return types, nil
}

func decodeType(r *reader) (rawType, error) {
	var rt rawType
	var err error

	if rt.path, err = r.strings(); err != nil {
		return rt, err
	}
	rt.ty.Path = rt.path

	nparams, err := r.length()
	if err != nil {
		return rt, err
	}
	for i := 0; i < nparams; i++ {
		var p rawParam
		if p.name, err = r.string(); err != nil {
			return rt, err
		}
		if p.ty, err = r.optionTypeId(); err != nil {
			return rt, err
		}
		rt.params = append(rt.params, p)
	}

	if err := decodeTypeDef(r, &rt.ty); err != nil {
		return rt, err
	}

	// Docs, unused beyond this point.
	if _, err := r.strings(); err != nil {
		return rt, err
	}
	return rt, nil
}

func decodeTypeDef(r *reader, ty *registry.Type) error {
	tag, err := r.byte()
	if err != nil {
		return err
	}
	switch tag {
	case 0: // composite
		ty.Kind = registry.KindComposite
		ty.Fields, err = decodeFields(r)
		return err
	case 1: // variant
		ty.Kind = registry.KindVariant
		n, err := r.length()
		if err != nil {
			return err
		}
		ty.Variants = make([]registry.VariantDef, 0, n)
		for i := 0; i < n; i++ {
			var v registry.VariantDef
			if v.Name, err = r.string(); err != nil {
				return err
			}
			if v.Fields, err = decodeFields(r); err != nil {
				return err
			}
			if v.Index, err = r.byte(); err != nil {
				return err
			}
			if _, err = r.strings(); err != nil { // docs
				return err
			}
			ty.Variants = append(ty.Variants, v)
		}
		return nil
	case 2: // sequence
		ty.Kind = registry.KindSequence
		ty.Elem, err = r.typeId()
		return err
	case 3: // array
		ty.Kind = registry.KindArray
		if ty.Len, err = r.u32(); err != nil {
			return err
		}
		ty.Elem, err = r.typeId()
		return err
	case 4: // tuple
		ty.Kind = registry.KindTuple
		n, err := r.length()
		if err != nil {
			return err
		}
		ty.Tuple = make([]registry.TypeId, n)
		for i := range ty.Tuple {
			if ty.Tuple[i], err = r.typeId(); err != nil {
				return err
			}
		}
		return nil
	case 5: // primitive
		ty.Kind = registry.KindPrimitive
		prim, err := r.byte()
		if err != nil {
			return err
		}
		if prim > byte(registry.I256) {
			return errors.InvalidData(errors.PhaseParse, nil, "bad primitive kind")
		}
		ty.Primitive = registry.PrimitiveKind(prim)
		return nil
	case 6: // compact
		ty.Kind = registry.KindCompact
		ty.Elem, err = r.typeId()
		return err
	case 7: // bit sequence
		ty.Kind = registry.KindBitSequence
		// Store and order arrive as type references; they are resolved
		// into the flattened BitStore/BitOrder fields once the whole
		// registry is read.
		if ty.Elem, err = r.typeId(); err != nil { // store, stashed in Elem
			return err
		}
		id, err := r.typeId() // order, stashed in Len
		if err != nil {
			return err
		}
		ty.Len = uint32(id)
		return nil
	default:
		return errors.InvalidData(errors.PhaseParse, nil, "bad type definition tag")
	}
}

func decodeFields(r *reader) ([]registry.Field, error) {
	n, err := r.length()
	if err != nil {
		return nil, err
	}
	fields := make([]registry.Field, 0, n)
	for i := 0; i < n; i++ {
		var f registry.Field
		named, err := r.bool()
		if err != nil {
			return nil, err
		}
		if named {
			if f.Name, err = r.string(); err != nil {
				return nil, err
			}
		}
		if f.Type, err = r.typeId(); err != nil {
			return nil, err
		}
		// Optional type name, display only.
		hasTypeName, err := r.bool()
		if err != nil {
			return nil, err
		}
		if hasTypeName {
			if _, err = r.string(); err != nil {
				return nil, err
			}
		}
		if _, err = r.strings(); err != nil { // docs
			return nil, err
		}
		fields = append(fields, f)
	}
	return fields, nil
}

// buildRegistry flattens raw types into a dense registry, resolving bit
// sequence store/order references into their enum forms.
func buildRegistry(raw []rawType) (*registry.Registry, error) {
	byId := make(map[registry.TypeId]*rawType, len(raw))
	for i := range raw {
		byId[raw[i].id] = &raw[i]
	}

	reg := registry.New()
	for i := range raw {
		ty := raw[i].ty
		if ty.Kind == registry.KindBitSequence {
			store, ok := byId[ty.Elem]
			if !ok || store.ty.Kind != registry.KindPrimitive {
				return nil, errors.InvalidData(errors.PhaseParse, nil, "bit sequence store is not a primitive")
			}
			switch store.ty.Primitive {
			case registry.U8, registry.U16, registry.U32, registry.U64:
				ty.BitStore = store.ty.Primitive
			default:
				return nil, errors.InvalidData(errors.PhaseParse, nil, "bit sequence store is not an unsigned word")
			}
			order, ok := byId[registry.TypeId(ty.Len)]
			if !ok {
				return nil, errors.InvalidData(errors.PhaseParse, nil, "bit sequence order type missing")
			}
			switch order.ident() {
			case "Lsb0":
				ty.BitOrder = registry.Lsb0
			case "Msb0":
				ty.BitOrder = registry.Msb0
			default:
				return nil, errors.InvalidData(errors.PhaseParse, nil, "bit sequence order is not Lsb0 or Msb0")
			}
			ty.Elem, ty.Len = 0, 0
		}
		reg.Set(raw[i].id, ty)
	}
	return reg, nil
}

func decodePallet(r *reader, withDocs bool) (Pallet, error) {
	var p Pallet
	var err error

	if p.Name, err = r.string(); err != nil {
		return p, err
	}

	hasStorage, err := r.bool()
	if err != nil {
		return p, err
	}
	if hasStorage {
		s := &Storage{}
		if s.Prefix, err = r.string(); err != nil {
			return p, err
		}
		n, err := r.length()
		if err != nil {
			return p, err
		}
		s.Entries = make([]StorageEntry, 0, n)
		for i := 0; i < n; i++ {
			e, err := decodeStorageEntry(r)
			if err != nil {
				return p, err
			}
			s.Entries = append(s.Entries, e)
		}
		p.Storage = s
	}

	if p.Calls, err = r.optionTypeId(); err != nil {
		return p, err
	}
	if p.Events, err = r.optionTypeId(); err != nil {
		return p, err
	}

	n, err := r.length()
	if err != nil {
		return p, err
	}
	p.Constants = make([]Constant, 0, n)
	for i := 0; i < n; i++ {
		var c Constant
		if c.Name, err = r.string(); err != nil {
			return p, err
		}
		if c.Type, err = r.typeId(); err != nil {
			return p, err
		}
		if c.Value, err = r.bytes(); err != nil {
			return p, err
		}
		if c.Docs, err = r.strings(); err != nil {
			return p, err
		}
		p.Constants = append(p.Constants, c)
	}

	if p.Errors, err = r.optionTypeId(); err != nil {
		return p, err
	}
	if p.Index, err = r.byte(); err != nil {
		return p, err
	}
	if withDocs {
		if p.Docs, err = r.strings(); err != nil {
			return p, err
		}
	}
	return p, nil
}

func decodeStorageEntry(r *reader) (StorageEntry, error) {
	var e StorageEntry
	var err error

	if e.Name, err = r.string(); err != nil {
		return e, err
	}
	mod, err := r.byte()
	if err != nil {
		return e, err
	}
	if mod > byte(ModifierDefault) {
		return e, errors.InvalidData(errors.PhaseParse, nil, "bad storage modifier")
	}
	e.Modifier = StorageModifier(mod)

	kind, err := r.byte()
	if err != nil {
		return e, err
	}
	switch kind {
	case 0: // plain
		if e.Value, err = r.typeId(); err != nil {
			return e, err
		}
	case 1: // map
		n, err := r.length()
		if err != nil {
			return e, err
		}
		e.Hashers = make([]StorageHasher, n)
		for i := range e.Hashers {
			h, err := r.byte()
			if err != nil {
				return e, err
			}
			if h > byte(HasherIdentity) {
				return e, errors.InvalidData(errors.PhaseParse, nil, "bad storage hasher")
			}
			e.Hashers[i] = StorageHasher(h)
		}
		key, err := r.typeId()
		if err != nil {
			return e, err
		}
		e.Key = &key
		if e.Value, err = r.typeId(); err != nil {
			return e, err
		}
	default:
		return e, errors.InvalidData(errors.PhaseParse, nil, "bad storage entry type tag")
	}

	if e.Default, err = r.bytes(); err != nil {
		return e, err
	}
	if e.Docs, err = r.strings(); err != nil {
		return e, err
	}
	return e, nil
}

func decodeSignedExtensions(r *reader) ([]SignedExtension, error) {
	n, err := r.length()
	if err != nil {
		return nil, err
	}
	exts := make([]SignedExtension, 0, n)
	for i := 0; i < n; i++ {
		var ext SignedExtension
		if ext.Identifier, err = r.string(); err != nil {
			return nil, err
		}
		if ext.Type, err = r.typeId(); err != nil {
			return nil, err
		}
		if ext.Additional, err = r.typeId(); err != nil {
			return nil, err
		}
		exts = append(exts, ext)
	}
	return exts, nil
}

func decodeV14(r *reader) (*Metadata, error) {
	raw, err := decodeTypes(r)
	if err != nil {
		return nil, err
	}

	npallets, err := r.length()
	if err != nil {
		return nil, err
	}
	pallets := make([]Pallet, 0, npallets)
	for i := 0; i < npallets; i++ {
		p, err := decodePallet(r, false)
		if err != nil {
			return nil, err
		}
		pallets = append(pallets, p)
	}

	// v14 extrinsic: one opaque type whose generic parameters carry the
	// part types.
	extrinsicType, err := r.typeId()
	if err != nil {
		return nil, err
	}
	version, err := r.byte()
	if err != nil {
		return nil, err
	}
	exts, err := decodeSignedExtensions(r)
	if err != nil {
		return nil, err
	}
	runtimeType, err := r.typeId()
	if err != nil {
		return nil, err
	}

	m := &Metadata{
		Version: 14,
		Pallets: pallets,
		Extrinsic: Extrinsic{
			Version:          version,
			SignedExtensions: exts,
		},
		Runtime: runtimeType,
	}
	if err := upgradeV14(m, raw, extrinsicType); err != nil {
		return nil, err
	}
	return m, nil
}

// upgradeV14 fills the pieces v14 lacks compared to v15: the extrinsic
// part types come from the generic parameters of the extrinsic type, the
// outer call and event enums are located by name, and the outer error
// enum is synthesized from the per-pallet error types.
func upgradeV14(m *Metadata, raw []rawType, extrinsicType registry.TypeId) error {
	reg, err := buildRegistry(raw)
	if err != nil {
		return err
	}
	m.Types = reg

	var extrinsic *rawType
	var callEnum, eventEnum *rawType
	for i := range raw {
		switch {
		case raw[i].id == extrinsicType:
			extrinsic = &raw[i]
		case raw[i].ident() == "RuntimeCall" && callEnum == nil:
			callEnum = &raw[i]
		case raw[i].ident() == "RuntimeEvent" && eventEnum == nil:
			eventEnum = &raw[i]
		}
	}
	if extrinsic == nil {
		return errors.InvalidData(errors.PhaseParse, nil, "extrinsic type missing from registry")
	}
	if callEnum == nil || eventEnum == nil {
		return errors.InvalidData(errors.PhaseParse, nil, "outer call or event enum missing from registry")
	}

	parts := map[string]*registry.TypeId{}
	for _, p := range extrinsic.params {
		parts[p.name] = p.ty
	}
	for _, name := range []string{"Address", "Call", "Signature", "Extra"} {
		id := parts[name]
		if id == nil {
			return errors.InvalidData(errors.PhaseParse, nil, "extrinsic type lacks a "+name+" parameter")
		}
		switch name {
		case "Address":
			m.Extrinsic.Address = *id
		case "Call":
			m.Extrinsic.Call = *id
		case "Signature":
			m.Extrinsic.Signature = *id
		case "Extra":
			m.Extrinsic.Extra = *id
		}
	}

	m.OuterEnums.Call = callEnum.id
	m.OuterEnums.Event = eventEnum.id
	m.OuterEnums.Error = synthesizeErrorEnum(m, callEnum.path)
	return nil
}

// synthesizeErrorEnum builds a RuntimeError variant type out of the
// pallets' error types, mirroring what later metadata versions declare
// directly.
func synthesizeErrorEnum(m *Metadata, callPath []string) registry.TypeId {
	path := make([]string, len(callPath))
	copy(path, callPath)
	if len(path) > 0 {
		path[len(path)-1] = "RuntimeError"
	} else {
		path = []string{"RuntimeError"}
	}

	ty := registry.Type{Path: path, Kind: registry.KindVariant}
	for i := range m.Pallets {
		p := &m.Pallets[i]
		if p.Errors == nil {
			continue
		}
		ty.Variants = append(ty.Variants, registry.VariantDef{
			Name:   p.Name,
			Index:  p.Index,
			Fields: []registry.Field{{Type: *p.Errors}},
		})
	}
	return m.Types.Push(ty)
}

func decodeV15(r *reader) (*Metadata, error) {
	raw, err := decodeTypes(r)
	if err != nil {
		return nil, err
	}
	reg, err := buildRegistry(raw)
	if err != nil {
		return nil, err
	}

	npallets, err := r.length()
	if err != nil {
		return nil, err
	}
	pallets := make([]Pallet, 0, npallets)
	for i := 0; i < npallets; i++ {
		p, err := decodePallet(r, true)
		if err != nil {
			return nil, err
		}
		pallets = append(pallets, p)
	}

	var ext Extrinsic
	if ext.Version, err = r.byte(); err != nil {
		return nil, err
	}
	if ext.Address, err = r.typeId(); err != nil {
		return nil, err
	}
	if ext.Call, err = r.typeId(); err != nil {
		return nil, err
	}
	if ext.Signature, err = r.typeId(); err != nil {
		return nil, err
	}
	if ext.Extra, err = r.typeId(); err != nil {
		return nil, err
	}
	if ext.SignedExtensions, err = decodeSignedExtensions(r); err != nil {
		return nil, err
	}

	runtimeType, err := r.typeId()
	if err != nil {
		return nil, err
	}

	napis, err := r.length()
	if err != nil {
		return nil, err
	}
	apis := make([]RuntimeAPI, 0, napis)
	for i := 0; i < napis; i++ {
		api, err := decodeRuntimeAPI(r)
		if err != nil {
			return nil, err
		}
		apis = append(apis, api)
	}

	var outer OuterEnums
	if outer.Call, err = r.typeId(); err != nil {
		return nil, err
	}
	if outer.Event, err = r.typeId(); err != nil {
		return nil, err
	}
	if outer.Error, err = r.typeId(); err != nil {
		return nil, err
	}

	ncustom, err := r.length()
	if err != nil {
		return nil, err
	}
	custom := make([]CustomValue, 0, ncustom)
	for i := 0; i < ncustom; i++ {
		var c CustomValue
		if c.Name, err = r.string(); err != nil {
			return nil, err
		}
		if c.Type, err = r.typeId(); err != nil {
			return nil, err
		}
		if c.Value, err = r.bytes(); err != nil {
			return nil, err
		}
		custom = append(custom, c)
	}

	return &Metadata{
		Version:    15,
		Types:      reg,
		Pallets:    pallets,
		Extrinsic:  ext,
		Runtime:    runtimeType,
		APIs:       apis,
		OuterEnums: outer,
		Custom:     custom,
	}, nil
}

func decodeRuntimeAPI(r *reader) (RuntimeAPI, error) {
	var api RuntimeAPI
	var err error

	if api.Name, err = r.string(); err != nil {
		return api, err
	}
	n, err := r.length()
	if err != nil {
		return api, err
	}
	api.Methods = make([]RuntimeAPIMethod, 0, n)
	for i := 0; i < n; i++ {
		var method RuntimeAPIMethod
		if method.Name, err = r.string(); err != nil {
			return api, err
		}
		nin, err := r.length()
		if err != nil {
			return api, err
		}
		method.Inputs = make([]RuntimeAPIInput, 0, nin)
		for j := 0; j < nin; j++ {
			var in RuntimeAPIInput
			if in.Name, err = r.string(); err != nil {
				return api, err
			}
			if in.Type, err = r.typeId(); err != nil {
				return api, err
			}
			method.Inputs = append(method.Inputs, in)
		}
		if method.Output, err = r.typeId(); err != nil {
			return api, err
		}
		if method.Docs, err = r.strings(); err != nil {
			return api, err
		}
		api.Methods = append(api.Methods, method)
	}
	if api.Docs, err = r.strings(); err != nil {
		return api, err
	}
	return api, nil
}
