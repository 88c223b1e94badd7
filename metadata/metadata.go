package metadata

import (
	"strconv"

	"github.com/wippyai/scale-codec/errors"
	"github.com/wippyai/scale-codec/registry"
)

// StorageHasher is the declared hashing scheme for one storage key part.
// The numeric values are the wire discriminants used by the metadata
// encoding.
type StorageHasher byte

const (
	HasherBlake2_128 StorageHasher = iota
	HasherBlake2_256
	HasherBlake2_128Concat
	HasherTwox128
	HasherTwox256
	HasherTwox64Concat
	HasherIdentity
)

func (h StorageHasher) String() string {
	switch h {
	case HasherBlake2_128:
		return "Blake2_128"
	case HasherBlake2_256:
		return "Blake2_256"
	case HasherBlake2_128Concat:
		return "Blake2_128Concat"
	case HasherTwox128:
		return "Twox128"
	case HasherTwox256:
		return "Twox256"
	case HasherTwox64Concat:
		return "Twox64Concat"
	case HasherIdentity:
		return "Identity"
	default:
		return "unknown"
	}
}

// StorageModifier says whether a missing storage value is None or the
// declared default.
type StorageModifier byte

const (
	ModifierOptional StorageModifier = iota
	ModifierDefault
)

// StorageEntry is one storage item of a pallet. Plain entries have no
// hashers and a nil Key; map entries carry one hasher per key part.
type StorageEntry struct {
	Name     string
	Modifier StorageModifier
	Hashers  []StorageHasher
	Key      *registry.TypeId
	Value    registry.TypeId
	Default  []byte
	Docs     []string
}

// IsMap reports whether the entry is keyed.
func (e *StorageEntry) IsMap() bool {
	return e.Key != nil
}

// Storage is the storage surface of a pallet.
type Storage struct {
	Prefix  string
	Entries []StorageEntry
}

// Entry returns the storage entry with the given name.
func (s *Storage) Entry(name string) (*StorageEntry, bool) {
	for i := range s.Entries {
		if s.Entries[i].Name == name {
			return &s.Entries[i], true
		}
	}
	return nil, false
}

// Constant is a pallet constant: a name, a type and the pre-encoded value.
type Constant struct {
	Name  string
	Type  registry.TypeId
	Value []byte
	Docs  []string
}

// Pallet is one module of the runtime. The Calls, Events and Errors type
// ids are nil when the pallet declares none.
type Pallet struct {
	Name      string
	Index     byte
	Storage   *Storage
	Calls     *registry.TypeId
	Events    *registry.TypeId
	Errors    *registry.TypeId
	Constants []Constant
	Docs      []string
}

// Constant returns the constant with the given name.
func (p *Pallet) Constant(name string) (*Constant, bool) {
	for i := range p.Constants {
		if p.Constants[i].Name == name {
			return &p.Constants[i], true
		}
	}
	return nil, false
}

// SignedExtension is one piece of additional data attached to extrinsics.
type SignedExtension struct {
	Identifier string
	Type       registry.TypeId
	Additional registry.TypeId
}

// Extrinsic describes the shape of transactions for this runtime.
type Extrinsic struct {
	Version          byte
	Address          registry.TypeId
	Call             registry.TypeId
	Signature        registry.TypeId
	Extra            registry.TypeId
	SignedExtensions []SignedExtension
}

// OuterEnums are the runtime-wide call, event and error enum types.
type OuterEnums struct {
	Call  registry.TypeId
	Event registry.TypeId
	Error registry.TypeId
}

// RuntimeAPIInput is a named parameter of a runtime API method.
type RuntimeAPIInput struct {
	Name string
	Type registry.TypeId
}

// RuntimeAPIMethod is one method of a runtime API trait.
type RuntimeAPIMethod struct {
	Name   string
	Inputs []RuntimeAPIInput
	Output registry.TypeId
	Docs   []string
}

// RuntimeAPI is a named group of runtime API methods.
type RuntimeAPI struct {
	Name    string
	Methods []RuntimeAPIMethod
	Docs    []string
}

// Method returns the method with the given name.
func (a *RuntimeAPI) Method(name string) (*RuntimeAPIMethod, bool) {
	for i := range a.Methods {
		if a.Methods[i].Name == name {
			return &a.Methods[i], true
		}
	}
	return nil, false
}

// CustomValue is an arbitrary named value a chain embeds in its metadata.
type CustomValue struct {
	Name  string
	Type  registry.TypeId
	Value []byte
}

// Metadata is a decoded runtime metadata snapshot: the type registry plus
// everything the runtime declares in terms of those types.
type Metadata struct {
	Version    byte
	Types      *registry.Registry
	Pallets    []Pallet
	Extrinsic  Extrinsic
	Runtime    registry.TypeId
	APIs       []RuntimeAPI
	OuterEnums OuterEnums
	Custom     []CustomValue
}

// PalletByName returns the pallet with the given name.
func (m *Metadata) PalletByName(name string) (*Pallet, error) {
	for i := range m.Pallets {
		if m.Pallets[i].Name == name {
			return &m.Pallets[i], nil
		}
	}
	return nil, errors.NotFound(errors.PhaseLookup, "pallet", name)
}

// PalletByIndex returns the pallet with the given index byte.
func (m *Metadata) PalletByIndex(index byte) (*Pallet, error) {
	for i := range m.Pallets {
		if m.Pallets[i].Index == index {
			return &m.Pallets[i], nil
		}
	}
	return nil, errors.NotFound(errors.PhaseLookup, "pallet index", strconv.Itoa(int(index)))
}

// API returns the runtime API trait with the given name.
func (m *Metadata) API(name string) (*RuntimeAPI, error) {
	for i := range m.APIs {
		if m.APIs[i].Name == name {
			return &m.APIs[i], nil
		}
	}
	return nil, errors.NotFound(errors.PhaseLookup, "runtime api", name)
}

// StorageEntry resolves a pallet's storage entry by name.
func (m *Metadata) StorageEntry(pallet, entry string) (*StorageEntry, error) {
	p, err := m.PalletByName(pallet)
	if err != nil {
		return nil, err
	}
	if p.Storage == nil {
		return nil, errors.NotFound(errors.PhaseLookup, "storage entry", pallet+"."+entry)
	}
	e, ok := p.Storage.Entry(entry)
	if !ok {
		return nil, errors.NotFound(errors.PhaseLookup, "storage entry", pallet+"."+entry)
	}
	return e, nil
}

// CallVariant resolves a call by pallet and call name to the variant
// describing its arguments.
func (m *Metadata) CallVariant(pallet, call string) (*registry.VariantDef, error) {
	p, err := m.PalletByName(pallet)
	if err != nil {
		return nil, err
	}
	if p.Calls == nil {
		return nil, errors.NotFound(errors.PhaseLookup, "call", pallet+"."+call)
	}
	ty, ok := m.Types.Resolve(*p.Calls)
	if !ok {
		return nil, errors.TypeNotFound(errors.PhaseLookup, uint32(*p.Calls))
	}
	v, ok := ty.VariantByName(call)
	if !ok {
		return nil, errors.NotFound(errors.PhaseLookup, "call", pallet+"."+call)
	}
	return v, nil
}
