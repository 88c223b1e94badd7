package storage

import (
	"bytes"
	"encoding/binary"

	"github.com/pierrec/xxHash/xxHash64"
	"golang.org/x/crypto/blake2b"

	"github.com/wippyai/scale-codec/errors"
	"github.com/wippyai/scale-codec/metadata"
	"github.com/wippyai/scale-codec/registry"
	"github.com/wippyai/scale-codec/transcoder"
	"github.com/wippyai/scale-codec/value"
)

// Reversible reports whether a key part hashed with h carries the
// original encoded value after the hash. This is declared per hasher
// kind, never inferred from byte patterns.
func Reversible(h metadata.StorageHasher) bool {
	switch h {
	case metadata.HasherIdentity, metadata.HasherBlake2_128Concat, metadata.HasherTwox64Concat:
		return true
	}
	return false
}

// hashLen is the fixed length of the hash portion a hasher emits.
// Identity emits none; its part is the encoded value alone.
func hashLen(h metadata.StorageHasher) int {
	switch h {
	case metadata.HasherBlake2_128, metadata.HasherBlake2_128Concat, metadata.HasherTwox128:
		return 16
	case metadata.HasherBlake2_256, metadata.HasherTwox256:
		return 32
	case metadata.HasherTwox64Concat:
		return 8
	default: // identity
		return 0
	}
}

func twoxConcat(data []byte, seeds int) []byte {
	out := make([]byte, seeds*8)
	for seed := 0; seed < seeds; seed++ {
		binary.LittleEndian.PutUint64(out[seed*8:], xxHash64.Checksum(data, uint64(seed)))
	}
	return out
}

func blake2bSum(data []byte, size int) []byte {
	h, err := blake2b.New(size, nil)
	if err != nil {
		panic(err) // unkeyed blake2b with a valid size cannot fail
	}
	h.Write(data)
	return h.Sum(nil)
}

// apply runs one hasher over encoded value bytes, producing the full
// key part.
func apply(h metadata.StorageHasher, encoded []byte) []byte {
	switch h {
	case metadata.HasherIdentity:
		return encoded
	case metadata.HasherBlake2_128:
		return blake2bSum(encoded, 16)
	case metadata.HasherBlake2_128Concat:
		return append(blake2bSum(encoded, 16), encoded...)
	case metadata.HasherBlake2_256:
		return blake2bSum(encoded, 32)
	case metadata.HasherTwox128:
		return twoxConcat(encoded, 2)
	case metadata.HasherTwox256:
		return twoxConcat(encoded, 4)
	case metadata.HasherTwox64Concat:
		return append(twoxConcat(encoded, 1), encoded...)
	default:
		panic("storage: unknown hasher")
	}
}

// RootKey is the fixed 32-byte prefix addressing one storage entry:
// twox128 of the pallet prefix followed by twox128 of the entry name.
func RootKey(pallet, entry string) []byte {
	key := make([]byte, 0, 32)
	key = append(key, twoxConcat([]byte(pallet), 2)...)
	return append(key, twoxConcat([]byte(entry), 2)...)
}

// KeyedHasher pairs one key part's hasher with the type its value
// encodes as.
type KeyedHasher struct {
	Hasher metadata.StorageHasher
	Type   registry.TypeId
}

// HashersForEntry pairs an entry's declared hashers with key part
// types. One hasher covers the whole key type; N hashers require the
// key type to be an N-tuple, paired positionally. Any other arity is a
// wrong hasher count error. Plain entries have no key parts.
func HashersForEntry(e *metadata.StorageEntry, reg *registry.Registry) ([]KeyedHasher, error) {
	if !e.IsMap() {
		return nil, nil
	}
	if len(e.Hashers) == 1 {
		return []KeyedHasher{{Hasher: e.Hashers[0], Type: *e.Key}}, nil
	}

	ty, ok := reg.Resolve(*e.Key)
	if !ok {
		return nil, errors.TypeNotFound(errors.PhaseLookup, uint32(*e.Key))
	}
	if ty.Kind != registry.KindTuple || len(ty.Tuple) != len(e.Hashers) {
		fields := 1
		if ty.Kind == registry.KindTuple {
			fields = len(ty.Tuple)
		}
		return nil, errors.WrongHasherCount(errors.PhaseLookup, len(e.Hashers), fields)
	}

	out := make([]KeyedHasher, len(e.Hashers))
	for i, h := range e.Hashers {
		out[i] = KeyedHasher{Hasher: h, Type: ty.Tuple[i]}
	}
	return out, nil
}

// EncodeKey builds the storage key bytes for the given key part values,
// appended to the entry's root prefix. Supplying fewer values than key
// parts yields a prefix key, which addresses the set of entries sharing
// those leading parts. Supplying more is a wrong hasher count error.
func EncodeKey(reg *registry.Registry, pallet, entry string, hashers []KeyedHasher, values []value.Value) ([]byte, error) {
	if len(values) > len(hashers) {
		return nil, errors.WrongHasherCount(errors.PhaseEncode, len(hashers), len(values))
	}

	key := RootKey(pallet, entry)
	enc := transcoder.NewEncoder(reg)
	for i, v := range values {
		encoded, err := enc.Encode(v, hashers[i].Type)
		if err != nil {
			return nil, err
		}
		key = append(key, apply(hashers[i].Hasher, encoded)...)
	}
	return key, nil
}

// KeyPart is one decoded position of a storage key.
type KeyPart struct {
	Hasher metadata.StorageHasher

	// Hash is the hash portion of the part. Empty for identity.
	Hash []byte

	val    value.Value
	hasVal bool
}

// Value returns the part's original value, when the hasher is of the
// reversible kind. For pure hashers the value is unrecoverable and ok
// is false; that is the normal outcome, not an error.
func (p *KeyPart) Value() (value.Value, bool) {
	return p.val, p.hasVal
}

// DecodeKey splits a full storage key back into its parts. The key must
// start with the entry's 32-byte root prefix and must be consumed
// exactly; trailing bytes mean the key was built against different
// metadata and are an error.
func DecodeKey(reg *registry.Registry, pallet, entry string, hashers []KeyedHasher, key []byte) ([]KeyPart, error) {
	root := RootKey(pallet, entry)
	if len(key) < len(root) || !bytes.Equal(key[:len(root)], root) {
		return nil, errors.InvalidData(errors.PhaseDecode, nil, "key does not start with the entry root")
	}
	b := key[len(root):]

	dec := transcoder.NewDecoder(reg)
	parts := make([]KeyPart, 0, len(hashers))
	for _, kh := range hashers {
		n := hashLen(kh.Hasher)
		if len(b) < n {
			return nil, errors.UnexpectedEOF(errors.PhaseDecode, nil, n, len(b))
		}
		part := KeyPart{Hasher: kh.Hasher, Hash: b[:n]}
		b = b[n:]

		if Reversible(kh.Hasher) {
			v, consumed, err := dec.Decode(b, kh.Type)
			if err != nil {
				return nil, err
			}
			part.val = v
			part.hasVal = true
			b = b[consumed:]
		}
		parts = append(parts, part)
	}

	if len(b) != 0 {
		return nil, errors.LeftoverBytes(errors.PhaseDecode, len(b))
	}
	return parts, nil
}
