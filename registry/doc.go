// Package registry holds the portable type registry: an arena of type
// descriptors indexed by dense integer ids.
//
// A Registry is built once per metadata snapshot and is immutable
// afterwards; concurrent readers need no synchronization. Type references
// are integer ids rather than pointers, so recursive types are just an id
// lookup and never a cyclic ownership graph. Traversals that follow
// references (Retain, shape hashing in the metadata package) thread an
// explicit visited set to stay cycle safe.
//
// Ids are only meaningful within one registry snapshot. Comparing types
// across snapshots is the job of shape hashing, not of ids.
package registry
