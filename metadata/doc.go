// Package metadata models a runtime metadata snapshot: the portable
// type registry plus the pallets, storage entries, constants, calls and
// extrinsic shape declared in terms of it.
//
// Snapshots are decoded from the raw blob a node serves (versions 14
// and 15), fingerprinted with stable 32-byte shape hashes for
// compatibility checks against generated code, and optionally retained
// down to a pallet subset to shrink the registry.
package metadata
