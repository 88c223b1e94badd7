// Package scalecodec provides metadata-driven dynamic SCALE encoding and
// decoding for substrate-based chains.
//
// Instead of generating Go types ahead of time, the library reads a
// chain's own type descriptions out of its metadata at runtime and
// encodes or decodes arbitrary values against them.
//
// # Architecture Overview
//
// The library is organized into several packages with distinct
// responsibilities:
//
//	scalecodec/          Root package, documentation only
//	├── scale/           Primitive SCALE wire codec (compact ints, bool, strings)
//	├── registry/        Type descriptors, registry, retain/remap
//	├── value/           Dynamic value model (primitives, composites, variants)
//	├── transcoder/      Type-guided encoding and decoding of values
//	├── metadata/        Frame metadata v14/v15 decoding, shape hashing, retain
//	├── storage/         Storage key construction and decoding
//	├── client/          JSON-RPC metadata and storage fetching over websocket
//	├── runtimewasm/     Metadata extraction straight from a runtime wasm blob
//	├── errors/          Structured error types for debugging
//	└── cmd/scale/       CLI: inspect, encode, hash and explore metadata
//
// # Quick Start
//
// Decode metadata and encode a call:
//
//	m, err := metadata.Decode(raw)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	p, _ := m.PalletByName("Balances")
//	enc := transcoder.NewEncoder(m.Types)
//	bytes, err := enc.Encode(value.VariantNamed("transfer_allow_death",
//	    value.Field{Name: "dest", Value: value.Bytes(dest)},
//	    value.Field{Name: "value", Value: value.Uint(100)},
//	), *p.Calls)
//
// # Shape Hashing
//
// Every type, call, storage entry and constant has a 32-byte structural
// fingerprint that is stable across metadata versions and type id
// renumbering. Generated code can bake these in and verify at startup
// that the live chain still matches:
//
//	if err := metadata.ValidateCall(m, "Balances", "transfer_allow_death", expected); err != nil {
//	    log.Fatal(err)
//	}
//
// # Thread Safety
//
// Metadata, Registry and the transcoder are immutable after
// construction and safe for concurrent use. Client is safe for
// concurrent calls; Retain mutates the snapshot and must not race with
// readers.
package scalecodec
