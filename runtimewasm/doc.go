// Package runtimewasm extracts metadata directly from a runtime wasm
// blob, without a node. It instantiates the blob under wazero, stubs
// the host imports the runtime declares, and invokes its metadata
// entry points.
package runtimewasm
