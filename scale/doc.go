// Package scale implements the SCALE binary serialization primitives.
//
// SCALE is a compact, deterministic, little-endian wire format. This
// package provides the two building blocks everything else layers on:
//
//   - Fixed-width primitives: booleans (one byte, 0x00/0x01), little-endian
//     integers of 8 to 256 bits, chars (u32 code points) and UTF-8 strings
//     (compact length prefix followed by raw bytes).
//
//   - Compact integers: a variable-width encoding that always picks the
//     shortest representation for a magnitude. The low two bits of the first
//     byte select the mode: 00 single byte, 01 two bytes, 10 four bytes,
//     11 a length byte followed by that many little-endian bytes.
//
// Encoders append to a caller-owned buffer and never fail. Decoders return
// the decoded value together with the number of bytes consumed, and fail on
// short input rather than guessing.
//
// Integers wider than 64 bits are carried as *uint256.Int.
package scale
