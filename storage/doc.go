// Package storage builds and splits the keys a chain uses to address
// storage map entries: a fixed twox128 root prefix per entry, followed
// by one hashed part per declared key position. Concat and identity
// hashers keep the original encoded value recoverable from the key;
// pure hashers do not, and decoding reports those positions as
// hash-only rather than failing.
package storage
