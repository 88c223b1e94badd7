// Package transcoder walks dynamic value trees alongside registry type
// descriptors to produce and consume SCALE wire bytes.
//
// The Encoder checks a value against a descriptor as it goes: named
// composite fields may arrive in any order (they are matched by name),
// unnamed fields are positional, variant names are matched case
// sensitively, and numeric primitives widen when the target type allows
// it. On failure the output buffer beyond the error point is undefined
// and the caller must discard it.
//
// The Decoder runs the same rules in reverse, driven entirely by the
// descriptor. Variant decoding is index sensitive (one discriminant byte
// looked up against the declared variant indices) even though encoding is
// name sensitive. Decoding never returns a partial value; use DecodeExact
// when the input must be consumed in full.
//
//	enc := transcoder.NewEncoder(reg)
//	b, err := enc.Encode(value.Uint(5), compactU8)  // 0x14
//
//	dec := transcoder.NewDecoder(reg)
//	v, n, err := dec.Decode(b, compactU8)
package transcoder
