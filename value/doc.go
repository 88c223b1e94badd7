// Package value provides the dynamic value model: a self-describing value
// tree used as the universal intermediate representation for data whose
// static type is unknown.
//
// A Value is one of four shapes: a primitive, a named or unnamed composite,
// a variant, or a bit sequence. A Value carries no type id; it only gains
// type meaning when paired with a registry descriptor during encoding, or
// when produced by the decoder against one.
//
// Values render to and parse from a textual literal syntax:
//
//	true  'x'  "hello"  123  -5  0xdeadbeef
//	(1, 2, 3)                      unnamed composite
//	{ dest: 1, value: 2 }          named composite
//	Transfer { dest: .., value: 100 }  variant
//	<01101>                        bit sequence
//
// which the CLI uses for call arguments and debug printing.
package value
