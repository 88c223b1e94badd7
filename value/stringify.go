package value

import (
	"strconv"
	"strings"
)

// String renders the value in the textual literal syntax understood by
// Parse.
func (v Value) String() string {
	var b strings.Builder
	v.write(&b)
	return b.String()
}

func (v Value) write(b *strings.Builder) {
	switch v.Kind {
	case KindPrimitive:
		v.Primitive.write(b)
	case KindComposite:
		writeFields(b, v.Fields, v.Named)
	case KindVariant:
		b.WriteString(v.Variant)
		if len(v.Fields) > 0 {
			b.WriteByte(' ')
			writeFields(b, v.Fields, v.Named)
		}
	case KindBitSequence:
		b.WriteByte('<')
		for _, bit := range v.Bits {
			if bit {
				b.WriteByte('1')
			} else {
				b.WriteByte('0')
			}
		}
		b.WriteByte('>')
	}
}

func writeFields(b *strings.Builder, fields []Field, named bool) {
	if named {
		b.WriteString("{ ")
		for i, f := range fields {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(f.Name)
			b.WriteString(": ")
			f.Value.write(b)
		}
		b.WriteString(" }")
		return
	}
	b.WriteByte('(')
	for i, f := range fields {
		if i > 0 {
			b.WriteString(", ")
		}
		f.Value.write(b)
	}
	b.WriteByte(')')
}

func (p Primitive) write(b *strings.Builder) {
	switch p.Kind {
	case PrimBool:
		if p.Bool {
			b.WriteString("true")
		} else {
			b.WriteString("false")
		}
	case PrimChar:
		b.WriteByte('\'')
		b.WriteString(escapeRune(p.Char))
		b.WriteByte('\'')
	case PrimString:
		b.WriteByte('"')
		for _, r := range p.Str {
			b.WriteString(escapeRune(r))
		}
		b.WriteByte('"')
	case PrimUint:
		b.WriteString(strconv.FormatUint(p.Uint, 10))
	case PrimInt:
		b.WriteString(strconv.FormatInt(p.Int, 10))
	case PrimBigUint:
		b.WriteString(p.Big.Dec())
	case PrimBigInt:
		if p.Neg && !p.Big.IsZero() {
			b.WriteByte('-')
		}
		b.WriteString(p.Big.Dec())
	}
}

func escapeRune(r rune) string {
	switch r {
	case '\\':
		return `\\`
	case '"':
		return `\"`
	case '\'':
		return `\'`
	case '\n':
		return `\n`
	case '\t':
		return `\t`
	case '\r':
		return `\r`
	case 0:
		return `\0`
	default:
		return string(r)
	}
}
