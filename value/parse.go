package value

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/holiman/uint256"

	"github.com/wippyai/scale-codec/errors"
)

// Parse reads one value in the textual literal syntax. The whole input
// must be consumed; failures report the byte offset and what was
// expected there.
func Parse(s string) (Value, error) {
	p := &parser{s: s}
	p.skipSpace()
	v, err := p.value()
	if err != nil {
		return Value{}, err
	}
	p.skipSpace()
	if p.pos < len(p.s) {
		return Value{}, errors.UnexpectedToken(p.pos, "end of input", p.describe())
	}
	return v, nil
}

type parser struct {
	s   string
	pos int
}

func (p *parser) describe() string {
	if p.pos >= len(p.s) {
		return "end of input"
	}
	return fmt.Sprintf("%q", p.s[p.pos])
}

func (p *parser) skipSpace() {
	for p.pos < len(p.s) {
		switch p.s[p.pos] {
		case ' ', '\t', '\n', '\r':
			p.pos++
		default:
			return
		}
	}
}

func (p *parser) value() (Value, error) {
	if p.pos >= len(p.s) {
		return Value{}, errors.UnexpectedToken(p.pos, "a value", "end of input")
	}
	c := p.s[p.pos]
	switch {
	case c == '(':
		return p.unnamedComposite()
	case c == '{':
		fields, named, err := p.namedFields()
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: KindComposite, Named: named, Fields: fields}, nil
	case c == '<':
		return p.bitSequence()
	case c == '"':
		return p.string()
	case c == '\'':
		return p.char()
	case c == '0' && p.pos+1 < len(p.s) && p.s[p.pos+1] == 'x':
		return p.hexBytes()
	case c >= '0' && c <= '9' || c == '-' || c == '+':
		return p.number()
	case isIdentStart(c):
		return p.identifier()
	default:
		return Value{}, errors.UnexpectedToken(p.pos, "a value", p.describe())
	}
}

func (p *parser) unnamedComposite() (Value, error) {
	p.pos++ // '('
	var values []Value
	p.skipSpace()
	if p.pos < len(p.s) && p.s[p.pos] == ')' {
		p.pos++
		return Unnamed(), nil
	}
	for {
		p.skipSpace()
		v, err := p.value()
		if err != nil {
			return Value{}, err
		}
		values = append(values, v)
		p.skipSpace()
		if p.pos >= len(p.s) {
			return Value{}, errors.UnexpectedToken(p.pos, "',' or ')'", "end of input")
		}
		switch p.s[p.pos] {
		case ',':
			p.pos++
		case ')':
			p.pos++
			return Unnamed(values...), nil
		default:
			return Value{}, errors.UnexpectedToken(p.pos, "',' or ')'", p.describe())
		}
	}
}

func (p *parser) namedFields() ([]Field, bool, error) {
	p.pos++ // '{'
	var fields []Field
	p.skipSpace()
	if p.pos < len(p.s) && p.s[p.pos] == '}' {
		p.pos++
		return nil, true, nil
	}
	for {
		p.skipSpace()
		if p.pos >= len(p.s) || !isIdentStart(p.s[p.pos]) {
			return nil, false, errors.UnexpectedToken(p.pos, "a field name", p.describe())
		}
		name := p.ident()
		p.skipSpace()
		if p.pos >= len(p.s) || p.s[p.pos] != ':' {
			return nil, false, errors.UnexpectedToken(p.pos, "':'", p.describe())
		}
		p.pos++
		p.skipSpace()
		v, err := p.value()
		if err != nil {
			return nil, false, err
		}
		fields = append(fields, Field{Name: name, Value: v})
		p.skipSpace()
		if p.pos >= len(p.s) {
			return nil, false, errors.UnexpectedToken(p.pos, "',' or '}'", "end of input")
		}
		switch p.s[p.pos] {
		case ',':
			p.pos++
		case '}':
			p.pos++
			return fields, true, nil
		default:
			return nil, false, errors.UnexpectedToken(p.pos, "',' or '}'", p.describe())
		}
	}
}

func (p *parser) bitSequence() (Value, error) {
	p.pos++ // '<'
	var bits []bool
	for p.pos < len(p.s) {
		switch p.s[p.pos] {
		case '0':
			bits = append(bits, false)
			p.pos++
		case '1':
			bits = append(bits, true)
			p.pos++
		case '>':
			p.pos++
			return BitSequence(bits), nil
		default:
			return Value{}, errors.UnexpectedToken(p.pos, "'0', '1' or '>'", p.describe())
		}
	}
	return Value{}, errors.UnexpectedToken(p.pos, "'>'", "end of input")
}

func (p *parser) string() (Value, error) {
	p.pos++ // '"'
	var b strings.Builder
	for p.pos < len(p.s) {
		c := p.s[p.pos]
		switch c {
		case '"':
			p.pos++
			return String(b.String()), nil
		case '\\':
			r, err := p.escape()
			if err != nil {
				return Value{}, err
			}
			b.WriteRune(r)
		default:
			b.WriteByte(c)
			p.pos++
		}
	}
	return Value{}, errors.UnexpectedToken(p.pos, "closing '\"'", "end of input")
}

func (p *parser) char() (Value, error) {
	p.pos++ // '\''
	if p.pos >= len(p.s) {
		return Value{}, errors.UnexpectedToken(p.pos, "a character", "end of input")
	}
	var r rune
	if p.s[p.pos] == '\\' {
		var err error
		r, err = p.escape()
		if err != nil {
			return Value{}, err
		}
	} else {
		for _, rr := range p.s[p.pos:] {
			r = rr
			break
		}
		p.pos += len(string(r))
	}
	if p.pos >= len(p.s) || p.s[p.pos] != '\'' {
		return Value{}, errors.UnexpectedToken(p.pos, "closing '''", p.describe())
	}
	p.pos++
	return Char(r), nil
}

func (p *parser) escape() (rune, error) {
	p.pos++ // '\\'
	if p.pos >= len(p.s) {
		return 0, errors.UnexpectedToken(p.pos, "an escape character", "end of input")
	}
	c := p.s[p.pos]
	p.pos++
	switch c {
	case 'n':
		return '\n', nil
	case 't':
		return '\t', nil
	case 'r':
		return '\r', nil
	case '0':
		return 0, nil
	case '\\', '"', '\'':
		return rune(c), nil
	default:
		return 0, errors.UnexpectedToken(p.pos-1, "one of n, t, r, 0, \\, \", '", fmt.Sprintf("%q", c))
	}
}

func (p *parser) hexBytes() (Value, error) {
	start := p.pos
	p.pos += 2 // "0x"
	digits := 0
	var out []byte
	var cur byte
	for p.pos < len(p.s) {
		d, ok := hexDigit(p.s[p.pos])
		if !ok {
			break
		}
		cur = cur<<4 | d
		digits++
		if digits%2 == 0 {
			out = append(out, cur)
			cur = 0
		}
		p.pos++
	}
	if digits == 0 {
		return Value{}, errors.UnexpectedToken(p.pos, "hex digits after 0x", p.describe())
	}
	if digits%2 != 0 {
		return Value{}, errors.UnexpectedToken(start, "an even number of hex digits", fmt.Sprintf("%d digits", digits))
	}
	return Bytes(out), nil
}

func hexDigit(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	default:
		return 0, false
	}
}

func (p *parser) number() (Value, error) {
	start := p.pos
	neg := false
	if p.s[p.pos] == '-' || p.s[p.pos] == '+' {
		neg = p.s[p.pos] == '-'
		p.pos++
	}
	digitStart := p.pos
	for p.pos < len(p.s) && (p.s[p.pos] >= '0' && p.s[p.pos] <= '9' || p.s[p.pos] == '_') {
		p.pos++
	}
	digits := strings.ReplaceAll(p.s[digitStart:p.pos], "_", "")
	if digits == "" {
		return Value{}, errors.UnexpectedToken(p.pos, "digits", p.describe())
	}

	if !neg {
		if v, err := strconv.ParseUint(digits, 10, 64); err == nil {
			return Uint(v), nil
		}
	} else {
		if v, err := strconv.ParseInt("-"+digits, 10, 64); err == nil {
			return Int(v), nil
		}
	}
	big, err := uint256.FromDecimal(digits)
	if err != nil {
		return Value{}, errors.UnexpectedToken(start, "an integer of at most 256 bits", digits)
	}
	if neg {
		return BigInt(true, big), nil
	}
	return BigUint(big), nil
}

func (p *parser) identifier() (Value, error) {
	name := p.ident()
	switch name {
	case "true":
		return Bool(true), nil
	case "false":
		return Bool(false), nil
	}

	// A bare identifier is a variant; it may carry named or unnamed fields.
	p.skipSpace()
	if p.pos < len(p.s) {
		switch p.s[p.pos] {
		case '(':
			inner, err := p.unnamedComposite()
			if err != nil {
				return Value{}, err
			}
			return Value{Kind: KindVariant, Variant: name, Fields: inner.Fields}, nil
		case '{':
			fields, _, err := p.namedFields()
			if err != nil {
				return Value{}, err
			}
			return Value{Kind: KindVariant, Variant: name, Named: true, Fields: fields}, nil
		}
	}
	return Value{Kind: KindVariant, Variant: name}, nil
}

func (p *parser) ident() string {
	start := p.pos
	for p.pos < len(p.s) && isIdentPart(p.s[p.pos]) {
		p.pos++
	}
	return p.s[start:p.pos]
}

func isIdentStart(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c == '_'
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || c >= '0' && c <= '9'
}
