package chain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"snarkcollective/internal/fieldcodec"
)

// Struct is a parsed struct literal such as
// "{ round_id: 1u32, details: { title: 25185field } }".
type Struct map[string]Value

// Value is either a scalar literal or a nested struct.
type Value struct {
	Literal string
	Struct  Struct
}

func (v Value) IsStruct() bool {
	return v.Struct != nil
}

// ParseStruct parses a struct literal. On a syntax error it returns the
// fields parsed so far together with the error.
func ParseStruct(text string) (Struct, error) {
	p := &literalParser{src: text}
	p.skipSpace()
	out, err := p.parseStruct()
	if err != nil {
		return out, err
	}
	p.skipSpace()
	if p.pos < len(p.src) {
		return out, p.errorf("trailing input")
	}
	return out, nil
}

// Uint returns the named unsigned field, or 0 when absent or malformed.
func (s Struct) Uint(name string, bitSize int) uint64 {
	v, ok := s[name]
	if !ok || v.IsStruct() {
		return 0
	}
	digits, ok := fieldcodec.SplitLiteral(v.Literal)
	if !ok {
		return 0
	}
	n, err := strconv.ParseUint(digits, 10, bitSize)
	if err != nil {
		return 0
	}
	return n
}

// Bool returns the named boolean field, or false when absent or malformed.
func (s Struct) Bool(name string) bool {
	return stripVisibility(s.Literal(name)) == "true"
}

// Literal returns the raw literal of a scalar field, or "" when absent.
func (s Struct) Literal(name string) string {
	v, ok := s[name]
	if !ok || v.IsStruct() {
		return ""
	}
	return v.Literal
}

// Child returns a nested struct, or an empty struct when absent.
func (s Struct) Child(name string) Struct {
	v, ok := s[name]
	if !ok || !v.IsStruct() {
		return Struct{}
	}
	return v.Struct
}

func stripVisibility(literal string) string {
	literal = strings.TrimSuffix(literal, ".public")
	return strings.TrimSuffix(literal, ".private")
}

// unwrapBody removes the JSON string quoting the explorer sometimes applies.
func unwrapBody(body string) string {
	body = strings.TrimSpace(body)
	if strings.HasPrefix(body, `"`) {
		var s string
		if err := json.Unmarshal([]byte(body), &s); err == nil {
			return strings.TrimSpace(s)
		}
		return strings.TrimSpace(strings.Trim(body, `"`))
	}
	return body
}

type literalParser struct {
	src string
	pos int
}

func (p *literalParser) errorf(format string, args ...interface{}) error {
	return fmt.Errorf("struct literal at offset %d: %s", p.pos, fmt.Sprintf(format, args...))
}

func (p *literalParser) skipSpace() {
	for p.pos < len(p.src) {
		switch p.src[p.pos] {
		case ' ', '\t', '\n', '\r':
			p.pos++
		default:
			return
		}
	}
}

func (p *literalParser) peek() (byte, bool) {
	if p.pos >= len(p.src) {
		return 0, false
	}
	return p.src[p.pos], true
}

func (p *literalParser) parseStruct() (Struct, error) {
	out := Struct{}
	if c, ok := p.peek(); !ok || c != '{' {
		return out, p.errorf("expected '{'")
	}
	p.pos++

	for {
		p.skipSpace()
		c, ok := p.peek()
		if !ok {
			return out, p.errorf("unexpected end of input")
		}
		if c == '}' {
			p.pos++
			return out, nil
		}

		name := p.readIdent()
		if name == "" {
			return out, p.errorf("expected field name")
		}
		p.skipSpace()
		if c, ok := p.peek(); !ok || c != ':' {
			return out, p.errorf("expected ':' after %s", name)
		}
		p.pos++

		value, err := p.parseValue()
		if value.IsStruct() || value.Literal != "" {
			out[name] = value
		}
		if err != nil {
			return out, err
		}

		p.skipSpace()
		c, ok = p.peek()
		switch {
		case !ok:
			return out, p.errorf("unexpected end of input")
		case c == ',':
			p.pos++
		case c == '}':
			p.pos++
			return out, nil
		default:
			return out, p.errorf("unexpected %q", c)
		}
	}
}

func (p *literalParser) parseValue() (Value, error) {
	p.skipSpace()
	c, ok := p.peek()
	if !ok {
		return Value{}, p.errorf("unexpected end of input")
	}
	switch c {
	case '{':
		s, err := p.parseStruct()
		return Value{Struct: s}, err
	case '"':
		lit, err := p.readQuoted()
		return Value{Literal: lit}, err
	default:
		lit := p.readToken()
		if lit == "" {
			return Value{}, p.errorf("expected value")
		}
		return Value{Literal: lit}, nil
	}
}

func (p *literalParser) readIdent() string {
	start := p.pos
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		if c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') {
			p.pos++
			continue
		}
		break
	}
	return p.src[start:p.pos]
}

func (p *literalParser) readToken() string {
	start := p.pos
	for p.pos < len(p.src) {
		switch p.src[p.pos] {
		case ',', '{', '}', ' ', '\t', '\n', '\r':
			return p.src[start:p.pos]
		}
		p.pos++
	}
	return p.src[start:p.pos]
}

func (p *literalParser) readQuoted() (string, error) {
	start := p.pos
	p.pos++
	for p.pos < len(p.src) {
		switch p.src[p.pos] {
		case '\\':
			p.pos += 2
			continue
		case '"':
			p.pos++
			return p.src[start:p.pos], nil
		}
		p.pos++
	}
	p.pos = len(p.src)
	return p.src[start:], p.errorf("unterminated string")
}
