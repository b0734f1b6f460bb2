// Package fieldcodec converts between text and field element literals.
//
// Text is packed least-significant byte first into a single field element,
// so "ab" becomes 97 + 98*256 = 25185field.
package fieldcodec

import (
	"fmt"
	"strings"

	"github.com/holiman/uint256"
)

// MaxTextBytes is the longest text that fits into one field element.
const MaxTextBytes = 31

const fieldSuffix = "field"

var typeSuffixes = map[string]struct{}{
	"":       {},
	"field":  {},
	"scalar": {},
	"group":  {},
	"u8":     {},
	"u16":    {},
	"u32":    {},
	"u64":    {},
	"u128":   {},
	"i8":     {},
	"i16":    {},
	"i32":    {},
	"i64":    {},
	"i128":   {},
}

// Decode unpacks a field literal into text. Bytes are read low to high and
// decoding stops at the first zero byte. When the literal cannot be parsed
// it is returned unchanged.
func Decode(literal string) string {
	text, err := decode(literal)
	if err != nil {
		return literal
	}
	return text
}

// Decoded reports whether Decode succeeded for literal.
func Decoded(literal string) (string, bool) {
	text, err := decode(literal)
	if err != nil {
		return literal, false
	}
	return text, true
}

func decode(literal string) (string, error) {
	digits, ok := SplitLiteral(literal)
	if !ok {
		return "", fmt.Errorf("not a numeric literal: %q", literal)
	}

	value, err := uint256.FromDecimal(digits)
	if err != nil {
		return "", fmt.Errorf("parse %q: %w", digits, err)
	}

	be := value.Bytes32()
	var b strings.Builder
	for i := len(be) - 1; i >= 0; i-- {
		if be[i] == 0 {
			break
		}
		b.WriteRune(rune(be[i]))
	}
	return b.String(), nil
}

// Encode packs ASCII text into a field literal. It is the inverse of Decode
// for text without zero bytes.
func Encode(text string) (string, error) {
	if len(text) > MaxTextBytes {
		return "", fmt.Errorf("text is %d bytes, at most %d fit in a field", len(text), MaxTextBytes)
	}
	if strings.IndexByte(text, 0) >= 0 {
		return "", fmt.Errorf("text contains a zero byte")
	}

	var be [32]byte
	for i := 0; i < len(text); i++ {
		be[len(be)-1-i] = text[i]
	}
	value := new(uint256.Int).SetBytes(be[:])
	return value.ToBig().String() + fieldSuffix, nil
}

// SplitLiteral strips visibility and type suffixes from a numeric literal
// and returns its decimal digits.
func SplitLiteral(literal string) (string, bool) {
	s := strings.TrimSpace(literal)
	s = strings.TrimSuffix(s, ".public")
	s = strings.TrimSuffix(s, ".private")

	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == 0 {
		return "", false
	}
	if _, ok := typeSuffixes[s[end:]]; !ok {
		return "", false
	}
	return s[:end], true
}
