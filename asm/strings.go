package asm

import (
	"strconv"
	"unicode/utf8"
)

// Single character escapes.
var escapeCodes = map[byte]byte{
	'"':  '"',
	'\'': '\'',
	'\\': '\\',
	'0':  0,
	'n':  '\n',
	'r':  '\r',
	't':  '\t',
}

// decodeString decodes a quoted .STR operand found at pos in the source line.
//
// \xHH emits a single byte; \uHHHH emits the UTF-8 encoding of the code point.
func (asm *Assembler) decodeString(str string, pos int) (data []byte, ok bool) {
	if len(str) == 0 || str[0] != '"' {
		asm.Reporter.Error(f("expected: string token."), asm.at(pos))
		return
	}

	quoted := false
	for i := 1; i < len(str); i++ {
		c := str[i]
		switch {
		case c == '\\':
			i++
			if i >= len(str) {
				break
			}
			c = str[i]

			if code, found := escapeCodes[c]; found {
				data = append(data, code)
				continue
			}

			var digits int
			switch c {
			case 'x':
				digits = 2
			case 'u':
				digits = 4
			default:
				asm.Reporter.Error(f("invalid escape code."), asm.at(pos+i))
				return
			}

			if len(str)-i-1 < digits {
				asm.Reporter.Error(f("invalid hexadecimal."), asm.at(pos+i))
				return
			}

			point, err := strconv.ParseUint(str[i+1:i+1+digits], 16, 32)
			if err != nil {
				asm.Reporter.Error(f("invalid hexadecimal digit."), asm.at(pos+i))
				return
			}

			if digits == 2 {
				data = append(data, byte(point))
			} else {
				data = utf8.AppendRune(data, rune(point))
			}
			i += digits
		case c == '"':
			if i != len(str)-1 {
				asm.Reporter.Error(f("unexpected tokens."), asm.at(pos+i+1))
				return
			}
			quoted = true
		default:
			data = append(data, c)
		}
	}

	if !quoted {
		asm.Reporter.Error(f("unexpected end of input."), asm.at(len(asm.line.Text)))
		return
	}

	ok = true
	return
}
