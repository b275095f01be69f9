package asm

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/ezrec/re2/isa"
)

// TokenType is the lexical category of a token. Every token has exactly one.
type TokenType int

const (
	TOKEN_REGISTER  = TokenType(0) // register
	TOKEN_SYMBOL    = TokenType(1) // symbol
	TOKEN_IMMEDIATE = TokenType(2) // immediate
	TOKEN_LABEL     = TokenType(3) // label
	TOKEN_ADDRESS   = TokenType(4) // address
	TOKEN_INDIRECT  = TokenType(5) // indirect
	TOKEN_DIRECTIVE = TokenType(6) // directive
	TOKEN_INVALID   = TokenType(7) // invalid
)

var tokenTypeNames = []string{
	"register", "symbol", "immediate", "label", "address", "indirect", "directive", "invalid",
}

func (tt TokenType) String() string {
	if tt < 0 || int(tt) >= len(tokenTypeNames) {
		return fmt.Sprintf("TokenType(%d)", int(tt))
	}
	return tokenTypeNames[tt]
}

const (
	numberPattern   = `(?:0x[A-Fa-f0-9]+|0[0-7]+|[1-9][0-9]*|0)`
	registerPattern = `%(?:[0-9]+|[ISBisb][Pp])`
	identPattern    = `[A-Za-z_][A-Za-z0-9_]*`
)

// tokenPatterns are tried in order; the first full match wins.
var tokenPatterns = []struct {
	Type    TokenType
	Pattern *regexp.Regexp
}{
	{TOKEN_REGISTER, regexp.MustCompile(`^` + registerPattern + `$`)},
	{TOKEN_SYMBOL, regexp.MustCompile(`^` + identPattern + `$`)},
	{TOKEN_IMMEDIATE, regexp.MustCompile(`^\$([+-]?` + numberPattern + `)$`)},
	{TOKEN_LABEL, regexp.MustCompile(`^(` + identPattern + `):$`)},
	{TOKEN_ADDRESS, regexp.MustCompile(`^(` + numberPattern + `)$`)},
	{TOKEN_INDIRECT, regexp.MustCompile(`^([+-]?` + numberPattern + `)?\((` + registerPattern + `)\)$`)},
	{TOKEN_DIRECTIVE, regexp.MustCompile(`^\.` + identPattern + `$`)},
}

// Token is a classified, whitespace delimited word of a source line.
type Token struct {
	Text string    // Raw token text.
	Type TokenType // Lexical category.
	Pos  int       // 0-based byte offset of the token in the raw source line.

	match []int // Submatch byte indexes into Text.
}

// Classify determines the category of a word found at pos.
func Classify(text string, pos int) (tok Token) {
	tok = Token{Text: text, Type: TOKEN_INVALID, Pos: pos}

	for _, tp := range tokenPatterns {
		match := tp.Pattern.FindStringSubmatchIndex(text)
		if match != nil {
			tok.Type = tp.Type
			tok.match = match
			break
		}
	}

	return
}

// Group returns a submatch of the classifying pattern, and its offset in
// the token. Returns ok == false for an unmatched group.
func (tok Token) Group(n int) (text string, offset int, ok bool) {
	if 2*n+1 >= len(tok.match) || tok.match[2*n] < 0 {
		return
	}

	start, end := tok.match[2*n], tok.match[2*n+1]
	return tok.Text[start:end], start, true
}

// Column returns the 1-based column of the token.
func (tok Token) Column() int {
	return tok.Pos + 1
}

// Line is a single source line split into tokens.
type Line struct {
	Text   string // Raw source text.
	Code   string // Text with the comment removed and whitespace trimmed.
	Offset int    // Offset of Code in Text.

	tokens []Token
	next   int
}

// SplitLine strips the comment from a source line and splits it on whitespace.
func SplitLine(text string) (line *Line) {
	code, _, _ := strings.Cut(text, "#")
	trimmed := strings.TrimLeftFunc(code, unicode.IsSpace)

	line = &Line{
		Text:   text,
		Offset: len(code) - len(trimmed),
		Code:   strings.TrimRightFunc(trimmed, unicode.IsSpace),
	}

	start := -1
	for n, r := range line.Code {
		if unicode.IsSpace(r) {
			if start >= 0 {
				line.tokens = append(line.tokens, Classify(line.Code[start:n], line.Offset+start))
				start = -1
			}
		} else if start < 0 {
			start = n
		}
	}
	if start >= 0 {
		line.tokens = append(line.tokens, Classify(line.Code[start:], line.Offset+start))
	}

	return
}

// Empty returns true if the line has no code.
func (line *Line) Empty() bool {
	return len(line.tokens) == 0
}

// Tokens returns all tokens of the line.
func (line *Line) Tokens() []Token {
	return line.tokens
}

// HasNext returns true if unconsumed tokens remain.
func (line *Line) HasNext() bool {
	return line.next < len(line.tokens)
}

// Next consumes the next token.
func (line *Line) Next() (tok Token, ok bool) {
	if !line.HasNext() {
		return
	}

	tok = line.tokens[line.next]
	line.next++
	return tok, true
}

// Remaining consumes the rest of the line as raw text, starting directly
// after the last consumed token. Returns the text and its offset in the
// raw line.
func (line *Line) Remaining() (rest string, pos int) {
	pos = line.Offset
	if line.next > 0 {
		last := line.tokens[line.next-1]
		pos = last.Pos + len(last.Text)
	}
	line.next = len(line.tokens)

	rest = line.Code[pos-line.Offset:]
	return
}

// Skip consumes all remaining tokens, returning the first of them.
func (line *Line) Skip() (tok Token, ok bool) {
	tok, ok = line.Next()
	line.next = len(line.tokens)
	return
}

// decodeNumber decodes a signed decimal, octal (leading 0) or hex (0x) integer.
func decodeNumber(text string) (value int, err error) {
	v64, err := strconv.ParseInt(text, 0, 32)
	if err != nil {
		return
	}
	value = int(v64)
	return
}

// decodeRegister resolves a register token to its index.
func decodeRegister(text string) (reg int, ok bool) {
	switch strings.ToUpper(text) {
	case "%IP":
		return isa.REG_IP, true
	case "%BP":
		return isa.REG_BP, true
	case "%SP":
		return isa.REG_SP, true
	}

	value, err := strconv.Atoi(text[1:])
	if err != nil || value < 0 || value >= isa.REGISTER_COUNT {
		return
	}

	return value, true
}
