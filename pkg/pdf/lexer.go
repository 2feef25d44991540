package pdf

import (
	"bytes"
	"fmt"
	"strconv"
)

// TokenType classifies a lexical token.
type TokenType int

const (
	TokEOF TokenType = iota
	TokNumber
	TokString
	TokHexString
	TokName
	TokKeyword
	TokArrayOpen
	TokArrayClose
	TokDictOpen
	TokDictClose
)

// Token is one lexical unit of a PDF body.
type Token struct {
	Type  TokenType
	Value []byte
	Pos   int
	Real  bool // numbers only: value contains a decimal point
}

// Lexer tokenizes a PDF byte slice.
type Lexer struct {
	data []byte
	pos  int
}

// NewLexer returns a lexer over data.
func NewLexer(data []byte) *Lexer {
	return &Lexer{data: data}
}

// Position returns the current byte offset.
func (l *Lexer) Position() int { return l.pos }

// Seek moves the lexer to an absolute byte offset.
func (l *Lexer) Seek(pos int) {
	if pos < 0 {
		pos = 0
	}
	if pos > len(l.data) {
		pos = len(l.data)
	}
	l.pos = pos
}

func isWhitespace(b byte) bool {
	switch b {
	case 0x00, 0x09, 0x0A, 0x0C, 0x0D, 0x20:
		return true
	}
	return false
}

func isDelimiter(b byte) bool {
	switch b {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}

// skipNoise advances past whitespace and comments.
func (l *Lexer) skipNoise() {
	for l.pos < len(l.data) {
		b := l.data[l.pos]
		if isWhitespace(b) {
			l.pos++
			continue
		}
		if b == '%' {
			for l.pos < len(l.data) && l.data[l.pos] != '\n' && l.data[l.pos] != '\r' {
				l.pos++
			}
			continue
		}
		return
	}
}

// Next returns the next token.
func (l *Lexer) Next() (Token, error) {
	l.skipNoise()
	if l.pos >= len(l.data) {
		return Token{Type: TokEOF, Pos: l.pos}, nil
	}

	start := l.pos
	b := l.data[l.pos]
	switch {
	case b == '[':
		l.pos++
		return Token{Type: TokArrayOpen, Pos: start}, nil
	case b == ']':
		l.pos++
		return Token{Type: TokArrayClose, Pos: start}, nil
	case b == '<':
		if l.pos+1 < len(l.data) && l.data[l.pos+1] == '<' {
			l.pos += 2
			return Token{Type: TokDictOpen, Pos: start}, nil
		}
		return l.readHexString()
	case b == '>':
		if l.pos+1 < len(l.data) && l.data[l.pos+1] == '>' {
			l.pos += 2
			return Token{Type: TokDictClose, Pos: start}, nil
		}
		return Token{}, fmt.Errorf("unexpected '>' at offset %d", start)
	case b == '(':
		return l.readLiteralString()
	case b == '/':
		return l.readName()
	case b == '+' || b == '-' || b == '.' || (b >= '0' && b <= '9'):
		return l.readNumber()
	default:
		return l.readKeyword()
	}
}

func (l *Lexer) readLiteralString() (Token, error) {
	start := l.pos
	l.pos++ // consume '('
	depth := 1
	var out []byte

	for l.pos < len(l.data) {
		b := l.data[l.pos]
		l.pos++
		switch b {
		case '(':
			depth++
			out = append(out, b)
		case ')':
			depth--
			if depth == 0 {
				return Token{Type: TokString, Value: out, Pos: start}, nil
			}
			out = append(out, b)
		case '\\':
			if l.pos >= len(l.data) {
				return Token{}, fmt.Errorf("unterminated string at offset %d", start)
			}
			e := l.data[l.pos]
			l.pos++
			switch e {
			case 'n':
				out = append(out, '\n')
			case 'r':
				out = append(out, '\r')
			case 't':
				out = append(out, '\t')
			case 'b':
				out = append(out, '\b')
			case 'f':
				out = append(out, '\f')
			case '(', ')', '\\':
				out = append(out, e)
			case '\r':
				// line continuation; swallow optional \n
				if l.pos < len(l.data) && l.data[l.pos] == '\n' {
					l.pos++
				}
			case '\n':
				// line continuation
			default:
				if e >= '0' && e <= '7' {
					v := int(e - '0')
					for i := 0; i < 2 && l.pos < len(l.data); i++ {
						c := l.data[l.pos]
						if c < '0' || c > '7' {
							break
						}
						v = v*8 + int(c-'0')
						l.pos++
					}
					out = append(out, byte(v))
				} else {
					out = append(out, e)
				}
			}
		default:
			out = append(out, b)
		}
	}
	return Token{}, fmt.Errorf("unterminated string at offset %d", start)
}

func (l *Lexer) readHexString() (Token, error) {
	start := l.pos
	l.pos++ // consume '<'
	var hex []byte
	for l.pos < len(l.data) {
		b := l.data[l.pos]
		l.pos++
		if b == '>' {
			if len(hex)%2 == 1 {
				hex = append(hex, '0')
			}
			out := make([]byte, len(hex)/2)
			for i := range out {
				hi := hexVal(hex[2*i])
				lo := hexVal(hex[2*i+1])
				if hi < 0 || lo < 0 {
					return Token{}, fmt.Errorf("invalid hex string at offset %d", start)
				}
				out[i] = byte(hi<<4 | lo)
			}
			return Token{Type: TokHexString, Value: out, Pos: start}, nil
		}
		if !isWhitespace(b) {
			hex = append(hex, b)
		}
	}
	return Token{}, fmt.Errorf("unterminated hex string at offset %d", start)
}

func hexVal(b byte) int {
	switch {
	case b >= '0' && b <= '9':
		return int(b - '0')
	case b >= 'A' && b <= 'F':
		return int(b-'A') + 10
	case b >= 'a' && b <= 'f':
		return int(b-'a') + 10
	}
	return -1
}

func (l *Lexer) readName() (Token, error) {
	start := l.pos
	l.pos++ // consume '/'
	var out []byte
	for l.pos < len(l.data) {
		b := l.data[l.pos]
		if isWhitespace(b) || isDelimiter(b) {
			break
		}
		l.pos++
		if b == '#' && l.pos+1 < len(l.data) {
			hi := hexVal(l.data[l.pos])
			lo := hexVal(l.data[l.pos+1])
			if hi >= 0 && lo >= 0 {
				out = append(out, byte(hi<<4|lo))
				l.pos += 2
				continue
			}
		}
		out = append(out, b)
	}
	return Token{Type: TokName, Value: out, Pos: start}, nil
}

func (l *Lexer) readNumber() (Token, error) {
	start := l.pos
	real := false
	if l.data[l.pos] == '+' || l.data[l.pos] == '-' {
		l.pos++
	}
	for l.pos < len(l.data) {
		b := l.data[l.pos]
		if b == '.' {
			real = true
			l.pos++
			continue
		}
		if b < '0' || b > '9' {
			break
		}
		l.pos++
	}
	return Token{Type: TokNumber, Value: l.data[start:l.pos], Pos: start, Real: real}, nil
}

func (l *Lexer) readKeyword() (Token, error) {
	start := l.pos
	for l.pos < len(l.data) {
		b := l.data[l.pos]
		if isWhitespace(b) || isDelimiter(b) {
			break
		}
		l.pos++
	}
	if l.pos == start {
		return Token{}, fmt.Errorf("unexpected byte %q at offset %d", l.data[start], start)
	}
	return Token{Type: TokKeyword, Value: l.data[start:l.pos], Pos: start}, nil
}

// ReadLine returns bytes up to the next EOL, consuming the EOL marker.
func (l *Lexer) ReadLine() []byte {
	start := l.pos
	for l.pos < len(l.data) && l.data[l.pos] != '\n' && l.data[l.pos] != '\r' {
		l.pos++
	}
	line := l.data[start:l.pos]
	if l.pos < len(l.data) && l.data[l.pos] == '\r' {
		l.pos++
	}
	if l.pos < len(l.data) && l.data[l.pos] == '\n' {
		l.pos++
	}
	return line
}

// parseNumber converts a number token to an Integer or Real object.
func parseNumber(tok Token) (Object, error) {
	if tok.Real {
		f, err := strconv.ParseFloat(string(tok.Value), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid real %q", tok.Value)
		}
		return Real(f), nil
	}
	n, err := strconv.ParseInt(string(tok.Value), 10, 64)
	if err != nil {
		// Large generation counts in damaged files; fall back to float.
		f, ferr := strconv.ParseFloat(string(tok.Value), 64)
		if ferr != nil {
			return nil, fmt.Errorf("invalid number %q", tok.Value)
		}
		return Real(f), nil
	}
	return Integer(n), nil
}

// keywordIs reports whether tok is the given bare keyword.
func keywordIs(tok Token, kw string) bool {
	return tok.Type == TokKeyword && bytes.Equal(tok.Value, []byte(kw))
}
