package pdf

import (
	"bytes"
	"fmt"
)

// Parser assembles objects from a token stream.
type Parser struct {
	lex *Lexer
	// resolve lets the parser chase an indirect /Length when reading stream
	// data. May be nil; the parser then falls back to scanning for endstream.
	resolve func(Reference) (Object, error)
	peeked  []Token
}

// NewParser returns a parser over data.
func NewParser(data []byte) *Parser {
	return &Parser{lex: NewLexer(data)}
}

// NewResolvingParser returns a parser that can chase indirect references while
// reading stream data.
func NewResolvingParser(data []byte, resolve func(Reference) (Object, error)) *Parser {
	return &Parser{lex: NewLexer(data), resolve: resolve}
}

func (p *Parser) next() (Token, error) {
	if len(p.peeked) > 0 {
		tok := p.peeked[0]
		p.peeked = p.peeked[1:]
		return tok, nil
	}
	return p.lex.Next()
}

func (p *Parser) peek(n int) (Token, error) {
	for len(p.peeked) <= n {
		tok, err := p.lex.Next()
		if err != nil {
			return Token{}, err
		}
		p.peeked = append(p.peeked, tok)
	}
	return p.peeked[n], nil
}

// ParseObject parses the next complete object.
func (p *Parser) ParseObject() (Object, error) {
	tok, err := p.next()
	if err != nil {
		return nil, err
	}
	return p.parseFrom(tok)
}

func (p *Parser) parseFrom(tok Token) (Object, error) {
	switch tok.Type {
	case TokEOF:
		return nil, fmt.Errorf("unexpected end of data")
	case TokNumber:
		return p.parseNumberOrReference(tok)
	case TokString:
		return String{Value: tok.Value}, nil
	case TokHexString:
		return String{Value: tok.Value, Hex: true}, nil
	case TokName:
		return Name(tok.Value), nil
	case TokArrayOpen:
		return p.parseArray()
	case TokDictOpen:
		return p.parseDictionary()
	case TokKeyword:
		switch {
		case keywordIs(tok, "true"):
			return Boolean(true), nil
		case keywordIs(tok, "false"):
			return Boolean(false), nil
		case keywordIs(tok, "null"):
			return Null{}, nil
		}
		return nil, fmt.Errorf("unexpected keyword %q at offset %d", tok.Value, tok.Pos)
	default:
		return nil, fmt.Errorf("unexpected token at offset %d", tok.Pos)
	}
}

// parseNumberOrReference disambiguates "n" from "n g R".
func (p *Parser) parseNumberOrReference(tok Token) (Object, error) {
	num, err := parseNumber(tok)
	if err != nil {
		return nil, err
	}
	n, isInt := num.(Integer)
	if !isInt || tok.Real {
		return num, nil
	}

	gen, err := p.peek(0)
	if err != nil || gen.Type != TokNumber || gen.Real {
		return num, nil
	}
	r, err := p.peek(1)
	if err != nil || !keywordIs(r, "R") {
		return num, nil
	}

	genObj, _ := parseNumber(gen)
	g, ok := genObj.(Integer)
	if !ok {
		return num, nil
	}
	p.peeked = p.peeked[2:]
	return Reference{Number: int(n), Generation: int(g)}, nil
}

func (p *Parser) parseArray() (Array, error) {
	var arr Array
	for {
		tok, err := p.next()
		if err != nil {
			return nil, err
		}
		if tok.Type == TokArrayClose {
			return arr, nil
		}
		if tok.Type == TokEOF {
			return nil, fmt.Errorf("unterminated array")
		}
		obj, err := p.parseFrom(tok)
		if err != nil {
			return nil, err
		}
		arr = append(arr, obj)
	}
}

func (p *Parser) parseDictionary() (Dictionary, error) {
	dict := make(Dictionary)
	for {
		tok, err := p.next()
		if err != nil {
			return nil, err
		}
		if tok.Type == TokDictClose {
			return dict, nil
		}
		if tok.Type != TokName {
			return nil, fmt.Errorf("dictionary key must be a name at offset %d", tok.Pos)
		}
		val, err := p.ParseObject()
		if err != nil {
			return nil, err
		}
		dict[Name(tok.Value)] = val
	}
}

// ParseIndirectObject parses "n g obj ... endobj", returning the object number,
// generation and body. Stream bodies are captured raw.
func (p *Parser) ParseIndirectObject() (int, int, Object, error) {
	numTok, err := p.next()
	if err != nil {
		return 0, 0, nil, err
	}
	genTok, err := p.next()
	if err != nil {
		return 0, 0, nil, err
	}
	objTok, err := p.next()
	if err != nil {
		return 0, 0, nil, err
	}
	if numTok.Type != TokNumber || genTok.Type != TokNumber || !keywordIs(objTok, "obj") {
		return 0, 0, nil, fmt.Errorf("malformed indirect object header at offset %d", numTok.Pos)
	}
	numObj, _ := parseNumber(numTok)
	genObj, _ := parseNumber(genTok)
	num, _ := numObj.(Integer)
	gen, _ := genObj.(Integer)

	body, err := p.ParseObject()
	if err != nil {
		return 0, 0, nil, err
	}

	// A dictionary followed by "stream" becomes a Stream.
	if dict, ok := body.(Dictionary); ok {
		tok, err := p.peek(0)
		if err == nil && keywordIs(tok, "stream") {
			p.peeked = p.peeked[1:]
			data, err := p.readStreamData(dict, tok.Pos)
			if err != nil {
				return 0, 0, nil, err
			}
			return int(num), int(gen), Stream{Dictionary: dict, Data: data}, nil
		}
	}
	return int(num), int(gen), body, nil
}

// readStreamData reads the raw bytes between stream and endstream. The lexer
// is positioned just past the "stream" keyword token.
func (p *Parser) readStreamData(dict Dictionary, kwPos int) ([]byte, error) {
	// The keyword token was consumed through the peek buffer, so the lexer
	// offset is already past it; realign to the byte after "stream" EOL.
	pos := kwPos + len("stream")
	data := p.lex.data
	if pos < len(data) && data[pos] == '\r' {
		pos++
	}
	if pos < len(data) && data[pos] == '\n' {
		pos++
	}

	length, ok := p.streamLength(dict)
	if ok && pos+length <= len(data) {
		raw := data[pos : pos+length]
		p.lex.Seek(pos + length)
		p.peeked = nil
		// Consume the endstream keyword when present.
		if tok, err := p.peek(0); err == nil && keywordIs(tok, "endstream") {
			p.peeked = p.peeked[1:]
		}
		return raw, nil
	}

	// No usable Length; scan for the endstream marker.
	idx := bytes.Index(data[pos:], []byte("endstream"))
	if idx < 0 {
		return nil, fmt.Errorf("stream at offset %d has no endstream", kwPos)
	}
	raw := data[pos : pos+idx]
	raw = bytes.TrimRight(raw, "\r\n")
	p.lex.Seek(pos + idx + len("endstream"))
	p.peeked = nil
	return raw, nil
}

func (p *Parser) streamLength(dict Dictionary) (int, bool) {
	switch v := dict.Get("Length").(type) {
	case Integer:
		return int(v), true
	case Reference:
		if p.resolve == nil {
			return 0, false
		}
		obj, err := p.resolve(v)
		if err != nil {
			return 0, false
		}
		if n, ok := obj.(Integer); ok {
			return int(n), true
		}
	}
	return 0, false
}

// Operation is one content stream operator with its operands.
type Operation struct {
	Operator string
	Operands []Object
}

// ParseContent tokenizes a decoded content stream into operations. Inline
// image payloads (BI..ID..EI) are skipped.
func ParseContent(data []byte) ([]Operation, error) {
	p := NewParser(data)
	var ops []Operation
	var operands []Object

	for {
		tok, err := p.next()
		if err != nil {
			// Content streams from real-world files are frequently sloppy at
			// the tail; return what parsed so far.
			return ops, nil
		}
		if tok.Type == TokEOF {
			return ops, nil
		}
		if tok.Type == TokKeyword && !keywordIs(tok, "true") && !keywordIs(tok, "false") && !keywordIs(tok, "null") {
			op := string(tok.Value)
			if op == "BI" {
				if err := p.skipInlineImage(); err != nil {
					return ops, nil
				}
				operands = operands[:0]
				continue
			}
			ops = append(ops, Operation{Operator: op, Operands: append([]Object(nil), operands...)})
			operands = operands[:0]
			continue
		}
		obj, err := p.parseFrom(tok)
		if err != nil {
			return ops, nil
		}
		operands = append(operands, obj)
	}
}

// skipInlineImage advances past an inline image's binary payload.
func (p *Parser) skipInlineImage() error {
	p.peeked = nil
	idx := bytes.Index(p.lex.data[p.lex.pos:], []byte("EI"))
	if idx < 0 {
		return fmt.Errorf("unterminated inline image")
	}
	p.lex.Seek(p.lex.pos + idx + 2)
	return nil
}
