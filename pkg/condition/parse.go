package condition

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

type tokenKind int

const (
	tokIdent tokenKind = iota
	tokString
	tokNumber
	tokBool
	tokNull
	tokEq
	tokNeq
	tokAnd
	tokOr
	tokNot
	tokLParen
	tokRParen
)

type token struct {
	kind tokenKind
	raw  string
}

func isSpace(ch byte) bool {
	return ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r'
}

func isDelimiter(ch byte) bool {
	return isSpace(ch) || strings.IndexByte("()!=&|", ch) >= 0
}

func tokenize(input string) ([]token, error) {
	var tokens []token
	for i := 0; i < len(input); {
		ch := input[i]
		switch {
		case isSpace(ch):
			i++
		case ch == '(':
			tokens = append(tokens, token{kind: tokLParen, raw: "("})
			i++
		case ch == ')':
			tokens = append(tokens, token{kind: tokRParen, raw: ")"})
			i++
		case ch == '!':
			if i+1 < len(input) && input[i+1] == '=' {
				tokens = append(tokens, token{kind: tokNeq, raw: "!="})
				i += 2
				continue
			}
			tokens = append(tokens, token{kind: tokNot, raw: "!"})
			i++
		case ch == '=':
			if i+1 >= len(input) || input[i+1] != '=' {
				return nil, errors.New("condition: unexpected '='; use '=='")
			}
			tokens = append(tokens, token{kind: tokEq, raw: "=="})
			i += 2
		case ch == '&':
			if i+1 >= len(input) || input[i+1] != '&' {
				return nil, errors.New("condition: unexpected '&'; use '&&'")
			}
			tokens = append(tokens, token{kind: tokAnd, raw: "&&"})
			i += 2
		case ch == '|':
			if i+1 >= len(input) || input[i+1] != '|' {
				return nil, errors.New("condition: unexpected '|'; use '||'")
			}
			tokens = append(tokens, token{kind: tokOr, raw: "||"})
			i += 2
		case ch == '"' || ch == '\'':
			end := i + 1
			for end < len(input) && input[end] != ch {
				if input[end] == '\\' {
					end++
				}
				end++
			}
			if end >= len(input) {
				return nil, errors.New("condition: unterminated string literal")
			}
			raw := input[i+1 : end]
			if ch == '"' {
				unquoted, err := strconv.Unquote(`"` + raw + `"`)
				if err != nil {
					return nil, fmt.Errorf("condition: invalid string literal: %w", err)
				}
				raw = unquoted
			} else {
				raw = strings.ReplaceAll(raw, `\'`, `'`)
			}
			tokens = append(tokens, token{kind: tokString, raw: raw})
			i = end + 1
		default:
			start := i
			for i < len(input) && !isDelimiter(input[i]) {
				i++
			}
			raw := input[start:i]
			switch lower := strings.ToLower(raw); {
			case lower == "true" || lower == "false":
				tokens = append(tokens, token{kind: tokBool, raw: lower})
			case lower == "null" || lower == "nil":
				tokens = append(tokens, token{kind: tokNull, raw: "null"})
			case looksNumeric(raw):
				tokens = append(tokens, token{kind: tokNumber, raw: raw})
			default:
				tokens = append(tokens, token{kind: tokIdent, raw: raw})
			}
		}
	}
	return tokens, nil
}

func looksNumeric(raw string) bool {
	if raw == "" {
		return false
	}
	ch := raw[0]
	return (ch >= '0' && ch <= '9') || ch == '-' || ch == '+'
}

type parser struct {
	tokens []token
	pos    int
}

func parse(tokens []token) (node, error) {
	p := &parser{tokens: tokens}
	root, err := p.or()
	if err != nil {
		return nil, err
	}
	if p.pos < len(p.tokens) {
		return nil, fmt.Errorf("condition: unexpected token %q", p.tokens[p.pos].raw)
	}
	return root, nil
}

func (p *parser) match(kind tokenKind) bool {
	if p.pos < len(p.tokens) && p.tokens[p.pos].kind == kind {
		p.pos++
		return true
	}
	return false
}

func (p *parser) or() (node, error) {
	left, err := p.and()
	if err != nil {
		return nil, err
	}
	for p.match(tokOr) {
		right, err := p.and()
		if err != nil {
			return nil, err
		}
		left = orNode{left: left, right: right}
	}
	return left, nil
}

func (p *parser) and() (node, error) {
	left, err := p.unary()
	if err != nil {
		return nil, err
	}
	for p.match(tokAnd) {
		right, err := p.unary()
		if err != nil {
			return nil, err
		}
		left = andNode{left: left, right: right}
	}
	return left, nil
}

func (p *parser) unary() (node, error) {
	if p.match(tokNot) {
		inner, err := p.unary()
		if err != nil {
			return nil, err
		}
		return notNode{inner: inner}, nil
	}
	return p.primary()
}

func (p *parser) primary() (node, error) {
	if p.match(tokLParen) {
		inner, err := p.or()
		if err != nil {
			return nil, err
		}
		if !p.match(tokRParen) {
			return nil, errors.New("condition: missing closing ')'")
		}
		return inner, nil
	}

	if p.pos >= len(p.tokens) {
		return nil, errors.New("condition: unexpected end of expression")
	}
	tok := p.tokens[p.pos]
	if tok.kind != tokIdent {
		return nil, fmt.Errorf("condition: expected identifier, got %q", tok.raw)
	}
	p.pos++

	switch {
	case p.match(tokEq):
		lit, err := p.literal()
		if err != nil {
			return nil, err
		}
		return compareNode{ident: tok.raw, literal: lit}, nil
	case p.match(tokNeq):
		lit, err := p.literal()
		if err != nil {
			return nil, err
		}
		return compareNode{ident: tok.raw, negate: true, literal: lit}, nil
	}
	return truthyNode{ident: tok.raw}, nil
}

func (p *parser) literal() (literal, error) {
	if p.pos >= len(p.tokens) {
		return literal{}, errors.New("condition: missing literal")
	}
	tok := p.tokens[p.pos]
	p.pos++
	switch tok.kind {
	case tokString, tokIdent:
		// bare words compare as strings
		return literal{kind: litString, text: tok.raw}, nil
	case tokNumber:
		value, err := strconv.ParseFloat(tok.raw, 64)
		if err != nil {
			return literal{}, fmt.Errorf("condition: invalid number %q", tok.raw)
		}
		return literal{kind: litNumber, number: value, text: tok.raw}, nil
	case tokBool:
		return literal{kind: litBool, flag: tok.raw == "true", text: tok.raw}, nil
	case tokNull:
		return literal{kind: litNull, text: "null"}, nil
	default:
		return literal{}, fmt.Errorf("condition: expected literal, got %q", tok.raw)
	}
}
