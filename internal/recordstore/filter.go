package recordstore

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// The filter language accepted on list endpoints:
//
//	expr    := and ( "||" and )*
//	and     := term ( "&&" term )*
//	term    := "(" expr ")" | ident op literal
//	op      := "=" | "!=" | ">" | ">=" | "<" | "<=" | "~"
//	literal := string | number | "true" | "false" | "null"
//
// Identifiers are validated against the collection's field whitelist and
// values are always bound as parameters; nothing from the filter string is
// ever spliced into SQL.

// filterExpr is a parsed filter tree node.
type filterExpr interface{}

// binaryFilter joins two subtrees with && or ||.
type binaryFilter struct {
	op    string // "&&" or "||"
	left  filterExpr
	right filterExpr
}

// predFilter is a single field/op/literal comparison.
type predFilter struct {
	field string
	op    string
	value filterLiteral
}

// Literal kinds.
const (
	litString = iota
	litNumber
	litBool
	litNull
)

// filterLiteral is a literal value in a filter predicate.
type filterLiteral struct {
	kind    int
	str     string
	num     float64
	boolean bool
}

// filterParser is a recursive-descent parser over a token stream.
type filterParser struct {
	tokens []filterToken
	pos    int
}

// Token kinds.
const (
	tokIdent = iota
	tokOp
	tokString
	tokNumber
	tokAnd
	tokOr
	tokLParen
	tokRParen
)

type filterToken struct {
	kind int
	text string
	num  float64
}

// parseFilter parses a filter expression into a tree.
func parseFilter(input string) (filterExpr, error) {
	tokens, err := tokenizeFilter(input)
	if err != nil {
		return nil, err
	}
	if len(tokens) == 0 {
		return nil, fmt.Errorf("empty filter")
	}
	p := &filterParser{tokens: tokens}
	expr, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.pos != len(p.tokens) {
		return nil, fmt.Errorf("unexpected token %q", p.tokens[p.pos].text)
	}
	return expr, nil
}

func tokenizeFilter(input string) ([]filterToken, error) {
	var tokens []filterToken
	runes := []rune(input)
	i := 0
	for i < len(runes) {
		r := runes[i]
		switch {
		case unicode.IsSpace(r):
			i++
		case r == '(':
			tokens = append(tokens, filterToken{kind: tokLParen, text: "("})
			i++
		case r == ')':
			tokens = append(tokens, filterToken{kind: tokRParen, text: ")"})
			i++
		case r == '&':
			if i+1 >= len(runes) || runes[i+1] != '&' {
				return nil, fmt.Errorf("expected && at position %d", i)
			}
			tokens = append(tokens, filterToken{kind: tokAnd, text: "&&"})
			i += 2
		case r == '|':
			if i+1 >= len(runes) || runes[i+1] != '|' {
				return nil, fmt.Errorf("expected || at position %d", i)
			}
			tokens = append(tokens, filterToken{kind: tokOr, text: "||"})
			i += 2
		case r == '=':
			tokens = append(tokens, filterToken{kind: tokOp, text: "="})
			i++
		case r == '~':
			tokens = append(tokens, filterToken{kind: tokOp, text: "~"})
			i++
		case r == '!':
			if i+1 >= len(runes) || runes[i+1] != '=' {
				return nil, fmt.Errorf("expected != at position %d", i)
			}
			tokens = append(tokens, filterToken{kind: tokOp, text: "!="})
			i += 2
		case r == '>' || r == '<':
			op := string(r)
			if i+1 < len(runes) && runes[i+1] == '=' {
				op += "="
				i++
			}
			tokens = append(tokens, filterToken{kind: tokOp, text: op})
			i++
		case r == '\'' || r == '"':
			value, next, errString := scanQuoted(runes, i)
			if errString != nil {
				return nil, errString
			}
			tokens = append(tokens, filterToken{kind: tokString, text: value})
			i = next
		case unicode.IsDigit(r) || (r == '-' && i+1 < len(runes) && unicode.IsDigit(runes[i+1])):
			start := i
			i++
			for i < len(runes) && (unicode.IsDigit(runes[i]) || runes[i] == '.') {
				i++
			}
			text := string(runes[start:i])
			num, errNum := strconv.ParseFloat(text, 64)
			if errNum != nil {
				return nil, fmt.Errorf("invalid number %q", text)
			}
			tokens = append(tokens, filterToken{kind: tokNumber, text: text, num: num})
		case unicode.IsLetter(r) || r == '_':
			start := i
			for i < len(runes) && (unicode.IsLetter(runes[i]) || unicode.IsDigit(runes[i]) || runes[i] == '_' || runes[i] == '.') {
				i++
			}
			tokens = append(tokens, filterToken{kind: tokIdent, text: string(runes[start:i])})
		default:
			return nil, fmt.Errorf("unexpected character %q at position %d", string(r), i)
		}
	}
	return tokens, nil
}

// scanQuoted reads a quoted string starting at runes[start], honoring
// backslash escapes, and returns the value and the index after the close
// quote.
func scanQuoted(runes []rune, start int) (string, int, error) {
	quote := runes[start]
	var sb strings.Builder
	i := start + 1
	for i < len(runes) {
		r := runes[i]
		if r == '\\' && i+1 < len(runes) {
			sb.WriteRune(runes[i+1])
			i += 2
			continue
		}
		if r == quote {
			return sb.String(), i + 1, nil
		}
		sb.WriteRune(r)
		i++
	}
	return "", 0, fmt.Errorf("unterminated string literal")
}

func (p *filterParser) parseOr() (filterExpr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.pos < len(p.tokens) && p.tokens[p.pos].kind == tokOr {
		p.pos++
		right, errRight := p.parseAnd()
		if errRight != nil {
			return nil, errRight
		}
		left = &binaryFilter{op: "||", left: left, right: right}
	}
	return left, nil
}

func (p *filterParser) parseAnd() (filterExpr, error) {
	left, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	for p.pos < len(p.tokens) && p.tokens[p.pos].kind == tokAnd {
		p.pos++
		right, errRight := p.parseTerm()
		if errRight != nil {
			return nil, errRight
		}
		left = &binaryFilter{op: "&&", left: left, right: right}
	}
	return left, nil
}

func (p *filterParser) parseTerm() (filterExpr, error) {
	if p.pos >= len(p.tokens) {
		return nil, fmt.Errorf("unexpected end of filter")
	}
	tok := p.tokens[p.pos]
	if tok.kind == tokLParen {
		p.pos++
		expr, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if p.pos >= len(p.tokens) || p.tokens[p.pos].kind != tokRParen {
			return nil, fmt.Errorf("missing closing parenthesis")
		}
		p.pos++
		return expr, nil
	}
	if tok.kind != tokIdent {
		return nil, fmt.Errorf("expected field name, got %q", tok.text)
	}
	field := tok.text
	p.pos++

	if p.pos >= len(p.tokens) || p.tokens[p.pos].kind != tokOp {
		return nil, fmt.Errorf("expected operator after %q", field)
	}
	op := p.tokens[p.pos].text
	p.pos++

	if p.pos >= len(p.tokens) {
		return nil, fmt.Errorf("expected value after %q %s", field, op)
	}
	valueTok := p.tokens[p.pos]
	p.pos++

	var lit filterLiteral
	switch valueTok.kind {
	case tokString:
		lit = filterLiteral{kind: litString, str: valueTok.text}
	case tokNumber:
		lit = filterLiteral{kind: litNumber, num: valueTok.num}
	case tokIdent:
		switch valueTok.text {
		case "true":
			lit = filterLiteral{kind: litBool, boolean: true}
		case "false":
			lit = filterLiteral{kind: litBool, boolean: false}
		case "null":
			lit = filterLiteral{kind: litNull}
		default:
			return nil, fmt.Errorf("invalid value %q", valueTok.text)
		}
	default:
		return nil, fmt.Errorf("invalid value %q", valueTok.text)
	}
	return &predFilter{field: field, op: op, value: lit}, nil
}
