package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel written into the `route` column of an unresolvable transaction
const RouteErrorSentinel = "Error"

// TokenList is a tagged variant: either a flat list of symbols or a list of symbol lists.
// Encoded as a Python literal, e.g. ['A', 'B'] or [['A'], ['B', 'C', 'B'], []].
type TokenList struct {
	nested bool
	flat   []string
	groups [][]string
}

func Flat(tokens ...string) TokenList {
	return TokenList{flat: append([]string(nil), tokens...)}
}

func Nested(groups ...[]string) TokenList {
	cp := make([][]string, len(groups))
	for i, g := range groups {
		cp[i] = append([]string{}, g...)
	}
	return TokenList{nested: true, groups: cp}
}

func (l TokenList) IsNested() bool { return l.nested }

func (l TokenList) Tokens() []string { return l.flat }

func (l TokenList) Groups() [][]string { return l.groups }

func (l TokenList) IsEmpty() bool {
	if l.nested {
		return len(l.groups) == 0
	}
	return len(l.flat) == 0
}

func (l TokenList) String() string {
	var b strings.Builder
	if !l.nested {
		writeFlat(&b, l.flat)
		return b.String()
	}

	b.WriteByte('[')
	for i, g := range l.groups {
		if i > 0 {
			b.WriteString(", ")
		}
		writeFlat(&b, g)
	}
	b.WriteByte(']')
	return b.String()
}

func writeFlat(b *strings.Builder, tokens []string) {
	b.WriteByte('[')
	for i, t := range tokens {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(quoteToken(t))
	}
	b.WriteByte(']')
}

// Same quoting as Python repr: single quotes unless the symbol holds one and no double quote
func quoteToken(s string) string {
	if strings.Contains(s, "'") && !strings.Contains(s, `"`) {
		return `"` + strings.ReplaceAll(s, `\`, `\\`) + `"`
	}
	r := strings.NewReplacer(`\`, `\\`, `'`, `\'`)
	return "'" + r.Replace(s) + "'"
}

var errBadList = errors.New("malformed token list")

// Accepts Python and JSON literals, tuples included: ('A', 'B')
func ParseTokenList(s string) (TokenList, error) {
	p := &listParser{in: []rune(strings.TrimSpace(s))}
	if len(p.in) == 0 {
		return Flat(), nil
	}

	v, err := p.value(0)
	if err != nil {
		return TokenList{}, fmt.Errorf("%w: %q: %v", errBadList, s, err)
	}
	p.skipSpace()
	if p.pos != len(p.in) {
		return TokenList{}, fmt.Errorf("%w: trailing input in %q", errBadList, s)
	}

	items, ok := v.([]any)
	if !ok {
		return TokenList{}, fmt.Errorf("%w: %q is not a list", errBadList, s)
	}
	if len(items) == 0 {
		return Flat(), nil
	}

	if _, isList := items[0].([]any); !isList {
		flat := make([]string, 0, len(items))
		for _, it := range items {
			str, ok := it.(string)
			if !ok {
				return TokenList{}, fmt.Errorf("%w: mixed nesting in %q", errBadList, s)
			}
			flat = append(flat, str)
		}
		return Flat(flat...), nil
	}

	groups := make([][]string, 0, len(items))
	for _, it := range items {
		sub, ok := it.([]any)
		if !ok {
			return TokenList{}, fmt.Errorf("%w: mixed nesting in %q", errBadList, s)
		}
		g := make([]string, 0, len(sub))
		for _, x := range sub {
			str, ok := x.(string)
			if !ok {
				return TokenList{}, fmt.Errorf("%w: nesting deeper than two in %q", errBadList, s)
			}
			g = append(g, str)
		}
		groups = append(groups, g)
	}
	return Nested(groups...), nil
}

type listParser struct {
	in  []rune
	pos int
}

func (p *listParser) skipSpace() {
	for p.pos < len(p.in) && (p.in[p.pos] == ' ' || p.in[p.pos] == '\t' || p.in[p.pos] == '\n') {
		p.pos++
	}
}

func (p *listParser) value(depth int) (any, error) {
	if depth > 2 {
		return nil, errors.New("too deep")
	}
	p.skipSpace()
	if p.pos >= len(p.in) {
		return nil, errors.New("unexpected end")
	}

	switch c := p.in[p.pos]; c {
	case '[', '(':
		closing := ']'
		if c == '(' {
			closing = ')'
		}
		p.pos++
		items := make([]any, 0, 4)
		for {
			p.skipSpace()
			if p.pos >= len(p.in) {
				return nil, errors.New("unterminated list")
			}
			if p.in[p.pos] == closing {
				p.pos++
				return items, nil
			}
			if len(items) > 0 {
				if p.in[p.pos] != ',' {
					return nil, fmt.Errorf("expected ',' at %d", p.pos)
				}
				p.pos++
				p.skipSpace()
				// trailing comma: ('A',)
				if p.pos < len(p.in) && p.in[p.pos] == closing {
					p.pos++
					return items, nil
				}
			}
			v, err := p.value(depth + 1)
			if err != nil {
				return nil, err
			}
			items = append(items, v)
		}
	case '\'', '"':
		return p.quoted(c)
	default:
		return nil, fmt.Errorf("unexpected %q at %d", c, p.pos)
	}
}

func (p *listParser) quoted(q rune) (string, error) {
	p.pos++
	var b strings.Builder
	for p.pos < len(p.in) {
		c := p.in[p.pos]
		switch {
		case c == '\\' && p.pos+1 < len(p.in):
			b.WriteRune(p.in[p.pos+1])
			p.pos += 2
		case c == q:
			p.pos++
			return b.String(), nil
		default:
			b.WriteRune(c)
			p.pos++
		}
	}
	return "", errors.New("unterminated string")
}
