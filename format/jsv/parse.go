package jsv

import (
	"strings"

	"github.com/pasqal-io/textserde/shared"
)

// Deepest accepted nesting of objects and lists.
const maxNesting = 10000

type parser struct {
	input string
	pos   int
	depth int
}

// Parse a JSV document.
//
// Unquoted values become raw scalars, quoted values become strings. The
// empty document is the empty raw scalar.
func Parse(text string) (shared.Value, error) {
	p := &parser{input: text, pos: 0, depth: 0}
	v, err := p.value("")
	if err != nil {
		return nil, err
	}
	if p.pos < len(p.input) {
		return nil, p.fail("unexpected trailing data")
	}
	return v, nil
}

// Parse a JSV list. The brackets are optional, so that `a,b` and `[a,b]`
// are the same list. The empty text is the empty list.
func ParseList(text string) ([]shared.Value, error) {
	if strings.TrimSpace(text) == "" {
		return shared.List{}, nil
	}
	if text[0] != listStart {
		text = string(listStart) + text + string(listEnd)
	}
	v, err := Parse(text)
	if err != nil {
		return nil, err
	}
	list, _ := v.AsSlice()
	return list, nil
}

func (p *parser) fail(msg string) error {
	return shared.NewParseError(Name, p.input, p.pos, msg)
}

func (p *parser) peek() (byte, bool) {
	if p.pos >= len(p.input) {
		return 0, false
	}
	return p.input[p.pos], true
}

// Parse a value ending with one of `terminators` or at the end of input.
func (p *parser) value(terminators string) (shared.Value, error) {
	c, ok := p.peek()
	if !ok {
		return shared.Raw(""), nil
	}
	switch c {
	case objectStart:
		return p.object()
	case listStart:
		return p.list()
	case quote:
		text, err := p.quoted()
		if err != nil {
			return nil, err
		}
		return shared.String(text), nil
	default:
		return shared.Raw(p.raw(terminators)), nil
	}
}

func (p *parser) raw(terminators string) string {
	start := p.pos
	for p.pos < len(p.input) && strings.IndexByte(terminators, p.input[p.pos]) < 0 {
		p.pos++
	}
	return p.input[start:p.pos]
}

func (p *parser) quoted() (string, error) {
	start := p.pos
	p.pos++
	var b strings.Builder
	for {
		i := strings.IndexByte(p.input[p.pos:], quote)
		if i < 0 {
			p.pos = start
			return "", p.fail("unterminated string")
		}
		b.WriteString(p.input[p.pos : p.pos+i])
		p.pos += i + 1
		if c, ok := p.peek(); ok && c == quote {
			b.WriteByte(quote)
			p.pos++
			continue
		}
		return b.String(), nil
	}
}

// Enter an object or a list.
func (p *parser) nest() error {
	p.depth++
	if p.depth > maxNesting {
		return p.fail("maximum nesting exceeded")
	}
	return nil
}

func (p *parser) object() (shared.Value, error) {
	if err := p.nest(); err != nil {
		return nil, err
	}
	defer func() { p.depth-- }()
	start := p.pos
	p.pos++
	obj := shared.NewObject()
	if c, ok := p.peek(); ok && c == objectEnd {
		p.pos++
		return obj, nil
	}
	for {
		var key string
		if c, ok := p.peek(); ok && c == quote {
			k, err := p.quoted()
			if err != nil {
				return nil, err
			}
			key = k
		} else {
			key = p.raw(":,}")
		}
		if c, ok := p.peek(); !ok || c != keyValueSep {
			if !ok {
				p.pos = start
				return nil, p.fail("unterminated object")
			}
			return nil, p.fail("expected ':'")
		}
		p.pos++
		value, err := p.value(",}")
		if err != nil {
			return nil, err
		}
		obj.Set(key, value)
		c, ok := p.peek()
		if !ok {
			p.pos = start
			return nil, p.fail("unterminated object")
		}
		p.pos++
		switch c {
		case objectEnd:
			return obj, nil
		case itemSep:
		default:
			p.pos--
			return nil, p.fail("expected ',' or '}'")
		}
	}
}

func (p *parser) list() (shared.Value, error) {
	if err := p.nest(); err != nil {
		return nil, err
	}
	defer func() { p.depth-- }()
	start := p.pos
	p.pos++
	list := shared.List{}
	if c, ok := p.peek(); ok && c == listEnd {
		p.pos++
		return list, nil
	}
	for {
		value, err := p.value(",]")
		if err != nil {
			return nil, err
		}
		list = append(list, value)
		c, ok := p.peek()
		if !ok {
			p.pos = start
			return nil, p.fail("unterminated list")
		}
		p.pos++
		switch c {
		case listEnd:
			return list, nil
		case itemSep:
		default:
			p.pos--
			return nil, p.fail("expected ',' or ']'")
		}
	}
}
