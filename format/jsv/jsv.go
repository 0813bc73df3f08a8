// Code specific to JSV, a compact JSON-like format.
//
// Objects are written `{Key:Value,...}`, lists `[a,b]`. Values are only
// quoted when they contain syntax characters, with inner quotes doubled.
// Unquoted values carry no type: they are parsed as raw scalars and
// converted once the target type is known.
package jsv

import (
	"io"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/pasqal-io/textserde/shared"
)

const Name = "jsv"

const (
	quote        = '"'
	objectStart  = '{'
	objectEnd    = '}'
	listStart    = '['
	listEnd      = ']'
	itemSep      = ','
	keyValueSep  = ':'
	escapedChars = "\",{}[]\r\n\t"
)

// The driver for JSV.
type Driver struct{}

func (Driver) Name() string {
	return Name
}

func (Driver) Encode(w io.Writer, v shared.Value) error {
	var b strings.Builder
	write(&b, v)
	_, err := io.WriteString(w, b.String())
	return errors.Wrap(err, "cannot write jsv")
}

func (Driver) Decode(r io.Reader) (shared.Value, error) {
	buf, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "cannot read jsv")
	}
	return Parse(string(buf))
}

var _ shared.Driver = Driver{}

// Format a tree as JSV.
func Format(v shared.Value) string {
	var b strings.Builder
	write(&b, v)
	return b.String()
}

func write(b *strings.Builder, v shared.Value) {
	switch typed := v.(type) {
	case nil, shared.Null:
		// Null is the empty value.
	case shared.Scalar:
		switch typed.Kind {
		case shared.KindString:
			writeString(b, typed.Text, false)
		case shared.KindRaw:
			if typed.Text != "" {
				writeString(b, typed.Text, false)
			}
		default:
			// Numbers may hold a culture-specific decimal comma.
			if strings.ContainsAny(typed.Text, escapedChars) {
				writeString(b, typed.Text, false)
			} else {
				b.WriteString(typed.Text)
			}
		}
	case shared.List:
		b.WriteByte(listStart)
		for i, item := range typed {
			if i > 0 {
				b.WriteByte(itemSep)
			}
			write(b, item)
		}
		b.WriteByte(listEnd)
	default:
		if slice, ok := v.AsSlice(); ok {
			write(b, shared.List(slice))
			return
		}
		dict, ok := v.AsDict()
		if !ok {
			writeString(b, "", false)
			return
		}
		b.WriteByte(objectStart)
		for i, key := range dict.Keys() {
			if i > 0 {
				b.WriteByte(itemSep)
			}
			writeString(b, key, true)
			b.WriteByte(keyValueSep)
			value, _ := dict.Lookup(key)
			write(b, value)
		}
		b.WriteByte(objectEnd)
	}
}

// Return true if `s` must be quoted.
func NeedsQuotes(s string, isKey bool) bool {
	if s == "" {
		return true
	}
	if strings.ContainsAny(s, escapedChars) {
		return true
	}
	if isKey && strings.ContainsRune(s, keyValueSep) {
		return true
	}
	return s[0] == ' ' || s[len(s)-1] == ' '
}

func writeString(b *strings.Builder, s string, isKey bool) {
	if !NeedsQuotes(s, isKey) {
		b.WriteString(s)
		return
	}
	b.WriteByte(quote)
	b.WriteString(strings.ReplaceAll(s, `"`, `""`))
	b.WriteByte(quote)
}
