// Code specific to JSON.
package json

import (
	"io"

	"github.com/cockroachdb/errors"
	jsoniter "github.com/json-iterator/go"

	"github.com/pasqal-io/textserde/shared"
)

const Name = "json"

// Flush the stream once this many bytes are buffered.
const flushThreshold = 4096

var api = jsoniter.Config{ //nolint:exhaustruct
	EscapeHTML: false,
}.Froze()

// The driver for JSON.
type Driver struct{}

func (Driver) Name() string {
	return Name
}

// Write a tree as compact JSON.
//
// Raw scalars, which carry no type, are written as strings.
func (Driver) Encode(w io.Writer, v shared.Value) error {
	stream := api.BorrowStream(w)
	defer api.ReturnStream(stream)
	write(stream, v)
	if stream.Error != nil {
		return errors.Wrap(stream.Error, "cannot write json")
	}
	if err := stream.Flush(); err != nil {
		return errors.Wrap(err, "cannot write json")
	}
	return nil
}

func write(stream *jsoniter.Stream, v shared.Value) {
	switch typed := v.(type) {
	case nil, shared.Null:
		stream.WriteNil()
	case shared.Scalar:
		switch typed.Kind {
		case shared.KindNumber, shared.KindBool:
			stream.WriteRaw(typed.Text)
		default:
			stream.WriteString(typed.Text)
		}
	case shared.List:
		writeList(stream, typed)
	default:
		if slice, ok := v.AsSlice(); ok {
			writeList(stream, slice)
			return
		}
		dict, ok := v.AsDict()
		if !ok {
			stream.WriteNil()
			return
		}
		stream.WriteObjectStart()
		for i, key := range dict.Keys() {
			if i > 0 {
				stream.WriteMore()
			}
			stream.WriteObjectField(key)
			value, _ := dict.Lookup(key)
			write(stream, value)
		}
		stream.WriteObjectEnd()
	}
}

func writeList(stream *jsoniter.Stream, list []shared.Value) {
	stream.WriteArrayStart()
	for i, item := range list {
		if i > 0 {
			stream.WriteMore()
		}
		write(stream, item)
		if stream.Buffered() > flushThreshold {
			if stream.Flush() != nil {
				// Kept in stream.Error, reported by Encode.
				break
			}
		}
	}
	stream.WriteArrayEnd()
}

// Parse a JSON document.
//
// Numbers keep their original text.
func (Driver) Decode(r io.Reader) (shared.Value, error) {
	buf, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "cannot read json")
	}
	return Parse(buf)
}

// Parse a JSON document.
func Parse(buf []byte) (shared.Value, error) {
	// With a trailing newline, reaching the end of input while reading a
	// value always means that the value is truncated.
	input := make([]byte, len(buf)+1)
	copy(input, buf)
	input[len(buf)] = '\n'

	iter := api.BorrowIterator(input)
	defer api.ReturnIterator(iter)
	v := read(iter)
	if iter.Error != nil {
		if errors.Is(iter.Error, io.EOF) {
			return nil, shared.NewParseError(Name, string(buf), len(buf), "unexpected end of input")
		}
		return nil, shared.NewParseError(Name, string(buf), -1, iter.Error.Error())
	}
	if next := iter.WhatIsNext(); next != jsoniter.InvalidValue || iter.Error == nil {
		return nil, shared.NewParseError(Name, string(buf), -1, "unexpected trailing data")
	}
	return v, nil
}

func read(iter *jsoniter.Iterator) shared.Value {
	switch iter.WhatIsNext() {
	case jsoniter.StringValue:
		return shared.String(iter.ReadString())
	case jsoniter.NumberValue:
		return shared.Number(string(iter.ReadNumber()))
	case jsoniter.BoolValue:
		return shared.Bool(iter.ReadBool())
	case jsoniter.NilValue:
		iter.ReadNil()
		return shared.Null{}
	case jsoniter.ArrayValue:
		list := shared.List{}
		iter.ReadArrayCB(func(iter *jsoniter.Iterator) bool {
			list = append(list, read(iter))
			return iter.Error == nil
		})
		return list
	case jsoniter.ObjectValue:
		obj := shared.NewObject()
		iter.ReadObjectCB(func(iter *jsoniter.Iterator, key string) bool {
			obj.Set(key, read(iter))
			return iter.Error == nil
		})
		return obj
	case jsoniter.InvalidValue:
		if iter.Error == nil {
			iter.ReportError("read", "unexpected character")
		}
		return nil
	default:
		iter.ReportError("read", "unexpected value")
		return nil
	}
}

var _ shared.Driver = Driver{}
