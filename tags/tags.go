// Package tags parses the struct tags driving type shapes.
//
// A member is configured by its `text` tag, falling back to its `json` tag:
//
//	Name   string `text:"name"`            // renamed
//	Secret string `text:"-"`               // never serialized
//	Note   string `json:"note,omitempty"`  // renamed, omitted when empty
//	Count  int    `text:",field"`          // only with IncludePublicFields
//	Limit  int    `default:"10"`           // used when absent from the input
//	Base   Inner  `flatten:""`             // members promoted into the parent
package tags

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/pasqal-io/textserde/assertions/initialized"
)

// The tag keys consulted for names and options, by priority.
var NameKeys = []string{"text", "json"}

// A representation of the tags for a given field.
type Tags struct {
	// key -> [name, option...]
	tags    map[string][]string
	raw     map[string]string
	witness initialized.IsInitialized
}

func Empty() Tags {
	return Tags{
		tags:    make(map[string][]string),
		raw:     make(map[string]string),
		witness: initialized.Make(),
	}
}

// Parse the tag associated to a struct field, according to the specs
// of Go tags.
func Parse(tag reflect.StructTag) (Tags, error) {
	result := Empty()
	// Adapted from Go's reflect.StructTag.Lookup.
	for tag != "" {
		// Skip leading space.
		i := 0
		for i < len(tag) && tag[i] == ' ' {
			i++
		}
		tag = tag[i:]
		if tag == "" {
			break
		}

		// Scan to colon. A space, a quote or a control character is a syntax error.
		i = 0
		for i < len(tag) && tag[i] > ' ' && tag[i] != ':' && tag[i] != '"' && tag[i] != 0x7f {
			i++
		}
		if i == 0 || i+1 >= len(tag) || tag[i] != ':' || tag[i+1] != '"' {
			// Give up on parsing.
			break
		}
		name := string(tag[:i])
		if _, exists := result.tags[name]; exists {
			return Tags{}, fmt.Errorf("invalid tag, name %s should only be defined once", name) //nolint:exhaustruct
		}

		tag = tag[i+1:]

		// Scan quoted string to find value.
		i = 1
		for i < len(tag) && tag[i] != '"' {
			if tag[i] == '\\' {
				i++
			}
			i++
		}
		if i >= len(tag) {
			return Tags{}, errors.Newf("unterminated tag %s", name) //nolint:exhaustruct
		}
		qvalue := string(tag[:i+1])
		tag = tag[i+1:]

		value, err := strconv.Unquote(qvalue)
		if err != nil {
			return Tags{}, errors.Wrapf(err, "ill-formed tag %s", name) //nolint:exhaustruct
		}
		result.raw[name] = value

		if name == "default" {
			// Default values may legitimately contain commas.
			result.tags[name] = []string{value}
			continue
		}
		split := strings.Split(value, ",")
		entries := []string{strings.TrimSpace(split[0])}
		for _, s := range split[1:] {
			if t := strings.TrimSpace(s); t != "" {
				entries = append(entries, t)
			}
		}
		result.tags[name] = entries
	}
	return result, nil
}

// Return the default value used when the member is absent from the input.
//
// This is tag `default`.
func (tags Tags) Default() *string {
	tags.witness.Assert()
	result, ok := tags.tags["default"]
	if !ok || len(result) == 0 {
		return nil
	}
	return &result[0]
}

// Return the name given by the first of `keys` that specifies one.
//
// e.g. with `json:"foo"`, `Name("text", "json")` returns "foo".
func (tags Tags) Name(keys ...string) (string, bool) {
	tags.witness.Assert()
	for _, key := range keys {
		if entries, ok := tags.tags[key]; ok && entries[0] != "" {
			return entries[0], true
		}
	}
	return "", false
}

// Return true if the first of `keys` present is exactly "-".
func (tags Tags) IsSkipped(keys ...string) bool {
	tags.witness.Assert()
	for _, key := range keys {
		if raw, ok := tags.raw[key]; ok {
			return raw == "-"
		}
	}
	return false
}

// Return true if any of `keys` carries `option`, e.g. "omitempty".
func (tags Tags) HasOption(option string, keys ...string) bool {
	tags.witness.Assert()
	for _, key := range keys {
		entries, ok := tags.tags[key]
		if !ok {
			continue
		}
		for _, entry := range entries[1:] {
			if entry == option {
				return true
			}
		}
	}
	return false
}

// Return `true` if this field is marked as `flatten`, e.g.
//
//	type Flattening struct {
//	    A string
//	    B struct {
//	        C string
//	        D string
//	    } `flatten:""`
//	}
//
// is serialized as `{A:aaa,C:ccc,D:ddd}`.
func (tags Tags) IsFlattened() bool {
	tags.witness.Assert()
	_, ok := tags.tags["flatten"]
	return ok
}

// Lookup a key.
func (tags Tags) Lookup(key string) ([]string, bool) {
	tags.witness.Assert()
	result, ok := tags.tags[key]
	return result, ok
}
