// Code specific to CSV.
//
// A list of objects is written as a header row followed by one row per
// object. The columns are the members of the first object: later objects
// are written against the same column set. Cells holding collections are
// written `[a<sep>b]`, cells holding objects are written as JSV.
package csv

import (
	"bufio"
	"io"
	"reflect"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/samber/lo"

	"github.com/pasqal-io/textserde/config"
	"github.com/pasqal-io/textserde/convert"
	"github.com/pasqal-io/textserde/format/jsv"
	"github.com/pasqal-io/textserde/shared"
)

const Name = "csv"

// The driver for CSV.
type Driver struct {
	cfg config.CSVConfig
}

// Create a driver using the punctuation of `cfg`. Empty settings fall back
// to the defaults.
func New(cfg config.CSVConfig) Driver {
	defaults := config.Default().CSV
	if cfg.ItemSeparator == "" {
		cfg.ItemSeparator = defaults.ItemSeparator
	}
	if cfg.ItemDelimiter == "" {
		cfg.ItemDelimiter = defaults.ItemDelimiter
	}
	if cfg.RowSeparator == "" {
		cfg.RowSeparator = defaults.RowSeparator
	}
	return Driver{cfg: cfg}
}

func (d Driver) Name() string {
	return Name
}

// Write a tree as CSV, row by row.
func (d Driver) Encode(w io.Writer, v shared.Value) error {
	out := bufio.NewWriter(w)
	if err := d.encode(out, v); err != nil {
		return err
	}
	return errors.Wrap(out.Flush(), "cannot write csv")
}

func (d Driver) encode(out *bufio.Writer, v shared.Value) error {
	if shared.IsNull(v) {
		return nil
	}
	if dict, ok := v.AsDict(); ok {
		columns := dict.Keys()
		if err := d.writeRow(out, columns); err != nil {
			return err
		}
		return d.writeRow(out, d.objectRow(columns, dict))
	}
	items, ok := v.AsSlice()
	if !ok {
		return d.writeRow(out, []string{d.cellText(v)})
	}
	if len(items) == 0 {
		return nil
	}
	first, ok := items[0].AsDict()
	if !ok {
		// A list of scalars, one per row.
		for _, item := range items {
			if err := d.writeRow(out, []string{d.cellText(item)}); err != nil {
				return err
			}
		}
		return nil
	}
	columns := first.Keys()
	if err := d.writeRow(out, columns); err != nil {
		return err
	}
	for _, item := range items {
		dict, ok := item.AsDict()
		if !ok {
			if shared.IsNull(item) {
				dict = shared.NewObject()
			} else {
				return errors.Newf("cannot write %T in a csv row", item)
			}
		}
		if err := d.writeRow(out, d.objectRow(columns, dict)); err != nil {
			return err
		}
	}
	return nil
}

func (d Driver) objectRow(columns []string, dict shared.Dict) []string {
	return lo.Map(columns, func(column string, _ int) string {
		value, ok := dict.Lookup(column)
		if !ok {
			return ""
		}
		return d.cellText(value)
	})
}

// The unescaped text of a cell.
func (d Driver) cellText(v shared.Value) string {
	switch typed := v.(type) {
	case nil, shared.Null:
		return ""
	case shared.Scalar:
		return typed.Text
	}
	if items, ok := v.AsSlice(); ok {
		return "[" + strings.Join(lo.Map(items, func(item shared.Value, _ int) string {
			return jsv.Format(item)
		}), d.cfg.ItemSeparator) + "]"
	}
	return jsv.Format(v)
}

func (d Driver) writeRow(out *bufio.Writer, cells []string) error {
	line := strings.Join(lo.Map(cells, func(cell string, _ int) string {
		return d.escape(cell)
	}), d.cfg.ItemSeparator) + d.cfg.RowSeparator
	_, err := out.WriteString(line)
	return errors.Wrap(err, "cannot write csv")
}

// Wrap `text` in the delimiter if it contains the separator, the
// delimiter or a line break. Inner delimiters are doubled.
func (d Driver) escape(text string) string {
	if !strings.Contains(text, d.cfg.ItemSeparator) &&
		!strings.Contains(text, d.cfg.ItemDelimiter) &&
		!strings.ContainsAny(text, "\r\n") {
		return text
	}
	delim := d.cfg.ItemDelimiter
	return delim + strings.ReplaceAll(text, delim, delim+delim) + delim
}

// Parse CSV with a header row into a list of objects.
func (d Driver) Decode(r io.Reader) (shared.Value, error) {
	rows, err := d.readRows(r)
	if err != nil {
		return nil, err
	}
	return d.objects(rows), nil
}

// Parse CSV into a tree matching `t`.
//
// Lists of scalars have no header, one value per row. Structs and maps
// have a header and a single row. Lists of structs and maps have a header
// and one row per element.
func (d Driver) DecodeAs(r io.Reader, t reflect.Type) (shared.Value, error) {
	rows, err := d.readRows(r)
	if err != nil {
		return nil, err
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch {
	case isCollection(t) && isRecord(t.Elem()):
		return d.objects(rows), nil
	case isCollection(t):
		return shared.List(lo.FilterMap(rows, func(row []cell, _ int) (shared.Value, bool) {
			if len(row) == 0 {
				return nil, false
			}
			return d.value(row[0]), true
		})), nil
	case isRecord(t):
		objects := d.objects(rows)
		if len(objects) == 0 {
			return shared.NewObject(), nil
		}
		return objects[0], nil
	default:
		if len(rows) == 0 || len(rows[0]) == 0 {
			return shared.Raw(""), nil
		}
		return d.value(rows[0][0]), nil
	}
}

func isCollection(t reflect.Type) bool {
	return (t.Kind() == reflect.Slice || t.Kind() == reflect.Array) && !convert.IsScalar(t)
}

func isRecord(t reflect.Type) bool {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if convert.IsScalar(t) {
		return false
	}
	return t.Kind() == reflect.Struct || t.Kind() == reflect.Map || t.Kind() == reflect.Interface
}

func (d Driver) objects(rows [][]cell) shared.List {
	if len(rows) == 0 {
		return shared.List{}
	}
	header := lo.Map(rows[0], func(c cell, _ int) string { return c.text })
	result := make(shared.List, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if len(header) > 1 && isBlank(row) {
			continue
		}
		obj := shared.NewObject()
		for i, column := range header {
			if i < len(row) {
				obj.Set(column, d.value(row[i]))
			} else {
				obj.Set(column, shared.Raw(""))
			}
		}
		result = append(result, obj)
	}
	return result
}

// The tree value of a cell.
//
// Collection cells written with a custom separator are rewritten as JSV
// lists, so that they can be read like any other JSV list.
func (d Driver) value(c cell) shared.Value {
	text := c.text
	if d.cfg.ItemSeparator != "," && len(text) >= 2 && text[0] == '[' && text[len(text)-1] == ']' {
		items := splitItems(text[1:len(text)-1], d.cfg.ItemSeparator)
		text = "[" + strings.Join(items, ",") + "]"
	}
	if c.quoted && text == "" {
		return shared.String("")
	}
	return shared.Raw(text)
}

// Split `text` on `sep`, ignoring separators within JSV quotes and brackets.
func splitItems(text string, sep string) []string {
	if text == "" {
		return nil
	}
	var items []string
	depth := 0
	inQuotes := false
	start := 0
	for i := 0; i < len(text); i++ {
		switch c := text[i]; {
		case c == '"':
			inQuotes = !inQuotes
		case inQuotes:
		case c == '[' || c == '{':
			depth++
		case c == ']' || c == '}':
			depth--
		case depth == 0 && strings.HasPrefix(text[i:], sep):
			items = append(items, text[start:i])
			start = i + len(sep)
			i += len(sep) - 1
		}
	}
	return append(items, text[start:])
}

var (
	_ shared.Driver       = Driver{} //nolint:exhaustruct
	_ shared.TypedDecoder = Driver{} //nolint:exhaustruct
)
