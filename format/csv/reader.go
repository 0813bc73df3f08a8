package csv

import (
	"io"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/pasqal-io/textserde/shared"
)

type cell struct {
	text   string
	quoted bool
}

// Split the input into rows of cells.
//
// Rows end with the configured row separator, or with any of CRLF and LF.
func (d Driver) readRows(r io.Reader) ([][]cell, error) {
	buf, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "cannot read csv")
	}
	input := string(buf)
	sep := d.cfg.ItemSeparator
	delim := d.cfg.ItemDelimiter

	var rows [][]cell
	var row []cell
	pos := 0
	endOfRow := func() (int, bool) {
		switch {
		case strings.HasPrefix(input[pos:], d.cfg.RowSeparator):
			return len(d.cfg.RowSeparator), true
		case strings.HasPrefix(input[pos:], "\r\n"):
			return 2, true
		case strings.HasPrefix(input[pos:], "\n"):
			return 1, true
		default:
			return 0, false
		}
	}
	for pos < len(input) {
		// Start of a cell.
		var current cell
		if strings.HasPrefix(input[pos:], delim) {
			start := pos
			pos += len(delim)
			var b strings.Builder
			for {
				i := strings.Index(input[pos:], delim)
				if i < 0 {
					return nil, shared.NewParseError(Name, input, start, "unterminated quoted cell")
				}
				b.WriteString(input[pos : pos+i])
				pos += i + len(delim)
				if strings.HasPrefix(input[pos:], delim) {
					b.WriteString(delim)
					pos += len(delim)
					continue
				}
				break
			}
			current = cell{text: b.String(), quoted: true}
		} else {
			start := pos
			for pos < len(input) {
				if strings.HasPrefix(input[pos:], sep) {
					break
				}
				if _, ok := endOfRow(); ok {
					break
				}
				pos++
			}
			current = cell{text: input[start:pos], quoted: false}
		}
		row = append(row, current)

		// End of the cell.
		switch {
		case pos >= len(input):
		case strings.HasPrefix(input[pos:], sep):
			pos += len(sep)
			if pos < len(input) {
				continue
			}
			// Trailing separator: one last empty cell.
			row = append(row, cell{text: "", quoted: false})
		default:
			n, ok := endOfRow()
			if !ok {
				return nil, shared.NewParseError(Name, input, pos, "expected a separator after quoted cell")
			}
			pos += n
		}
		rows = append(rows, row)
		row = nil
	}
	return rows, nil
}

func isBlank(row []cell) bool {
	return len(row) == 1 && row[0].text == "" && !row[0].quoted
}
