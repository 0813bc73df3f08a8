package convert

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/pasqal-io/textserde/config"
	"github.com/pasqal-io/textserde/shared"
)

func writeTime(t time.Time, opts Options) shared.Scalar {
	if opts.DateHandler == config.DateHandlerUnixTime {
		return shared.Number(strconv.FormatInt(t.Unix(), 10))
	}
	return shared.String(t.Format(time.RFC3339Nano))
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// Parse a date written by any of the date handlers.
//
// Accepts RFC 3339 (with or without zone), date-only text, Unix seconds and
// the `/Date(milliseconds)/` form. The empty string is the zero time.
func ParseTime(text string) (time.Time, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return time.Time{}, nil
	}
	if strings.HasPrefix(text, "/Date(") && strings.HasSuffix(text, ")/") {
		return parseWCFDate(text[len("/Date(") : len(text)-len(")/")])
	}
	if isInteger(text) {
		seconds, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return time.Time{}, errors.Wrap(err, "invalid unix time")
		}
		return time.Unix(seconds, 0).UTC(), nil
	}
	for _, layout := range timeLayouts {
		if parsed, err := time.Parse(layout, text); err == nil {
			return parsed, nil
		}
	}
	return time.Time{}, errors.Newf("invalid date %q", text)
}

// e.g. "1700000000000" or "1700000000000+0100".
func parseWCFDate(body string) (time.Time, error) {
	cut := len(body)
	if i := strings.IndexAny(body[min(1, len(body)):], "+-"); i >= 0 {
		cut = i + min(1, len(body))
	}
	millis, err := strconv.ParseInt(body[:cut], 10, 64)
	if err != nil {
		return time.Time{}, errors.Wrap(err, "invalid /Date()/ value")
	}
	return time.UnixMilli(millis).UTC(), nil
}

func isInteger(text string) bool {
	if text == "" {
		return false
	}
	start := 0
	if text[0] == '-' {
		start = 1
	}
	if start == len(text) {
		return false
	}
	for _, c := range text[start:] {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

const day = 24 * time.Hour

// Format a duration with the given handler.
func FormatDuration(d time.Duration, handler config.TimeSpanHandler) string {
	if handler == config.TimeSpanHandlerStandardFormat {
		return formatStandardDuration(d)
	}
	return formatISODuration(d)
}

// e.g. "PT1H30M", "P1DT2H", "PT0.5S", "-PT5S", "PT0S".
func formatISODuration(d time.Duration) string {
	if d == 0 {
		return "PT0S"
	}
	var b strings.Builder
	if d < 0 {
		b.WriteByte('-')
		d = -d
	}
	b.WriteByte('P')
	days := d / day
	d -= days * day
	if days > 0 {
		fmt.Fprintf(&b, "%dD", days)
	}
	if d > 0 {
		b.WriteByte('T')
		hours := d / time.Hour
		d -= hours * time.Hour
		minutes := d / time.Minute
		d -= minutes * time.Minute
		if hours > 0 {
			fmt.Fprintf(&b, "%dH", hours)
		}
		if minutes > 0 {
			fmt.Fprintf(&b, "%dM", minutes)
		}
		if d > 0 {
			b.WriteString(strconv.FormatFloat(d.Seconds(), 'f', -1, 64))
			b.WriteByte('S')
		}
	}
	return b.String()
}

// e.g. "01:30:00", "1.02:00:00", "00:00:01.5000000".
func formatStandardDuration(d time.Duration) string {
	var b strings.Builder
	if d < 0 {
		b.WriteByte('-')
		d = -d
	}
	days := d / day
	d -= days * day
	if days > 0 {
		fmt.Fprintf(&b, "%d.", days)
	}
	hours := d / time.Hour
	d -= hours * time.Hour
	minutes := d / time.Minute
	d -= minutes * time.Minute
	seconds := d / time.Second
	d -= seconds * time.Second
	fmt.Fprintf(&b, "%02d:%02d:%02d", hours, minutes, seconds)
	if ticks := d / 100; ticks > 0 {
		fmt.Fprintf(&b, ".%07d", ticks)
	}
	return b.String()
}

// Parse a duration written by any of the time span handlers, or by
// `time.Duration.String`. The empty string is zero.
func ParseDuration(text string) (time.Duration, error) {
	text = strings.TrimSpace(text)
	switch {
	case text == "":
		return 0, nil
	case strings.HasPrefix(text, "P"), strings.HasPrefix(text, "-P"):
		return parseISODuration(text)
	case strings.Contains(text, ":"):
		return parseStandardDuration(text)
	default:
		d, err := time.ParseDuration(text)
		if err != nil {
			return 0, errors.Wrapf(err, "invalid duration %q", text)
		}
		return d, nil
	}
}

func parseISODuration(text string) (time.Duration, error) {
	original := text
	negative := false
	if strings.HasPrefix(text, "-") {
		negative = true
		text = text[1:]
	}
	text = strings.TrimPrefix(text, "P")
	if text == "" {
		return 0, errors.Newf("invalid duration %q", original)
	}
	var total float64
	inTime := false
	number := ""
	for _, c := range text {
		switch {
		case c == 'T':
			if inTime || number != "" {
				return 0, errors.Newf("invalid duration %q", original)
			}
			inTime = true
		case (c >= '0' && c <= '9') || c == '.' || c == ',':
			if c == ',' {
				c = '.'
			}
			number += string(c)
		default:
			value, err := strconv.ParseFloat(number, 64)
			if err != nil {
				return 0, errors.Newf("invalid duration %q", original)
			}
			var unit time.Duration
			switch {
			case !inTime && c == 'Y':
				unit = 365 * day
			case !inTime && c == 'M':
				unit = 30 * day
			case !inTime && c == 'W':
				unit = 7 * day
			case !inTime && c == 'D':
				unit = day
			case inTime && c == 'H':
				unit = time.Hour
			case inTime && c == 'M':
				unit = time.Minute
			case inTime && c == 'S':
				unit = time.Second
			default:
				return 0, errors.Newf("invalid duration %q", original)
			}
			total += value * float64(unit)
			number = ""
		}
	}
	if number != "" {
		return 0, errors.Newf("invalid duration %q", original)
	}
	result := time.Duration(total + 0.5)
	if negative {
		result = -result
	}
	return result, nil
}

func parseStandardDuration(text string) (time.Duration, error) {
	original := text
	negative := false
	if strings.HasPrefix(text, "-") {
		negative = true
		text = text[1:]
	}
	parts := strings.Split(text, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, errors.Newf("invalid duration %q", original)
	}
	var days int64
	if dot := strings.IndexByte(parts[0], '.'); dot >= 0 {
		d, err := strconv.ParseInt(parts[0][:dot], 10, 64)
		if err != nil {
			return 0, errors.Newf("invalid duration %q", original)
		}
		days = d
		parts[0] = parts[0][dot+1:]
	}
	hours, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return 0, errors.Newf("invalid duration %q", original)
	}
	minutes, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return 0, errors.Newf("invalid duration %q", original)
	}
	var seconds float64
	if len(parts) == 3 {
		seconds, err = strconv.ParseFloat(parts[2], 64)
		if err != nil {
			return 0, errors.Newf("invalid duration %q", original)
		}
	}
	result := time.Duration(days)*day +
		time.Duration(hours)*time.Hour +
		time.Duration(minutes)*time.Minute +
		time.Duration(seconds*float64(time.Second)+0.5)
	if negative {
		result = -result
	}
	return result, nil
}
