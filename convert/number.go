package convert

import (
	"math"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/pasqal-io/textserde/config"
	"github.com/pasqal-io/textserde/shared"
)

// Format a float the way JavaScript does: shortest text that round-trips,
// exponent notation only for very small or very large magnitudes.
func FormatFloat(f float64, bits int, culture config.Culture) string {
	abs := math.Abs(f)
	format := byte('f')
	if abs != 0 {
		if bits == 64 && (abs < 1e-6 || abs >= 1e21) || bits == 32 && (float32(abs) < 1e-6 || float32(abs) >= 1e21) {
			format = 'e'
		}
	}
	b := strconv.AppendFloat(nil, f, format, -1, bits)
	if format == 'e' {
		// Clean up e-09 to e-9.
		n := len(b)
		if n >= 4 && b[n-4] == 'e' && b[n-3] == '-' && b[n-2] == '0' {
			b[n-2] = b[n-1]
			b = b[:n-1]
		}
	}
	text := string(b)
	if !culture.IsInvariant() {
		text = strings.Replace(text, ".", string(culture.DecimalSeparator), 1)
	}
	return text
}

func writeFloat(f float64, bits int, culture config.Culture) shared.Scalar {
	switch {
	case math.IsNaN(f):
		return shared.String("NaN")
	case math.IsInf(f, 1):
		return shared.String("Infinity")
	case math.IsInf(f, -1):
		return shared.String("-Infinity")
	}
	return shared.Number(FormatFloat(f, bits, culture))
}

func normalizeNumber(text string, culture config.Culture) string {
	text = strings.TrimSpace(text)
	if !culture.IsInvariant() {
		text = strings.Replace(text, string(culture.DecimalSeparator), ".", 1)
	}
	return text
}

func parseFloat(text string, bits int, culture config.Culture) (float64, error) {
	text = normalizeNumber(text, culture)
	if text == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(text, bits)
	if err != nil {
		return 0, errors.Wrap(err, "invalid number")
	}
	return f, nil
}

func parseInt(text string, bits int, culture config.Culture) (int64, error) {
	text = normalizeNumber(text, culture)
	if text == "" {
		return 0, nil
	}
	i, err := strconv.ParseInt(text, 10, bits)
	if err == nil {
		return i, nil
	}
	// Accept integral numbers written with a fraction or an exponent, e.g. "3.0" or "1e3".
	if f, ferr := strconv.ParseFloat(text, 64); ferr == nil && f == math.Trunc(f) &&
		f >= math.MinInt64 && f < math.MaxInt64 {
		i = int64(f)
		if bits < 64 && (i < -(1<<(bits-1)) || i >= 1<<(bits-1)) {
			return 0, errors.Wrap(err, "invalid integer")
		}
		return i, nil
	}
	return 0, errors.Wrap(err, "invalid integer")
}

func parseUint(text string, bits int, culture config.Culture) (uint64, error) {
	text = normalizeNumber(text, culture)
	if text == "" {
		return 0, nil
	}
	u, err := strconv.ParseUint(text, 10, bits)
	if err == nil {
		return u, nil
	}
	if f, ferr := strconv.ParseFloat(text, 64); ferr == nil && f == math.Trunc(f) && f >= 0 && f < math.MaxUint64 {
		u = uint64(f)
		if bits < 64 && u >= 1<<bits {
			return 0, errors.Wrap(err, "invalid unsigned integer")
		}
		return u, nil
	}
	return 0, errors.Wrap(err, "invalid unsigned integer")
}
