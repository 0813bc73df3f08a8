// Package config holds the settings altering serialization behavior.
//
// A `Config` is a plain value. The package keeps a process-wide default,
// scoped overrides of that default (see `With` and `Scoped`) and a way to
// carry a configuration through a `context.Context`.
package config

import (
	"github.com/cockroachdb/errors"
	"golang.org/x/text/language"
)

// How dates are written.
type DateHandler uint8

const (
	// RFC 3339 with nanoseconds, e.g. "2024-02-01T10:00:00Z".
	DateHandlerISO8601 DateHandler = iota
	// Seconds since the Unix epoch.
	DateHandlerUnixTime
)

// How durations are written.
type TimeSpanHandler uint8

const (
	// ISO-8601 duration, e.g. "PT1H30M".
	TimeSpanHandlerDurationFormat TimeSpanHandler = iota
	// "[d.]hh:mm:ss[.fffffff]".
	TimeSpanHandlerStandardFormat
)

// How member names without an explicit rename are written.
type TextCase uint8

const (
	// The Go field name, unchanged.
	TextCaseDefault TextCase = iota
	// e.g. "userName".
	TextCaseCamelCase
	// e.g. "user_name".
	TextCaseSnakeCase
)

// A culture, as far as number formatting is concerned.
type Culture struct {
	Tag              language.Tag
	DecimalSeparator rune
}

// The culture used for every number outside of CSV.
var InvariantCulture = Culture{Tag: language.Und, DecimalSeparator: '.'}

func (c Culture) IsInvariant() bool {
	return c.DecimalSeparator == 0 || c.DecimalSeparator == '.'
}

func (c Culture) String() string {
	if c.Tag == language.Und {
		return "invariant"
	}
	return c.Tag.String()
}

// Languages writing decimals with a comma.
var commaDecimal = map[string]bool{
	"bg": true, "ca": true, "cs": true, "da": true, "de": true, "el": true,
	"es": true, "et": true, "fi": true, "fr": true, "hr": true, "hu": true,
	"id": true, "is": true, "it": true, "lt": true, "lv": true, "nb": true,
	"nl": true, "nn": true, "no": true, "pl": true, "pt": true, "ro": true,
	"ru": true, "sk": true, "sl": true, "sr": true, "sv": true, "tr": true,
	"uk": true, "vi": true,
}

// Resolve a BCP 47 tag such as "fr-FR" or "en" into a Culture.
func CultureFor(tag string) (Culture, error) {
	if tag == "" || tag == "invariant" {
		return InvariantCulture, nil
	}
	parsed, err := language.Parse(tag)
	if err != nil {
		return Culture{}, errors.Wrapf(err, "invalid culture %q", tag)
	}
	base, _ := parsed.Base()
	sep := '.'
	if commaDecimal[base.String()] {
		sep = ','
	}
	return Culture{Tag: parsed, DecimalSeparator: sep}, nil
}

// CSV-specific settings.
type CSVConfig struct {
	// Separates cells of a row. Default ",".
	ItemSeparator string
	// Wraps cells that need quoting. Default "\"".
	ItemDelimiter string
	// Terminates rows. Default "\r\n".
	RowSeparator string
	// Culture for floating point numbers.
	RealNumberCulture Culture
}

// Settings altering serialization behavior.
type Config struct {
	// Emit members whose value is null. Default false.
	IncludeNullValues bool
	// Emit null dictionary entries even when IncludeNullValues is off.
	IncludeNullValuesInDictionaries bool
	// Include members tagged `text:",field"` in type shapes.
	IncludePublicFields bool
	DateHandler         DateHandler
	TimeSpanHandler     TimeSpanHandler
	// When decoding into `any`, turn number-looking and bool-looking text
	// into numbers and bools.
	TryToParsePrimitiveTypeValues bool
	// Omit members holding their zero value.
	ExcludeDefaultValues bool
	// Write registered enums as integers rather than names.
	TreatEnumAsInteger bool
	// Write registered flags as a comma-joined list of names.
	FlagsAsNames bool
	// Do not write nor read the `__type` key naming the concrete type of
	// values held by interfaces.
	ExcludeTypeInfo bool
	TextCase        TextCase
	// Maximal nesting. 0 means unlimited.
	MaxDepth int
	CSV      CSVConfig
}

const DefaultMaxDepth = 512

// The default configuration.
func Default() Config {
	return Config{ //nolint:exhaustruct
		MaxDepth: DefaultMaxDepth,
		CSV: CSVConfig{
			ItemSeparator:     ",",
			ItemDelimiter:     "\"",
			RowSeparator:      "\r\n",
			RealNumberCulture: InvariantCulture,
		},
	}
}
