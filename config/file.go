package config

import (
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/viper"
)

// Load a configuration from a YAML or JSON file.
//
// Keys are snake_case versions of the option names, e.g.
//
//	include_null_values: true
//	date_handler: unix_time
//	time_span_handler: standard
//	text_case: camel
//	csv:
//	  item_separator: ";"
//	  real_number_culture: fr-FR
//
// Missing keys keep their default value.
func LoadFile(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	switch ext := filepath.Ext(path); ext {
	case ".yaml", ".yml":
		v.SetConfigType("yaml")
	case ".json":
		v.SetConfigType("json")
	default:
		// Let viper figure it out.
	}
	if err := v.ReadInConfig(); err != nil {
		return Config{}, errors.Wrapf(err, "cannot read configuration %s", path) //nolint:exhaustruct
	}
	cfg, err := fromViper(v)
	if err != nil {
		return Config{}, errors.Wrapf(err, "in configuration %s", path) //nolint:exhaustruct
	}
	return cfg, nil
}

func fromViper(v *viper.Viper) (Config, error) {
	cfg := Default()
	bools := map[string]*bool{
		"include_null_values":                 &cfg.IncludeNullValues,
		"include_null_values_in_dictionaries": &cfg.IncludeNullValuesInDictionaries,
		"include_public_fields":               &cfg.IncludePublicFields,
		"try_to_parse_primitive_type_values":  &cfg.TryToParsePrimitiveTypeValues,
		"exclude_default_values":              &cfg.ExcludeDefaultValues,
		"treat_enum_as_integer":               &cfg.TreatEnumAsInteger,
		"flags_as_names":                      &cfg.FlagsAsNames,
		"exclude_type_info":                   &cfg.ExcludeTypeInfo,
	}
	for key, target := range bools {
		if v.IsSet(key) {
			*target = v.GetBool(key)
		}
	}
	if v.IsSet("max_depth") {
		cfg.MaxDepth = v.GetInt("max_depth")
	}

	if v.IsSet("date_handler") {
		switch name := normalize(v.GetString("date_handler")); name {
		case "iso8601", "iso":
			cfg.DateHandler = DateHandlerISO8601
		case "unixtime", "unix":
			cfg.DateHandler = DateHandlerUnixTime
		default:
			return Config{}, errors.Newf("unknown date_handler %q", name) //nolint:exhaustruct
		}
	}
	if v.IsSet("time_span_handler") {
		switch name := normalize(v.GetString("time_span_handler")); name {
		case "duration", "durationformat", "iso8601":
			cfg.TimeSpanHandler = TimeSpanHandlerDurationFormat
		case "standard", "standardformat":
			cfg.TimeSpanHandler = TimeSpanHandlerStandardFormat
		default:
			return Config{}, errors.Newf("unknown time_span_handler %q", name) //nolint:exhaustruct
		}
	}
	if v.IsSet("text_case") {
		switch name := normalize(v.GetString("text_case")); name {
		case "default", "":
			cfg.TextCase = TextCaseDefault
		case "camel", "camelcase":
			cfg.TextCase = TextCaseCamelCase
		case "snake", "snakecase":
			cfg.TextCase = TextCaseSnakeCase
		default:
			return Config{}, errors.Newf("unknown text_case %q", name) //nolint:exhaustruct
		}
	}

	if v.IsSet("csv.item_separator") {
		cfg.CSV.ItemSeparator = v.GetString("csv.item_separator")
	}
	if v.IsSet("csv.item_delimiter") {
		cfg.CSV.ItemDelimiter = v.GetString("csv.item_delimiter")
	}
	if v.IsSet("csv.row_separator") {
		cfg.CSV.RowSeparator = v.GetString("csv.row_separator")
	}
	if v.IsSet("csv.real_number_culture") {
		culture, err := CultureFor(v.GetString("csv.real_number_culture"))
		if err != nil {
			return Config{}, err //nolint:exhaustruct
		}
		cfg.CSV.RealNumberCulture = culture
	}
	if cfg.CSV.ItemSeparator == "" || cfg.CSV.ItemDelimiter == "" || cfg.CSV.RowSeparator == "" {
		return Config{}, errors.New("csv separators and delimiter must not be empty") //nolint:exhaustruct
	}
	return cfg, nil
}

func normalize(name string) string {
	return strings.NewReplacer("_", "", "-", "").Replace(strings.ToLower(strings.TrimSpace(name)))
}
