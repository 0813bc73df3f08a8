package logging

import (
	"reflect"

	"go.uber.org/zap"
)

const (
	FieldNameFormat = "format"
	FieldNameType   = "type"
	FieldNamePath   = "path"
)

func FieldFormat(name string) zap.Field {
	return zap.String(FieldNameFormat, name)
}

func FieldType(t reflect.Type) zap.Field {
	if t == nil {
		return zap.String(FieldNameType, "<nil>")
	}
	return zap.Stringer(FieldNameType, t)
}

func FieldPath(path string) zap.Field {
	return zap.String(FieldNamePath, path)
}
