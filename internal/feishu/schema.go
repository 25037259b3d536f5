package feishu

// FieldType is the normalized table field type. The platform reports types
// as numeric codes; everything not listed here is kept as TypeUnknown
// rather than guessed at.
type FieldType string

const (
	TypeText         FieldType = "text"
	TypeNumber       FieldType = "number"
	TypeSingleSelect FieldType = "single_select"
	TypeMultiSelect  FieldType = "multi_select"
	TypeDate         FieldType = "date"
	TypeCheckbox     FieldType = "checkbox"
	TypeUnknown      FieldType = "unknown"
)

var typeCodes = map[int]FieldType{
	1: TypeText,
	2: TypeNumber,
	3: TypeSingleSelect,
	4: TypeMultiSelect,
	5: TypeDate,
	7: TypeCheckbox,
}

// TypeFromCode normalizes the platform's numeric type code.
func TypeFromCode(code int) FieldType {
	if t, ok := typeCodes[code]; ok {
		return t
	}
	return TypeUnknown
}

// Field is one column of a table.
type Field struct {
	ID   string
	Name string
	Type FieldType
}

// Schema maps field names to their declared definitions.
type Schema map[string]Field

// TypeOf returns the declared type of a field, TypeUnknown for fields the
// schema does not list.
func (s Schema) TypeOf(name string) FieldType {
	if f, ok := s[name]; ok {
		return f.Type
	}
	return TypeUnknown
}
