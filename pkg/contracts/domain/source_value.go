package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// SourceKind records the JSON kind a field had at the source.
type SourceKind string

const (
	SourceAbsent SourceKind = "absent"
	SourceNull   SourceKind = "null"
	SourceString SourceKind = "string"
	SourceNumber SourceKind = "number"
	SourceBool   SourceKind = "bool"
	SourceOther  SourceKind = "other"
)

// SourceValue is a scalar exactly as it arrived from the data store or an
// import file. The zero value is an absent field.
type SourceValue struct {
	Kind   SourceKind
	Text   string
	Number float64
	Bool   bool
}

// Str returns a string-typed source value.
func Str(s string) SourceValue { return SourceValue{Kind: SourceString, Text: s} }

// Num returns a number-typed source value.
func Num(n float64) SourceValue { return SourceValue{Kind: SourceNumber, Number: n} }

// Null returns an explicit null source value.
func Null() SourceValue { return SourceValue{Kind: SourceNull} }

// IsMissing reports whether the field was absent or null.
func (v SourceValue) IsMissing() bool {
	return v.Kind == "" || v.Kind == SourceAbsent || v.Kind == SourceNull
}

// IsNumeric reports whether the field was number-typed at the source.
func (v SourceValue) IsNumeric() bool {
	return v.Kind == SourceNumber
}

// String renders the raw value the way it would have been displayed.
func (v SourceValue) String() string {
	switch v.Kind {
	case SourceString, SourceOther:
		return v.Text
	case SourceNumber:
		return strconv.FormatFloat(v.Number, 'f', -1, 64)
	case SourceBool:
		return strconv.FormatBool(v.Bool)
	default:
		return ""
	}
}

// UnmarshalJSON keeps the JSON kind alongside the value.
func (v *SourceValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		*v = SourceValue{Kind: SourceAbsent}
		return nil
	}

	switch data[0] {
	case 'n':
		*v = Null()
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("decode string value: %w", err)
		}
		*v = Str(s)
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return fmt.Errorf("decode bool value: %w", err)
		}
		*v = SourceValue{Kind: SourceBool, Bool: b}
	case '{', '[':
		*v = SourceValue{Kind: SourceOther, Text: string(data)}
	default:
		n, err := strconv.ParseFloat(string(data), 64)
		if err != nil {
			return fmt.Errorf("decode number value: %w", err)
		}
		*v = Num(n)
	}
	return nil
}

// MarshalJSON writes the value back in its source kind.
func (v SourceValue) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case SourceString:
		return json.Marshal(v.Text)
	case SourceNumber:
		return json.Marshal(v.Number)
	case SourceBool:
		return json.Marshal(v.Bool)
	case SourceOther:
		return []byte(v.Text), nil
	default:
		return []byte("null"), nil
	}
}
