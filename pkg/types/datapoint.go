package types

import (
	"bytes"
	"encoding/json"
	"strconv"
)

type valueKind int

const (
	valueNull valueKind = iota
	valueNumber
	valueText
)

// Value is the value of a DataPoint. The cloud returns numbers for most
// variables but may return strings or null for others. The zero Value is
// null.
type Value struct {
	kind   valueKind
	number float64
	text   string
}

// Number returns a numeric Value.
func Number(f float64) Value {
	return Value{kind: valueNumber, number: f}
}

// Text returns a non-numeric Value.
func Text(s string) Value {
	return Value{kind: valueText, text: s}
}

// Null returns a Value representing JSON null.
func Null() Value {
	return Value{}
}

// Float returns the numeric value and true if the value is a number.
func (v Value) Float() (float64, bool) {
	return v.number, v.kind == valueNumber
}

// IsNull returns true if the value was null or missing.
func (v Value) IsNull() bool {
	return v.kind == valueNull
}

// String returns the textual form of the value.
func (v Value) String() string {
	switch v.kind {
	case valueNumber:
		return strconv.FormatFloat(v.number, 'f', -1, 64)
	case valueText:
		return v.text
	default:
		return ""
	}
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *Value) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*v = Null()
		return nil
	}
	switch b[0] {
	case '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*v = Text(s)
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		var f float64
		if err := json.Unmarshal(b, &f); err != nil {
			return err
		}
		*v = Number(f)
	case 't', 'f':
		var flag bool
		if err := json.Unmarshal(b, &flag); err != nil {
			return err
		}
		// booleans read as 1 and 0
		if flag {
			*v = Number(1)
		} else {
			*v = Number(0)
		}
	default:
		// objects and arrays are kept verbatim
		*v = Text(string(b))
	}
	return nil
}

// DataPoint is a single telemetry variable reported by a device.
type DataPoint struct {
	Variable string `json:"variable"`
	Value    Value  `json:"value"`
	Name     string `json:"name"`
	Unit     string `json:"unit"`
}

// DeviceRealData is one entry of the real-time query result.
type DeviceRealData struct {
	DeviceSN string      `json:"deviceSN"`
	Time     string      `json:"time"`
	Datas    []DataPoint `json:"datas"`
}
