package docstore

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"
)

// Value is a Firestore typed value: an object with exactly one key naming
// its type, such as {"stringValue": "Bob"}.
type Value map[string]json.RawMessage

// GeoPoint is a decoded geoPointValue.
type GeoPoint struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// DecodeFields converts a document's fields to plain Go values.
func DecodeFields(fields map[string]Value) (map[string]any, error) {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		d, err := DecodeValue(v)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", k, err)
		}
		out[k] = d
	}
	return out, nil
}

// DecodeValue converts one typed value. Integers decode to int64, doubles to
// float64, timestamps to time.Time, bytes to []byte, references to their
// path string, arrays to []any and maps to map[string]any.
func DecodeValue(v Value) (any, error) {
	if len(v) != 1 {
		return nil, fmt.Errorf("value must have exactly one type key, got %d", len(v))
	}
	for kind, raw := range v {
		switch kind {
		case "nullValue":
			return nil, nil
		case "booleanValue":
			var b bool
			err := json.Unmarshal(raw, &b)
			return b, err
		case "stringValue", "referenceValue":
			var s string
			err := json.Unmarshal(raw, &s)
			return s, err
		case "integerValue":
			var s string
			if err := json.Unmarshal(raw, &s); err != nil {
				return nil, err
			}
			return strconv.ParseInt(s, 10, 64)
		case "doubleValue":
			return decodeDouble(raw)
		case "timestampValue":
			var s string
			if err := json.Unmarshal(raw, &s); err != nil {
				return nil, err
			}
			return time.Parse(time.RFC3339Nano, s)
		case "bytesValue":
			var s string
			if err := json.Unmarshal(raw, &s); err != nil {
				return nil, err
			}
			return base64.StdEncoding.DecodeString(s)
		case "geoPointValue":
			var g GeoPoint
			err := json.Unmarshal(raw, &g)
			return g, err
		case "arrayValue":
			var a struct {
				Values []Value `json:"values"`
			}
			if err := json.Unmarshal(raw, &a); err != nil {
				return nil, err
			}
			out := make([]any, len(a.Values))
			for i, e := range a.Values {
				d, err := DecodeValue(e)
				if err != nil {
					return nil, fmt.Errorf("index %d: %w", i, err)
				}
				out[i] = d
			}
			return out, nil
		case "mapValue":
			var m struct {
				Fields map[string]Value `json:"fields"`
			}
			if err := json.Unmarshal(raw, &m); err != nil {
				return nil, err
			}
			return DecodeFields(m.Fields)
		default:
			return nil, fmt.Errorf("unsupported value type %q", kind)
		}
	}
	return nil, nil
}

// decodeDouble accepts a JSON number or the strings NaN, Infinity and -Infinity.
func decodeDouble(raw json.RawMessage) (float64, error) {
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, err
	}
	switch s {
	case "NaN":
		return math.NaN(), nil
	case "Infinity":
		return math.Inf(1), nil
	case "-Infinity":
		return math.Inf(-1), nil
	}
	return strconv.ParseFloat(s, 64)
}
