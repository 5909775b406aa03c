package database

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TimeLayouts are tried in order when a temporal column holds text.
var TimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"15:04:05",
}

// Coerce converts a driver value into the representation implied by the
// declared type. Values that cannot be converted are returned unchanged,
// the way SQLite keeps a value's storage class when affinity conversion
// would be lossy.
func Coerce(declared string, raw any) (any, error) {
	if raw == nil {
		return nil, nil
	}
	if IsJSONType(declared) {
		return toJSON(raw), nil
	}

	switch AffinityOf(declared) {
	case AffinityInteger:
		return toInteger(raw), nil
	case AffinityReal:
		return toReal(raw), nil
	case AffinityText:
		return toText(raw), nil
	case AffinityBoolean:
		return toBool(raw), nil
	case AffinityTemporal:
		return toTime(raw), nil
	case AffinityNumeric:
		return toNumeric(raw), nil
	default:
		return raw, nil
	}
}

func toInteger(raw any) any {
	switch v := raw.(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case int32:
		return int64(v)
	case int16:
		return int64(v)
	case int8:
		return int64(v)
	case uint32:
		return int64(v)
	case float64:
		if v == float64(int64(v)) {
			return int64(v)
		}
		return v
	case bool:
		if v {
			return int64(1)
		}
		return int64(0)
	case []byte:
		return toInteger(string(v))
	case string:
		s := strings.TrimSpace(v)
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil && f == float64(int64(f)) {
			return int64(f)
		}
		return v
	default:
		return raw
	}
}

func toReal(raw any) any {
	switch v := raw.(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int64:
		return float64(v)
	case int:
		return float64(v)
	case int32:
		return float64(v)
	case []byte:
		return toReal(string(v))
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			return f
		}
		return v
	default:
		return raw
	}
}

func toText(raw any) any {
	switch v := raw.(type) {
	case string:
		return v
	case []byte:
		return string(v)
	case time.Time:
		return v.Format(time.RFC3339Nano)
	default:
		return fmt.Sprint(v)
	}
}

// toJSON keeps JSON documents as their text. Decoded values are encoded
// back rather than printed with Go syntax.
func toJSON(raw any) any {
	switch v := raw.(type) {
	case string:
		return v
	case []byte:
		return string(v)
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return raw
		}
		return string(b)
	}
}

func toBool(raw any) any {
	switch v := raw.(type) {
	case bool:
		return v
	case int64:
		return v != 0
	case int:
		return v != 0
	case float64:
		return v != 0
	case []byte:
		return toBool(string(v))
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "t", "true", "y", "yes", "on":
			return true
		case "0", "f", "false", "n", "no", "off":
			return false
		}
		return v
	default:
		return raw
	}
}

func toTime(raw any) any {
	switch v := raw.(type) {
	case time.Time:
		return v
	case []byte:
		return toTime(string(v))
	case string:
		s := strings.TrimSpace(v)
		for _, layout := range TimeLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t
			}
		}
		return v
	default:
		return raw
	}
}

func toNumeric(raw any) any {
	switch v := raw.(type) {
	case []byte:
		return toNumeric(string(v))
	case string:
		s := strings.TrimSpace(v)
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
		return v
	case float64:
		if v == float64(int64(v)) {
			return int64(v)
		}
		return v
	case int:
		return int64(v)
	case int32:
		return int64(v)
	default:
		return raw
	}
}
