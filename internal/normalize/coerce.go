package normalize

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// lookup returns the first of names present in fields.
func lookup(fields map[string]any, names ...string) (any, string, bool) {
	for _, n := range names {
		if v, ok := fields[n]; ok && v != nil {
			return v, n, true
		}
	}
	return nil, names[0], false
}

func asFloat(v any) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int:
		return float64(x), nil
	case int32:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case uint32:
		return float64(x), nil
	case uint64:
		return float64(x), nil
	case json.Number:
		return x.Float64()
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, fmt.Errorf("not a number: %q", x)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("expected number, got %T", v)
	}
}

func asInt(v any) (int, error) {
	f, err := asFloat(v)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, fmt.Errorf("expected integer, got %v", v)
	}
	return int(f), nil
}

func asBool(v any) (bool, error) {
	switch x := v.(type) {
	case bool:
		return x, nil
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(x))
		if err != nil {
			return false, fmt.Errorf("not a boolean: %q", x)
		}
		return b, nil
	default:
		n, err := asInt(v)
		if err != nil || (n != 0 && n != 1) {
			return false, fmt.Errorf("expected boolean, got %T", v)
		}
		return n == 1, nil
	}
}

// asString accepts strings and integral numbers, so numeric steam ids work.
func asString(v any) (string, error) {
	switch x := v.(type) {
	case string:
		return strings.TrimSpace(x), nil
	case uint64:
		return strconv.FormatUint(x, 10), nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	case int:
		return strconv.Itoa(x), nil
	case json.Number:
		return x.String(), nil
	default:
		n, err := asInt(v)
		if err != nil {
			return "", fmt.Errorf("expected string, got %T", v)
		}
		return strconv.Itoa(n), nil
	}
}

// asStrings accepts a list of strings or one comma-separated string.
func asStrings(v any) ([]string, error) {
	switch x := v.(type) {
	case []string:
		return x, nil
	case []any:
		out := make([]string, 0, len(x))
		for _, e := range x {
			s, ok := e.(string)
			if !ok {
				return nil, fmt.Errorf("expected list of strings, found %T", e)
			}
			out = append(out, s)
		}
		return out, nil
	case string:
		if strings.TrimSpace(x) == "" {
			return nil, nil
		}
		parts := strings.Split(x, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts, nil
	default:
		return nil, fmt.Errorf("expected list, got %T", v)
	}
}
