package tools

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrMissingArgument is returned when a required argument is absent or empty.
var ErrMissingArgument = errors.New("missing argument")

// Args are the LLM-supplied arguments of one call.
type Args map[string]any

// String returns a trimmed string argument.
func (a Args) String(key string) (string, error) {
	raw, ok := a[key]
	if !ok || raw == nil {
		return "", fmt.Errorf("%w: %s", ErrMissingArgument, key)
	}

	var s string
	switch v := raw.(type) {
	case string:
		s = v
	case json.Number:
		s = v.String()
	case float64:
		s = strconv.FormatFloat(v, 'f', -1, 64)
	default:
		s = fmt.Sprint(v)
	}

	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("%w: %s", ErrMissingArgument, key)
	}
	return s, nil
}

// Int64 returns an integral argument; numeric strings are accepted.
func (a Args) Int64(key string) (int64, error) {
	raw, ok := a[key]
	if !ok || raw == nil {
		return 0, fmt.Errorf("%w: %s", ErrMissingArgument, key)
	}

	switch v := raw.(type) {
	case float64:
		if v != math.Trunc(v) {
			return 0, fmt.Errorf("argument %s is not an integer: %v", key, v)
		}
		return int64(v), nil
	case int:
		return int64(v), nil
	case int64:
		return v, nil
	case json.Number:
		return v.Int64()
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("argument %s is not an integer: %q", key, v)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("argument %s has unsupported type %T", key, raw)
	}
}

// without returns a copy of a minus the given keys.
func (a Args) without(keys ...string) Args {
	out := make(Args, len(a))
	for k, v := range a {
		out[k] = v
	}
	for _, k := range keys {
		delete(out, k)
	}
	return out
}
