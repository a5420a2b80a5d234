package validate

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// MaxPasswordLen bounds the lock-screen passphrase.
const MaxPasswordLen = 128

func NonEmpty(field, v string) error {
	if v == "" {
		return fmt.Errorf("%s is required", field)
	}
	return nil
}

func MaxLen(field string, v *string, limit int) error {
	if v == nil {
		return nil
	}
	if len(*v) > limit {
		return fmt.Errorf("%s exceeds %d characters", field, limit)
	}
	return nil
}

// JSONArray checks that raw is present and is a JSON array, returning its
// elements.
func JSONArray(field string, raw json.RawMessage) ([]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, fmt.Errorf("%s is required", field)
	}
	if trimmed[0] != '[' {
		return nil, fmt.Errorf("%s must be a JSON array", field)
	}
	var out []json.RawMessage
	if err := json.Unmarshal(trimmed, &out); err != nil {
		return nil, fmt.Errorf("%s must be a JSON array", field)
	}
	for i, el := range out {
		if err := IsJSONObject(el); err != nil {
			return nil, fmt.Errorf("%s[%d] %w", field, i, err)
		}
	}
	return out, nil
}

func IsJSONObject(val interface{}) error {
	switch v := val.(type) {
	case map[string]interface{}:
		return nil
	case json.RawMessage:
		var m map[string]interface{}
		if err := json.Unmarshal(v, &m); err == nil && m != nil {
			return nil
		}
	}
	return fmt.Errorf("must be JSON object")
}

// Password validates a new lock-screen passphrase.
func Password(v string) error {
	if err := NonEmpty("password", v); err != nil {
		return err
	}
	return MaxLen("password", &v, MaxPasswordLen)
}

// Dimension parses a positive pixel size no larger than limit.
func Dimension(field, v string, limit int) (int, error) {
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer", field)
	}
	if n < 1 || n > limit {
		return 0, fmt.Errorf("%s must be between 1 and %d", field, limit)
	}
	return n, nil
}
