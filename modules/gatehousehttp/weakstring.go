package gatehousehttp

import (
	"encoding/json"
	"strconv"
)

// WeakString is a type that unmarshals any JSON scalar (string, number,
// or bool) as its string representation, and can be coerced back to a
// number or bool on demand. Effective-config fields such as status codes
// arrive from heterogeneous upstream config sources that may render a
// number either as a JSON number or as a quoted string; WeakString
// absorbs that without forcing a config format decision on this module.
type WeakString string

// UnmarshalJSON satisfies json.Unmarshaler.
func (ws *WeakString) UnmarshalJSON(b []byte) error {
	if len(b) == 0 {
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*ws = WeakString(s)
		return nil
	}
	*ws = WeakString(b)
	return nil
}

// MarshalJSON satisfies json.Marshaler.
func (ws WeakString) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(ws))
}

// Int parses the value as an integer.
func (ws WeakString) Int() (int, error) {
	return strconv.Atoi(string(ws))
}

// Float64 parses the value as a float.
func (ws WeakString) Float64() (float64, error) {
	return strconv.ParseFloat(string(ws), 64)
}

// Bool parses the value as a bool.
func (ws WeakString) Bool() (bool, error) {
	return strconv.ParseBool(string(ws))
}

func (ws WeakString) String() string { return string(ws) }
