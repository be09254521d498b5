package utils

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
)

// StringSlice stores a list of plain tokens (tags, envelope addresses) in a
// single comma separated column.
type StringSlice []string

func (s StringSlice) Value() (driver.Value, error) {
	if len(s) == 0 {
		return "", nil
	}
	return strings.Join(s, ","), nil
}

func (s *StringSlice) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*s = StringSlice{}
	case []byte:
		*s = splitTrimmed(string(v))
	case string:
		*s = splitTrimmed(v)
	default:
		return fmt.Errorf("unsupported Scan, storing %T into type *StringSlice", value)
	}
	return nil
}

// UnmarshalJSON accepts either a comma separated string or a JSON array.
func (s *StringSlice) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		*s = splitTrimmed(str)
		return nil
	}

	var strSlice []string
	if err := json.Unmarshal(data, &strSlice); err != nil {
		return err
	}
	*s = strSlice
	return nil
}

func (s StringSlice) Contains(value string) bool {
	for _, item := range s {
		if strings.EqualFold(item, value) {
			return true
		}
	}
	return false
}

func splitTrimmed(raw string) StringSlice {
	out := StringSlice{}
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
