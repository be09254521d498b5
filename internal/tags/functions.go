package tags

import (
	"fmt"
	"strings"

	"github.com/maja42/goval"
)

func functions() map[string]goval.ExpressionFunction {
	return map[string]goval.ExpressionFunction{
		"upper": func(args ...interface{}) (interface{}, error) {
			if len(args) != 1 {
				return nil, fmt.Errorf("upper needs 1 arg, got %d", len(args))
			}
			return strings.ToUpper(toString(args[0])), nil
		},
		"lower": func(args ...interface{}) (interface{}, error) {
			if len(args) != 1 {
				return nil, fmt.Errorf("lower needs 1 arg, got %d", len(args))
			}
			return strings.ToLower(toString(args[0])), nil
		},
		// default(value, fallback) returns fallback when value is nil or empty.
		"default": func(args ...interface{}) (interface{}, error) {
			if len(args) != 2 {
				return nil, fmt.Errorf("default needs 2 args, got %d", len(args))
			}
			if toString(args[0]) == "" {
				return args[1], nil
			}
			return args[0], nil
		},
		"trim": func(args ...interface{}) (interface{}, error) {
			if len(args) != 1 {
				return nil, fmt.Errorf("trim needs 1 arg, got %d", len(args))
			}
			return strings.TrimSpace(toString(args[0])), nil
		},
	}
}
