// Package tags substitutes ${ expression } tags in template text with values
// computed from a record.
package tags

import (
	"errors"
	"fmt"
	"strings"

	"github.com/maja42/goval"

	"godsendjoseph.dev/mail-wizard/internal/models"
)

const (
	openTag  = "${"
	closeTag = '}'
)

var ErrUnterminatedTag = errors.New("unterminated tag")

// Evaluator renders template text against a record. The zero value is not
// usable, use New.
type Evaluator struct {
	functions map[string]goval.ExpressionFunction
}

func New() *Evaluator {
	return &Evaluator{functions: functions()}
}

// HasTags reports whether text contains at least one tag.
func HasTags(text string) bool {
	return strings.Contains(text, openTag)
}

// Evaluate returns text with every tag replaced by the string form of its
// expression evaluated against record. Text without tags is returned as is.
func (e *Evaluator) Evaluate(text string, record *models.Record) (string, error) {
	if !HasTags(text) {
		return text, nil
	}

	variables := variablesFor(record)

	var out strings.Builder
	rest := text
	for {
		start := strings.Index(rest, openTag)
		if start < 0 {
			out.WriteString(rest)
			break
		}
		out.WriteString(rest[:start])

		body := rest[start+len(openTag):]
		end := matchingBrace(body)
		if end < 0 {
			return "", fmt.Errorf("%w at offset %d", ErrUnterminatedTag, len(text)-len(rest)+start)
		}

		expr := strings.TrimSpace(body[:end])
		value, err := e.evaluateExpression(expr, variables)
		if err != nil {
			return "", err
		}
		out.WriteString(value)

		rest = body[end+1:]
	}

	return out.String(), nil
}

func (e *Evaluator) evaluateExpression(expr string, variables map[string]interface{}) (string, error) {
	if expr == "" {
		return "", nil
	}

	// evaluators are never shared between goroutines
	eval := goval.NewEvaluator()
	result, err := eval.Evaluate(expr, variables, e.functions)
	if err != nil {
		return "", fmt.Errorf("failed to evaluate tag %q: %w", expr, err)
	}

	return toString(result), nil
}

func variablesFor(record *models.Record) map[string]interface{} {
	values := map[string]interface{}{}
	variables := map[string]interface{}{
		"record": values,
		"id":     0,
		"model":  "",
	}
	if record == nil {
		return variables
	}

	for k, v := range record.Values {
		values[k] = v
	}
	variables["id"] = int(record.ID)
	variables["model"] = record.Model

	return variables
}

// matchingBrace returns the index of the brace closing a tag body, skipping
// braces nested in the expression or quoted in string literals.
func matchingBrace(body string) int {
	depth := 0
	var quote rune
	escaped := false

	for i, r := range body {
		switch {
		case escaped:
			escaped = false
		case quote != 0:
			if r == '\\' {
				escaped = true
			} else if r == quote {
				quote = 0
			}
		case r == '"' || r == '\'':
			quote = r
		case r == '{':
			depth++
		case r == closeTag:
			if depth == 0 {
				return i
			}
			depth--
		}
	}

	return -1
}

func toString(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		if v == float64(int64(v)) {
			return fmt.Sprintf("%d", int64(v))
		}
		return fmt.Sprint(v)
	default:
		return fmt.Sprint(v)
	}
}
