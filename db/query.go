package db

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"classportal/utils"

	log "github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
)

// Condition is a single "path operator value" test against a record's JSON.
type Condition struct {
	Path          string      // gjson path, e.g. "category" or "week_number"
	Operator      string      // Base operator, lower-case, without the -insensitive suffix
	Value         interface{} // string, float64, bool or nil
	ValueType     gjson.Type
	IsInsensitive bool
	Original      string
}

// LogicalOperator joins two conditions.
type LogicalOperator string

const (
	LogicAnd LogicalOperator = "and"
	LogicOr  LogicalOperator = "or"
)

// Filter is a parsed record filter. Logic[i] applies between Conditions[i] and Conditions[i+1];
// evaluation is left to right without precedence.
type Filter struct {
	Conditions []Condition
	Logic      []LogicalOperator
}

var validOperators = map[string]bool{
	"equals": true, "notequals": true,
	"greaterthan": true, "lessthan": true,
	"greaterthanorequals": true, "lessthanorequals": true,
	"contains": true, "startswith": true, "endswith": true,
}

var insensitiveOperators = map[string]bool{
	"equals": true, "notequals": true, "contains": true, "startswith": true, "endswith": true,
}

// ParseFilter parses the raw q parameters. Conditions may alternate with explicit
// "and"/"or" parts; two conditions in a row are joined with "and".
func ParseFilter(parts []string) (*Filter, error) {
	if len(parts) == 0 {
		return nil, nil
	}

	f := &Filter{}
	expectCondition := true
	for i, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			return nil, utils.BadRequestf("Filter part %d is empty.", i)
		}

		logic := LogicalOperator(strings.ToLower(part))
		if logic == LogicAnd || logic == LogicOr {
			if expectCondition {
				return nil, utils.BadRequestf("Filter part %d: expected a condition, got '%s'.", i, part)
			}
			f.Logic = append(f.Logic, logic)
			expectCondition = true
			continue
		}

		cond, err := parseCondition(part)
		if err != nil {
			return nil, utils.BadRequestf("Invalid filter condition '%s': %v", part, err)
		}
		if !expectCondition {
			f.Logic = append(f.Logic, LogicAnd)
		}
		f.Conditions = append(f.Conditions, cond)
		expectCondition = false
	}

	if expectCondition {
		return nil, utils.BadRequestf("Filter must end with a condition, not a logical operator.")
	}
	return f, nil
}

func parseCondition(s string) (Condition, error) {
	fields := strings.Fields(s)
	if len(fields) < 3 {
		return Condition{}, fmt.Errorf("expected 'path operator value'")
	}

	path := fields[0]
	operator := strings.ToLower(fields[1])
	insensitive := false
	if strings.HasSuffix(operator, "-insensitive") {
		operator = strings.TrimSuffix(operator, "-insensitive")
		if !insensitiveOperators[operator] {
			return Condition{}, fmt.Errorf("operator '%s' has no case-insensitive form", operator)
		}
		insensitive = true
	}
	if !validOperators[operator] {
		return Condition{}, fmt.Errorf("unknown operator '%s'", fields[1])
	}

	// Keep the value's inner spacing: everything after the operator token.
	rest := strings.TrimSpace(s)[len(fields[0]):]
	rest = strings.TrimSpace(rest)[len(fields[1]):]
	rest = strings.TrimSpace(rest)
	value, valueType := parseValue(rest)

	return Condition{
		Path:          path,
		Operator:      operator,
		Value:         value,
		ValueType:     valueType,
		IsInsensitive: insensitive,
		Original:      s,
	}, nil
}

// parseValue types a literal. Numbers are checked before booleans.
func parseValue(raw string) (interface{}, gjson.Type) {
	if len(raw) >= 2 && raw[0] == '"' && raw[len(raw)-1] == '"' {
		return raw[1 : len(raw)-1], gjson.String
	}
	if raw == "null" {
		return nil, gjson.Null
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f, gjson.Number
	}
	if b, err := strconv.ParseBool(raw); err == nil {
		if b {
			return true, gjson.True
		}
		return false, gjson.False
	}
	return raw, gjson.String
}

// Match reports whether record satisfies the filter. A nil filter matches everything.
func (f *Filter) Match(record any) (bool, error) {
	if f == nil || len(f.Conditions) == 0 {
		return true, nil
	}
	raw, err := json.Marshal(record)
	if err != nil {
		return false, err
	}
	doc := string(raw)

	result, err := f.Conditions[0].eval(doc)
	if err != nil {
		return false, err
	}
	for i, logic := range f.Logic {
		next, err := f.Conditions[i+1].eval(doc)
		if err != nil {
			return false, err
		}
		if logic == LogicOr {
			result = result || next
		} else {
			result = result && next
		}
	}
	return result, nil
}

func (c Condition) eval(doc string) (bool, error) {
	target := gjson.Get(doc, c.Path)
	if !target.Exists() {
		return c.Operator == "notequals", nil
	}

	if target.IsArray() && c.Operator == "contains" {
		found := false
		target.ForEach(func(_, el gjson.Result) bool {
			found = c.scalarEquals(el)
			return !found
		})
		return found, nil
	}

	if target.Type == gjson.Null || c.ValueType == gjson.Null {
		both := target.Type == gjson.Null && c.ValueType == gjson.Null
		switch c.Operator {
		case "equals":
			return both, nil
		case "notequals":
			return !both, nil
		}
		return false, fmt.Errorf("operator '%s' cannot compare null", c.Operator)
	}

	switch target.Type {
	case gjson.String:
		return c.compareString(target.String())
	case gjson.Number:
		return c.compareNumber(target.Float())
	case gjson.True, gjson.False:
		switch c.Operator {
		case "equals", "notequals":
			b, ok := c.Value.(bool)
			if !ok {
				return c.Operator == "notequals", nil
			}
			return (target.Bool() == b) == (c.Operator == "equals"), nil
		}
		return false, fmt.Errorf("operator '%s' is invalid for booleans", c.Operator)
	}
	return false, fmt.Errorf("operator '%s' cannot compare objects or arrays", c.Operator)
}

func (c Condition) scalarEquals(el gjson.Result) bool {
	switch el.Type {
	case gjson.String:
		s, ok := c.Value.(string)
		if !ok {
			return false
		}
		if c.IsInsensitive {
			return strings.EqualFold(el.String(), s)
		}
		return el.String() == s
	case gjson.Number:
		n, ok := c.Value.(float64)
		return ok && el.Float() == n
	case gjson.True, gjson.False:
		b, ok := c.Value.(bool)
		return ok && el.Bool() == b
	case gjson.Null:
		return c.ValueType == gjson.Null
	}
	return false
}

func (c Condition) compareString(target string) (bool, error) {
	var want string
	switch v := c.Value.(type) {
	case string:
		want = v
	case float64, bool:
		// Unquoted literals such as week labels "2024" still compare as text.
		want = fmt.Sprint(v)
	}
	if c.IsInsensitive {
		target = strings.ToLower(target)
		want = strings.ToLower(want)
	}
	switch c.Operator {
	case "equals":
		return target == want, nil
	case "notequals":
		return target != want, nil
	case "contains":
		return strings.Contains(target, want), nil
	case "startswith":
		return strings.HasPrefix(target, want), nil
	case "endswith":
		return strings.HasSuffix(target, want), nil
	}
	return false, fmt.Errorf("operator '%s' is invalid for strings", c.Operator)
}

func (c Condition) compareNumber(target float64) (bool, error) {
	want, ok := c.Value.(float64)
	if !ok {
		if c.Operator == "notequals" {
			return true, nil
		}
		return false, fmt.Errorf("value '%v' is not a number", c.Value)
	}
	switch c.Operator {
	case "equals":
		return target == want, nil
	case "notequals":
		return target != want, nil
	case "greaterthan":
		return target > want, nil
	case "lessthan":
		return target < want, nil
	case "greaterthanorequals":
		return target >= want, nil
	case "lessthanorequals":
		return target <= want, nil
	}
	return false, fmt.Errorf("operator '%s' is invalid for numbers", c.Operator)
}

// applyFilter keeps the records matching f. Records the filter cannot evaluate are skipped.
func applyFilter[T any](records []T, f *Filter, id func(T) string) []T {
	if f == nil {
		return records
	}
	out := make([]T, 0, len(records))
	for _, r := range records {
		ok, err := f.Match(r)
		if err != nil {
			log.WithField("record", id(r)).Debugf("Filter not applicable, skipping record: %v", err)
			continue
		}
		if ok {
			out = append(out, r)
		}
	}
	return out
}
