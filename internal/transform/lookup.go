package transform

import (
	"fmt"
	"reflect"
	"strings"
)

func lookupTransforms() []Transform {
	return []Transform{
		{
			Type:           "lookup_map",
			RequiredParams: []string{"map"},
			Apply: func(input interface{}, params map[string]interface{}) (interface{}, error) {
				table, ok := params["map"].(map[string]interface{})
				if !ok {
					return nil, fmt.Errorf("parameter \"map\" must be an object, got %T", params["map"])
				}
				key, err := asString(input)
				if err != nil {
					return nil, err
				}
				if mapped, found := table[key]; found {
					return mapped, nil
				}
				if fallback, present := params["default"]; present {
					return fallback, nil
				}
				return nil, fmt.Errorf("no mapping for %q and no default provided", key)
			},
		},
		{
			Type:           "lookup_conditional",
			RequiredParams: []string{"operator", "value", "then", "else"},
			Apply: func(input interface{}, params map[string]interface{}) (interface{}, error) {
				operator, err := paramString(params, "operator")
				if err != nil {
					return nil, err
				}

				matched, err := evaluateCondition(input, operator, params["value"])
				if err != nil {
					return nil, err
				}
				if matched {
					return params["then"], nil
				}
				return params["else"], nil
			},
		},
	}
}

func evaluateCondition(input interface{}, operator string, value interface{}) (bool, error) {
	switch operator {
	case "equals":
		return looseEqual(input, value), nil
	case "not_equals":
		return !looseEqual(input, value), nil
	case "contains":
		s, err := asString(input)
		if err != nil {
			return false, err
		}
		sub, err := asString(value)
		if err != nil {
			return false, err
		}
		return strings.Contains(s, sub), nil
	case "greater_than", "less_than":
		a, err := asFloat(input)
		if err != nil {
			return false, err
		}
		b, err := asFloat(value)
		if err != nil {
			return false, err
		}
		if operator == "greater_than" {
			return a > b, nil
		}
		return a < b, nil
	default:
		return false, fmt.Errorf("unknown condition operator %q", operator)
	}
}

// looseEqual compares across JSON's number/string representations so that
// 5 == 5.0 == "5" behaves the way pipeline authors expect.
func looseEqual(a, b interface{}) bool {
	if reflect.DeepEqual(a, b) {
		return true
	}
	af, aerr := asFloat(a)
	bf, berr := asFloat(b)
	if aerr == nil && berr == nil {
		return af == bf
	}
	as, aerr := asString(a)
	bs, berr := asString(b)
	if aerr == nil && berr == nil {
		return as == bs
	}
	return false
}
