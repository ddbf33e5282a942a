package pipeline

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/formflux/formflux/internal/models"
)

// EvaluateConditions applies all trigger conditions with AND semantics.
// A trigger with no conditions always matches.
func EvaluateConditions(conditions []models.Condition, data map[string]interface{}) (bool, error) {
	for _, cond := range conditions {
		matched, err := evaluate(cond, data)
		if err != nil {
			return false, err
		}
		if !matched {
			return false, nil
		}
	}
	return true, nil
}

func evaluate(cond models.Condition, data map[string]interface{}) (bool, error) {
	value, found := lookupPath(data, cond.Field)

	switch cond.Operator {
	case models.OperatorIsEmpty:
		return !found || isEmpty(value), nil
	case models.OperatorIsNotEmpty:
		return found && !isEmpty(value), nil
	case models.OperatorEquals:
		return found && valuesEqual(value, cond.Value), nil
	case models.OperatorNotEquals:
		return !found || !valuesEqual(value, cond.Value), nil
	case models.OperatorContains:
		if !found {
			return false, nil
		}
		haystack, ok := value.(string)
		if !ok {
			return false, nil
		}
		needle := fmt.Sprintf("%v", cond.Value)
		return strings.Contains(haystack, needle), nil
	case models.OperatorGreaterThan, models.OperatorLessThan:
		if !found {
			return false, nil
		}
		a, aok := toNumber(value)
		b, bok := toNumber(cond.Value)
		if !aok || !bok {
			return false, nil
		}
		if cond.Operator == models.OperatorGreaterThan {
			return a > b, nil
		}
		return a < b, nil
	default:
		return false, fmt.Errorf("unknown condition operator %q", cond.Operator)
	}
}

// lookupPath resolves a dot path ("customer.address.city") in event data.
func lookupPath(data map[string]interface{}, path string) (interface{}, bool) {
	if path == "" {
		return nil, false
	}

	parts := strings.Split(path, ".")
	var current interface{} = data
	for _, part := range parts {
		m, ok := current.(map[string]interface{})
		if !ok {
			return nil, false
		}
		current, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

func isEmpty(value interface{}) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return v == ""
	case []interface{}:
		return len(v) == 0
	case map[string]interface{}:
		return len(v) == 0
	default:
		return false
	}
}

func valuesEqual(a, b interface{}) bool {
	if reflect.DeepEqual(a, b) {
		return true
	}
	// JSON decoding yields float64 for every number; configs may carry ints
	// or numeric strings for the same logical value.
	af, aok := toNumber(a)
	bf, bok := toNumber(b)
	if aok && bok {
		return af == bf
	}
	return fmt.Sprintf("%v", a) == fmt.Sprintf("%v", b)
}

func toNumber(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}
