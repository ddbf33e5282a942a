package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/formflux/formflux/internal/models"
)

func TestEvaluateConditions_WhenNoConditions_ThenAlwaysMatches(t *testing.T) {
	// Act
	matched, err := EvaluateConditions(nil, map[string]interface{}{"any": "thing"})

	// Assert
	require.NoError(t, err)
	assert.True(t, matched)
}

func TestEvaluateConditions_WhenOperatorsApplied_ThenMatchExpected(t *testing.T) {
	// Arrange
	data := map[string]interface{}{
		"amount":  150.0,
		"plan":    "premium-annual",
		"country": "NL",
		"note":    "",
		"customer": map[string]interface{}{
			"address": map[string]interface{}{"city": "Rotterdam"},
		},
	}

	cases := []struct {
		name      string
		condition models.Condition
		want      bool
	}{
		{"equals matches", models.Condition{Field: "country", Operator: models.OperatorEquals, Value: "NL"}, true},
		{"equals across numeric representations", models.Condition{Field: "amount", Operator: models.OperatorEquals, Value: "150"}, true},
		{"not_equals on differing value", models.Condition{Field: "country", Operator: models.OperatorNotEquals, Value: "BE"}, true},
		{"not_equals on missing field matches", models.Condition{Field: "missing", Operator: models.OperatorNotEquals, Value: "x"}, true},
		{"contains substring", models.Condition{Field: "plan", Operator: models.OperatorContains, Value: "premium"}, true},
		{"contains on non-string is false", models.Condition{Field: "amount", Operator: models.OperatorContains, Value: "1"}, false},
		{"greater_than true", models.Condition{Field: "amount", Operator: models.OperatorGreaterThan, Value: 100}, true},
		{"greater_than false at boundary", models.Condition{Field: "amount", Operator: models.OperatorGreaterThan, Value: 150}, false},
		{"less_than true", models.Condition{Field: "amount", Operator: models.OperatorLessThan, Value: 200}, true},
		{"is_empty on empty string", models.Condition{Field: "note", Operator: models.OperatorIsEmpty}, true},
		{"is_empty on missing field", models.Condition{Field: "missing", Operator: models.OperatorIsEmpty}, true},
		{"is_not_empty on present value", models.Condition{Field: "plan", Operator: models.OperatorIsNotEmpty}, true},
		{"is_not_empty on missing field", models.Condition{Field: "missing", Operator: models.OperatorIsNotEmpty}, false},
		{"dot path into nested data", models.Condition{Field: "customer.address.city", Operator: models.OperatorEquals, Value: "Rotterdam"}, true},
		{"dot path through non-object", models.Condition{Field: "plan.sub", Operator: models.OperatorEquals, Value: "x"}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			// Act
			matched, err := EvaluateConditions([]models.Condition{tc.condition}, data)

			// Assert
			require.NoError(t, err)
			assert.Equal(t, tc.want, matched)
		})
	}
}

func TestEvaluateConditions_WhenMultipleConditions_ThenAllMustMatch(t *testing.T) {
	// Arrange
	data := map[string]interface{}{"amount": 150.0, "country": "NL"}
	conditions := []models.Condition{
		{Field: "amount", Operator: models.OperatorGreaterThan, Value: 100},
		{Field: "country", Operator: models.OperatorEquals, Value: "BE"},
	}

	// Act
	matched, err := EvaluateConditions(conditions, data)

	// Assert
	require.NoError(t, err)
	assert.False(t, matched)
}

func TestEvaluateConditions_WhenOperatorUnknown_ThenReturnsError(t *testing.T) {
	// Arrange
	conditions := []models.Condition{{Field: "x", Operator: "regex_match", Value: ".*"}}

	// Act
	_, err := EvaluateConditions(conditions, map[string]interface{}{"x": "y"})

	// Assert
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown condition operator")
}

func TestEvaluateConditions_WhenGreaterThanOnNonNumeric_ThenNoMatch(t *testing.T) {
	// Arrange
	conditions := []models.Condition{{Field: "plan", Operator: models.OperatorGreaterThan, Value: 10}}

	// Act
	matched, err := EvaluateConditions(conditions, map[string]interface{}{"plan": "premium"})

	// Assert
	require.NoError(t, err)
	assert.False(t, matched)
}
