package transform

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/formflux/formflux/internal/logging"
)

func newTestEngine() *Engine {
	return NewEngine(NewRegistry(), logging.NewNoOpLogger())
}

func TestExecute_WhenStepsChained_ThenOutputFeedsNextStep(t *testing.T) {
	// Arrange
	engine := newTestEngine()
	steps := []Step{
		{Type: "trim"},
		{Type: "lowercase"},
		{Type: "replace", Params: map[string]interface{}{"search": " ", "replacement": "-"}},
	}

	// Act
	result, err := engine.Execute(context.Background(), "  Hello World  ", steps)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "hello-world", result.Output)
	require.Len(t, result.Steps, 3)
	assert.Equal(t, "Hello World", result.Steps[0].Output)
	assert.Equal(t, "hello world", result.Steps[1].Output)
	assert.Equal(t, "hello-world", result.Steps[2].Output)
}

func TestExecute_WhenUnknownType_ThenFailsBeforeAnyStepRuns(t *testing.T) {
	// Arrange
	engine := newTestEngine()
	steps := []Step{
		{Type: "uppercase"},
		{Type: "does_not_exist"},
	}

	// Act
	result, err := engine.Execute(context.Background(), "hello", steps)

	// Assert
	assert.Nil(t, result)
	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, 1, validationErr.StepIndex)
	assert.Equal(t, "does_not_exist", validationErr.StepType)
}

func TestExecute_WhenRequiredParamMissing_ThenFailsValidation(t *testing.T) {
	// Arrange
	engine := newTestEngine()
	steps := []Step{
		{Type: "replace", Params: map[string]interface{}{"search": "a"}},
	}

	// Act
	_, err := engine.Execute(context.Background(), "abc", steps)

	// Assert
	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Contains(t, err.Error(), "replacement")
}

func TestExecute_WhenStepFailsMidway_ThenReturnsStepError(t *testing.T) {
	// Arrange
	engine := newTestEngine()
	steps := []Step{
		{Type: "trim"},
		{Type: "number_parse"},
	}

	// Act
	_, err := engine.Execute(context.Background(), "  not a number  ", steps)

	// Assert
	var stepErr *StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, 1, stepErr.StepIndex)
	assert.Equal(t, "number_parse", stepErr.StepType)
}

func TestExecute_WhenContextCancelled_ThenAborts(t *testing.T) {
	// Arrange
	engine := newTestEngine()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// Act
	_, err := engine.Execute(ctx, "hello", []Step{{Type: "uppercase"}})

	// Assert
	var stepErr *StepError
	require.ErrorAs(t, err, &stepErr)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestExecute_WhenNoSteps_ThenReturnsInputUnchanged(t *testing.T) {
	// Arrange
	engine := newTestEngine()

	// Act
	result, err := engine.Execute(context.Background(), "unchanged", nil)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "unchanged", result.Output)
	assert.Empty(t, result.Steps)
}

func TestRegistry_WhenDuplicateType_ThenRegistrationRejected(t *testing.T) {
	// Arrange
	registry := NewRegistry()

	// Act
	err := registry.Register(Transform{Type: "trim", Apply: func(input interface{}, _ map[string]interface{}) (interface{}, error) {
		return input, nil
	}})

	// Assert
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already registered")
}

func TestStringTransforms_WhenApplied_ThenBehaveAsDocumented(t *testing.T) {
	// Arrange
	engine := newTestEngine()
	cases := []struct {
		name  string
		input interface{}
		steps []Step
		want  interface{}
	}{
		{"truncate keeps short strings", "ok", []Step{{Type: "truncate", Params: map[string]interface{}{"length": 5}}}, "ok"},
		{"truncate counts runes", "héllo wörld", []Step{{Type: "truncate", Params: map[string]interface{}{"length": 5}}}, "héllo"},
		{"uppercase", "abc", []Step{{Type: "uppercase"}}, "ABC"},
		{"reverse runes", "abc", []Step{{Type: "reverse"}}, "cba"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			// Act
			result, err := engine.Execute(context.Background(), tc.input, tc.steps)

			// Assert
			require.NoError(t, err)
			assert.Equal(t, tc.want, result.Output)
		})
	}
}

func TestStripDiacritics_WhenAccentedInput_ThenReturnsBaseLetters(t *testing.T) {
	// Arrange
	engine := newTestEngine()

	// Act
	result, err := engine.Execute(context.Background(), "Café São Zürich", []Step{{Type: "strip_diacritics"}})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "Cafe Sao Zurich", result.Output)
}

func TestMapNumerals_WhenRoundTripped_ThenOriginalRestored(t *testing.T) {
	// Arrange
	engine := newTestEngine()
	steps := []Step{
		{Type: "map_numerals", Params: map[string]interface{}{"direction": "to_eastern"}},
		{Type: "map_numerals", Params: map[string]interface{}{"direction": "to_western"}},
	}

	// Act
	result, err := engine.Execute(context.Background(), "order 42, line 7", steps)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "order 42, line 7", result.Output)
	assert.Equal(t, "order ٤٢, line ٧", result.Steps[0].Output)
}

func TestDateFormat_WhenConvertingPatterns_ThenUsesNamedLayouts(t *testing.T) {
	// Arrange
	engine := newTestEngine()
	steps := []Step{
		{Type: "date_format", Params: map[string]interface{}{"from": "date", "to": "eu_date"}},
	}

	// Act
	result, err := engine.Execute(context.Background(), "2026-03-15", steps)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "15/03/2026", result.Output)
}

func TestDateFormat_WhenConvertedThereAndBack_ThenOriginalRestored(t *testing.T) {
	cases := []struct {
		name  string
		from  string
		to    string
		input string
	}{
		{name: "date and eu_date", from: "date", to: "eu_date", input: "2026-03-15"},
		{name: "us_date and eu_date", from: "us_date", to: "eu_date", input: "03/15/2026"},
		{name: "iso8601 and datetime", from: "iso8601", to: "datetime", input: "2026-03-15T09:30:00Z"},
		{name: "compact and date", from: "compact", to: "date", input: "20260315"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			// Arrange
			engine := newTestEngine()
			steps := []Step{
				{Type: "date_format", Params: map[string]interface{}{"from": tc.from, "to": tc.to}},
				{Type: "date_format", Params: map[string]interface{}{"from": tc.to, "to": tc.from}},
			}

			// Act
			result, err := engine.Execute(context.Background(), tc.input, steps)

			// Assert
			require.NoError(t, err)
			assert.Equal(t, tc.input, result.Output)
		})
	}
}

func TestDateAdd_WhenStringInput_ThenStaysString(t *testing.T) {
	// Arrange
	engine := newTestEngine()
	steps := []Step{
		{Type: "date_add", Params: map[string]interface{}{"unit": "days", "amount": 30, "format": "date"}},
	}

	// Act
	result, err := engine.Execute(context.Background(), "2026-01-15", steps)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "2026-02-14", result.Output)
}

func TestDateParse_WhenPatternUnknown_ThenFails(t *testing.T) {
	// Arrange
	engine := newTestEngine()
	steps := []Step{
		{Type: "date_parse", Params: map[string]interface{}{"format": "klingon"}},
	}

	// Act
	_, err := engine.Execute(context.Background(), "2026-01-15", steps)

	// Assert
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown date pattern")
}

func TestDateParse_WhenValid_ThenProducesTime(t *testing.T) {
	// Arrange
	engine := newTestEngine()
	steps := []Step{
		{Type: "date_parse", Params: map[string]interface{}{"format": "iso8601"}},
	}

	// Act
	result, err := engine.Execute(context.Background(), "2026-03-15T10:30:00Z", steps)

	// Assert
	require.NoError(t, err)
	parsed, ok := result.Output.(time.Time)
	require.True(t, ok)
	assert.Equal(t, 2026, parsed.Year())
	assert.Equal(t, time.March, parsed.Month())
}

func TestRound_WhenDecimalsGiven_ThenRoundsHalfAway(t *testing.T) {
	// Arrange
	engine := newTestEngine()
	steps := []Step{
		{Type: "number_parse"},
		{Type: "round", Params: map[string]interface{}{"decimals": 2}},
	}

	// Act
	result, err := engine.Execute(context.Background(), "3.14159", steps)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 3.14, result.Output)
}

func TestCurrencyFormat_WhenKnownCode_ThenFormatsAmount(t *testing.T) {
	// Arrange
	engine := newTestEngine()
	steps := []Step{
		{Type: "currency_format", Params: map[string]interface{}{"currency": "USD"}},
	}

	// Act
	result, err := engine.Execute(context.Background(), 19.99, steps)

	// Assert
	require.NoError(t, err)
	formatted, ok := result.Output.(string)
	require.True(t, ok)
	assert.Contains(t, formatted, "19.99")
}

func TestCurrencyFormat_WhenUnknownCode_ThenFails(t *testing.T) {
	// Arrange
	engine := newTestEngine()
	steps := []Step{
		{Type: "currency_format", Params: map[string]interface{}{"currency": "ZZZ"}},
	}

	// Act
	_, err := engine.Execute(context.Background(), 10.0, steps)

	// Assert
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown currency code")
}

func TestLookupMap_WhenKeyMissingWithDefault_ThenFallsBack(t *testing.T) {
	// Arrange
	engine := newTestEngine()
	steps := []Step{
		{Type: "lookup_map", Params: map[string]interface{}{
			"map":     map[string]interface{}{"gold": "priority", "silver": "standard"},
			"default": "basic",
		}},
	}

	// Act
	mapped, err := engine.Execute(context.Background(), "gold", steps)
	require.NoError(t, err)
	fallback, err2 := engine.Execute(context.Background(), "bronze", steps)

	// Assert
	require.NoError(t, err2)
	assert.Equal(t, "priority", mapped.Output)
	assert.Equal(t, "basic", fallback.Output)
}

func TestLookupMap_WhenKeyMissingWithoutDefault_ThenFails(t *testing.T) {
	// Arrange
	engine := newTestEngine()
	steps := []Step{
		{Type: "lookup_map", Params: map[string]interface{}{
			"map": map[string]interface{}{"gold": "priority"},
		}},
	}

	// Act
	_, err := engine.Execute(context.Background(), "bronze", steps)

	// Assert
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no mapping")
}

func TestLookupConditional_WhenOperatorEvaluated_ThenSelectsBranch(t *testing.T) {
	// Arrange
	engine := newTestEngine()
	cases := []struct {
		name     string
		input    interface{}
		operator string
		value    interface{}
		want     interface{}
	}{
		{"equals matches across representations", "5", "equals", 5.0, "yes"},
		{"greater_than true branch", 150.0, "greater_than", 100.0, "yes"},
		{"greater_than false branch", 50.0, "greater_than", 100.0, "no"},
		{"contains substring", "premium plan", "contains", "premium", "yes"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			steps := []Step{
				{Type: "lookup_conditional", Params: map[string]interface{}{
					"operator": tc.operator,
					"value":    tc.value,
					"then":     "yes",
					"else":     "no",
				}},
			}

			// Act
			result, err := engine.Execute(context.Background(), tc.input, steps)

			// Assert
			require.NoError(t, err)
			assert.Equal(t, tc.want, result.Output)
		})
	}
}
