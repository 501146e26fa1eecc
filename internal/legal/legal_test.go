package legal

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const sampleRuleSet = `
country_code: XX
country_name: Testland
version: "1.0"
rules:
  - id: no-build-in-protected
    name: No construction within protected overlap
    severity: critical
    condition:
      protected_overlap_pct:
        gt: 0
    message_template: "protected overlap is {protected_overlap_pct}"
  - id: low-impervious
    name: Impervious ratio bound
    severity: warning
    condition:
      and:
        - impervious_ratio:
            gt: 50
        - net_emissions_balance:
            gt: 100
  - id: expr-form
    name: Expression form rule
    severity: informational
    jsonlogic: "shannon_diversity_index < 0.5"
`

func TestLoadRuleSetParsesConditionsAndJSONLogic(t *testing.T) {
	rs, err := LoadRuleSet([]byte(sampleRuleSet))
	require.NoError(t, err)
	require.Equal(t, "XX", rs.CountryCode)
	require.Len(t, rs.Rules, 3)
}

func TestEvaluatePartitionsBySeverity(t *testing.T) {
	rs, err := LoadRuleSet([]byte(sampleRuleSet))
	require.NoError(t, err)

	metrics := map[string]float64{
		"protected_overlap_pct":   10,
		"impervious_ratio":        20,
		"net_emissions_balance":   5,
		"shannon_diversity_index": 0.2,
	}
	result, err := Evaluate(rs, metrics)
	require.NoError(t, err)

	require.False(t, result.OverallCompliant)
	require.Len(t, result.CriticalViolations, 1)
	require.Empty(t, result.Warnings)
	require.Len(t, result.Informational, 1)
}

func TestEvaluateCompliantWhenAllPass(t *testing.T) {
	rs, err := LoadRuleSet([]byte(sampleRuleSet))
	require.NoError(t, err)

	metrics := map[string]float64{
		"protected_overlap_pct":   0,
		"impervious_ratio":        20,
		"net_emissions_balance":   5,
		"shannon_diversity_index": 1.2,
	}
	result, err := Evaluate(rs, metrics)
	require.NoError(t, err)
	require.True(t, result.OverallCompliant)
	require.Empty(t, result.CriticalViolations)
}

const highSeverityRuleSet = `
country_code: XX
country_name: Testland
version: "1.0"
rules:
  - id: no-build-in-protected
    name: No construction within protected overlap
    severity: critical
    condition:
      protected_overlap_pct:
        gt: 0
  - id: impervious-warning
    name: Impervious ratio bound
    severity: high
    condition:
      impervious_ratio:
        gt: 50
`

func TestEvaluateHighSeverityFailureIsWarningNotCritical(t *testing.T) {
	rs, err := LoadRuleSet([]byte(highSeverityRuleSet))
	require.NoError(t, err)

	metrics := map[string]float64{
		"protected_overlap_pct": 0,
		"impervious_ratio":      80,
	}
	result, err := Evaluate(rs, metrics)
	require.NoError(t, err)

	require.True(t, result.OverallCompliant)
	require.Empty(t, result.CriticalViolations)
	require.Len(t, result.Warnings, 1)
}

func TestLoadRuleSetRejectsMissingCountryCode(t *testing.T) {
	_, err := LoadRuleSet([]byte("rules: []"))
	require.Error(t, err)
}

func TestEvaluateConditionAcceptsSymbolicOperators(t *testing.T) {
	cond := map[string]interface{}{
		"and": []interface{}{
			map[string]interface{}{"a": map[string]interface{}{">=": 40.0}},
			map[string]interface{}{"b": map[string]interface{}{"!=": 5.0}},
		},
	}
	ok, err := evaluateCondition(cond, map[string]float64{"a": 40, "b": 1})
	require.NoError(t, err)
	require.True(t, ok)
}

func TestEvaluateConditionAndOr(t *testing.T) {
	cond := map[string]interface{}{
		"or": []interface{}{
			map[string]interface{}{"a": map[string]interface{}{"gt": 10.0}},
			map[string]interface{}{"b": map[string]interface{}{"lt": 5.0}},
		},
	}
	ok, err := evaluateCondition(cond, map[string]float64{"a": 1, "b": 1})
	require.NoError(t, err)
	require.True(t, ok)
}
