// Package legal implements AETHERA's Legal Rule Evaluator: loading a
// country RuleSet, evaluating each rule's condition
// against the flattened metrics namespace internal/geo and internal/ml
// produce, and partitioning results by severity. The restricted
// {field:{op:value}} condition grammar is a small hand-rolled
// evaluator (no pack library speaks this exact JSON-tree DSL); the
// optional expression form delegates to github.com/Knetic/govaluate,
// the expression-evaluation library already declared in InMAP's
// dependency surface for this purpose.
package legal

import (
	"fmt"
	"strings"

	"github.com/Knetic/govaluate"
	"gopkg.in/yaml.v3"

	"github.com/aethera-eia/aethera/internal/errs"
	"github.com/aethera-eia/aethera/internal/model"
)

// LoadRuleSet parses a country rule set from YAML bytes.
func LoadRuleSet(raw []byte) (model.RuleSet, error) {
	var rs model.RuleSet
	if err := yaml.Unmarshal(raw, &rs); err != nil {
		return model.RuleSet{}, errs.Wrap(errs.LegalRuleParseError, "legal_rule_load", err)
	}
	if rs.CountryCode == "" {
		return model.RuleSet{}, errs.New(errs.LegalRuleParseError, "legal_rule_load", "rule set missing country_code")
	}
	for _, r := range rs.Rules {
		if r.ID == "" {
			return model.RuleSet{}, errs.New(errs.LegalRuleParseError, "legal_rule_load", "rule missing id")
		}
		if len(r.Condition) == 0 && r.JSONLogic == "" {
			return model.RuleSet{}, errs.New(errs.LegalRuleParseError, "legal_rule_load",
				fmt.Sprintf("rule %s has neither condition nor jsonlogic form", r.ID))
		}
	}
	return rs, nil
}

// Evaluate applies every rule in rs to metrics, partitioning the results
// by severity.6. A rule's condition describes the violation: a rule whose
// condition holds has failed, and only failed rules are partitioned.
func Evaluate(rs model.RuleSet, metrics map[string]float64) (model.LegalEvaluationResult, error) {
	var result model.LegalEvaluationResult
	result.OverallCompliant = true

	for _, rule := range rs.Rules {
		triggered, err := evaluateRule(rule, metrics)
		if err != nil {
			return model.LegalEvaluationResult{}, errs.Wrap(errs.LegalRuleParseError, "legal_evaluate", err)
		}
		passed := !triggered
		status := model.RuleStatus{Rule: rule, Passed: passed, Message: renderMessage(rule, metrics, passed)}

		if passed {
			continue
		}
		switch strings.ToLower(rule.Severity) {
		case "critical":
			result.CriticalViolations = append(result.CriticalViolations, status)
			result.OverallCompliant = false
		case "informational":
			result.Informational = append(result.Informational, status)
		default:
			// high, medium, and anything else unrecognized are warnings.
			result.Warnings = append(result.Warnings, status)
		}
	}
	return result, nil
}

// evaluateRule dispatches to the restricted-DSL evaluator or, when a
// rule declares one, the govaluate expression form.
func evaluateRule(rule model.Rule, metrics map[string]float64) (bool, error) {
	if rule.JSONLogic != "" {
		return evaluateExpression(rule.JSONLogic, metrics)
	}
	return evaluateCondition(rule.Condition, metrics)
}

// evaluateExpression evaluates the optional govaluate expression form,
// e.g. "impervious_ratio > 40 && protected_overlap_pct > 0".
func evaluateExpression(expr string, metrics map[string]float64) (bool, error) {
	evaluable, err := govaluate.NewEvaluableExpression(expr)
	if err != nil {
		return false, fmt.Errorf("parsing expression %q: %w", expr, err)
	}
	params := make(map[string]interface{}, len(metrics))
	for k, v := range metrics {
		params[k] = v
	}
	result, err := evaluable.Evaluate(params)
	if err != nil {
		return false, fmt.Errorf("evaluating expression %q: %w", expr, err)
	}
	b, ok := result.(bool)
	if !ok {
		return false, fmt.Errorf("expression %q did not evaluate to a boolean", expr)
	}
	return b, nil
}

func renderMessage(rule model.Rule, metrics map[string]float64, passed bool) string {
	if rule.MessageTemplate == "" {
		return ""
	}
	msg := rule.MessageTemplate
	for k, v := range metrics {
		msg = strings.ReplaceAll(msg, "{"+k+"}", fmt.Sprintf("%v", v))
	}
	msg = strings.ReplaceAll(msg, "{passed}", fmt.Sprintf("%v", passed))
	return msg
}
