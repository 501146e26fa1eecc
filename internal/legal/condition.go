package legal

import "fmt"

// evaluateCondition interprets the restricted rule DSL: {field: {op:
// value}} leaves combined by {"and": [...]} / {"or": [...]} nodes. This
// is a small hand-rolled tree walk since no off-the-shelf library
// speaks this exact nested-map grammar, kept deliberately minimal
// since it only needs to cover six comparison operators plus boolean
// combination.
func evaluateCondition(cond map[string]interface{}, metrics map[string]float64) (bool, error) {
	if and, ok := cond["and"]; ok {
		clauses, err := asConditionList(and)
		if err != nil {
			return false, fmt.Errorf("and: %w", err)
		}
		for _, c := range clauses {
			ok, err := evaluateCondition(c, metrics)
			if err != nil {
				return false, err
			}
			if !ok {
				return false, nil
			}
		}
		return true, nil
	}

	if or, ok := cond["or"]; ok {
		clauses, err := asConditionList(or)
		if err != nil {
			return false, fmt.Errorf("or: %w", err)
		}
		for _, c := range clauses {
			ok, err := evaluateCondition(c, metrics)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	}

	if len(cond) != 1 {
		return false, fmt.Errorf("leaf condition must have exactly one field, got %d", len(cond))
	}
	for field, rawOps := range cond {
		ops, ok := rawOps.(map[string]interface{})
		if !ok {
			return false, fmt.Errorf("field %q operator set must be a map", field)
		}
		return evaluateLeaf(field, ops, metrics)
	}
	return false, nil
}

func evaluateLeaf(field string, ops map[string]interface{}, metrics map[string]float64) (bool, error) {
	actual, present := metrics[field]
	for op, rawTarget := range ops {
		target, err := asFloat(rawTarget)
		if err != nil {
			return false, fmt.Errorf("field %q operator %q: %w", field, op, err)
		}
		var ok bool
		switch op {
		case "gt", ">":
			ok = present && actual > target
		case "gte", ">=":
			ok = present && actual >= target
		case "lt", "<":
			ok = present && actual < target
		case "lte", "<=":
			ok = present && actual <= target
		case "eq", "==":
			ok = present && actual == target
		case "neq", "!=":
			ok = !present || actual != target
		default:
			return false, fmt.Errorf("unsupported operator %q", op)
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

func asConditionList(v interface{}) ([]map[string]interface{}, error) {
	raw, ok := v.([]interface{})
	if !ok {
		return nil, fmt.Errorf("expected a list")
	}
	out := make([]map[string]interface{}, 0, len(raw))
	for _, item := range raw {
		m, ok := item.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("expected a map element")
		}
		out = append(out, m)
	}
	return out, nil
}

func asFloat(v interface{}) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	default:
		return 0, fmt.Errorf("expected a number, got %T", v)
	}
}
