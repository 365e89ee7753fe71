package engine

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/cliff-rosen/orchestrator-sub003/internal/api"
)

func knownOperator(op api.Operator) bool {
	switch op {
	case api.OperatorEquals, api.OperatorNotEquals,
		api.OperatorGreaterThan, api.OperatorLessThan,
		api.OperatorContains, api.OperatorExists, api.OperatorNotExists:
		return true
	}
	return false
}

// conditionHolds applies an operator to an actual value. present is false
// when the variable or field has no value.
func conditionHolds(op api.Operator, actual any, present bool, expected any) bool {
	switch op {
	case api.OperatorExists:
		return present && actual != nil
	case api.OperatorNotExists:
		return !present || actual == nil
	}
	if !present {
		return false
	}

	switch op {
	case api.OperatorEquals:
		return valuesEqual(actual, expected)
	case api.OperatorNotEquals:
		return !valuesEqual(actual, expected)
	case api.OperatorGreaterThan:
		c, ok := compareValues(actual, expected)
		return ok && c > 0
	case api.OperatorLessThan:
		c, ok := compareValues(actual, expected)
		return ok && c < 0
	case api.OperatorContains:
		return containsValue(actual, expected)
	}
	return false
}

// valuesEqual compares two values for equality, handling type conversions
func valuesEqual(actual, expected any) bool {
	if a, ok := toNumber(actual); ok {
		if b, ok := toNumber(expected); ok {
			return a == b
		}
	}
	if reflect.DeepEqual(actual, expected) {
		return true
	}

	// Convert both to strings for comparison if they're different types
	return fmt.Sprintf("%v", actual) == fmt.Sprintf("%v", expected)
}

func compareValues(actual, expected any) (int, bool) {
	if a, ok := toNumber(actual); ok {
		if b, ok := toNumber(expected); ok {
			switch {
			case a < b:
				return -1, true
			case a > b:
				return 1, true
			}
			return 0, true
		}
	}
	as, aok := actual.(string)
	bs, bok := expected.(string)
	if aok && bok {
		return strings.Compare(as, bs), true
	}
	return 0, false
}

func containsValue(actual, expected any) bool {
	switch v := actual.(type) {
	case string:
		return strings.Contains(v, fmt.Sprintf("%v", expected))
	case []any:
		for _, item := range v {
			if valuesEqual(item, expected) {
				return true
			}
		}
	case []string:
		for _, item := range v {
			if valuesEqual(item, expected) {
				return true
			}
		}
	case map[string]any:
		key, ok := expected.(string)
		if !ok {
			return false
		}
		_, exists := v[key]
		return exists
	}
	return false
}

func toNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	}
	return 0, false
}
