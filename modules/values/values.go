// Package values provides actions and conditions on trip values.
package values

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/firstpersontravel/charter-sub005/core"
)

var Module = &core.Module{
	Name: "values",
	Resources: map[string]*core.Resource{
		"value": {
			Actions: map[string]*core.ActionDef{
				"set_value": {
					Help: "Set a value to a literal or to another value.",
					Params: map[string]*core.ParamSpec{
						"value_ref":     {Type: "simpleAttribute", Required: true},
						"new_value_ref": {Type: "lookupable", Required: true},
					},
					GetOps: setValue,
				},
				"increment_value": {
					Help: "Add to a numeric value.  Missing values count as 0.",
					Params: map[string]*core.ParamSpec{
						"value_ref": {Type: "simpleAttribute", Required: true},
						"delta":     {Type: "number", Help: "Defaults to 1."},
					},
					GetOps: incrementValue,
				},
			},
			Conditions: map[string]*core.ConditionDef{
				"value_is_true": {
					Help: "Passes if the value is present and not false.",
					Properties: map[string]*core.ParamSpec{
						"ref": {Type: "lookupable", Required: true},
					},
					Eval: valueIsTrue,
				},
				"value_equals": {
					Help: "Passes if the values match, ignoring case.",
					Properties: map[string]*core.ParamSpec{
						"ref1": {Type: "lookupable", Required: true},
						"ref2": {Type: "lookupable", Required: true},
					},
					Eval: valueEquals,
				},
				"value_contains": {
					Help: "Passes if the string value contains the part, ignoring case.",
					Properties: map[string]*core.ParamSpec{
						"string_ref": {Type: "lookupable", Required: true},
						"part_ref":   {Type: "lookupable", Required: true},
					},
					Eval: valueContains,
				},
				"value_compare": {
					Help: "Passes if the first value compares numerically to the second.",
					Properties: map[string]*core.ParamSpec{
						"ref1":       {Type: "lookupable", Required: true},
						"comparator": {Type: "enum", Help: "One of <, <=, ==, >=, >.  Defaults to >=."},
						"ref2":       {Type: "lookupable", Required: true},
					},
					Eval: valueCompare,
				},
			},
		},
	},
}

func lookup(ps core.Params, p string, ac *core.ActionContext) interface{} {
	return core.LookupRef(ac.EvalContext, ps[p], ac.TriggeringRoleName)
}

func setValue(ps core.Params, ac *core.ActionContext) ([]core.ResultOp, error) {
	ref := ps.String("value_ref")
	if ref == "" {
		return []core.ResultOp{core.Errorf("set_value without a value_ref")}, nil
	}
	return []core.ResultOp{&core.UpdateTripValues{
		Values: core.Values{ref: lookup(ps, "new_value_ref", ac)},
	}}, nil
}

func incrementValue(ps core.Params, ac *core.ActionContext) ([]core.ResultOp, error) {
	ref := ps.String("value_ref")
	if ref == "" {
		return []core.ResultOp{core.Errorf("increment_value without a value_ref")}, nil
	}
	delta, have := ps.Float("delta")
	if !have {
		delta = 1
	}
	current, _ := core.AsFloat(core.LookupRef(ac.EvalContext, ref, ac.TriggeringRoleName))
	return []core.ResultOp{&core.UpdateTripValues{
		Values: core.Values{ref: current + delta},
	}}, nil
}

func valueIsTrue(ps core.Params, ac *core.ActionContext) (bool, error) {
	return core.Truthy(lookup(ps, "ref", ac)), nil
}

func valueEquals(ps core.Params, ac *core.ActionContext) (bool, error) {
	a, b := lookup(ps, "ref1", ac), lookup(ps, "ref2", ac)
	if !core.Truthy(a) && !core.Truthy(b) {
		return true, nil
	}
	return strings.EqualFold(text(a), text(b)), nil
}

func valueContains(ps core.Params, ac *core.ActionContext) (bool, error) {
	a, ok := lookup(ps, "string_ref", ac).(string)
	if !ok {
		return false, nil
	}
	b, ok := lookup(ps, "part_ref", ac).(string)
	if !ok {
		return false, nil
	}
	return strings.Contains(strings.ToLower(a), strings.ToLower(b)), nil
}

var comparators = map[string]func(a, b float64) bool{
	"<":  func(a, b float64) bool { return a < b },
	"<=": func(a, b float64) bool { return a <= b },
	"==": func(a, b float64) bool { return a == b },
	">=": func(a, b float64) bool { return a >= b },
	">":  func(a, b float64) bool { return a > b },
}

func valueCompare(ps core.Params, ac *core.ActionContext) (bool, error) {
	comparator := ps.String("comparator")
	if comparator == "" {
		comparator = ">="
	}
	f, have := comparators[comparator]
	if !have {
		return false, fmt.Errorf("value_compare: unknown comparator %q", comparator)
	}
	return f(number(lookup(ps, "ref1", ac)), number(lookup(ps, "ref2", ac))), nil
}

// text renders a value the way it would read in a message.  Falsy
// values are "".
func text(x interface{}) string {
	if !core.Truthy(x) {
		return ""
	}
	switch vv := x.(type) {
	case string:
		return vv
	case bool:
		return strconv.FormatBool(vv)
	}
	if f, ok := core.AsFloat(x); ok {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return fmt.Sprintf("%v", x)
}

// number coerces a value to a number.  Anything that isn't one is 0.
func number(x interface{}) float64 {
	var f float64
	switch vv := x.(type) {
	case nil:
		return 0
	case bool:
		if vv {
			return 1
		}
		return 0
	case string:
		s := strings.TrimSpace(vv)
		if s == "" {
			return 0
		}
		var err error
		if f, err = strconv.ParseFloat(s, 64); err != nil {
			return 0
		}
	default:
		var ok bool
		if f, ok = core.AsFloat(x); !ok {
			return 0
		}
	}
	if math.IsNaN(f) {
		return 0
	}
	return f
}
