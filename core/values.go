/* Copyright 2018 Comcast Cable Communications Management, LLC
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 * http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package core

import (
	"strconv"
	"strings"
	"time"
)

// Values is a flat namespace of named values.  An EvaluationContext
// is a Values, and so are trip values, customizations and the fields
// carried by the folded ResultOps.
type Values map[string]interface{}

func NewValues() Values {
	return make(Values, 8)
}

// Extend adds the property; modifies and returns the Values.
func (vs Values) Extend(p string, v interface{}) Values {
	vs[p] = v
	return vs
}

// Merge copies every property of the given maps into this one.
//
// The Values are modified.
func (vs Values) Merge(ms ...map[string]interface{}) Values {
	for _, m := range ms {
		for k, v := range m {
			vs[k] = v
		}
	}
	return vs
}

// Remove removes the given keys.
//
// The Values are modified.
func (vs Values) Remove(ps ...string) Values {
	for _, p := range ps {
		delete(vs, p)
	}
	return vs
}

// Copy makes a shallow copy of the Values.
func (vs Values) Copy() Values {
	acc := make(Values, len(vs))
	for k, v := range vs {
		acc[k] = v
	}
	return acc
}

// Get follows a dotted path ("a.b[0].c" or "a.b.0.c") through nested
// maps and slices.  The second result is false when some step along
// the way is missing.
func (vs Values) Get(path string) (interface{}, bool) {
	if path == "" {
		return nil, false
	}
	var x interface{} = map[string]interface{}(vs)
	for _, step := range splitPath(path) {
		switch vv := x.(type) {
		case map[string]interface{}:
			y, have := vv[step]
			if !have {
				return nil, false
			}
			x = y
		case Values:
			y, have := vv[step]
			if !have {
				return nil, false
			}
			x = y
		case []interface{}:
			i, err := strconv.Atoi(step)
			if err != nil || i < 0 || len(vv) <= i {
				return nil, false
			}
			x = vv[i]
		case []Values:
			i, err := strconv.Atoi(step)
			if err != nil || i < 0 || len(vv) <= i {
				return nil, false
			}
			x = vv[i]
		default:
			return nil, false
		}
	}
	return x, true
}

// Map returns the named property as a map, or nil.
func (vs Values) Map(p string) map[string]interface{} {
	return asMap(vs[p])
}

func splitPath(path string) []string {
	path = strings.NewReplacer("[", ".", "]", "").Replace(path)
	parts := strings.Split(path, ".")
	acc := parts[:0]
	for _, part := range parts {
		if part != "" {
			acc = append(acc, part)
		}
	}
	return acc
}

func asMap(x interface{}) map[string]interface{} {
	switch vv := x.(type) {
	case map[string]interface{}:
		return vv
	case Values:
		return vv
	case Params:
		return vv
	}
	return nil
}

// Params are the parameters of an action, the fields of an event, or
// the fields of an event spec.
type Params map[string]interface{}

// Type returns the "type" property, which is how events are tagged.
func (ps Params) Type() string {
	return ps.String("type")
}

// String returns the named property if it's a string.
func (ps Params) String(p string) string {
	s, _ := ps[p].(string)
	return s
}

// Float returns the named property as a number.  The second result
// is false when the property is absent or not numeric.
func (ps Params) Float(p string) (float64, bool) {
	return AsFloat(ps[p])
}

// Bool reports whether the named property is true.
func (ps Params) Bool(p string) bool {
	b, _ := ps[p].(bool)
	return b
}

// Map returns the named property as a Params, or nil.
func (ps Params) Map(p string) Params {
	if m := asMap(ps[p]); m != nil {
		return Params(m)
	}
	return nil
}

// Strings returns the named property as a list of strings, skipping
// anything that isn't one.
func (ps Params) Strings(p string) []string {
	switch vv := ps[p].(type) {
	case []string:
		return vv
	case []interface{}:
		acc := make([]string, 0, len(vv))
		for _, x := range vv {
			if s, is := x.(string); is {
				acc = append(acc, s)
			}
		}
		return acc
	}
	return nil
}

// Copy makes a shallow copy.
func (ps Params) Copy() Params {
	acc := make(Params, len(ps))
	for k, v := range ps {
		acc[k] = v
	}
	return acc
}

// Without returns a copy lacking the given keys.
func (ps Params) Without(keys ...string) Params {
	acc := ps.Copy()
	for _, k := range keys {
		delete(acc, k)
	}
	return acc
}

// AsFloat converts JSON-ish numbers to float64.
func AsFloat(x interface{}) (float64, bool) {
	switch vv := x.(type) {
	case float64:
		return vv, true
	case float32:
		return float64(vv), true
	case int:
		return float64(vv), true
	case int64:
		return float64(vv), true
	case int32:
		return float64(vv), true
	case uint64:
		return float64(vv), true
	}
	return 0, false
}

// AsTime interprets a value as a timestamp.  Strings are parsed as
// RFC3339 and numbers as Unix seconds.
func AsTime(x interface{}) (time.Time, bool) {
	switch vv := x.(type) {
	case time.Time:
		return vv, true
	case *time.Time:
		if vv == nil {
			return time.Time{}, false
		}
		return *vv, true
	case string:
		t, err := time.Parse(time.RFC3339Nano, vv)
		if err != nil {
			return time.Time{}, false
		}
		return t, true
	}
	if f, ok := AsFloat(x); ok {
		sec := int64(f)
		return time.Unix(sec, int64((f-float64(sec))*1e9)).UTC(), true
	}
	return time.Time{}, false
}

// ISO renders a time the way times are stored in evaluation
// contexts.
func ISO(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z")
}
