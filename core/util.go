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
	"encoding/json"
	"regexp"
	"strings"
)

// StringMaps recursively converts map[interface{}]interface{} to
// map[string]interface{}.
//
// Had to go to this trouble because some YAML deserializers like to
// make map[interface{}] instead of map[string].  Non-string keys are
// dropped.
func StringMaps(x interface{}) interface{} {
	switch vv := x.(type) {
	case map[interface{}]interface{}:
		m := make(map[string]interface{}, len(vv))
		for thing, val := range vv {
			s, is := thing.(string)
			if !is {
				continue
			}
			m[s] = StringMaps(val)
		}
		return m
	case map[string]interface{}:
		for s, val := range vv {
			vv[s] = StringMaps(val)
		}
		return vv
	case []interface{}:
		for i, y := range vv {
			vv[i] = StringMaps(y)
		}
		return vv
	default:
		return x
	}
}

// Canonicalize is ... hey, look over there!
//
// A JSON round trip that leaves only maps, slices, strings, float64s,
// bools and nils.
func Canonicalize(x interface{}) (interface{}, error) {
	js, err := json.Marshal(&x)
	if err != nil {
		return nil, err
	}
	var y interface{}
	if err = json.Unmarshal(js, &y); err != nil {
		return nil, err
	}
	return y, nil
}

var nonWord = regexp.MustCompile(`[^a-z0-9]+`)

// VarForText makes a variable name from a title: "Arrival Time"
// becomes "arrival_time".
func VarForText(s string) string {
	s = nonWord.ReplaceAllString(strings.ToLower(s), "_")
	return strings.Trim(s, "_")
}
