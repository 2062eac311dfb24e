package core

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	templateRegex = regexp.MustCompile(`(?i)\{\{\s*([\w_\-.:]+)\s*\}\}`)
	ifElseRegex   = regexp.MustCompile(`(?is)\{%\s*if\s+(.+?)\s*%\}(.*?)(?:\{%\s*else\s*%\}(.*?))?\{%\s*endif\s*%\}`)
	phoneRegex    = regexp.MustCompile(`^\d{10}$`)

	refConstants = map[string]interface{}{"true": true, "false": false, "null": nil}
)

// LookupRef resolves a reference against an evaluation context.
//
// Booleans, numbers and nil are themselves.  Strings that parse as
// numbers, "true", "false", "null" and quoted strings are literals.
// "player.x" refers to the first player of roleName.  Everything else
// is a path into the context; missing paths are nil.
func LookupRef(ec Values, ref interface{}, roleName string) interface{} {
	switch vv := ref.(type) {
	case nil, bool:
		return vv
	case string:
		return lookupString(ec, vv, roleName)
	}
	if f, ok := AsFloat(ref); ok {
		return f
	}
	return nil
}

func lookupString(ec Values, ref, roleName string) interface{} {
	if f, err := strconv.ParseFloat(strings.TrimSpace(ref), 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
		return f
	}
	if c, have := refConstants[ref]; have {
		return c
	}
	if n := len(ref); n >= 2 {
		if (ref[0] == '"' && ref[n-1] == '"') || (ref[0] == '\'' && ref[n-1] == '\'') {
			return ref[1 : n-1]
		}
	}
	if x, have := ec[ref]; have {
		return x
	}
	if strings.HasPrefix(ref, "player.") && roleName != "" {
		ref = "roleStates." + roleName + "[0]." + strings.Split(ref, ".")[1]
	}
	x, _ := ec.Get(ref)
	return x
}

// Truthy mirrors how scripts think about values: nil, false, 0 and
// "" are false.
func Truthy(x interface{}) bool {
	switch vv := x.(type) {
	case nil:
		return false
	case bool:
		return vv
	case string:
		return vv != ""
	}
	if f, ok := AsFloat(x); ok {
		return f != 0 && !math.IsNaN(f)
	}
	return true
}

// TemplateText renders {{ref}} interpolations and
// {% if ref %}...{% else %}...{% endif %} blocks.  Times render in
// the given zone as "3:04pm", ten-digit phone numbers as
// "(555) 123-4567", and booleans as "Yes" or "No".
func TemplateText(ec Values, text interface{}, tz, roleName string) string {
	switch vv := text.(type) {
	case nil:
		return ""
	case bool:
		if vv {
			return "Yes"
		}
		return "No"
	case string:
		return templateString(ec, vv, tz, roleName)
	}
	if f, ok := AsFloat(text); ok {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return ""
}

func templateString(ec Values, text, tz, roleName string) string {
	if IsoTimeRegex.MatchString(text) {
		if t, ok := AsTime(text); ok {
			return t.In(LoadLocation(tz)).Format("3:04pm")
		}
	}
	if phoneRegex.MatchString(text) {
		return "(" + text[0:3] + ") " + text[3:6] + "-" + text[6:]
	}
	text = templateRegex.ReplaceAllStringFunc(text, func(m string) string {
		ref := templateRegex.FindStringSubmatch(m)[1]
		return TemplateText(ec, LookupRef(ec, ref, roleName), tz, roleName)
	})
	text = ifElseRegex.ReplaceAllStringFunc(text, func(m string) string {
		parts := ifElseRegex.FindStringSubmatch(m)
		if Truthy(LookupRef(ec, parts[1], roleName)) {
			return parts[2]
		}
		return parts[3]
	})
	return text
}
