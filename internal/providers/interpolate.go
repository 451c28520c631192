package providers

import (
	"encoding/json"
	"fmt"
	"reflect"
	"regexp"
	"strings"
)

// placeholderPattern matches {{a.b.c}} without the leading dot
// text/template requires for map/field traversal — the workflow schema's
// prompt templates use the bare dotted-path form, so interpolation is done
// with this small resolver instead of text/template.
var placeholderPattern = regexp.MustCompile(`\{\{\s*([a-zA-Z0-9_.]+)\s*\}\}`)

// Interpolate substitutes every {{a.b.c}} placeholder in tmpl with the
// value found by walking ctx via dotted path a -> b -> c. A path that
// can't be resolved is left as the literal placeholder text, since a
// workflow author's typo should be visible, not silently dropped. Map,
// slice, array, and struct values are rendered as indented JSON.
func Interpolate(tmpl string, ctx map[string]any) string {
	return placeholderPattern.ReplaceAllStringFunc(tmpl, func(match string) string {
		path := placeholderPattern.FindStringSubmatch(match)[1]
		val, ok := lookup(ctx, strings.Split(path, "."))
		if !ok {
			return match
		}
		switch reflect.ValueOf(val).Kind() {
		case reflect.Map, reflect.Slice, reflect.Array, reflect.Struct:
			if b, err := json.MarshalIndent(val, "", "  "); err == nil {
				return string(b)
			}
		}
		return fmt.Sprintf("%v", val)
	})
}

func lookup(ctx map[string]any, parts []string) (any, bool) {
	var cur any = ctx
	for _, part := range parts {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}
