package template

import (
	"fmt"
	"regexp"
)

var tokenPattern = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_.-]+)\s*\}\}`)

// Resolve substitutes {{name}} tokens in every string field of the
// template. A token resolves to the caller-supplied variable value, then
// the declared default, then a type-appropriate placeholder. Tokens that
// reference undeclared variables stay verbatim so downstream stages can
// fall back to their own defaults. Resolving a template with no tokens
// left is a no-op, so the operation is idempotent.
func Resolve(tpl Template, vars map[string]string) Template {
	r := substituter{vars: vars, specs: tpl.Variables}

	out := tpl
	out.BackgroundMusic = r.resolve(tpl.BackgroundMusic)
	out.Logo = r.resolve(tpl.Logo)

	out.Layers = make([]Layer, len(tpl.Layers))
	for i, l := range tpl.Layers {
		values := make([]string, len(l.Source.Values))
		for j, v := range l.Source.Values {
			values[j] = r.resolve(v)
		}
		l.Source = Source{Values: values, IsArray: l.Source.IsArray}
		l.Text = r.resolve(l.Text)
		l.Color = r.resolve(l.Color)
		out.Layers[i] = l
	}

	out.Effects = make([]Effect, len(tpl.Effects))
	for i, e := range tpl.Effects {
		if len(e.Params) > 0 {
			params := make(map[string]any, len(e.Params))
			for k, v := range e.Params {
				if s, ok := v.(string); ok {
					params[k] = r.resolve(s)
				} else {
					params[k] = v
				}
			}
			e.Params = params
		}
		out.Effects[i] = e
	}

	return out
}

type substituter struct {
	vars  map[string]string
	specs map[string]VarSpec
}

func (r substituter) resolve(s string) string {
	if s == "" {
		return s
	}
	return tokenPattern.ReplaceAllStringFunc(s, func(token string) string {
		name := tokenPattern.FindStringSubmatch(token)[1]
		if v, ok := r.vars[name]; ok {
			return v
		}
		spec, ok := r.specs[name]
		if !ok {
			return token
		}
		if spec.Default != "" {
			return spec.Default
		}
		return Placeholder(spec.Type)
	})
}

// Placeholder returns the stand-in value used when a declared variable
// has neither a supplied value nor a default.
func Placeholder(t VarType) string {
	switch t {
	case VarText:
		return "Sample Text"
	case VarColor:
		return "#808080"
	case VarNumber:
		return "0"
	case VarFont:
		return "sans-serif"
	default:
		// Media placeholders stay empty; the synthesizer substitutes a
		// solid-colour clip for empty sources.
		return ""
	}
}

// UnresolvedTokens lists variable names still referenced by the template.
func UnresolvedTokens(tpl Template) []string {
	var names []string
	seen := map[string]bool{}
	collect := func(s string) {
		for _, m := range tokenPattern.FindAllStringSubmatch(s, -1) {
			if !seen[m[1]] {
				seen[m[1]] = true
				names = append(names, m[1])
			}
		}
	}

	collect(tpl.BackgroundMusic)
	collect(tpl.Logo)
	for _, l := range tpl.Layers {
		for _, v := range l.Source.Values {
			collect(v)
		}
		collect(l.Text)
		collect(l.Color)
	}
	for _, e := range tpl.Effects {
		for _, v := range e.Params {
			if s, ok := v.(string); ok {
				collect(s)
			}
		}
	}
	return names
}

// MustFloat reads a numeric template value that may arrive as a string
// after variable substitution.
func MustFloat(v any, fallback float64) float64 {
	switch x := v.(type) {
	case float64:
		return x
	case int:
		return float64(x)
	case string:
		var f float64
		if _, err := fmt.Sscanf(x, "%f", &f); err == nil {
			return f
		}
	}
	return fallback
}
