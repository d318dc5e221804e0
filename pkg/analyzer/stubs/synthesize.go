package stubs

import (
	"fmt"
	"sort"
	"strings"
)

// Synthesize produces candidate bodies for a stub, highest confidence first.
// The purpose-specific template comes first when there is one; a generic
// body keyed off the declared return type is always included.
func Synthesize(stub Stub, ctx Context) []Suggestion {
	p := InferPurpose(stub)

	var out []Suggestion
	if p.Category != CategoryGeneric {
		if body := templateFor(p.Category, stub, ctx); body != "" {
			out = append(out, Suggestion{
				Category:    p.Category,
				Body:        body,
				Confidence:  p.Confidence,
				Description: fmt.Sprintf("%s implementation of %s", p.Category, stub.Name),
			})
		}
	}
	out = append(out, genericSuggestion(stub))

	sort.SliceStable(out, func(i, j int) bool { return out[i].Confidence > out[j].Confidence })
	return out
}

// Select picks one suggestion according to strategy. Conservative returns
// false when nothing reaches 0.7.
func Select(suggestions []Suggestion, strategy Strategy) (Suggestion, bool) {
	if len(suggestions) == 0 {
		return Suggestion{}, false
	}
	switch strategy {
	case StrategyConservative:
		for _, s := range suggestions {
			if s.Confidence >= 0.7 {
				return s, true
			}
		}
		return Suggestion{}, false
	case StrategyCreative:
		for _, s := range suggestions {
			if s.Confidence >= 0.4 {
				return s, true
			}
		}
		return suggestions[0], true
	default:
		best := suggestions[0]
		for _, s := range suggestions[1:] {
			if s.Confidence > best.Confidence {
				best = s
			}
		}
		return best, true
	}
}

func templateFor(c Category, stub Stub, ctx Context) string {
	switch c {
	case CategoryGetter:
		return getterBody(stub, ctx)
	case CategorySetter:
		return setterBody(stub, ctx)
	case CategoryValidator:
		return validatorBody(stub, ctx)
	case CategoryCalculator:
		return calculatorBody(stub)
	case CategoryFormatter:
		return formatterBody(stub, ctx)
	case CategoryConverter:
		return converterBody(stub, ctx)
	case CategoryProcessor:
		return processorBody(stub)
	}
	return ""
}

func getterBody(stub Stub, ctx Context) string {
	field := fieldName(stub.Name, "get", "find", "fetch", "load", "read")
	base, key := field, ""
	if i := strings.Index(field, "By"); i > 0 && len(stub.Params) == 1 {
		base, key = field[:i], lowerFirst(field[i+2:])
	}

	if ctx.Class == nil {
		if expr, ok := defaultFor(stub.ReturnType, stub.IsAsync); ok && expr != "" {
			return "return " + expr + ";"
		}
		return "return undefined;"
	}

	prop := matchProperty(ctx.Class.Properties, base)
	if key != "" && prop != "" {
		return fmt.Sprintf("return this.%s.find((item) => item.%s === %s);", prop, key, stub.Params[0].Name)
	}
	if prop == "" {
		prop = base
	}
	return fmt.Sprintf("return this.%s;", prop)
}

func setterBody(stub Stub, ctx Context) string {
	if ctx.Class == nil || len(stub.Params) != 1 {
		return ""
	}
	field := fieldName(stub.Name, "set", "update")
	if prop := matchProperty(ctx.Class.Properties, field); prop != "" {
		field = prop
	}
	return fmt.Sprintf("this.%s = %s;", field, stub.Params[0].Name)
}

func validatorBody(stub Stub, ctx Context) string {
	var conds []string
	for _, p := range stub.Params {
		if p.Rest || !isIdentifier(p.Name) {
			continue
		}
		conds = append(conds, p.Name+" != null")
	}
	if len(conds) > 0 {
		return "return " + strings.Join(conds, " && ") + ";"
	}
	if ctx.Class != nil && len(ctx.Class.Properties) > 0 {
		return fmt.Sprintf("return this.%s != null;", ctx.Class.Properties[0])
	}
	return "return true;"
}

func calculatorBody(stub Stub) string {
	lower := strings.ToLower(stub.Name)
	switch len(stub.Params) {
	case 0:
		return "return 0;"
	case 1:
		p := stub.Params[0]
		if !isCollection(p) {
			return fmt.Sprintf("return Number(%s) || 0;", p.Name)
		}
		switch {
		case strings.Contains(lower, "count"):
			return fmt.Sprintf("return %s.length;", p.Name)
		case strings.Contains(lower, "average") || strings.Contains(lower, "avg"):
			return strings.Join([]string{
				fmt.Sprintf("if (%s.length === 0) {", p.Name),
				"\treturn 0;",
				"}",
				fmt.Sprintf("return %s.reduce((sum, value) => sum + value, 0) / %s.length;", p.Name, p.Name),
			}, "\n")
		}
		return fmt.Sprintf("return %s.reduce((sum, value) => sum + value, 0);", p.Name)
	}
	names := make([]string, 0, len(stub.Params))
	for _, p := range stub.Params {
		names = append(names, p.Name)
	}
	return "return " + strings.Join(names, " + ") + ";"
}

func formatterBody(stub Stub, ctx Context) string {
	switch len(stub.Params) {
	case 0:
		if ctx.Class != nil {
			return "return JSON.stringify(this);"
		}
		return `return "";`
	case 1:
		return fmt.Sprintf("return String(%s);", stub.Params[0].Name)
	}
	parts := make([]string, 0, len(stub.Params))
	for _, p := range stub.Params {
		parts = append(parts, "${"+p.Name+"}")
	}
	return "return `" + strings.Join(parts, " ") + "`;"
}

func converterBody(stub Stub, ctx Context) string {
	lower := strings.ToLower(stub.Name)
	if len(stub.Params) == 0 {
		if ctx.Class != nil {
			return "return { ...this };"
		}
		return "return {};"
	}
	p := stub.Params[0].Name
	if strings.Contains(lower, "json") {
		if strings.Contains(lower, "parse") || strings.Contains(lower, "from") {
			return fmt.Sprintf("return JSON.parse(%s);", p)
		}
		return fmt.Sprintf("return JSON.stringify(%s);", p)
	}
	switch rt := baseType(stub.ReturnType); {
	case rt == "string":
		return fmt.Sprintf("return String(%s);", p)
	case rt == "number":
		return fmt.Sprintf("return Number(%s);", p)
	case rt == "boolean":
		return fmt.Sprintf("return Boolean(%s);", p)
	case isArrayType(rt):
		return fmt.Sprintf("return Array.from(%s);", p)
	}
	return fmt.Sprintf("return { ...%s };", p)
}

func processorBody(stub Stub) string {
	if len(stub.Params) == 0 {
		if returnsNothing(stub) {
			return "return;"
		}
		return ""
	}
	p := stub.Params[0].Name
	if returnsNothing(stub) {
		return strings.Join([]string{
			fmt.Sprintf("if (%s == null) {", p),
			"\treturn;",
			"}",
		}, "\n")
	}
	return strings.Join([]string{
		fmt.Sprintf("if (%s == null) {", p),
		fmt.Sprintf("\treturn %s;", p),
		"}",
		fmt.Sprintf("return %s;", p),
	}, "\n")
}

// genericSuggestion returns the zero value of the declared return type, or a
// not-implemented throw when the type gives nothing to go on.
func genericSuggestion(stub Stub) Suggestion {
	if expr, ok := defaultFor(stub.ReturnType, stub.IsAsync); ok {
		body := "return;"
		if expr != "" {
			body = "return " + expr + ";"
		}
		return Suggestion{
			Category:    CategoryGeneric,
			Body:        body,
			Confidence:  CategoryGeneric.Confidence(),
			Description: "default value for return type " + stub.ReturnType,
		}
	}
	return Suggestion{
		Category:    CategoryGeneric,
		Body:        fmt.Sprintf("throw new Error(\"Not implemented: %s\");", stub.Name),
		Confidence:  0.4,
		Description: "explicit not-implemented error",
	}
}

// defaultFor maps a declared return type to a zero-value expression. An empty
// expression with ok=true means a bare return.
func defaultFor(returnType string, async bool) (string, bool) {
	rt := strings.TrimSpace(returnType)
	if inner, ok := promiseInner(rt); ok {
		if async {
			expr, known := defaultFor(inner, false)
			if !known {
				return "", true
			}
			return expr, true
		}
		return "Promise.resolve()", true
	}
	switch rt := baseType(rt); {
	case rt == "boolean":
		return "false", true
	case rt == "number":
		return "0", true
	case rt == "string":
		return `""`, true
	case rt == "void" || rt == "undefined":
		return "", true
	case rt == "null":
		return "null", true
	case isArrayType(rt):
		return "[]", true
	}
	return "", false
}

func promiseInner(rt string) (string, bool) {
	if strings.HasPrefix(rt, "Promise<") && strings.HasSuffix(rt, ">") {
		return strings.TrimSpace(rt[len("Promise<") : len(rt)-1]), true
	}
	return "", false
}

// baseType drops a trailing "| undefined" or "| null" union member.
func baseType(rt string) string {
	parts := strings.Split(rt, "|")
	var kept []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "null" || p == "undefined" {
			continue
		}
		kept = append(kept, p)
	}
	if len(kept) == 1 {
		return kept[0]
	}
	return strings.TrimSpace(rt)
}

func isArrayType(rt string) bool {
	return strings.HasSuffix(rt, "[]") || strings.HasPrefix(rt, "Array<") || strings.HasPrefix(rt, "ReadonlyArray<")
}

func isCollection(p Param) bool {
	if p.Type != "" {
		return isArrayType(baseType(p.Type))
	}
	return p.Rest || (len(p.Name) > 1 && strings.HasSuffix(p.Name, "s"))
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		if r == '_' || r == '$' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (i > 0 && r >= '0' && r <= '9') {
			continue
		}
		return false
	}
	return true
}

// matchProperty finds a class property for field, accepting a plural form and
// ignoring case and a leading underscore.
func matchProperty(props []string, field string) string {
	want := strings.ToLower(field)
	for _, candidate := range []string{want, want + "s", want + "es"} {
		for _, p := range props {
			if strings.ToLower(strings.TrimPrefix(p, "_")) == candidate {
				return p
			}
		}
	}
	return ""
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
