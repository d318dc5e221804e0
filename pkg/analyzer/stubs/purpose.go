package stubs

import (
	"regexp"
	"strings"
	"unicode"
)

// Category weights. These are fixed heuristics, not calibrated probabilities.
var categoryConfidence = map[Category]float64{
	CategoryGetter:     0.8,
	CategorySetter:     0.8,
	CategoryValidator:  0.7,
	CategoryCalculator: 0.65,
	CategoryFormatter:  0.6,
	CategoryConverter:  0.55,
	CategoryProcessor:  0.5,
	CategoryGeneric:    0.5,
}

// Confidence returns the fixed weight of a category.
func (c Category) Confidence() float64 {
	return categoryConfidence[c]
}

var substringRules = []struct {
	category Category
	expr     *regexp.Regexp
}{
	{CategoryValidator, regexp.MustCompile(`(?i)valid|check|verify`)},
	{CategoryCalculator, regexp.MustCompile(`(?i)calc|compute|sum|total|count|average|avg`)},
	{CategoryFormatter, regexp.MustCompile(`(?i)format|display|render|stringify|tostring|pretty`)},
	{CategoryConverter, regexp.MustCompile(`(?i:convert|parse|transform|serialize)|^to[A-Z]`)},
	{CategoryProcessor, regexp.MustCompile(`(?i)process|handle|execute|run|apply|dispatch`)},
}

// InferPurpose classifies a stub from its name and signature.
func InferPurpose(stub Stub) Purpose {
	name := stub.Name
	nParams := len(stub.Params)

	switch {
	case hasVerbPrefix(name, "get", "find", "fetch", "load", "read") && nParams <= 1:
		return purpose(CategoryGetter, "name reads a value and takes at most one parameter")
	case hasVerbPrefix(name, "set", "update") && nParams == 1 && returnsNothing(stub):
		return purpose(CategorySetter, "name writes a value from exactly one parameter and returns nothing")
	case hasVerbPrefix(name, "is", "has", "can", "should"):
		return purpose(CategoryValidator, "name asks a yes/no question")
	}

	for _, rule := range substringRules {
		if rule.expr.MatchString(name) {
			return purpose(rule.category, "name matches "+rule.expr.String())
		}
	}
	return purpose(CategoryGeneric, "no naming convention recognised")
}

func purpose(c Category, reason string) Purpose {
	return Purpose{Category: c, Confidence: c.Confidence(), Reason: reason}
}

// hasVerbPrefix reports whether name is prefix followed by a word boundary
// in camelCase or snake_case.
func hasVerbPrefix(name string, prefixes ...string) bool {
	for _, p := range prefixes {
		if !strings.HasPrefix(name, p) {
			continue
		}
		rest := name[len(p):]
		if rest == "" {
			return true
		}
		r := rune(rest[0])
		if unicode.IsUpper(r) || r == '_' {
			return true
		}
	}
	return false
}

func returnsNothing(stub Stub) bool {
	switch stub.ReturnType {
	case "", "void", "Promise<void>":
		return true
	}
	return false
}

// fieldName derives a property name from an accessor, e.g. getUserName -> userName.
func fieldName(name string, prefixes ...string) string {
	for _, p := range prefixes {
		if hasVerbPrefix(name, p) && len(name) > len(p) {
			rest := strings.TrimPrefix(name[len(p):], "_")
			if rest == "" {
				break
			}
			return strings.ToLower(rest[:1]) + rest[1:]
		}
	}
	return name
}
