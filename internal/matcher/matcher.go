// Package matcher decides whether a stored submission value satisfies a
// query value under one of the two supported comparison regimes.
package matcher

import (
	"reflect"
	"strconv"
	"strings"

	"github.com/jocarsa/jocarsa-lavender/internal/textnorm"
)

// Spec selects the comparison regime. It is either Legacy or Mode.
type Spec interface {
	isSpec()
}

// Legacy is the first-generation regime: raw values, optional lower-casing,
// and substring search when Strict is off.
type Legacy struct {
	CaseInsensitive bool
	Strict          bool
}

// Mode is the current regime: both sides are normalized and compared with
// the predicate named by Kind.
type Mode struct {
	Kind Kind
}

func (Legacy) isSpec() {}
func (Mode) isSpec()   {}

// Kind names a normalized comparison predicate.
type Kind string

const (
	Equals      Kind = "equals"
	IContains   Kind = "icontains"
	IStartsWith Kind = "istartswith"
	IEndsWith   Kind = "iendswith"
)

// ParseMode maps a request's mode string to a Kind. Unknown values select Equals.
func ParseMode(s string) Kind {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case IContains, IStartsWith, IEndsWith:
		return k
	default:
		return Equals
	}
}

// Match reports whether candidate satisfies query under spec. A nil spec is
// treated as Mode{Equals}.
func Match(candidate, query any, spec Spec) bool {
	switch s := spec.(type) {
	case Legacy:
		return matchLegacy(candidate, query, s)
	case Mode:
		return matchMode(textnorm.Normalize(candidate), textnorm.Normalize(query), s.Kind)
	default:
		return matchMode(textnorm.Normalize(candidate), textnorm.Normalize(query), Equals)
	}
}

func matchMode(candidate, query string, kind Kind) bool {
	switch kind {
	case IContains:
		return strings.Contains(candidate, query)
	case IStartsWith:
		return strings.HasPrefix(candidate, query)
	case IEndsWith:
		return strings.HasSuffix(candidate, query)
	default:
		return candidate == query
	}
}

func matchLegacy(candidate, query any, s Legacy) bool {
	cs, cok := candidate.(string)
	qs, qok := query.(string)
	if s.Strict {
		if s.CaseInsensitive && cok && qok {
			return strings.ToLower(cs) == strings.ToLower(qs)
		}
		return identical(candidate, query)
	}
	if cok && qok {
		if s.CaseInsensitive {
			return strings.Contains(strings.ToLower(cs), strings.ToLower(qs))
		}
		return strings.Contains(cs, qs)
	}
	return loose(candidate, query)
}

// identical is type-sensitive equality: "5" does not equal 5 and "" does
// not equal nil.
func identical(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb {
		return false
	}
	if ta.Comparable() {
		return a == b
	}
	return reflect.DeepEqual(a, b)
}

// loose compares values across representations: nil, "" and false are
// alike, numeric strings compare as numbers and booleans by truthiness.
func loose(a, b any) bool {
	if identical(a, b) {
		return true
	}
	if ab, ok := a.(bool); ok {
		return ab == truthy(b)
	}
	if bb, ok := b.(bool); ok {
		return bb == truthy(a)
	}
	if a == nil || b == nil {
		return textnorm.Text(a) == textnorm.Text(b)
	}
	if fa, ok := number(a); ok {
		if fb, ok := number(b); ok {
			return fa == fb
		}
	}
	return textnorm.Text(a) == textnorm.Text(b)
}

func number(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return f, err == nil
	}
	return 0, false
}

func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != "" && t != "0"
	}
	if f, ok := number(v); ok {
		return f != 0
	}
	return true
}
