// internal/rules/operators.go
package rules

import (
	"strings"

	"github.com/solatis/dialkeeper/internal/types"
)

/*
 * Condition matching.
 *
 * Implements the 10 condition kinds against the in-flight string and the
 * host Context. Matching is pure: it reads the string and context and
 * reports a match plus, for pattern kinds, the span that matched.
 *
 * Span-producing kinds:
 *   - startsWith: [0, len(p))
 *   - equals:     [0, len(s))
 *   - contains:   first occurrence of p
 *
 * Why function-based: a switch over a closed enum keeps the 10 kinds in one
 * place; an interface per kind would spread near-identical one-liners.
 */

// Span is a half-open byte range [Start, End) of the in-flight string.
type Span struct {
	Start int
	End   int
}

// Match evaluates a single condition against the string s and ctx.
// Returns whether it matched and, when ok is true, the span it matched.
func Match(c Condition, s string, ctx types.Context) (matched bool, span Span, ok bool) {
	switch c.Kind {
	case CondStartsWith:
		if strings.HasPrefix(s, c.Param) {
			return true, Span{0, len(c.Param)}, true
		}
		return false, Span{}, false
	case CondDoesNotStartWith:
		return !strings.HasPrefix(s, c.Param), Span{}, false
	case CondEquals:
		if s == c.Param {
			return true, Span{0, len(s)}, true
		}
		return false, Span{}, false
	case CondLengthEquals:
		cmp, valid := compareLength(s, c.Param)
		return valid && cmp == 0, Span{}, false
	case CondShorterThan:
		cmp, valid := compareLength(s, c.Param)
		return valid && cmp < 0, Span{}, false
	case CondLongerThan:
		cmp, valid := compareLength(s, c.Param)
		return valid && cmp > 0, Span{}, false
	case CondNetworkType:
		coerced := CoerceParam(c.Kind, c.Param)
		return coerced.OK && coerced.Value.(types.NetworkType) == ctx.NetworkType, Span{}, false
	case CondSSID:
		return ctx.WifiSSID == c.Param, Span{}, false
	case CondContains:
		if i := strings.Index(s, c.Param); i >= 0 {
			return true, Span{i, i + len(c.Param)}, true
		}
		return false, Span{}, false
	case CondNumeric:
		return isNumeric(s), Span{}, false
	default:
		return false, Span{}, false
	}
}

// compareLength performs three-way comparison of len(s) against the parameter.
// ok is false when the parameter is not a length; the condition then never matches.
func compareLength(s, param string) (cmp int, ok bool) {
	coerced := CoerceParam(CondLengthEquals, param)
	if !coerced.OK {
		return 0, false
	}
	n := coerced.Value.(int)
	switch {
	case len(s) < n:
		return -1, true
	case len(s) > n:
		return 1, true
	default:
		return 0, true
	}
}

// isNumeric reports whether s is a non-empty run of ASCII digits,
// optionally preceded by a single '+'.
func isNumeric(s string) bool {
	s = strings.TrimPrefix(s, "+")
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
