// internal/rules/condition.go
package rules

import (
	"fmt"
	"strings"

	"github.com/solatis/dialkeeper/internal/types"
)

/*
 * Condition kinds and construction.
 *
 * ConditionKind is a closed enum: every value in [CondStartsWith, CondNumeric]
 * is a real kind and no sentinel value can be constructed through
 * ParseConditionKind or NewCondition. Declaration order is the canonical
 * ordinal used by Rule.SortByTypes.
 *
 * Validation happens once in NewCondition. Parameters that are well-formed
 * strings but not meaningful for the kind (e.g. "abc" for LengthEquals) are
 * accepted here and simply never match; see coercion.go.
 */

// ConditionKind selects the predicate a Condition applies.
type ConditionKind int

const (
	CondStartsWith ConditionKind = iota
	CondDoesNotStartWith
	CondEquals
	CondLengthEquals
	CondShorterThan
	CondLongerThan
	CondNetworkType
	CondSSID
	CondContains
	CondNumeric
)

var conditionKindNames = [...]string{
	CondStartsWith:       "startsWith",
	CondDoesNotStartWith: "doesNotStartWith",
	CondEquals:           "equals",
	CondLengthEquals:     "lengthEquals",
	CondShorterThan:      "shorterThan",
	CondLongerThan:       "longerThan",
	CondNetworkType:      "networkType",
	CondSSID:             "ssid",
	CondContains:         "contains",
	CondNumeric:          "numeric",
}

// String returns the persisted name of the kind.
func (k ConditionKind) String() string {
	if k < 0 || int(k) >= len(conditionKindNames) {
		return fmt.Sprintf("ConditionKind(%d)", int(k))
	}
	return conditionKindNames[k]
}

// ParseConditionKind converts a persisted name (case-insensitive) to its kind.
func ParseConditionKind(s string) (ConditionKind, error) {
	name := strings.TrimSpace(s)
	for k, n := range conditionKindNames {
		if strings.EqualFold(n, name) {
			return ConditionKind(k), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", types.ErrUnknownConditionKind, s)
}

// Condition is a single predicate test. Immutable after construction.
type Condition struct {
	Kind  ConditionKind
	Param string
}

// NewCondition validates and sanitizes a condition.
// Literal-text kinds keep their parameter verbatim; numeric and enum kinds
// are trimmed; Numeric drops its parameter.
func NewCondition(kind ConditionKind, param string) (Condition, error) {
	if kind < CondStartsWith || kind > CondNumeric {
		return Condition{}, fmt.Errorf("%w: %d", types.ErrUnknownConditionKind, int(kind))
	}
	if len(param) > types.MaxParamLength {
		return Condition{}, fmt.Errorf("%s: %w", kind, types.ErrParamTooLong)
	}
	if !isXMLText(param) {
		return Condition{}, fmt.Errorf("%s: %w: %q", kind, types.ErrInvalidParameter, param)
	}

	switch kind {
	case CondStartsWith, CondDoesNotStartWith, CondContains:
		if param == "" {
			return Condition{}, fmt.Errorf("%s: %w", kind, types.ErrMissingParameter)
		}
	case CondEquals, CondSSID:
		// verbatim, empty allowed
	case CondLengthEquals, CondShorterThan, CondLongerThan, CondNetworkType:
		param = strings.TrimSpace(param)
	case CondNumeric:
		param = ""
	}

	return Condition{Kind: kind, Param: param}, nil
}

// MustCondition is NewCondition that panics on error. For tests and literals.
func MustCondition(kind ConditionKind, param string) Condition {
	c, err := NewCondition(kind, param)
	if err != nil {
		panic(err)
	}
	return c
}

// String renders the condition for logs and diagnostics.
func (c Condition) String() string {
	if c.Param == "" {
		return c.Kind.String()
	}
	return fmt.Sprintf("%s(%q)", c.Kind, c.Param)
}
