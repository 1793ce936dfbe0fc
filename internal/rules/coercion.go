// internal/rules/coercion.go
package rules

import (
	"strconv"

	"github.com/solatis/dialkeeper/internal/types"
)

/*
 * Parameter coercion for condition evaluation.
 *
 * Condition parameters are persisted as text. Kinds that compare against
 * something other than a literal string (lengths, network types) coerce the
 * parameter at match time.
 *
 * Coercion failure never surfaces as an error: a condition whose parameter
 * cannot be coerced simply does not match. This keeps matching total and
 * lets a malformed persisted rule degrade to "number passes through".
 *
 * Length semantics: lengths count bytes of the UTF-8 string. Dialled
 * addresses are ASCII in practice, so bytes and characters coincide.
 */

// CoercionResult holds a coerced parameter or marks failure.
type CoercionResult struct {
	Value any  // int for length kinds, types.NetworkType for NetworkType
	OK    bool // false when the parameter could not be coerced
}

// CoerceParam converts a condition parameter to the value its kind compares against.
// Literal-text kinds return the parameter unchanged.
func CoerceParam(kind ConditionKind, param string) CoercionResult {
	switch kind {
	case CondLengthEquals, CondShorterThan, CondLongerThan:
		return coerceLength(param)
	case CondNetworkType:
		return coerceNetworkType(param)
	default:
		return CoercionResult{Value: param, OK: true}
	}
}

// coerceLength parses a non-negative decimal length.
// Empty strings, signs, decimals and overflow fail.
func coerceLength(param string) CoercionResult {
	if param == "" {
		return CoercionResult{}
	}
	for i := 0; i < len(param); i++ {
		if param[i] < '0' || param[i] > '9' {
			return CoercionResult{}
		}
	}
	n, err := strconv.Atoi(param)
	if err != nil {
		return CoercionResult{}
	}
	return CoercionResult{Value: n, OK: true}
}

// coerceNetworkType resolves a network-type name.
func coerceNetworkType(param string) CoercionResult {
	nt, ok := types.ParseNetworkType(param)
	if !ok {
		return CoercionResult{}
	}
	return CoercionResult{Value: nt, OK: true}
}
