package types

import "errors"

// Sentinel errors for DialKeeper operations.
var (
	// ErrUnknownConditionKind indicates a condition type string with no matching kind.
	ErrUnknownConditionKind = errors.New("unknown condition kind")

	// ErrUnknownActionKind indicates an action type string with no matching kind.
	ErrUnknownActionKind = errors.New("unknown action kind")

	// ErrMissingParameter indicates a kind that requires a parameter received none.
	ErrMissingParameter = errors.New("missing required parameter")

	// ErrInvalidParameter indicates a parameter outside the kind's accepted values.
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrParamTooLong indicates a parameter exceeds MaxParamLength.
	ErrParamTooLong = errors.New("parameter exceeds maximum length")

	// ErrTreeTooDeep indicates an action sub-tree exceeds MaxTreeDepth.
	ErrTreeTooDeep = errors.New("action tree exceeds maximum depth")

	// ErrTooManyConditions indicates a rule exceeds MaxConditionsPerRule.
	ErrTooManyConditions = errors.New("rule has too many conditions")

	// ErrTooManyActions indicates a rule exceeds MaxActionsPerRule.
	ErrTooManyActions = errors.New("rule has too many actions")

	// ErrTooManyRules indicates a rule set exceeds MaxRules.
	ErrTooManyRules = errors.New("rule set has too many rules")

	// ErrMalformedRule wraps any construction failure of a persisted rule.
	ErrMalformedRule = errors.New("malformed rule")

	// ErrInvalidDocument indicates a rule document that is not well-formed.
	ErrInvalidDocument = errors.New("invalid rule document")

	// ErrDocumentTooLarge indicates a rule document exceeds MaxDocumentSize.
	ErrDocumentTooLarge = errors.New("rule document exceeds maximum size")

	// ErrDirectionMismatch indicates a rule stored in the rule set of the other direction.
	ErrDirectionMismatch = errors.New("rule direction does not match rule set")

	// ErrInvalidDirection indicates an unknown call direction name.
	ErrInvalidDirection = errors.New("invalid direction")

	// ErrRuleSetNotFound indicates no stored revision exists for an account and direction.
	ErrRuleSetNotFound = errors.New("rule set not found")
)
