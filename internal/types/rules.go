// internal/types/rules.go
package types

/*
 * Wire-agnostic rule definitions.
 *
 * RuleDef, ConditionDef and ActionDef carry rule content as plain strings,
 * exactly as read from a persisted document or an RPC payload. They are not
 * validated; internal/rules compiles them into closed Condition/Action kinds
 * and rejects anything malformed at that point.
 *
 * Key types:
 *   - RuleDef: complete rule definition (direction flag, conditions, actions)
 *   - ConditionDef: {type, param}
 *   - ActionDef: {type, param, optional sub-tree}
 */

// ConditionDef is an unvalidated condition as persisted.
type ConditionDef struct {
	Type  string
	Param string
}

// ActionDef is an unvalidated action as persisted.
type ActionDef struct {
	Type  string
	Param string
	Tree  *Node // nil when the action carries no sub-tree
}

// RuleDef is an unvalidated rule as persisted.
type RuleDef struct {
	ID              RuleID
	ForIncomingCall bool
	AccountSpecific bool
	Conditions      []ConditionDef
	Actions         []ActionDef
}

// Direction returns the rule chain this definition belongs to.
func (d RuleDef) Direction() Direction {
	if d.ForIncomingCall {
		return DirectionIncoming
	}
	return DirectionOutgoing
}
