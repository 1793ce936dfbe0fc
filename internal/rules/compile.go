// internal/rules/compile.go
package rules

import (
	"fmt"

	"github.com/solatis/dialkeeper/internal/types"
)

/*
 * Rule compilation and validation.
 *
 * Compiles types.RuleDef (plain strings from a document or RPC payload)
 * into a Rule with closed condition/action kinds.
 *
 * Compilation workflow:
 *   1. Validate resource limits (conditions, actions per rule)
 *   2. Parse each kind name; unknown names fail
 *   3. Sanitize parameters via NewCondition/NewAction
 *
 * Why compile-time validation: checking kinds and parameters once when a
 * rule set is loaded means matching and applying never need an error path.
 *
 * CompileAll is all-or-nothing: the first invalid rule fails the whole set
 * and the error names its index.
 */

// Compile validates a rule definition and returns the Rule.
func Compile(def types.RuleDef) (*Rule, error) {
	if len(def.Conditions) > types.MaxConditionsPerRule {
		return nil, types.ErrTooManyConditions
	}
	if len(def.Actions) > types.MaxActionsPerRule {
		return nil, types.ErrTooManyActions
	}

	rule := &Rule{
		ID:              def.ID,
		ForIncomingCall: def.ForIncomingCall,
		AccountSpecific: def.AccountSpecific,
		Conditions:      make([]Condition, 0, len(def.Conditions)),
		Actions:         make([]Action, 0, len(def.Actions)),
	}

	for i, cd := range def.Conditions {
		c, err := compileCondition(cd)
		if err != nil {
			return nil, fmt.Errorf("condition %d: %w", i, err)
		}
		rule.Conditions = append(rule.Conditions, c)
	}

	for i, ad := range def.Actions {
		a, err := compileAction(ad)
		if err != nil {
			return nil, fmt.Errorf("action %d: %w", i, err)
		}
		rule.Actions = append(rule.Actions, a)
	}

	if rule.ID == "" {
		rule.ID = types.NewRuleID()
	}
	return rule, nil
}

// CompileAll compiles every definition or none.
// Errors wrap types.ErrMalformedRule and name the failing rule index.
func CompileAll(defs []types.RuleDef) ([]*Rule, error) {
	if len(defs) > types.MaxRules {
		return nil, types.ErrTooManyRules
	}
	out := make([]*Rule, 0, len(defs))
	for i, def := range defs {
		r, err := Compile(def)
		if err != nil {
			return nil, fmt.Errorf("%w: rule %d: %w", types.ErrMalformedRule, i, err)
		}
		out = append(out, r)
	}
	return out, nil
}

// compileCondition parses the kind name and sanitizes the parameter.
func compileCondition(cd types.ConditionDef) (Condition, error) {
	kind, err := ParseConditionKind(cd.Type)
	if err != nil {
		return Condition{}, err
	}
	return NewCondition(kind, cd.Param)
}

// compileAction parses the kind name and sanitizes parameter and tree.
func compileAction(ad types.ActionDef) (Action, error) {
	kind, err := ParseActionKind(ad.Type)
	if err != nil {
		return Action{}, err
	}
	return NewAction(kind, ad.Param, ad.Tree)
}
