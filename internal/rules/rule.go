package rules

import (
	"sort"

	"github.com/solatis/dialkeeper/internal/types"
)

// Rule is an ordered conjunction of conditions plus an ordered action sequence.
// Evaluation always uses the stored order; SortByTypes only canonicalizes.
type Rule struct {
	ID              types.RuleID
	Conditions      []Condition
	Actions         []Action
	ForIncomingCall bool
	AccountSpecific bool
}

// Direction returns the rule chain the rule belongs to.
func (r *Rule) Direction() types.Direction {
	if r.ForIncomingCall {
		return types.DirectionIncoming
	}
	return types.DirectionOutgoing
}

// Matches reports whether every condition holds for s and ctx.
// The returned span is the one recorded by the last span-producing
// condition; hasSpan is false when none produced one.
func (r *Rule) Matches(s string, ctx types.Context) (matched bool, span Span, hasSpan bool) {
	for _, c := range r.Conditions {
		ok, sp, spOK := Match(c, s, ctx)
		if !ok {
			return false, Span{}, false
		}
		if spOK {
			span, hasSpan = sp, true
		}
	}
	return true, span, hasSpan
}

// Apply runs every action against st, left to right.
func (r *Rule) Apply(st *State) {
	for _, a := range r.Actions {
		a.Apply(st)
	}
}

// SortByTypes orders conditions and actions by kind ordinal.
// Stable: equal kinds keep their relative order.
func (r *Rule) SortByTypes() {
	sort.SliceStable(r.Conditions, func(i, j int) bool {
		return r.Conditions[i].Kind < r.Conditions[j].Kind
	})
	sort.SliceStable(r.Actions, func(i, j int) bool {
		return r.Actions[i].Kind < r.Actions[j].Kind
	})
}

// Clone returns a deep copy.
func (r *Rule) Clone() *Rule {
	out := &Rule{
		ID:              r.ID,
		ForIncomingCall: r.ForIncomingCall,
		AccountSpecific: r.AccountSpecific,
	}
	if r.Conditions != nil {
		out.Conditions = append([]Condition(nil), r.Conditions...)
	}
	if r.Actions != nil {
		out.Actions = make([]Action, len(r.Actions))
		for i, a := range r.Actions {
			out.Actions[i] = Action{Kind: a.Kind, Param: a.Param, Tree: a.Tree.Clone()}
		}
	}
	return out
}

// Canonical returns a sorted copy, leaving r untouched.
func (r *Rule) Canonical() *Rule {
	c := r.Clone()
	c.SortByTypes()
	return c
}

// Equal reports structural equality in stored order. IDs are not compared.
func (r *Rule) Equal(other *Rule) bool {
	if r.ForIncomingCall != other.ForIncomingCall || r.AccountSpecific != other.AccountSpecific {
		return false
	}
	if len(r.Conditions) != len(other.Conditions) || len(r.Actions) != len(other.Actions) {
		return false
	}
	for i := range r.Conditions {
		if r.Conditions[i] != other.Conditions[i] {
			return false
		}
	}
	for i := range r.Actions {
		if !r.Actions[i].Equal(other.Actions[i]) {
			return false
		}
	}
	return true
}

// Def converts the rule back to its wire-agnostic definition.
func (r *Rule) Def() types.RuleDef {
	def := types.RuleDef{
		ID:              r.ID,
		ForIncomingCall: r.ForIncomingCall,
		AccountSpecific: r.AccountSpecific,
		Conditions:      make([]types.ConditionDef, len(r.Conditions)),
		Actions:         make([]types.ActionDef, len(r.Actions)),
	}
	for i, c := range r.Conditions {
		def.Conditions[i] = types.ConditionDef{Type: c.Kind.String(), Param: c.Param}
	}
	for i, a := range r.Actions {
		def.Actions[i] = types.ActionDef{Type: a.Kind.String(), Param: a.Param, Tree: a.Tree.Clone()}
	}
	return def
}
