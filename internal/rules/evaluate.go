// internal/rules/evaluate.go
package rules

import (
	"github.com/solatis/dialkeeper/internal/types"
)

/*
 * Rewrite pass orchestration.
 *
 * Walks a rule chain against a fresh State with first-match-wins semantics:
 *
 *   Init -> Evaluating(i) -> NoMatch(i)  -> Evaluating(i+1)
 *                         -> Applied(i)  -> Done               (shouldEnd)
 *                         -> Applied(i)  -> Evaluating(i+1)    (continue)
 *
 * Evaluation flow per rule:
 *   1. Skip rules of the other direction
 *   2. Match all conditions against the current string (no mutation)
 *   3. Commit the match span, reset shouldEnd, apply actions in order
 *   4. Stop unless an action cleared shouldEnd
 *
 * Progressive mode uses the same traversal but ignores shouldEnd and records
 * the string after every matching rule.
 */

// passMode selects how evaluate treats shouldEnd.
type passMode int

const (
	passFull passMode = iota
	passProgressive
)

// evaluate runs rules against address and returns the terminal state,
// the indices of rules that matched, and the string after each match.
func evaluate(rules []*Rule, dir types.Direction, address string, ctx types.Context, mode passMode) (*State, []int, []string) {
	st := newState(address, ctx)
	var matched []int
	var steps []string

	for i, rule := range rules {
		if rule.Direction() != dir {
			continue
		}

		ok, span, hasSpan := rule.Matches(st.Result, ctx)
		if !ok {
			continue
		}

		st.Match, st.HasSpan = span, hasSpan
		st.ShouldEnd = true
		rule.Apply(st)

		matched = append(matched, i)
		if mode == passProgressive {
			steps = append(steps, st.Result)
			continue
		}
		if st.ShouldEnd {
			break
		}
	}

	return st, matched, steps
}
