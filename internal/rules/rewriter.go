package rules

import (
	"fmt"
	"sync"

	"github.com/solatis/dialkeeper/internal/types"
)

// Rewriter owns one ordered rule chain and its last-loaded snapshot.
//
// Rules of both directions are kept so that Save round-trips a whole
// document, but Rewrite only evaluates rules of the rewriter's direction.
//
// Concurrency: Rewrite and the queries take a snapshot of the rule slice
// under a read lock and evaluate without holding it. Load, AddRule,
// NewRule and ClearAllRules take the write lock and replace the slice, so
// a rewrite in flight keeps seeing the chain it started with. A *Rule
// returned by NewRule must be fully populated before the rewriter is used
// from other goroutines.
type Rewriter struct {
	direction       types.Direction
	accountSpecific bool

	mu     sync.RWMutex
	rules  []*Rule
	backup []*Rule
}

// NewRewriter creates an empty rewriter for one direction.
func NewRewriter(direction types.Direction, accountSpecific bool) *Rewriter {
	return &Rewriter{direction: direction, accountSpecific: accountSpecific}
}

// Direction returns the chain this rewriter evaluates.
func (rw *Rewriter) Direction() types.Direction {
	return rw.direction
}

// AccountSpecific reports whether the rewriter holds an account's own rules.
func (rw *Rewriter) AccountSpecific() bool {
	return rw.accountSpecific
}

// snapshot returns the current rule slice. The slice is never mutated in
// place after publication, only replaced.
func (rw *Rewriter) snapshot() []*Rule {
	rw.mu.RLock()
	defer rw.mu.RUnlock()
	return rw.rules
}

// Rewrite runs a full pass over the chain and projects the result.
func (rw *Rewriter) Rewrite(address string, ctx types.Context) types.Result {
	st, matched, _ := evaluate(rw.snapshot(), rw.direction, address, ctx, passFull)
	return st.project(ctx, matched)
}

// RewriteProgressively returns the string after every matching rule, in order.
// No side effects of the matched rules are reported.
func (rw *Rewriter) RewriteProgressively(address string, ctx types.Context) []string {
	_, _, steps := evaluate(rw.snapshot(), rw.direction, address, ctx, passProgressive)
	return steps
}

// ForcesDialOut reports whether rewriting address forces dial-out.
func (rw *Rewriter) ForcesDialOut(address string, ctx types.Context) bool {
	return rw.Rewrite(address, ctx).ForceDialOut
}

// ShouldRecordCall reports whether the call to address should be recorded.
func (rw *Rewriter) ShouldRecordCall(address string, ctx types.Context) bool {
	return rw.Rewrite(address, ctx).ShouldAutoRecord
}

// ShouldOverrideDialAction returns the dial action a rule selects for address.
func (rw *Rewriter) ShouldOverrideDialAction(address string, ctx types.Context) (types.DialActionID, bool) {
	res := rw.Rewrite(address, ctx)
	return res.DialAction, res.DialAction != ""
}

// ShouldOverrideLocationPolicy returns the location policy a rule selects for address.
func (rw *Rewriter) ShouldOverrideLocationPolicy(address string, ctx types.Context) (string, bool) {
	res := rw.Rewrite(address, ctx)
	return res.LocationPolicy, res.LocationPolicy != ""
}

// ContainsForcedDialOut reports whether any rule dials out or calls through.
func (rw *Rewriter) ContainsForcedDialOut() bool {
	return rw.anyAction(func(a Action) bool {
		return a.Kind == ActDialOut || a.Kind == ActCallThrough
	})
}

// ContainsWiFiSSID reports whether any rule tests the Wi-Fi SSID.
func (rw *Rewriter) ContainsWiFiSSID() bool {
	return rw.anyCondition(func(c Condition) bool { return c.Kind == CondSSID })
}

// RequiresLocation reports whether evaluating the rules needs location access:
// SSID and network-type conditions, or a location-policy override.
func (rw *Rewriter) RequiresLocation() bool {
	if rw.anyCondition(func(c Condition) bool { return c.Kind == CondSSID || c.Kind == CondNetworkType }) {
		return true
	}
	return rw.anyAction(func(a Action) bool { return a.Kind == ActOverrideLocationPolicy })
}

func (rw *Rewriter) anyCondition(pred func(Condition) bool) bool {
	for _, r := range rw.snapshot() {
		for _, c := range r.Conditions {
			if pred(c) {
				return true
			}
		}
	}
	return false
}

func (rw *Rewriter) anyAction(pred func(Action) bool) bool {
	for _, r := range rw.snapshot() {
		for _, a := range r.Actions {
			if pred(a) {
				return true
			}
		}
	}
	return false
}

// Rules returns deep copies of the current rules in order.
func (rw *Rewriter) Rules() []*Rule {
	src := rw.snapshot()
	out := make([]*Rule, len(src))
	for i, r := range src {
		out[i] = r.Clone()
	}
	return out
}

// Len returns the number of rules of both directions.
func (rw *Rewriter) Len() int {
	return len(rw.snapshot())
}

// NewRule appends an empty rule of the rewriter's direction and returns it
// for the caller to populate.
func (rw *Rewriter) NewRule() *Rule {
	r := &Rule{
		ID:              types.NewRuleID(),
		ForIncomingCall: rw.direction == types.DirectionIncoming,
		AccountSpecific: rw.accountSpecific,
	}
	rw.mu.Lock()
	defer rw.mu.Unlock()
	rw.rules = appendCopy(rw.rules, r)
	return r
}

// AddRule appends a copy of r.
func (rw *Rewriter) AddRule(r *Rule) error {
	rw.mu.Lock()
	defer rw.mu.Unlock()
	if len(rw.rules) >= types.MaxRules {
		return types.ErrTooManyRules
	}
	rw.rules = appendCopy(rw.rules, r.Clone())
	return nil
}

// ClearAllRules removes every rule. The backup snapshot is kept, so the
// rewriter reports dirty until the next Load.
func (rw *Rewriter) ClearAllRules() {
	rw.mu.Lock()
	defer rw.mu.Unlock()
	rw.rules = nil
}

// IsDirty reports whether the rules differ from the last loaded snapshot.
// Both sides are compared in canonical form: reordering conditions or
// actions inside a rule is not a change, reordering rules is.
func (rw *Rewriter) IsDirty() bool {
	rw.mu.RLock()
	defer rw.mu.RUnlock()
	return !equalCanonical(rw.rules, rw.backup)
}

// Load replaces the rules with the compiled contents of doc and refreshes
// the backup snapshot. All-or-nothing: if any rule fails to compile the
// rewriter keeps its previous rules and snapshot, and the error wraps
// types.ErrMalformedRule.
func (rw *Rewriter) Load(doc *Document) error {
	if doc == nil {
		return types.ErrInvalidDocument
	}
	compiled, err := CompileAll(doc.Defs())
	if err != nil {
		return err
	}
	backup := make([]*Rule, len(compiled))
	for i, r := range compiled {
		backup[i] = r.Clone()
	}

	rw.mu.Lock()
	defer rw.mu.Unlock()
	rw.rules = compiled
	rw.backup = backup
	return nil
}

// LoadStrict is Load for rule sets stored per direction. A rule of the
// other direction rejects the document with types.ErrDirectionMismatch.
func (rw *Rewriter) LoadStrict(doc *Document) error {
	if doc == nil {
		return types.ErrInvalidDocument
	}
	for i, def := range doc.Defs() {
		if def.Direction() != rw.direction {
			return fmt.Errorf("%w: rule %d is %s", types.ErrDirectionMismatch, i, def.Direction())
		}
	}
	return rw.Load(doc)
}

// Save returns the rules as a document. Conditions and actions are
// written in canonical order; rule order is preserved.
func (rw *Rewriter) Save() *Document {
	src := rw.snapshot()
	canon := make([]*Rule, len(src))
	for i, r := range src {
		canon[i] = r.Canonical()
	}
	return NewDocument(canon)
}

// MarkClean makes the current rules the new backup snapshot.
// Called after the caller has persisted Save's output.
func (rw *Rewriter) MarkClean() {
	rw.mu.Lock()
	defer rw.mu.Unlock()
	backup := make([]*Rule, len(rw.rules))
	for i, r := range rw.rules {
		backup[i] = r.Clone()
	}
	rw.backup = backup
}

// appendCopy returns a new slice holding rules followed by r, leaving the
// published slice untouched for readers holding a snapshot.
func appendCopy(rules []*Rule, r *Rule) []*Rule {
	out := make([]*Rule, len(rules), len(rules)+1)
	copy(out, rules)
	return append(out, r)
}

func equalCanonical(a, b []*Rule) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Canonical().Equal(b[i].Canonical()) {
			return false
		}
	}
	return true
}
