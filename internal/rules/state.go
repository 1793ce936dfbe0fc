package rules

import "github.com/solatis/dialkeeper/internal/types"

// State is the working record of one rewrite pass.
// It is created by the rewriter for a single call and never shared.
type State struct {
	Result  string
	Match   Span
	HasSpan bool // Match is valid

	ShouldEnd        bool
	ForceDialOut     bool
	ShowDialOutAlert bool
	RecordCall       bool

	Headers            types.Headers
	Extras             *types.Node
	NewDialAction      types.DialActionID
	NewLocationPolicy  string
	Alert              string
	IncomingCallAction types.IncomingCallAction
	DefaultCountryCode string
}

// extrasRootName names the root of the extras tree returned to hosts.
const extrasRootName = "extras"

// newState seeds a pass from the address and the host context.
func newState(address string, ctx types.Context) *State {
	return &State{
		Result:             address,
		ShouldEnd:          true,
		ShowDialOutAlert:   true,
		DefaultCountryCode: ctx.DefaultCountryCode,
	}
}

// mergeExtras folds tree into the accumulated extras.
// A top-level defaultCountryCode leaf also overrides the pass's country code.
func (s *State) mergeExtras(tree *types.Node) {
	if tree == nil || len(tree.Children) == 0 {
		return
	}
	if s.Extras == nil {
		s.Extras = types.NewNode(extrasRootName)
	}
	s.Extras.Merge(tree)
	if cc := tree.Child("defaultCountryCode"); cc.IsLeaf() {
		s.DefaultCountryCode = cc.Value
	}
}

// project converts the terminal state into a Result.
func (s *State) project(ctx types.Context, matched []int) types.Result {
	return types.Result{
		Number:             s.Result,
		ForceDialOut:       s.ForceDialOut,
		ShowDialOutAlert:   s.ShowDialOutAlert,
		RecordCall:         s.RecordCall,
		ShouldAutoRecord:   s.RecordCall && ctx.RecordingEnabled,
		DialAction:         s.NewDialAction,
		Headers:            s.Headers.Clone(),
		Extras:             s.Extras.Clone(),
		LocationPolicy:     s.NewLocationPolicy,
		Alert:              s.Alert,
		IncomingCallAction: s.IncomingCallAction,
		DefaultCountryCode: s.DefaultCountryCode,
		MatchedRules:       matched,
	}
}
