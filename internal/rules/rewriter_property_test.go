package rules

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/solatis/dialkeeper/internal/types"
)

func propertyRewriter() *Rewriter {
	rw := NewRewriter(types.DirectionOutgoing, false)
	_ = rw.AddRule(rule(conds(MustCondition(CondStartsWith, "00")), MustAction(ActReplace, "+", nil), MustAction(ActContinue, "", nil)))
	_ = rw.AddRule(rule(conds(MustCondition(CondContains, "*")), MustAction(ActReplace, "", nil), MustAction(ActContinue, "", nil)))
	_ = rw.AddRule(rule(conds(MustCondition(CondLengthEquals, "9")), MustAction(ActPrepend, "+420", nil)))
	_ = rw.AddRule(rule(conds(MustCondition(CondNumeric, "")), MustAction(ActRecordCall, "", nil)))
	return rw
}

// Property-based test: rewriting is deterministic
func TestRewrite_PropertyDeterministic(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	rw := propertyRewriter()
	properties.Property("same input gives same result", prop.ForAll(
		func(address string, recording bool) bool {
			ctx := types.Context{RecordingEnabled: recording}
			a := rw.Rewrite(address, ctx)
			b := rw.Rewrite(address, ctx)
			return a.Number == b.Number && a.ShouldAutoRecord == b.ShouldAutoRecord &&
				len(a.MatchedRules) == len(b.MatchedRules)
		},
		gen.NumString(),
		gen.Bool(),
	))

	properties.TestingRun(t)
}

// Property-based test: progressive preview agrees with a full rewrite
func TestRewrite_PropertyProgressiveAgreesWithFull(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	rw := propertyRewriter()
	properties.Property("matched rules of a full pass are a prefix of progressive steps", prop.ForAll(
		func(address string) bool {
			res := rw.Rewrite(address, types.Context{})
			steps := rw.RewriteProgressively(address, types.Context{})
			if len(res.MatchedRules) == 0 {
				return res.Number == address
			}
			if len(steps) < len(res.MatchedRules) {
				return false
			}
			return steps[len(res.MatchedRules)-1] == res.Number
		},
		gen.OneGenOf(gen.NumString(), gen.AlphaString(), gen.Const("00*123456")),
	))

	properties.TestingRun(t)
}

// Property-based test: evaluation never panics on arbitrary input
func TestRewrite_PropertyNeverCrashes(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	rw := propertyRewriter()
	properties.Property("arbitrary strings never panic", prop.ForAll(
		func(address string, ssid string) bool {
			defer func() {
				if r := recover(); r != nil {
					t.Errorf("Rewrite(%q) panicked: %v", address, r)
				}
			}()
			ctx := types.Context{WifiSSID: ssid, NetworkType: types.NetworkWiFi}
			_ = rw.Rewrite(address, ctx)
			_ = rw.RewriteProgressively(address, ctx)
			return true
		},
		gen.AnyString(),
		gen.AlphaString(),
	))

	properties.TestingRun(t)
}
