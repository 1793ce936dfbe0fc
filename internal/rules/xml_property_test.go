package rules

import (
	"reflect"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/solatis/dialkeeper/internal/types"
)

type conditionSpec struct {
	Kind  int
	Param string
}

type actionSpec struct {
	Kind   int
	Param  string
	Leaves []string
}

type ruleSpec struct {
	Incoming        bool
	AccountSpecific bool
	Conditions      []conditionSpec
	Actions         []actionSpec
}

// leafNames cycles over tree element names. "value" comes first so a
// setHeader action with any leaves carries its header value; "bad name"
// makes NewAction reject some trees.
var leafNames = []string{"value", "transport", "note", "x-1", "_id", "a.b", "bad name"}

var oddText = []any{
	"", " ", "  padded  ", "\t", "line\nbreak", "cr\r\nlf", "<tag>", "a & b",
	`"quoted"`, "'single'", "]]>", "Café", "日本", "😀", "+420 123", "silent", " SILENT ",
}

func genText() gopter.Gen {
	return gen.OneGenOf(gen.OneConstOf(oddText...), gen.AlphaString(), gen.NumString(), gen.AnyString())
}

func genRuleSpecs() gopter.Gen {
	condition := gen.Struct(reflect.TypeOf(conditionSpec{}), map[string]gopter.Gen{
		"Kind":  gen.IntRange(int(CondStartsWith), int(CondNumeric)),
		"Param": genText(),
	})
	action := gen.Struct(reflect.TypeOf(actionSpec{}), map[string]gopter.Gen{
		"Kind":   gen.IntRange(int(ActReplace), int(ActShowAlert)),
		"Param":  genText(),
		"Leaves": gen.SliceOf(genText(), reflect.TypeOf("")),
	})
	rule := gen.Struct(reflect.TypeOf(ruleSpec{}), map[string]gopter.Gen{
		"Incoming":        gen.Bool(),
		"AccountSpecific": gen.Bool(),
		"Conditions":      gen.SliceOf(condition, reflect.TypeOf(conditionSpec{})),
		"Actions":         gen.SliceOf(action, reflect.TypeOf(actionSpec{})),
	})
	return gen.SliceOf(rule, reflect.TypeOf(ruleSpec{}))
}

// buildRule turns a spec into a rule, dropping conditions and actions the
// constructors reject.
func buildRule(spec ruleSpec) *Rule {
	r := &Rule{
		ID:              types.NewRuleID(),
		ForIncomingCall: spec.Incoming,
		AccountSpecific: spec.AccountSpecific,
	}
	for _, cs := range spec.Conditions {
		if c, err := NewCondition(ConditionKind(cs.Kind), cs.Param); err == nil {
			r.Conditions = append(r.Conditions, c)
		}
	}
	for _, as := range spec.Actions {
		var tree *types.Node
		if len(as.Leaves) > 0 {
			tree = types.NewNode("tree")
			sip := types.NewNode("sip")
			for i, v := range as.Leaves {
				leaf := types.NewLeaf(leafNames[i%len(leafNames)], v)
				if i%2 == 0 {
					tree.Children = append(tree.Children, leaf)
				} else {
					sip.Children = append(sip.Children, leaf)
				}
			}
			if len(sip.Children) > 0 {
				tree.Children = append(tree.Children, sip)
			}
		}
		if a, err := NewAction(ActionKind(as.Kind), as.Param, tree); err == nil {
			r.Actions = append(r.Actions, a)
		}
	}
	return r
}

// Property-based test: save then load reproduces any accepted rule set
func TestRewriter_PropertySaveLoadRoundTrip(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 300
	parameters.MaxSize = 6
	properties := gopter.NewProperties(parameters)

	properties.Property("save, parse and load gives canonically equal rules", prop.ForAll(
		func(specs []ruleSpec) bool {
			rw := NewRewriter(types.DirectionOutgoing, false)
			for _, spec := range specs {
				if err := rw.AddRule(buildRule(spec)); err != nil {
					t.Logf("AddRule() error = %v", err)
					return false
				}
			}

			text, err := rw.Save().EncodeToString()
			if err != nil {
				t.Logf("EncodeToString() error = %v", err)
				return false
			}
			doc, err := ParseDocument(text)
			if err != nil {
				t.Logf("ParseDocument() error = %v\n%s", err, text)
				return false
			}
			reloaded := NewRewriter(types.DirectionOutgoing, false)
			if err := reloaded.Load(doc); err != nil {
				t.Logf("Load() error = %v\n%s", err, text)
				return false
			}
			if reloaded.IsDirty() {
				return false
			}

			before, after := rw.Rules(), reloaded.Rules()
			if len(before) != len(after) {
				return false
			}
			for i := range before {
				if before[i].ID != after[i].ID || !before[i].Canonical().Equal(after[i].Canonical()) {
					t.Logf("rule %d changed:\n got  %+v\n want %+v", i, after[i], before[i])
					return false
				}
			}

			again, err := reloaded.Save().EncodeToString()
			return err == nil && again == text
		},
		genRuleSpecs(),
	))

	properties.TestingRun(t)
}
