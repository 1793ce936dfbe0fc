package rules

import (
	"errors"
	"strings"
	"testing"

	"github.com/solatis/dialkeeper/internal/types"
)

const sampleDocument = `<?xml version="1.0" encoding="UTF-8"?>
<rewriting>
  <rule id="intl">
    <conditions>
      <condition type="startsWith" param="00"/>
    </conditions>
    <actions>
      <action type="replace" param="+"/>
      <action type="setHeader" param="X-Intl"><value>yes</value></action>
    </actions>
  </rule>
  <rule id="premium" incoming="true">
    <conditions>
      <condition type="startsWith" param="+1900"/>
    </conditions>
    <actions>
      <action type="rejectCall"/>
    </actions>
  </rule>
  <rule id="office">
    <conditions>
      <condition type="networkType" param="wifi"/>
      <condition type="ssid" param="OfficeNet"/>
    </conditions>
    <actions>
      <action type="dialOut" param="silent">
        <sip>
          <transport>tls</transport>
        </sip>
      </action>
    </actions>
  </rule>
</rewriting>`

func TestDecodeDocument(t *testing.T) {
	doc, err := ParseDocument(sampleDocument)
	if err != nil {
		t.Fatalf("ParseDocument() error = %v, want nil", err)
	}

	defs := doc.Defs()
	if len(defs) != 3 {
		t.Fatalf("len(Defs()) = %d, want 3", len(defs))
	}
	if defs[0].ID != "intl" || defs[0].Direction() != types.DirectionOutgoing {
		t.Errorf("defs[0] = %+v, want outgoing intl", defs[0])
	}
	if !defs[1].ForIncomingCall {
		t.Error("defs[1].ForIncomingCall = false, want true")
	}

	header := defs[0].Actions[1]
	if header.Type != "setHeader" || header.Param != "X-Intl" {
		t.Errorf("header action = %+v, want setHeader X-Intl", header)
	}
	if v := header.Tree.Child("value"); v == nil || v.Value != "yes" {
		t.Errorf("header value node = %+v, want yes", v)
	}

	tree := defs[2].Actions[0].Tree
	if got := tree.Lookup("sip", "transport"); got == nil || got.Value != "tls" {
		t.Errorf("dialOut tree sip.transport = %+v, want tls", got)
	}
}

func TestDecodeDocument_Errors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr error
	}{
		{"not xml", "hello", types.ErrInvalidDocument},
		{"unclosed element", "<rewriting><rule>", types.ErrInvalidDocument},
		{"wrong root", "<rules><rule/></rules>", types.ErrInvalidDocument},
		{"too large", "<rewriting>" + strings.Repeat(" ", types.MaxDocumentSize) + "</rewriting>", types.ErrDocumentTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseDocument(tt.input); !errors.Is(err, tt.wantErr) {
				t.Errorf("ParseDocument() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestDecodeDocument_Empty(t *testing.T) {
	doc, err := ParseDocument("<rewriting/>")
	if err != nil {
		t.Fatalf("ParseDocument() error = %v, want nil", err)
	}
	if len(doc.Defs()) != 0 {
		t.Errorf("Defs() = %v, want empty", doc.Defs())
	}
}

func TestRewriter_LoadAndRewrite(t *testing.T) {
	doc, err := ParseDocument(sampleDocument)
	if err != nil {
		t.Fatalf("ParseDocument() error = %v", err)
	}

	rw := NewRewriter(types.DirectionOutgoing, false)
	if err := rw.Load(doc); err != nil {
		t.Fatalf("Load() error = %v, want nil", err)
	}
	if rw.Len() != 3 {
		t.Errorf("Len() = %d, want 3 (rules of both directions are kept)", rw.Len())
	}
	if rw.IsDirty() {
		t.Error("IsDirty() = true after Load, want false")
	}

	res := rw.Rewrite("0048123", types.Context{})
	if res.Number != "+48123" {
		t.Errorf("Number = %q, want +48123", res.Number)
	}
	if v, _ := res.Headers.Get("X-Intl"); v != "yes" {
		t.Errorf("X-Intl = %q, want yes", v)
	}

	office := rw.Rewrite("5551234", types.Context{NetworkType: types.NetworkWiFi, WifiSSID: "OfficeNet"})
	if !office.ForceDialOut || office.ShowDialOutAlert {
		t.Errorf("office flags = forceDialOut:%v showAlert:%v, want true false", office.ForceDialOut, office.ShowDialOutAlert)
	}
	if v, err := ResolveValue(office.Extras, "sip.transport"); err != nil || v != "tls" {
		t.Errorf("extras sip.transport = %q, %v; want tls", v, err)
	}
}

func TestRewriter_LoadIsAllOrNothing(t *testing.T) {
	rw := NewRewriter(types.DirectionOutgoing, false)
	good, _ := ParseDocument(`<rewriting><rule id="a"><actions><action type="append" param="1"/></actions></rule></rewriting>`)
	if err := rw.Load(good); err != nil {
		t.Fatalf("Load(good) error = %v", err)
	}

	bad, err := ParseDocument(`<rewriting>
  <rule id="b"><actions><action type="append" param="2"/></actions></rule>
  <rule id="c"><conditions><condition type="regex" param=".*"/></conditions></rule>
</rewriting>`)
	if err != nil {
		t.Fatalf("ParseDocument(bad) error = %v, want nil (kinds are checked on load)", err)
	}

	err = rw.Load(bad)
	if !errors.Is(err, types.ErrMalformedRule) {
		t.Fatalf("Load(bad) error = %v, want ErrMalformedRule", err)
	}
	if !strings.Contains(err.Error(), "rule 1") {
		t.Errorf("Load(bad) error = %q, want it to name rule 1", err)
	}

	if got := rw.Rewrite("x", types.Context{}).Number; got != "x1" {
		t.Errorf("Number = %q, want x1 (previous rules kept)", got)
	}
	if rw.IsDirty() {
		t.Error("IsDirty() = true after failed Load, want false")
	}

	if err := rw.Load(nil); !errors.Is(err, types.ErrInvalidDocument) {
		t.Errorf("Load(nil) error = %v, want ErrInvalidDocument", err)
	}
}

func TestRewriter_SaveLoadRoundTrip(t *testing.T) {
	doc, _ := ParseDocument(sampleDocument)
	first := NewRewriter(types.DirectionOutgoing, false)
	if err := first.Load(doc); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	saved, err := first.Save().EncodeToString()
	if err != nil {
		t.Fatalf("EncodeToString() error = %v", err)
	}
	if !strings.HasPrefix(saved, "<?xml") || !strings.Contains(saved, "<rewriting>") {
		t.Fatalf("Save() = %q, want xml header and rewriting root", saved)
	}

	reparsed, err := ParseDocument(saved)
	if err != nil {
		t.Fatalf("ParseDocument(Save()) error = %v", err)
	}
	second := NewRewriter(types.DirectionOutgoing, false)
	if err := second.Load(reparsed); err != nil {
		t.Fatalf("Load(Save()) error = %v", err)
	}

	a, b := first.Rules(), second.Rules()
	if len(a) != len(b) {
		t.Fatalf("rule count = %d after round trip, want %d", len(b), len(a))
	}
	for i := range a {
		if a[i].ID != b[i].ID || !a[i].Canonical().Equal(b[i].Canonical()) {
			t.Errorf("rule %d changed in round trip:\n got  %+v\n want %+v", i, b[i], a[i])
		}
	}
}

func TestRewriter_SaveLoadKeepsLeafText(t *testing.T) {
	rw := newTestRewriter(t,
		rule(nil,
			MustAction(ActSetHeader, "X-Pad", headerTree("  padded  ")),
			MustAction(ActAppend, "", types.NewNode("tree", types.NewLeaf("note", "\tline one\nline two\r\n"))),
		),
	)

	saved, err := rw.Save().EncodeToString()
	if err != nil {
		t.Fatalf("EncodeToString() error = %v", err)
	}
	doc, err := ParseDocument(saved)
	if err != nil {
		t.Fatalf("ParseDocument(Save()) error = %v", err)
	}
	reloaded := NewRewriter(types.DirectionOutgoing, false)
	if err := reloaded.Load(doc); err != nil {
		t.Fatalf("Load(Save()) error = %v", err)
	}

	before, after := rw.Rules()[0], reloaded.Rules()[0]
	if got := after.Actions[0].HeaderValue(); got != "  padded  " {
		t.Errorf("header value after reload = %q, want %q", got, "  padded  ")
	}
	if !before.Canonical().Equal(after.Canonical()) {
		t.Errorf("rule changed in round trip:\n got  %+v\n want %+v", after, before)
	}
}

func TestDocument_EncodeRejectsUnreadableContent(t *testing.T) {
	tests := []struct {
		name string
		rule *Rule
	}{
		{"element name with space", &Rule{Actions: []Action{{Kind: ActAppend, Tree: types.NewNode("tree", types.NewLeaf("bad name", "x"))}}}},
		{"element name with prefix", &Rule{Actions: []Action{{Kind: ActAppend, Tree: types.NewNode("tree", types.NewLeaf("sip:transport", "x"))}}}},
		{"control character in text", &Rule{Actions: []Action{{Kind: ActAppend, Tree: types.NewNode("tree", types.NewLeaf("note", "a\x00b"))}}}},
		{"control character in parameter", &Rule{Conditions: []Condition{{Kind: CondEquals, Param: "\x1b[0m"}}}},
		{"invalid utf-8 in parameter", &Rule{Actions: []Action{{Kind: ActAppend, Param: "\xff"}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf strings.Builder
			err := NewDocument([]*Rule{tt.rule}).Encode(&buf)
			if !errors.Is(err, types.ErrInvalidDocument) {
				t.Fatalf("Encode() error = %v, want ErrInvalidDocument", err)
			}
			if buf.Len() != 0 {
				t.Errorf("Encode() wrote %q before failing", buf.String())
			}
			if _, err := NewDocument([]*Rule{tt.rule}).EncodeToString(); !errors.Is(err, types.ErrInvalidDocument) {
				t.Errorf("EncodeToString() error = %v, want ErrInvalidDocument", err)
			}
		})
	}
}

func TestRewriter_SaveWritesCanonicalOrder(t *testing.T) {
	rw := newTestRewriter(t,
		&Rule{
			ID:         "r1",
			Conditions: conds(MustCondition(CondNumeric, ""), MustCondition(CondStartsWith, "0")),
			Actions:    []Action{MustAction(ActShowAlert, "hi", nil), MustAction(ActReplace, "+", nil)},
		},
	)

	defs := rw.Save().Defs()
	if defs[0].Conditions[0].Type != "startsWith" || defs[0].Actions[0].Type != "replace" {
		t.Errorf("Save() order = %+v / %+v, want startsWith and replace first", defs[0].Conditions, defs[0].Actions)
	}

	// Saving does not reorder the live chain.
	if rw.Rules()[0].Conditions[0].Kind != CondNumeric {
		t.Error("Save() reordered live rule conditions")
	}
}

func TestRewriter_IsDirty(t *testing.T) {
	doc, _ := ParseDocument(`<rewriting>
  <rule id="a"><conditions><condition type="startsWith" param="0"/></conditions><actions><action type="append" param="1"/></actions></rule>
  <rule id="b"><actions><action type="prepend" param="2"/></actions></rule>
</rewriting>`)

	t.Run("fresh rewriter is clean", func(t *testing.T) {
		if NewRewriter(types.DirectionOutgoing, false).IsDirty() {
			t.Error("IsDirty() = true, want false")
		}
	})

	t.Run("NewRule marks dirty until MarkClean", func(t *testing.T) {
		rw := NewRewriter(types.DirectionIncoming, true)
		_ = rw.Load(doc)
		r := rw.NewRule()
		if !r.ForIncomingCall || !r.AccountSpecific || r.ID == "" {
			t.Errorf("NewRule() = %+v, want incoming account-specific rule with ID", r)
		}
		if !rw.IsDirty() {
			t.Fatal("IsDirty() = false after NewRule, want true")
		}
		rw.MarkClean()
		if rw.IsDirty() {
			t.Error("IsDirty() = true after MarkClean, want false")
		}
	})

	t.Run("ClearAllRules marks dirty", func(t *testing.T) {
		rw := NewRewriter(types.DirectionOutgoing, false)
		_ = rw.Load(doc)
		rw.ClearAllRules()
		if rw.Len() != 0 {
			t.Errorf("Len() = %d after ClearAllRules, want 0", rw.Len())
		}
		if !rw.IsDirty() {
			t.Error("IsDirty() = false after ClearAllRules, want true")
		}
	})

	t.Run("reordering inside a rule is not a change", func(t *testing.T) {
		rw := NewRewriter(types.DirectionOutgoing, false)
		_ = rw.Load(doc)
		rules := rw.Rules()
		rules[0].Conditions = append(rules[0].Conditions, MustCondition(CondNumeric, ""))
		rules[0].Conditions[0], rules[0].Conditions[1] = rules[0].Conditions[1], rules[0].Conditions[0]

		mod := NewRewriter(types.DirectionOutgoing, false)
		_ = mod.Load(doc)
		mod.ClearAllRules()
		_ = mod.AddRule(rules[0])
		_ = mod.AddRule(rules[1])
		if !mod.IsDirty() {
			t.Error("IsDirty() = false after adding a condition, want true")
		}

		back := NewRewriter(types.DirectionOutgoing, false)
		_ = back.Load(doc)
		rules = back.Rules()
		r0 := rules[0]
		r0.Actions = append([]Action{MustAction(ActContinue, "", nil)}, r0.Actions...)
		back.ClearAllRules()
		_ = back.AddRule(r0)
		_ = back.AddRule(rules[1])
		back.MarkClean()

		r0.Actions[0], r0.Actions[1] = r0.Actions[1], r0.Actions[0]
		back.ClearAllRules()
		_ = back.AddRule(r0)
		_ = back.AddRule(rules[1])
		if back.IsDirty() {
			t.Error("IsDirty() = true after swapping actions within a rule, want false")
		}
	})

	t.Run("reordering rules is a change", func(t *testing.T) {
		rw := NewRewriter(types.DirectionOutgoing, false)
		_ = rw.Load(doc)
		rules := rw.Rules()
		rw.ClearAllRules()
		_ = rw.AddRule(rules[1])
		_ = rw.AddRule(rules[0])
		if !rw.IsDirty() {
			t.Error("IsDirty() = false after swapping rules, want true")
		}
	})
}

func TestRewriter_AddRuleLimit(t *testing.T) {
	rw := NewRewriter(types.DirectionOutgoing, false)
	for i := 0; i < types.MaxRules; i++ {
		if err := rw.AddRule(&Rule{}); err != nil {
			t.Fatalf("AddRule(%d) error = %v", i, err)
		}
	}
	if err := rw.AddRule(&Rule{}); !errors.Is(err, types.ErrTooManyRules) {
		t.Errorf("AddRule() error = %v, want ErrTooManyRules", err)
	}
}
