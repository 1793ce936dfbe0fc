package rules

import (
	"errors"
	"testing"

	"github.com/solatis/dialkeeper/internal/types"
)

func TestMatch(t *testing.T) {
	office := types.Context{WifiSSID: "OfficeNet", NetworkType: types.NetworkWiFi}
	cellular := types.Context{NetworkType: types.NetworkCellular}

	tests := []struct {
		name     string
		cond     Condition
		input    string
		ctx      types.Context
		want     bool
		wantSpan *Span
	}{
		{"startsWith match", MustCondition(CondStartsWith, "00"), "0048123", cellular, true, &Span{0, 2}},
		{"startsWith miss", MustCondition(CondStartsWith, "00"), "+48123", cellular, false, nil},
		{"startsWith case-sensitive", MustCondition(CondStartsWith, "abc"), "ABCdef", cellular, false, nil},
		{"doesNotStartWith match", MustCondition(CondDoesNotStartWith, "+"), "0048", cellular, true, nil},
		{"doesNotStartWith miss", MustCondition(CondDoesNotStartWith, "+"), "+48", cellular, false, nil},
		{"equals match", MustCondition(CondEquals, "911"), "911", cellular, true, &Span{0, 3}},
		{"equals miss", MustCondition(CondEquals, "911"), "9110", cellular, false, nil},
		{"equals empty", MustCondition(CondEquals, ""), "", cellular, true, &Span{0, 0}},
		{"lengthEquals match", MustCondition(CondLengthEquals, "9"), "123456789", cellular, true, nil},
		{"lengthEquals miss", MustCondition(CondLengthEquals, "9"), "12345678", cellular, false, nil},
		{"lengthEquals trimmed param", MustCondition(CondLengthEquals, " 3 "), "123", cellular, true, nil},
		{"shorterThan match", MustCondition(CondShorterThan, "5"), "1234", cellular, true, nil},
		{"shorterThan equal length", MustCondition(CondShorterThan, "4"), "1234", cellular, false, nil},
		{"longerThan match", MustCondition(CondLongerThan, "3"), "1234", cellular, true, nil},
		{"longerThan equal length", MustCondition(CondLongerThan, "4"), "1234", cellular, false, nil},
		{"networkType match", MustCondition(CondNetworkType, "WiFi"), "1", office, true, nil},
		{"networkType miss", MustCondition(CondNetworkType, "wifi"), "1", cellular, false, nil},
		{"ssid match", MustCondition(CondSSID, "OfficeNet"), "1", office, true, nil},
		{"ssid miss", MustCondition(CondSSID, "HomeNet"), "1", office, false, nil},
		{"ssid empty context never matches pattern", MustCondition(CondSSID, "OfficeNet"), "1", cellular, false, nil},
		{"contains match", MustCondition(CondContains, "911"), "00911", cellular, true, &Span{2, 5}},
		{"contains first occurrence", MustCondition(CondContains, "1"), "0101", cellular, true, &Span{1, 2}},
		{"contains miss", MustCondition(CondContains, "911"), "912", cellular, false, nil},
		{"numeric digits", MustCondition(CondNumeric, ""), "0123456789", cellular, true, nil},
		{"numeric leading plus", MustCondition(CondNumeric, ""), "+420123", cellular, true, nil},
		{"numeric letters", MustCondition(CondNumeric, ""), "12a4", cellular, false, nil},
		{"numeric plus only", MustCondition(CondNumeric, ""), "+", cellular, false, nil},
		{"numeric empty", MustCondition(CondNumeric, ""), "", cellular, false, nil},
		{"numeric double plus", MustCondition(CondNumeric, ""), "++1", cellular, false, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, span, hasSpan := Match(tt.cond, tt.input, tt.ctx)
			if got != tt.want {
				t.Fatalf("Match() = %v, want %v", got, tt.want)
			}
			if tt.wantSpan == nil {
				if hasSpan {
					t.Errorf("Match() span = %+v, want none", span)
				}
				return
			}
			if !hasSpan || span != *tt.wantSpan {
				t.Errorf("Match() span = %+v (set=%v), want %+v", span, hasSpan, *tt.wantSpan)
			}
		})
	}
}

func TestNewCondition_Sanitize(t *testing.T) {
	tests := []struct {
		name      string
		kind      ConditionKind
		param     string
		wantParam string
		wantErr   error
	}{
		{"startsWith keeps whitespace", CondStartsWith, " 0", " 0", nil},
		{"startsWith empty rejected", CondStartsWith, "", "", types.ErrMissingParameter},
		{"doesNotStartWith empty rejected", CondDoesNotStartWith, "", "", types.ErrMissingParameter},
		{"contains empty rejected", CondContains, "", "", types.ErrMissingParameter},
		{"equals empty allowed", CondEquals, "", "", nil},
		{"lengthEquals trimmed", CondLengthEquals, " 9\t", "9", nil},
		{"networkType trimmed", CondNetworkType, " wifi ", "wifi", nil},
		{"numeric drops param", CondNumeric, "ignored", "", nil},
		{"unknown kind rejected", ConditionKind(99), "x", "", types.ErrUnknownConditionKind},
		{"ssid keeps odd characters", CondSSID, " <Café & \"Bar\"> ", " <Café & \"Bar\"> ", nil},
		{"control character rejected", CondEquals, "1\x002", "", types.ErrInvalidParameter},
		{"invalid utf-8 rejected", CondContains, "\xfe", "", types.ErrInvalidParameter},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewCondition(tt.kind, tt.param)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("NewCondition() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewCondition() error = %v, want nil", err)
			}
			if c.Param != tt.wantParam {
				t.Errorf("Param = %q, want %q", c.Param, tt.wantParam)
			}
		})
	}
}

func TestParseConditionKind(t *testing.T) {
	for k := CondStartsWith; k <= CondNumeric; k++ {
		got, err := ParseConditionKind(k.String())
		if err != nil {
			t.Fatalf("ParseConditionKind(%q) error = %v", k.String(), err)
		}
		if got != k {
			t.Errorf("ParseConditionKind(%q) = %v, want %v", k.String(), got, k)
		}
	}

	if got, err := ParseConditionKind("STARTSWITH"); err != nil || got != CondStartsWith {
		t.Errorf("ParseConditionKind(STARTSWITH) = %v, %v; want startsWith, nil", got, err)
	}
	if _, err := ParseConditionKind("regex"); !errors.Is(err, types.ErrUnknownConditionKind) {
		t.Errorf("ParseConditionKind(regex) error = %v, want ErrUnknownConditionKind", err)
	}
}
