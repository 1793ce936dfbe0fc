// internal/rules/action.go
package rules

import (
	"fmt"
	"strings"

	"github.com/solatis/dialkeeper/internal/types"
)

/*
 * Action kinds, construction and application.
 *
 * ActionKind is a closed enum in canonical ordinal order. NewAction is the
 * sanitize step: it normalizes the parameter to the shape the kind expects
 * and rejects values that could not be applied meaningfully. Apply is then
 * total and never fails.
 *
 * Parameter shapes:
 *   - replace/prepend/append: literal text, verbatim (empty allowed)
 *   - continue/recordCall/rejectCall/answerImmediately: no parameter
 *   - callThrough/dialOut: "" or "silent" (suppresses the dial-out alert)
 *   - overrideDialAction/forwardCall/overrideLocationPolicy/showAlert: non-empty
 *   - setHeader: param is the header name, tree child "value" is the value
 *
 * Any action other than setHeader may carry a sub-tree; it is merged into
 * the pass's extras when the action applies. Sub-trees are stored under a
 * root named "tree" with element names and text that persist unchanged.
 */

// ActionKind selects the effect an Action applies.
type ActionKind int

const (
	ActReplace ActionKind = iota
	ActPrepend
	ActAppend
	ActContinue
	ActCallThrough
	ActDialOut
	ActRecordCall
	ActOverrideDialAction
	ActSetHeader
	ActRejectCall
	ActForwardCall
	ActAnswerImmediately
	ActOverrideLocationPolicy
	ActShowAlert
)

var actionKindNames = [...]string{
	ActReplace:                "replace",
	ActPrepend:                "prepend",
	ActAppend:                 "append",
	ActContinue:               "continue",
	ActCallThrough:            "callThrough",
	ActDialOut:                "dialOut",
	ActRecordCall:             "recordCall",
	ActOverrideDialAction:     "overrideDialAction",
	ActSetHeader:              "setHeader",
	ActRejectCall:             "rejectCall",
	ActForwardCall:            "forwardCall",
	ActAnswerImmediately:      "answerImmediately",
	ActOverrideLocationPolicy: "overrideLocationPolicy",
	ActShowAlert:              "showAlert",
}

// String returns the persisted name of the kind.
func (k ActionKind) String() string {
	if k < 0 || int(k) >= len(actionKindNames) {
		return fmt.Sprintf("ActionKind(%d)", int(k))
	}
	return actionKindNames[k]
}

// ParseActionKind converts a persisted name (case-insensitive) to its kind.
func ParseActionKind(s string) (ActionKind, error) {
	name := strings.TrimSpace(s)
	for k, n := range actionKindNames {
		if strings.EqualFold(n, name) {
			return ActionKind(k), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", types.ErrUnknownActionKind, s)
}

// DialOutSilent is the callThrough/dialOut parameter that suppresses the alert.
const DialOutSilent = "silent"

// headerValueNode names the sub-tree child carrying a setHeader value.
const headerValueNode = "value"

// Action is a single effect. Immutable after construction.
type Action struct {
	Kind  ActionKind
	Param string
	Tree  *types.Node
}

// NewAction validates and sanitizes an action. The tree is copied.
func NewAction(kind ActionKind, param string, tree *types.Node) (Action, error) {
	if kind < ActReplace || kind > ActShowAlert {
		return Action{}, fmt.Errorf("%w: %d", types.ErrUnknownActionKind, int(kind))
	}
	if len(param) > types.MaxParamLength {
		return Action{}, fmt.Errorf("%s: %w", kind, types.ErrParamTooLong)
	}
	if !isXMLText(param) {
		return Action{}, fmt.Errorf("%s: %w: %q", kind, types.ErrInvalidParameter, param)
	}
	if tree.Depth() > types.MaxTreeDepth {
		return Action{}, fmt.Errorf("%s: %w", kind, types.ErrTreeTooDeep)
	}

	switch kind {
	case ActReplace, ActPrepend, ActAppend:
		// literal text
	case ActContinue, ActRecordCall, ActRejectCall, ActAnswerImmediately:
		param = ""
	case ActCallThrough, ActDialOut:
		param = strings.ToLower(strings.TrimSpace(param))
		if param != "" && param != DialOutSilent {
			return Action{}, fmt.Errorf("%s: %w: %q", kind, types.ErrInvalidParameter, param)
		}
	case ActOverrideDialAction, ActForwardCall, ActOverrideLocationPolicy, ActShowAlert:
		param = strings.TrimSpace(param)
		if param == "" {
			return Action{}, fmt.Errorf("%s: %w", kind, types.ErrMissingParameter)
		}
	case ActSetHeader:
		param = strings.TrimSpace(param)
		if param == "" {
			return Action{}, fmt.Errorf("%s: %w: header name", kind, types.ErrMissingParameter)
		}
		if v := tree.Child(headerValueNode); v == nil || !v.IsLeaf() {
			return Action{}, fmt.Errorf("%s: %w: header value", kind, types.ErrMissingParameter)
		}
	}

	tree, err := sanitizeTree(tree)
	if err != nil {
		return Action{}, fmt.Errorf("%s: %w", kind, err)
	}
	return Action{Kind: kind, Param: param, Tree: tree}, nil
}

// sanitizeTree returns a copy of tree rooted at treeRootName, or nil when
// it has no children. Values on inner nodes are dropped.
func sanitizeTree(tree *types.Node) (*types.Node, error) {
	if tree == nil || len(tree.Children) == 0 {
		return nil, nil
	}
	out := tree.Clone()
	out.Name = treeRootName
	out.Value = ""
	if err := sanitizeNodes(out.Children); err != nil {
		return nil, err
	}
	return out, nil
}

func sanitizeNodes(nodes []*types.Node) error {
	for _, n := range nodes {
		if n == nil || !isXMLName(n.Name) {
			return fmt.Errorf("%w: tree element name", types.ErrInvalidParameter)
		}
		if n.IsLeaf() {
			if !isXMLText(n.Value) {
				return fmt.Errorf("%w: tree value of %s", types.ErrInvalidParameter, n.Name)
			}
			continue
		}
		n.Value = ""
		if err := sanitizeNodes(n.Children); err != nil {
			return err
		}
	}
	return nil
}

// MustAction is NewAction that panics on error. For tests and literals.
func MustAction(kind ActionKind, param string, tree *types.Node) Action {
	a, err := NewAction(kind, param, tree)
	if err != nil {
		panic(err)
	}
	return a
}

// HeaderValue returns the value a setHeader action assigns.
func (a Action) HeaderValue() string {
	if v := a.Tree.Child(headerValueNode); v != nil {
		return v.Value
	}
	return ""
}

// Equal reports structural equality.
func (a Action) Equal(other Action) bool {
	return a.Kind == other.Kind && a.Param == other.Param && a.Tree.Equal(other.Tree)
}

// String renders the action for logs and diagnostics.
func (a Action) String() string {
	if a.Param == "" {
		return a.Kind.String()
	}
	return fmt.Sprintf("%s(%q)", a.Kind, a.Param)
}

// Apply mutates s with the action's effect.
func (a Action) Apply(s *State) {
	switch a.Kind {
	case ActReplace:
		if s.HasSpan {
			s.Result = s.Result[:s.Match.Start] + a.Param + s.Result[s.Match.End:]
			s.Match = Span{Start: s.Match.Start, End: s.Match.Start + len(a.Param)}
		} else {
			s.Result = a.Param
		}
	case ActPrepend:
		s.Result = a.Param + s.Result
		if s.HasSpan {
			s.Match = Span{Start: s.Match.Start + len(a.Param), End: s.Match.End + len(a.Param)}
		}
	case ActAppend:
		s.Result += a.Param
	case ActContinue:
		s.ShouldEnd = false
	case ActCallThrough, ActDialOut:
		s.ForceDialOut = true
		if a.Param == DialOutSilent {
			s.ShowDialOutAlert = false
		}
	case ActRecordCall:
		s.RecordCall = true
	case ActOverrideDialAction:
		s.NewDialAction = types.DialActionID(a.Param)
	case ActSetHeader:
		s.Headers.Set(a.Param, a.HeaderValue())
		return
	case ActRejectCall:
		s.IncomingCallAction = types.IncomingCallAction{Disposition: types.IncomingReject}
	case ActForwardCall:
		s.IncomingCallAction = types.IncomingCallAction{Disposition: types.IncomingForward, Param: a.Param}
	case ActAnswerImmediately:
		s.IncomingCallAction = types.IncomingCallAction{Disposition: types.IncomingAnswerImmediately}
	case ActOverrideLocationPolicy:
		s.NewLocationPolicy = a.Param
	case ActShowAlert:
		s.Alert = a.Param
	}
	s.mergeExtras(a.Tree)
}
