// internal/rules/xml.go
package rules

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/solatis/dialkeeper/internal/types"
)

/*
 * XML persistence of rule sets.
 *
 * Document layout:
 *
 *   <rewriting>
 *     <rule id="..." incoming="false" accountSpecific="false">
 *       <conditions><condition type="startsWith" param="00"/></conditions>
 *       <actions>
 *         <action type="replace" param="+"/>
 *         <action type="setHeader" param="X-Tag"><value>vip</value></action>
 *       </actions>
 *     </rule>
 *   </rewriting>
 *
 * Action sub-trees are arbitrary nested elements: an element with child
 * elements becomes an inner types.Node, an element with only text becomes a
 * leaf. Leaf text is kept exactly as written. Attributes inside sub-trees
 * are ignored.
 *
 * Element names are limited to ASCII names without a colon, and text to the
 * XML character range, so that every rule NewAction accepts is written in a
 * form DecodeDocument reads back unchanged.
 *
 * DecodeDocument checks only well-formedness and the root element. Kind
 * names and parameters are validated when the document is compiled by
 * Rewriter.Load, so a Document can hold rules this build does not know.
 */

// DocumentRootName is the root element of a rule document.
const DocumentRootName = "rewriting"

// treeRootName names the root of an action sub-tree.
const treeRootName = "tree"

// Document is a parsed rule document.
type Document struct {
	XMLName xml.Name  `xml:"rewriting"`
	Rules   []xmlRule `xml:"rule"`
}

type xmlRule struct {
	ID              string         `xml:"id,attr,omitempty"`
	Incoming        bool           `xml:"incoming,attr"`
	AccountSpecific bool           `xml:"accountSpecific,attr"`
	Conditions      []xmlCondition `xml:"conditions>condition"`
	Actions         []xmlAction    `xml:"actions>action"`
}

type xmlCondition struct {
	Type  string `xml:"type,attr"`
	Param string `xml:"param,attr,omitempty"`
}

type xmlAction struct {
	Type  string    `xml:"type,attr"`
	Param string    `xml:"param,attr,omitempty"`
	Tree  []xmlNode `xml:",any"`
}

// xmlNode is one element of an action sub-tree.
type xmlNode struct {
	XMLName  xml.Name
	Text     string    `xml:",chardata"`
	Children []xmlNode `xml:",any"`
}

// DecodeDocument reads and parses a rule document.
func DecodeDocument(r io.Reader) (*Document, error) {
	data, err := io.ReadAll(io.LimitReader(r, types.MaxDocumentSize+1))
	if err != nil {
		return nil, fmt.Errorf("read rule document: %w", err)
	}
	if len(data) > types.MaxDocumentSize {
		return nil, types.ErrDocumentTooLarge
	}

	var doc Document
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrInvalidDocument, err)
	}
	return &doc, nil
}

// ParseDocument parses a rule document held in a string.
func ParseDocument(s string) (*Document, error) {
	return DecodeDocument(strings.NewReader(s))
}

// Encode writes the document as indented XML with a header.
// Content that would not decode back unchanged is rejected with
// types.ErrInvalidDocument before anything is written.
func (d *Document) Encode(w io.Writer) error {
	if err := d.check(); err != nil {
		return err
	}
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(d); err != nil {
		return fmt.Errorf("encode rule document: %w", err)
	}
	if err := enc.Flush(); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}

// EncodeToString returns the encoded document.
func (d *Document) EncodeToString() (string, error) {
	var buf bytes.Buffer
	if err := d.Encode(&buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (d *Document) check() error {
	for i, xr := range d.Rules {
		if !isXMLText(xr.ID) {
			return fmt.Errorf("%w: rule %d: id", types.ErrInvalidDocument, i)
		}
		for _, xc := range xr.Conditions {
			if !isXMLText(xc.Param) {
				return fmt.Errorf("%w: rule %d: %s parameter", types.ErrInvalidDocument, i, xc.Type)
			}
		}
		for _, xa := range xr.Actions {
			if !isXMLText(xa.Param) {
				return fmt.Errorf("%w: rule %d: %s parameter", types.ErrInvalidDocument, i, xa.Type)
			}
			if err := checkXMLNodes(xa.Tree); err != nil {
				return fmt.Errorf("%w: rule %d: %s: %v", types.ErrInvalidDocument, i, xa.Type, err)
			}
		}
	}
	return nil
}

func checkXMLNodes(nodes []xmlNode) error {
	for _, n := range nodes {
		if n.XMLName.Space != "" || !isXMLName(n.XMLName.Local) {
			return fmt.Errorf("element name %q", n.XMLName.Local)
		}
		if len(n.Children) == 0 {
			if !isXMLText(n.Text) {
				return fmt.Errorf("text of %q", n.XMLName.Local)
			}
			continue
		}
		if err := checkXMLNodes(n.Children); err != nil {
			return err
		}
	}
	return nil
}

// isXMLName reports whether s is usable as a sub-tree element name:
// an ASCII letter or underscore followed by letters, digits, '_', '-' or
// '.'. Names starting with "xml" in any case are reserved.
func isXMLName(s string) bool {
	if s == "" || len(s) >= 3 && strings.EqualFold(s[:3], "xml") {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c == '_':
		case i > 0 && (c >= '0' && c <= '9' || c == '-' || c == '.'):
		default:
			return false
		}
	}
	return true
}

// isXMLText reports whether s is valid UTF-8 made only of characters XML
// can carry. The encoder would replace anything else with U+FFFD.
func isXMLText(s string) bool {
	if !utf8.ValidString(s) {
		return false
	}
	for _, r := range s {
		switch {
		case r == '\t', r == '\n', r == '\r':
		case r >= 0x20 && r <= 0xD7FF:
		case r >= 0xE000 && r <= 0xFFFD:
		case r >= 0x10000 && r <= utf8.MaxRune:
		default:
			return false
		}
	}
	return true
}

// Defs converts the document into unvalidated rule definitions.
func (d *Document) Defs() []types.RuleDef {
	defs := make([]types.RuleDef, 0, len(d.Rules))
	for _, xr := range d.Rules {
		def := types.RuleDef{
			ID:              types.RuleID(xr.ID),
			ForIncomingCall: xr.Incoming,
			AccountSpecific: xr.AccountSpecific,
		}
		for _, xc := range xr.Conditions {
			def.Conditions = append(def.Conditions, types.ConditionDef{Type: xc.Type, Param: xc.Param})
		}
		for _, xa := range xr.Actions {
			def.Actions = append(def.Actions, types.ActionDef{
				Type:  xa.Type,
				Param: xa.Param,
				Tree:  treeFromXML(xa.Tree),
			})
		}
		defs = append(defs, def)
	}
	return defs
}

// NewDocument builds a document from rules in the given order.
func NewDocument(rules []*Rule) *Document {
	doc := &Document{Rules: make([]xmlRule, 0, len(rules))}
	for _, r := range rules {
		xr := xmlRule{
			ID:              string(r.ID),
			Incoming:        r.ForIncomingCall,
			AccountSpecific: r.AccountSpecific,
		}
		for _, c := range r.Conditions {
			xr.Conditions = append(xr.Conditions, xmlCondition{Type: c.Kind.String(), Param: c.Param})
		}
		for _, a := range r.Actions {
			xr.Actions = append(xr.Actions, xmlAction{
				Type:  a.Kind.String(),
				Param: a.Param,
				Tree:  treeToXML(a.Tree),
			})
		}
		doc.Rules = append(doc.Rules, xr)
	}
	return doc
}

// treeFromXML converts action sub-elements into a tree rooted at "tree".
// Returns nil when there are no sub-elements.
func treeFromXML(nodes []xmlNode) *types.Node {
	if len(nodes) == 0 {
		return nil
	}
	root := types.NewNode(treeRootName)
	for _, n := range nodes {
		root.Children = append(root.Children, nodeFromXML(n))
	}
	return root
}

func nodeFromXML(n xmlNode) *types.Node {
	if len(n.Children) == 0 {
		return types.NewLeaf(n.XMLName.Local, n.Text)
	}
	out := types.NewNode(n.XMLName.Local)
	for _, c := range n.Children {
		out.Children = append(out.Children, nodeFromXML(c))
	}
	return out
}

// treeToXML converts the children of a tree root into sub-elements.
func treeToXML(tree *types.Node) []xmlNode {
	if tree == nil || len(tree.Children) == 0 {
		return nil
	}
	out := make([]xmlNode, 0, len(tree.Children))
	for _, c := range tree.Children {
		out = append(out, nodeToXML(c))
	}
	return out
}

func nodeToXML(n *types.Node) xmlNode {
	x := xmlNode{XMLName: xml.Name{Local: n.Name}}
	if n.IsLeaf() {
		x.Text = n.Value
		return x
	}
	for _, c := range n.Children {
		x.Children = append(x.Children, nodeToXML(c))
	}
	return x
}
