package api

import (
	"fmt"
	"time"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/solatis/dialkeeper/internal/core/db"
	"github.com/solatis/dialkeeper/internal/types"
)

/*
 * Request and response payloads are google.protobuf.Struct values.
 *
 * Rewrite request:
 *   {"address": "00420...", "direction": "outgoing",
 *    "context": {"wifi_ssid": "Office", "default_country_code": "420",
 *                "recording_enabled": true, "network_type": "wifi"}}
 *
 * Absent optional fields take their zero value. A field present with the
 * wrong kind is rejected with INVALID_ARGUMENT rather than coerced.
 */

// stringField returns the string at key. Absent keys yield ok=false.
func stringField(s *structpb.Struct, key string) (value string, ok bool, err error) {
	v, present := s.GetFields()[key]
	if !present {
		return "", false, nil
	}
	sv, isString := v.GetKind().(*structpb.Value_StringValue)
	if !isString {
		return "", false, fmt.Errorf("%w: %s must be a string", errInvalidRequest, key)
	}
	return sv.StringValue, true, nil
}

func boolField(s *structpb.Struct, key string) (bool, error) {
	v, present := s.GetFields()[key]
	if !present {
		return false, nil
	}
	bv, isBool := v.GetKind().(*structpb.Value_BoolValue)
	if !isBool {
		return false, fmt.Errorf("%w: %s must be a bool", errInvalidRequest, key)
	}
	return bv.BoolValue, nil
}

// requireString returns the string at key, failing when it is absent.
func requireString(s *structpb.Struct, key string) (string, error) {
	v, ok, err := stringField(s, key)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("%w: %s is required", errInvalidRequest, key)
	}
	return v, nil
}

// directionFrom reads the direction field; absent means outgoing.
func directionFrom(s *structpb.Struct) (types.Direction, error) {
	name, _, err := stringField(s, "direction")
	if err != nil {
		return types.DirectionOutgoing, err
	}
	return types.ParseDirection(name)
}

// contextFrom reads the optional context object into a types.Context.
func contextFrom(s *structpb.Struct) (types.Context, error) {
	var ctx types.Context

	v, present := s.GetFields()["context"]
	if !present {
		return ctx, nil
	}
	obj := v.GetStructValue()
	if obj == nil {
		return ctx, fmt.Errorf("%w: context must be an object", errInvalidRequest)
	}

	var err error
	if ctx.WifiSSID, _, err = stringField(obj, "wifi_ssid"); err != nil {
		return ctx, err
	}
	if ctx.DefaultCountryCode, _, err = stringField(obj, "default_country_code"); err != nil {
		return ctx, err
	}
	if ctx.RecordingEnabled, err = boolField(obj, "recording_enabled"); err != nil {
		return ctx, err
	}

	network, ok, err := stringField(obj, "network_type")
	if err != nil {
		return ctx, err
	}
	if ok {
		nt, known := types.ParseNetworkType(network)
		if !known {
			return ctx, fmt.Errorf("%w: unknown network_type %q", errInvalidRequest, network)
		}
		ctx.NetworkType = nt
	}
	return ctx, nil
}

// resultToMap projects a rewrite result onto Struct-compatible values.
func resultToMap(r types.Result) map[string]any {
	headers := make([]any, 0, len(r.Headers))
	for _, h := range r.Headers {
		headers = append(headers, map[string]any{"name": h.Name, "value": h.Value})
	}

	matched := make([]any, 0, len(r.MatchedRules))
	for _, i := range r.MatchedRules {
		matched = append(matched, i)
	}

	m := map[string]any{
		"number":               r.Number,
		"force_dial_out":       r.ForceDialOut,
		"show_dial_out_alert":  r.ShowDialOutAlert,
		"record_call":          r.RecordCall,
		"should_auto_record":   r.ShouldAutoRecord,
		"dial_action":          string(r.DialAction),
		"headers":              headers,
		"location_policy":      r.LocationPolicy,
		"alert":                r.Alert,
		"default_country_code": r.DefaultCountryCode,
		"matched_rules":        matched,
	}
	m["incoming_call_action"] = map[string]any{
		"disposition": r.IncomingCallAction.Disposition.String(),
		"param":       r.IncomingCallAction.Param,
	}
	if r.Extras != nil {
		m["extras"] = nodeToValue(r.Extras)
	}
	return m
}

// nodeToValue converts a tree to nested objects. Leaves become strings.
// Extras are built by merging, so sibling names are unique.
func nodeToValue(n *types.Node) any {
	if n.IsLeaf() {
		return n.Value
	}
	obj := make(map[string]any, len(n.Children))
	for _, c := range n.Children {
		obj[c.Name] = nodeToValue(c)
	}
	return obj
}

// ruleSetToMap describes a stored revision. The document is included only
// when withDocument is set.
func ruleSetToMap(rs db.RuleSet, etag string, withDocument bool) map[string]any {
	m := map[string]any{
		"revision_id": string(rs.RevisionID),
		"direction":   rs.Direction.String(),
		"rule_count":  rs.RuleCount,
		"created_at":  rs.CreatedAt.UTC().Format(time.RFC3339Nano),
		"etag":        etag,
	}
	if withDocument {
		m["document"] = rs.Document
	}
	return m
}
