package copy

import (
	"encoding/json"
	"reflect"
	"testing"
)

func ruleFromJSON(t *testing.T, raw string) map[string]interface{} {
	t.Helper()
	var rule map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &rule); err != nil {
		t.Fatalf("parsing rule: %v", err)
	}
	return rule
}

func TestSegmentReferences_Nested(t *testing.T) {
	rule := ruleFromJSON(t, `{
		"conditions": [
			{"type": "And", "conditions": [
				{"type": "Reference", "value": {"segmentId": "101"}},
				{"type": "Or", "conditions": [
					{"type": "Reference", "value": {"segmentId": "102"}}
				]}
			]},
			{"type": "Value", "attribute": "country"}
		]
	}`)

	got := segmentReferences(rule)
	want := []string{"101", "102"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("segmentReferences = %v, want %v", got, want)
	}
}

func TestSegmentReferences_LegacyShape(t *testing.T) {
	rule := ruleFromJSON(t, `{
		"conditions": [{"type": "Reference", "id": "77"}]
	}`)

	got := segmentReferences(rule)
	if !reflect.DeepEqual(got, []string{"77"}) {
		t.Errorf("segmentReferences = %v, want [77]", got)
	}
}

func TestSegmentReferences_NilRule(t *testing.T) {
	if refs := segmentReferences(nil); refs != nil {
		t.Errorf("segmentReferences(nil) = %v, want nil", refs)
	}
}

func TestSetReferenceTarget_RewritesBothShapes(t *testing.T) {
	rule := ruleFromJSON(t, `{
		"conditions": [
			{"type": "Reference", "value": {"segmentId": "101"}},
			{"type": "Reference", "id": "102"}
		]
	}`)

	forEachReference(rule, func(cond map[string]interface{}) {
		setReferenceTarget(cond, "900")
	})

	got := segmentReferences(rule)
	want := []string{"900", "900"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("after rewrite, segmentReferences = %v, want %v", got, want)
	}
}

func TestReferenceTarget_NumericID(t *testing.T) {
	// Wire ids sometimes arrive as JSON numbers.
	rule := ruleFromJSON(t, `{
		"conditions": [{"type": "Reference", "value": {"segmentId": 42}}]
	}`)

	got := segmentReferences(rule)
	if !reflect.DeepEqual(got, []string{"42"}) {
		t.Errorf("segmentReferences = %v, want [42]", got)
	}
}
