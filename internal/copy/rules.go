package copy

import (
	"github.com/spf13/cast"
)

// forEachReference visits every Reference-type condition in a rule's
// condition tree. Conditions nest arbitrarily deep; references at any level
// are visited in document order.
func forEachReference(rule map[string]interface{}, fn func(cond map[string]interface{})) {
	if rule == nil {
		return
	}
	walkConditions(rule["conditions"], fn)
}

func walkConditions(node interface{}, fn func(cond map[string]interface{})) {
	conditions, ok := node.([]interface{})
	if !ok {
		return
	}
	for _, item := range conditions {
		cond, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		if cast.ToString(cond["type"]) == "Reference" {
			fn(cond)
		}
		walkConditions(cond["conditions"], fn)
	}
}

// referenceTarget returns the segment id a Reference condition points at.
// New rules carry it under value.segmentId; the older shape used a bare id.
func referenceTarget(cond map[string]interface{}) string {
	if value, ok := cond["value"].(map[string]interface{}); ok {
		if id := cast.ToString(value["segmentId"]); id != "" {
			return id
		}
	}
	return cast.ToString(cond["id"])
}

// setReferenceTarget rewrites the reference in whichever shape it uses.
func setReferenceTarget(cond map[string]interface{}, id string) {
	if value, ok := cond["value"].(map[string]interface{}); ok {
		if _, present := value["segmentId"]; present {
			value["segmentId"] = id
			return
		}
	}
	if _, present := cond["id"]; present {
		cond["id"] = id
	}
}

// segmentReferences returns every referenced segment id in a rule.
func segmentReferences(rule map[string]interface{}) []string {
	var refs []string
	forEachReference(rule, func(cond map[string]interface{}) {
		if id := referenceTarget(cond); id != "" {
			refs = append(refs, id)
		}
	})
	return refs
}
