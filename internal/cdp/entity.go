package cdp

import (
	"encoding/json"
	"strings"

	"github.com/spf13/cast"
)

// Entity is one node of the source hierarchy as the entity API returns it:
// an untyped JSON:API-style document with id, type, attributes and
// relationships. Kept as a map so unknown attributes survive the round trip
// to the destination unchanged.
type Entity map[string]interface{}

// Document wraps a single entity in the {"data": ...} envelope.
type Document struct {
	Data Entity `json:"data"`
}

// EntityList wraps a collection response.
type EntityList struct {
	Data []Entity `json:"data"`
}

// ParseDocument decodes a single-entity envelope from a raw response body.
func ParseDocument(body []byte) (Document, error) {
	var doc Document
	err := json.Unmarshal(body, &doc)
	return doc, err
}

// ID returns the entity id as a string, whatever the wire type was.
func (e Entity) ID() string {
	return cast.ToString(e["id"])
}

// Type returns the entity type tag.
func (e Entity) Type() string {
	return cast.ToString(e["type"])
}

// IsFolder reports whether the entity is a segment folder.
func (e Entity) IsFolder() bool {
	return e.Type() == "folder-segment"
}

// IsSegment reports whether the entity is any segment variant.
func (e Entity) IsSegment() bool {
	return strings.HasPrefix(e.Type(), "segment")
}

// IsPredictiveSegment reports whether the segment is model-computed and
// therefore not a supported copy target.
func (e Entity) IsPredictiveSegment() bool {
	return e.Type() == "segment-predictive"
}

// IsJourney reports whether the entity is a journey.
func (e Entity) IsJourney() bool {
	return strings.HasPrefix(e.Type(), "journey")
}

// Attributes returns the attributes map, or nil if absent/malformed.
func (e Entity) Attributes() map[string]interface{} {
	attrs, _ := e["attributes"].(map[string]interface{})
	return attrs
}

// Name returns attributes.name.
func (e Entity) Name() string {
	return cast.ToString(e.Attributes()["name"])
}

// SetName overwrites attributes.name.
func (e Entity) SetName(name string) {
	if attrs := e.Attributes(); attrs != nil {
		attrs["name"] = name
	}
}

// Rule returns the segment's matching rule, or nil for folders and
// rule-less segments.
func (e Entity) Rule() map[string]interface{} {
	rule, _ := e.Attributes()["rule"].(map[string]interface{})
	return rule
}

// SetAudienceID points the segment at its owning destination parent segment.
func (e Entity) SetAudienceID(id string) {
	if attrs := e.Attributes(); attrs != nil {
		attrs["audienceId"] = id
	}
}

// parentFolderData walks relationships.parentFolder.data.
func (e Entity) parentFolderData() map[string]interface{} {
	rels, _ := e["relationships"].(map[string]interface{})
	pf, _ := rels["parentFolder"].(map[string]interface{})
	data, _ := pf["data"].(map[string]interface{})
	return data
}

// ParentFolderID returns the parent folder reference, or "" for the root
// folder (whose parent is null) and for entities without the relationship.
func (e Entity) ParentFolderID() string {
	return cast.ToString(e.parentFolderData()["id"])
}

// SetParentFolderID rewrites the parent folder reference in place.
// Returns false when the entity has no parent relationship to rewrite.
func (e Entity) SetParentFolderID(id string) bool {
	data := e.parentFolderData()
	if data == nil {
		return false
	}
	data["id"] = id
	return true
}
