package copy

import (
	"encoding/json"
	"reflect"
	"testing"
)

func docFromJSON(t *testing.T, raw string) interface{} {
	t.Helper()
	var doc interface{}
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		t.Fatalf("parsing document: %v", err)
	}
	return doc
}

func TestExtractDataRefs_NestedPairs(t *testing.T) {
	doc := docFromJSON(t, `{
		"data": {
			"attributes": {
				"parentDatabaseName": "prod_db",
				"parentTableName": "customers",
				"attributes": [
					{"parentDatabaseName": "events_db", "parentTableName": "pageviews"},
					{"parentDatabaseName": "events_db", "parentTableName": "pageviews"}
				]
			}
		}
	}`)

	got := ExtractDataRefs(doc, nil)
	want := []DataRef{
		{Database: "events_db", Table: "pageviews"},
		{Database: "prod_db", Table: "customers"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ExtractDataRefs = %v, want %v", got, want)
	}
}

func TestExtractDataRefs_RuleSource(t *testing.T) {
	doc := docFromJSON(t, `{
		"behaviors": [
			{"rule": {"source": {"database": "raw_db", "table": "clicks"}}}
		]
	}`)

	got := ExtractDataRefs(doc, nil)
	want := []DataRef{{Database: "raw_db", Table: "clicks"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ExtractDataRefs = %v, want %v", got, want)
	}
}

func TestExtractDataRefs_MalformedNamesSkipped(t *testing.T) {
	doc := docFromJSON(t, `{
		"a": {"parentDatabaseName": 123, "parentTableName": "t"},
		"b": {"parentDatabaseName": "good_db", "parentTableName": "t1"}
	}`)

	got := ExtractDataRefs(doc, nil)
	want := []DataRef{{Database: "good_db", Table: "t1"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ExtractDataRefs = %v, want %v", got, want)
	}
}

func TestExtractDataRefs_Empty(t *testing.T) {
	if got := ExtractDataRefs(docFromJSON(t, `{"attributes": {"name": "x"}}`), nil); len(got) != 0 {
		t.Errorf("ExtractDataRefs = %v, want empty", got)
	}
}

func TestGroupByDatabase(t *testing.T) {
	refs := []DataRef{
		{Database: "db1", Table: "t1"},
		{Database: "db1", Table: "t2"},
		{Database: "db2"},
	}
	got := GroupByDatabase(refs)
	want := map[string][]string{
		"db1": {"t1", "t2"},
		"db2": {},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("GroupByDatabase = %v, want %v", got, want)
	}
}
