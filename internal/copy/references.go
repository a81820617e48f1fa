package copy

import (
	"sort"

	"go.uber.org/zap"
)

// DataRef is a (database, table) pair a segment rule reads from. An empty
// Table means the whole database.
type DataRef struct {
	Database string
	Table    string
}

// ExtractDataRefs walks an arbitrary segment document and collects every
// data reference it mentions: parentDatabaseName/parentTableName pairs at
// any nesting level, plus rule.source.database. The walk is iterative with
// an explicit stack so adversarially deep documents cannot blow the call
// stack. Malformed (non-string) names are logged and skipped; an empty
// result is valid.
func ExtractDataRefs(doc interface{}, logger *zap.Logger) []DataRef {
	if logger == nil {
		logger = zap.NewNop()
	}
	seen := make(map[DataRef]bool)

	stack := []interface{}{doc}
	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		switch v := node.(type) {
		case map[string]interface{}:
			if db, present := v["parentDatabaseName"]; present && db != nil {
				dbName, ok := db.(string)
				if !ok {
					logger.Warn("invalid database name in segment document", zap.Any("value", db))
					continue
				}
				ref := DataRef{Database: dbName}
				if table, present := v["parentTableName"]; present && table != nil {
					tableName, ok := table.(string)
					if !ok {
						logger.Warn("invalid table name in segment document", zap.Any("value", table))
						continue
					}
					ref.Table = tableName
				}
				seen[ref] = true
			}

			if rule, ok := v["rule"].(map[string]interface{}); ok {
				if source, ok := rule["source"].(map[string]interface{}); ok {
					if db, ok := source["database"].(string); ok && db != "" {
						ref := DataRef{Database: db}
						if table, ok := source["table"].(string); ok {
							ref.Table = table
						}
						seen[ref] = true
					}
				}
			}

			for _, value := range v {
				stack = append(stack, value)
			}
		case []interface{}:
			for _, item := range v {
				stack = append(stack, item)
			}
		}
	}

	refs := make([]DataRef, 0, len(seen))
	for ref := range seen {
		refs = append(refs, ref)
	}
	sort.Slice(refs, func(i, j int) bool {
		if refs[i].Database != refs[j].Database {
			return refs[i].Database < refs[j].Database
		}
		return refs[i].Table < refs[j].Table
	})
	return refs
}

// GroupByDatabase buckets refs into database → table names, dropping the
// whole-database markers into an empty table list.
func GroupByDatabase(refs []DataRef) map[string][]string {
	grouped := make(map[string][]string)
	for _, ref := range refs {
		if _, ok := grouped[ref.Database]; !ok {
			grouped[ref.Database] = []string{}
		}
		if ref.Table != "" {
			grouped[ref.Database] = append(grouped[ref.Database], ref.Table)
		}
	}
	return grouped
}
