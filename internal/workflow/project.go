package workflow

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// digTemplate is the workflow definition deployed with every copy project.
// It fans out one td> copy task per table in the source database, writing
// through the td2td connection into the destination database.
const digTemplate = `
_export:
  database: ${src_database}
  !include : 'config.yml'

+create:
  if>: ${copy_all_table}
  _do:
    +get_table_name:
      td_for_each>:
      query: "select table_name from information_schema.tables where table_schema = '${src_database}'"
      _parallel: true
      _do:
        +copy_data:
          td>:
          query: 'select * from "${src_database}"."${td.each.table_name}"'
          result_connection: ${connection_name}
          result_settings:
            user_database_name: "${dest_database}"
            user_table_name: "${td.each.table_name}"
            mode: ${mode}
  _else_do:
    +get_table_name:
      for_each>:
        table : ${tables_info}
      _parallel: true
      _do:
        +copy_data:
          td>:
          query: 'select * from "${src_database}"."${table.table_name}" where SUBSTRING(CAST(FROM_UNIXTIME(${table.date_column}) AS VARCHAR),1,10) between ${table.date_range}'
          result_connection: ${connection_name}
          result_settings:
            user_database_name: "${dest_database}"
            user_table_name: "${table.table_name}"
            mode: ${mode}
`

// projectConfig feeds the template through config.yml.
type projectConfig struct {
	ConnectionName string `yaml:"connection_name"`
	SrcDatabase    string `yaml:"src_database"`
	DestDatabase   string `yaml:"dest_database"`
	Mode           string `yaml:"mode"`
	CopyAllTable   bool   `yaml:"copy_all_table"`
}

// BuildProject assembles a Digdag project bundle for copying one database.
// The bundle is a gzipped tarball holding config.yml and the workflow
// definition, built entirely in memory.
func BuildProject(connectionName, srcDatabase, destDatabase string) ([]byte, error) {
	cfg := projectConfig{
		ConnectionName: connectionName,
		SrcDatabase:    srcDatabase,
		DestDatabase:   destDatabase,
		Mode:           "replace",
		CopyAllTable:   true,
	}
	cfgBytes, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("marshaling project config: %w", err)
	}

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)

	files := []struct {
		name string
		data []byte
	}{
		{"config.yml", cfgBytes},
		{"vs_copy_all.dig", []byte(digTemplate)},
	}
	now := time.Now()
	for _, f := range files {
		hdr := &tar.Header{
			Name:    f.name,
			Mode:    0o644,
			Size:    int64(len(f.data)),
			ModTime: now,
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return nil, fmt.Errorf("writing %s header: %w", f.name, err)
		}
		if _, err := tw.Write(f.data); err != nil {
			return nil, fmt.Errorf("writing %s: %w", f.name, err)
		}
	}
	if err := tw.Close(); err != nil {
		return nil, fmt.Errorf("closing archive: %w", err)
	}
	if err := gz.Close(); err != nil {
		return nil, fmt.Errorf("closing gzip stream: %w", err)
	}
	return buf.Bytes(), nil
}
