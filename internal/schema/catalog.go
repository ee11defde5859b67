// Package schema loads the declarative schema files that drive validation and
// table creation.
//
// Two files are involved:
//
//   - The column schema (e.g. schema.yaml): a YAML mapping whose keys are the
//     expected CSV column names. Values are ignored; only the key set matters.
//     This drives strict column-set validation of incoming files.
//   - The SQL schema (e.g. schema_sql.yaml): a YAML mapping of one table name
//     to an ordered list of {name, type} pairs. This drives CREATE TABLE
//     statements in the storage backends.
//
// Both files are read once at startup. A Catalog is immutable after Load and
// safe for unsynchronized concurrent reads.
package schema

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrSchemaMissing is returned when a SQL schema file contains no usable
// table definition (missing file is a plain load error; this covers an empty
// or type-less document).
var ErrSchemaMissing = fmt.Errorf("schema: no column type information available")

// Column is one (name, SQL type) pair from the SQL schema file. Type is the
// raw type descriptor (e.g. "VARCHAR(255)", "INT"); it is passed to the
// database verbatim, so malformed descriptors surface as database errors.
type Column struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`
}

// Catalog holds the expected column set for validation.
type Catalog struct {
	cols map[string]struct{}
}

// Load reads a YAML column schema and returns the Catalog. Column names are
// lowercased so validation is case-insensitive against normalized datasets.
func Load(path string) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("schema: read %s: %w", path, err)
	}
	var doc map[string]any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("schema: parse %s: %w", path, err)
	}
	cols := make(map[string]struct{}, len(doc))
	for k := range doc {
		cols[strings.ToLower(strings.TrimSpace(k))] = struct{}{}
	}
	return &Catalog{cols: cols}, nil
}

// Columns returns a copy of the expected column set.
func (c *Catalog) Columns() map[string]struct{} {
	out := make(map[string]struct{}, len(c.cols))
	for k := range c.cols {
		out[k] = struct{}{}
	}
	return out
}

// Len returns the number of expected columns.
func (c *Catalog) Len() int { return len(c.cols) }

// Has reports whether name is an expected column. The lookup is performed on
// the lowercased name.
func (c *Catalog) Has(name string) bool {
	_, ok := c.cols[strings.ToLower(name)]
	return ok
}

// SQLSchema is the decoded SQL schema file: one target table and its ordered
// column definitions.
type SQLSchema struct {
	Table   string
	Columns []Column
}

// LoadSQL reads a YAML SQL schema of the form:
//
//	student_data:
//	  - name: name
//	    type: VARCHAR(255)
//	  - name: age
//	    type: INT
//
// The first table in the document is used. ErrSchemaMissing is returned when
// the document defines no table or no columns.
func LoadSQL(path string) (*SQLSchema, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("schema: read %s: %w", path, err)
	}
	var doc yaml.Node
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("schema: parse %s: %w", path, err)
	}
	// Walk the document node to preserve the table order YAML maps would lose.
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, ErrSchemaMissing
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode || len(root.Content) < 2 {
		return nil, ErrSchemaMissing
	}
	table := root.Content[0].Value
	var cols []Column
	if err := root.Content[1].Decode(&cols); err != nil {
		return nil, fmt.Errorf("schema: decode columns for table %q: %w", table, err)
	}
	if table == "" || len(cols) == 0 {
		return nil, ErrSchemaMissing
	}
	for i := range cols {
		cols[i].Name = strings.ToLower(strings.TrimSpace(cols[i].Name))
	}
	return &SQLSchema{Table: table, Columns: cols}, nil
}
