package config

import (
	"os"
	"path/filepath"
	"testing"
)

func load(t *testing.T, body string) *Config {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	c, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return c
}

func TestLoadDefaults(t *testing.T) {
	c := load(t, "storage:\n  table: student_data\n")
	if c.Watch.InputDir != "input_csv" || c.Watch.OutputDir != "output_parquet" {
		t.Fatalf("watch defaults: %+v", c.Watch)
	}
	if c.Watch.Delimiter != ";" || c.Watch.Comma() != ';' {
		t.Fatalf("delimiter default: %q", c.Watch.Delimiter)
	}
	if c.Storage.Kind != "mysql" {
		t.Fatalf("storage kind default: %q", c.Storage.Kind)
	}
	if c.Schema.ColumnsFile != "schema.yaml" || c.Schema.SQLFile != "schema_sql.yaml" {
		t.Fatalf("schema defaults: %+v", c.Schema)
	}
}

func TestLoadFull(t *testing.T) {
	c := load(t, `
watch:
  input_dir: /in
  output_dir: /out
  delimiter: ","
storage:
  kind: sqlite
  table: events
  db:
    database: events.db
log_file: conv.log
`)
	if c.Watch.Comma() != ',' {
		t.Fatalf("comma = %q", c.Watch.Comma())
	}
	if c.Storage.Kind != "sqlite" || c.Storage.DB.Database != "events.db" {
		t.Fatalf("storage: %+v", c.Storage)
	}
	if c.LogFile != "conv.log" {
		t.Fatalf("log file: %q", c.LogFile)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid mysql", func(c *Config) {
			c.Storage.DB = DB{Host: "h", User: "u", Database: "d"}
		}, false},
		{"valid dsn only", func(c *Config) {
			c.Storage.DB = DB{DSN: "u:p@tcp(h:3306)/d"}
		}, false},
		{"missing credentials", func(c *Config) {}, true},
		{"missing table", func(c *Config) {
			c.Storage.Table = ""
			c.Storage.DB = DB{DSN: "x"}
		}, true},
		{"empty input dir", func(c *Config) {
			c.Watch.InputDir = ""
			c.Storage.DB = DB{DSN: "x"}
		}, true},
		{"unknown kind is warning only", func(c *Config) {
			c.Storage.Kind = "oracle"
		}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := load(t, "storage:\n  table: student_data\n")
			tc.mutate(c)
			issues := Validate(c)
			if got := HasErrors(issues); got != tc.wantErr {
				t.Fatalf("HasErrors = %v, want %v (issues: %v)", got, tc.wantErr, issues)
			}
		})
	}
}
