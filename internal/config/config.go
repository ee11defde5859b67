// Package config defines the YAML configuration model for the ingestion
// service and loads it once at startup.
//
// One file carries everything the process needs: the watched directories, the
// schema file locations, and the database credentials. The original deployment
// read credentials from a separate config.yaml at every call site; here the
// loading is consolidated into a single pass and the decoded value is injected
// into the sink and the table-creation step.
//
// Example:
//
//	watch:
//	  input_dir: input_csv
//	  output_dir: output_parquet
//	  delimiter: ";"
//	schema:
//	  columns_file: schema.yaml
//	  sql_file: schema_sql.yaml
//	storage:
//	  kind: mysql
//	  table: student_data
//	  db:
//	    host: localhost
//	    port: 3306
//	    user: ingest
//	    password: secret
//	    database: events
//	log_file: conversion_log.txt
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Watch   Watch   `yaml:"watch"`
	Schema  Schema  `yaml:"schema"`
	Storage Storage `yaml:"storage"`

	// LogFile is the append-only conversion log destination. Empty means
	// log to stderr only.
	LogFile string `yaml:"log_file"`
}

// Watch configures the filesystem watch loop.
type Watch struct {
	// InputDir is watched for *.csv creations.
	InputDir string `yaml:"input_dir"`

	// OutputDir receives one Parquet artifact per processed file.
	OutputDir string `yaml:"output_dir"`

	// Delimiter is the CSV field delimiter; default ";".
	Delimiter string `yaml:"delimiter"`
}

// Comma returns the configured delimiter as a rune, or 0 when unset so the
// parser default applies.
func (w Watch) Comma() rune {
	if w.Delimiter == "" {
		return 0
	}
	return []rune(w.Delimiter)[0]
}

// Schema points at the two declarative schema files.
type Schema struct {
	// ColumnsFile declares the expected CSV column set for validation.
	ColumnsFile string `yaml:"columns_file"`

	// SQLFile declares the target table's column name/type pairs.
	SQLFile string `yaml:"sql_file"`
}

// Storage configures the relational sink.
type Storage struct {
	// Kind selects the sink backend; default "mysql".
	Kind string `yaml:"kind"`

	// Table is the fixed target table for row appends.
	Table string `yaml:"table"`

	DB DB `yaml:"db"`
}

// DB carries connection credentials. DSN, when set, overrides the individual
// fields.
type DB struct {
	DSN      string `yaml:"dsn"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

// Load reads and decodes the YAML configuration at path and applies defaults.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Watch.InputDir == "" {
		c.Watch.InputDir = "input_csv"
	}
	if c.Watch.OutputDir == "" {
		c.Watch.OutputDir = "output_parquet"
	}
	if c.Watch.Delimiter == "" {
		c.Watch.Delimiter = ";"
	}
	if c.Schema.ColumnsFile == "" {
		c.Schema.ColumnsFile = "schema.yaml"
	}
	if c.Schema.SQLFile == "" {
		c.Schema.SQLFile = "schema_sql.yaml"
	}
	if c.Storage.Kind == "" {
		c.Storage.Kind = "mysql"
	}
}
