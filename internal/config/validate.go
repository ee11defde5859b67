// This file adds a lightweight linter/validator for Config values. It performs
// static checks over a decoded Config and returns a list of issues (errors and
// warnings) that callers can surface in a CLI or tests.
package config

import (
	"fmt"
	"strings"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError indicates a configuration error that should block startup.
	SeverityError IssueSeverity = "error"
	// SeverityWarning indicates a finding that should be surfaced to users but
	// does not block startup.
	SeverityWarning IssueSeverity = "warning"
)

// Issue describes a single validation finding. Path is a dotted path into the
// config (e.g. "storage.db.host").
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

// Error implements the error interface so an Issue can be treated as a single
// error where needed.
func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// Validate performs static validation of a Config. It does not mutate the
// config; callers decide whether warnings are fatal.
func Validate(c *Config) []Issue {
	var issues []Issue

	if strings.TrimSpace(c.Watch.InputDir) == "" {
		issues = append(issues, Issue{SeverityError, "watch.input_dir", "input directory must not be empty"})
	}
	if strings.TrimSpace(c.Watch.OutputDir) == "" {
		issues = append(issues, Issue{SeverityError, "watch.output_dir", "output directory must not be empty"})
	}
	if len(c.Watch.Delimiter) > 1 {
		issues = append(issues, Issue{SeverityWarning, "watch.delimiter",
			fmt.Sprintf("delimiter %q is longer than one character; only the first is used", c.Watch.Delimiter)})
	}
	if strings.TrimSpace(c.Schema.ColumnsFile) == "" {
		issues = append(issues, Issue{SeverityError, "schema.columns_file", "columns schema file must not be empty"})
	}
	if strings.TrimSpace(c.Storage.Table) == "" {
		issues = append(issues, Issue{SeverityError, "storage.table", "target table must not be empty"})
	}

	switch c.Storage.Kind {
	case "mysql", "postgres":
		db := c.Storage.DB
		if db.DSN == "" && (db.Host == "" || db.User == "" || db.Database == "") {
			issues = append(issues, Issue{SeverityError, "storage.db",
				"no credentials available: set dsn or host/user/database"})
		}
	case "sqlite":
		if c.Storage.DB.DSN == "" && c.Storage.DB.Database == "" {
			issues = append(issues, Issue{SeverityError, "storage.db", "sqlite requires dsn or database path"})
		}
	default:
		issues = append(issues, Issue{SeverityWarning, "storage.kind",
			fmt.Sprintf("unknown storage kind %q; the factory will reject it unless a backend registered it", c.Storage.Kind)})
	}

	return issues
}

// HasErrors reports whether any issue has error severity.
func HasErrors(issues []Issue) bool {
	for _, i := range issues {
		if i.Severity == SeverityError {
			return true
		}
	}
	return false
}
