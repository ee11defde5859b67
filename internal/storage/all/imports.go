// Package all wires all built-in storage backends into the storage factory.
//
// This package exists purely for side effects: importing it (even as a blank
// import) runs the init functions of each concrete backend, which register
// their factories with the storage package. After importing it the following
// sink kinds are available:
//
//   - "mysql"    (default; the original deployment target)
//   - "postgres"
//   - "sqlite"
package all

import (
	_ "github.com/theamythsingh/justplay-events-serverlesss-pipeline-development/internal/storage/mysql"
	_ "github.com/theamythsingh/justplay-events-serverlesss-pipeline-development/internal/storage/postgres"
	_ "github.com/theamythsingh/justplay-events-serverlesss-pipeline-development/internal/storage/sqlite"
)
