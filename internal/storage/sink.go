// Package storage defines the storage-agnostic sink contract and the backend
// factory. Concrete backends (mysql, postgres, sqlite) live in subpackages and
// register themselves with the factory at init time; importing
// internal/storage/all enables every built-in backend.
package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/theamythsingh/justplay-events-serverlesss-pipeline-development/internal/dataset"
	"github.com/theamythsingh/justplay-events-serverlesss-pipeline-development/internal/schema"
)

// ErrNoCredentials is returned by Open when the configuration carries neither
// a DSN nor the credential fields a backend needs to build one.
var ErrNoCredentials = errors.New("storage: no credentials available")

// Sink is a relational destination for processed rows. Implementations must
// be safe for concurrent use; connection lifetime is owned by the sink.
type Sink interface {
	// EnsureTable checks table existence via a catalog query and creates the
	// table from the ordered (name, type) pairs when absent. Repeated calls
	// for an existing table are no-ops logged at info level. Type descriptors
	// are passed to the database verbatim; malformed ones surface as database
	// errors.
	EnsureTable(ctx context.Context, table string, cols []schema.Column) error

	// AppendRows inserts every row of ds into table as new rows. It never
	// truncates or upserts, does not retry, and does not roll back work that
	// already happened before a failure.
	AppendRows(ctx context.Context, table string, ds *dataset.Dataset) (int64, error)

	// Close releases the underlying connection pool.
	Close()
}

// Config carries sink connection settings. Either DSN or the individual
// credential fields must be set; backends decide which they accept.
type Config struct {
	// Kind selects the backend ("mysql", "postgres", "sqlite").
	Kind string

	// DSN is a backend-native connection string. When set it takes precedence
	// over the individual fields below.
	DSN string

	Host     string
	Port     int
	User     string
	Password string
	Database string
}

// Factory constructs a Sink for one backend kind.
type Factory func(ctx context.Context, cfg Config) (Sink, error)

var (
	mu        sync.RWMutex
	factories = map[string]Factory{}
)

// Register registers (or replaces) the factory for a backend kind. It is
// called from backend packages' init functions.
func Register(kind string, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	factories[kind] = f
}

// Open constructs a Sink for cfg.Kind. Unknown kinds return an error listing
// the registered backends.
func Open(ctx context.Context, cfg Config) (Sink, error) {
	mu.RLock()
	f, ok := factories[cfg.Kind]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("storage: unsupported kind %q (registered: %v)", cfg.Kind, ListKinds())
	}
	return f(ctx, cfg)
}

// ListKinds returns the registered backend kinds in sorted order.
func ListKinds() []string {
	mu.RLock()
	defer mu.RUnlock()
	kinds := make([]string, 0, len(factories))
	for k := range factories {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}
