package sources

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/agentstation/refdata/pkg/errors"
	"github.com/agentstation/refdata/pkg/logging"
)

// DefaultTimeout bounds every connection attempt.
var DefaultTimeout = 15 * time.Second

// Table types.
const (
	TypeTable = "table"
	TypeView  = "view"
)

// Table is a table or view exposed by a source database.
type Table struct {
	Name   string  `json:"name"`
	Schema *string `json:"schema"`
	Type   string  `json:"type"`
}

// Field is a column of a source table.
type Field struct {
	Name     string  `json:"name"`
	DataType *string `json:"data_type"`
	Nullable *bool   `json:"nullable"`
	Default  *string `json:"default"`
}

// TestResult reports a successful connection test.
type TestResult struct {
	Success   bool    `json:"success"`
	Message   string  `json:"message"`
	LatencyMS float64 `json:"latency_ms"`
}

// dialect introspects one family of databases.
type dialect interface {
	name() string
	open(s Settings, opts Options) (*sql.DB, error)
	listTables(ctx context.Context, db *sql.DB, schema string) ([]Table, error)
	listFields(ctx context.Context, db *sql.DB, table, schema string) ([]Field, error)
	describeError(err error) string
}

func dialectFor(dbType string) (dialect, error) {
	switch strings.ToLower(strings.TrimSpace(dbType)) {
	case "postgres", "postgresql", "postgresql+psycopg":
		return postgresDialect{}, nil
	case "sqlite":
		return sqliteDialect{}, nil
	default:
		return nil, errors.NewConnectionError(dbType, fmt.Sprintf("Unsupported database type '%s'", dbType), nil)
	}
}

// connect resolves the dialect and opens a pool.
func connect(s Settings) (dialect, *sql.DB, Options, error) {
	opts, err := ParseOptions(s.Options)
	if err != nil {
		return nil, nil, opts, err
	}
	d, err := dialectFor(s.DBType)
	if err != nil {
		return nil, nil, opts, err
	}
	db, err := d.open(s, opts)
	if err != nil {
		var connErr *errors.ConnectionError
		if errors.As(err, &connErr) {
			return nil, nil, opts, err
		}
		return nil, nil, opts, errors.NewConnectionError(d.name(), d.describeError(err), err)
	}
	return d, db, opts, nil
}

// Test opens the database, pings it and runs SELECT 1.
func Test(ctx context.Context, s Settings) (TestResult, error) {
	logger := logging.FromContext(ctx)

	d, db, _, err := connect(s)
	if err != nil {
		return TestResult{}, err
	}
	defer func() { _ = db.Close() }()

	ctx, cancel := context.WithTimeout(ctx, DefaultTimeout)
	defer cancel()

	start := time.Now()
	if err := db.PingContext(ctx); err != nil {
		logger.Debug().Err(err).Str("connection", s.label()).Msg("Connection test failed")
		return TestResult{}, errors.NewConnectionError(d.name(), d.describeError(err), err)
	}
	var one int
	if err := db.QueryRowContext(ctx, "SELECT 1").Scan(&one); err != nil {
		logger.Debug().Err(err).Str("connection", s.label()).Msg("Connection test query failed")
		return TestResult{}, errors.NewConnectionError(d.name(), d.describeError(err), err)
	}
	return NewTestResult(float64(time.Since(start).Microseconds()) / 1000), nil
}

// NewTestResult builds the success message for a measured latency.
func NewTestResult(latencyMS float64) TestResult {
	rounded := math.Round(latencyMS*100) / 100
	message := "Connection succeeded."
	switch {
	case rounded >= 1:
		message = fmt.Sprintf("Connection succeeded (%.0f ms).", rounded)
	case rounded > 0:
		message = fmt.Sprintf("Connection succeeded (%.2f ms).", rounded)
	}
	return TestResult{Success: true, Message: message, LatencyMS: rounded}
}

// ListTables returns the tables and views of the source, deduplicated and
// sorted by schema, name and type. The schema option narrows the listing.
func ListTables(ctx context.Context, s Settings) ([]Table, error) {
	d, db, opts, err := connect(s)
	if err != nil {
		return nil, err
	}
	defer func() { _ = db.Close() }()

	ctx, cancel := context.WithTimeout(ctx, DefaultTimeout)
	defer cancel()

	tables, err := d.listTables(ctx, db, opts.Schema)
	if err != nil {
		logging.FromContext(ctx).Debug().Err(err).Str("schema", opts.Schema).Msg("Failed to inspect tables")
		return nil, errors.NewConnectionError(d.name(), d.describeError(err), err)
	}

	type key struct{ schema, name, kind string }
	unique := make(map[key]Table, len(tables))
	for _, t := range tables {
		if skipTable(d.name(), t) {
			continue
		}
		unique[key{deref(t.Schema), t.Name, t.Type}] = t
	}

	result := make([]Table, 0, len(unique))
	for _, t := range unique {
		result = append(result, t)
	}
	sort.Slice(result, func(i, j int) bool {
		a, b := result[i], result[j]
		if deref(a.Schema) != deref(b.Schema) {
			return deref(a.Schema) < deref(b.Schema)
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.Type < b.Type
	})
	return result, nil
}

func skipTable(dialectName string, t Table) bool {
	if dialectName == "sqlite" && strings.HasPrefix(t.Name, "sqlite_") {
		return true
	}
	switch deref(t.Schema) {
	case "pg_catalog", "information_schema":
		return true
	}
	return false
}

// ListFields returns the columns of a table sorted by name. An empty schema
// falls back to the schema option.
func ListFields(ctx context.Context, s Settings, table, schema string) ([]Field, error) {
	d, db, opts, err := connect(s)
	if err != nil {
		return nil, err
	}
	defer func() { _ = db.Close() }()

	if schema == "" {
		schema = opts.Schema
	}

	ctx, cancel := context.WithTimeout(ctx, DefaultTimeout)
	defer cancel()

	fields, err := d.listFields(ctx, db, table, schema)
	if err != nil {
		logging.FromContext(ctx).Debug().Err(err).Str("table", table).Str("schema", schema).Msg("Failed to inspect columns")
		return nil, errors.NewConnectionError(d.name(), d.describeError(err), err)
	}
	if len(fields) == 0 {
		return nil, errors.NewConnectionError(d.name(), fmt.Sprintf("Table '%s' not found", table), nil)
	}
	sort.Slice(fields, func(i, j int) bool { return fields[i].Name < fields[j].Name })
	return fields, nil
}

// SplitTableName resolves the table and schema of a fields request. Without
// an explicit schema a "schema.table" name is split; quotes are stripped.
func SplitTableName(table, schema string) (string, string) {
	if schema == "" {
		if before, after, ok := strings.Cut(table, "."); ok && after != "" {
			schema, table = before, after
		}
	}
	return strings.Trim(table, `"`), strings.Trim(schema, `"`)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func ptr[T any](v T) *T {
	return &v
}
