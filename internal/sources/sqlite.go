package sources

import (
	"context"
	"database/sql"
	"net/url"
	"strings"

	msqlite "modernc.org/sqlite"

	"github.com/agentstation/refdata/pkg/errors"
)

const sqliteMainSchema = "main"

type sqliteDialect struct{}

func (sqliteDialect) name() string { return "sqlite" }

// BuildSQLiteDSN turns the database setting into a modernc DSN. Both plain
// paths and sqlite:/// URLs are accepted.
func BuildSQLiteDSN(s Settings, opts Options) (string, error) {
	database := strings.TrimSpace(s.Database)
	if database == "" {
		return "", errors.NewConnectionError("sqlite", "Database path is required for sqlite connections", nil)
	}

	var query string
	if strings.HasPrefix(database, "sqlite:") {
		rest := strings.TrimPrefix(database, "sqlite:")
		rest = strings.TrimPrefix(rest, "//")
		database, query, _ = strings.Cut(rest, "?")
		database = strings.TrimPrefix(database, "/")
		if database == "" {
			database = ":memory:"
		}
	}

	params, err := url.ParseQuery(query)
	if err != nil {
		return "", errors.NewConnectionError("sqlite", err.Error(), err)
	}
	for k, v := range opts.Query {
		params.Set(k, v)
	}
	for k, v := range opts.ConnectArgs {
		params.Set(k, v)
	}
	if len(params) == 0 {
		return database, nil
	}
	if !strings.HasPrefix(database, "file:") {
		database = "file:" + database
	}
	return database + "?" + params.Encode(), nil
}

func (sqliteDialect) open(s Settings, opts Options) (*sql.DB, error) {
	dsn, err := BuildSQLiteDSN(s, opts)
	if err != nil {
		return nil, err
	}
	return sql.Open("sqlite", dsn)
}

func (sqliteDialect) listTables(ctx context.Context, db *sql.DB, schema string) ([]Table, error) {
	if schema == "" {
		schema = sqliteMainSchema
	}
	rows, err := db.QueryContext(ctx,
		`SELECT name, type FROM `+quoteIdent(schema)+`.sqlite_master WHERE type IN ('table', 'view')`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var tables []Table
	for rows.Next() {
		var name, kind string
		if err := rows.Scan(&name, &kind); err != nil {
			return nil, err
		}
		tables = append(tables, Table{Name: name, Schema: ptr(schema), Type: kind})
	}
	return tables, rows.Err()
}

func (sqliteDialect) listFields(ctx context.Context, db *sql.DB, table, schema string) ([]Field, error) {
	if schema == "" {
		schema = sqliteMainSchema
	}
	rows, err := db.QueryContext(ctx,
		`SELECT name, type, "notnull", dflt_value FROM pragma_table_info(?, ?)`, table, schema)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var fields []Field
	for rows.Next() {
		var (
			name, dataType string
			notNull        int
			def            sql.NullString
		)
		if err := rows.Scan(&name, &dataType, &notNull, &def); err != nil {
			return nil, err
		}
		field := Field{Name: name, Nullable: ptr(notNull == 0)}
		if dataType != "" {
			field.DataType = ptr(strings.ToUpper(dataType))
		}
		if def.Valid {
			field.Default = ptr(def.String)
		}
		fields = append(fields, field)
	}
	return fields, rows.Err()
}

// describeError strips the driver's result-code decoration.
func (sqliteDialect) describeError(err error) string {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		msg := sqliteErr.Error()
		if i := strings.Index(msg, ": "); i >= 0 && strings.HasPrefix(msg, "SQL logic error") {
			return msg[i+2:]
		}
		return msg
	}
	return err.Error()
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
