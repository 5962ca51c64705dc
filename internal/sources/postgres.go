package sources

import (
	"context"
	"database/sql"
	"net"
	"net/url"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/agentstation/refdata/pkg/errors"
)

type postgresDialect struct{}

func (postgresDialect) name() string { return "postgres" }

// BuildPostgresURL assembles a connection URL from settings. Query
// parameters and connect args both become URL parameters.
func BuildPostgresURL(s Settings, opts Options) string {
	u := url.URL{Scheme: "postgres"}
	if s.Username != "" {
		if s.Password != nil && *s.Password != "" {
			u.User = url.UserPassword(s.Username, *s.Password)
		} else {
			u.User = url.User(s.Username)
		}
	}
	host := s.Host
	if host != "" && s.Port > 0 {
		host = net.JoinHostPort(host, strconv.Itoa(s.Port))
	}
	u.Host = host
	if s.Database != "" {
		u.Path = "/" + s.Database
	}

	params := url.Values{}
	for k, v := range opts.Query {
		params.Set(k, v)
	}
	for k, v := range opts.ConnectArgs {
		params.Set(k, v)
	}
	if params.Get("connect_timeout") == "" {
		params.Set("connect_timeout", strconv.Itoa(int(DefaultTimeout.Seconds())))
	}
	u.RawQuery = params.Encode()
	return u.String()
}

func (d postgresDialect) open(s Settings, opts Options) (*sql.DB, error) {
	cfg, err := pgx.ParseConfig(BuildPostgresURL(s, opts))
	if err != nil {
		return nil, errors.NewConnectionError(d.name(), err.Error(), err)
	}
	return stdlib.OpenDB(*cfg), nil
}

const postgresTablesQuery = `
SELECT table_schema, table_name, table_type
FROM information_schema.tables
WHERE table_schema NOT IN ('pg_catalog', 'information_schema')
  AND ($1 = '' OR table_schema = $1)`

func (postgresDialect) listTables(ctx context.Context, db *sql.DB, schema string) ([]Table, error) {
	rows, err := db.QueryContext(ctx, postgresTablesQuery, schema)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var tables []Table
	for rows.Next() {
		var tableSchema, name, tableType string
		if err := rows.Scan(&tableSchema, &name, &tableType); err != nil {
			return nil, err
		}
		kind := TypeTable
		if tableType == "VIEW" {
			kind = TypeView
		}
		tables = append(tables, Table{Name: name, Schema: ptr(tableSchema), Type: kind})
	}
	return tables, rows.Err()
}

const postgresFieldsQuery = `
SELECT column_name, data_type, is_nullable, column_default
FROM information_schema.columns
WHERE table_name = $1
  AND table_schema = COALESCE(NULLIF($2, ''), current_schema())`

func (postgresDialect) listFields(ctx context.Context, db *sql.DB, table, schema string) ([]Field, error) {
	rows, err := db.QueryContext(ctx, postgresFieldsQuery, table, schema)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var fields []Field
	for rows.Next() {
		var (
			name, dataType, nullable string
			def                      sql.NullString
		)
		if err := rows.Scan(&name, &dataType, &nullable, &def); err != nil {
			return nil, err
		}
		field := Field{Name: name, DataType: ptr(dataType), Nullable: ptr(nullable == "YES")}
		if def.Valid {
			field.Default = ptr(def.String)
		}
		fields = append(fields, field)
	}
	return fields, rows.Err()
}

// describeError prefers the server message of a Postgres error.
func (postgresDialect) describeError(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Severity + ": " + pgErr.Message
	}
	return err.Error()
}
