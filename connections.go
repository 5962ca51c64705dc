package refdata

import (
	"context"
	"strings"

	"github.com/agentstation/refdata/internal/sources"
	"github.com/agentstation/refdata/internal/storage"
	"github.com/agentstation/refdata/pkg/errors"
	"github.com/agentstation/refdata/pkg/logging"
)

// DefaultPort is the connection port used when none is given.
const DefaultPort = 5432

// ConnectionCreate is the payload for creating or testing a connection.
type ConnectionCreate struct {
	Name     string  `json:"name"`
	DBType   string  `json:"db_type"`
	Host     string  `json:"host"`
	Port     *int    `json:"port"`
	Database string  `json:"database"`
	Username string  `json:"username"`
	Password *string `json:"password"`
	Options  *string `json:"options"`
}

func (in ConnectionCreate) settings() sources.Settings {
	port := DefaultPort
	if in.Port != nil {
		port = *in.Port
	}
	return sources.Settings{
		Name:     strings.TrimSpace(in.Name),
		DBType:   strings.TrimSpace(in.DBType),
		Host:     strings.TrimSpace(in.Host),
		Port:     port,
		Database: strings.TrimSpace(in.Database),
		Username: strings.TrimSpace(in.Username),
		Password: in.Password,
		Options:  in.Options,
	}
}

// ConnectionUpdate is a partial update. Nil fields are left unchanged.
type ConnectionUpdate struct {
	Name     *string `json:"name"`
	DBType   *string `json:"db_type"`
	Host     *string `json:"host"`
	Port     *int    `json:"port"`
	Database *string `json:"database"`
	Username *string `json:"username"`
	Password *string `json:"password"`
	Options  *string `json:"options"`
}

func validPort(port int) error {
	if port < 1 || port > 65535 {
		return errors.NewValidationError("port", port, "Port must be between 1 and 65535.")
	}
	return nil
}

func validPassword(password *string) error {
	if password != nil && *password == "" {
		return errors.NewValidationError("password", "", "Password must not be empty.")
	}
	return nil
}

// ListConnections returns every connection ordered by name.
func (h *Hub) ListConnections(ctx context.Context) ([]storage.SourceConnection, error) {
	return h.store.ListConnections(ctx)
}

// GetConnection returns one connection by id.
func (h *Hub) GetConnection(ctx context.Context, id int64) (storage.SourceConnection, error) {
	return h.store.GetConnection(ctx, id)
}

// CreateConnection persists a new connection. Names are unique.
func (h *Hub) CreateConnection(ctx context.Context, in ConnectionCreate) (storage.SourceConnection, error) {
	s := in.settings()
	if s.Name == "" {
		return storage.SourceConnection{}, errors.NewValidationError("name", in.Name, "Connection name is required.")
	}
	if err := validPort(s.Port); err != nil {
		return storage.SourceConnection{}, err
	}
	if err := validPassword(in.Password); err != nil {
		return storage.SourceConnection{}, err
	}

	conn := storage.SourceConnection{
		Name:     s.Name,
		DBType:   s.DBType,
		Host:     s.Host,
		Port:     s.Port,
		Database: s.Database,
		Username: s.Username,
		Password: in.Password,
		Options:  trimmed(in.Options),
	}
	if err := h.store.CreateConnection(ctx, &conn); err != nil {
		return storage.SourceConnection{}, err
	}
	return conn, nil
}

// UpdateConnection applies a partial update to a connection.
func (h *Hub) UpdateConnection(ctx context.Context, id int64, in ConnectionUpdate) (storage.SourceConnection, error) {
	conn, err := h.store.GetConnection(ctx, id)
	if err != nil {
		return conn, err
	}
	if in.Port != nil {
		if err := validPort(*in.Port); err != nil {
			return conn, err
		}
		conn.Port = *in.Port
	}
	if err := validPassword(in.Password); err != nil {
		return conn, err
	}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return conn, errors.NewValidationError("name", *in.Name, "Connection name is required.")
		}
		conn.Name = name
	}
	setString(&conn.DBType, in.DBType)
	setString(&conn.Host, in.Host)
	setString(&conn.Database, in.Database)
	setString(&conn.Username, in.Username)
	if in.Password != nil {
		conn.Password = in.Password
	}
	if in.Options != nil {
		conn.Options = trimmed(in.Options)
	}

	if err := h.store.UpdateConnection(ctx, conn); err != nil {
		return conn, err
	}
	return h.store.GetConnection(ctx, id)
}

// DeleteConnection removes a connection with its mappings and samples.
func (h *Hub) DeleteConnection(ctx context.Context, id int64) error {
	return h.store.DeleteConnection(ctx, id)
}

// TestConnectionSettings checks connectivity with unsaved settings.
func (h *Hub) TestConnectionSettings(ctx context.Context, in ConnectionCreate) (sources.TestResult, error) {
	s := in.settings()
	if err := validPort(s.Port); err != nil {
		return sources.TestResult{}, err
	}
	return sources.Test(ctx, s)
}

// TestConnection checks connectivity of a stored connection. Overrides
// replace stored settings for this test only.
func (h *Hub) TestConnection(ctx context.Context, id int64, overrides *sources.Overrides) (sources.TestResult, error) {
	conn, err := h.store.GetConnection(ctx, id)
	if err != nil {
		return sources.TestResult{}, err
	}
	s := sources.FromConnection(conn)
	if overrides != nil {
		s = s.Merge(*overrides)
	}
	ctx = logging.WithConnection(logging.Attach(ctx, h.logger), id)
	result, err := sources.Test(ctx, s)
	if err != nil {
		logging.FromContext(ctx).Warn().Err(err).Str("db_type", s.DBType).Msg("connection test failed")
	}
	return result, err
}

// ListTables lists the tables and views of a stored connection.
func (h *Hub) ListTables(ctx context.Context, id int64) ([]sources.Table, error) {
	conn, err := h.store.GetConnection(ctx, id)
	if err != nil {
		return nil, err
	}
	return sources.ListTables(ctx, sources.FromConnection(conn))
}

// ListFields lists the columns of a table of a stored connection.
func (h *Hub) ListFields(ctx context.Context, id int64, table, schema string) ([]sources.Field, error) {
	conn, err := h.store.GetConnection(ctx, id)
	if err != nil {
		return nil, err
	}
	return sources.ListFields(ctx, sources.FromConnection(conn), table, schema)
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = strings.TrimSpace(*src)
	}
}
