// Package sources connects to operational source databases to test
// connectivity and introspect their tables and fields.
package sources

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/agentstation/refdata/internal/storage"
	"github.com/agentstation/refdata/pkg/errors"
)

// Settings are the credentials used to reach a source database.
type Settings struct {
	Name     string
	DBType   string
	Host     string
	Port     int
	Database string
	Username string
	Password *string
	Options  *string
}

// FromConnection returns the settings stored on a connection.
func FromConnection(conn storage.SourceConnection) Settings {
	return Settings{
		Name:     conn.Name,
		DBType:   conn.DBType,
		Host:     conn.Host,
		Port:     conn.Port,
		Database: conn.Database,
		Username: conn.Username,
		Password: conn.Password,
		Options:  conn.Options,
	}
}

// Overrides replace stored settings for a single test. Nil fields are
// ignored, as are empty passwords and options.
type Overrides struct {
	DBType   *string `json:"db_type"`
	Host     *string `json:"host"`
	Port     *int    `json:"port"`
	Database *string `json:"database"`
	Username *string `json:"username"`
	Password *string `json:"password"`
	Options  *string `json:"options"`
}

// Merge applies overrides to s.
func (s Settings) Merge(o Overrides) Settings {
	if o.DBType != nil {
		s.DBType = *o.DBType
	}
	if o.Host != nil {
		s.Host = *o.Host
	}
	if o.Port != nil {
		s.Port = *o.Port
	}
	if o.Database != nil {
		s.Database = *o.Database
	}
	if o.Username != nil {
		s.Username = *o.Username
	}
	if o.Password != nil && *o.Password != "" {
		s.Password = o.Password
	}
	if o.Options != nil && *o.Options != "" {
		s.Options = o.Options
	}
	return s
}

func (s Settings) label() string {
	if s.Name != "" {
		return s.Name
	}
	return s.Database
}

// Options is the decoded form of a connection's options JSON.
type Options struct {
	Query       map[string]string
	ConnectArgs map[string]string
	Schema      string
}

// ParseOptions decodes a connection options document. Unknown keys are
// treated as query parameters.
func ParseOptions(raw *string) (Options, error) {
	opts := Options{Query: map[string]string{}, ConnectArgs: map[string]string{}}
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return opts, nil
	}

	var decoded any
	if err := json.Unmarshal([]byte(*raw), &decoded); err != nil {
		return opts, optionsError("Options must be valid JSON", err)
	}
	parsed, ok := decoded.(map[string]any)
	if !ok {
		return opts, optionsError("Options must decode to a JSON object", nil)
	}

	if value, ok := parsed["schema"]; ok {
		delete(parsed, "schema")
		if value != nil {
			schema, ok := value.(string)
			if !ok {
				return opts, optionsError("schema option must be a string", nil)
			}
			opts.Schema = schema
		}
	}

	if value, ok := parsed["query"]; ok {
		delete(parsed, "query")
		query, ok := value.(map[string]any)
		if !ok {
			return opts, optionsError("query option must be a JSON object", nil)
		}
		mergeValues(opts.Query, query)
	}

	if value, ok := parsed["connect_args"]; ok {
		delete(parsed, "connect_args")
		args, ok := value.(map[string]any)
		if !ok {
			return opts, optionsError("connect_args option must be a JSON object", nil)
		}
		mergeValues(opts.ConnectArgs, args)
	}

	mergeValues(opts.Query, parsed)
	return opts, nil
}

func mergeValues(dst map[string]string, src map[string]any) {
	for key, value := range src {
		if s, ok := queryValue(value); ok {
			dst[key] = s
		}
	}
}

func queryValue(value any) (string, bool) {
	switch v := value.(type) {
	case nil:
		return "", false
	case bool:
		return strconv.FormatBool(v), true
	case string:
		return v, true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return "", false
		}
		return string(encoded), true
	}
}

func optionsError(message string, err error) error {
	return errors.NewConnectionError("", message, err)
}
