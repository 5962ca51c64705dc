// Package application provides test doubles for the command application
// interface.
package application

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"github.com/agentstation/refdata"
	appiface "github.com/agentstation/refdata/cmd/application"
	"github.com/agentstation/refdata/internal/config"
	"github.com/agentstation/refdata/pkg/logging"
)

var _ appiface.Application = (*Mock)(nil)

// Mock provides a mock implementation of Application for testing.
// Each method can be customized by setting the corresponding function field.
// If a function field is nil, the method returns a default/zero value.
//
//	mock := &application.Mock{
//	    HubFunc: func(context.Context) (*refdata.Hub, error) {
//	        return testHub, nil
//	    },
//	    OutputFormatFunc: func() string { return "json" },
//	}
//	cmd := list.NewCommand(mock)
type Mock struct {
	HubFunc          func(ctx context.Context) (*refdata.Hub, error)
	SettingsFunc     func() *config.Settings
	LoggerFunc       func() *zerolog.Logger
	OutputFormatFunc func() string
	VersionFunc      func() string
}

// Hub returns a hub using the mock function or nil.
func (m *Mock) Hub(ctx context.Context) (*refdata.Hub, error) {
	if m.HubFunc != nil {
		return m.HubFunc(ctx)
	}
	return nil, nil
}

// Settings returns settings using the mock function or the defaults.
func (m *Mock) Settings() *config.Settings {
	if m.SettingsFunc != nil {
		return m.SettingsFunc()
	}
	return config.Default()
}

// Logger returns a logger using the mock function or a no-op logger.
func (m *Mock) Logger() *zerolog.Logger {
	if m.LoggerFunc != nil {
		return m.LoggerFunc()
	}
	logger := zerolog.Nop()
	return &logger
}

// OutputFormat returns output format using the mock function or "table".
func (m *Mock) OutputFormat() string {
	if m.OutputFormatFunc != nil {
		return m.OutputFormatFunc()
	}
	return "table"
}

// Version returns version using the mock function or "dev".
func (m *Mock) Version() string {
	if m.VersionFunc != nil {
		return m.VersionFunc()
	}
	return "dev"
}

// Commit returns "unknown".
func (m *Mock) Commit() string { return "unknown" }

// Date returns "unknown".
func (m *Mock) Date() string { return "unknown" }

// BuiltBy returns "test".
func (m *Mock) BuiltBy() string { return "test" }

// NewHubMock returns a Mock backed by a seeded hub in a temporary database.
// The hub is closed when the test ends.
func NewHubMock(tb testing.TB, format string) (*Mock, *refdata.Hub) {
	tb.Helper()
	settings := config.Default()
	settings.DatabaseURL = "sqlite:///" + filepath.Join(tb.TempDir(), "hub.db")

	hub, err := refdata.Open(context.Background(), settings, refdata.WithLogger(logging.Discard()))
	if err != nil {
		tb.Fatalf("opening test hub: %v", err)
	}
	tb.Cleanup(func() { _ = hub.Close() })

	return &Mock{
		HubFunc:          func(context.Context) (*refdata.Hub, error) { return hub, nil },
		SettingsFunc:     func() *config.Settings { return settings },
		OutputFormatFunc: func() string { return format },
	}, hub
}
