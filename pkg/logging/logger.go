// Package logging configures zerolog for the hub and carries request-scoped
// loggers through context.Context.
//
//	logger := logging.New(logging.Config{Level: "debug", Format: "console"})
//	ctx := logging.WithLogger(context.Background(), &logger)
//	ctx = logging.WithDimension(ctx, "marital_status")
//	logging.FromContext(ctx).Debug().Msg("ranking candidates")
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Config selects level, encoding and destination of a logger. The env tags
// are read by ConfigFromEnv.
type Config struct {
	// Level is a zerolog level name. "warning", "off" and "none" are accepted too.
	Level string `env:"LOG_LEVEL" envDefault:"info"`

	// Format is json, console or auto. Auto picks console on a terminal.
	Format string `env:"LOG_FORMAT" envDefault:"auto"`

	// Output is stderr, stdout, discard or a file path opened for append.
	Output string `env:"LOG_OUTPUT" envDefault:"stderr"`

	NoColor   bool
	AddCaller bool `env:"LOG_CALLER"`

	// Fields are attached to every event, e.g. LOG_FIELDS=service:refdata,env:dev.
	Fields map[string]string `env:"LOG_FIELDS"`
}

// ConfigFromEnv reads Config from LOG_* variables. NO_COLOR disables color
// whatever its value.
func ConfigFromEnv() (Config, error) {
	cfg, err := env.ParseAs[Config]()
	cfg.NoColor = os.Getenv("NO_COLOR") != ""
	return cfg, err
}

var defaultLogger = fromEnv()

func fromEnv() zerolog.Logger {
	cfg, err := ConfigFromEnv()
	if err != nil {
		cfg = Config{Level: "info", Format: "auto", Output: "stderr"}
	}
	if cfg.Level == "info" && os.Getenv("DEBUG") != "" {
		cfg.Level = "debug"
	}
	return New(cfg)
}

// New builds a logger from cfg and makes its level the zerolog global level.
func New(cfg Config) zerolog.Logger {
	level := ParseLevel(cfg.Level)
	zerolog.SetGlobalLevel(level)

	zctx := zerolog.New(writer(cfg)).Level(level).With().Timestamp()
	if cfg.AddCaller || level <= zerolog.DebugLevel {
		zctx = zctx.Caller()
	}
	for k, v := range cfg.Fields {
		zctx = zctx.Str(k, v)
	}
	return zctx.Logger()
}

// Default returns the process-wide logger configured from the environment.
func Default() *zerolog.Logger {
	return &defaultLogger
}

// SetDefault replaces the process-wide logger, including zerolog/log.Logger.
func SetDefault(logger zerolog.Logger) {
	defaultLogger = logger
	log.Logger = logger
}

// Discard returns a logger that drops every event.
func Discard() *zerolog.Logger {
	nop := zerolog.Nop()
	return &nop
}

// ParseLevel maps a level name to a zerolog level, defaulting to info.
func ParseLevel(name string) zerolog.Level {
	switch name = strings.ToLower(strings.TrimSpace(name)); name {
	case "warning":
		return zerolog.WarnLevel
	case "off", "none":
		return zerolog.Disabled
	case "":
		return zerolog.InfoLevel
	}
	level, err := zerolog.ParseLevel(name)
	if err != nil || level == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return level
}

func writer(cfg Config) io.Writer {
	out := destination(cfg.Output)

	console := false
	switch strings.ToLower(cfg.Format) {
	case "console", "pretty":
		console = true
	case "json":
	default:
		if f, ok := out.(*os.File); ok {
			console = isatty.IsTerminal(f.Fd())
		}
	}
	if !console {
		return out
	}
	return zerolog.ConsoleWriter{Out: out, TimeFormat: time.TimeOnly, NoColor: cfg.NoColor}
}

func destination(output string) io.Writer {
	switch strings.ToLower(output) {
	case "", "stderr":
		return os.Stderr
	case "stdout":
		return os.Stdout
	case "discard", "none":
		return io.Discard
	}
	f, err := os.OpenFile(output, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return os.Stderr
	}
	return f
}
