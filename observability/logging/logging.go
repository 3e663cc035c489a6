package logging

import (
	"io"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options tunes where and how logs are written.
type Options struct {
	Service string
	Env     string
	Level   slog.Level
	// File, when set, receives JSON logs rotated by size.
	File       string
	MaxSizeMB  int
	MaxBackups int
	// Output overrides stdout. Tests use it to capture lines.
	Output io.Writer
}

// Setup configures the standard library logger to emit structured JSON and returns
// the underlying slog.Logger for richer logging within the service. All log lines
// include the service name and environment when provided.
func Setup(service, env string) *slog.Logger {
	return SetupWithOptions(Options{Service: service, Env: env})
}

// SetupWithOptions is Setup with file rotation and level control. The "dev"
// environment logs colourised text to the console instead of JSON.
func SetupWithOptions(opts Options) *slog.Logger {
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}
	if path := strings.TrimSpace(opts.File); path != "" {
		rotator := &lumberjack.Logger{
			Filename:   path,
			MaxSize:    orDefault(opts.MaxSizeMB, 100),
			MaxBackups: orDefault(opts.MaxBackups, 5),
			Compress:   true,
		}
		out = io.MultiWriter(out, rotator)
	}

	env := strings.TrimSpace(opts.Env)
	var handler slog.Handler
	if strings.EqualFold(env, "dev") && opts.File == "" {
		handler = tint.NewHandler(out, &tint.Options{Level: opts.Level, TimeFormat: time.Kitchen})
	} else {
		handler = slog.NewJSONHandler(out, &slog.HandlerOptions{
			Level:       opts.Level,
			ReplaceAttr: renameAttr,
		})
	}

	attrs := []slog.Attr{
		slog.String("service", strings.TrimSpace(opts.Service)),
	}
	if env != "" {
		attrs = append(attrs, slog.String("env", env))
	}

	withArgs := make([]any, 0, len(attrs))
	for _, attr := range attrs {
		withArgs = append(withArgs, attr)
	}

	base := slog.New(handler).With(withArgs...)
	slog.SetDefault(base)

	// Bridge the standard library logger so existing packages continue to work.
	stdBridge := slog.NewLogLogger(handler.WithAttrs(attrs), slog.LevelInfo)
	stdBridge.SetFlags(0)
	log.SetOutput(stdBridge.Writer())
	log.SetFlags(0)
	log.SetPrefix("")

	return base
}

// ParseLevel maps debug/info/warn/error to a slog level, defaulting to info.
func ParseLevel(raw string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(raw))); err != nil {
		return slog.LevelInfo
	}
	return level
}

func renameAttr(_ []string, attr slog.Attr) slog.Attr {
	switch attr.Key {
	case slog.TimeKey:
		return slog.Attr{Key: "timestamp", Value: attr.Value}
	case slog.LevelKey:
		return slog.String("severity", strings.ToUpper(attr.Value.String()))
	case slog.MessageKey:
		return slog.Attr{Key: "message", Value: attr.Value}
	}
	return attr
}

func orDefault(v, fallback int) int {
	if v <= 0 {
		return fallback
	}
	return v
}
