package logger

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	FormatJSON    = "json"
	FormatConsole = "console"
)

type options struct {
	format string
}

type Option func(*options)

// WithFormat picks the encoder. Unknown values fall back to JSON.
func WithFormat(format string) Option {
	return func(o *options) {
		if strings.EqualFold(format, FormatConsole) {
			o.format = FormatConsole
		}
	}
}

// New returns a logger writing to stderr at the given level. Every entry
// carries the service name.
func New(level, service string, opts ...Option) (*zap.Logger, error) {
	o := options{format: FormatJSON}
	for _, opt := range opts {
		opt(&o)
	}

	lvl, err := zapcore.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		return nil, fmt.Errorf("log level %q: %w", level, err)
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var enc zapcore.Encoder
	if o.format == FormatConsole {
		encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		enc = zapcore.NewConsoleEncoder(encCfg)
	} else {
		enc = zapcore.NewJSONEncoder(encCfg)
	}

	core := zapcore.NewCore(enc, zapcore.Lock(os.Stderr), zap.NewAtomicLevelAt(lvl))
	log := zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
	if service != "" {
		log = log.With(zap.String("service", service))
	}
	return log, nil
}
