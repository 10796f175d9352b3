// Package logging builds the logrus logger used across the server.
//
// Output always goes to stderr: stdout belongs to the JSON-RPC stream when
// the server runs over stdio.
package logging

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
)

// ServiceName is printed in every text log line.
const ServiceName = "serpapi-travel"

const timestampFormat = "2006-01-02 15:04:05,000"

// Config stores logging configuration
type Config struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DefaultConfig returns the default logging configuration
func DefaultConfig() Config {
	return Config{Level: "info", Format: "text"}
}

// New sets up a logrus logger writing to stderr.
func New(cfg Config) *logrus.Logger {
	return NewWithOutput(cfg, os.Stderr)
}

// NewWithOutput is New with an explicit destination.
func NewWithOutput(cfg Config, out io.Writer) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(out)

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if cfg.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{TimestampFormat: timestampFormat})
	} else {
		logger.SetFormatter(&TextFormatter{Service: ServiceName})
	}

	return logger
}

// TextFormatter renders "<time> - <service> - <LEVEL> - <message>" followed
// by sorted key=value fields.
type TextFormatter struct {
	Service string
}

// Format implements logrus.Formatter
func (f *TextFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	b := entry.Buffer
	if b == nil {
		b = &bytes.Buffer{}
	}

	fmt.Fprintf(b, "%s - %s - %s - %s",
		entry.Time.Format(timestampFormat),
		f.Service,
		levelName(entry.Level),
		entry.Message,
	)

	if len(entry.Data) > 0 {
		keys := make([]string, 0, len(entry.Data))
		for k := range entry.Data {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			v := entry.Data[k]
			if err, ok := v.(error); ok {
				v = err.Error()
			}
			fmt.Fprintf(b, " %s=%v", k, v)
		}
	}

	b.WriteByte('\n')
	return b.Bytes(), nil
}

func levelName(level logrus.Level) string {
	switch level {
	case logrus.WarnLevel:
		return "WARNING"
	case logrus.PanicLevel, logrus.FatalLevel:
		return "CRITICAL"
	default:
		return strings.ToUpper(level.String())
	}
}
