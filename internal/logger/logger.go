// Package logger monta o zerolog usado pelo binário.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// New cria um logger no formato pedido ("json" ou "console").
//
// O nível fica no zerolog global (SetLevel), não no logger: assim um reload
// de configuração consegue tanto reduzir quanto aumentar a verbosidade.
func New(level, format string, out io.Writer) (zerolog.Logger, error) {
	if out == nil {
		out = os.Stderr
	}
	if _, err := SetLevel(level); err != nil {
		return zerolog.Nop(), err
	}

	if strings.EqualFold(strings.TrimSpace(format), "console") {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	return zerolog.New(out).With().Timestamp().Str("service", "contact-gateway").Logger(), nil
}

func ParseLevel(level string) (zerolog.Level, error) {
	level = strings.ToLower(strings.TrimSpace(level))
	if level == "" {
		return zerolog.InfoLevel, nil
	}
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	return lvl, nil
}

// SetLevel troca o nível global de todos os loggers do processo.
func SetLevel(level string) (zerolog.Level, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return zerolog.NoLevel, err
	}
	zerolog.SetGlobalLevel(lvl)
	return lvl, nil
}
