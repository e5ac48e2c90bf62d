// Package logging configures the global zerolog logger.
package logging

import (
	"io"
	"os"
	"runtime"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var logLevelMatches = map[string]zerolog.Level{
	"NONE":  zerolog.NoLevel,
	"TRACE": zerolog.TraceLevel,
	"DEBUG": zerolog.DebugLevel,
	"INFO":  zerolog.InfoLevel,
	"WARN":  zerolog.WarnLevel,
	"ERROR": zerolog.ErrorLevel,
	"FATAL": zerolog.FatalLevel,
}

// ParseLevel maps a level name to a zerolog level, falling back to info.
func ParseLevel(level string) zerolog.Level {
	if l, ok := logLevelMatches[strings.ToUpper(strings.TrimSpace(level))]; ok {
		return l
	}
	return zerolog.InfoLevel
}

// Setup points the global logger at stderr. format is "console", "json" or
// "auto"; auto picks the console writer when stderr is a terminal.
func Setup(level, format string) {
	zerolog.SetGlobalLevel(ParseLevel(level))
	log.Logger = zerolog.New(writer(format, os.Stderr, isTerminalAttached())).With().Timestamp().Logger()
}

func writer(format string, out io.Writer, tty bool) io.Writer {
	switch strings.ToLower(format) {
	case "json":
		return out
	case "console":
	default:
		if !tty {
			return out
		}
	}
	return zerolog.ConsoleWriter{Out: out, TimeFormat: "2006-01-02 15:04:05.000"}
}

func isTerminalAttached() bool {
	return isatty.IsTerminal(os.Stderr.Fd()) && runtime.GOOS != "windows"
}
