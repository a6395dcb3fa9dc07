package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

type LogLevel string

const (
	LogLevelDebug    LogLevel = "debug"
	LogLevelInfo     LogLevel = "info"
	LogLevelWarn     LogLevel = "warn"
	LogLevelError    LogLevel = "error"
	LogLevelDisabled LogLevel = "disabled"
)

// LogMode selects a preset Config from the --log flag.
type LogMode string

const (
	LogModeDebug  LogMode = "debug"
	LogModePretty LogMode = "pretty"
	LogModeInfo   LogMode = "info"
	LogModeProd   LogMode = "prod"
	LogModeTest   LogMode = "test"
)

type Config struct {
	Level      LogLevel
	Pretty     bool
	TimeFormat string
	Output     io.Writer
}

var (
	log zerolog.Logger = zerolog.Nop()
	mu  sync.RWMutex
)

func Init(cfg Config) {
	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}

	timeFormat := cfg.TimeFormat
	if timeFormat == "" {
		timeFormat = "2006-01-02 15:04:05"
	}

	if cfg.Pretty {
		out = zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: timeFormat,
			FormatLevel: func(i interface{}) string {
				s, _ := i.(string)
				return colorizeLevel(s)
			},
			FormatMessage: func(i interface{}) string {
				s, _ := i.(string)
				return colorize(s, cyan)
			},
			FormatFieldName: func(i interface{}) string {
				return colorize(fmt.Sprint(i)+":", gray)
			},
			FormatFieldValue: func(i interface{}) string {
				switch v := i.(type) {
				case string:
					return colorize(v, blue)
				case json.Number:
					return colorize(v.String(), blue)
				default:
					return colorize(fmt.Sprint(v), blue)
				}
			},
		}
	}

	zerolog.TimeFieldFormat = time.RFC3339
	zerolog.SetGlobalLevel(parseLevel(cfg.Level))

	l := zerolog.New(out).With().Timestamp().Logger()

	mu.Lock()
	log = l
	mu.Unlock()
	zerolog.DefaultContextLogger = &l
}

// InitWithMode initializes the logger from one of the preset modes.
func InitWithMode(mode LogMode) {
	switch mode {
	case LogModeDebug:
		Init(Config{Level: LogLevelDebug, Pretty: true})
	case LogModeInfo:
		Init(Config{Level: LogLevelInfo, Pretty: true})
	case LogModeProd:
		Init(Config{Level: LogLevelInfo, Pretty: false})
	case LogModeTest:
		Init(Config{Level: LogLevelDisabled})
	default:
		Init(Config{Level: LogLevelDebug, Pretty: true})
	}
}

func parseLevel(level LogLevel) zerolog.Level {
	switch level {
	case LogLevelDebug:
		return zerolog.DebugLevel
	case LogLevelInfo:
		return zerolog.InfoLevel
	case LogLevelWarn:
		return zerolog.WarnLevel
	case LogLevelError:
		return zerolog.ErrorLevel
	case LogLevelDisabled:
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

// ANSI color codes
const (
	gray  = "\x1b[37m"
	blue  = "\x1b[34m"
	cyan  = "\x1b[36m"
	red   = "\x1b[31m"
	reset = "\x1b[0m"
)

func colorize(s, color string) string {
	return color + s + reset
}

func colorizeLevel(level string) string {
	switch level {
	case "debug":
		return colorize("DBG", gray)
	case "info":
		return colorize("INF", blue)
	case "warn":
		return colorize("WRN", cyan)
	case "error":
		return colorize("ERR", red)
	default:
		return colorize(level, blue)
	}
}

// Get returns the logger instance
func Get() zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return log
}

// WithComponent returns a logger tagged with the component name
func WithComponent(component string) zerolog.Logger {
	return Get().With().Str("component", component).Logger()
}
