package lib

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	LogDirectory = "logs"
	LogFileName  = "log"
)

// severity thresholds, a logger prints every message at or above its configured level
const (
	DebugLevel int32 = -4
	InfoLevel  int32 = 0
	WarnLevel  int32 = 4
	ErrorLevel int32 = 8
)

func init() {
	// node output is usually piped to files, keep the escape codes anyway
	color.NoColor = false
}

// LoggerI is the leveled logger every module writes through
type LoggerI interface {
	Debug(msg string)
	Info(msg string)
	Warn(msg string)
	Error(msg string)
	Fatal(msg string)
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

var _ LoggerI = &Logger{}

// LoggerConfig is the minimum level and the destination of a Logger
type LoggerConfig struct {
	Level int32 `json:"level"`
	Out   io.Writer
}

// Logger writes timestamped, colored lines to the configured writer
type Logger struct {
	config LoggerConfig
}

// severity is a log level with its label and paint
type severity struct {
	level int32
	label string
	paint func(format string, a ...interface{}) string
}

var (
	debugSeverity = severity{DebugLevel, "DEBUG", color.BlueString}
	infoSeverity  = severity{InfoLevel, "INFO", color.GreenString}
	warnSeverity  = severity{WarnLevel, "WARN", color.YellowString}
	errorSeverity = severity{ErrorLevel, "ERROR", color.RedString}
)

func (l *Logger) Debug(msg string) { l.log(debugSeverity, msg) }
func (l *Logger) Info(msg string)  { l.log(infoSeverity, msg) }
func (l *Logger) Warn(msg string)  { l.log(warnSeverity, msg) }
func (l *Logger) Error(msg string) { l.log(errorSeverity, msg) }

// Fatal() logs at the error level and exits the process
func (l *Logger) Fatal(msg string) {
	l.log(errorSeverity, msg)
	os.Exit(1)
}

func (l *Logger) Debugf(format string, args ...interface{}) { l.logf(debugSeverity, format, args...) }
func (l *Logger) Infof(format string, args ...interface{})  { l.logf(infoSeverity, format, args...) }
func (l *Logger) Warnf(format string, args ...interface{})  { l.logf(warnSeverity, format, args...) }
func (l *Logger) Errorf(format string, args ...interface{}) { l.logf(errorSeverity, format, args...) }

func (l *Logger) logf(s severity, format string, args ...interface{}) {
	// skip formatting for filtered levels
	if s.level < l.config.Level {
		return
	}
	l.log(s, fmt.Sprintf(format, args...))
}

// log() paints every line of the message separately so multi line output stays colored in pagers
func (l *Logger) log(s severity, msg string) {
	if s.level < l.config.Level {
		return
	}
	lines := strings.Split(s.label+": "+msg, "\n")
	for i := range lines {
		lines[i] = s.paint("%s", lines[i])
	}
	stamp := color.HiBlackString(time.Now().Format(time.StampMilli))
	if _, err := fmt.Fprintf(l.config.Out, "%s %s\n", stamp, strings.Join(lines, "\n")); err != nil {
		fmt.Println(newLogError(err))
	}
}

// NewLogger() creates a Logger; without a writer it logs to stdout and a rotating file under the data directory
func NewLogger(config LoggerConfig, dataDirPath ...string) LoggerI {
	if config.Out == nil {
		dir := DefaultDataDirPath()
		if len(dataDirPath) != 0 && dataDirPath[0] != "" {
			dir = dataDirPath[0]
		}
		if err := os.MkdirAll(filepath.Join(dir, LogDirectory), os.ModePerm); err != nil {
			panic(err)
		}
		config.Out = io.MultiWriter(os.Stdout, &lumberjack.Logger{
			Filename:   filepath.Join(dir, LogDirectory, LogFileName),
			MaxSize:    1, // megabyte
			MaxBackups: 1500,
			MaxAge:     14, // days
			Compress:   true,
		})
	}
	return &Logger{config: config}
}

// NewDefaultLogger() logs everything to stdout
func NewDefaultLogger() LoggerI {
	return NewLogger(LoggerConfig{Level: DebugLevel, Out: os.Stdout})
}

// NewNullLogger() discards everything, mostly for tests
func NewNullLogger() LoggerI {
	return NewLogger(LoggerConfig{Level: DebugLevel, Out: io.Discard})
}
