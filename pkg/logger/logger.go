// Package logger provides the process-wide structured logger.
// It wraps uber-go/zap and supports a key=value console format, JSON output
// and rotating log files.
package logger

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/buffer"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	globalLogger *zap.Logger
	once         sync.Once
	pool         = buffer.NewPool()
)

// Config holds the logger configuration
type Config struct {
	// Level is the minimum log level (debug, info, warn, error)
	Level string `yaml:"level"`
	// Format is the output format (json, text)
	Format string `yaml:"format"`
	// File is an optional log file; logs go to stdout and the file when set
	File       string `yaml:"file"`
	MaxSize    int    `yaml:"max_size"`
	MaxAge     int    `yaml:"max_age"`
	MaxBackups int    `yaml:"max_backups"`
	Compress   bool   `yaml:"compress"`
	// AccessLog enables info-level logging of successful HTTP requests
	AccessLog bool `yaml:"access_log"`
}

// Init initializes the global logger. Only the first call takes effect.
func Init(cfg Config) error {
	var err error
	once.Do(func() {
		globalLogger, err = build(cfg)
	})
	return err
}

func build(cfg Config) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = 100
	}
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = 7
	}
	if cfg.MaxBackups <= 0 {
		cfg.MaxBackups = 5
	}

	var consoleEnc, fileEnc zapcore.Encoder
	if cfg.Format == "text" {
		consoleEnc = newKVEncoder(textEncoderConfig(colorLevel))
		fileEnc = newKVEncoder(textEncoderConfig(plainLevel))
	} else {
		consoleEnc = zapcore.NewJSONEncoder(jsonEncoderConfig())
		fileEnc = consoleEnc.Clone()
	}

	core := zapcore.NewCore(consoleEnc, zapcore.AddSync(os.Stdout), level)
	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0755); err != nil {
			fmt.Fprintf(os.Stderr, "cannot create log directory, logging to console only: %v\n", err)
		} else {
			rotator := &lumberjack.Logger{
				Filename:   cfg.File,
				MaxSize:    cfg.MaxSize,
				MaxAge:     cfg.MaxAge,
				MaxBackups: cfg.MaxBackups,
				Compress:   cfg.Compress,
			}
			core = zapcore.NewTee(core, zapcore.NewCore(fileEnc, zapcore.AddSync(rotator), level))
		}
	}

	return zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel)), nil
}

func jsonEncoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.SecondsDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
}

func textEncoderConfig(levelEnc zapcore.LevelEncoder) zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:          "time",
		LevelKey:         "level",
		NameKey:          zapcore.OmitKey,
		CallerKey:        "caller",
		FunctionKey:      zapcore.OmitKey,
		MessageKey:       "msg",
		StacktraceKey:    "stacktrace",
		LineEnding:       zapcore.DefaultLineEnding,
		EncodeLevel:      levelEnc,
		EncodeTime:       func(t time.Time, enc zapcore.PrimitiveArrayEncoder) { enc.AppendString(t.Format("2006-01-02 15:04:05")) },
		EncodeDuration:   zapcore.StringDurationEncoder,
		EncodeCaller:     zapcore.ShortCallerEncoder,
		ConsoleSeparator: " ",
	}
}

func plainLevel(l zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString("[" + l.CapitalString() + "]")
}

var levelColors = map[zapcore.Level]string{
	zapcore.DebugLevel: "\x1b[35m",
	zapcore.InfoLevel:  "\x1b[34m",
	zapcore.WarnLevel:  "\x1b[33m",
}

func colorLevel(l zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	c, ok := levelColors[l]
	if !ok {
		c = "\x1b[31m"
	}
	enc.AppendString(c + "[" + l.CapitalString() + "]\x1b[0m")
}

// Get returns the global logger, or a no-op logger before Init.
func Get() *zap.Logger {
	if globalLogger == nil {
		return zap.NewNop()
	}
	return globalLogger
}

// With creates a child logger with additional fields
func With(fields ...zap.Field) *zap.Logger {
	return Get().With(fields...)
}

// Named creates a child logger with the given name
func Named(name string) *zap.Logger {
	return Get().Named(name)
}

func skip() *zap.Logger {
	return Get().WithOptions(zap.AddCallerSkip(1))
}

// Debug logs a debug message
func Debug(msg string, fields ...zap.Field) { skip().Debug(msg, fields...) }

// Info logs an info message
func Info(msg string, fields ...zap.Field) { skip().Info(msg, fields...) }

// Warn logs a warning message
func Warn(msg string, fields ...zap.Field) { skip().Warn(msg, fields...) }

// Error logs an error message
func Error(msg string, fields ...zap.Field) { skip().Error(msg, fields...) }

// Fatal logs a fatal message and exits
func Fatal(msg string, fields ...zap.Field) { skip().Fatal(msg, fields...) }

// Sync flushes any buffered log entries
func Sync() error {
	if globalLogger != nil {
		return globalLogger.Sync()
	}
	return nil
}

// Secret returns a field describing a credential without its value.
func Secret(key, value string) zap.Field {
	if value == "" {
		return zap.String(key, "<empty>")
	}
	return zap.String(key, "<redacted len="+strconv.Itoa(len(value))+">")
}

// kvEncoder renders the entry header like the console encoder and
// appends fields as key=value pairs.
type kvEncoder struct {
	zapcore.Encoder
	cfg zapcore.EncoderConfig
}

func newKVEncoder(cfg zapcore.EncoderConfig) zapcore.Encoder {
	return &kvEncoder{Encoder: zapcore.NewConsoleEncoder(cfg), cfg: cfg}
}

func (e *kvEncoder) Clone() zapcore.Encoder {
	return &kvEncoder{Encoder: e.Encoder.Clone(), cfg: e.cfg}
}

func (e *kvEncoder) EncodeEntry(entry zapcore.Entry, fields []zapcore.Field) (*buffer.Buffer, error) {
	buf := pool.Get()
	head := &stringsEncoder{}
	e.cfg.EncodeTime(entry.Time, head)
	e.cfg.EncodeLevel(entry.Level, head)
	if entry.Caller.Defined {
		e.cfg.EncodeCaller(entry.Caller, head)
	}
	for _, s := range head.elems {
		buf.AppendString(s)
		buf.AppendString(e.cfg.ConsoleSeparator)
	}
	buf.AppendString(entry.Message)

	for _, f := range fields {
		buf.AppendString(e.cfg.ConsoleSeparator)
		buf.AppendString(f.Key)
		buf.AppendByte('=')
		appendValue(buf, f)
	}
	if entry.Stack != "" {
		buf.AppendByte('\n')
		buf.AppendString(entry.Stack)
	}
	buf.AppendString(zapcore.DefaultLineEnding)
	return buf, nil
}

// stringsEncoder collects the output of zap's primitive encoders.
type stringsEncoder struct {
	elems []string
}

func (s *stringsEncoder) add(v any)                      { s.elems = append(s.elems, fmt.Sprint(v)) }
func (s *stringsEncoder) AppendBool(v bool)              { s.add(v) }
func (s *stringsEncoder) AppendByteString(v []byte)      { s.elems = append(s.elems, string(v)) }
func (s *stringsEncoder) AppendComplex128(v complex128)  { s.add(v) }
func (s *stringsEncoder) AppendComplex64(v complex64)    { s.add(v) }
func (s *stringsEncoder) AppendFloat64(v float64)        { s.add(v) }
func (s *stringsEncoder) AppendFloat32(v float32)        { s.add(v) }
func (s *stringsEncoder) AppendInt(v int)                { s.add(v) }
func (s *stringsEncoder) AppendInt64(v int64)            { s.add(v) }
func (s *stringsEncoder) AppendInt32(v int32)            { s.add(v) }
func (s *stringsEncoder) AppendInt16(v int16)            { s.add(v) }
func (s *stringsEncoder) AppendInt8(v int8)              { s.add(v) }
func (s *stringsEncoder) AppendString(v string)          { s.elems = append(s.elems, v) }
func (s *stringsEncoder) AppendUint(v uint)              { s.add(v) }
func (s *stringsEncoder) AppendUint64(v uint64)          { s.add(v) }
func (s *stringsEncoder) AppendUint32(v uint32)          { s.add(v) }
func (s *stringsEncoder) AppendUint16(v uint16)          { s.add(v) }
func (s *stringsEncoder) AppendUint8(v uint8)            { s.add(v) }
func (s *stringsEncoder) AppendUintptr(v uintptr)        { s.add(v) }
func (s *stringsEncoder) AppendDuration(v time.Duration) { s.elems = append(s.elems, v.String()) }
func (s *stringsEncoder) AppendTime(v time.Time)         { s.elems = append(s.elems, v.String()) }
func (s *stringsEncoder) AppendArray(v zapcore.ArrayMarshaler) error {
	return v.MarshalLogArray(s)
}
func (s *stringsEncoder) AppendObject(zapcore.ObjectMarshaler) error { return nil }
func (s *stringsEncoder) AppendReflected(v interface{}) error {
	s.add(v)
	return nil
}

func appendValue(buf *buffer.Buffer, f zapcore.Field) {
	switch f.Type {
	case zapcore.StringType:
		appendText(buf, f.String)
	case zapcore.Int64Type, zapcore.Int32Type, zapcore.Int16Type, zapcore.Int8Type:
		buf.AppendInt(f.Integer)
	case zapcore.Uint64Type, zapcore.Uint32Type, zapcore.Uint16Type, zapcore.Uint8Type, zapcore.UintptrType:
		buf.AppendUint(uint64(f.Integer))
	case zapcore.Float64Type:
		buf.AppendFloat(math.Float64frombits(uint64(f.Integer)), 64)
	case zapcore.BoolType:
		buf.AppendBool(f.Integer == 1)
	case zapcore.DurationType:
		buf.AppendString(time.Duration(f.Integer).String())
	case zapcore.ErrorType:
		if err, ok := f.Interface.(error); ok && err != nil {
			appendText(buf, err.Error())
		} else {
			buf.AppendString("<nil>")
		}
	case zapcore.StringerType:
		if s, ok := f.Interface.(fmt.Stringer); ok {
			buf.AppendString(s.String())
		}
	default:
		if f.Interface != nil {
			buf.AppendString(fmt.Sprint(f.Interface))
		} else if f.Type == zapcore.TimeType {
			buf.AppendString(time.Unix(0, f.Integer).String())
		}
	}
}

// appendText quotes values that would otherwise break key=value parsing,
// such as error messages with spaces.
func appendText(buf *buffer.Buffer, v string) {
	if v != "" && !strings.ContainsAny(v, " =\"\t\n") {
		buf.AppendString(v)
		return
	}
	buf.AppendString(strconv.Quote(v))
}
