package log

import (
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	contextPkg "DrowsinessMonitor/pkg/context"

	formatter "github.com/antonfisher/nested-logrus-formatter"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	logger *logrus.Logger
	once   sync.Once
)

const RequestIDKey = "request_id"

type Fields = logrus.Fields

// NewLogger returns the process-wide logger, building it on first use.
func NewLogger() *logrus.Logger {
	once.Do(func() {
		logger = logrus.New()
		logger.SetLevel(levelFromEnv())

		logger.SetFormatter(&formatter.Formatter{
			NoColors:        os.Getenv("LOG_NO_COLORS") == "true",
			TimestampFormat: "02 Jan 06 - 15:04:05",
			HideKeys:        false,
			CallerFirst:     true,
			CustomCallerFormatter: func(f *runtime.Frame) string {
				s := strings.Split(f.Function, ".")
				funcName := s[len(s)-1]
				return fmt.Sprintf(" \x1b[%dm[%s:%d][%s()]", 34, path.Base(f.File), f.Line, funcName)
			},
		})

		writers := []io.Writer{os.Stderr}

		if os.Getenv("APP_ENV") != "test" {
			dir := os.Getenv("LOG_DIR")
			if dir == "" {
				dir = "./storage/logs"
			}
			writers = append(writers, &lumberjack.Logger{
				Filename:   filepath.Join(dir, fmt.Sprintf("monitor-%s.log", time.Now().Format("2006-01-02"))),
				LocalTime:  true,
				Compress:   true,
				MaxSize:    100,
				MaxAge:     7,
				MaxBackups: 3,
			})
		}

		logger.SetOutput(io.MultiWriter(writers...))
		logger.SetReportCaller(true)
	})

	return logger
}

func levelFromEnv() logrus.Level {
	raw := os.Getenv("LOG_LEVEL")
	if raw == "" {
		return logrus.DebugLevel
	}
	level, err := logrus.ParseLevel(raw)
	if err != nil {
		return logrus.DebugLevel
	}
	return level
}

func entry(fields Fields) *logrus.Entry {
	if fields == nil {
		fields = Fields{}
	}
	return NewLogger().WithFields(fields)
}

func Debug(fields Fields, msg string) { entry(fields).Debug(msg) }

func Info(fields Fields, msg string) { entry(fields).Info(msg) }

func Warn(fields Fields, msg string) { entry(fields).Warn(msg) }

func Error(fields Fields, msg string) { entry(fields).Error(msg) }

// ErrorWithTraceID logs msg with a trace id and returns it. The request id is
// reused as the trace id when present.
func ErrorWithTraceID(fields Fields, msg string) string {
	if fields == nil {
		fields = Fields{}
	}

	traceID, _ := fields[RequestIDKey].(string)
	if traceID == "" || traceID == "unknown" {
		id, err := uuid.NewRandom()
		if err != nil {
			Error(Fields{"error": err.Error()}, "[log.ErrorWithTraceID] failed to generate trace ID")
			traceID = "unknown"
		} else {
			traceID = id.String()
		}
	}

	fields["trace_id"] = traceID
	entry(fields).Error(msg)

	return traceID
}

func Fatal(fields Fields, msg string) { entry(fields).Fatal(msg) }

func WithRequestID(ctx context.Context) *logrus.Entry {
	requestID := "unknown"
	if ctx != nil {
		requestID = contextPkg.GetRequestID(ctx)
	}

	return NewLogger().WithField(RequestIDKey, requestID)
}
