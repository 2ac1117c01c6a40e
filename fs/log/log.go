// Package log provides logging for drivedup
package log

import (
	"context"
	"io"
	"os"
	"reflect"
	"runtime"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rclone/drivedup/fs"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options contains options for the logging
type Options struct {
	File       string      // Log everything to this file
	MaxSize    int         // Max size of log file in MiB before rotating, 0 for no rotation
	MaxBackups int         // Max number of rotated files to keep
	MaxAge     fs.Duration // Max age of rotated files
	Compress   bool        // Set to compress rotated files
}

// Opt is the options for the logger
var Opt Options

// fnName returns the name of the calling +2 function
func fnName() string {
	pc, _, _, ok := runtime.Caller(2)
	name := "*Unknown*"
	if ok {
		name = runtime.FuncForPC(pc).Name()
		dot := strings.LastIndex(name, ".")
		if dot >= 0 {
			name = name[dot+1:]
		}
	}
	return name
}

// Trace debugs the entry and exit of the calling function
//
// It is designed to be used in a defer statement so it returns a
// function that logs the exit parameters.
//
// Any pointers in the exit function will be dereferenced
func Trace(o interface{}, format string, a ...interface{}) func(string, ...interface{}) {
	if fs.GetConfig(context.Background()).LogLevel < fs.LogLevelDebug {
		return func(format string, a ...interface{}) {}
	}
	name := fnName()
	fs.LogPrintf(fs.LogLevelDebug, o, name+": "+format, a...)
	return func(format string, a ...interface{}) {
		for i := range a {
			typ := reflect.TypeOf(a[i])
			if typ != nil && typ.Kind() == reflect.Ptr {
				value := reflect.ValueOf(a[i])
				if value.IsNil() {
					a[i] = nil
				} else {
					a[i] = reflect.Indirect(value).Interface()
				}
			}
		}
		fs.LogPrintf(fs.LogLevelDebug, o, ">"+name+": "+format, a...)
	}
}

// logWriter returns where the log should go
func logWriter() (io.Writer, error) {
	if Opt.File == "" {
		return os.Stderr, nil
	}
	if Opt.MaxSize <= 0 {
		f, err := os.OpenFile(Opt.File, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0640)
		if err != nil {
			return nil, errors.Wrap(err, "failed to open log file")
		}
		return f, nil
	}
	days := 0
	if Opt.MaxAge > 0 {
		days = int(time.Duration(Opt.MaxAge).Hours()/24 + 0.5)
		if days < 1 {
			days = 1
		}
	}
	return &lumberjack.Logger{
		Filename:   Opt.File,
		MaxSize:    Opt.MaxSize,
		MaxBackups: Opt.MaxBackups,
		MaxAge:     days,
		Compress:   Opt.Compress,
		LocalTime:  true,
	}, nil
}

// InitLogging starts the logging as per the command line flags
func InitLogging(ctx context.Context) error {
	ci := fs.GetConfig(ctx)
	w, err := logWriter()
	if err != nil {
		return err
	}
	fs.Logger.SetOutput(w)
	// Filtering is done on fs.LogLevel so let everything through
	fs.Logger.SetLevel(logrus.DebugLevel)
	if ci.UseJSONLog {
		fs.Logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339Nano,
		})
	} else {
		fs.Logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:          true,
			TimestampFormat:        "2006/01/02 15:04:05",
			DisableLevelTruncation: true,
			DisableColors:          Opt.File != "",
		})
	}
	if Opt.File != "" {
		fs.Infof(nil, "drivedup %s logging to %q", fs.Version, Opt.File)
	}
	return nil
}

// Redirected returns true if the log has been redirected from stderr
func Redirected() bool {
	return Opt.File != ""
}
