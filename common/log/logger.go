// Package log is a thin package-level facade over logrus so importers share
// one configured logger.
package log

import (
	"github.com/sirupsen/logrus"
)

var Log = logrus.New()

func AddHook(hook logrus.Hook) {
	Log.AddHook(hook)
}

func SetLevel(level logrus.Level) {
	Log.SetLevel(level)
}

func Debugf(format string, args ...interface{}) {
	Log.Debugf(format, args...)
}

func Infof(format string, args ...interface{}) {
	Log.Infof(format, args...)
}

func Warnf(format string, args ...interface{}) {
	Log.Warnf(format, args...)
}

func Errorf(format string, args ...interface{}) {
	Log.Errorf(format, args...)
}
