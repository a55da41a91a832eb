// SPDX-License-Identifier: Unlicense OR MIT

// Package log constructs the loggers used by the render threads.
package log

import (
	"os"

	"github.com/sirupsen/logrus"
)

var root = newRoot()

func newRoot() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetFormatter(formatter())
	if lvl, err := logrus.ParseLevel(os.Getenv("GLTHREAD_LOG")); err == nil {
		l.SetLevel(lvl)
	} else {
		l.SetLevel(logrus.WarnLevel)
	}
	return l
}

// New returns a logger for component.
func New(component string) *logrus.Entry {
	return root.WithField("component", component)
}

// SetLevel sets the level of every logger returned by New.
func SetLevel(lvl logrus.Level) {
	root.SetLevel(lvl)
}

// Discard returns a logger that drops everything.
func Discard() *logrus.Entry {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return logrus.NewEntry(l)
}
