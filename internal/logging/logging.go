// Package logging configures the process-wide structured logger used by
// every component of the transfer. It is a thin convenience layer over
// logrus rather than a bespoke formatter: components attach fields
// (session, component, peer) instead of interpolating them into the
// message string.
package logging

import (
	"os"

	"github.com/sirupsen/logrus"
	"golang.org/x/term"
)

var base = newBase()

func newBase() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetLevel(logrus.InfoLevel)
	if term.IsTerminal(int(os.Stderr.Fd())) {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		l.SetFormatter(&logrus.JSONFormatter{})
	}
	return l
}

// SetLevel parses level (e.g. "debug", "info", "warn", "error") and
// applies it to the package logger; an unparseable level is ignored.
func SetLevel(level string) {
	if lvl, err := logrus.ParseLevel(level); err == nil {
		base.SetLevel(lvl)
	}
}

// For returns a logger scoped to component, optionally carrying a
// session ID. Callers attach further fields (peer address, sequence
// number, ...) with further WithField calls on the returned entry.
func For(component string, sessionID string) *logrus.Entry {
	fields := logrus.Fields{"component": component}
	if sessionID != "" {
		fields["session"] = sessionID
	}
	return base.WithFields(fields)
}
