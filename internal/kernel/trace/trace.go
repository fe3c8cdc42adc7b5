// Package trace emits the kernel's per-syscall trace lines.
//
// Every syscall logs one structured line carrying the caller's pid and tid,
// mirroring classic kernel trace output. Tracing is off by default and is
// cheap when disabled; Enable routes it to a writer at trace level.
package trace

import (
	"io"

	"github.com/sirupsen/logrus"
)

var logger = newDefaultLogger()

func newDefaultLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	l.SetLevel(logrus.ErrorLevel)
	return l
}

// Enable routes trace output to w. Passing nil restores the silent default.
func Enable(w io.Writer) {
	if w == nil {
		logger = newDefaultLogger()
		return
	}
	l := logrus.New()
	l.SetOutput(w)
	l.SetLevel(logrus.TraceLevel)
	logger = l
}

// Syscall logs entry into a syscall on behalf of pid/tid.
func Syscall(pid, tid int, name string) {
	logger.WithFields(logrus.Fields{
		"pid": pid,
		"tid": tid,
	}).Trace("kernel: " + name)
}

// Refused logs a blocking acquisition vetoed by the safety check.
func Refused(pid, tid int, name string, id int) {
	logger.WithFields(logrus.Fields{
		"pid": pid,
		"tid": tid,
		"id":  id,
	}).Trace("kernel: " + name + " refused: would deadlock")
}
