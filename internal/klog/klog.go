// Package klog is the kernel-wide structured logger. Every diagnostic that
// the teacher's packages print with bare fmt.Printf (corrupt trap
// checksums, page faults, device registrations) goes through here instead,
// tagged with structured fields so a host collecting kernel output can
// filter by subsystem.
package klog

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
)

var log = newLogger()

func newLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "15:04:05.000000",
	})
	return l
}

// SetLevel adjusts verbosity; boot glue calls this once after reading the
// boot config.
func SetLevel(level logrus.Level) {
	log.SetLevel(level)
}

// Sub returns a field-scoped entry for a subsystem, e.g. klog.Sub("trap").
func Sub(subsystem string) *logrus.Entry {
	return log.WithField("subsys", subsystem)
}

// Warnf logs at warning level with no subsystem scoping; prefer Sub where a
// subsystem is known.
func Warnf(format string, args ...interface{}) {
	log.Warnf(format, args...)
}

// Fatalf logs at error level with a fatal=true field and then panics, matching the documented
// "panic bypasses propagation" fatal conditions of spec §7. It deliberately
// does not call os.Exit (logrus.Fatal's default) because a kernel-core
// fatal condition must unwind via panic/recover in tests, not terminate the
// test binary.
func Fatalf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	log.WithField("fatal", true).Error(msg)
	panic(msg)
}
