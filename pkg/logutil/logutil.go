// Package logutil provides named loggers shared by all packages.
//
// Loggers are cheap to obtain and are normally stored in a package-level
// variable:
//
//	var logger = logutil.GetLogger("marktree.parse")
//
// Until Configure is called, notices and more severe messages go to stderr.
package logutil

import (
	"github.com/tliron/commonlog"
	"github.com/tliron/commonlog/simple"
)

// Logger is the logging interface returned by GetLogger.
type Logger = commonlog.Logger

// GetLogger returns the logger with the given name. Dots in the name separate
// levels of the logger hierarchy.
func GetLogger(name string) Logger {
	return commonlog.GetLogger(name)
}

// Configure sets the verbosity of all loggers and the file they write to. An
// empty path means stderr. Verbosity 0 logs notices and above, 1 adds info
// and 2 adds debug messages; negative values silence more.
//
// Messages are written unbuffered, so that nothing is lost when a short-lived
// command exits.
func Configure(verbosity int, path string) {
	backend := simple.NewBackend()
	backend.Buffered = false
	if path == "" {
		backend.Configure(verbosity, nil)
	} else {
		backend.Configure(verbosity, &path)
	}
	commonlog.SetBackend(backend)
}
