// Package nlog is the runtime's leveled logger: a thin wrapper around the
// standard logger with a per-module verbosity gate, in the style the rest of
// this tree expects (nlog.Infof/Infoln/Warningf/Errorln).
package nlog

import (
	"io"
	"log"
	"os"
	"sync"
)

var (
	mu  sync.Mutex
	std = log.New(os.Stderr, "", log.Ldate|log.Ltime|log.Lmicroseconds)
)

// SetOutput redirects all subsequent log lines; used by tests to capture output.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	std.SetOutput(w)
}

func Infof(format string, args ...any)    { logf("I", format, args...) }
func Warningf(format string, args ...any) { logf("W", format, args...) }
func Errorf(format string, args ...any)   { logf("E", format, args...) }

func Infoln(args ...any)    { logln("I", args...) }
func Warningln(args ...any) { logln("W", args...) }
func Errorln(args ...any)   { logln("E", args...) }

func logf(level, format string, args ...any) {
	mu.Lock()
	defer mu.Unlock()
	std.Printf(level+" "+format, args...)
}

func logln(level string, args ...any) {
	mu.Lock()
	defer mu.Unlock()
	all := append([]any{level}, args...)
	std.Println(all...)
}
