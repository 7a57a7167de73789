package debug

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

var (
	Enabled = false
	path    = "chatly-debug.log"
)

// SetPath redirects debug output, typically into the profile's config dir.
func SetPath(dir string) {
	if dir != "" {
		path = filepath.Join(dir, "debug.log")
	}
}

// Log appends to the debug log only if debug mode is enabled. The TUI owns
// the terminal, so nothing is ever written to stdout.
func Log(format string, args ...interface{}) {
	if !Enabled {
		return
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return
	}
	defer f.Close()
	fmt.Fprintf(f, time.Now().Format("15:04:05.000 ")+format+"\n", args...)
}
