//go:build windows

package main

import "os"

// shutdownSignals cancel the command context. Windows has no SIGTERM.
var shutdownSignals = []os.Signal{os.Interrupt}
