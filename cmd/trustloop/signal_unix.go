//go:build !windows

package main

import (
	"os"
	"syscall"
)

// shutdownSignals cancel the command context. Hooks finish their pass;
// the MCP server and simulations stop.
var shutdownSignals = []os.Signal{os.Interrupt, syscall.SIGTERM}
