// Package main implements the carrot2 command line tool. It assembles a
// pipeline controller from a configuration file and runs queries, capability
// checks and descriptor publishing against it.
package main

import (
	"fmt"
	"os"
	"runtime"
)

// Build information
const (
	Version = "0.1.0"
	appName = "carrot2"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := newRootCmd(os.Stdout, os.Stderr).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
