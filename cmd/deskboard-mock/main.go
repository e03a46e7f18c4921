// Command deskboard-mock serves the helpdesk REST and WebSocket contract
// from memory or a SQLite file. It is a test double for the client, not a
// production server.
package main

import (
	"fmt"
	"os"
)

func main() {
	home, err := os.UserHomeDir()
	if err != nil {
		fmt.Fprintln(os.Stderr, "resolve home dir:", err)
		os.Exit(1)
	}
	defaults, err := loadRuntimeDefaults(home)
	if err != nil {
		fmt.Fprintln(os.Stderr, "load config:", err)
		os.Exit(1)
	}

	cmd := newServeCommand(defaults)
	cmd.SetArgs(os.Args[1:])
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
