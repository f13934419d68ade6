// Package main is the entry point for the dnsrelay daemon.
package main

import (
	"fmt"
	"os"

	"dnsrelay/cmd/dnsrelay/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
