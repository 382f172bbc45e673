package main

import (
	"fmt"
	"os"
)

var (
	// Version information - will be set at build time
	Version   = "dev"
	GitCommit = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
