package main

import (
	"os"

	"github.com/ritzau/unitgen/pkg/output"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		output.PrintError(os.Stderr, err)
		os.Exit(1)
	}
}
