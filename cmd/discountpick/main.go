// Package main is the entry point for the discountpick CLI.
package main

import (
	"os"

	"github.com/runger/discountpick/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
