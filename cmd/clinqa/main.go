// Package main provides the entry point for the clinqa CLI.
package main

import (
	"os"

	"github.com/clinqa/retriever/cmd/clinqa/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
