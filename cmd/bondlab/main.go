package main

import (
	"os"

	"github.com/wonny/bondlab/cmd/bondlab/commands"
)

// main is the entry point for the bondlab CLI
// ⭐ single CLI entry point: go run ./cmd/bondlab [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
