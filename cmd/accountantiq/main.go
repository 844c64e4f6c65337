package main

import (
	"os"

	"github.com/accountantiq-dev/accountantiq/internal/commands"
)

func main() {
	if err := commands.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
