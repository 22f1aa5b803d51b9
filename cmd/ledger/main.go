package main

import (
	"os"

	"github.com/joho/godotenv"

	"github.com/cleared-dev/ledger/internal/commands"
)

func main() {
	// A .env next to the ledger may carry LEDGER_DSN and friends; it is optional.
	_ = godotenv.Load()

	if err := commands.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
