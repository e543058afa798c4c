package main

import (
	"os"

	"github.com/joho/godotenv"

	"github.com/AnluYaens/budgetbuddy/internal/commands"
)

func main() {
	// optional .env for API keys in development
	_ = godotenv.Load()

	if err := commands.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
