package main

import (
	"os"

	"github.com/taho/analytics/cmd/taho/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
