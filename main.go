package main

import (
	"os"

	"github.com/renalscope/renalscope/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
