package main

import (
	"os"

	"github.com/crdbtools/roachload/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
