package main

import (
	"os"

	"github.com/sciops/benchrun/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
