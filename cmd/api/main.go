package main

import (
	"os"

	"github.com/justsurfingit/extrajob/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
