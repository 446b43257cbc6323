package main

import (
	"os"

	"github.com/getaxonflow/axonflow-go/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
