package main

import (
	"os"

	"github.com/oho/kmedoids-daemon/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
