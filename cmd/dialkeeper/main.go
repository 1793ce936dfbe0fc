package main

import (
	"os"

	"github.com/solatis/dialkeeper/cmd/dialkeeper/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
