package main

import (
	"os"

	"github.com/goliatone/go-formvalidator/cmd/formvalidate/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
