package main

import (
	"os"

	"github.com/spigell/resource-recommender/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
