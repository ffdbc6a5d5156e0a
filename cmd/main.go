package main

import (
	"os"

	"github.com/soundprediction/cartograph/cmd/cartograph"
)

func main() {
	if err := cartograph.Execute(); err != nil {
		os.Exit(1)
	}
}
