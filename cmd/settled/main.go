package main

import (
	"log/slog"
	"os"

	"drippy/services/settled"
)

func main() {
	if err := settled.Main(); err != nil {
		slog.Error("settled exited", "error", err)
		os.Exit(1)
	}
}
