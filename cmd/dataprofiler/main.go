package main

import (
	"os"

	"github.com/proflow/dataprofiler/cmd/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(cmd.ExitCodeFor(err))
	}
}
