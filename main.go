package main

import (
	"fmt"
	"os"

	"github.com/streed/memo/cmd"
	"github.com/streed/memo/internal/logger"
)

// Version is set via ldflags during build
var Version = "dev"

func main() {
	cmd.Version = Version

	err := cmd.Execute()
	logger.Sync()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
