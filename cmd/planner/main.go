// Package main is the entry point for the planner CLI.
package main

import (
	"os"

	"github.com/leeovery/studyplan/internal/cli"
)

func main() {
	app := cli.NewApp(os.Stdout, os.Stderr, os.Stdin)

	// Resolve working directory
	dir := "."
	if wd, err := os.Getwd(); err == nil {
		dir = wd
	}

	os.Exit(app.Run(os.Args, dir))
}
