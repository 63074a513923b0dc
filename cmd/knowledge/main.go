package main

import (
	"os"

	"github.com/priyanshu-1006/GDG-Edit-sub000/internal/cli"
)

func main() {
	if err := cli.RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
