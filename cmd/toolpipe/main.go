package main

import (
	"fmt"
	"os"

	"github.com/nandavh/toolpipe/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		if !cli.IsReported(err) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}
