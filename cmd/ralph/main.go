package main

import (
	"fmt"
	"os"

	"github.com/zachwill/ralph/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		code := cli.ExitCode(err)
		fmt.Fprintf(os.Stderr, "%s: %v\n", cli.Category(code), err)
		os.Exit(code)
	}
}
