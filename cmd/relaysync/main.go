package main

import (
	"fmt"
	"os"

	"github.com/roach88/relaysync/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "relaysync:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
