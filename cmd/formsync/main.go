// Command formsync runs the form state synchronization engine.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/formsync/internal/cli"
)

func main() {
	root := cli.NewRootCommand()
	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "formsync: %v\n", err)
		os.Exit(cli.GetExitCode(err))
	}
}
