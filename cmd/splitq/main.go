// Command splitq runs query documents through the split strategies,
// replays split scenarios, and plans partition optimize jobs.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/splitq/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}
