// Command questd evaluates quest conditions and grants quest rewards.
package main

import (
	"fmt"
	"os"

	"github.com/kritdbb/DobyHR/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
