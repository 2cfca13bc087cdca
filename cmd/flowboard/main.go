package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/felixgeelhaar/flowboard/internal/infrastructure/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		err = cli.MapError(err)
		fmt.Fprintln(os.Stderr, "Error:", err)

		var cliErr *cli.CLIError
		if errors.As(err, &cliErr) {
			if cliErr.Hint != "" {
				fmt.Fprintln(os.Stderr, "Hint:", cliErr.Hint)
			}
			os.Exit(cliErr.ExitCode)
		}
		os.Exit(1)
	}
}
