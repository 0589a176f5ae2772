// CliqueKey - correlation-based feature grouping
package main

import (
	"fmt"
	"os"

	"github.com/ChrisMcGann/CliqueKey/cmd/cliquekey/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
