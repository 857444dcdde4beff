// Command moonrun is the orchestrator's CLI entry point.
package main

import (
	"os"

	"github.com/ontools/moonrun/internal/cmd"
)

// version is stamped at build time via -ldflags; "dev" otherwise.
var version = "dev"

func main() {
	os.Exit(cmd.Execute(version))
}
