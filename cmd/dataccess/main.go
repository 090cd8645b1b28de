// Command dataccess inspects backend capabilities and queries datasets.
package main

import (
	"os"

	"github.com/roach88/dataccess/internal/cli"
)

func main() {
	os.Exit(cli.Execute(os.Args[1:], os.Stdout, os.Stderr))
}
