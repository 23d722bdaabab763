// Command arquitectura runs the construction management API.
package main

import (
	"arquitectura/internal/cli"
	"os"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
