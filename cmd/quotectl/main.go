// Package main is the entry point for quotectl
package main

import (
	"os"

	"github.com/knoguchi/freightquote/cmd/quotectl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Stderr.WriteString("Error: " + err.Error() + "\n")
		os.Exit(1)
	}
}
