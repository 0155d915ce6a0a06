// Package main is the entry point for the sessionkit CLI.
package main

import (
	"sessionkit/cli/cmd"
)

func main() {
	cmd.Execute()
}
