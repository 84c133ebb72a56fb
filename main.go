// The main package for the company-vessels executable.
package main

import (
	"github.com/sajidahmed66/company-vessels/cmd"
)

// main is the entry point of the application.
// It defers all execution to the Cobra CLI library.
func main() {
	cmd.Execute()
}
