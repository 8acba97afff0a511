// Command contentcheck validates the content libraries and samples draws from
// them without starting the API server.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
