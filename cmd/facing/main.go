// Command facing infers which compass direction the building at a street
// address faces. It runs as an HTTP service, a Kafka worker, or a one-shot
// lookup.
package main

import (
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
