// Package main provides the smartmeet CLI entry point.
// smartmeet is the meeting intelligence backend: it turns uploaded
// meeting recordings into attributed transcripts, summaries, tasks,
// and a queryable memory.
package main

import (
	"os"

	"github.com/oguzatay/smartmeet/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
