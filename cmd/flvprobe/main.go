// Package main is the entry point for flvprobe, a small CLI that drives
// the flv demuxer over a file or stdin and prints a JSON summary of the
// tracks it produced.
package main

import (
	"os"

	"github.com/jmylchreest/flvdemux/cmd/flvprobe/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
