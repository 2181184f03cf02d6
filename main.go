// Package main is the entry point for the csfeatures CLI tool, which rebuilds
// CS2 round state from demo recordings and derives a per-round feature table.
package main

import "github.com/pable/cs-round-features/cmd"

func main() {
	cmd.Execute()
}
