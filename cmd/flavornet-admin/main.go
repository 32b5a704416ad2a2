// Command flavornet-admin runs one-off database tasks: schema and index
// setup, ad-hoc recipe queries, JSONL import, tag backfill and fake data.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
