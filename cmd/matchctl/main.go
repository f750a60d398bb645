// Command matchctl is an operator tool for the match forecast service: it
// parses venue coordinate strings and runs one enrichment pass without
// touching the database.
package main

import "os"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
