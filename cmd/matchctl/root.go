package main

import (
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "matchctl",
		Short: "Inspect coordinate parsing and upcoming match enrichment",
		Long: `
matchctl exposes the pieces of the match forecast service that are useful
from a terminal: the venue coordinate parser and a dry run of the
fetch-and-enrich pipeline.
`,
		SilenceUsage: true,
	}
	root.AddCommand(newCoordsCmd(), newNextCmd())
	return root
}
