package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/couchcryptid/match-forecast-service/internal/domain"
	"github.com/spf13/cobra"
)

var errSomeUnparseable = errors.New("some inputs could not be parsed")

func newCoordsCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "coords [coordinate string]",
		Short: "Parse a DMS or decimal-degree coordinate string",
		Long: `Parses a coordinate string such as 42°12′42″N 8°44′23″O and prints the
signed latitude and longitude. Without arguments, reads one string per line
from stdin.

$ matchctl coords '40°26′46″N 3°41′18″O'
(40.4461, -3.6883)
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if len(args) > 0 {
				return printCoords(out, strings.Join(args, " "), asJSON)
			}

			failed := false
			scanner := bufio.NewScanner(cmd.InOrStdin())
			for scanner.Scan() {
				line := strings.TrimSpace(scanner.Text())
				if line == "" {
					continue
				}
				if err := printCoords(out, line, asJSON); err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "%s\t%v\n", line, err)
					failed = true
				}
			}
			if err := scanner.Err(); err != nil {
				return err
			}
			if failed {
				return errSomeUnparseable
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print {\"lat\":…,\"lon\":…} instead of a pair")
	return cmd
}

func printCoords(w io.Writer, s string, asJSON bool) error {
	c, err := domain.ParseCoordinates(s)
	if err != nil {
		return fmt.Errorf("%q: %w", s, err)
	}
	if asJSON {
		return json.NewEncoder(w).Encode(c)
	}
	_, err = fmt.Fprintln(w, c)
	return err
}
