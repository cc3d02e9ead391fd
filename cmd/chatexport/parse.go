package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"
	"unicode/utf8"

	"github.com/spf13/cobra"
)

func newParseCmd(ro *rootOptions) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "parse [file|-]",
		Short: "Show the speaker turns recovered from a transcript",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := ro.setup(cmd)
			if err != nil {
				return err
			}
			parser, err := cfg.LoadParser()
			if err != nil {
				return err
			}
			doc, err := readInput(cmd, args, cfg)
			if err != nil {
				return err
			}

			conv := parser.Parse(doc.Text)
			log.Debug("parsed", "turns", conv.Len(), "strategy", conv.Strategy())

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(conv)
			}

			st := conv.Stats()
			fmt.Fprintf(out, "strategy: %s\nturns: %d\ncharacters: %d\n\n", conv.Strategy(), st.TotalTurns, st.TotalChars)
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "#\tROLE\tCHARS\tPREVIEW")
			for _, t := range conv.Turns() {
				fmt.Fprintf(tw, "%d\t%s\t%d\t%s\n", t.Index, t.Role.DisplayName(), t.CharCount, preview(t.Content, 60))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the conversation as JSON")
	return cmd
}

// preview flattens s to one line of at most n runes.
func preview(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n-3]) + "..."
}
