package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var botsCmd = &cobra.Command{
	Use:   "bots",
	Short: "List the bots found in the bundle directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := setup(cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		mgr, err := newManager(cmd.Context(), cfg, log)
		if err != nil {
			return err
		}
		defer mgr.Close()

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tTITLE\tWORDS\tRESPONSES\tINSTALLED\tTAGS")
		for _, b := range mgr.Bots() {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%t\t%s\n",
				b.ID, b.Title,
				humanize.Comma(int64(len(b.Words))), humanize.Comma(int64(len(b.Responses))),
				mgr.IsInstalled(b), strings.Join(b.Tags, ","))
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(botsCmd)
}
