package main

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/benjaminschreck/go-pagestencil/pkg/store"
)

func (a *app) historyCmd() *cobra.Command {
	var dbPath, documentID string
	var limit int
	var showOutput bool
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List the recorded renders of a document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if dbPath == "" || documentID == "" {
				return errors.New("--db and --document are required")
			}
			st, err := store.Open(cmd.Context(), dbPath)
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			entries, err := st.History(cmd.Context(), documentID, limit)
			if err != nil {
				return err
			}
			if showOutput {
				for _, e := range entries {
					fmt.Fprintf(cmd.OutOrStdout(), "--- %d %s\n%s\n", e.ID, e.RenderedAt.Format(time.RFC3339), e.Output)
				}
				return nil
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, e := range entries {
				fmt.Fprintf(w, "%d\t%s\t%d bytes\n", e.ID, e.RenderedAt.Format(time.RFC3339), len(e.Output))
			}
			return w.Flush()
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&dbPath, "db", "", "SQLite database")
	flags.StringVar(&documentID, "document", "", "Document id")
	flags.IntVarP(&limit, "limit", "n", 10, "Most recent entries to show (0 for all)")
	flags.BoolVar(&showOutput, "output", false, "Print the rendered output of each entry")
	return cmd
}
