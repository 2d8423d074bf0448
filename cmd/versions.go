package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/ledger-cli/internal/model"
)

var versionsCmd = &cobra.Command{
	Use:   "versions",
	Short: "List ledger rebuild history",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		st, err := openStore(ctx, "read")
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		limit, _ := cmd.Flags().GetInt("limit")
		versions, err := st.ListVersions(ctx, limit)
		if err != nil {
			return eris.Wrap(err, "versions")
		}
		if len(versions) == 0 {
			_, _ = fmt.Fprintln(cmd.ErrOrStderr(), "No rebuilds recorded.")
			return nil
		}
		formatVersions(cmd.OutOrStdout(), versions)
		return nil
	},
}

func init() {
	versionsCmd.Flags().Int("limit", 20, "max number of versions to display")
	rootCmd.AddCommand(versionsCmd)
}

// formatVersions writes a tabular list of ledger versions to w.
func formatVersions(out io.Writer, versions []model.LedgerVersion) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tSTATUS\tACTIVE\tSTARTED\tDURATION\tCUSTOMERS\tLINES\tERROR")
	_, _ = fmt.Fprintln(w, "--\t------\t------\t-------\t--------\t---------\t-----\t-----")

	for _, v := range versions {
		dur := ""
		if v.CompletedAt != nil {
			dur = v.CompletedAt.Sub(v.StartedAt).Round(time.Second).String()
		}
		active := ""
		if v.Active {
			active = "*"
		}
		msg := v.Error
		if len(msg) > 60 {
			msg = msg[:57] + "..."
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			truncateID(v.ID),
			v.Status,
			active,
			v.StartedAt.Format("2006-01-02 15:04"),
			dur,
			cellText(v.Customers),
			cellText(v.Lines),
			msg,
		)
	}
	_ = w.Flush()
}

// truncateID returns the first 8 characters of a UUID for compact display.
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
