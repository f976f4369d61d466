package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/bookingwidget/internal/infrastructure/oplog"
	"github.com/example/bookingwidget/internal/infrastructure/postgres"
)

func newOplogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "oplog",
		Short: "Inspect the persisted operator log",
	}
	cmd.AddCommand(newOplogListCmd())
	return cmd
}

func newOplogListCmd() *cobra.Command {
	var (
		databaseURL string
		limit       int
	)
	c := &cobra.Command{
		Use:   "list",
		Short: "List recent operator log entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(databaseURL) == "" {
				return errors.New("DATABASE_URL or --database-url is required")
			}
			ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
			defer cancel()
			pool, err := postgres.Open(ctx, databaseURL)
			if err != nil {
				return err
			}
			defer pool.Close()

			entries, err := postgres.NewOperatorLogRepo(pool).List(ctx, limit)
			if err != nil {
				return err
			}
			return writeEntries(cmd.OutOrStdout(), entries)
		},
	}
	c.Flags().StringVar(&databaseURL, "database-url", os.Getenv("DATABASE_URL"), "postgres connection string")
	c.Flags().IntVar(&limit, "limit", 50, "maximum number of entries")
	return c
}

func writeEntries(w io.Writer, entries []oplog.Entry) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tLEVEL\tMESSAGE\tATTRS")
	for _, e := range entries {
		attrs := ""
		if len(e.Attrs) > 0 {
			b, err := json.Marshal(e.Attrs)
			if err != nil {
				return err
			}
			attrs = string(b)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", e.Time.Format(time.RFC3339), e.Level, e.Message, attrs)
	}
	return tw.Flush()
}
