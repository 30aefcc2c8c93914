package main

import (
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/nao1215/torbot/internal/config"
	"github.com/nao1215/torbot/internal/database"
)

// defaultHistoryLimit is the number of crawls listed by default.
const defaultHistoryLimit = 20

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List stored crawls",
		Long: `History lists the crawls stored in the database, newest first.

Use "torbot show <crawl-id>" to print a stored link tree.

Examples:
  torbot history
  torbot history -n 5
  torbot history --delete 7d3c0f8e-...`,
		Args: cobra.NoArgs,
		RunE: runHistoryCmd,
	}

	cmd.Flags().IntP("limit", "n", defaultHistoryLimit, "Number of crawls to list (0 for all)")
	cmd.Flags().String("delete", "", "Delete the crawl with this ID")
	cmd.Flags().String("db-dir", config.XDGDataDir(), "Database directory")

	return cmd
}

func runHistoryCmd(cmd *cobra.Command, _ []string) error {
	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}
	deleteID, err := cmd.Flags().GetString("delete")
	if err != nil {
		return err
	}
	dbDir, err := cmd.Flags().GetString("db-dir")
	if err != nil {
		return err
	}

	opts := database.DefaultOptions()
	opts.CreateIfNotExists = false
	out := cmd.OutOrStdout()
	db, err := database.Open(dbDir, opts)
	if errors.Is(err, fs.ErrNotExist) && deleteID == "" {
		fmt.Fprintln(out, "No crawls stored.")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if deleteID != "" {
		if err := db.DeleteCrawl(cmd.Context(), deleteID); err != nil {
			return fmt.Errorf("failed to delete crawl: %w", err)
		}
		fmt.Fprintf(out, "Deleted crawl %s\n", deleteID)
		return nil
	}

	crawls, err := db.ListCrawls(cmd.Context(), limit)
	if err != nil {
		return fmt.Errorf("failed to list crawls: %w", err)
	}
	if len(crawls) == 0 {
		fmt.Fprintln(out, "No crawls stored.")
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"ID", "Created", "Root URL", "Title", "Depth", "Pages"})
	for _, c := range crawls {
		t.AppendRow(table.Row{
			c.ID,
			c.CreatedAt.Local().Format(time.DateTime),
			c.RootURL,
			c.RootTitle,
			strconv.Itoa(c.Depth),
			strconv.Itoa(c.Nodes),
		})
	}
	t.Render()
	return nil
}
