package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nao1215/torbot/internal/config"
	"github.com/nao1215/torbot/internal/database"
	"github.com/nao1215/torbot/internal/linktree"
	"github.com/nao1215/torbot/internal/report"
)

// errShowSource is returned unless exactly one of a crawl ID or --file is given.
var errShowSource = errors.New("give either a crawl ID or --file, not both")

// NewShowCmd creates the show command.
func NewShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show [crawl-id]",
		Short: "Print a stored or exported link tree",
		Long: `Show loads a crawl stored by "torbot crawl", or a JSON export
written with --save json, and prints its link tree.

Examples:
  torbot show 7d3c0f8e-...
  torbot show --markdown 7d3c0f8e-...
  torbot show --save json -o reports 7d3c0f8e-...
  torbot show --file "Home - Depth 2.json"`,
		Args: cobra.MaximumNArgs(1),
		RunE: runShowCmd,
	}

	addOutputFlags(cmd)
	cmd.Flags().String("db-dir", config.XDGDataDir(), "Database directory")
	cmd.Flags().StringP("file", "f", "", "Read the link tree from a JSON export instead of the database")

	return cmd
}

func runShowCmd(cmd *cobra.Command, args []string) error {
	out, err := outputFlags(cmd)
	if err != nil {
		return err
	}
	file, err := cmd.Flags().GetString("file")
	if err != nil {
		return err
	}
	if (file == "") == (len(args) == 0) {
		return errShowSource
	}

	var tree *linktree.Tree
	if file != "" {
		tree, err = readExport(file)
	} else {
		tree, err = loadStored(cmd, args[0])
	}
	if err != nil {
		return err
	}
	return out.render(cmd.OutOrStdout(), cmd.ErrOrStderr(), tree)
}

// readExport reads a tree written by the JSON writer.
func readExport(path string) (*linktree.Tree, error) {
	f, err := os.Open(path) //nolint:gosec // path is given by the user
	if err != nil {
		return nil, fmt.Errorf("failed to open export: %w", err)
	}
	defer f.Close()

	tree, err := report.ReadJSON(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read export %s: %w", path, err)
	}
	return tree, nil
}

func loadStored(cmd *cobra.Command, crawlID string) (*linktree.Tree, error) {
	dbDir, err := cmd.Flags().GetString("db-dir")
	if err != nil {
		return nil, err
	}

	opts := database.DefaultOptions()
	opts.CreateIfNotExists = false
	db, err := database.Open(dbDir, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	tree, err := db.LoadTree(cmd.Context(), crawlID)
	if err != nil {
		return nil, fmt.Errorf("failed to load crawl: %w", err)
	}
	return tree, nil
}
