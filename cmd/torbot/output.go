package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/nao1215/torbot/internal/config"
	"github.com/nao1215/torbot/internal/linktree"
	"github.com/nao1215/torbot/internal/report"
)

// outputOptions selects how a tree is printed and saved.
type outputOptions struct {
	JSON      bool
	Markdown  bool
	Table     bool
	NoColor   bool
	Formats   []report.Format
	OutputDir string
}

// addOutputFlags registers the flags shared by crawl and show.
func addOutputFlags(cmd *cobra.Command) {
	cmd.Flags().BoolP("json", "j", false, "Print the link tree as JSON")
	cmd.Flags().BoolP("markdown", "m", false, "Print the link tree as Markdown")
	cmd.Flags().Bool("table", true, "Print the link tree as a table when neither --json nor --markdown is set (--table=false prints nothing)")
	cmd.Flags().Bool("no-color", false, "Disable colored status codes")
	cmd.Flags().StringSlice("save", nil, "Save the link tree to files: json, md, txt (repeatable)")
	cmd.Flags().Bool("save-json", false, "Shorthand for --save json")
	cmd.Flags().StringP("output-dir", "o", config.DefaultOutputDir, "Directory for saved files")
}

// outputFlags reads the output flags and validates them.
func outputFlags(cmd *cobra.Command) (outputOptions, error) {
	var opts outputOptions
	var err error

	if opts.JSON, err = cmd.Flags().GetBool("json"); err != nil {
		return opts, err
	}
	if opts.Markdown, err = cmd.Flags().GetBool("markdown"); err != nil {
		return opts, err
	}
	if opts.Table, err = cmd.Flags().GetBool("table"); err != nil {
		return opts, err
	}
	if opts.NoColor, err = cmd.Flags().GetBool("no-color"); err != nil {
		return opts, err
	}
	if opts.OutputDir, err = cmd.Flags().GetString("output-dir"); err != nil {
		return opts, err
	}
	if opts.JSON && opts.Markdown {
		return opts, fmt.Errorf("configuration error: %w", config.ErrConflictingReportFormats)
	}

	names, err := cmd.Flags().GetStringSlice("save")
	if err != nil {
		return opts, err
	}
	saveJSON, err := cmd.Flags().GetBool("save-json")
	if err != nil {
		return opts, err
	}
	if saveJSON {
		names = append(names, string(report.FormatJSON))
	}
	opts.Formats, err = parseFormats(names)
	if err != nil {
		return opts, err
	}
	return opts, nil
}

// parseFormats maps names to formats, dropping duplicates.
func parseFormats(names []string) ([]report.Format, error) {
	var formats []report.Format
	seen := make(map[report.Format]bool, len(names))
	for _, name := range names {
		f, err := report.ParseFormat(name)
		if err != nil {
			return nil, err
		}
		if seen[f] {
			continue
		}
		seen[f] = true
		formats = append(formats, f)
	}
	return formats, nil
}

// palette returns the table palette. NO_COLOR disables colors as well.
func (o outputOptions) palette() report.Palette {
	if o.NoColor || os.Getenv("NO_COLOR") != "" {
		return report.NoColorPalette()
	}
	return report.DefaultPalette()
}

// writer returns the report writer for stdout, or nil when nothing
// should be printed.
func (o outputOptions) writer(w io.Writer) report.Writer {
	switch {
	case o.JSON:
		return report.NewJSONWriter(w)
	case o.Markdown:
		return report.NewMarkdownWriter(w)
	case o.Table:
		return report.NewTableWriter(w, o.palette(), report.WithStats(true))
	default:
		return nil
	}
}

// render prints tree to w and saves the requested files. Saved paths are
// reported on status.
func (o outputOptions) render(w, status io.Writer, tree *linktree.Tree) error {
	if writer := o.writer(w); writer != nil {
		if _, err := writer.Write(tree); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
	}
	for _, f := range o.Formats {
		path, err := report.SaveFile(o.OutputDir, tree, f, report.NoColorPalette())
		if err != nil {
			return fmt.Errorf("failed to save %s report: %w", f, err)
		}
		fmt.Fprintf(status, "Saved %s\n", path)
	}
	return nil
}
