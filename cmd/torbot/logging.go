package main

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	securelog "github.com/nao1215/torbot/internal/log"
)

// errUnknownLogFormat is returned for a --log-format other than text or json.
var errUnknownLogFormat = errors.New("unknown log format: must be text or json")

// newLogger builds the redacting logger selected by --verbose and
// --log-format. Logs go to the command's stderr.
func newLogger(cmd *cobra.Command, opts ...securelog.Option) (*slog.Logger, error) {
	format, err := cmd.Flags().GetString("log-format")
	if err != nil {
		format, err = cmd.Root().PersistentFlags().GetString("log-format")
		if err != nil {
			format = "text"
		}
	}

	verbose := getVerboseFlag(cmd)
	switch format {
	case "text":
		return securelog.NewSecureLogger(cmd.ErrOrStderr(), verbose, opts...), nil
	case "json":
		return securelog.NewSecureJSONLogger(cmd.ErrOrStderr(), verbose, opts...), nil
	default:
		return nil, fmt.Errorf("%w: %q", errUnknownLogFormat, format)
	}
}
