// Package cli holds the kmedoids-daemon command tree.
package cli

import (
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"
)

// NewRootCommand builds the command tree. Invoked with two positional
// arguments the root command behaves like "cluster <file> <k>".
func NewRootCommand() *cobra.Command {
	var logLevel string
	opts := newClusterOptions()

	cmd := &cobra.Command{
		Use:          "kmedoids-daemon <file> <k>",
		Short:        "k-medoids clustering over a labeled distance matrix",
		Long:         "Cluster the entities of a CSV distance matrix around k medoids, or serve clustering over HTTP.",
		Args:         cobra.ExactArgs(2),
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.ErrOrStderr()
			if cmd.Name() == "serve" {
				w = cmd.OutOrStdout()
			}
			return setupLogging(w, logLevel, cmd.Name() == "serve")
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCluster(cmd, args, opts)
		},
	}

	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	opts.bind(cmd)

	cmd.AddCommand(clusterCommand(), regressCommand(), serveCommand())
	return cmd
}

// Execute runs the command tree against os.Args.
func Execute() error {
	return NewRootCommand().Execute()
}

func setupLogging(w io.Writer, level string, daemon bool) error {
	lvl := slog.LevelWarn
	if daemon {
		lvl = slog.LevelInfo
	}
	if level != "" {
		if err := lvl.UnmarshalText([]byte(strings.ToUpper(level))); err != nil {
			return err
		}
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})))
	return nil
}
