package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/oho/kmedoids-daemon/internal/ingest"
	"github.com/oho/kmedoids-daemon/internal/mathutil"
)

func regressCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "regress <file>",
		Short: "Fit a linear model to a CSV table; the last column is the response",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cols, err := ingest.ReadColumnsFile(args[0])
			if err != nil {
				return err
			}
			n := len(cols.Names)
			if n < 2 {
				return fmt.Errorf("need at least one term column and a response column, got %d columns", n)
			}

			var lm mathutil.LinearModel
			if err := lm.Fit(cols.Series[:n-1], cols.Series[n-1]); err != nil {
				return fmt.Errorf("fit %s: %w", cols.Names[n-1], err)
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "intercept: %g\n", lm.Intercept)
			for i, c := range lm.Coeffs {
				fmt.Fprintf(w, "%s: %g\n", cols.Names[i], c)
			}
			return nil
		},
	}
}
