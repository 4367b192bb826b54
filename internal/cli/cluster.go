package cli

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/oho/kmedoids-daemon/internal/config"
	"github.com/oho/kmedoids-daemon/internal/ingest"
	"github.com/oho/kmedoids-daemon/internal/kmedoids"
	"github.com/oho/kmedoids-daemon/internal/pipeline"
)

type clusterOptions struct {
	cfg     config.ClusterConfig
	medoids string
	summary bool
}

func newClusterOptions() *clusterOptions {
	return &clusterOptions{cfg: config.DefaultConfig().Cluster}
}

func (o *clusterOptions) bind(cmd *cobra.Command) {
	f := cmd.Flags()
	f.IntVar(&o.cfg.Restarts, "restarts", o.cfg.Restarts, "independent random restarts; the cheapest converged one wins")
	f.Int64Var(&o.cfg.Seed, "seed", o.cfg.Seed, "random seed (0 picks one from the clock)")
	f.StringVar(&o.cfg.Policy, "policy", o.cfg.Policy, "swap policy: greedy or steepest")
	f.IntVar(&o.cfg.MaxSweeps, "max-sweeps", o.cfg.MaxSweeps, "give up after this many sweeps")
	f.StringVar(&o.medoids, "medoids", "", "comma-separated starting medoids instead of a random pick")
	f.BoolVar(&o.summary, "summary", false, "print total cost and sweep count after the clusters")
}

func clusterCommand() *cobra.Command {
	opts := newClusterOptions()
	cmd := &cobra.Command{
		Use:   "cluster <file> <k>",
		Short: "Cluster a CSV distance matrix and print the clusters",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCluster(cmd, args, opts)
		},
	}
	opts.bind(cmd)
	return cmd
}

func runCluster(cmd *cobra.Command, args []string, opts *clusterOptions) error {
	path := args[0]
	k, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("cluster count %q is not an integer", args[1])
	}

	m, err := ingest.LoadFile(path)
	if err != nil {
		return err
	}

	runner := pipeline.NewRunner(nil, nil, opts.cfg)
	req, err := runner.DefaultRequest(k)
	if err != nil {
		return err
	}
	if opts.medoids != "" {
		req.Initial = strings.Split(opts.medoids, ",")
	}

	out, err := runner.Run(cmd.Context(), m, req)
	if err != nil && !errors.Is(err, kmedoids.ErrDidNotConverge) {
		return err
	}
	if werr := out.Result.WriteClusters(cmd.OutOrStdout()); werr != nil {
		return werr
	}
	if opts.summary {
		fmt.Fprintf(cmd.OutOrStdout(), "Cost: %g\nSweeps: %d\n", out.Result.Cost, out.Result.Sweeps)
	}
	return err
}
