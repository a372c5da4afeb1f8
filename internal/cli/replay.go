package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/boddenberg/creditline/internal/infra/observability"
	"github.com/boddenberg/creditline/internal/scenario"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func replayCmd(ctx context.Context) *cobra.Command {
	var logLevel string

	cmd := &cobra.Command{
		Use:   "replay FILE...",
		Short: "Replay scenario files against fresh accounts",
		Long: `Replay one or more YAML scenario files. Each file runs against its own
account; results are printed per step in file order.

Examples:
  creditline replay testdata/scenario_b.yaml
  creditline replay --log-level debug scenarios/*.yaml`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := observability.NewLogger(logLevel)
			defer logger.Sync()
			return replay(ctx, cmd.OutOrStdout(), args, logger)
		},
	}
	cmd.Flags().StringVar(&logLevel, "log-level", "warn", "log level (debug|info|warn|error)")
	return cmd
}

// replay runs every file concurrently and reports in argument order.
// It fails if any file cannot be run or any step fails.
func replay(ctx context.Context, w io.Writer, files []string, logger *zap.Logger) error {
	results := make([]*scenario.Result, len(files))

	g, gCtx := errgroup.WithContext(ctx)
	for i, file := range files {
		i, file := i, file
		g.Go(func() error {
			res, err := replayFile(gCtx, file, logger)
			if err != nil {
				return fmt.Errorf("%s: %w", file, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	failed := 0
	for i, res := range results {
		fmt.Fprintf(w, "== %s (%s)\n", res.Name, files[i])
		for _, step := range res.Steps {
			status := "ok  "
			if !step.Passed {
				status = "FAIL"
			}
			fmt.Fprintf(w, "%s %2d %-7s %s  %s\n", status, step.Index, step.Op, step.Date, stepOutput(step))
		}
		failed += res.Failed()
	}

	if failed > 0 {
		return fmt.Errorf("%d step(s) failed", failed)
	}
	return nil
}

func replayFile(ctx context.Context, file string, logger *zap.Logger) (*scenario.Result, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	s, err := scenario.Load(f)
	if err != nil {
		return nil, err
	}
	return scenario.Run(ctx, s, logger)
}

func stepOutput(step scenario.StepResult) string {
	if !step.Passed {
		return step.Detail
	}
	if step.Err != nil {
		return step.Err.Error()
	}
	return step.Output
}
