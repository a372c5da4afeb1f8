// Package cli wires the creditline commands.
package cli

import (
	"context"

	"github.com/spf13/cobra"
)

// NewRootCommand builds the command tree. ctx is cancelled on shutdown
// signals by the caller.
func NewRootCommand(ctx context.Context) *cobra.Command {
	root := &cobra.Command{
		Use:           "creditline",
		Short:         "Credit card account with daily interest accrual",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(serveCmd(ctx))
	root.AddCommand(replayCmd(ctx))
	root.AddCommand(tokenCmd())
	return root
}

// Execute runs the root command with the process arguments.
func Execute(ctx context.Context) error {
	return NewRootCommand(ctx).Execute()
}
