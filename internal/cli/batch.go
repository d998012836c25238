package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/example/migreview/internal/ctxutil"
	"github.com/example/migreview/internal/wire"
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Open, inspect, save and export migration batches",
	Long: `Work with the translated statements of one import run.

A batch is fetched from the migration service on first open and kept as a
local draft until it is saved or closed.`,
}

var batchOpenCmd = &cobra.Command{
	Use:   "open [batch-id]",
	Short: "Open a batch, resuming the local draft if there is one",
	Long: `Open a batch for review.

If a local draft exists it is resumed, unsaved edits included. Use --revert to
discard the draft and fetch the batch from the migration service again.

Examples:
  migreview batch open 1710931200
  migreview batch open 1710931200 --revert`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := ctxutil.NewRequestContext(context.Background())
		revert, _ := cmd.Flags().GetBool("revert")

		return wire.ReviewAdapter().Open(ctx, args[0], revert)
	},
}

var batchSaveCmd = &cobra.Command{
	Use:   "save [batch-id]",
	Short: "Send the batch to the migration service",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := ctxutil.NewRequestContext(context.Background())
		adapter := wire.ReviewAdapter()
		if err := openDraft(ctx, args[0]); err != nil {
			return err
		}
		return adapter.Save(ctx, args[0])
	},
}

var batchCloseCmd = &cobra.Command{
	Use:   "close [batch-id]",
	Short: "Close a batch and discard its local draft",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := ctxutil.NewRequestContext(context.Background())
		if err := openDraft(ctx, args[0]); err != nil {
			return err
		}
		return wire.ReviewAdapter().Close(ctx, args[0])
	},
}

var batchListCmd = &cobra.Command{
	Use:   "list",
	Short: "List batches with local drafts",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := ctxutil.NewRequestContext(context.Background())
		return wire.ReviewAdapter().List(ctx)
	},
}

var batchShowCmd = &cobra.Command{
	Use:   "show [batch-id]",
	Short: "Show the statements of a batch",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := ctxutil.NewRequestContext(context.Background())
		onlyIssues, _ := cmd.Flags().GetBool("issues")

		if err := openDraft(ctx, args[0]); err != nil {
			return err
		}
		_, err := wire.ReviewAdapter().Show(ctx, args[0], onlyIssues)
		return err
	},
}

var batchSummaryCmd = &cobra.Command{
	Use:   "summary [batch-id]",
	Short: "Show issue counts for a batch",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := ctxutil.NewRequestContext(context.Background())
		if err := openDraft(ctx, args[0]); err != nil {
			return err
		}
		return wire.ReviewAdapter().Summary(ctx, args[0])
	},
}

var batchNextCmd = &cobra.Command{
	Use:   "next [batch-id] [after-index]",
	Short: "Show the next statement that still has issues",
	Long: `Show the next statement with issues after the given position, wrapping
around to the top. Without a position the search starts at the first statement.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := ctxutil.NewRequestContext(context.Background())
		from := -1
		if len(args) == 2 {
			idx, err := parseIndex(args[1])
			if err != nil {
				return err
			}
			from = idx
		}

		if err := openDraft(ctx, args[0]); err != nil {
			return err
		}
		return wire.ReviewAdapter().NextIssue(ctx, args[0], from)
	},
}

var batchExportCmd = &cobra.Command{
	Use:   "export [batch-id]",
	Short: "Export the batch as a SQL script",
	Long: `Render every statement as a commented original followed by its translation.

The script is written to <out>/<batch-id>_export.sql, or to stdout with --out -.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := ctxutil.NewRequestContext(context.Background())
		out, _ := cmd.Flags().GetString("out")

		if err := openDraft(ctx, args[0]); err != nil {
			return err
		}
		_, err := wire.ReviewAdapter().Export(ctx, args[0], out)
		return err
	},
}

// openDraft makes sure the batch is held in memory for this invocation,
// resuming its draft (or fetching it) without printing anything.
func openDraft(ctx context.Context, batchID string) error {
	_, err := wire.ReviewService().OpenBatch(ctx, batchID)
	return err
}

// parseIndex parses a zero-based statement position.
func parseIndex(s string) (int, error) {
	idx, err := strconv.Atoi(s)
	if err != nil || idx < 0 {
		return 0, fmt.Errorf("invalid statement index %q: must be a non-negative integer", s)
	}
	return idx, nil
}

// BatchCmd returns the batch command
func BatchCmd() *cobra.Command {
	// Add flags
	batchOpenCmd.Flags().Bool("revert", false, "Discard local edits and fetch the batch again")
	batchShowCmd.Flags().BoolP("issues", "i", false, "Only show statements with issues")
	batchExportCmd.Flags().StringP("out", "o", ".", "Output directory, or - for stdout")

	// Add subcommands
	batchCmd.AddCommand(batchOpenCmd)
	batchCmd.AddCommand(batchSaveCmd)
	batchCmd.AddCommand(batchCloseCmd)
	batchCmd.AddCommand(batchListCmd)
	batchCmd.AddCommand(batchShowCmd)
	batchCmd.AddCommand(batchSummaryCmd)
	batchCmd.AddCommand(batchNextCmd)
	batchCmd.AddCommand(batchExportCmd)

	return batchCmd
}
