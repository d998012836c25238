package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/example/migreview/internal/ctxutil"
	"github.com/example/migreview/internal/wire"
)

var fixCmd = &cobra.Command{
	Use:   "fix",
	Short: "Correct statements and resolve issues",
	Long: `Apply corrections to an open batch. Changes are kept in the local draft
until "migreview batch save" sends them to the migration service.

Statement positions are zero-based, as shown by "migreview batch show".`,
}

var fixEditCmd = &cobra.Command{
	Use:   "edit [batch-id] [index] [text]",
	Short: "Replace the translated text of a statement",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := ctxutil.NewRequestContext(context.Background())
		idx, err := parseIndex(args[1])
		if err != nil {
			return err
		}
		if err := openDraft(ctx, args[0]); err != nil {
			return err
		}
		return wire.ReviewAdapter().Edit(ctx, args[0], idx, args[2])
	},
}

var fixInsertCmd = &cobra.Command{
	Use:   "insert [batch-id] [position] [text]",
	Short: "Insert a new statement",
	Long: `Insert a new statement before the statement at position. A position equal
to the statement count appends.`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := ctxutil.NewRequestContext(context.Background())
		pos, err := parseIndex(args[1])
		if err != nil {
			return err
		}
		if err := openDraft(ctx, args[0]); err != nil {
			return err
		}
		return wire.ReviewAdapter().Insert(ctx, args[0], pos, args[2])
	},
}

var fixDeleteIssueCmd = &cobra.Command{
	Use:   "delete-issue [batch-id] [index] [issue-index]",
	Short: "Clear a statement and delete one of its issues",
	Long: `Clear the translated text of a statement. With an issue index, that issue
is removed as well.`,
	Args: cobra.RangeArgs(2, 3),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := ctxutil.NewRequestContext(context.Background())
		idx, err := parseIndex(args[1])
		if err != nil {
			return err
		}
		var issueIdx *int
		if len(args) == 3 {
			i, err := parseIndex(args[2])
			if err != nil {
				return err
			}
			issueIdx = &i
		}
		if err := openDraft(ctx, args[0]); err != nil {
			return err
		}
		return wire.ReviewAdapter().DeleteIssue(ctx, args[0], idx, issueIdx)
	},
}

var fixSequenceCmd = &cobra.Command{
	Use:   "sequence [batch-id] [index] [sequence]",
	Short: "Resolve one sequence issue through the migration service",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := ctxutil.NewRequestContext(context.Background())
		idx, err := parseIndex(args[1])
		if err != nil {
			return err
		}
		if err := openDraft(ctx, args[0]); err != nil {
			return err
		}
		return wire.ReviewAdapter().FixSequence(ctx, args[0], idx, args[2])
	},
}

var fixSequencesCmd = &cobra.Command{
	Use:   "sequences [batch-id]",
	Short: "Resolve every sequence issue",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := ctxutil.NewRequestContext(context.Background())
		if err := openDraft(ctx, args[0]); err != nil {
			return err
		}
		return wire.ReviewAdapter().FixSequences(ctx, args[0])
	},
}

var fixUnimplementedCmd = &cobra.Command{
	Use:   "unimplemented [batch-id]",
	Short: "Delete every unimplemented issue and clear its statement",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := ctxutil.NewRequestContext(context.Background())
		if err := openDraft(ctx, args[0]); err != nil {
			return err
		}
		return wire.ReviewAdapter().DeleteUnimplemented(ctx, args[0])
	},
}

var fixUserCmd = &cobra.Command{
	Use:   "user [batch-id] [username]",
	Short: "Create and grant a missing user",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := ctxutil.NewRequestContext(context.Background())
		if err := openDraft(ctx, args[0]); err != nil {
			return err
		}
		return wire.ReviewAdapter().AddUser(ctx, args[0], args[1])
	},
}

var fixUsersCmd = &cobra.Command{
	Use:   "users [batch-id]",
	Short: "Create and grant every missing user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := ctxutil.NewRequestContext(context.Background())
		if err := openDraft(ctx, args[0]); err != nil {
			return err
		}
		return wire.ReviewAdapter().AddUsers(ctx, args[0])
	},
}

var fixAllCmd = &cobra.Command{
	Use:   "all [batch-id]",
	Short: "Resolve sequences, unimplemented issues and missing users",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := ctxutil.NewRequestContext(context.Background())
		if err := openDraft(ctx, args[0]); err != nil {
			return err
		}
		return wire.ReviewAdapter().FixAll(ctx, args[0])
	},
}

var fixReplaceCmd = &cobra.Command{
	Use:   "replace [batch-id] [find] [replace]",
	Short: "Find and replace in translated text",
	Long: `Replace text in every statement's translation.

Without --regex the first occurrence per statement is replaced. With --regex
the pattern is a regular expression; write it as /pattern/flags to pass flags
(g replaces every match, i ignores case, m and s as usual).

Examples:
  migreview fix replace 1710931200 SERIAL INT8
  migreview fix replace 1710931200 --regex '/public\.(\w+)/gi' '$1'`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := ctxutil.NewRequestContext(context.Background())
		isRegex, _ := cmd.Flags().GetBool("regex")
		if err := openDraft(ctx, args[0]); err != nil {
			return err
		}
		return wire.ReviewAdapter().Replace(ctx, args[0], args[1], args[2], isRegex)
	},
}

// FixCmd returns the fix command
func FixCmd() *cobra.Command {
	// Add flags
	fixReplaceCmd.Flags().BoolP("regex", "r", false, "Treat find as a regular expression")

	// Add subcommands
	fixCmd.AddCommand(fixEditCmd)
	fixCmd.AddCommand(fixInsertCmd)
	fixCmd.AddCommand(fixDeleteIssueCmd)
	fixCmd.AddCommand(fixSequenceCmd)
	fixCmd.AddCommand(fixSequencesCmd)
	fixCmd.AddCommand(fixUnimplementedCmd)
	fixCmd.AddCommand(fixUserCmd)
	fixCmd.AddCommand(fixUsersCmd)
	fixCmd.AddCommand(fixAllCmd)
	fixCmd.AddCommand(fixReplaceCmd)

	return fixCmd
}
