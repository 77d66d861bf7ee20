package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/relaysync/internal/checkpoint"
)

// NewCheckpointCommand creates the checkpoint command group.
func NewCheckpointCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "checkpoint",
		Short: "Inspect and edit shard checkpoints",
	}
	cmd.AddCommand(newCheckpointGetCommand(rootOpts))
	cmd.AddCommand(newCheckpointSetCommand(rootOpts))
	cmd.AddCommand(newCheckpointListCommand(rootOpts))
	return cmd
}

// checkpointTable renders checkpoints as an aligned table in text mode.
type checkpointTable []checkpoint.ShardCheckpoint

func (t checkpointTable) Text(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SHARD\tLAST_CREATED_AT\tLAST_EVENT_ID\tCURSOR")
	for _, cp := range t {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", cp.ShardID, uint32(cp.LastCreatedAt), deref(cp.LastEventID), deref(cp.Cursor))
	}
	return tw.Flush()
}

func deref(s *string) string {
	if s == nil {
		return "-"
	}
	return *s
}

func newCheckpointGetCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "get <shard>",
		Short:         "Show one shard's checkpoint",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			formatter := rootOpts.formatter(cmd)
			st, err := rootOpts.openStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close()

			cp, ok, err := checkpoint.NewManager(st, checkpoint.WithLogger(rootOpts.Logger)).Get(ctx, checkpoint.ShardID(args[0]))
			if err != nil {
				return outputFailure(formatter, ExitCommandError, CodeStore, err, nil)
			}
			if !ok {
				return outputFailure(formatter, ExitFailure, CodeNotFound, fmt.Errorf("no checkpoint for shard %q", args[0]), nil)
			}
			if formatter.Format == "json" {
				return formatter.Success(cp)
			}
			return formatter.Success(checkpointTable{cp})
		},
	}
}

type checkpointSetOptions struct {
	*RootOptions
	CreatedAt string
	EventID   string
	Cursor    string
}

func newCheckpointSetCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &checkpointSetOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "set <shard>",
		Short: "Replace one shard's checkpoint",
		Long: `Replace one shard's checkpoint.

--created-at is in epoch seconds. Millisecond values are rejected rather
than truncated, since a watermark in the far future would silently skip
every event on the next fetch.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			formatter := opts.formatter(cmd)

			secs, err := checkpoint.ParseEpochSeconds(opts.CreatedAt)
			if err != nil {
				return outputFailure(formatter, ExitCommandError, CodeInput, fmt.Errorf("--created-at: %w", err), nil)
			}
			cp := checkpoint.Watermark{
				CreatedAt: secs,
				EventID:   opts.EventID,
				Cursor:    opts.Cursor,
			}.Checkpoint(checkpoint.ShardID(args[0]))

			st, err := opts.openStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close()

			if err := checkpoint.NewManager(st, checkpoint.WithLogger(opts.Logger)).Upsert(ctx, cp); err != nil {
				return outputFailure(formatter, ExitCommandError, CodeStore, err, nil)
			}
			if formatter.Format == "json" {
				return formatter.Success(cp)
			}
			return formatter.Success(checkpointTable{cp})
		},
	}

	cmd.Flags().StringVar(&opts.CreatedAt, "created-at", "", "watermark timestamp in epoch seconds (required)")
	_ = cmd.MarkFlagRequired("created-at")
	cmd.Flags().StringVar(&opts.EventID, "event-id", "", "id of the last event at the watermark")
	cmd.Flags().StringVar(&opts.Cursor, "cursor", "", "opaque relay cursor")

	return cmd
}

func newCheckpointListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "list",
		Short:         "List every shard checkpoint",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			formatter := rootOpts.formatter(cmd)
			st, err := rootOpts.openStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close()

			m := checkpoint.NewManager(st, checkpoint.WithLogger(rootOpts.Logger), checkpoint.WithClock(rootOpts.Now))
			snap, err := m.Snapshot(ctx)
			if err != nil {
				return outputFailure(formatter, ExitCommandError, CodeStore, err, nil)
			}
			if formatter.Format == "json" {
				return formatter.Success(snap)
			}
			return formatter.Success(checkpointTable(snap.Shards))
		},
	}
}
