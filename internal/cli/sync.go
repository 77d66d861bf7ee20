package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/nbd-wtf/go-nostr"
	"github.com/spf13/cobra"

	"github.com/roach88/relaysync/internal/checkpoint"
	"github.com/roach88/relaysync/internal/syncer"
)

// SyncOptions holds flags for the sync command.
type SyncOptions struct {
	*RootOptions
	Events string
	Loop   bool
}

// SyncReport is the result of one sync round.
type SyncReport struct {
	Shards []syncer.ShardResult `json:"shards"`
}

// Text implements Texter.
func (r SyncReport) Text(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SHARD\tFETCHED\tAPPLIED\tSKIPPED\tREJECTED\tWATERMARK")
	for _, s := range r.Shards {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%d\n",
			s.Shard, s.Fetched, s.Summary.Applied, s.Summary.Skipped, s.Summary.Rejected,
			uint32(s.Checkpoint.LastCreatedAt))
	}
	return tw.Flush()
}

// NewSyncCommand creates the sync command.
func NewSyncCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SyncOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Run the shard fetch loop over an event dump",
		Long: `Run the shard fetch loop against a JSON Lines dump of relay events.

Each shard configured under sync.shards is fetched from its checkpoint,
ingested and then advanced. Without configured shards a single shard "all"
covers every event. The dump stands in for relays; it is filtered and
paged exactly as a relay answer would be.

Examples:
  relaysync sync --db ./relaysync.db --events dump.jsonl
  relaysync sync --config relaysync.yaml --events dump.jsonl --loop`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Events, "events", "", "JSON Lines relay event dump (required)")
	_ = cmd.MarkFlagRequired("events")
	cmd.Flags().BoolVar(&opts.Loop, "loop", false, "keep syncing every sync.interval until interrupted")

	return cmd
}

func runSync(opts *SyncOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	formatter := opts.formatter(cmd)

	data, err := readInput(cmd.InOrStdin(), opts.Events)
	if err != nil {
		return err
	}
	fetcher := syncer.NewStaticFetcher()
	for i, line := range splitLines(data) {
		var ev nostr.Event
		if err := json.Unmarshal([]byte(line), &ev); err != nil {
			return outputFailure(formatter, ExitCommandError, CodeInput, fmt.Errorf("line %d: %w", i+1, err), nil)
		}
		fetcher.Add(ev)
	}

	st, err := opts.openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	engine, err := newEngine(opts.RootOptions, st)
	if err != nil {
		return err
	}
	manager := checkpoint.NewManager(st, checkpoint.WithLogger(opts.Logger))
	runnerOpts := append(opts.Config.Sync.RunnerOptions(), syncer.WithLogger(opts.Logger))
	runner := syncer.NewRunner(fetcher, engine, manager, runnerOpts...)

	shards := opts.Config.Sync.Shards
	if len(shards) == 0 {
		shards = []syncer.Shard{{ID: "all"}}
	}

	if opts.Loop {
		err := runner.Loop(ctx, shards, time.Duration(opts.Config.Sync.Interval))
		if errors.Is(err, ctx.Err()) {
			return nil
		}
		return outputFailure(formatter, ExitCommandError, CodeStore, err, nil)
	}

	results, err := runner.Run(ctx, shards)
	if err != nil {
		return outputFailure(formatter, ExitCommandError, CodeStore, err, nil)
	}
	return formatter.Success(SyncReport{Shards: results})
}
