package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/nbd-wtf/go-nostr"
	"github.com/spf13/cobra"

	"github.com/roach88/relaysync/internal/ingest"
	"github.com/roach88/relaysync/internal/store"
	"github.com/roach88/relaysync/internal/wire"
)

// IngestOptions holds flags for the ingest command.
type IngestOptions struct {
	*RootOptions
	Input string
}

// IngestLine is the outcome of one input event.
type IngestLine struct {
	Line    int    `json:"line"`
	EventID string `json:"event_id"`
	Key     string `json:"key,omitempty"`
	Outcome string `json:"outcome,omitempty"`
	Reason  string `json:"reason,omitempty"`
	Error   string `json:"error,omitempty"`
}

// IngestReport is the result of the ingest command.
type IngestReport struct {
	Events  []IngestLine   `json:"events"`
	Summary ingest.Summary `json:"summary"`
}

// Text implements Texter.
func (r IngestReport) Text(w io.Writer) error {
	for _, l := range r.Events {
		if l.Error != "" {
			fmt.Fprintf(w, "line %d: rejected %s: %s\n", l.Line, l.EventID, l.Error)
			continue
		}
		fmt.Fprintf(w, "line %d: %s (%s) %s\n", l.Line, l.Outcome, l.Reason, l.Key)
	}
	_, err := fmt.Fprintf(w, "%d applied, %d skipped, %d rejected\n",
		r.Summary.Applied, r.Summary.Skipped, r.Summary.Rejected)
	return err
}

// NewIngestCommand creates the ingest command.
func NewIngestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &IngestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Apply relay events to the store",
		Long: `Apply relay events to the store with last-write-wins semantics.

The input is JSON Lines, one relay event per line in the relay wire shape
({"id", "pubkey", "created_at", "kind", "tags", "content", "sig"}).
Signatures are not verified; events are trusted as delivered.

Examples:
  relaysync ingest --db ./relaysync.db --in events.jsonl
  cat events.jsonl | relaysync ingest --store memory --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngest(opts, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Input, "in", "i", "-", "JSON Lines event file (- for stdin)")

	return cmd
}

func runIngest(opts *IngestOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	formatter := opts.formatter(cmd)

	data, err := readInput(cmd.InOrStdin(), opts.Input)
	if err != nil {
		return err
	}
	lines := splitLines(data)

	report := IngestReport{Events: make([]IngestLine, 0, len(lines))}
	var events []wire.RawEvent
	var lineNos []int
	for i, line := range lines {
		var ev nostr.Event
		if err := json.Unmarshal([]byte(line), &ev); err != nil {
			return outputFailure(formatter, ExitCommandError, CodeInput, fmt.Errorf("line %d: %w", i+1, err), nil)
		}
		raw, err := wire.FromNostr(ev)
		if err != nil {
			report.Events = append(report.Events, IngestLine{Line: i + 1, EventID: ev.ID, Error: err.Error()})
			report.Summary.Rejected++
			continue
		}
		events = append(events, raw)
		lineNos = append(lineNos, i+1)
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
	results, err := engine.IngestBatch(ctx, events)
	if err != nil {
		return outputFailure(formatter, ExitCommandError, CodeStore, err, nil)
	}

	for i, r := range results {
		l := IngestLine{Line: lineNos[i], EventID: r.EventID, Key: r.Key.String()}
		if r.Err != nil {
			l.Error = r.Err.Error()
		} else {
			l.Outcome = string(r.Outcome)
			l.Reason = string(r.Reason)
		}
		report.Events = append(report.Events, l)
	}
	sum := ingest.Summarize(results)
	report.Summary.Applied += sum.Applied
	report.Summary.Skipped += sum.Skipped
	report.Summary.Rejected += sum.Rejected

	opts.Logger.Debug("ingest finished",
		"applied", report.Summary.Applied,
		"skipped", report.Summary.Skipped,
		"rejected", report.Summary.Rejected,
	)
	return formatter.Success(report)
}

func newEngine(opts *RootOptions, st store.Backend) (*ingest.Engine, error) {
	engineOpts := append(opts.Config.Ingest.EngineOptions(), ingest.WithLogger(opts.Logger))
	engine, err := ingest.NewEngine(st, engineOpts...)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to create engine", err)
	}
	return engine, nil
}
