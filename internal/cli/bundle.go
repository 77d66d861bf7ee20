package cli

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/relaysync/internal/bundle"
)

// NewBundleCommand creates the bundle command group.
func NewBundleCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bundle",
		Short: "Build, verify and compare sync bundles",
	}
	cmd.AddCommand(newBundleBuildCommand(rootOpts))
	cmd.AddCommand(newBundleVerifyCommand(rootOpts))
	cmd.AddCommand(newBundleStatusCommand(rootOpts))
	return cmd
}

type bundleBuildOptions struct {
	*RootOptions
	Author   string
	Farm     string
	Profiles bool
	ListSets bool
	Binary   bool
	Output   string
}

func newBundleBuildCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &bundleBuildOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build the bundle for one farm",
		Long: `Build the sync bundle for one farm from the stored revisions.

The bundle lists profiles, the farm, its plots and its member list sets, in
that order. Every event is re-encoded and stamped with the current time.
--profiles and --list-sets default to the sync.bundle configuration.

Examples:
  relaysync bundle build --db ./relaysync.db --author <pubkey> --farm <d-tag>
  relaysync bundle build --author <pubkey> --farm <d-tag> --binary -o farm.bundle`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBundleBuild(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Author, "author", "", "farm owner pubkey (required)")
	_ = cmd.MarkFlagRequired("author")
	cmd.Flags().StringVar(&opts.Farm, "farm", "", "farm d-tag (required)")
	_ = cmd.MarkFlagRequired("farm")
	cmd.Flags().BoolVar(&opts.Profiles, "profiles", false, "include member profiles")
	cmd.Flags().BoolVar(&opts.ListSets, "list-sets", false, "include member list sets")
	cmd.Flags().BoolVar(&opts.Binary, "binary", false, "write the compressed binary form")
	cmd.Flags().StringVarP(&opts.Output, "out", "o", "-", "output file (- for stdout)")

	return cmd
}

func runBundleBuild(opts *bundleBuildOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	formatter := opts.formatter(cmd)

	bopts := opts.Config.Sync.Bundle
	if cmd.Flags().Changed("profiles") {
		bopts.IncludeProfiles = opts.Profiles
	}
	if cmd.Flags().Changed("list-sets") {
		bopts.IncludeListSets = opts.ListSets
	}

	st, err := opts.openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	builder := bundle.NewBuilder(st, bundle.WithClock(opts.Now), bundle.WithLogger(opts.Logger))
	b, err := builder.Build(ctx, bundle.Selector{Author: opts.Author, FarmDTag: opts.Farm}, bopts)
	if err != nil {
		return outputFailure(formatter, bundleExitCode(err), bundleErrorCode(err), err, nil)
	}

	var data []byte
	if opts.Binary {
		data, err = bundle.MarshalBinary(b)
	} else {
		data, err = bundle.Encode(b)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to serialize bundle", err)
	}

	// A JSON bundle on stdout is the command output itself.
	if opts.Output == "" || opts.Output == "-" {
		if !opts.Binary {
			data = append(data, '\n')
		}
		return writeOutput(cmd.OutOrStdout(), opts.Output, data)
	}
	if err := writeOutput(cmd.OutOrStdout(), opts.Output, data); err != nil {
		return err
	}
	return formatter.Success(BundleSummary{Path: opts.Output, Events: len(b.Events), Bytes: len(data)})
}

// BundleSummary describes a bundle written to a file.
type BundleSummary struct {
	Path   string `json:"path"`
	Events int    `json:"events"`
	Bytes  int    `json:"bytes"`
}

func (s BundleSummary) Text(w io.Writer) error {
	_, err := fmt.Fprintf(w, "wrote %d events (%d bytes) to %s\n", s.Events, s.Bytes, s.Path)
	return err
}

func bundleErrorCode(err error) string {
	switch {
	case isVersionError(err):
		return CodeVersion
	case errors.Is(err, bundle.ErrFarmNotFound):
		return CodeNotFound
	case errors.Is(err, bundle.ErrInvalidSelector):
		return CodeInput
	default:
		return CodeStore
	}
}

func isVersionError(err error) bool {
	var ve *bundle.VersionError
	return errors.As(err, &ve)
}

func bundleExitCode(err error) int {
	if bundleErrorCode(err) == CodeNotFound {
		return ExitFailure
	}
	return ExitCommandError
}

// loadBundle reads either bundle form. JSON bundles start with '{'.
func loadBundle(data []byte) (bundle.SyncBundle, error) {
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '{' {
		return bundle.Decode(trimmed)
	}
	return bundle.UnmarshalBinary(data)
}

// BundleInfo is the result of bundle verify.
type BundleInfo struct {
	Version uint32         `json:"version"`
	Events  int            `json:"events"`
	Kinds   map[uint32]int `json:"kinds"`
}

func (i BundleInfo) Text(w io.Writer) error {
	_, err := fmt.Fprintf(w, "bundle v%d: %d events, valid\n", i.Version, i.Events)
	return err
}

func newBundleVerifyCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "verify <file>",
		Short: "Check a bundle's version, digest and events",
		Long: `Check a bundle file in either form.

Exit codes:
  0 - The bundle is valid
  1 - Unsupported version, digest mismatch or an invalid event
  2 - Command error (unreadable file)`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := rootOpts.formatter(cmd)
			data, err := readInput(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}
			b, err := loadBundle(data)
			if err != nil {
				code := CodeCheck
				if isVersionError(err) {
					code = CodeVersion
				}
				return outputFailure(formatter, ExitFailure, code, err, nil)
			}
			info := BundleInfo{Version: b.Version, Events: len(b.Events), Kinds: map[uint32]int{}}
			for _, ev := range b.Events {
				info.Kinds[ev.Kind]++
			}
			return formatter.Success(info)
		},
	}
}

type bundleStatusResult struct {
	bundle.SyncStatus
}

func (r bundleStatusResult) Text(w io.Writer) error {
	fmt.Fprintf(w, "%d of %d keys in sync\n", r.InSync, r.Expected)
	for _, k := range r.Missing {
		fmt.Fprintf(w, "missing  %s\n", k)
	}
	for _, k := range r.Differs {
		fmt.Fprintf(w, "differs  %s\n", k)
	}
	return nil
}

func newBundleStatusCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status <file>",
		Short: "Compare a bundle against the store",
		Long: `Compare a bundle against the store.

Exit codes:
  0 - Every keyed event in the bundle is stored unchanged
  1 - Some events are missing or differ
  2 - Command error (unreadable or invalid bundle, store error)`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			formatter := rootOpts.formatter(cmd)
			data, err := readInput(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}
			b, err := loadBundle(data)
			if err != nil {
				return outputFailure(formatter, ExitCommandError, CodeInput, err, nil)
			}

			st, err := rootOpts.openStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close()

			status, err := bundle.Status(ctx, b, st)
			if err != nil {
				return outputFailure(formatter, ExitCommandError, CodeStore, err, nil)
			}
			result := bundleStatusResult{status}
			if !status.Complete() {
				msg := fmt.Sprintf("%d missing, %d differ", len(status.Missing), len(status.Differs))
				_ = formatter.Failure(CodeCheck, msg, result)
				return NewExitError(ExitFailure, msg)
			}
			return formatter.Success(result)
		},
	}
}
