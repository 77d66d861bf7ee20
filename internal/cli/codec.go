package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/relaysync/internal/checkpoint"
	"github.com/roach88/relaysync/internal/codec"
	"github.com/roach88/relaysync/internal/wire"
)

// EncodeOptions holds flags for the encode command.
type EncodeOptions struct {
	*RootOptions
	Input     string
	Author    string
	CreatedAt uint32
}

// NewEncodeCommand creates the encode command.
func NewEncodeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &EncodeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "encode",
		Short: "Encode a typed record into wire parts",
		Long: `Encode a typed record into its canonical {kind, content, tags} parts.

The input is a record envelope: {"type": "<record type>", "record": {...}}.
With --author the output is an event draft ready for a signer, stamped
with --created-at or the current time.

Examples:
  relaysync encode --in reaction.json
  echo '{"type":"post","record":{"content":"hi"}}' | relaysync encode --author <pubkey>`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEncode(opts, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Input, "in", "i", "-", "record envelope file (- for stdin)")
	cmd.Flags().StringVar(&opts.Author, "author", "", "author pubkey; emit a draft instead of parts")
	cmd.Flags().Uint32Var(&opts.CreatedAt, "created-at", 0, "draft timestamp in epoch seconds (default now)")

	return cmd
}

func runEncode(opts *EncodeOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	data, err := readInput(cmd.InOrStdin(), opts.Input)
	if err != nil {
		return err
	}
	rec, err := codec.UnmarshalRecord(data)
	if err != nil {
		return outputFailure(formatter, ExitCommandError, CodeInput, err, nil)
	}
	parts, err := codec.Encode(rec)
	if err != nil {
		return outputFailure(formatter, ExitFailure, CodeCodec, err, codecDetails(err))
	}

	if opts.Author == "" {
		return formatter.Success(compactJSON{parts})
	}
	createdAt := opts.CreatedAt
	if !cmd.Flags().Changed("created-at") {
		createdAt = uint32(checkpoint.FromTime(opts.Now()))
	}
	return formatter.Success(compactJSON{parts.Draft(opts.Author, createdAt)})
}

// DecodeOptions holds flags for the decode command.
type DecodeOptions struct {
	*RootOptions
	Input string
}

// NewDecodeCommand creates the decode command.
func NewDecodeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DecodeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "decode",
		Short: "Decode an event into its typed record",
		Long: `Decode an event into its typed record envelope.

The input is any JSON object with kind, content and tags fields: wire
parts, a draft or a relay event. Tags need not be canonical.

Exit codes:
  0 - Decoded
  1 - The event does not match its kind's grammar
  2 - Command error (unreadable input, malformed JSON)`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDecode(opts, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Input, "in", "i", "-", "event file (- for stdin)")

	return cmd
}

func runDecode(opts *DecodeOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	data, err := readInput(cmd.InOrStdin(), opts.Input)
	if err != nil {
		return err
	}
	var parts wire.Parts
	if err := json.Unmarshal(data, &parts); err != nil {
		return outputFailure(formatter, ExitCommandError, CodeInput, fmt.Errorf("invalid event JSON: %w", err), nil)
	}
	rec, err := codec.DecodeParts(parts)
	if err != nil {
		return outputFailure(formatter, ExitFailure, CodeCodec, err, codecDetails(err))
	}
	env, err := codec.MarshalRecord(rec)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to encode record", err)
	}
	return formatter.Success(compactJSON{json.RawMessage(env)})
}

// compactJSON is rendered as itself in JSON mode and as one compact JSON
// line in text mode.
type compactJSON struct {
	v interface{}
}

func (c compactJSON) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.v)
}

func (c compactJSON) Text(w io.Writer) error {
	data, err := json.Marshal(c.v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "%s\n", data)
	return err
}

// codecDetails extracts the structured fields of codec errors.
func codecDetails(err error) map[string]interface{} {
	var pe *codec.ParseError
	if errors.As(err, &pe) {
		d := map[string]interface{}{"code": string(pe.Code), "tag": pe.Tag}
		if pe.Expected != "" {
			d["expected"] = pe.Expected
			d["got"] = pe.Got
		}
		return d
	}
	var ee *codec.EncodeError
	if errors.As(err, &ee) {
		return map[string]interface{}{"code": string(ee.Code), "field": ee.Field}
	}
	return nil
}

// outputFailure reports err through the formatter and returns the matching
// exit error.
func outputFailure(formatter *OutputFormatter, exitCode int, code string, err error, details interface{}) error {
	_ = formatter.Error(code, err.Error(), details)
	return WrapExitError(exitCode, code, err)
}
