package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/relaysync/internal/dtag"
)

// NewDTagCommand creates the dtag command group.
func NewDTagCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dtag",
		Short: "Mint and check addressable d-tags",
	}
	cmd.AddCommand(newDTagNewCommand(rootOpts))
	cmd.AddCommand(newDTagCheckCommand(rootOpts))
	return cmd
}

// lines renders one value per line in text mode.
type lines []string

func (l lines) Text(w io.Writer) error {
	_, err := fmt.Fprintln(w, strings.Join(l, "\n"))
	return err
}

func newDTagNewCommand(rootOpts *RootOptions) *cobra.Command {
	var count int
	cmd := &cobra.Command{
		Use:           "new",
		Short:         "Mint fresh d-tags from UUIDv7s",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if count < 1 {
				return NewExitError(ExitCommandError, "--count must be at least 1")
			}
			out := make(lines, count)
			for i := range out {
				out[i] = rootOpts.DTags.New()
			}
			return rootOpts.formatter(cmd).Success(out)
		},
	}
	cmd.Flags().IntVarP(&count, "count", "n", 1, "number of d-tags")
	return cmd
}

// DTagCheck is the result of dtag check.
type DTagCheck struct {
	Value string `json:"value"`
	Valid bool   `json:"valid"`
}

func (c DTagCheck) Text(w io.Writer) error {
	_, err := fmt.Fprintf(w, "%s: valid\n", c.Value)
	return err
}

func newDTagCheckCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "check <value>",
		Short:         "Check that a value is a well-formed d-tag",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := rootOpts.formatter(cmd)
			if err := dtag.Validate(args[0]); err != nil {
				return outputFailure(formatter, ExitFailure, CodeCheck, err, map[string]interface{}{"value": args[0]})
			}
			return formatter.Success(DTagCheck{Value: args[0], Valid: true})
		},
	}
}
