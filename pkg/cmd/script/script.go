package script

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mpapenbr/ovalrace/pkg/input"
)

func NewScriptCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "script",
		Short: "commands for drive scripts",
	}
	cmd.AddCommand(newCheckCmd())
	return cmd
}

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <file>",
		Short: "validates a drive script",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := input.LoadScript(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "script %q: %d ticks\n", s.Name(), s.Ticks())
			if ignored := s.Ignored(); len(ignored) > 0 {
				fmt.Fprintf(out, "unknown keys ignored: %s\n", strings.Join(ignored, ", "))
			}
			return nil
		},
	}
}
