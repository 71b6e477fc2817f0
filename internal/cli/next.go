package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/smokyabdulrahman/prayer-display/internal/prayer"
)

var flagFormat string

func newNextCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "next",
		Short: "Show the next prayer with countdown",
		Long:  "Print the prayer the display counts down to, for status bars.\nDuring a prayer's Adhan or Iqama window that prayer is shown.",
		RunE:  runNext,
	}

	cmd.Flags().StringVar(&flagFormat, "format", prayer.FormatFull, "Display format: time-remaining, next-prayer-time, name-and-time, name-and-remaining, short-name-and-time, short-name-and-remaining, full, label, or a custom Go template")

	return cmd
}

// formatLabel prints the board's countdown label instead of a format mode.
const formatLabel = "label"

func runNext(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx, cmd)
	if err != nil {
		return err
	}

	v, err := a.evaluate(ctx)
	if err != nil {
		return err
	}
	if v.Next == nil {
		return fmt.Errorf("could not determine next prayer")
	}

	out := cmd.OutOrStdout()
	if flagFormat == formatLabel {
		fmt.Fprint(out, v.Label.Text)
		return nil
	}
	fmt.Fprint(out, prayer.FormatOutput(v.Next.Prayer, v.Now, flagFormat, a.timeLayout))
	return nil
}
