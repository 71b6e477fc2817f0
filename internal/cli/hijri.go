package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/smokyabdulrahman/prayer-display/internal/hijri"
	"github.com/smokyabdulrahman/prayer-display/internal/prayer"
)

var flagHijriMode string

func newHijriCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hijri",
		Short: "Show the Hijri date in effect now",
		Long:  "Resolve the Hijri date the display would show. After Maghrib the next day's date is shown.\nCombine with --sim-date and --sim-time to check a manual anchor.",
		RunE:  runHijri,
	}
	cmd.Flags().StringVar(&flagHijriMode, "mode", "", "Resolution mode: api or manual (overrides config)")
	return cmd
}

func runHijri(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx, cmd)
	if err != nil {
		return err
	}
	if flagHijriMode != "" {
		mode, err := hijri.ParseMode(flagHijriMode)
		if err != nil {
			return err
		}
		a.resolver.Mode = mode
	}

	now := a.clock.Now()
	times, err := a.provider.PrayerTimes(ctx, now)
	if err != nil {
		return err
	}
	maghrib, err := prayer.ParseTimeOfDay(times[prayer.Maghrib], now)
	if err != nil {
		return err
	}

	d, err := a.resolver.Resolve(ctx, now, maghrib)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if FlagJSON {
		data, err := json.MarshalIndent(d, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		fmt.Fprintln(out, string(data))
		return nil
	}

	suffix := ""
	if hijri.AfterMaghrib(now, maghrib) {
		suffix = " (after Maghrib " + maghrib.Format(a.timeLayout) + ")"
	}
	fmt.Fprintf(out, "%s · %s%s\n", d.Format(), d.Source, suffix)
	return nil
}
