package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/smokyabdulrahman/prayer-display/internal/display"
	"github.com/smokyabdulrahman/prayer-display/internal/prayer"
)

func newTodayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "today",
		Short: "Show today's prayer schedule",
		Long:  "Display today's effective prayers, the highlighted prayer and countdown, and the Hijri date.\nThis is also the default action.",
		RunE:  runToday,
	}
}

func runToday(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx, cmd)
	if err != nil {
		return err
	}

	v, err := a.evaluate(ctx)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if FlagJSON {
		return printTodayJSON(out, a, v)
	}
	printTodayRich(out, a, v)
	return nil
}

// printTodayRich renders the colored terminal output for today's prayer schedule.
func printTodayRich(w io.Writer, a *app, v *dayView) {
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  %s\n", display.Bold("Prayer Times"))
	fmt.Fprintln(w)

	fmt.Fprintf(w, "  %s\n", a.place)
	fmt.Fprintf(w, "  %s\n", v.Now.Location())
	fmt.Fprintf(w, "  %s\n", v.Now.Format("Monday, 02 January 2006"))
	if v.Hijri != nil {
		fmt.Fprintf(w, "  %s\n", display.Cyan(v.Hijri.Format()))
	} else {
		fmt.Fprintf(w, "  %s\n", display.Red(display.HijriErrorMarker))
	}
	if st := a.clock.Status(); st.Simulated() {
		fmt.Fprintf(w, "  %s\n", display.Yellow("["+st.String()+"]"))
	}
	fmt.Fprintln(w)

	fmt.Fprint(w, display.ScheduleTable(v.Schedule, v.Highlight, a.timeLayout))
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  %s\n", display.Label(v.Label))
	fmt.Fprintln(w)
}

// todayJSON is the JSON output structure for the today command.
type todayJSON struct {
	Location  string            `json:"location"`
	Timezone  string            `json:"timezone"`
	Now       string            `json:"now"`
	Clock     string            `json:"clock"`
	Gregorian string            `json:"gregorian"`
	Hijri     *todayJSONHijri   `json:"hijri"`
	Timings   map[string]string `json:"timings"`
	Current   *todayJSONPrayer  `json:"current"`
	Next      *todayJSONPrayer  `json:"next"`
	Label     prayer.Label      `json:"label"`
}

type todayJSONHijri struct {
	Date   string `json:"date,omitempty"`
	Day    int    `json:"day,omitempty"`
	Month  string `json:"month,omitempty"`
	Year   int    `json:"year,omitempty"`
	Source string `json:"source,omitempty"`
	Error  string `json:"error,omitempty"`
}

type todayJSONPrayer struct {
	Prayer    string `json:"prayer"`
	Time      string `json:"time"`
	Phase     string `json:"phase,omitempty"`
	Remaining string `json:"remaining,omitempty"`
}

// printTodayJSON renders structured JSON output.
func printTodayJSON(w io.Writer, a *app, v *dayView) error {
	timings := make(map[string]string, len(v.Schedule.Rows))
	for _, row := range v.Schedule.Rows {
		timings[strings.ToLower(row.Name)] = row.Time
	}

	out := todayJSON{
		Location:  a.place,
		Timezone:  v.Now.Location().String(),
		Now:       v.Now.Format("2006-01-02T15:04:05"),
		Clock:     a.clock.Status().String(),
		Gregorian: v.Now.Format("02 Jan 2006"),
		Timings:   timings,
		Label:     v.Label,
	}

	if v.Hijri != nil {
		out.Hijri = &todayJSONHijri{
			Date:   v.Hijri.Format(),
			Day:    v.Hijri.Day,
			Month:  v.Hijri.Month.Key,
			Year:   v.Hijri.Year,
			Source: string(v.Hijri.Source),
		}
	} else {
		out.Hijri = &todayJSONHijri{Error: v.HijriErr.Error()}
	}

	if v.Highlight != nil && v.Highlight.Kind == prayer.Active {
		out.Current = &todayJSONPrayer{
			Prayer: strings.ToLower(v.Highlight.Prayer.Name),
			Time:   v.Highlight.Prayer.Start.Format(a.timeLayout),
			Phase:  v.Highlight.Phase(),
		}
	}

	if v.Next != nil && v.Next.Kind != prayer.Active {
		out.Next = &todayJSONPrayer{
			Prayer:    strings.ToLower(v.Next.Prayer.Name),
			Time:      v.Next.Prayer.Start.Format(a.timeLayout),
			Remaining: prayer.FormatRemaining(v.Next.Prayer.Start.Sub(v.Now)),
		}
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	fmt.Fprintln(w, string(data))
	return nil
}
