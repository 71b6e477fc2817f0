package cli

import (
	"os"
	"os/signal"
	"syscall"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/smokyabdulrahman/prayer-display/internal/board"
	"github.com/smokyabdulrahman/prayer-display/internal/display"
	"github.com/smokyabdulrahman/prayer-display/internal/httpapi"
	"github.com/smokyabdulrahman/prayer-display/internal/sink"
)

// loadTomorrowEnv hands the post-Maghrib "load tomorrow" flag to the
// re-executed process.
const loadTomorrowEnv = "PRAYER_DISPLAY_LOAD_TOMORROW"

var flagHeadless bool

func newDisplayCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "display",
		Short: "Run the live prayer display",
		Long: "Run the full-screen display: the clock, today's schedule with the Adhan/Iqama highlight, the countdown and the Hijri date.\n" +
			"Reloads at midnight and restarts itself 10 minutes after Maghrib.\n" +
			"Optional outputs (config): http_addr for the operator API, mqtt.broker, redis.address and notify.",
		RunE: runDisplay,
	}
	cmd.Flags().BoolVar(&flagHeadless, "headless", false, "Do not draw on the terminal (outputs only)")
	return cmd
}

func runDisplay(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cmd)
	if err != nil {
		return err
	}
	opts, err := a.boardOptions()
	if err != nil {
		return err
	}
	if os.Getenv(loadTomorrowEnv) == "1" {
		opts.LoadTomorrow = true
		_ = os.Unsetenv(loadTomorrowEnv)
	}
	opts.Restart = restartProcess

	g, ctx := errgroup.WithContext(ctx)

	// The presenter list is completed below; the board reads it only once Run starts.
	var presenters board.Presenters
	b := board.New(a.clock, a.provider, a.resolver, &presenters, opts)

	if !flagHeadless {
		term := display.NewTerminal(cmd.OutOrStdout(), a.cfg.TimeFormat)
		term.Clear = display.Enabled()
		presenters = append(presenters, term)
	}

	if a.cfg.MQTT.Broker != "" {
		mc := a.cfg.MQTT
		cmds := &sink.Commands{Board: b, Clock: a.clock}
		client, err := sink.DialMQTT(mc, func(c mqtt.Client) {
			if err := cmds.Subscribe(c, mc.Topic, a.cfg.Screen); err != nil {
				log.Warn().Err(err).Msg("remote commands unavailable")
			}
		})
		if err != nil {
			return err
		}
		defer sink.CloseMQTT(client)
		presenters = append(presenters, sink.NewMQTT(client, mc.Topic, a.cfg.Screen))
	}

	if a.cfg.Redis.Address != "" {
		rdb := sink.NewRedisClient(a.cfg.Redis)
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Warn().Err(err).Str("addr", a.cfg.Redis.Address).Msg("redis not reachable, state mirror will keep retrying")
		}
		mirror := sink.NewRedis(rdb, a.cfg.Redis.Prefix, a.cfg.Screen)
		presenters = append(presenters, mirror)
		g.Go(func() error {
			mirror.Run(ctx)
			return nil
		})
	}

	if a.cfg.Notify {
		presenters = append(presenters, sink.NewNotifier(a.timeLayout))
	}

	if a.cfg.HTTPAddr != "" {
		router := httpapi.NewRouter(b, a.clock)
		g.Go(func() error { return httpapi.Serve(ctx, a.cfg.HTTPAddr, router) })
	}

	g.Go(func() error {
		watchSignals(ctx, b)
		return nil
	})
	g.Go(func() error { return b.Run(ctx) })

	log.Info().Str("place", a.place).Str("screen", a.cfg.Screen).Msg("display started")
	return g.Wait()
}
