package sink

import (
	"github.com/gen2brain/beeep"
	"github.com/rs/zerolog/log"

	"github.com/smokyabdulrahman/prayer-display/internal/board"
	"github.com/smokyabdulrahman/prayer-display/internal/prayer"
)

// Notifier raises a desktop notification when a prayer enters its Adhan
// phase.
type Notifier struct {
	board.Nop
	notify     func(title, message string) error
	timeLayout string
	last       *prayer.Result
}

var _ board.Presenter = (*Notifier)(nil)

// NewNotifier creates a Notifier using the desktop notification service.
// timeLayout formats the prayer time in the message body.
func NewNotifier(timeLayout string) *Notifier {
	return &Notifier{
		notify: func(title, message string) error {
			return beeep.Notify(title, message, "")
		},
		timeLayout: timeLayout,
	}
}

func (n *Notifier) ActivePrayerChanged(r *prayer.Result) {
	if r == nil || r.Kind != prayer.Active || !r.InAdhan {
		return
	}
	// A reload re-reports the same Adhan.
	if n.last != nil && n.last.Prayer.Name == r.Prayer.Name && n.last.Prayer.Start.Equal(r.Prayer.Start) {
		return
	}
	n.last = r

	title := "Adhan · " + r.Prayer.Label()
	msg := r.Prayer.Label() + " at " + r.Prayer.Start.Format(n.timeLayout)
	// beeep shells out on some platforms.
	go func() {
		if err := n.notify(title, msg); err != nil {
			log.Warn().Err(err).Str("prayer", r.Prayer.Name).Msg("desktop notification failed")
		}
	}()
}
