package sink

import (
	"encoding/json"
	"fmt"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog/log"
)

// Command actions accepted on <topic>/<screen>/commands.
const (
	ActionReload     = "reload"
	ActionHijriCheck = "hijri-check"
	ActionOverride   = "override"
	ActionReset      = "reset"
)

// Controller is the part of the board remote commands drive.
type Controller interface {
	RequestReload()
	RequestHijriCheck()
}

// Overrides is the operator side of the clock source.
type Overrides interface {
	Set(date, timeOfDay string) error
	Reset()
}

// Command is a remote operator command.
type Command struct {
	Action string `json:"action"`
	Date   string `json:"date,omitempty"`
	Time   string `json:"time,omitempty"`
}

// Commands executes remote operator commands.
type Commands struct {
	Board Controller
	Clock Overrides
}

// Handle decodes and runs one command payload.
func (c *Commands) Handle(payload []byte) error {
	var cmd Command
	if err := json.Unmarshal(payload, &cmd); err != nil {
		return fmt.Errorf("invalid command payload: %w", err)
	}

	switch cmd.Action {
	case ActionReload:
		c.Board.RequestReload()
	case ActionHijriCheck:
		c.Board.RequestHijriCheck()
	case ActionOverride:
		// The clock's change callback reloads the board.
		return c.Clock.Set(cmd.Date, cmd.Time)
	case ActionReset:
		c.Clock.Reset()
	default:
		return fmt.Errorf("unknown command action %q", cmd.Action)
	}
	return nil
}

type subscriber interface {
	Subscribe(topic string, qos byte, callback mqtt.MessageHandler) mqtt.Token
}

// Subscribe listens for commands on <topic>/<screen>/commands.
func (c *Commands) Subscribe(client subscriber, topic, screen string) error {
	t := Topic(topic, screen) + "/commands"
	token := client.Subscribe(t, publishQoS, func(_ mqtt.Client, msg mqtt.Message) {
		if err := c.Handle(msg.Payload()); err != nil {
			log.Warn().Err(err).Str("topic", msg.Topic()).Msg("rejected remote command")
			return
		}
		log.Info().Str("topic", msg.Topic()).Bytes("payload", msg.Payload()).Msg("remote command applied")
	})
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("subscribe to %s timed out", t)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", t, err)
	}
	return nil
}
