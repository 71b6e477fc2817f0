// Package sink holds board presenters that push display state out of the
// process: MQTT for remote screens, Redis for a shared state mirror and
// desktop notifications.
package sink

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog/log"

	"github.com/smokyabdulrahman/prayer-display/internal/board"
	"github.com/smokyabdulrahman/prayer-display/internal/config"
	"github.com/smokyabdulrahman/prayer-display/internal/hijri"
	"github.com/smokyabdulrahman/prayer-display/internal/prayer"
)

const (
	publishQoS     = 1
	publishTimeout = 5 * time.Second
	disconnectWait = 250
)

// DialMQTT connects to the broker configured in cfg. onConnect runs after
// every (re)connect, which is where subscriptions belong.
func DialMQTT(cfg config.MQTTConfig, onConnect func(mqtt.Client)) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.OnConnect = func(c mqtt.Client) {
		log.Info().Str("broker", cfg.Broker).Msg("connected to MQTT broker")
		if onConnect != nil {
			onConnect(c)
		}
	}
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		log.Warn().Err(err).Str("broker", cfg.Broker).Msg("MQTT connection lost")
	}

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(publishTimeout) {
		// ConnectRetry keeps trying in the background.
		log.Warn().Str("broker", cfg.Broker).Msg("MQTT broker not reachable yet, retrying in background")
		return client, nil
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker %s: %w", cfg.Broker, err)
	}
	return client, nil
}

// CloseMQTT disconnects c, allowing in-flight messages a short grace period.
func CloseMQTT(c mqtt.Client) {
	c.Disconnect(disconnectWait)
}

type publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// MQTT publishes board events under <topic>/<screen>/. Messages are
// retained so a screen that (re)connects gets the current state at once.
type MQTT struct {
	board.Nop
	client publisher
	base   string

	mu    sync.Mutex
	label string
}

var _ board.Presenter = (*MQTT)(nil)

// NewMQTT creates an MQTT presenter.
func NewMQTT(client publisher, topic, screen string) *MQTT {
	return &MQTT{client: client, base: Topic(topic, screen)}
}

// Topic joins the base topic and screen id.
func Topic(topic, screen string) string {
	return topic + "/" + screen
}

type hijriMessage struct {
	Date  *hijri.Date `json:"date,omitempty"`
	Error string      `json:"error,omitempty"`
}

type statusMessage struct {
	Notice string `json:"notice,omitempty"`
	Error  string `json:"error,omitempty"`
	Fatal  bool   `json:"fatal"`
}

func (m *MQTT) ScheduleLoaded(s board.Schedule) {
	m.publish("schedule", s)
	m.publish("status", statusMessage{})
}

func (m *MQTT) ActivePrayerChanged(r *prayer.Result) {
	m.publish("highlight", r)
}

// CountdownTicked publishes only when the label text changes.
func (m *MQTT) CountdownTicked(c board.Countdown) {
	m.mu.Lock()
	changed := c.Label.Text != m.label
	m.label = c.Label.Text
	m.mu.Unlock()
	if changed {
		m.publish("countdown", c.Label)
	}
}

func (m *MQTT) HijriDateChanged(d hijri.Date) {
	m.publish("hijri", hijriMessage{Date: &d})
}

func (m *MQTT) HijriDateFailed(err error) {
	m.publish("hijri", hijriMessage{Error: err.Error()})
}

func (m *MQTT) Notice(msg string) {
	m.mu.Lock()
	m.label = ""
	m.mu.Unlock()
	m.publish("status", statusMessage{Notice: msg})
}

func (m *MQTT) Error(err error, fatal bool) {
	m.publish("status", statusMessage{Error: err.Error(), Fatal: fatal})
}

func (m *MQTT) publish(suffix string, v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("topic", suffix).Msg("cannot encode MQTT message")
		return
	}
	topic := m.base + "/" + suffix
	token := m.client.Publish(topic, publishQoS, true, payload)

	// Presenter calls come from the board loop and must not wait on the broker.
	go func() {
		if !token.WaitTimeout(publishTimeout) {
			log.Warn().Str("topic", topic).Msg("MQTT publish timed out")
			return
		}
		if err := token.Error(); err != nil {
			log.Warn().Err(err).Str("topic", topic).Msg("MQTT publish failed")
		}
	}()
}
