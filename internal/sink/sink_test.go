package sink

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smokyabdulrahman/prayer-display/internal/board"
	"github.com/smokyabdulrahman/prayer-display/internal/clock"
	"github.com/smokyabdulrahman/prayer-display/internal/hijri"
	"github.com/smokyabdulrahman/prayer-display/internal/prayer"
)

var asrStart = time.Date(2026, time.October, 16, 15, 45, 0, 0, time.UTC)

func asr(inAdhan bool) *prayer.Result {
	def := prayer.Definition{Name: prayer.Asr, AdhanMinutes: 2, IqamaMinutes: 10}
	return &prayer.Result{Kind: prayer.Active, Prayer: prayer.NewInstant(def, asrStart), InAdhan: inAdhan}
}

func label(text string) board.Countdown {
	return board.Countdown{Label: prayer.Label{Text: text, Tone: prayer.ToneCountdown}}
}

// ---------------------------------------------------------------------------
// MQTT fakes
// ---------------------------------------------------------------------------

type fakeToken struct{ err error }

func (t fakeToken) Wait() bool                     { return true }
func (t fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t fakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
func (t fakeToken) Error() error { return t.err }

type published struct {
	topic    string
	retained bool
	payload  []byte
}

type fakeBroker struct {
	mu       sync.Mutex
	messages []published
	handlers map[string]mqtt.MessageHandler
}

func (b *fakeBroker) Publish(topic string, _ byte, retained bool, payload interface{}) mqtt.Token {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.messages = append(b.messages, published{topic: topic, retained: retained, payload: payload.([]byte)})
	return fakeToken{}
}

func (b *fakeBroker) Subscribe(topic string, _ byte, h mqtt.MessageHandler) mqtt.Token {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.handlers == nil {
		b.handlers = map[string]mqtt.MessageHandler{}
	}
	b.handlers[topic] = h
	return fakeToken{}
}

func (b *fakeBroker) topics() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []string
	for _, m := range b.messages {
		out = append(out, m.topic)
	}
	return out
}

func (b *fakeBroker) last(topic string) []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := len(b.messages) - 1; i >= 0; i-- {
		if b.messages[i].topic == topic {
			return b.messages[i].payload
		}
	}
	return nil
}

type fakeMessage struct {
	topic   string
	payload []byte
}

func (m fakeMessage) Duplicate() bool   { return false }
func (m fakeMessage) Qos() byte         { return 1 }
func (m fakeMessage) Retained() bool    { return false }
func (m fakeMessage) Topic() string     { return m.topic }
func (m fakeMessage) MessageID() uint16 { return 1 }
func (m fakeMessage) Payload() []byte   { return m.payload }
func (m fakeMessage) Ack()              {}

// ---------------------------------------------------------------------------
// MQTT presenter
// ---------------------------------------------------------------------------

func TestMQTT_PublishesRetainedUnderScreen(t *testing.T) {
	b := &fakeBroker{}
	m := NewMQTT(b, "mosque", "hall")

	m.ScheduleLoaded(board.Schedule{Times: prayer.Times{prayer.Asr: "15:45"}})
	m.ActivePrayerChanged(asr(true))
	m.HijriDateChanged(hijri.Date{Day: 14, Month: hijri.Month{Number: 4, Key: "Rabīʿ al-Thānī"}, Year: 1448})

	assert.Equal(t, []string{
		"mosque/hall/schedule",
		"mosque/hall/status",
		"mosque/hall/highlight",
		"mosque/hall/hijri",
	}, b.topics())
	for _, msg := range b.messages {
		assert.True(t, msg.retained, msg.topic)
	}

	var got prayer.Result
	require.NoError(t, json.Unmarshal(b.last("mosque/hall/highlight"), &got))
	assert.Equal(t, prayer.Asr, got.Prayer.Name)
	assert.True(t, got.InAdhan)

	assert.JSONEq(t, `{"date":{"day":14,"month":{"number":4,"key":"Rabīʿ al-Thānī","name":""},"year":1448,"source":"","confidence":""}}`,
		string(b.last("mosque/hall/hijri")))
}

func TestMQTT_CountdownOnlyOnChange(t *testing.T) {
	b := &fakeBroker{}
	m := NewMQTT(b, "t", "s")

	m.CountdownTicked(label("Maghrib in 2h 20m"))
	m.CountdownTicked(label("Maghrib in 2h 20m"))
	m.CountdownTicked(label("Maghrib in 2h 19m"))

	assert.Len(t, b.topics(), 2)
	assert.Contains(t, string(b.last("t/s/countdown")), "2h 19m")

	// A new load cycle republishes even an unchanged label.
	m.Notice("Loading prayer times...")
	m.CountdownTicked(label("Maghrib in 2h 19m"))
	assert.Len(t, b.topics(), 4)
}

func TestMQTT_Errors(t *testing.T) {
	b := &fakeBroker{}
	m := NewMQTT(b, "t", "s")

	m.Error(board.ErrLoadFailed, true)
	m.HijriDateFailed(errors.New("gToH: 500"))

	assert.JSONEq(t, `{"error":"failed to load prayer times","fatal":true}`, string(b.last("t/s/status")))
	assert.JSONEq(t, `{"error":"gToH: 500"}`, string(b.last("t/s/hijri")))
}

// ---------------------------------------------------------------------------
// Commands
// ---------------------------------------------------------------------------

type fakeController struct {
	reloads, checks int
}

func (c *fakeController) RequestReload()     { c.reloads++ }
func (c *fakeController) RequestHijriCheck() { c.checks++ }

func TestCommands_Handle(t *testing.T) {
	ctl := &fakeController{}
	src := clock.New(clockwork.NewFakeClock(), time.UTC)
	cmds := &Commands{Board: ctl, Clock: src}

	require.NoError(t, cmds.Handle([]byte(`{"action":"reload"}`)))
	require.NoError(t, cmds.Handle([]byte(`{"action":"hijri-check"}`)))
	assert.Equal(t, 1, ctl.reloads)
	assert.Equal(t, 1, ctl.checks)

	require.NoError(t, cmds.Handle([]byte(`{"action":"override","date":"2025-03-10"}`)))
	assert.Equal(t, "2025-03-10", src.Status().Date)

	// Invalid input leaves the override in place.
	var verr *clock.ValidationError
	require.ErrorAs(t, cmds.Handle([]byte(`{"action":"override","date":"10.03.2025"}`)), &verr)
	assert.Equal(t, "2025-03-10", src.Status().Date)

	require.NoError(t, cmds.Handle([]byte(`{"action":"reset"}`)))
	assert.False(t, src.Status().Simulated())

	assert.Error(t, cmds.Handle([]byte(`{"action":"reboot"}`)))
	assert.Error(t, cmds.Handle([]byte(`not json`)))
}

func TestCommands_Subscribe(t *testing.T) {
	b := &fakeBroker{}
	ctl := &fakeController{}
	cmds := &Commands{Board: ctl}

	require.NoError(t, cmds.Subscribe(b, "mosque", "hall"))
	h, ok := b.handlers["mosque/hall/commands"]
	require.True(t, ok)

	h(nil, fakeMessage{topic: "mosque/hall/commands", payload: []byte(`{"action":"reload"}`)})
	h(nil, fakeMessage{topic: "mosque/hall/commands", payload: []byte(`{"action":"nope"}`)})
	assert.Equal(t, 1, ctl.reloads)
}

// ---------------------------------------------------------------------------
// Redis mirror
// ---------------------------------------------------------------------------

type fakeHash struct {
	mu      sync.Mutex
	keys    map[string]bool
	fields  map[string]string
	expires int
	err     error
}

func newFakeHash() *fakeHash {
	return &fakeHash{keys: map[string]bool{}, fields: map[string]string{}}
}

func (f *fakeHash) HSet(_ context.Context, key string, values ...interface{}) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return redis.NewIntResult(0, f.err)
	}
	f.keys[key] = true
	f.fields[values[0].(string)] = string(values[1].([]byte))
	return redis.NewIntResult(1, nil)
}

func (f *fakeHash) Expire(_ context.Context, _ string, ttl time.Duration) *redis.BoolCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if ttl == StateTTL {
		f.expires++
	}
	return redis.NewBoolResult(true, nil)
}

func (f *fakeHash) get(name string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.fields[name]
	return v, ok
}

func runMirror(t *testing.T, h *fakeHash) *Redis {
	t.Helper()
	r := NewRedis(h, "prayer-display", "main")
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return r
}

func TestRedis_MirrorsState(t *testing.T) {
	h := newFakeHash()
	r := runMirror(t, h)

	r.ScheduleLoaded(board.Schedule{Times: prayer.Times{prayer.Fajr: "05:06"}})
	r.ActivePrayerChanged(asr(false))
	r.CountdownTicked(label("Maghrib in 2h 20m"))
	r.ClockTicked(asrStart, clock.Status{Date: "2026-10-16"})

	require.Eventually(t, func() bool {
		h.mu.Lock()
		defer h.mu.Unlock()
		return h.expires == 5
	}, time.Second, 5*time.Millisecond)

	clk, _ := h.get("clock")
	assert.Contains(t, clk, `"date":"2026-10-16"`)
	sched, _ := h.get("schedule")
	assert.Contains(t, sched, `"Fajr":"05:06"`)
	hl, _ := h.get("highlight")
	assert.Contains(t, hl, `"kind":"active"`)
	cd, _ := h.get("countdown")
	assert.Contains(t, cd, "Maghrib in 2h 20m")
	h.mu.Lock()
	assert.True(t, h.keys["prayer-display:main"])
	h.mu.Unlock()
}

func TestRedis_FatalErrorRecorded(t *testing.T) {
	h := newFakeHash()
	r := runMirror(t, h)

	r.Error(board.ErrLoadFailed, true)
	r.HijriDateFailed(board.ErrLoadFailed)

	require.Eventually(t, func() bool {
		_, ok := h.get("hijri")
		return ok
	}, time.Second, 5*time.Millisecond)
	status, _ := h.get("status")
	assert.JSONEq(t, `{"error":"failed to load prayer times","fatal":true}`, status)
}

func TestRedis_WriteFailureDoesNotStopMirror(t *testing.T) {
	h := newFakeHash()
	h.err = errors.New("connection refused")
	r := runMirror(t, h)

	r.Notice("Loading prayer times...")
	r.ClockTicked(asrStart, clock.Status{})

	// Drain both writes, then let the server recover.
	require.Eventually(t, func() bool { return len(r.writes) == 0 }, time.Second, 5*time.Millisecond)
	h.mu.Lock()
	h.err = nil
	h.mu.Unlock()

	r.Error(errors.New("connection error"), false)
	require.Eventually(t, func() bool {
		_, ok := h.get("status")
		return ok
	}, time.Second, 5*time.Millisecond)
}

// ---------------------------------------------------------------------------
// Notifier
// ---------------------------------------------------------------------------

func TestNotifier_OncePerAdhan(t *testing.T) {
	sent := make(chan string, 4)
	n := &Notifier{
		notify: func(title, message string) error {
			sent <- title + "|" + message
			return nil
		},
		timeLayout: "15:04",
	}

	n.ActivePrayerChanged(asr(true))
	n.ActivePrayerChanged(asr(false))
	n.ActivePrayerChanged(nil)
	n.ActivePrayerChanged(asr(true))

	select {
	case got := <-sent:
		assert.Equal(t, "Adhan · Asr|Asr at 15:45", got)
	case <-time.After(time.Second):
		t.Fatal("no notification sent")
	}
	select {
	case got := <-sent:
		t.Fatalf("unexpected second notification %q", got)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestNotifier_IgnoresUpcoming(t *testing.T) {
	called := false
	n := &Notifier{notify: func(string, string) error { called = true; return nil }}

	r := asr(true)
	r.Kind = prayer.Upcoming
	n.ActivePrayerChanged(r)
	assert.False(t, called)
}
