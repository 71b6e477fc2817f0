package sink

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/smokyabdulrahman/prayer-display/internal/board"
	"github.com/smokyabdulrahman/prayer-display/internal/clock"
	"github.com/smokyabdulrahman/prayer-display/internal/config"
	"github.com/smokyabdulrahman/prayer-display/internal/hijri"
	"github.com/smokyabdulrahman/prayer-display/internal/prayer"
)

const (
	// StateTTL bounds how long a stopped display's state lingers.
	StateTTL     = 24 * time.Hour
	writeTimeout = 2 * time.Second
	writeBuffer  = 64
)

// NewRedisClient creates a client for cfg.
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Username: cfg.Username,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

type hashWriter interface {
	HSet(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
}

type field struct {
	name  string
	value []byte
}

// Redis mirrors the display state into the hash <prefix>:<screen>, one
// JSON-encoded field per concern. Writes go through a buffered queue drained
// by Run so the board loop never waits on the server.
type Redis struct {
	board.Nop
	rdb    hashWriter
	key    string
	ttl    time.Duration
	writes chan field

	// Touched only from the board loop.
	label  string
	status string
}

var _ board.Presenter = (*Redis)(nil)

// NewRedis creates a state mirror.
func NewRedis(rdb hashWriter, prefix, screen string) *Redis {
	return &Redis{
		rdb:    rdb,
		key:    StateKey(prefix, screen),
		ttl:    StateTTL,
		writes: make(chan field, writeBuffer),
	}
}

// StateKey returns the hash key for a screen.
func StateKey(prefix, screen string) string {
	return prefix + ":" + screen
}

// Run drains queued writes until ctx is cancelled.
func (r *Redis) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case f := <-r.writes:
			r.write(ctx, f)
		}
	}
}

func (r *Redis) write(ctx context.Context, f field) {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	if err := r.rdb.HSet(ctx, r.key, f.name, f.value).Err(); err != nil {
		log.Warn().Err(err).Str("key", r.key).Str("field", f.name).Msg("redis state write failed")
		return
	}
	if err := r.rdb.Expire(ctx, r.key, r.ttl).Err(); err != nil {
		log.Warn().Err(err).Str("key", r.key).Msg("redis expire failed")
	}
}

func (r *Redis) enqueue(name string, v any) {
	value, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("field", name).Msg("cannot encode state field")
		return
	}
	select {
	case r.writes <- field{name: name, value: value}:
	default:
		log.Warn().Str("field", name).Msg("redis write queue full, dropping update")
	}
}

// ClockTicked records override changes only.
func (r *Redis) ClockTicked(_ time.Time, st clock.Status) {
	if s := st.String(); s != r.status {
		r.status = s
		r.enqueue("clock", st)
	}
}

func (r *Redis) ScheduleLoaded(s board.Schedule) {
	r.enqueue("schedule", s)
	r.enqueue("status", statusMessage{})
}

func (r *Redis) ActivePrayerChanged(p *prayer.Result) {
	r.enqueue("highlight", p)
}

func (r *Redis) CountdownTicked(c board.Countdown) {
	if c.Label.Text != r.label {
		r.label = c.Label.Text
		r.enqueue("countdown", c.Label)
	}
}

func (r *Redis) HijriDateChanged(d hijri.Date) {
	r.enqueue("hijri", hijriMessage{Date: &d})
}

func (r *Redis) HijriDateFailed(err error) {
	r.enqueue("hijri", hijriMessage{Error: err.Error()})
}

func (r *Redis) Notice(msg string) {
	r.label = ""
	r.enqueue("status", statusMessage{Notice: msg})
}

func (r *Redis) Error(err error, fatal bool) {
	r.enqueue("status", statusMessage{Error: err.Error(), Fatal: fatal})
}
