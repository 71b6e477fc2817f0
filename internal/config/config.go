// Package config provides persistent configuration for the prayer display.
//
// Configuration is stored as JSON at ~/.config/prayer-display/config.json
// (XDG-compliant) and read through viper, so every scalar key can also be
// set from the environment with the PRAYER_DISPLAY_ prefix, e.g.
// PRAYER_DISPLAY_LATITUDE or PRAYER_DISPLAY_MQTT_BROKER.
// The merge priority is: CLI flags > environment > config file > defaults.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/smokyabdulrahman/prayer-display/internal/hijri"
	"github.com/smokyabdulrahman/prayer-display/internal/prayer"
)

const (
	configDirName  = "prayer-display"
	configFileName = "config.json"

	// EnvPrefix prefixes every environment override.
	EnvPrefix = "PRAYER_DISPLAY"
)

// ValidKeys lists all config keys that can be set via `config set`.
var ValidKeys = []string{
	"city", "country",
	"latitude", "longitude",
	"method", "school",
	"method_settings", "tune",
	"timezone", "time_format",
	"hijri_mode", "month_language",
	"jumaa_time", "isha_time",
	"eid_enabled", "eid_date", "eid_time",
	"time_offset", "countdown_format",
	"max_retries", "retry_delay",
	"http_addr", "screen", "notify",
}

// envKeys are bound to environment variables. Nested keys use "_" in the
// variable name: mqtt.broker -> PRAYER_DISPLAY_MQTT_BROKER.
var envKeys = []string{
	"city", "country", "latitude", "longitude", "method", "school",
	"method_settings", "tune", "timezone", "time_format",
	"hijri_mode", "month_language", "isha_time", "time_offset", "countdown_format",
	"max_retries", "retry_delay", "http_addr", "screen", "notify",
	"manual_anchor.start_day", "manual_anchor.start_month",
	"manual_anchor.start_year", "manual_anchor.start_date",
	"jumaa.time", "eid.enabled", "eid.date", "eid.time",
	"mqtt.broker", "mqtt.client_id", "mqtt.topic", "mqtt.username", "mqtt.password",
	"redis.address", "redis.username", "redis.password", "redis.db", "redis.prefix",
}

// PrayerConfig configures one prayer slot.
type PrayerConfig struct {
	Name         string `json:"name" mapstructure:"name"`
	DisplayName  string `json:"display_name,omitempty" mapstructure:"display_name"`
	AdhanMinutes int    `json:"adhan_minutes" mapstructure:"adhan_minutes"`
	IqamaMinutes int    `json:"iqama_minutes" mapstructure:"iqama_minutes"`
}

// JumaaConfig configures the Friday congregational prayer.
type JumaaConfig struct {
	DisplayName string `json:"display_name,omitempty" mapstructure:"display_name"`
	// Durations are pointers so an explicit 0 (no phase) differs from "not set".
	AdhanMinutes *int `json:"adhan_minutes,omitempty" mapstructure:"adhan_minutes"`
	IqamaMinutes *int `json:"iqama_minutes,omitempty" mapstructure:"iqama_minutes"`
	// Time is a fixed local Jumaa time ("HH:MM"); it is merged over fetched times.
	Time string `json:"time,omitempty" mapstructure:"time"`
}

// EidConfig configures the one-off festival prayer that replaces Sunrise.
type EidConfig struct {
	Enabled      bool   `json:"enabled,omitempty" mapstructure:"enabled"`
	DisplayName  string `json:"display_name,omitempty" mapstructure:"display_name"`
	Date         string `json:"date,omitempty" mapstructure:"date"`
	Time         string `json:"time,omitempty" mapstructure:"time"`
	AdhanMinutes *int   `json:"adhan_minutes,omitempty" mapstructure:"adhan_minutes"`
	IqamaMinutes *int   `json:"iqama_minutes,omitempty" mapstructure:"iqama_minutes"`
}

// AnchorConfig is the manual Hijri anchor.
type AnchorConfig struct {
	StartDay   int    `json:"start_day,omitempty" mapstructure:"start_day"`
	StartMonth string `json:"start_month,omitempty" mapstructure:"start_month"`
	StartYear  int    `json:"start_year,omitempty" mapstructure:"start_year"`
	StartDate  string `json:"start_date,omitempty" mapstructure:"start_date"`
}

// MQTTConfig configures the remote screen publisher. An empty broker disables it.
type MQTTConfig struct {
	Broker   string `json:"broker,omitempty" mapstructure:"broker"`
	ClientID string `json:"client_id,omitempty" mapstructure:"client_id"`
	Topic    string `json:"topic,omitempty" mapstructure:"topic"`
	Username string `json:"username,omitempty" mapstructure:"username"`
	Password string `json:"password,omitempty" mapstructure:"password"`
}

// RedisConfig configures the display state mirror. An empty address disables it.
type RedisConfig struct {
	Address  string `json:"address,omitempty" mapstructure:"address"`
	Username string `json:"username,omitempty" mapstructure:"username"`
	Password string `json:"password,omitempty" mapstructure:"password"`
	DB       int    `json:"db,omitempty" mapstructure:"db"`
	Prefix   string `json:"prefix,omitempty" mapstructure:"prefix"`
}

// Config holds all user-configurable settings.
// Zero values mean "not set" (use defaults or auto-detect).
type Config struct {
	City           string  `json:"city,omitempty" mapstructure:"city"`
	Country        string  `json:"country,omitempty" mapstructure:"country"`
	Latitude       float64 `json:"latitude,omitempty" mapstructure:"latitude"`
	Longitude      float64 `json:"longitude,omitempty" mapstructure:"longitude"`
	Method         *int    `json:"method,omitempty" mapstructure:"method"` // pointer so we can distinguish "not set" from 0
	School         *int    `json:"school,omitempty" mapstructure:"school"` // pointer so we can distinguish "not set" from 0
	MethodSettings string  `json:"method_settings,omitempty" mapstructure:"method_settings"`
	Tune           string  `json:"tune,omitempty" mapstructure:"tune"`
	Timezone       string  `json:"timezone,omitempty" mapstructure:"timezone"`
	TimeFormat     string  `json:"time_format,omitempty" mapstructure:"time_format"` // "12h" or "24h"

	HijriMode       string            `json:"hijri_mode,omitempty" mapstructure:"hijri_mode"` // "api" or "manual"
	ManualAnchor    AnchorConfig      `json:"manual_anchor,omitempty" mapstructure:"manual_anchor"`
	MonthLanguage   string            `json:"month_language,omitempty" mapstructure:"month_language"` // "en" or "de"
	HijriMonthNames map[string]string `json:"hijri_month_names,omitempty" mapstructure:"hijri_month_names"`

	Prayers  []PrayerConfig `json:"prayers,omitempty" mapstructure:"prayers"`
	Sunrise  *PrayerConfig  `json:"sunrise,omitempty" mapstructure:"sunrise"`
	Jumaa    JumaaConfig    `json:"jumaa,omitempty" mapstructure:"jumaa"`
	Eid      EidConfig      `json:"eid,omitempty" mapstructure:"eid"`
	IshaTime string         `json:"isha_time,omitempty" mapstructure:"isha_time"`

	// TimeOffset is a signed duration added to the system clock; positive runs ahead.
	TimeOffset      string `json:"time_offset,omitempty" mapstructure:"time_offset"`
	CountdownFormat string `json:"countdown_format,omitempty" mapstructure:"countdown_format"`
	MaxRetries      int    `json:"max_retries,omitempty" mapstructure:"max_retries"`
	RetryDelay      string `json:"retry_delay,omitempty" mapstructure:"retry_delay"`

	HTTPAddr string      `json:"http_addr,omitempty" mapstructure:"http_addr"`
	Screen   string      `json:"screen,omitempty" mapstructure:"screen"`
	Notify   bool        `json:"notify,omitempty" mapstructure:"notify"`
	MQTT     MQTTConfig  `json:"mqtt,omitempty" mapstructure:"mqtt"`
	Redis    RedisConfig `json:"redis,omitempty" mapstructure:"redis"`
}

// Defaults returns a Config with all default values applied.
func Defaults() Config {
	method := -1
	school := -1
	rules := prayer.DefaultRules()

	prayers := make([]PrayerConfig, 0, len(rules.Prayers))
	for _, d := range rules.Prayers {
		prayers = append(prayers, fromDefinition(d))
	}
	sunrise := fromDefinition(rules.Sunrise)

	return Config{
		Method:     &method,
		School:     &school,
		TimeFormat: "24h",
		HijriMode:  string(hijri.ModeAPI),
		ManualAnchor: AnchorConfig{
			StartDay:   hijri.DefaultAnchor.StartDay,
			StartMonth: hijri.DefaultAnchor.StartMonth,
			StartYear:  hijri.DefaultAnchor.StartYear,
			StartDate:  hijri.DefaultAnchor.StartDate,
		},
		MonthLanguage: "en",
		Prayers:       prayers,
		Sunrise:       &sunrise,
		Jumaa: JumaaConfig{
			AdhanMinutes: intPtr(rules.Jumaa.AdhanMinutes),
			IqamaMinutes: intPtr(rules.Jumaa.IqamaMinutes),
		},
		Eid: EidConfig{
			DisplayName:  rules.Festival.Definition.DisplayName,
			AdhanMinutes: intPtr(rules.Festival.Definition.AdhanMinutes),
			IqamaMinutes: intPtr(rules.Festival.Definition.IqamaMinutes),
		},
		CountdownFormat: prayer.DefaultCountdownFormat,
		MaxRetries:      3,
		RetryDelay:      "2s",
		Screen:          "main",
		MQTT:            MQTTConfig{ClientID: "prayer-display", Topic: "prayer-display"},
		Redis:           RedisConfig{Prefix: "prayer-display"},
	}
}

func intPtr(v int) *int { return &v }

func fromDefinition(d prayer.Definition) PrayerConfig {
	return PrayerConfig{Name: d.Name, DisplayName: d.DisplayName, AdhanMinutes: d.AdhanMinutes, IqamaMinutes: d.IqamaMinutes}
}

// WithDefaults returns c with every unset value taken from Defaults().
func (c Config) WithDefaults() Config {
	def := Defaults()

	if c.Method == nil {
		c.Method = def.Method
	}
	if c.School == nil {
		c.School = def.School
	}
	if c.TimeFormat == "" {
		c.TimeFormat = def.TimeFormat
	}
	if c.HijriMode == "" {
		c.HijriMode = def.HijriMode
	}
	if c.ManualAnchor == (AnchorConfig{}) {
		c.ManualAnchor = def.ManualAnchor
	}
	if c.MonthLanguage == "" {
		c.MonthLanguage = def.MonthLanguage
	}
	if len(c.Prayers) == 0 {
		c.Prayers = def.Prayers
	}
	if c.Sunrise == nil {
		c.Sunrise = def.Sunrise
	}
	if c.Jumaa.AdhanMinutes == nil {
		c.Jumaa.AdhanMinutes = def.Jumaa.AdhanMinutes
	}
	if c.Jumaa.IqamaMinutes == nil {
		c.Jumaa.IqamaMinutes = def.Jumaa.IqamaMinutes
	}
	if c.Eid.DisplayName == "" {
		c.Eid.DisplayName = def.Eid.DisplayName
	}
	if c.Eid.AdhanMinutes == nil {
		c.Eid.AdhanMinutes = def.Eid.AdhanMinutes
	}
	if c.Eid.IqamaMinutes == nil {
		c.Eid.IqamaMinutes = def.Eid.IqamaMinutes
	}
	if c.CountdownFormat == "" {
		c.CountdownFormat = def.CountdownFormat
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = def.MaxRetries
	}
	if c.RetryDelay == "" {
		c.RetryDelay = def.RetryDelay
	}
	if c.Screen == "" {
		c.Screen = def.Screen
	}
	if c.MQTT.ClientID == "" {
		c.MQTT.ClientID = def.MQTT.ClientID
	}
	if c.MQTT.Topic == "" {
		c.MQTT.Topic = def.MQTT.Topic
	}
	if c.Redis.Prefix == "" {
		c.Redis.Prefix = def.Redis.Prefix
	}
	return c
}

// Dir returns the config directory path.
// It respects $XDG_CONFIG_HOME if set, otherwise uses ~/.config/.
func Dir() (string, error) {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("cannot determine home directory: %w", err)
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, configDirName), nil
}

// Path returns the full path to the config file.
func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFileName), nil
}

// Load reads the config file and environment overrides.
// If the file does not exist, only the environment is used (not an error).
func Load() (*Config, error) {
	path, err := Path()
	if err != nil {
		return nil, err
	}
	return load(path, true)
}

// LoadFrom reads the config from a specific file path, ignoring the
// environment. It is what `config set` edits and saves back.
func LoadFrom(path string) (*Config, error) {
	return load(path, false)
}

// LoadWithEnv reads the config from path and applies environment overrides.
func LoadWithEnv(path string) (*Config, error) {
	return load(path, true)
}

func load(path string, withEnv bool) (*Config, error) {
	v := viper.New()
	v.SetConfigType("json")

	if withEnv {
		v.SetEnvPrefix(EnvPrefix)
		v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
		for _, key := range envKeys {
			if err := v.BindEnv(key); err != nil {
				return nil, fmt.Errorf("failed to bind env for %s: %w", key, err)
			}
		}
	}

	if _, err := os.Stat(path); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("invalid config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}
	return &cfg, nil
}

// Save writes the config to disk, creating the directory if needed.
func (c *Config) Save() error {
	path, err := Path()
	if err != nil {
		return err
	}
	return c.SaveTo(path)
}

// SaveTo writes the config to a specific file path.
func (c *Config) SaveTo(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("cannot create config directory %s: %w", dir, err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Reset deletes the config file.
func Reset() error {
	path, err := Path()
	if err != nil {
		return err
	}
	return ResetAt(path)
}

// ResetAt deletes the config file at a specific path.
func ResetAt(path string) error {
	err := os.Remove(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete config file: %w", err)
	}
	return nil
}

// Set sets a config key to the given value.
// It validates the key name and parses the value into the correct type.
func (c *Config) Set(key, value string) error {
	switch key {
	case "city":
		c.City = value
	case "country":
		c.Country = value
	case "latitude":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid latitude %q: must be a number", value)
		}
		if v < -90 || v > 90 {
			return fmt.Errorf("invalid latitude %q: must be between -90 and 90", value)
		}
		c.Latitude = v
	case "longitude":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid longitude %q: must be a number", value)
		}
		if v < -180 || v > 180 {
			return fmt.Errorf("invalid longitude %q: must be between -180 and 180", value)
		}
		c.Longitude = v
	case "method":
		v, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid method %q: must be an integer", value)
		}
		if !validMethod(v) {
			return fmt.Errorf("invalid method %q: must be between 0 and 23, or 99 for custom settings", value)
		}
		c.Method = &v
	case "school":
		v, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid school %q: must be an integer", value)
		}
		if v != 0 && v != 1 {
			return fmt.Errorf("invalid school %q: must be 0 (Shafi) or 1 (Hanafi)", value)
		}
		c.School = &v
	case "method_settings":
		c.MethodSettings = value
	case "tune":
		if value != "" && len(strings.Split(value, ",")) != 9 {
			return fmt.Errorf("invalid tune %q: must be 9 comma-separated minute offsets", value)
		}
		c.Tune = value
	case "timezone":
		if value != "" {
			if _, err := time.LoadLocation(value); err != nil {
				return fmt.Errorf("invalid timezone %q: %w", value, err)
			}
		}
		c.Timezone = value
	case "time_format":
		if value != "12h" && value != "24h" {
			return fmt.Errorf("invalid time_format %q: must be \"12h\" or \"24h\"", value)
		}
		c.TimeFormat = value
	case "hijri_mode":
		if _, err := hijri.ParseMode(value); err != nil {
			return err
		}
		c.HijriMode = value
	case "month_language":
		if value != "en" && value != "de" {
			return fmt.Errorf("invalid month_language %q: must be \"en\" or \"de\"", value)
		}
		c.MonthLanguage = value
	case "jumaa_time":
		if err := checkTimeOfDay(key, value); err != nil {
			return err
		}
		c.Jumaa.Time = value
	case "isha_time":
		if err := checkTimeOfDay(key, value); err != nil {
			return err
		}
		c.IshaTime = value
	case "eid_enabled":
		v, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid eid_enabled %q: must be true or false", value)
		}
		c.Eid.Enabled = v
	case "eid_date":
		if value != "" {
			if _, err := time.Parse("2006-01-02", value); err != nil {
				return fmt.Errorf("invalid eid_date %q: must be YYYY-MM-DD", value)
			}
		}
		c.Eid.Date = value
	case "eid_time":
		if err := checkTimeOfDay(key, value); err != nil {
			return err
		}
		c.Eid.Time = value
	case "time_offset":
		if value != "" {
			if _, err := time.ParseDuration(value); err != nil {
				return fmt.Errorf("invalid time_offset %q: must be a duration like \"-5m\" or \"30s\"", value)
			}
		}
		c.TimeOffset = value
	case "countdown_format":
		c.CountdownFormat = value
	case "max_retries":
		v, err := strconv.Atoi(value)
		if err != nil || v < 0 {
			return fmt.Errorf("invalid max_retries %q: must be a non-negative integer", value)
		}
		c.MaxRetries = v
	case "retry_delay":
		d, err := time.ParseDuration(value)
		if err != nil || d < 0 {
			return fmt.Errorf("invalid retry_delay %q: must be a duration like \"2s\"", value)
		}
		c.RetryDelay = value
	case "http_addr":
		c.HTTPAddr = value
	case "screen":
		c.Screen = value
	case "notify":
		v, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid notify %q: must be true or false", value)
		}
		c.Notify = v
	default:
		return fmt.Errorf("unknown config key %q; valid keys: %s", key, strings.Join(ValidKeys, ", "))
	}

	return nil
}

// Get returns the string value of a config key.
func (c *Config) Get(key string) (string, error) {
	switch key {
	case "city":
		return c.City, nil
	case "country":
		return c.Country, nil
	case "latitude":
		if c.Latitude == 0 {
			return "", nil
		}
		return strconv.FormatFloat(c.Latitude, 'f', -1, 64), nil
	case "longitude":
		if c.Longitude == 0 {
			return "", nil
		}
		return strconv.FormatFloat(c.Longitude, 'f', -1, 64), nil
	case "method":
		if c.Method == nil {
			return "", nil
		}
		return strconv.Itoa(*c.Method), nil
	case "school":
		if c.School == nil {
			return "", nil
		}
		return strconv.Itoa(*c.School), nil
	case "method_settings":
		return c.MethodSettings, nil
	case "tune":
		return c.Tune, nil
	case "timezone":
		return c.Timezone, nil
	case "time_format":
		return c.TimeFormat, nil
	case "hijri_mode":
		return c.HijriMode, nil
	case "month_language":
		return c.MonthLanguage, nil
	case "jumaa_time":
		return c.Jumaa.Time, nil
	case "isha_time":
		return c.IshaTime, nil
	case "eid_enabled":
		return strconv.FormatBool(c.Eid.Enabled), nil
	case "eid_date":
		return c.Eid.Date, nil
	case "eid_time":
		return c.Eid.Time, nil
	case "time_offset":
		return c.TimeOffset, nil
	case "countdown_format":
		return c.CountdownFormat, nil
	case "max_retries":
		if c.MaxRetries == 0 {
			return "", nil
		}
		return strconv.Itoa(c.MaxRetries), nil
	case "retry_delay":
		return c.RetryDelay, nil
	case "http_addr":
		return c.HTTPAddr, nil
	case "screen":
		return c.Screen, nil
	case "notify":
		return strconv.FormatBool(c.Notify), nil
	default:
		return "", fmt.Errorf("unknown config key %q", key)
	}
}

func validMethod(v int) bool {
	return (v >= 0 && v <= 23) || v == 99
}

func checkTimeOfDay(key, value string) error {
	if value == "" {
		return nil
	}
	if _, err := prayer.ParseTimeOfDay(value, time.Now()); err != nil {
		return fmt.Errorf("invalid %s %q: must be HH:MM", key, value)
	}
	return nil
}

// MethodOrDefault returns the method value, falling back to the given default.
func (c *Config) MethodOrDefault(def int) int {
	if c.Method != nil {
		return *c.Method
	}
	return def
}

// SchoolOrDefault returns the school value, falling back to the given default.
func (c *Config) SchoolOrDefault(def int) int {
	if c.School != nil {
		return *c.School
	}
	return def
}
