// Package config loads the discordkit YAML configuration.
//
// Example:
//
//	discord:
//	  token: "${DISCORD_TOKEN}"
//	  connect_timeout: 30s
//	  ping_timeout: 15s
//	  reconnect: true
//	  intents: [guilds, guild_messages, direct_messages]
//	presence:
//	  status: online
//	  game: "with goroutines"
//	announce:
//	  channel: "123456789012345678"
//	  message: "back online"
//	buffer:
//	  rate: 5
//	  max_retries: 3
//	metrics:
//	  addr: ":9090"
//	logging:
//	  level: info
//	  file: logs/discordkit.log
package config

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/keepmind9/discordkit/internal/buffer"
	"github.com/keepmind9/discordkit/internal/facade"
	"github.com/keepmind9/discordkit/internal/logger"
	"github.com/keepmind9/discordkit/pkg/constants"
	"gopkg.in/yaml.v3"
)

const (
	DefaultLogLevel = "info"
	DefaultStatus   = "online"
)

// Config is the top-level configuration file.
type Config struct {
	Discord  DiscordConfig  `yaml:"discord"`
	Presence PresenceConfig `yaml:"presence"`
	Announce AnnounceConfig `yaml:"announce"`
	Buffer   BufferConfig   `yaml:"buffer"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// DiscordConfig holds credentials and connection settings.
type DiscordConfig struct {
	Token          string   `yaml:"token"`
	Email          string   `yaml:"email"`
	Password       string   `yaml:"password"`
	ConnectTimeout string   `yaml:"connect_timeout"`
	PingTimeout    string   `yaml:"ping_timeout"`
	RESTTimeout    string   `yaml:"rest_timeout"`
	Daemon         bool     `yaml:"daemon"`
	Reconnect      *bool    `yaml:"reconnect"`
	Intents        []string `yaml:"intents"`
}

// PresenceConfig is applied once the client is ready.
type PresenceConfig struct {
	Status   string `yaml:"status"`
	Game     string `yaml:"game"`
	Username string `yaml:"username"`
	Avatar   string `yaml:"avatar"` // image path or data URI
}

// AnnounceConfig sends a message once the client is ready.
type AnnounceConfig struct {
	Channel string `yaml:"channel"`
	Message string `yaml:"message"`
}

// BufferConfig configures the request buffer.
type BufferConfig struct {
	QueueSize  int      `yaml:"queue_size"`
	Rate       *float64 `yaml:"rate"` // 0 disables local pacing
	Burst      int      `yaml:"burst"`
	MaxRetries *int     `yaml:"max_retries"`
	MaxWait    string   `yaml:"max_wait"`
}

// MetricsConfig configures the Prometheus endpoint. An empty address
// disables it.
type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// LoggingConfig mirrors logger.Config.
type LoggingConfig struct {
	Level        string `yaml:"level"`
	File         string `yaml:"file"`
	MaxSize      int    `yaml:"max_size"`
	MaxBackups   int    `yaml:"max_backups"`
	MaxAge       int    `yaml:"max_age"`
	Compress     bool   `yaml:"compress"`
	EnableStdout *bool  `yaml:"enable_stdout"`
}

var intentNames = map[string]discordgo.Intent{
	"guilds":                   discordgo.IntentsGuilds,
	"guild_members":            discordgo.IntentsGuildMembers,
	"guild_messages":           discordgo.IntentsGuildMessages,
	"guild_message_reactions":  discordgo.IntentsGuildMessageReactions,
	"guild_voice_states":       discordgo.IntentsGuildVoiceStates,
	"guild_presences":          discordgo.IntentsGuildPresences,
	"direct_messages":          discordgo.IntentsDirectMessages,
	"direct_message_reactions": discordgo.IntentsDirectMessageReactions,
	"message_content":          discordgo.IntentsMessageContent,
}

var statuses = map[string]discordgo.Status{
	"online":    discordgo.StatusOnline,
	"idle":      discordgo.StatusIdle,
	"dnd":       discordgo.StatusDoNotDisturb,
	"invisible": discordgo.StatusInvisible,
}

// LoadConfig loads configuration from file and expands environment variables
func LoadConfig(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse expands environment variables in data, decodes it and validates
// the result.
func Parse(data []byte) (*Config, error) {
	expanded, err := expandEnv(string(data))
	if err != nil {
		return nil, fmt.Errorf("failed to expand environment variables: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal([]byte(expanded), &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &config, nil
}

// expandEnv replaces ${VAR_NAME} patterns with environment variable values
func expandEnv(input string) (string, error) {
	var missingVars []string

	result := os.Expand(input, func(key string) string {
		if val := os.Getenv(key); val != "" {
			return val
		}
		missingVars = append(missingVars, key)
		return ""
	})

	if len(missingVars) > 0 {
		return "", fmt.Errorf("missing required environment variables: %s",
			strings.Join(missingVars, ", "))
	}
	return result, nil
}

func parseDuration(field, value string) (time.Duration, error) {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", field, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive (got %v)", field, d)
	}
	return d, nil
}

// validateConfig fills defaults and checks the configuration
func validateConfig(config *Config) error {
	d := &config.Discord
	if d.ConnectTimeout == "" {
		d.ConnectTimeout = constants.DefaultConnectTimeout.String()
	}
	if d.PingTimeout == "" {
		d.PingTimeout = constants.DefaultPingTimeout.String()
	}
	if d.RESTTimeout == "" {
		d.RESTTimeout = constants.DefaultRESTTimeout.String()
	}
	if d.Reconnect == nil {
		reconnect := true
		d.Reconnect = &reconnect
	}

	if config.Presence.Status == "" {
		config.Presence.Status = DefaultStatus
	}

	b := &config.Buffer
	if b.QueueSize == 0 {
		b.QueueSize = constants.DefaultBufferQueueSize
	}
	if b.Rate == nil {
		rate := float64(constants.DefaultBufferRate)
		b.Rate = &rate
	}
	if b.Burst == 0 {
		b.Burst = constants.DefaultBufferBurst
	}
	if b.MaxRetries == nil {
		retries := constants.DefaultBufferMaxRetries
		b.MaxRetries = &retries
	}
	if b.MaxWait == "" {
		b.MaxWait = constants.MaxRateLimitWait.String()
	}

	l := &config.Logging
	if l.Level == "" {
		l.Level = DefaultLogLevel
	}
	if l.MaxSize == 0 {
		l.MaxSize = constants.DefaultLogMaxSize
	}
	if l.MaxBackups == 0 {
		l.MaxBackups = constants.DefaultLogMaxBackups
	}
	if l.MaxAge == 0 {
		l.MaxAge = constants.DefaultLogMaxAge
	}
	if l.EnableStdout == nil {
		stdout := true
		l.EnableStdout = &stdout
	}

	if d.Token == "" {
		if d.Email == "" && d.Password == "" {
			return fmt.Errorf("discord.token is required")
		}
		if d.Email == "" || d.Password == "" {
			return fmt.Errorf("discord.email and discord.password must be set together")
		}
	}

	for field, value := range map[string]string{
		"discord.connect_timeout": d.ConnectTimeout,
		"discord.ping_timeout":    d.PingTimeout,
		"discord.rest_timeout":    d.RESTTimeout,
		"buffer.max_wait":         b.MaxWait,
	} {
		if _, err := parseDuration(field, value); err != nil {
			return err
		}
	}

	if _, err := config.Intents(); err != nil {
		return err
	}
	if _, ok := statuses[config.Presence.Status]; !ok {
		return fmt.Errorf("presence.status must be one of %s (got %q)",
			strings.Join(sortedKeys(statuses), ", "), config.Presence.Status)
	}

	if b.QueueSize < 1 {
		return fmt.Errorf("buffer.queue_size must be at least 1 (got %d)", b.QueueSize)
	}
	if *b.Rate < 0 {
		return fmt.Errorf("buffer.rate cannot be negative (got %v)", *b.Rate)
	}
	if *b.MaxRetries < 0 || *b.MaxRetries > 10 {
		return fmt.Errorf("buffer.max_retries must be between 0 and 10 (got %d)", *b.MaxRetries)
	}

	if config.Announce.Message != "" && config.Announce.Channel == "" {
		return fmt.Errorf("announce.channel is required when announce.message is set")
	}
	if n := len([]rune(config.Announce.Message)); n > constants.MaxDiscordMessageLength {
		return fmt.Errorf("announce.message is too long (max %d, got %d)", constants.MaxDiscordMessageLength, n)
	}

	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Intents combines the configured gateway intents. No entries means the
// non-privileged default set.
func (c *Config) Intents() (discordgo.Intent, error) {
	if len(c.Discord.Intents) == 0 {
		return discordgo.IntentsAllWithoutPrivileged, nil
	}
	var intents discordgo.Intent
	for _, name := range c.Discord.Intents {
		intent, ok := intentNames[name]
		if !ok {
			return 0, fmt.Errorf("unknown intent %q in discord.intents (known: %s)",
				name, strings.Join(sortedKeys(intentNames), ", "))
		}
		intents |= intent
	}
	return intents, nil
}

// Status returns the configured presence status.
func (c *Config) Status() discordgo.Status {
	if s, ok := statuses[c.Presence.Status]; ok {
		return s
	}
	return discordgo.StatusOnline
}

// RESTTimeout returns the parsed REST timeout.
func (c *Config) RESTTimeout() time.Duration {
	d, err := time.ParseDuration(c.Discord.RESTTimeout)
	if err != nil {
		return constants.DefaultRESTTimeout
	}
	return d
}

// FacadeOptions translates the discord section into facade options.
func (c *Config) FacadeOptions() []facade.Option {
	d := c.Discord
	var opts []facade.Option
	if d.Token != "" {
		opts = append(opts, facade.WithToken(d.Token))
	}
	if d.Email != "" || d.Password != "" {
		opts = append(opts, facade.WithLegacyLogin(d.Email, d.Password))
	}
	if t, err := time.ParseDuration(d.ConnectTimeout); err == nil {
		opts = append(opts, facade.WithConnectTimeout(t))
	}
	if t, err := time.ParseDuration(d.PingTimeout); err == nil {
		opts = append(opts, facade.WithPingTimeout(t))
	}
	if d.Daemon {
		opts = append(opts, facade.WithDaemon())
	}
	if d.Reconnect != nil && *d.Reconnect {
		opts = append(opts, facade.WithReconnect())
	}
	return opts
}

// BufferOptions translates the buffer section.
func (c *Config) BufferOptions() buffer.Config {
	cfg := buffer.Config{
		QueueSize:  c.Buffer.QueueSize,
		Burst:      c.Buffer.Burst,
		Rate:       constants.DefaultBufferRate,
		MaxRetries: constants.DefaultBufferMaxRetries,
	}
	if c.Buffer.Rate != nil {
		cfg.Rate = *c.Buffer.Rate
	}
	if c.Buffer.MaxRetries != nil {
		cfg.MaxRetries = *c.Buffer.MaxRetries
	}
	if d, err := time.ParseDuration(c.Buffer.MaxWait); err == nil {
		cfg.MaxWait = d
	}
	return cfg
}

// LoggerOptions translates the logging section.
func (c *Config) LoggerOptions() logger.Config {
	l := c.Logging
	return logger.Config{
		Level:        l.Level,
		File:         l.File,
		MaxSize:      l.MaxSize,
		MaxBackups:   l.MaxBackups,
		MaxAge:       l.MaxAge,
		Compress:     l.Compress,
		EnableStdout: l.EnableStdout == nil || *l.EnableStdout,
	}
}
