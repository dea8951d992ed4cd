package discord

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/keepmind9/discordkit/internal/facade"
	"github.com/keepmind9/discordkit/internal/logger"
	"github.com/keepmind9/discordkit/pkg/constants"
	"github.com/sirupsen/logrus"
)

var (
	// ErrAuthentication is returned when no usable credentials are configured.
	ErrAuthentication = errors.New("discord authentication failed")

	// ErrLegacyLogin is returned for email and password logins, which the
	// Discord API no longer accepts. It wraps ErrAuthentication.
	ErrLegacyLogin = fmt.Errorf("%w: email and password login is not supported, use a bot token", ErrAuthentication)
)

// Dialer creates an unopened session for a bot token.
type Dialer func(token string, cfg facade.Config) (Session, *discordgo.State, error)

// Builder creates connected clients for the facade.
type Builder struct {
	intents     discordgo.Intent
	restTimeout time.Duration
	dial        Dialer
}

var _ facade.Builder = (*Builder)(nil)

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithIntents sets the gateway intents.
func WithIntents(intents discordgo.Intent) BuilderOption {
	return func(b *Builder) { b.intents = intents }
}

// WithRESTTimeout sets the HTTP client timeout for REST calls.
func WithRESTTimeout(d time.Duration) BuilderOption {
	return func(b *Builder) { b.restTimeout = d }
}

// WithDialer replaces session creation.
func WithDialer(dial Dialer) BuilderOption {
	return func(b *Builder) { b.dial = dial }
}

// NewBuilder returns a Builder dialing discordgo sessions.
func NewBuilder(opts ...BuilderOption) *Builder {
	b := &Builder{
		intents:     discordgo.IntentsAllWithoutPrivileged,
		restTimeout: constants.DefaultRESTTimeout,
	}
	b.dial = b.dialSession
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Builder) dialSession(token string, cfg facade.Config) (Session, *discordgo.State, error) {
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create discord session: %w", err)
	}
	s.ShouldReconnectOnError = cfg.Reconnect
	s.Identify.Intents = b.intents
	if b.restTimeout > 0 {
		s.Client.Timeout = b.restTimeout
	}
	return s, s.State, nil
}

// Build opens a gateway session for cfg and waits for the Ready event.
func (b *Builder) Build(ctx context.Context, cfg facade.Config) (facade.Resource, error) {
	switch cfg.Credentials() {
	case facade.CredentialNone:
		return nil, fmt.Errorf("%w: no token configured", ErrAuthentication)
	case facade.CredentialLegacy:
		logger.WithFields(logrus.Fields{
			"component": "discord",
			"email":     cfg.Email,
		}).Error("legacy-login-rejected")
		return nil, ErrLegacyLogin
	}

	log := logger.WithFields(logrus.Fields{
		"component": "discord",
		"token":     logger.MaskSecret(cfg.Token),
		"reconnect": cfg.Reconnect,
	})
	log.Info("starting-discord-session")

	session, state, err := b.dial(cfg.Token, cfg)
	if err != nil {
		return nil, err
	}

	c := NewClient(session, state, cfg.Token)
	c.timeout = cfg.ConnectTimeout
	c.pingTimeout = cfg.PingTimeout
	if err := open(ctx, session, cfg.ConnectTimeout); err != nil {
		log.WithField("error", err).Error("failed-to-open-discord-gateway")
		return nil, err
	}
	if err := c.waitReady(ctx, cfg.PingTimeout); err != nil {
		log.WithField("error", err).Error("discord-ready-event-missing")
		_ = session.Close()
		return nil, err
	}

	fields := logrus.Fields{"guilds": len(c.Guilds())}
	if u := c.OurUser(); u != nil {
		fields["user"] = u.Username
		fields["user_id"] = u.ID
	}
	log.WithFields(fields).Info("discord-session-ready")
	return c, nil
}
