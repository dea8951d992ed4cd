package facade

import (
	"time"

	"github.com/keepmind9/discordkit/pkg/constants"
)

// CredentialKind tells a Builder which login flow to use.
type CredentialKind int

const (
	CredentialNone   CredentialKind = iota // nothing configured
	CredentialToken                        // bot token
	CredentialLegacy                       // email and password
)

func (k CredentialKind) String() string {
	switch k {
	case CredentialToken:
		return "token"
	case CredentialLegacy:
		return "legacy"
	default:
		return "none"
	}
}

// Config holds everything a Builder needs to create the client.
type Config struct {
	Token string

	// Deprecated: Discord bots authenticate with tokens. Email and Password
	// are only used when Token is empty.
	Email    string
	Password string

	ConnectTimeout time.Duration
	PingTimeout    time.Duration
	Daemon         bool
	Reconnect      bool
}

// DefaultConfig returns a Config with the default timeouts and nothing else set.
func DefaultConfig() Config {
	return Config{
		ConnectTimeout: constants.DefaultConnectTimeout,
		PingTimeout:    constants.DefaultPingTimeout,
	}
}

// Credentials reports which login flow the configuration selects.
// A token always wins over the legacy pair.
func (c Config) Credentials() CredentialKind {
	if c.Token != "" {
		return CredentialToken
	}
	if c.Email != "" || c.Password != "" {
		return CredentialLegacy
	}
	return CredentialNone
}
