package bridge

import (
	"errors"
	"fmt"
	"net/url"
	"time"
)

const (
	// DefaultURL is the address a browser side bridge listens on.
	DefaultURL = "ws://127.0.0.1:8765/bridge"

	// DefaultDialTimeout bounds the websocket handshake.
	DefaultDialTimeout = 10 * time.Second

	// DefaultPingInterval is how often the client pings the bridge.
	DefaultPingInterval = 30 * time.Second

	// DefaultWriteTimeout bounds a single websocket write.
	DefaultWriteTimeout = 10 * time.Second
)

var (
	// ErrInvalidConfig is returned by Validate.
	ErrInvalidConfig = errors.New("invalid bridge config")
)

// Config holds the bridge client options.
type Config struct {
	URL          string        `long:"url" description:"Websocket URL of the wallet bridge"`
	DialTimeout  time.Duration `long:"dialtimeout" description:"Timeout of the websocket handshake"`
	PingInterval time.Duration `long:"pinginterval" description:"Interval between keepalive pings"`
	WriteTimeout time.Duration `long:"writetimeout" description:"Timeout of a single websocket write"`
}

// DefaultConfig returns a config with every field set to its default.
func DefaultConfig() *Config {
	return &Config{
		URL:          DefaultURL,
		DialTimeout:  DefaultDialTimeout,
		PingInterval: DefaultPingInterval,
		WriteTimeout: DefaultWriteTimeout,
	}
}

// Validate checks the config.
func (c *Config) Validate() error {
	u, err := url.Parse(c.URL)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("%w: url scheme must be ws or wss, got %q",
			ErrInvalidConfig, u.Scheme)
	}

	if c.DialTimeout <= 0 || c.PingInterval <= 0 || c.WriteTimeout <= 0 {
		return fmt.Errorf("%w: timeouts and intervals must be positive",
			ErrInvalidConfig)
	}

	return nil
}
