// Package config loads and validates the per-party JSON network
// configuration described in §6 of the specification.
package config

import (
	"encoding/json"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/luxfi/shamir-mpc/pkg/mpcerr"
)

// Config is the JSON document every party loads via --net-config-file. All
// fields except ServerCert/PrivKey must be identical across parties.
type Config struct {
	BasePort     uint16   `json:"base_port"`
	TimeoutMS    uint64   `json:"timeout"`
	SleepTimeMS  uint64   `json:"sleep_time"`
	PeerIPs      []string `json:"peer_ips"`
	ServerCert   string   `json:"server_cert"`
	PrivKey      string   `json:"priv_key"`
	TrustedCerts []string `json:"trusted_certs"`
}

// Load reads and validates the configuration at path against the party
// count n and the corruption threshold t.
func Load(path string, n, t int) (*Config, error) {
	cfg, err := readUnvalidated(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(n, t); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadForParty reads the configuration at path and derives the party count
// n from len(peer_ips), since the driver's CLI surface (§6) never states n
// explicitly. It returns the validated config and the derived n.
func LoadForParty(path string, t int) (*Config, int, error) {
	cfg, err := readUnvalidated(path)
	if err != nil {
		return nil, 0, err
	}
	n := len(cfg.PeerIPs)
	if err := cfg.Validate(n, t); err != nil {
		return nil, 0, err
	}
	return cfg, n, nil
}

func readUnvalidated(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return &cfg, nil
}

// Timeout returns the bootstrap deadline as a time.Duration.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutMS) * time.Millisecond
}

// SleepTime returns the dial retry back-off as a time.Duration.
func (c *Config) SleepTime() time.Duration {
	return time.Duration(c.SleepTimeMS) * time.Millisecond
}

// Validate checks the config is well-formed for n parties and threshold t.
func (c *Config) Validate(n, t int) error {
	if c.BasePort == 0 {
		return fmt.Errorf("%w: base_port", mpcerr.ErrMissingField)
	}
	if c.TimeoutMS == 0 {
		return fmt.Errorf("%w: timeout", mpcerr.ErrMissingField)
	}
	if c.SleepTimeMS == 0 {
		return fmt.Errorf("%w: sleep_time", mpcerr.ErrMissingField)
	}
	if len(c.ServerCert) == 0 {
		return fmt.Errorf("%w: server_cert", mpcerr.ErrMissingField)
	}
	if len(c.PrivKey) == 0 {
		return fmt.Errorf("%w: priv_key", mpcerr.ErrMissingField)
	}
	if len(c.TrustedCerts) == 0 {
		return fmt.Errorf("%w: trusted_certs", mpcerr.ErrMissingField)
	}
	if len(c.PeerIPs) != n {
		return fmt.Errorf("%w: got %d peer_ips, want %d", mpcerr.ErrInconsistentN, len(c.PeerIPs), n)
	}
	for _, ip := range c.PeerIPs {
		if net.ParseIP(ip) == nil {
			return fmt.Errorf("%w: %q", mpcerr.ErrInvalidIP, ip)
		}
	}
	if n < 2*t+1 {
		return fmt.Errorf("%w: n=%d t=%d", mpcerr.ErrThresholdTooLarge, n, t)
	}
	return nil
}
