// Package quickbase is a client for the QuickBase REST API (v1).
//
// Every call returns a Response whose HTTP status is available immediately
// and whose JSON payload is decoded on first access. Endpoints are modelled
// as Operation values chosen by the caller.
package quickbase

import (
	"fmt"
	"strings"
	"time"
)

const (
	// DefaultBaseURL is the QuickBase API root
	DefaultBaseURL = "https://api.quickbase.com/v1"

	// DefaultTimeout bounds a single HTTP exchange
	DefaultTimeout = 30 * time.Second
)

// Config holds QuickBase connection settings
type Config struct {
	// Token is a QuickBase user token
	Token string
	// Realm is the realm hostname, e.g. example.quickbase.com
	Realm string
	// BaseURL defaults to DefaultBaseURL
	BaseURL string
	// UserAgent overrides the per-operation default
	UserAgent string
	// Timeout defaults to DefaultTimeout
	Timeout time.Duration
}

// withDefaults fills unset fields
func (c Config) withDefaults() Config {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	c.BaseURL = strings.TrimSuffix(c.BaseURL, "/")
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
	return c
}

// Validate checks the configuration
func (c Config) Validate() error {
	if c.Token == "" {
		return fmt.Errorf("quickbase token is required")
	}
	if c.Realm == "" {
		return fmt.Errorf("quickbase realm is required")
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must be positive, got %v", c.Timeout)
	}
	return nil
}
