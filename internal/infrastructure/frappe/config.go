package frappe

import (
	"errors"
	"fmt"
)

// Config holds configuration for the Frappe/ERPNext REST integration
type Config struct {
	// BaseURL is the ERP instance root, e.g. https://erp.example.com
	BaseURL string
	// APIKey / APISecret form the static token header pair
	APIKey    string
	APISecret string
	// TimeoutSeconds is the HTTP request timeout
	TimeoutSeconds int
}

// Errors for Frappe configuration
var (
	ErrConfigMissingBaseURL   = errors.New("frappe: base URL is required")
	ErrConfigMissingAPIKey    = errors.New("frappe: API key is required")
	ErrConfigMissingAPISecret = errors.New("frappe: API secret is required")
)

// defaultTimeoutSeconds keeps remote calls short: a slow ERP must not stall
// a synchronous registration for long.
const defaultTimeoutSeconds = 10

// NewConfig creates a new Frappe configuration with defaults
func NewConfig(baseURL, apiKey, apiSecret string) *Config {
	return &Config{
		BaseURL:        baseURL,
		APIKey:         apiKey,
		APISecret:      apiSecret,
		TimeoutSeconds: defaultTimeoutSeconds,
	}
}

// Validate validates the Frappe configuration
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return ErrConfigMissingBaseURL
	}
	if c.APIKey == "" {
		return ErrConfigMissingAPIKey
	}
	if c.APISecret == "" {
		return ErrConfigMissingAPISecret
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = defaultTimeoutSeconds
	}
	return nil
}

// AuthHeader returns the static API-key header value Frappe expects.
func (c *Config) AuthHeader() string {
	return fmt.Sprintf("token %s:%s", c.APIKey, c.APISecret)
}
