package satusehat

import "errors"

// Config holds configuration for the SatuSehat FHIR integration.
type Config struct {
	// BaseURL is the FHIR R4 base, e.g. https://api-satusehat.kemkes.go.id/fhir-r4/v1
	BaseURL string
	// AuthURL is the OAuth2 base, e.g. https://api-satusehat.kemkes.go.id/oauth2/v1
	AuthURL string
	// KFABaseURL is the medicine catalogue base, e.g. https://api-satusehat.kemkes.go.id/kfa-v2
	KFABaseURL string
	// ClientID / ClientSecret are the OAuth2 client credentials.
	ClientID     string
	ClientSecret string
	// TimeoutSeconds is the HTTP request timeout
	TimeoutSeconds int
}

// Errors for SatuSehat configuration
var (
	ErrConfigMissingBaseURL      = errors.New("satusehat: base URL is required")
	ErrConfigMissingAuthURL      = errors.New("satusehat: auth URL is required")
	ErrConfigMissingClientID     = errors.New("satusehat: client ID is required")
	ErrConfigMissingClientSecret = errors.New("satusehat: client secret is required")
)

const defaultTimeoutSeconds = 15

// NewConfig creates a new SatuSehat configuration with defaults
func NewConfig(baseURL, authURL, clientID, clientSecret string) *Config {
	return &Config{
		BaseURL:        baseURL,
		AuthURL:        authURL,
		ClientID:       clientID,
		ClientSecret:   clientSecret,
		TimeoutSeconds: defaultTimeoutSeconds,
	}
}

// Validate validates the SatuSehat configuration
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return ErrConfigMissingBaseURL
	}
	if c.AuthURL == "" {
		return ErrConfigMissingAuthURL
	}
	if c.ClientID == "" {
		return ErrConfigMissingClientID
	}
	if c.ClientSecret == "" {
		return ErrConfigMissingClientSecret
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = defaultTimeoutSeconds
	}
	return nil
}
