package config

import "time"

// Provider holds a named endpoint profile loaded from the config file.
// Profiles let users switch between API providers (Gemini, OpenAI, a
// private gateway) without retyping endpoint and auth details.
type Provider struct {
	// Endpoint is the URL keys are validated against.
	Endpoint string `yaml:"endpoint,omitempty"`

	// AuthMode is "query", "bearer", or "header".
	AuthMode string `yaml:"authMode,omitempty"`

	// KeyName is the header name used in "header" auth mode.
	KeyName string `yaml:"keyName,omitempty"`

	// Headers are extra HTTP headers to include in every request.
	Headers map[string]string `yaml:"headers,omitempty"`

	// Delay is the inter-request pause as a Go duration string
	// (e.g. "350ms", "1s").
	//
	// Design decision: YAML cannot unmarshal time.Duration directly, so
	// the field stays a string and ParseDelay converts it on demand.
	Delay string `yaml:"delay,omitempty"`

	// UserAgent overrides the User-Agent header for this provider.
	UserAgent string `yaml:"userAgent,omitempty"`
}

// ParseDelay converts the Delay field to a time.Duration.
// It returns (0, false, nil) when the field is unset.
func (p Provider) ParseDelay() (time.Duration, bool, error) {
	if p.Delay == "" {
		return 0, false, nil
	}
	d, err := time.ParseDuration(p.Delay)
	if err != nil {
		return 0, false, err
	}
	return d, true, nil
}

// File represents the structure of the .keyvet configuration file.
type File struct {
	// Providers maps profile names to their endpoint configurations.
	Providers map[string]Provider `yaml:"providers,omitempty"`

	// Defaults contains default provider settings applied to all
	// profiles unless overridden in the profile itself.
	Defaults Provider `yaml:"defaults,omitempty"`
}

// GetProvider returns the configuration for a named profile.
// It merges the profile with defaults. The boolean reports whether the
// profile exists; defaults alone do not make a profile.
func (cf *File) GetProvider(name string) (Provider, bool) {
	p, ok := cf.Providers[name]
	if !ok {
		return Provider{}, false
	}

	// Start with defaults, override with profile-specific values
	result := cf.Defaults
	if p.Endpoint != "" {
		result.Endpoint = p.Endpoint
	}
	if p.AuthMode != "" {
		result.AuthMode = p.AuthMode
	}
	if p.KeyName != "" {
		result.KeyName = p.KeyName
	}
	if p.Delay != "" {
		result.Delay = p.Delay
	}
	if p.UserAgent != "" {
		result.UserAgent = p.UserAgent
	}
	if len(p.Headers) > 0 {
		merged := make(map[string]string, len(result.Headers)+len(p.Headers))
		for k, v := range result.Headers {
			merged[k] = v
		}
		for k, v := range p.Headers {
			merged[k] = v
		}
		result.Headers = merged
	}

	return result, true
}
