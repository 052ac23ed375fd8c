package signature

import (
	"encoding/json"
	"strings"
)

const (
	// RingCentralHeader carries the body signature on webhook deliveries
	RingCentralHeader = "X-RingCentral-Signature"
	// ValidationTokenHeader is sent once when a subscription is created and
	// must be echoed back on the response
	ValidationTokenHeader = "Validation-Token"
)

// Config is the signature policy of one webhook source
type Config struct {
	Enabled bool `json:"enabled"`

	// Verifications are tried in order; the first match accepts the request
	Verifications []VerificationConfig `json:"verifications"`

	// FailureAction is "reject" (default) or "log", which only warns
	FailureAction string `json:"failure_action"`
}

// VerificationConfig is one way a request may be signed
type VerificationConfig struct {
	Header string `json:"header"`

	// Format is a template for the header value, for example
	// "sha256=${signature}" or "${signature}"
	Format string `json:"format"`

	// Algorithm is hmac-sha1, hmac-sha256 (default) or hmac-sha512
	Algorithm string `json:"algorithm"`

	// Encoding is hex (default) or base64
	Encoding string `json:"encoding"`

	Secret string `json:"-"`
}

// RingCentral returns the policy for RingCentral webhook deliveries. An empty
// secret disables verification.
func RingCentral(secrets ...string) *Config {
	cfg := &Config{}
	for _, s := range secrets {
		if s = strings.TrimSpace(s); s == "" {
			continue
		}
		cfg.Verifications = append(cfg.Verifications, VerificationConfig{
			Header:    RingCentralHeader,
			Format:    "${signature}",
			Algorithm: "hmac-sha256",
			Encoding:  "hex",
			Secret:    s,
		})
	}
	cfg.Enabled = len(cfg.Verifications) > 0
	cfg.SetDefaults()
	return cfg
}

func (c *Config) SetDefaults() {
	if c.FailureAction == "" {
		c.FailureAction = "reject"
	}
	for i := range c.Verifications {
		c.Verifications[i].SetDefaults()
	}
}

func (v *VerificationConfig) SetDefaults() {
	if v.Algorithm == "" {
		v.Algorithm = "hmac-sha256"
	}
	if v.Encoding == "" {
		v.Encoding = "hex"
	}
	if v.Format == "" {
		v.Format = "${signature}"
	}
}

func (c *Config) Validate() error {
	if c.Enabled && len(c.Verifications) == 0 {
		return NewValidationError("at least one verification method required when enabled")
	}
	switch c.FailureAction {
	case "reject", "log":
	default:
		return NewValidationError("unsupported failure action: %s", c.FailureAction)
	}
	for i, v := range c.Verifications {
		if err := v.Validate(); err != nil {
			return NewValidationError("verification[%d]: %v", i, err)
		}
	}
	return nil
}

func (v *VerificationConfig) Validate() error {
	if v.Header == "" {
		return NewValidationError("header is required")
	}
	if v.Secret == "" {
		return NewValidationError("secret is required")
	}
	if !strings.Contains(v.Format, "${signature}") {
		return NewValidationError("format must contain ${signature}")
	}

	switch v.Algorithm {
	case "hmac-sha1", "hmac-sha256", "hmac-sha512":
	default:
		return NewValidationError("unsupported algorithm: %s", v.Algorithm)
	}

	switch v.Encoding {
	case "hex", "base64":
	default:
		return NewValidationError("unsupported encoding: %s", v.Encoding)
	}
	return nil
}

// LoadConfig reads a policy from JSON. Secrets are never part of the
// document and are attached afterwards with WithSecret.
func LoadConfig(data []byte) (*Config, error) {
	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, err
	}
	config.SetDefaults()
	return &config, nil
}

// WithSecret sets secret on every verification that has none
func (c *Config) WithSecret(secret string) *Config {
	for i := range c.Verifications {
		if c.Verifications[i].Secret == "" {
			c.Verifications[i].Secret = secret
		}
	}
	return c
}
