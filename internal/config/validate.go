package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
	"unicode"
)

var validLogLevels = map[string]bool{
	"debug":   true,
	"info":    true,
	"warn":    true,
	"warning": true,
	"error":   true,
}

// ValidationResult separates startup-blocking problems from ones that were
// auto-corrected. A fatal means the config cannot be trusted as given; a
// warning means the value was clamped or ignored and the process can proceed.
type ValidationResult struct {
	Fatals   []error
	Warnings []error
}

func (r ValidationResult) HasFatals() bool {
	return len(r.Fatals) > 0
}

// AllErrors concatenates fatals and warnings, fatals first.
func (r ValidationResult) AllErrors() []error {
	all := make([]error, 0, len(r.Fatals)+len(r.Warnings))
	all = append(all, r.Fatals...)
	all = append(all, r.Warnings...)
	return all
}

// ValidateTiered checks the config for invalid values. Dangerous zero or
// out-of-range values that would otherwise panic downstream (queue sizes,
// refresh rates) are clamped in place and reported as warnings; malformed
// identity or transport settings are reported as fatals and block startup.
func (c *Config) ValidateTiered() ValidationResult {
	var r ValidationResult

	if c.ServerURL != "" {
		u, err := url.Parse(c.ServerURL)
		if err != nil {
			r.Fatals = append(r.Fatals, fmt.Errorf("server_url %q is not a valid URL: %w", c.ServerURL, err))
		} else if u.Scheme != "http" && u.Scheme != "https" {
			r.Fatals = append(r.Fatals, fmt.Errorf("server_url scheme must be http or https, got %q", u.Scheme))
		}
	}

	if c.AuthToken != "" {
		for _, ch := range c.AuthToken {
			if unicode.IsControl(ch) {
				r.Fatals = append(r.Fatals, fmt.Errorf("auth_token contains control characters"))
				break
			}
		}
	}

	if c.BasePath != "" && !strings.HasPrefix(c.BasePath, "/") {
		r.Fatals = append(r.Fatals, fmt.Errorf("base_path %q must start with /", c.BasePath))
	}

	if c.SessionExpire < time.Minute {
		r.Warnings = append(r.Warnings, fmt.Errorf("session_expire %s is below minimum 1m, clamping", c.SessionExpire))
		c.SessionExpire = time.Minute
	} else if c.SessionExpire > 24*time.Hour {
		r.Warnings = append(r.Warnings, fmt.Errorf("session_expire %s exceeds maximum 24h, clamping", c.SessionExpire))
		c.SessionExpire = 24 * time.Hour
	}

	if c.MaxSessions < 1 {
		r.Warnings = append(r.Warnings, fmt.Errorf("max_sessions %d is below minimum 1, clamping", c.MaxSessions))
		c.MaxSessions = 1
	} else if c.MaxSessions > 65536 {
		r.Warnings = append(r.Warnings, fmt.Errorf("max_sessions %d exceeds maximum 65536, clamping", c.MaxSessions))
		c.MaxSessions = 65536
	}

	if c.OutboundQueueSize < 1 {
		r.Warnings = append(r.Warnings, fmt.Errorf("outbound_queue_size %d is below minimum 1, clamping", c.OutboundQueueSize))
		c.OutboundQueueSize = 1
	}

	if c.InboundQueueSize < 1 {
		r.Warnings = append(r.Warnings, fmt.Errorf("inbound_queue_size %d is below minimum 1, clamping", c.InboundQueueSize))
		c.InboundQueueSize = 1
	}

	if c.CaptureRefreshHz <= 0 {
		r.Warnings = append(r.Warnings, fmt.Errorf("capture_refresh_hz %v is not positive, clamping to 30", c.CaptureRefreshHz))
		c.CaptureRefreshHz = 30
	} else if c.CaptureRefreshHz > 240 {
		r.Warnings = append(r.Warnings, fmt.Errorf("capture_refresh_hz %v exceeds maximum 240, clamping", c.CaptureRefreshHz))
		c.CaptureRefreshHz = 240
	}

	if c.LogLevel != "" && !validLogLevels[strings.ToLower(c.LogLevel)] {
		r.Warnings = append(r.Warnings, fmt.Errorf("log_level %q is not valid (use debug, info, warn, error)", c.LogLevel))
	}

	if c.LogFormat != "" && c.LogFormat != "text" && c.LogFormat != "json" {
		r.Warnings = append(r.Warnings, fmt.Errorf("log_format %q is not valid (use text or json)", c.LogFormat))
	}

	return r
}
