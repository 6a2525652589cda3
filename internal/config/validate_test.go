package config

import (
	"fmt"
	"strings"
	"testing"
	"time"
)

func TestValidateTieredInvalidURLSchemeIsFatal(t *testing.T) {
	cfg := Default()
	cfg.ServerURL = "ftp://example.com"
	result := cfg.ValidateTiered()
	if !result.HasFatals() {
		t.Fatal("invalid URL scheme should be fatal")
	}
}

func TestValidateTieredControlCharsInTokenIsFatal(t *testing.T) {
	cfg := Default()
	cfg.AuthToken = "token\x00with\x01control"
	result := cfg.ValidateTiered()
	if !result.HasFatals() {
		t.Fatal("control chars in token should be fatal")
	}
}

func TestValidateTieredMissingBasePathSlashIsFatal(t *testing.T) {
	cfg := Default()
	cfg.BasePath = "twilight"
	result := cfg.ValidateTiered()
	if !result.HasFatals() {
		t.Fatal("base_path without leading slash should be fatal")
	}
}

func TestValidateTieredSessionExpireClampingIsWarning(t *testing.T) {
	cfg := Default()
	cfg.SessionExpire = 5 * time.Second
	result := cfg.ValidateTiered()
	if result.HasFatals() {
		t.Fatalf("clamped session_expire should be warning, not fatal: %v", result.Fatals)
	}
	if len(result.Warnings) == 0 {
		t.Fatal("expected warning for clamped session_expire")
	}
	if cfg.SessionExpire != time.Minute {
		t.Fatalf("SessionExpire = %s, want 1m (clamped)", cfg.SessionExpire)
	}
}

func TestValidateTieredHighSessionExpireClampingIsWarning(t *testing.T) {
	cfg := Default()
	cfg.SessionExpire = 72 * time.Hour
	result := cfg.ValidateTiered()
	if result.HasFatals() {
		t.Fatalf("clamped session_expire should be warning, not fatal: %v", result.Fatals)
	}
	if cfg.SessionExpire != 24*time.Hour {
		t.Fatalf("SessionExpire = %s, want 24h (clamped)", cfg.SessionExpire)
	}
}

func TestValidateTieredMaxSessionsClamping(t *testing.T) {
	cfg := Default()
	cfg.MaxSessions = 0
	result := cfg.ValidateTiered()
	if result.HasFatals() {
		t.Fatalf("clamped max_sessions should be warning: %v", result.Fatals)
	}
	if cfg.MaxSessions != 1 {
		t.Fatalf("MaxSessions = %d, want 1", cfg.MaxSessions)
	}
}

func TestValidateTieredQueueSizeClamping(t *testing.T) {
	cfg := Default()
	cfg.OutboundQueueSize = 0
	cfg.InboundQueueSize = 0
	result := cfg.ValidateTiered()
	if result.HasFatals() {
		t.Fatalf("clamped queue sizes should be warning: %v", result.Fatals)
	}
	if cfg.OutboundQueueSize != 1 {
		t.Fatalf("OutboundQueueSize = %d, want 1", cfg.OutboundQueueSize)
	}
	if cfg.InboundQueueSize != 1 {
		t.Fatalf("InboundQueueSize = %d, want 1", cfg.InboundQueueSize)
	}
}

func TestValidateTieredCaptureRefreshClamping(t *testing.T) {
	cfg := Default()
	cfg.CaptureRefreshHz = 0
	result := cfg.ValidateTiered()
	if result.HasFatals() {
		t.Fatal("zero capture_refresh_hz should not be fatal")
	}
	if cfg.CaptureRefreshHz != 30 {
		t.Fatalf("CaptureRefreshHz = %v, want 30", cfg.CaptureRefreshHz)
	}

	cfg.CaptureRefreshHz = 1000
	result = cfg.ValidateTiered()
	if result.HasFatals() {
		t.Fatal("excessive capture_refresh_hz should not be fatal")
	}
	if cfg.CaptureRefreshHz != 240 {
		t.Fatalf("CaptureRefreshHz = %v, want 240 (clamped)", cfg.CaptureRefreshHz)
	}
}

func TestValidateTieredUnknownLogLevelIsWarning(t *testing.T) {
	cfg := Default()
	cfg.LogLevel = "verbose"
	result := cfg.ValidateTiered()
	if result.HasFatals() {
		t.Fatal("unknown log level should not be fatal")
	}
	if len(result.Warnings) == 0 {
		t.Fatal("expected warning for unknown log level")
	}
}

func TestValidateTieredInvalidLogFormatIsWarning(t *testing.T) {
	cfg := Default()
	cfg.LogFormat = "xml"
	result := cfg.ValidateTiered()
	if result.HasFatals() {
		t.Fatal("invalid log format should not be fatal")
	}
	if len(result.Warnings) == 0 {
		t.Fatal("expected warning for invalid log format")
	}
}

func TestHasFatals(t *testing.T) {
	r := ValidationResult{}
	if r.HasFatals() {
		t.Fatal("HasFatals() on empty result should be false")
	}
	r.Fatals = append(r.Fatals, fmt.Errorf("test error"))
	if !r.HasFatals() {
		t.Fatal("HasFatals() should be true with a fatal error")
	}
}

func TestAllErrorsReturnsBoth(t *testing.T) {
	cfg := Default()
	cfg.ServerURL = "ftp://bad" // fatal
	cfg.LogLevel = "verbose"    // warning
	result := cfg.ValidateTiered()

	all := result.AllErrors()
	if len(all) < 2 {
		t.Fatalf("AllErrors() returned %d errors, expected at least 2 (fatals + warnings)", len(all))
	}
	if !strings.Contains(all[0].Error(), "server_url") {
		t.Fatalf("expected fatal to come first in AllErrors(), got: %v", all)
	}
}

func TestValidConfigHasNoErrors(t *testing.T) {
	cfg := Default()
	cfg.ServerURL = "https://example.com"
	cfg.AuthToken = "clean-token"
	result := cfg.ValidateTiered()
	if result.HasFatals() {
		t.Fatalf("valid config has fatals: %v", result.Fatals)
	}
	if len(result.Warnings) > 0 {
		t.Fatalf("valid config has warnings: %v", result.Warnings)
	}
}
