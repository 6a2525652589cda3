package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/jsonmona/twilight/internal/logging"
	"github.com/spf13/viper"
)

var log = logging.L("config")

// Config holds settings shared by twilightd (server) and twilightc (client).
// Only the fields relevant to each binary are populated by its CLI; the rest
// retain their Default() values.
type Config struct {
	// Server (twilightd)
	ListenAddr        string        `mapstructure:"listen_addr"`
	BasePath          string        `mapstructure:"base_path"`
	SessionExpire     time.Duration `mapstructure:"session_expire"`
	MaxSessions       int           `mapstructure:"max_sessions"`
	OutboundQueueSize int           `mapstructure:"outbound_queue_size"`
	InboundQueueSize  int           `mapstructure:"inbound_queue_size"`
	CaptureRefreshHz  float64       `mapstructure:"capture_refresh_hz"`
	UpgradeTimeout    time.Duration `mapstructure:"upgrade_timeout"`
	TLSCertFile       string        `mapstructure:"tls_cert"`
	TLSKeyFile        string        `mapstructure:"tls_key"`

	// Client (twilightc)
	ServerURL     string `mapstructure:"server_url"`
	AuthToken     string `mapstructure:"auth_token"`
	SaveFramesDir string `mapstructure:"save_frames_dir"`

	// Logging, shared by both binaries
	LogLevel      string `mapstructure:"log_level"`
	LogFormat     string `mapstructure:"log_format"`
	LogFile       string `mapstructure:"log_file"`
	LogMaxSizeMB  int    `mapstructure:"log_max_size_mb"`
	LogMaxBackups int    `mapstructure:"log_max_backups"`
}

func Default() *Config {
	return &Config{
		ListenAddr:        ":8443",
		BasePath:          "/twilight",
		SessionExpire:     30 * time.Minute,
		MaxSessions:       256,
		OutboundQueueSize: 16,
		InboundQueueSize:  64,
		CaptureRefreshHz:  30,
		UpgradeTimeout:    30 * time.Second,

		LogLevel:      "info",
		LogFormat:     "text",
		LogMaxSizeMB:  50,
		LogMaxBackups: 3,
	}
}

// Load reads configuration from cfgFile (or the platform config dir and
// current directory if empty), layers environment variables prefixed
// TWILIGHT_ on top, and validates the result. Fatal errors block startup;
// warnings are logged and the corrected value is used.
func Load(cfgFile string) (*Config, error) {
	cfg := Default()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("twilight")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(configDir())
		viper.AddConfigPath(".")
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("TWILIGHT")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	if err := viper.Unmarshal(cfg); err != nil {
		return nil, err
	}

	result := cfg.ValidateTiered()
	for _, err := range result.Warnings {
		log.Warn("config validation", "error", err)
	}
	if result.HasFatals() {
		for _, err := range result.Fatals {
			log.Error("config validation fatal", "error", err)
		}
		return nil, fmt.Errorf("config has fatal validation errors: %v", result.Fatals[0])
	}

	return cfg, nil
}

func Save(cfg *Config) error {
	return SaveTo(cfg, "")
}

func SaveTo(cfg *Config, cfgFile string) error {
	viper.Set("listen_addr", cfg.ListenAddr)
	viper.Set("base_path", cfg.BasePath)
	viper.Set("session_expire", cfg.SessionExpire.String())
	viper.Set("max_sessions", cfg.MaxSessions)
	viper.Set("outbound_queue_size", cfg.OutboundQueueSize)
	viper.Set("inbound_queue_size", cfg.InboundQueueSize)
	viper.Set("capture_refresh_hz", cfg.CaptureRefreshHz)
	viper.Set("tls_cert", cfg.TLSCertFile)
	viper.Set("tls_key", cfg.TLSKeyFile)
	viper.Set("server_url", cfg.ServerURL)
	viper.Set("auth_token", cfg.AuthToken)
	viper.Set("save_frames_dir", cfg.SaveFramesDir)
	viper.Set("log_level", cfg.LogLevel)
	viper.Set("log_format", cfg.LogFormat)
	viper.Set("log_file", cfg.LogFile)

	var cfgPath string
	if cfgFile != "" {
		cfgPath = cfgFile
		dir := filepath.Dir(cfgPath)
		if dir != "." {
			if err := os.MkdirAll(dir, 0700); err != nil {
				return err
			}
		}
	} else {
		cfgPath = filepath.Join(configDir(), "twilight.yaml")
		if err := os.MkdirAll(configDir(), 0700); err != nil {
			return err
		}
	}

	if err := viper.WriteConfigAs(cfgPath); err != nil {
		return err
	}

	// Restrict config file to owner-only access (may carry an auth token)
	return os.Chmod(cfgPath, 0600)
}

func configDir() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("ProgramData"), "Twilight")
	case "darwin":
		return "/Library/Application Support/Twilight"
	default:
		return "/etc/twilight"
	}
}
