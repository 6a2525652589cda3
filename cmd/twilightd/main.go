package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jsonmona/twilight/internal/config"
	"github.com/jsonmona/twilight/internal/controlplane"
	"github.com/jsonmona/twilight/internal/desktop"
	"github.com/jsonmona/twilight/internal/desktop/syntheticcapture"
	"github.com/jsonmona/twilight/internal/logging"
	"github.com/jsonmona/twilight/internal/protocol"
	"github.com/jsonmona/twilight/internal/session"
	"github.com/jsonmona/twilight/internal/streaming"
	"github.com/jsonmona/twilight/internal/wsio"
)

var (
	version  = "0.1.0"
	cfgFile  string
	listen   string
	basePath string
	sessExp  time.Duration
	logLevel string
	logFmt   string
	tlsCert  string
	tlsKey   string
)

var log = logging.L("main")

var rootCmd = &cobra.Command{
	Use:   "twilightd",
	Short: "Twilight remote desktop streaming server",
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the streaming server",
	Run: func(cmd *cobra.Command, args []string) {
		runServer()
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("twilightd v%s\n", version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is /etc/twilight/twilight.yaml)")
	runCmd.Flags().StringVar(&listen, "listen", "", "listen address (default :8443)")
	runCmd.Flags().StringVar(&basePath, "base-path", "", "HTTP base path (default /twilight)")
	runCmd.Flags().DurationVar(&sessExp, "session-expire", 0, "idle session expiry (default 30m)")
	runCmd.Flags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
	runCmd.Flags().StringVar(&logFmt, "log-format", "", "log format: text or json")
	runCmd.Flags().StringVar(&tlsCert, "tls-cert", "", "TLS certificate file (plaintext if unset)")
	runCmd.Flags().StringVar(&tlsKey, "tls-key", "", "TLS private key file (plaintext if unset)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func initLogging(cfg *config.Config) {
	logging.Init(cfg.LogFormat, cfg.LogLevel, os.Stdout)
	log = logging.L("main")
}

func runServer() {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	if listen != "" {
		cfg.ListenAddr = listen
	}
	if basePath != "" {
		cfg.BasePath = basePath
	}
	if sessExp != 0 {
		cfg.SessionExpire = sessExp
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if logFmt != "" {
		cfg.LogFormat = logFmt
	}
	if tlsCert != "" {
		cfg.TLSCertFile = tlsCert
	}
	if tlsKey != "" {
		cfg.TLSKeyFile = tlsKey
	}

	initLogging(cfg)
	log.Info("starting twilightd", "version", version, "listen", cfg.ListenAddr, "basePath", cfg.BasePath)

	registry := session.NewRegistry(cfg.MaxSessions, cfg.SessionExpire)

	coordinator := streaming.NewCoordinator(
		func(monitorID string) (desktop.CaptureSource, error) {
			return syntheticcapture.New(1920, 1080, cfg.CaptureRefreshHz), nil
		},
		func() desktop.Encoder {
			return desktop.NewJPEGEncoder(80)
		},
	)

	wsServer := wsio.NewServer(wsio.Config{
		Handler:           noopInboundHandler{},
		OutboundQueueSize: cfg.OutboundQueueSize,
		InboundQueueSize:  cfg.InboundQueueSize,
	})

	monitors := func() []desktop.MonitorInfo {
		return []desktop.MonitorInfo{
			{ID: "0", Name: "Primary Display", Width: 1920, Height: 1080, RefreshRate: desktop.Rational{Num: uint32(cfg.CaptureRefreshHz * 1000), Den: 1000}},
		}
	}

	cpServer := controlplane.NewServer(controlplane.Config{
		BasePath:       cfg.BasePath,
		Registry:       registry,
		Stream:         wsServer,
		Capture:        coordinator,
		Monitors:       monitors,
		UpgradeTimeout: cfg.UpgradeTimeout,
	})

	httpServer := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: cpServer.Router(),
	}

	go func() {
		var err error
		if cfg.TLSCertFile != "" && cfg.TLSKeyFile != "" {
			log.Info("serving with TLS", "cert", cfg.TLSCertFile)
			err = httpServer.ListenAndServeTLS(cfg.TLSCertFile, cfg.TLSKeyFile)
		} else {
			log.Warn("serving plaintext HTTP; set --tls-cert/--tls-key for production use")
			err = httpServer.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			log.Error("http server stopped", "error", err)
		}
	}()

	log.Info("twilightd is running")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Info("shutting down twilightd")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Warn("http server shutdown error", "error", err)
	}
	wsServer.Shutdown()

	log.Info("twilightd stopped")
}

// noopInboundHandler drops every frame a client sends upstream: the
// streaming protocol in this repo is view-only (spec.md §1 non-goals
// exclude input injection), so the only inbound traffic a conforming
// client ever produces is WebSocket control frames (ping/pong/close),
// which Conn.readPump already handles before reaching the handler.
type noopInboundHandler struct{}

func (noopInboundHandler) HandleFrame(sess *session.Session, frame protocol.Frame) {}
