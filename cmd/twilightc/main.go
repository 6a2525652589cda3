package main

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"os/signal"
	"path/filepath"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jsonmona/twilight/internal/client"
	"github.com/jsonmona/twilight/internal/config"
	"github.com/jsonmona/twilight/internal/desktop"
	"github.com/jsonmona/twilight/internal/logging"
	"github.com/jsonmona/twilight/internal/render"
)

var (
	version       = "0.1.0"
	cfgFile       string
	saveFramesDir string
	logLevel      string
	username      string
)

var log = logging.L("main")

var rootCmd = &cobra.Command{
	Use:   "twilightc <url>",
	Short: "Twilight remote desktop streaming client",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runClient(args[0])
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file")
	rootCmd.Flags().StringVar(&saveFramesDir, "save-frames", "", "directory to dump received frames as PNG files")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
	rootCmd.Flags().StringVar(&username, "username", "", "username to authenticate as (default from OS environment)")
}

// defaultUsername falls back to the OS login name, sanitised to the
// server's username regex (^[A-Za-z0-9_-]+$), since spec.md's auth
// endpoint requires a non-empty username but the CLI has no other
// natural source for one.
func defaultUsername() string {
	for _, env := range []string{"USER", "USERNAME"} {
		if v := os.Getenv(env); v != "" {
			return sanitizeUsername(v)
		}
	}
	return "twilightc-user"
}

func sanitizeUsername(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 'A' && c <= 'Z' || c >= 'a' && c <= 'z' || c >= '0' && c <= '9' || c == '_' || c == '-' {
			out = append(out, c)
		}
	}
	if len(out) == 0 {
		return "twilightc-user"
	}
	return string(out)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// eventHandler bridges client.Worker's callbacks into structured logging
// and the render.Feed coalescing pipeline.
type eventHandler struct {
	feed *render.Feed
}

func (h *eventHandler) OnStateChange(s client.State) {
	log.Info("state change", "state", s.String())
}

func (h *eventHandler) OnConnected(m desktop.MonitorInfo) {
	log.Info("connected", "monitor", m.Name, "width", m.Width, "height", m.Height)
}

func (h *eventHandler) OnFrame(u desktop.Update[*desktop.Image]) {
	h.feed.Accept(u)
}

func runClient(rawURL string) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		cfg = config.Default()
	}
	if saveFramesDir != "" {
		cfg.SaveFramesDir = saveFramesDir
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}

	logging.Init(cfg.LogFormat, cfg.LogLevel, os.Stdout)
	log = logging.L("main")

	origin, err := desktop.ParseOrigin(rawURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid URL: %v\n", err)
		os.Exit(1)
	}

	if cfg.SaveFramesDir != "" {
		if err := os.MkdirAll(cfg.SaveFramesDir, 0755); err != nil {
			fmt.Fprintf(os.Stderr, "failed to create save-frames directory: %v\n", err)
			os.Exit(1)
		}
	}

	var frameCount atomic.Uint64

	present := func(img *desktop.Image, cursor *desktop.CursorState) {
		n := frameCount.Add(1)
		log.Info("frame received", "seq", n, "width", img.Width, "height", img.Height)
		if cfg.SaveFramesDir != "" {
			if err := dumpPNG(cfg.SaveFramesDir, n, img); err != nil {
				log.Warn("failed to dump frame", "error", err)
			}
		}
	}

	feed := render.NewFeed(present)

	handler := &eventHandler{feed: feed}

	user := username
	if user == "" {
		user = defaultUsername()
	}

	worker := client.New(client.Config{
		Origin:   origin,
		Username: user,
		Decoder:  desktop.NewJPEGDecoder(),
		Handler:  handler,
	})

	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Info("shutting down twilightc")
		cancel()
	}()

	feed.Start(ctx)
	defer feed.Stop()

	log.Info("connecting", "url", origin.String(), "version", version)

	if err := worker.Run(ctx); err != nil && ctx.Err() == nil {
		log.Error("client worker exited", "error", err)
		os.Exit(1)
	}

	log.Info("twilightc stopped")
}

// dumpPNG writes a received frame to <dir>/frame-<seq>-<unixnano>.png
// (seq zero-padded to six digits) for manual
// inspection, converting the BGRA8888 buffer to an image.RGBA.
func dumpPNG(dir string, seq uint64, img *desktop.Image) error {
	out := image.NewRGBA(image.Rect(0, 0, img.Width, img.Height))
	for y := 0; y < img.Height; y++ {
		row := img.Pix[y*img.Stride:]
		for x := 0; x < img.Width; x++ {
			i := x * 4
			out.SetRGBA(x, y, color.RGBA{R: row[i+2], G: row[i+1], B: row[i+0], A: 255})
		}
	}

	path := filepath.Join(dir, fmt.Sprintf("frame-%06d-%d.png", seq, time.Now().UnixNano()))
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return png.Encode(f, out)
}
