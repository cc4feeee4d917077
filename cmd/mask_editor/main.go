package main

import (
	"flag"
	"log"
	"net/http"
	"os"
	"strings"

	"github.com/dj-oyu/rdk-x5_smart-pet-camera/mask-editor/internal/camconfig"
	"github.com/dj-oyu/rdk-x5_smart-pet-camera/mask-editor/internal/clipboard"
	"github.com/dj-oyu/rdk-x5_smart-pet-camera/mask-editor/internal/editor"
	"github.com/dj-oyu/rdk-x5_smart-pet-camera/mask-editor/internal/geometry"
	"github.com/dj-oyu/rdk-x5_smart-pet-camera/mask-editor/internal/logger"
	"github.com/dj-oyu/rdk-x5_smart-pet-camera/mask-editor/internal/maskserver"
	"github.com/dj-oyu/rdk-x5_smart-pet-camera/mask-editor/internal/metrics"
	"github.com/dj-oyu/rdk-x5_smart-pet-camera/mask-editor/internal/persist"
	"github.com/dj-oyu/rdk-x5_smart-pet-camera/mask-editor/internal/store"
)

func main() {
	cfg := maskserver.DefaultConfig()

	var logLevel string
	var logColor bool
	var clipboardCmd string

	flag.StringVar(&cfg.Addr, "http", cfg.Addr, "HTTP server address")
	flag.StringVar(&cfg.ConfigPath, "config", cfg.ConfigPath, "Camera config YAML file")
	flag.StringVar(&cfg.Camera, "camera", cfg.Camera, "Camera to edit")
	flag.StringVar(&cfg.ReferenceImage, "reference", cfg.ReferenceImage, "Still image of the camera view (jpeg, png, webp, bmp)")
	flag.StringVar(&cfg.APIBaseURL, "api", cfg.APIBaseURL, "Base URL of the config API")
	flag.IntVar(&cfg.DisplayWidth, "display-width", cfg.DisplayWidth, "Initial display width in pixels (0 = camera width)")
	flag.DurationVar(&cfg.SaveTimeout, "save-timeout", cfg.SaveTimeout, "Timeout for config saves (0 = none)")
	flag.DurationVar(&cfg.KeepaliveInterval, "keepalive", cfg.KeepaliveInterval, "Event stream keepalive interval")
	flag.StringVar(&clipboardCmd, "clipboard-cmd", "", "Fallback copy command reading stdin (default: pbcopy, clip or xclip)")
	flag.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error, silent)")
	flag.BoolVar(&logColor, "log-color", true, "Enable colored log output")
	flag.Parse()

	// Initialize logger
	level, err := logger.ParseLevel(logLevel)
	if err != nil {
		log.Fatalf("Invalid log level: %v", err)
	}
	logger.Init(level, os.Stderr, logColor)
	cfg.ClipboardCommand = strings.Fields(clipboardCmd)

	cam, err := camconfig.Load(cfg.ConfigPath, cfg.Camera)
	if err != nil {
		log.Fatalf("load camera config: %v", err)
	}

	m := metrics.New()
	st, warnings := store.FromConfig(cam)
	for _, w := range warnings {
		logger.Warn("Main", "Skipped malformed polygon %s", w)
	}
	m.LoadWarnings.Add(uint64(len(warnings)))

	transform := geometry.NewTransform(cam.Width, cam.Height)
	session := editor.NewSession(st, transform, m)

	server := maskserver.NewServer(cfg, session, maskserver.Options{
		Gateway:      persist.NewGateway(cfg.APIBaseURL, &http.Client{Timeout: cfg.SaveTimeout}, m),
		Exporter:     clipboard.NewExporter(clipboard.SystemWriter{}, clipboard.CommandWriter{Command: cfg.ClipboardCommand}, m),
		Metrics:      m,
		LoadWarnings: warnings,
	})

	logger.Info("Main", "Mask editor for camera %q (%dx%d) listening on %s", cam.Name, cam.Width, cam.Height, cfg.Addr)
	logger.Info("Main", "Config API: %s", cfg.APIBaseURL)
	logger.Info("Main", "Log level: %s", level)

	httpServer := &http.Server{
		Addr:    cfg.Addr,
		Handler: server.Handler(),
	}

	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server error: %v", err)
	}
}
