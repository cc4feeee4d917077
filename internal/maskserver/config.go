package maskserver

import (
	"path/filepath"
	"time"
)

// Config defines the runtime configuration for the mask editor server.
type Config struct {
	Addr              string
	ConfigPath        string
	Camera            string
	ReferenceImage    string
	APIBaseURL        string
	DisplayWidth      int
	SaveTimeout       time.Duration
	KeepaliveInterval time.Duration
	ClipboardCommand  []string
}

// DefaultConfig returns a config for a config API running on the same host.
func DefaultConfig() Config {
	return Config{
		Addr:              ":8090",
		ConfigPath:        filepath.Clean("./config/config.yml"),
		Camera:            "front",
		ReferenceImage:    "",
		APIBaseURL:        "http://localhost:5000",
		DisplayWidth:      0,
		SaveTimeout:       0,
		KeepaliveInterval: 30 * time.Second,
	}
}
