package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the full configuration for both binaries. Everything has a
// working default; a yaml file overrides selectively.
type Config struct {
	Server ServerConfig `yaml:"server"`
	Client ClientConfig `yaml:"client"`
	Logger LoggerConfig `yaml:"logger"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
	// MDNS controls LAN advertisement of this server.
	MDNS bool `yaml:"mdns"`
	// SendBuffer is the per-connection outbound queue length.
	SendBuffer int `yaml:"send_buffer"`
}

type ClientConfig struct {
	Server string `yaml:"server"`
	Room   string `yaml:"room"`
	Name   string `yaml:"name"`
	// Canvas dimensions for replay and PNG snapshots.
	CanvasWidth  int `yaml:"canvas_width"`
	CanvasHeight int `yaml:"canvas_height"`
	// CursorRate caps cursor:move sends per second.
	CursorRate float64 `yaml:"cursor_rate"`
	// ImageDir is where image handles resolve to files.
	ImageDir string `yaml:"image_dir"`
}

type LoggerConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:       ":8844",
			MDNS:       true,
			SendBuffer: 64,
		},
		Client: ClientConfig{
			Server:       "localhost:8844",
			Room:         "lobby",
			Name:         "anonymous",
			CanvasWidth:  1280,
			CanvasHeight: 720,
			CursorRate:   30,
		},
		Logger: LoggerConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
	}
}

// Load reads the yaml file at path over the defaults. An empty path returns
// the defaults unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}
