// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: config/config.go
// Summary: Server configuration loading from ~/.config/pixelflut/config.json

package config

import (
	"encoding/json"
	"log"
	"os"
	"path/filepath"
)

// Config holds the settings a pixelflut-server deployment may want to pin
// outside of command-line flags. Flags always override whatever is loaded
// here.
type Config struct {
	// Host is the "host:port" the TCP listener binds to.
	Host string `json:"host"`
	// Width and Height size the canvas.
	Width  int `json:"width"`
	Height int `json:"height"`

	// NoRender disables the local display renderer.
	NoRender bool `json:"noRender"`
	// Fullscreen requests a fullscreen display window when rendering.
	Fullscreen bool `json:"fullscreen"`

	// BandwidthLimitBitsPerSec throttles each connection's inbound bytes.
	// 0 disables the limit.
	BandwidthLimitBitsPerSec uint64 `json:"bandwidthLimitBitsPerSec"`
	// NoBinaryCmd disables the PB binary pixel command.
	NoBinaryCmd bool `json:"noBinaryCmd"`

	// StatsScreenIntervalMS, StatsStdoutIntervalMS and StatsSaveIntervalMS
	// are reporting intervals in milliseconds; 0 disables that sink.
	StatsScreenIntervalMS int `json:"statsScreenIntervalMs"`
	StatsStdoutIntervalMS int `json:"statsStdoutIntervalMs"`
	StatsSaveIntervalMS   int `json:"statsSaveIntervalMs"`
	// StatsSavePath is where cumulative counters are persisted between runs.
	StatsSavePath string `json:"statsSavePath"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Host:                  "0.0.0.0:1337",
		Width:                 800,
		Height:                600,
		StatsStdoutIntervalMS: 1000,
	}
}

// Load loads configuration from ~/.config/pixelflut/config.json. If the
// file doesn't exist, it returns the default config. Command-line flags
// override whatever is loaded here.
func Load() (*Config, error) {
	cfg := Default()

	configDir, err := os.UserConfigDir()
	if err != nil {
		log.Printf("config: failed to get user config dir: %v", err)
		return cfg, nil
	}

	configPath := filepath.Join(configDir, "pixelflut", "config.json")

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			log.Printf("config: no config file at %s, using defaults", configPath)
			return cfg, nil
		}
		return nil, err
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	log.Printf("config: loaded from %s", configPath)
	return cfg, nil
}

// Save writes the configuration to ~/.config/pixelflut/config.json.
func (c *Config) Save() error {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return err
	}

	dir := filepath.Join(configDir, "pixelflut")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	configPath := filepath.Join(dir, "config.json")

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		return err
	}

	log.Printf("config: saved to %s", configPath)
	return nil
}
