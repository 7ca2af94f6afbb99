package main

import (
	"encoding/json"
	"fmt"
	"os"
)

// Config is the installation configuration file. Everything has a
// usable default so the app runs with nothing but -input.
type Config struct {
	Input          string  `json:"input"`            // camera index ("0") or stream URL
	CameraIndex    int     `json:"camera_index"`     // tracker camera the stage follows
	BackgroundPath string  `json:"background_path"`  // composited background image
	TracksURL      string  `json:"tracks_url"`       // tracker stream endpoint
	TracksKind     string  `json:"tracks_transport"` // "websocket" or "sse"
	RelayURL       string  `json:"relay_url"`        // takeuchi relay endpoint, optional
	FrameRate      int     `json:"frame_rate"`
	StageFPS       int     `json:"stage_fps"`
	StageWidth     int     `json:"stage_width"`
	StageHeight    int     `json:"stage_height"`
	TextLifetimeS  float64 `json:"text_lifetime_seconds"`

	Segmentation struct {
		ModelPath  string `json:"model_path"`
		LabelsPath string `json:"labels_path"`
		InputSize  int    `json:"input_size"`
		PreferGPU  bool   `json:"prefer_gpu"`
		MaskIndex  int    `json:"mask_index"` // explicit override, -1 = use labels
	} `json:"segmentation"`

	Foreground struct {
		Scale        float64 `json:"scale"`
		BottomAnchor bool    `json:"bottom_anchor"`
	} `json:"foreground"`
}

// defaultConfig returns the built-in configuration.
func defaultConfig() Config {
	cfg := Config{
		Input:         "0",
		TracksURL:     "ws://127.0.0.1:8765/tracks",
		TracksKind:    "websocket",
		FrameRate:     30,
		StageFPS:      60,
		StageWidth:    1280,
		StageHeight:   720,
		TextLifetimeS: 9,
	}
	cfg.Segmentation.InputSize = 256
	cfg.Segmentation.MaskIndex = -1
	cfg.Foreground.Scale = 0.82
	cfg.Foreground.BottomAnchor = true
	return cfg
}

// loadConfig loads configuration from a JSON file over the defaults.
func loadConfig(filename string) (Config, error) {
	config := defaultConfig()
	if filename == "" {
		return config, nil
	}
	data, err := os.ReadFile(filename)
	if err != nil {
		return config, fmt.Errorf("failed to read config file: %v", err)
	}
	if err := json.Unmarshal(data, &config); err != nil {
		return config, fmt.Errorf("failed to parse config file: %v", err)
	}
	if config.FrameRate <= 0 {
		config.FrameRate = 30
	}
	if config.StageFPS <= 0 {
		config.StageFPS = 60
	}
	if config.Segmentation.InputSize <= 0 {
		config.Segmentation.InputSize = 256
	}
	return config, nil
}
