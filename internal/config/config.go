package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Port     int    `yaml:"port"`
	Password string `yaml:"password"`

	DeviceIndex int `yaml:"camera_device"`
	FrameWidth  int `yaml:"frame_width"`  // 0 = driver default
	FrameHeight int `yaml:"frame_height"` // 0 = driver default

	FramePeriodMs    int `yaml:"frame_period_ms"`    // Co ile ms pobierać klatkę z kamery
	StopGraceMs      int `yaml:"stop_grace_ms"`      // Ile czekać na zakończenie trwającego ticku
	RedrawIntervalMs int `yaml:"redraw_interval_ms"` // Jak często odświeżać widok w przeglądarce

	HaarCascadePath string `yaml:"haar_cascade_path"`
	LBPCascadePath  string `yaml:"lbp_cascade_path"`

	ImageDirectory string `yaml:"image_dir"`
	ImageExtension string `yaml:"image_ext"`
	DatabasePath   string `yaml:"db_path"`
	LogDirectory   string `yaml:"log_dir"`

	ShowWindow   bool `yaml:"show_window"`
	DisplayWidth int  `yaml:"display_width"`
}

// Default returns the configuration used when neither a YAML file nor the environment override a value.
func Default() *Config {
	return &Config{
		Port:             8080,
		Password:         "faces",
		DeviceIndex:      0,
		FramePeriodMs:    60,
		StopGraceMs:      33,
		RedrawIntervalMs: 60,
		HaarCascadePath:  filepath.Join("resources", "haarcascades", "haarcascade_frontalface_alt.xml"),
		LBPCascadePath:   filepath.Join("resources", "lbpcascades", "lbpcascade_frontalface.xml"),
		ImageDirectory:   "Faces",
		ImageExtension:   ".png",
		DatabasePath:     filepath.Join("data", "faces.db"),
		LogDirectory:     filepath.Join(".", "logs"),
		ShowWindow:       false,
		DisplayWidth:     600,
	}
}

// Load builds the configuration: defaults, then the optional YAML file named by
// CONFIG_FILE, then environment variables (a .env file is loaded first if present).
func Load() (*Config, error) {
	// Brak pliku .env nie jest błędem
	_ = godotenv.Load()

	cfg := Default()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Port = getEnvAsInt("PORT", c.Port)
	c.Password = getEnv("PASSWORD", c.Password)
	c.DeviceIndex = getEnvAsInt("CAMERA_DEVICE", c.DeviceIndex)
	c.FrameWidth = getEnvAsInt("FRAME_WIDTH", c.FrameWidth)
	c.FrameHeight = getEnvAsInt("FRAME_HEIGHT", c.FrameHeight)
	c.FramePeriodMs = getEnvAsInt("FRAME_PERIOD_MS", c.FramePeriodMs)
	c.StopGraceMs = getEnvAsInt("STOP_GRACE_MS", c.StopGraceMs)
	c.RedrawIntervalMs = getEnvAsInt("REDRAW_INTERVAL_MS", c.RedrawIntervalMs)
	c.HaarCascadePath = getEnv("HAAR_CASCADE_PATH", c.HaarCascadePath)
	c.LBPCascadePath = getEnv("LBP_CASCADE_PATH", c.LBPCascadePath)
	c.ImageDirectory = getEnv("IMAGE_DIR", c.ImageDirectory)
	c.ImageExtension = getEnv("IMAGE_EXT", c.ImageExtension)
	c.DatabasePath = getEnv("DB_PATH", c.DatabasePath)
	c.LogDirectory = getEnv("LOG_DIR", c.LogDirectory)
	c.ShowWindow = getEnvAsBool("SHOW_WINDOW", c.ShowWindow)
	c.DisplayWidth = getEnvAsInt("DISPLAY_WIDTH", c.DisplayWidth)
}

// Validate rejects values the acquisition loop cannot run with.
func (c *Config) Validate() error {
	if c.FramePeriodMs <= 0 {
		return fmt.Errorf("frame period must be positive, got %d ms", c.FramePeriodMs)
	}
	if c.StopGraceMs < 0 {
		return fmt.Errorf("stop grace must not be negative, got %d ms", c.StopGraceMs)
	}
	if c.RedrawIntervalMs <= 0 {
		return fmt.Errorf("redraw interval must be positive, got %d ms", c.RedrawIntervalMs)
	}
	if c.ImageDirectory == "" {
		return fmt.Errorf("image directory is required")
	}
	if c.ImageExtension == "" || c.ImageExtension[0] != '.' {
		return fmt.Errorf("image extension must start with a dot, got %q", c.ImageExtension)
	}
	return nil
}

func (c *Config) FramePeriod() time.Duration {
	return time.Duration(c.FramePeriodMs) * time.Millisecond
}

func (c *Config) StopGrace() time.Duration {
	return time.Duration(c.StopGraceMs) * time.Millisecond
}

func (c *Config) RedrawInterval() time.Duration {
	return time.Duration(c.RedrawIntervalMs) * time.Millisecond
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
