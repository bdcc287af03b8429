// Package config loads the server configuration from a YAML file.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

// Config describes the server configuration file.
type Config struct {
	ListenAddr      string `yaml:"ListenAddr"`      // TCP address the server listens on, e.g. ":4000"
	DataPath        string `yaml:"DataPath"`        // Directory with maps/, commands.json, items.json, npcs.json
	StartingRoom    string `yaml:"StartingRoom"`    // Room ID new players spawn in
	ClassifierURL   string `yaml:"ClassifierURL"`   // Ollama-style generate endpoint for the command classifier
	ClassifierModel string `yaml:"ClassifierModel"` // Model name sent with each classifier request
	WorkerPoolSize  int    `yaml:"WorkerPoolSize"`  // Number of classifier workers
	WriteQueueSize  int    `yaml:"WriteQueueSize"`  // Per-session outbound queue depth
	CacheBackend    string `yaml:"CacheBackend"`    // "memory" or "redis" for classifier result caching
	RedisAddr       string `yaml:"RedisAddr"`       // Redis address when CacheBackend is "redis"
	LogPath         string `yaml:"LogPath"`         // Log file path; empty logs to stdout only
	LogLevel        string `yaml:"LogLevel"`        // debug, info, warn or error
}

// Default returns a Config populated with usable development defaults.
func Default() Config {
	return Config{
		ListenAddr:      ":4000",
		DataPath:        "./data",
		StartingRoom:    "town_square",
		ClassifierURL:   "http://localhost:11434/api/generate",
		ClassifierModel: "llama3.2:3b",
		WorkerPoolSize:  4,
		WriteQueueSize:  64,
		CacheBackend:    "memory",
		LogLevel:        "info",
	}
}

// Read loads the configuration file at path on top of the defaults.
// Fields absent from the file keep their default values.
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - The merged configuration, or an error if the file cannot be read or parsed
func Read(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// Validate checks the configuration for values the server cannot start with.
func (c Config) Validate() error {
	if c.ListenAddr == "" {
		return fmt.Errorf("ListenAddr must not be empty")
	}
	if c.WorkerPoolSize <= 0 {
		return fmt.Errorf("WorkerPoolSize must be positive, got %d", c.WorkerPoolSize)
	}
	if c.WriteQueueSize <= 0 {
		return fmt.Errorf("WriteQueueSize must be positive, got %d", c.WriteQueueSize)
	}
	if c.CacheBackend != "memory" && c.CacheBackend != "redis" {
		return fmt.Errorf("CacheBackend must be \"memory\" or \"redis\", got %q", c.CacheBackend)
	}
	if c.CacheBackend == "redis" && c.RedisAddr == "" {
		return fmt.Errorf("RedisAddr is required when CacheBackend is \"redis\"")
	}

	return nil
}
