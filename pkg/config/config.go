// Package config loads server settings from defaults, an optional YAML file
// and the environment (later sources win).
package config

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the complete server configuration.
type Config struct {
	Port      int    `yaml:"port"`
	UploadDir string `yaml:"upload_dir"`
	NodeID    int64  `yaml:"node_id"` // snowflake node, 0..1023

	LLM      LLMConfig      `yaml:"llm"`
	Dispatch DispatchConfig `yaml:"dispatch"`
	Image    ImageConfig    `yaml:"image"`

	DeviceTokenSecret string `yaml:"device_token_secret"` // empty disables upload auth
}

// LLMConfig describes the chat completions endpoint.
type LLMConfig struct {
	Endpoint    string  `yaml:"endpoint"`
	Model       string  `yaml:"model"`
	APIKey      string  `yaml:"api_key"`
	TimeoutMS   int     `yaml:"timeout_ms"`
	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float64 `yaml:"temperature"`
}

// DispatchConfig bounds background analysis.
type DispatchConfig struct {
	Workers         int `yaml:"workers"`
	QueueSize       int `yaml:"queue_size"`
	ShutdownGraceMS int `yaml:"shutdown_grace_ms"`
}

// ImageConfig controls what is sent to the model.
type ImageConfig struct {
	MaxDimension int  `yaml:"max_dimension"` // 0 sends the original upload
	LabelOCR     bool `yaml:"label_ocr"`
}

// Timeout is the per-call model timeout.
func (c LLMConfig) Timeout() time.Duration { return time.Duration(c.TimeoutMS) * time.Millisecond }

// ShutdownGrace is how long in-flight analyses may run after a stop signal.
func (c DispatchConfig) ShutdownGrace() time.Duration {
	return time.Duration(c.ShutdownGraceMS) * time.Millisecond
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Port:      3000,
		UploadDir: "uploads",
		NodeID:    1,
		LLM: LLMConfig{
			Endpoint:    "http://127.0.0.1:1234/v1/chat/completions",
			Model:       "gemma-3-27b-it",
			TimeoutMS:   120000,
			MaxTokens:   512,
			Temperature: 0.2,
		},
		Dispatch: DispatchConfig{
			Workers:         4,
			QueueSize:       32,
			ShutdownGraceMS: 10000,
		},
	}
}

// Load builds the configuration: .env, defaults, CONFIG_FILE, environment.
func Load() (Config, error) {
	LoadDotEnv(".env")
	cfg := Default()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return Config{}, err
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	var errs []string
	str := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok {
			*dst = v
		}
	}
	num := func(key string, dst *int) {
		if v, ok := os.LookupEnv(key); ok {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Sprintf("%s: not an integer", key))
				return
			}
			*dst = n
		}
	}
	str("UPLOAD_BASE", &c.UploadDir)
	str("LLM_ENDPOINT", &c.LLM.Endpoint)
	str("LLM_MODEL", &c.LLM.Model)
	str("LLM_API_KEY", &c.LLM.APIKey)
	str("DEVICE_TOKEN_SECRET", &c.DeviceTokenSecret)
	num("PORT", &c.Port)
	num("LLM_TIMEOUT_MS", &c.LLM.TimeoutMS)
	num("LLM_MAX_TOKENS", &c.LLM.MaxTokens)
	num("DISPATCH_WORKERS", &c.Dispatch.Workers)
	num("DISPATCH_QUEUE", &c.Dispatch.QueueSize)
	num("SHUTDOWN_GRACE_MS", &c.Dispatch.ShutdownGraceMS)
	num("IMAGE_MAX_DIM", &c.Image.MaxDimension)
	if v, ok := os.LookupEnv("NODE_ID"); ok {
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			errs = append(errs, "NODE_ID: not an integer")
		} else {
			c.NodeID = n
		}
	}
	if v, ok := os.LookupEnv("LLM_TEMPERATURE"); ok {
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			errs = append(errs, "LLM_TEMPERATURE: not a number")
		} else {
			c.LLM.Temperature = f
		}
	}
	if v, ok := os.LookupEnv("LABEL_OCR"); ok {
		lv := strings.ToLower(strings.TrimSpace(v))
		c.Image.LabelOCR = lv == "true" || lv == "1" || lv == "yes"
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid environment: %s", strings.Join(errs, "; "))
	}
	return nil
}

// LoadDotEnv loads key=value pairs from a local .env file into the environment
// without overwriting variables that are already set. Lines starting with # are ignored.
func LoadDotEnv(path string) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return // no .env file
	}
	defer f.Close()
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "export ")
		// split on first '='
		if eq := strings.IndexByte(line, '='); eq > 0 {
			key := strings.TrimSpace(line[:eq])
			val := strings.Trim(strings.TrimSpace(line[eq+1:]), `"'`)
			if _, exists := os.LookupEnv(key); !exists {
				_ = os.Setenv(key, val)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		log.Printf("WARN reading %s: %v", path, err)
	}
}
