package config

import (
	"fmt"
	"net/url"
	"strings"
)

// Validate checks ranges and the endpoint URL.
func (c Config) Validate() error {
	var problems []string
	if c.Port <= 0 || c.Port > 65535 {
		problems = append(problems, fmt.Sprintf("port %d out of range", c.Port))
	}
	if strings.TrimSpace(c.UploadDir) == "" {
		problems = append(problems, "upload_dir must not be empty")
	}
	if c.NodeID < 0 || c.NodeID > 1023 {
		problems = append(problems, fmt.Sprintf("node_id %d must be within 0..1023", c.NodeID))
	}
	if u, err := url.Parse(c.LLM.Endpoint); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		problems = append(problems, fmt.Sprintf("llm.endpoint %q is not an absolute http(s) URL", c.LLM.Endpoint))
	}
	if c.LLM.TimeoutMS <= 0 {
		problems = append(problems, "llm.timeout_ms must be positive")
	}
	if c.LLM.MaxTokens <= 0 {
		problems = append(problems, "llm.max_tokens must be positive")
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		problems = append(problems, "llm.temperature must be within 0..2")
	}
	if c.Dispatch.Workers <= 0 {
		problems = append(problems, "dispatch.workers must be positive")
	}
	if c.Dispatch.QueueSize < 0 {
		problems = append(problems, "dispatch.queue_size must not be negative")
	}
	if c.Dispatch.ShutdownGraceMS < 0 {
		problems = append(problems, "dispatch.shutdown_grace_ms must not be negative")
	}
	if c.Image.MaxDimension < 0 {
		problems = append(problems, "image.max_dimension must not be negative")
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}
