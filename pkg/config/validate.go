package config

import (
	"fmt"
	"os"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/hay-kot/criterio"
	"github.com/rs/zerolog"
)

// Strategies accepted by synthesis.strategy.
var validStrategies = map[string]bool{
	"conservative": true,
	"balanced":     true,
	"creative":     true,
}

var validFormats = map[string]bool{
	"text":     true,
	"json":     true,
	"yaml":     true,
	"markdown": true,
	"toon":     true,
}

// Validate checks structural constraints and returns all field errors at once.
func (c *Config) Validate() error {
	return criterio.ValidateStruct(
		c.validateSession(),
		c.validateRates(),
		c.validateScan(),
		c.validatePatterns(),
		criterio.Run("synthesis.strategy", c.Synthesis.Strategy, oneOf(validStrategies)),
		criterio.Run("output.format", c.Output.Format, oneOf(validFormats)),
		criterio.Run("log.level", c.Log.Level, logLevel),
		criterio.Run("data_dir", c.DataDir, isDirectoryOrNotExist),
	)
}

func (c *Config) validateSession() error {
	var errs criterio.FieldErrorsBuilder
	s := c.Session
	if s.MaxActionsPerSession < 1 {
		errs = errs.Append("session.max_actions_per_session", fmt.Errorf("must be at least 1"))
	}
	if s.SessionTimeoutMinutes < 1 {
		errs = errs.Append("session.session_timeout_minutes", fmt.Errorf("must be at least 1"))
	}
	if s.SafetyThreshold < 0 || s.SafetyThreshold > 1 {
		errs = errs.Append("session.safety_threshold", fmt.Errorf("must be between 0 and 1, got %v", s.SafetyThreshold))
	}
	if s.AutoApproveThreshold < 0 || s.AutoApproveThreshold > 1 {
		errs = errs.Append("session.auto_approve_threshold", fmt.Errorf("must be between 0 and 1, got %v", s.AutoApproveThreshold))
	}
	if s.MaxRetries < 0 {
		errs = errs.Append("session.max_retries", fmt.Errorf("cannot be negative"))
	}
	if s.RetryDelaySeconds < 0 {
		errs = errs.Append("session.retry_delay_seconds", fmt.Errorf("cannot be negative"))
	}
	return errs.ToError()
}

func (c *Config) validateRates() error {
	var errs criterio.FieldErrorsBuilder
	if c.RateLimiting.MaxActionsPerMinute < 1 {
		errs = errs.Append("rate_limiting.max_actions_per_minute", fmt.Errorf("must be at least 1"))
	}
	if c.RateLimiting.CooldownSeconds < 0 {
		errs = errs.Append("rate_limiting.cooldown_seconds", fmt.Errorf("cannot be negative"))
	}
	for field, v := range map[string]int{
		"timeouts.list_seconds":    c.Timeouts.ListSeconds,
		"timeouts.context_seconds": c.Timeouts.ContextSeconds,
		"timeouts.pattern_seconds": c.Timeouts.PatternSeconds,
		"timeouts.action_seconds":  c.Timeouts.ActionSeconds,
	} {
		if v < 1 {
			errs = errs.Append(field, fmt.Errorf("must be at least 1"))
		}
	}
	return errs.ToError()
}

func (c *Config) validateScan() error {
	var errs criterio.FieldErrorsBuilder
	for i, p := range c.Scan.FilePatterns {
		if !doublestar.ValidatePattern(p) {
			errs = errs.Append(fmt.Sprintf("scan.file_patterns[%d]", i), fmt.Errorf("invalid glob %q", p))
		}
	}
	if c.Scan.ContextLines < 0 {
		errs = errs.Append("scan.context_lines", fmt.Errorf("cannot be negative"))
	}
	if c.Scan.Workers < 0 {
		errs = errs.Append("scan.workers", fmt.Errorf("cannot be negative"))
	}
	return errs.ToError()
}

func (c *Config) validatePatterns() error {
	var errs criterio.FieldErrorsBuilder
	for id, v := range c.Patterns.Confidence {
		if v < 0 || v > 1 {
			errs = errs.Append("patterns.confidence."+id, fmt.Errorf("must be between 0 and 1, got %v", v))
		}
	}
	return errs.ToError()
}

func oneOf(allowed map[string]bool) func(string) error {
	return func(v string) error {
		if !allowed[v] {
			return fmt.Errorf("unsupported value %q", v)
		}
		return nil
	}
}

func logLevel(v string) error {
	if v == "" {
		return nil
	}
	if _, err := zerolog.ParseLevel(v); err != nil {
		return fmt.Errorf("unknown level %q", v)
	}
	return nil
}

// isDirectoryOrNotExist validates that a path is a directory or doesn't exist.
func isDirectoryOrNotExist(path string) error {
	if path == "" {
		return fmt.Errorf("cannot be empty")
	}
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("cannot access: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("exists but is not a directory")
	}
	return nil
}
