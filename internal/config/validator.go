package config

import (
	"fmt"
	"regexp"
)

// maxBatchWorkers caps the fan-out pool; batches never run unbounded.
const maxBatchWorkers = 64

// Validator validates configuration values
type Validator struct{}

// NewValidator creates a new validator
func NewValidator() *Validator {
	return &Validator{}
}

// Validate checks the whole configuration
func (v *Validator) Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config cannot be nil")
	}

	if err := v.ValidateLogLevel(cfg.Logging.Level); err != nil {
		return err
	}
	if err := v.ValidateBatchWorkers(cfg.Batch.Workers); err != nil {
		return err
	}
	if err := v.ValidateExcerptLimit(cfg.Audit.ExcerptLimit); err != nil {
		return err
	}
	return v.ValidateRedactionParams(cfg.Redaction.Params)
}

// ValidateLogLevel validates a log level name
func (v *Validator) ValidateLogLevel(level string) error {
	switch level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("invalid log level %q (expected debug, info, warn or error)", level)
	}
}

// ValidateBatchWorkers validates the batch worker pool size
func (v *Validator) ValidateBatchWorkers(workers int) error {
	if workers < 1 {
		return fmt.Errorf("batch workers must be at least 1, got %d", workers)
	}
	if workers > maxBatchWorkers {
		return fmt.Errorf("batch workers must not exceed %d, got %d", maxBatchWorkers, workers)
	}
	return nil
}

// ValidateExcerptLimit validates the audit excerpt byte cap
func (v *Validator) ValidateExcerptLimit(limit int) error {
	if limit < 1 {
		return fmt.Errorf("audit excerpt limit must be positive, got %d", limit)
	}
	return nil
}

// ValidateRedactionParams validates redacted parameter names
func (v *Validator) ValidateRedactionParams(params []string) error {
	name := regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	for _, p := range params {
		if !name.MatchString(p) {
			return fmt.Errorf("invalid redaction parameter name %q", p)
		}
	}
	return nil
}
