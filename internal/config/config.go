package config

// Config represents the main toolpipe configuration
type Config struct {
	// Data directory for the audit database and logs
	DataDir string `json:"data_dir" mapstructure:"data_dir"`

	// Logging
	Logging LoggingConfig `json:"logging" mapstructure:"logging"`

	// Audit trail persistence
	Audit AuditConfig `json:"audit" mapstructure:"audit"`

	// Batch fan-out
	Batch BatchConfig `json:"batch" mapstructure:"batch"`

	// Redaction of parameter values before logging
	Redaction RedactionConfig `json:"redaction" mapstructure:"redaction"`
}

// LoggingConfig holds logger configuration
type LoggingConfig struct {
	Level   string `json:"level" mapstructure:"level"` // debug, info, warn, error
	File    string `json:"file" mapstructure:"file"`
	Console bool   `json:"console" mapstructure:"console"`
	Pretty  bool   `json:"pretty" mapstructure:"pretty"`
}

// AuditConfig holds invocation-record persistence configuration
type AuditConfig struct {
	DBPath string `json:"db_path" mapstructure:"db_path"`
	// ExcerptLimit caps the size in bytes of persisted input/output excerpts
	ExcerptLimit int `json:"excerpt_limit" mapstructure:"excerpt_limit"`
}

// BatchConfig bounds batch fan-out concurrency
type BatchConfig struct {
	// Workers is the size of the per-batch worker pool. Unbounded
	// concurrency is not supported; the validator rejects values < 1.
	Workers int `json:"workers" mapstructure:"workers"`
}

// RedactionConfig configures masking of sensitive parameter values in
// audit excerpts and log lines.
type RedactionConfig struct {
	Enabled bool `json:"enabled" mapstructure:"enabled"`
	// Params lists parameter names whose values are masked before they
	// reach the audit trail.
	Params []string `json:"params" mapstructure:"params"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:   "info",
			Console: true,
			Pretty:  true,
		},
		Audit: AuditConfig{
			ExcerptLimit: 4096,
		},
		Batch: BatchConfig{
			Workers: 4,
		},
		Redaction: RedactionConfig{
			Enabled: true,
		},
	}
}
