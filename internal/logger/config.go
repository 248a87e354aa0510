package logger

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	DefaultLevel  string                  `yaml:"default_level" json:"default_level" mapstructure:"default_level"` // default log level for all modules
	Timezone      string                  `yaml:"timezone" json:"timezone" mapstructure:"timezone"`                // "Local", "UTC", or IANA timezone name
	Console       *ConsoleOutput          `yaml:"console" json:"console" mapstructure:"console"`                   // console output configuration
	FileOutput    *FileOutput             `yaml:"file_output" json:"file_output" mapstructure:"file_output"`       // file output configuration
	ModuleOutputs map[string]ModuleOutput `yaml:"modules" json:"modules" mapstructure:"modules"`                   // per-module output configuration
	ModuleLevels  map[string]string       `yaml:"module_levels" json:"module_levels" mapstructure:"module_levels"` // per-module log levels
}

// ConsoleOutput represents console logging configuration.
// Console output uses text format without timestamps; the execution
// environment (journald, Docker) adds them.
type ConsoleOutput struct {
	Enabled bool   `yaml:"enabled" json:"enabled" mapstructure:"enabled"`
	Level   string `yaml:"level" json:"level" mapstructure:"level"`
}

// FileOutput represents file logging configuration.
// File output uses JSON format with RFC3339 timestamps.
type FileOutput struct {
	Enabled bool   `yaml:"enabled" json:"enabled" mapstructure:"enabled"`
	Path    string `yaml:"path" json:"path" mapstructure:"path"`
	Level   string `yaml:"level" json:"level" mapstructure:"level"`
}

// ModuleOutput represents per-module output configuration
type ModuleOutput struct {
	Enabled     bool   `yaml:"enabled" json:"enabled" mapstructure:"enabled"`                // enable module-specific output
	FilePath    string `yaml:"file_path" json:"file_path" mapstructure:"file_path"`          // dedicated file path for this module
	Level       string `yaml:"level" json:"level" mapstructure:"level"`                      // log level override for this module
	ConsoleAlso bool   `yaml:"console_also" json:"console_also" mapstructure:"console_also"` // also log to console
}

// Default values for logging configuration.
// These match the logging defaults in conf.
const (
	DefaultLogLevel        = "info"
	DefaultLogPath         = "logs/wildlife.log"
	DefaultAccessLogPath   = "logs/access.log"
	DefaultUpstreamLogPath = "logs/upstream.log"
	DefaultConsoleEnabled  = true
	DefaultFileEnabled     = false
)

func ensureModuleOutput(cfg *LoggingConfig, module, filePath string) {
	if _, exists := cfg.ModuleOutputs[module]; !exists {
		cfg.ModuleOutputs[module] = ModuleOutput{
			Enabled:  true,
			FilePath: filePath,
			Level:    DefaultLogLevel,
		}
	}
}

// applyConfigDefaults fills nil sections so that a config without a logging
// section still gets console output.
func applyConfigDefaults(cfg *LoggingConfig) {
	if cfg == nil {
		return
	}

	if cfg.DefaultLevel == "" {
		cfg.DefaultLevel = DefaultLogLevel
	}

	if cfg.Console == nil {
		cfg.Console = &ConsoleOutput{
			Enabled: DefaultConsoleEnabled,
			Level:   DefaultLogLevel,
		}
	}

	if cfg.FileOutput == nil {
		cfg.FileOutput = &FileOutput{
			Enabled: DefaultFileEnabled,
			Path:    DefaultLogPath,
			Level:   DefaultLogLevel,
		}
	}

	if cfg.ModuleOutputs == nil {
		cfg.ModuleOutputs = make(map[string]ModuleOutput)
	}

	// Dedicated files only make sense when file logging is on at all
	if !cfg.FileOutput.Enabled {
		return
	}

	// HTTP request logs
	ensureModuleOutput(cfg, "api", DefaultAccessLogPath)

	// Calls to the model provider and the encyclopedia
	ensureModuleOutput(cfg, "classifier", DefaultUpstreamLogPath)
	ensureModuleOutput(cfg, "wikipedia", DefaultUpstreamLogPath)
}
