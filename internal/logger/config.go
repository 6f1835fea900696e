package logger

import (
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds logging configuration
type Config struct {
	Level          string `yaml:"level"`
	ConsoleEnabled *bool  `yaml:"console_enabled"`
	ConsoleFormat  string `yaml:"console_format"`
	// ConsoleStream is "stderr" or "stdout". levelgen writes maps and YAML to
	// stdout, so logs default to stderr.
	ConsoleStream  string `yaml:"console_stream"`
	FileEnabled    bool   `yaml:"file_enabled"`
	FilePath       string `yaml:"file_path"`
	FileFormat     string `yaml:"file_format"`
	FileMaxSizeMB  int    `yaml:"file_max_size_mb"`
	FileMaxBackups int    `yaml:"file_max_backups"`
	FileMaxAgeDays int    `yaml:"file_max_age_days"`
	FileCompress   bool   `yaml:"file_compress"`
}

// LoggingConfig wraps the Config for YAML parsing
type LoggingConfig struct {
	Logging Config `yaml:"logging"`
}

// DefaultConfig returns the logging defaults
func DefaultConfig() Config {
	enabled := true
	return Config{
		Level:          "INFO",
		ConsoleEnabled: &enabled,
		ConsoleFormat:  "text",
		ConsoleStream:  "stderr",
		FileEnabled:    false,
		FilePath:       "logs/levelgen.log",
		FileFormat:     "text",
		FileMaxSizeMB:  10,
		FileMaxBackups: 5,
		FileMaxAgeDays: 30,
	}
}

// Console reports whether console logging is on
func (c Config) Console() bool {
	return c.ConsoleEnabled == nil || *c.ConsoleEnabled
}

// LoadConfig loads logging configuration from a YAML file
// and applies environment variable overrides
func LoadConfig(configPath string) (Config, error) {
	config := DefaultConfig()

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err == nil {
			var loggingConfig LoggingConfig
			if err := yaml.Unmarshal(data, &loggingConfig); err == nil {
				config = config.merge(loggingConfig.Logging)
			}
		}
		// Silently use defaults if file doesn't exist or can't be parsed
	}

	return config.withEnv(), nil
}

// merge overlays the fields set in o. A missing console_enabled keeps the
// default instead of turning the console off.
func (c Config) merge(o Config) Config {
	if o.Level != "" {
		c.Level = o.Level
	}
	if o.ConsoleEnabled != nil {
		c.ConsoleEnabled = o.ConsoleEnabled
	}
	if o.ConsoleFormat != "" {
		c.ConsoleFormat = o.ConsoleFormat
	}
	if o.ConsoleStream != "" {
		c.ConsoleStream = o.ConsoleStream
	}
	c.FileEnabled = o.FileEnabled
	if o.FilePath != "" {
		c.FilePath = o.FilePath
	}
	if o.FileFormat != "" {
		c.FileFormat = o.FileFormat
	}
	if o.FileMaxSizeMB > 0 {
		c.FileMaxSizeMB = o.FileMaxSizeMB
	}
	if o.FileMaxBackups > 0 {
		c.FileMaxBackups = o.FileMaxBackups
	}
	if o.FileMaxAgeDays > 0 {
		c.FileMaxAgeDays = o.FileMaxAgeDays
	}
	c.FileCompress = o.FileCompress
	return c
}

func (c Config) withEnv() Config {
	if logLevel := os.Getenv("LOG_LEVEL"); logLevel != "" {
		c.Level = logLevel
	}

	if consoleFormat := os.Getenv("LOG_CONSOLE_FORMAT"); consoleFormat != "" {
		c.ConsoleFormat = consoleFormat
	}

	if fileEnabled := os.Getenv("LOG_FILE_ENABLED"); fileEnabled != "" {
		if enabled, err := strconv.ParseBool(fileEnabled); err == nil {
			c.FileEnabled = enabled
		}
	}

	if filePath := os.Getenv("LOG_FILE_PATH"); filePath != "" {
		c.FilePath = filePath
	}

	return c
}
