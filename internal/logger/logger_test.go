package logger

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected slog.Level
	}{
		{"DEBUG", slog.LevelDebug},
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"WARNING", slog.LevelWarn},
		{"WARN", slog.LevelWarn},
		{"ERROR", slog.LevelError},
		{"invalid", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := parseLogLevel(tt.input)
			if result != tt.expected {
				t.Errorf("parseLogLevel(%q) = %v, want %v", tt.input, result, tt.expected)
			}
		})
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	config, err := LoadConfig("nonexistent.yaml")
	if err != nil {
		t.Fatalf("LoadConfig returned error for missing file: %v", err)
	}

	if config.Level != "INFO" {
		t.Errorf("Default level = %q, want %q", config.Level, "INFO")
	}
	if !config.Console() {
		t.Error("Default console = off, want on")
	}
	if config.ConsoleStream != "stderr" {
		t.Errorf("Default ConsoleStream = %q, want stderr", config.ConsoleStream)
	}
	if config.FileEnabled {
		t.Error("Default FileEnabled = true, want false")
	}
	if config.FilePath != "logs/levelgen.log" {
		t.Errorf("Default FilePath = %q, want %q", config.FilePath, "logs/levelgen.log")
	}
}

func TestLoadConfigFromYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logging.yaml")
	yamlContent := `logging:
  level: DEBUG
  console_format: json
  file_enabled: true
  file_path: test.log
  file_max_size_mb: 20
`
	if err := os.WriteFile(path, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	config, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}

	if config.Level != "DEBUG" {
		t.Errorf("Level = %q, want %q", config.Level, "DEBUG")
	}
	if config.ConsoleFormat != "json" {
		t.Errorf("ConsoleFormat = %q, want %q", config.ConsoleFormat, "json")
	}
	if !config.Console() {
		t.Error("console_enabled missing from YAML should keep the default")
	}
	if !config.FileEnabled || config.FilePath != "test.log" || config.FileMaxSizeMB != 20 {
		t.Errorf("file settings = %v %q %d", config.FileEnabled, config.FilePath, config.FileMaxSizeMB)
	}
	if config.FileMaxBackups != 5 {
		t.Errorf("FileMaxBackups = %d, want default 5", config.FileMaxBackups)
	}
}

func TestLoadConfigConsoleDisabled(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logging.yaml")
	if err := os.WriteFile(path, []byte("logging:\n  console_enabled: false\n"), 0644); err != nil {
		t.Fatal(err)
	}
	config, _ := LoadConfig(path)
	if config.Console() {
		t.Error("console_enabled: false was ignored")
	}
}

func TestEnvVarOverride(t *testing.T) {
	t.Setenv("LOG_LEVEL", "ERROR")
	t.Setenv("LOG_CONSOLE_FORMAT", "json")
	t.Setenv("LOG_FILE_ENABLED", "true")
	t.Setenv("LOG_FILE_PATH", "/custom/path.log")

	config, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}

	if config.Level != "ERROR" {
		t.Errorf("Level = %q, want %q (from env var)", config.Level, "ERROR")
	}
	if config.ConsoleFormat != "json" {
		t.Errorf("ConsoleFormat = %q, want %q (from env var)", config.ConsoleFormat, "json")
	}
	if !config.FileEnabled {
		t.Error("FileEnabled = false, want true (from env var)")
	}
	if config.FilePath != "/custom/path.log" {
		t.Errorf("FilePath = %q, want %q (from env var)", config.FilePath, "/custom/path.log")
	}
}

func TestInitializeRejectsUnknownStream(t *testing.T) {
	config := DefaultConfig()
	config.ConsoleStream = "printer"
	if err := Initialize(config); err == nil {
		t.Error("Initialize accepted an unknown console stream")
	}
}

func TestInitializeWritesFile(t *testing.T) {
	defer SetHandler()

	off := false
	config := DefaultConfig()
	config.ConsoleEnabled = &off
	config.FileEnabled = true
	config.FilePath = filepath.Join(t.TempDir(), "levelgen.log")
	if err := Initialize(config); err != nil {
		t.Fatal(err)
	}

	Info("Level generation finished", "rooms", 20)

	data, err := os.ReadFile(config.FilePath)
	if err != nil {
		t.Fatalf("log file not written: %v", err)
	}
	if !strings.Contains(string(data), "rooms=20") {
		t.Errorf("log file = %q", data)
	}
}

func TestLevelFiltering(t *testing.T) {
	defer SetHandler()

	var buf bytes.Buffer
	SetHandler(newHandler(&buf, "text", slog.LevelError))

	Debug("Debug message")
	Info("Info message")
	Warning("Warning")
	Error("Error message")
	Always("Always message")

	output := buf.String()

	for _, hidden := range []string{"Debug message", "Info message", "Warning"} {
		if strings.Contains(output, hidden) {
			t.Errorf("%q appeared when level is ERROR", hidden)
		}
	}
	if !strings.Contains(output, "Error message") {
		t.Error("ERROR message missing from output")
	}
	if !strings.Contains(output, "level=ALWAYS") {
		t.Errorf("ALWAYS record missing or mislabelled: %s", output)
	}
	if DebugEnabled() {
		t.Error("DebugEnabled() = true at ERROR level")
	}
}

func TestJSONFormat(t *testing.T) {
	defer SetHandler()

	var buf bytes.Buffer
	SetHandler(newHandler(&buf, "json", slog.LevelDebug))

	Infof("Placed %d rooms", 7)
	Debug("Room placed", "room", 3, "template", "junction")

	output := buf.String()
	if !strings.Contains(output, `"msg":"Placed 7 rooms"`) {
		t.Errorf("Infof output incorrect: %s", output)
	}
	if !strings.Contains(output, `"room":3`) || !strings.Contains(output, `"template":"junction"`) {
		t.Errorf("structured fields missing: %s", output)
	}
	if !DebugEnabled() {
		t.Error("DebugEnabled() = false at DEBUG level")
	}
}

func TestMultiHandler(t *testing.T) {
	defer SetHandler()

	var info, debug bytes.Buffer
	SetHandler(
		newHandler(&info, "text", slog.LevelInfo),
		newHandler(&debug, "text", slog.LevelDebug),
	)

	Debug("Generator state changed", "to", "primary_wave")
	Warningf("Stalled after %d rooms", 4)

	if strings.Contains(info.String(), "Generator state changed") {
		t.Error("info handler received a debug record")
	}
	if !strings.Contains(debug.String(), "to=primary_wave") {
		t.Error("debug handler missing debug record")
	}
	for _, out := range []string{info.String(), debug.String()} {
		if !strings.Contains(out, "Stalled after 4 rooms") {
			t.Errorf("warning missing from %q", out)
		}
	}
}

func TestNilLogger(t *testing.T) {
	SetHandler()

	defer func() {
		if r := recover(); r != nil {
			t.Errorf("Logging with nil logger caused panic: %v", r)
		}
	}()

	Debug("debug")
	Info("info")
	Warning("warning")
	Error("error")
	Always("always")
}
