package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rupor-github/gencfg"
)

func TestLoadConfiguration_NoFile(t *testing.T) {
	cfg, err := LoadConfiguration("")
	if err != nil {
		t.Fatalf("LoadConfiguration() with empty path error = %v", err)
	}

	if cfg == nil {
		t.Fatal("LoadConfiguration() returned nil config")
	}

	if cfg.Version != 1 {
		t.Errorf("Default config version = %d, want 1", cfg.Version)
	}
}

func TestLoadConfiguration_ConversionDefaults(t *testing.T) {
	cfg, err := LoadConfiguration("")
	if err != nil {
		t.Fatalf("LoadConfiguration() error = %v", err)
	}

	conv := cfg.Conversion
	if conv.BaseSize != 24 {
		t.Errorf("BaseSize = %v, want 24", conv.BaseSize)
	}
	if conv.RIUnit != "rem" {
		t.Errorf("RIUnit = %q, want \"rem\"", conv.RIUnit)
	}
	if conv.Unit != "px" {
		t.Errorf("Unit = %q, want \"px\"", conv.Unit)
	}
	if conv.AbsoluteUnit != "apx" {
		t.Errorf("AbsoluteUnit = %q, want \"apx\"", conv.AbsoluteUnit)
	}
	if conv.MinUnitSize != 1 {
		t.Errorf("MinUnitSize = %v, want 1", conv.MinUnitSize)
	}
	if conv.MinSize != 16 {
		t.Errorf("MinSize = %v, want 16", conv.MinSize)
	}
	if conv.Precision != 5 {
		t.Errorf("Precision = %d, want 5", conv.Precision)
	}

	want := []string{"background", "background-position", "background-size", "border-radius", "box-shadow", "transform-origin"}
	if len(conv.GroupedProperties) != len(want) {
		t.Fatalf("GroupedProperties = %v, want %v", conv.GroupedProperties, want)
	}
	for i, name := range want {
		if conv.GroupedProperties[i] != name {
			t.Errorf("GroupedProperties[%d] = %q, want %q", i, conv.GroupedProperties[i], name)
		}
	}

	if cfg.Processing.OnError != OnErrorFail {
		t.Errorf("OnError = %v, want OnErrorFail", cfg.Processing.OnError)
	}
	if !cfg.Processing.SVG.Enable {
		t.Error("Expected SVG processing to be enabled by default")
	}
	if cfg.Processing.FixZip {
		t.Error("Expected FixZip to be false by default")
	}
}

func TestLoadConfiguration_WithFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `version: 1
conversion:
  base_size: 12
  ri_unit: vw
  min_size: 8
  grouped_properties: ["padding", "margin"]
processing:
  fix_zip: true
  on_error: keep
logging:
  console:
    level: normal
  file:
    level: debug
    destination: ` + filepath.Join(tmpDir, "test.log") + `
    mode: append
reporting:
  destination: ` + filepath.Join(tmpDir, "test-report.zip") + `
`

	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err := LoadConfiguration(configPath)
	if err != nil {
		t.Fatalf("LoadConfiguration() error = %v", err)
	}

	if cfg.Version != 1 {
		t.Errorf("Version = %d, want 1", cfg.Version)
	}

	if cfg.Conversion.BaseSize != 12 {
		t.Errorf("BaseSize = %v, want 12", cfg.Conversion.BaseSize)
	}
	if cfg.Conversion.RIUnit != "vw" {
		t.Errorf("RIUnit = %q, want \"vw\"", cfg.Conversion.RIUnit)
	}
	if cfg.Conversion.MinSize != 8 {
		t.Errorf("MinSize = %v, want 8", cfg.Conversion.MinSize)
	}

	// values not mentioned in the file keep template defaults
	if cfg.Conversion.Unit != "px" {
		t.Errorf("Unit = %q, want template default \"px\"", cfg.Conversion.Unit)
	}
	if cfg.Conversion.Precision != 5 {
		t.Errorf("Precision = %d, want template default 5", cfg.Conversion.Precision)
	}

	if len(cfg.Conversion.GroupedProperties) != 2 {
		t.Fatalf("GroupedProperties = %v, want replacement from file", cfg.Conversion.GroupedProperties)
	}
	if cfg.Conversion.GroupedProperties[0] != "padding" || cfg.Conversion.GroupedProperties[1] != "margin" {
		t.Errorf("GroupedProperties = %v, want [padding margin]", cfg.Conversion.GroupedProperties)
	}

	if !cfg.Processing.FixZip {
		t.Error("Expected FixZip to be true")
	}
	if cfg.Processing.OnError != OnErrorKeep {
		t.Errorf("OnError = %v, want OnErrorKeep", cfg.Processing.OnError)
	}

	if cfg.Logging.FileLogger.Level != "debug" {
		t.Errorf("FileLogger.Level = %q, want \"debug\"", cfg.Logging.FileLogger.Level)
	}
	if cfg.Logging.FileLogger.Mode != "append" {
		t.Errorf("FileLogger.Mode = %q, want \"append\"", cfg.Logging.FileLogger.Mode)
	}
}

func TestLoadConfiguration_NonExistentFile(t *testing.T) {
	_, err := LoadConfiguration(filepath.Join(t.TempDir(), "nonexistent", "config.yaml"))
	if err == nil {
		t.Error("Expected error for nonexistent file")
	}
}

func TestLoadConfiguration_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid.yaml")

	invalidYAML := `version: 1
processing:
  fix_zip: true
  invalid indent
`

	if err := os.WriteFile(configPath, []byte(invalidYAML), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	_, err := LoadConfiguration(configPath)
	if err == nil {
		t.Error("Expected error for invalid YAML")
	}
}

func TestLoadConfiguration_UnknownFields(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "unknown.yaml")

	configWithUnknown := `version: 1
unknown_field: value
processing:
  fix_zip: true
`

	if err := os.WriteFile(configPath, []byte(configWithUnknown), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	_, err := LoadConfiguration(configPath)
	if err == nil {
		t.Error("Expected error for unknown fields")
	}
}

func TestLoadConfiguration_ValidationError(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid_values.yaml")

	// Invalid version number
	configWithInvalidVersion := `version: 2
processing:
  fix_zip: true
`

	if err := os.WriteFile(configPath, []byte(configWithInvalidVersion), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	_, err := LoadConfiguration(configPath)
	if err == nil {
		t.Error("Expected validation error for invalid version")
	}
}

func TestLoadConfiguration_UnitsMustDiffer(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "same_units.yaml")

	// source and absolute units collapse into each other
	configContent := `version: 1
conversion:
  unit: apx
`

	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	_, err := LoadConfiguration(configPath)
	if err == nil {
		t.Error("Expected validation error for identical source and absolute units")
	}
}

func TestLoadConfiguration_NegativeBaseSize(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "bad_base.yaml")

	configContent := `version: 1
conversion:
  base_size: -1
`

	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	_, err := LoadConfiguration(configPath)
	if err == nil {
		t.Error("Expected validation error for negative base size")
	}
}

func TestLoadConfiguration_BadOnError(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "bad_on_error.yaml")

	configContent := `version: 1
processing:
  on_error: explode
`

	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	_, err := LoadConfiguration(configPath)
	if err == nil {
		t.Fatal("Expected error for unknown on_error value")
	}
	if !strings.Contains(err.Error(), "not a valid OnError") {
		t.Errorf("Expected enum parse error, got: %v", err)
	}
}

func TestLoadConfiguration_WithOptions(t *testing.T) {
	option := func(opts *gencfg.ProcessingOptions) {
		// Options are opaque, just test that we can pass them
	}

	cfg, err := LoadConfiguration("", option)
	if err != nil {
		t.Fatalf("LoadConfiguration() with options error = %v", err)
	}

	if cfg == nil {
		t.Fatal("LoadConfiguration() returned nil config")
	}
}

func TestLoadConfiguration_MergeWithDefaults(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "partial.yaml")

	// Partial config that only overrides some values
	partialConfig := `version: 1
processing:
  file_name_transliterate: true
`

	if err := os.WriteFile(configPath, []byte(partialConfig), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err := LoadConfiguration(configPath)
	if err != nil {
		t.Fatalf("LoadConfiguration() error = %v", err)
	}

	// Check that explicitly set value is used
	if !cfg.Processing.FileNameTransliterate {
		t.Error("Expected FileNameTransliterate to be true from config file")
	}

	// Check that default values are still present for unspecified fields
	if cfg.Conversion.BaseSize != 24 {
		t.Errorf("BaseSize = %v, want template default 24", cfg.Conversion.BaseSize)
	}
	if len(cfg.Conversion.GroupedProperties) == 0 {
		t.Error("GroupedProperties should keep template defaults")
	}
}

func TestPrepare(t *testing.T) {
	data, err := Prepare()
	if err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}

	if len(data) == 0 {
		t.Error("Prepare() returned empty data")
	}

	// Verify it's valid YAML by trying to unmarshal
	cfg := &Config{}
	_, err = unmarshalConfig(data, cfg, true)
	if err != nil {
		t.Errorf("Prepared config is not valid: %v", err)
	}
}

func TestDump(t *testing.T) {
	cfg := &Config{
		Version: 1,
		Conversion: ConversionConfig{
			BaseSize:          24,
			RIUnit:            "rem",
			Unit:              "px",
			AbsoluteUnit:      "apx",
			MinUnitSize:       1,
			MinSize:           16,
			Precision:         5,
			GroupedProperties: []string{"background"},
		},
		Processing: ProcessingConfig{
			FixZip:  true,
			OnError: OnErrorSkip,
		},
	}

	data, err := Dump(cfg)
	if err != nil {
		t.Fatalf("Dump() error = %v", err)
	}

	if len(data) == 0 {
		t.Error("Dump() returned empty data")
	}

	// enums are written in their text form
	if !strings.Contains(string(data), "on_error: skip") {
		t.Errorf("Dump() output does not carry enum text form:\n%s", string(data))
	}

	// Verify we can load it back
	cfg2 := &Config{}
	_, err = unmarshalConfig(data, cfg2, false)
	if err != nil {
		t.Errorf("Dumped config cannot be loaded: %v", err)
	}

	if cfg2.Version != cfg.Version {
		t.Errorf("Version mismatch after dump/load: got %d, want %d", cfg2.Version, cfg.Version)
	}
	if cfg2.Processing.OnError != OnErrorSkip {
		t.Errorf("OnError after dump/load = %v, want OnErrorSkip", cfg2.Processing.OnError)
	}
}

func TestUnmarshalConfig(t *testing.T) {
	t.Run("valid config without processing", func(t *testing.T) {
		data := []byte(`version: 1`)
		cfg := &Config{}

		result, err := unmarshalConfig(data, cfg, false)
		if err != nil {
			t.Errorf("unmarshalConfig() error = %v", err)
		}

		if result == nil {
			t.Fatal("unmarshalConfig() returned nil")
		}

		if result.Version != 1 {
			t.Errorf("Version = %d, want 1", result.Version)
		}
	})

	t.Run("invalid yaml", func(t *testing.T) {
		data := []byte(`invalid: [yaml`)
		cfg := &Config{}

		_, err := unmarshalConfig(data, cfg, false)
		if err == nil {
			t.Error("Expected error for invalid YAML")
		}
	})
}

func TestOnError_String(t *testing.T) {
	tests := []struct {
		value    OnError
		expected string
	}{
		{OnErrorFail, "fail"},
		{OnErrorKeep, "keep"},
		{OnErrorSkip, "skip"},
		{OnError(99), "OnError(99)"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			got := tt.value.String()
			if got != tt.expected {
				t.Errorf("String() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestOnError_IsValid(t *testing.T) {
	tests := []struct {
		value OnError
		valid bool
	}{
		{OnErrorFail, true},
		{OnErrorKeep, true},
		{OnErrorSkip, true},
		{OnError(99), false},
		{OnError(-1), false},
	}

	for _, tt := range tests {
		t.Run(tt.value.String(), func(t *testing.T) {
			got := tt.value.IsValid()
			if got != tt.valid {
				t.Errorf("IsValid() = %v, want %v", got, tt.valid)
			}
		})
	}
}

func TestParseOnError(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		expected  OnError
		shouldErr bool
	}{
		{"fail lowercase", "fail", OnErrorFail, false},
		{"FAIL uppercase", "FAIL", OnErrorFail, false},
		{"keep", "keep", OnErrorKeep, false},
		{"skip", "skip", OnErrorSkip, false},
		{"invalid", "invalid", OnError(0), true},
		{"empty", "", OnError(0), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseOnError(tt.input)
			if tt.shouldErr {
				if err == nil {
					t.Error("Expected error, got nil")
				}
			} else {
				if err != nil {
					t.Errorf("Unexpected error: %v", err)
				}
				if got != tt.expected {
					t.Errorf("ParseOnError(%q) = %v, want %v", tt.input, got, tt.expected)
				}
			}
		})
	}
}

func TestMustParseOnError(t *testing.T) {
	t.Run("valid value", func(t *testing.T) {
		defer func() {
			if r := recover(); r != nil {
				t.Errorf("MustParseOnError panicked unexpectedly: %v", r)
			}
		}()
		got := MustParseOnError("keep")
		if got != OnErrorKeep {
			t.Errorf("MustParseOnError(\"keep\") = %v, want %v", got, OnErrorKeep)
		}
	})

	t.Run("invalid value panics", func(t *testing.T) {
		defer func() {
			if r := recover(); r == nil {
				t.Error("MustParseOnError should have panicked")
			}
		}()
		MustParseOnError("invalid")
	})
}

func TestOnError_MarshalText(t *testing.T) {
	tests := []struct {
		value    OnError
		expected string
	}{
		{OnErrorFail, "fail"},
		{OnErrorKeep, "keep"},
		{OnErrorSkip, "skip"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			got, err := tt.value.MarshalText()
			if err != nil {
				t.Errorf("MarshalText() error = %v", err)
			}
			if string(got) != tt.expected {
				t.Errorf("MarshalText() = %q, want %q", string(got), tt.expected)
			}
		})
	}
}

func TestOnError_UnmarshalText(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		expected  OnError
		shouldErr bool
	}{
		{"fail", "fail", OnErrorFail, false},
		{"keep", "keep", OnErrorKeep, false},
		{"skip", "skip", OnErrorSkip, false},
		{"invalid", "invalid", OnError(0), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var v OnError
			err := v.UnmarshalText([]byte(tt.input))
			if tt.shouldErr {
				if err == nil {
					t.Error("Expected error, got nil")
				}
			} else {
				if err != nil {
					t.Errorf("UnmarshalText() error = %v", err)
				}
				if v != tt.expected {
					t.Errorf("UnmarshalText(%q) = %v, want %v", tt.input, v, tt.expected)
				}
			}
		})
	}
}

func TestOnErrorNames(t *testing.T) {
	names := OnErrorNames()
	expected := []string{"fail", "keep", "skip"}

	if len(names) != len(expected) {
		t.Errorf("OnErrorNames() length = %d, want %d", len(names), len(expected))
	}

	for i, name := range expected {
		if names[i] != name {
			t.Errorf("OnErrorNames()[%d] = %q, want %q", i, names[i], name)
		}
	}
}

func TestCleanFileName(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", "style.css", "style.css"},
		{"separator stripped", "a" + string(os.PathSeparator) + "b.css", "ab.css"},
		{"empty becomes placeholder", "", "_bad_file_name_"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CleanFileName(tt.input); got != tt.want {
				t.Errorf("CleanFileName(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
