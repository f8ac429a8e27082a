package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultSimConfig(t *testing.T) {
	cfg := DefaultSimConfig()

	if cfg.Target == nil || *cfg.Target != "1222" {
		t.Errorf("Expected Target '1222', got %v", cfg.Target)
	}
	if cfg.MaxActions == nil || *cfg.MaxActions != 20000 {
		t.Errorf("Expected MaxActions 20000, got %v", cfg.MaxActions)
	}
	if cfg.GuaranteeTarget == nil || !*cfg.GuaranteeTarget {
		t.Errorf("Expected GuaranteeTarget true, got %v", cfg.GuaranteeTarget)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("DefaultSimConfig().Validate() = %v", err)
	}

	if cfg.GetTarget() != (Barcode{1, 2, 2, 2}) {
		t.Errorf("GetTarget() = %v", cfg.GetTarget())
	}
	if cfg.GetPace() != 0 {
		t.Errorf("GetPace() = %v, want 0", cfg.GetPace())
	}
}

func TestEmptySimConfigGetters(t *testing.T) {
	cfg := EmptySimConfig()
	if cfg.GetHome() != 0 {
		t.Errorf("GetHome() = %d, want 0", cfg.GetHome())
	}
	if cfg.GetSeed() != 1 {
		t.Errorf("GetSeed() = %d, want 1", cfg.GetSeed())
	}
	if cfg.GetMaxActions() != 20000 {
		t.Errorf("GetMaxActions() = %d, want 20000", cfg.GetMaxActions())
	}
	if cfg.GetRockCount() != 0 {
		t.Errorf("GetRockCount() = %d, want 0", cfg.GetRockCount())
	}
	if !cfg.GetGuaranteeTarget() {
		t.Error("GetGuaranteeTarget() = false, want true")
	}
	if cfg.GetLayout() == nil || len(cfg.GetLayout().Quadrants) != 4 {
		t.Error("GetLayout() should fall back to DefaultLayout")
	}
}

func TestLoadSimConfigJSON(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "sim.json")

	testJSON := `{
  "target": "1,2,1,2",
  "home": 2,
  "seed": 42,
  "pace": "25ms",
  "rock_count": 3
}`
	if err := os.WriteFile(configPath, []byte(testJSON), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	cfg, err := LoadSimConfig(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if cfg.GetTarget() != (Barcode{1, 2, 1, 2}) {
		t.Errorf("GetTarget() = %v", cfg.GetTarget())
	}
	if cfg.GetHome() != 2 {
		t.Errorf("GetHome() = %d, want 2", cfg.GetHome())
	}
	if cfg.GetSeed() != 42 {
		t.Errorf("GetSeed() = %d, want 42", cfg.GetSeed())
	}
	if cfg.GetPace() != 25*time.Millisecond {
		t.Errorf("GetPace() = %v, want 25ms", cfg.GetPace())
	}
	if cfg.GetRockCount() != 3 {
		t.Errorf("GetRockCount() = %d, want 3", cfg.GetRockCount())
	}
	// Omitted fields keep their defaults.
	if cfg.GetMaxActions() != 20000 {
		t.Errorf("GetMaxActions() = %d, want default 20000", cfg.GetMaxActions())
	}
}

func TestLoadSimConfigYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "sim.yaml")

	testYAML := `target: "2211"
home: 3
max_actions: 500
guarantee_target: false
`
	if err := os.WriteFile(configPath, []byte(testYAML), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	cfg, err := LoadSimConfig(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if cfg.GetTarget() != (Barcode{2, 2, 1, 1}) {
		t.Errorf("GetTarget() = %v", cfg.GetTarget())
	}
	if cfg.GetHome() != 3 || cfg.GetMaxActions() != 500 || cfg.GetGuaranteeTarget() {
		t.Errorf("unexpected values: home=%d max=%d guarantee=%v", cfg.GetHome(), cfg.GetMaxActions(), cfg.GetGuaranteeTarget())
	}
}

func TestLoadSimConfigErrors(t *testing.T) {
	tmpDir := t.TempDir()

	tests := []struct {
		name    string
		file    string
		content string
	}{
		{"wrong extension", "sim.txt", `{}`},
		{"bad json", "bad.json", `{not json`},
		{"bad target", "target.json", `{"target": "1234"}`},
		{"short target", "short.json", `{"target": "12"}`},
		{"home out of range", "home.json", `{"home": 7}`},
		{"negative max actions", "max.json", `{"max_actions": -1}`},
		{"bad pace", "pace.json", `{"pace": "soon"}`},
		{"negative rocks", "rocks.json", `{"rock_count": -2}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(tmpDir, tt.file)
			if err := os.WriteFile(path, []byte(tt.content), 0644); err != nil {
				t.Fatalf("Failed to write test config: %v", err)
			}
			if _, err := LoadSimConfig(path); err == nil {
				t.Errorf("expected error for %s", tt.name)
			}
		})
	}

	if _, err := LoadSimConfig(filepath.Join(tmpDir, "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestMustLoadDefaultConfig(t *testing.T) {
	cfg := MustLoadDefaultConfig()
	if cfg.GetTarget() != (Barcode{1, 2, 2, 2}) {
		t.Errorf("defaults file target = %v", cfg.GetTarget())
	}
	if cfg.GetHome() != 0 {
		t.Errorf("defaults file home = %d", cfg.GetHome())
	}
}
