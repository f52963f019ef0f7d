package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/aperture-works/touchfield/internal/scan"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tuning.json")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

func TestEmptyTuningConfigDefaults(t *testing.T) {
	cfg := EmptyTuningConfig()

	if cfg.GetSensorPlacement() != "bottom-left" {
		t.Errorf("GetSensorPlacement() = %q, want bottom-left", cfg.GetSensorPlacement())
	}
	if cfg.GetProjectionWidthM() != 4.0 {
		t.Errorf("GetProjectionWidthM() = %g, want 4.0", cfg.GetProjectionWidthM())
	}
	if cfg.GetProjectionHeightM() != 3.0 {
		t.Errorf("GetProjectionHeightM() = %g, want 3.0", cfg.GetProjectionHeightM())
	}
	if cfg.GetBunchEpsM() != scan.DefaultBunchEps {
		t.Errorf("GetBunchEpsM() = %g, want %g", cfg.GetBunchEpsM(), scan.DefaultBunchEps)
	}
	if cfg.GetBunchPrecisionCount() != scan.DefaultBunchPrecisionCount {
		t.Errorf("GetBunchPrecisionCount() = %d, want %d", cfg.GetBunchPrecisionCount(), scan.DefaultBunchPrecisionCount)
	}
	if !cfg.GetNormalize() || !cfg.GetBunch() {
		t.Error("normalize and bunch must default to enabled")
	}
	if cfg.GetSerialBaud() != 115200 {
		t.Errorf("GetSerialBaud() = %d, want 115200", cfg.GetSerialBaud())
	}
	if cfg.GetSerialDevice() != "" {
		t.Errorf("GetSerialDevice() = %q, want disabled", cfg.GetSerialDevice())
	}
	if cfg.GetForwardAddr() != "" {
		t.Errorf("GetForwardAddr() = %q, want disabled", cfg.GetForwardAddr())
	}
}

func TestLoadTuningConfig_PartialOverride(t *testing.T) {
	path := writeConfig(t, `{"sensor_placement": "top-right", "bunch_eps_m": 0.08}`)

	cfg, err := LoadTuningConfig(path)
	if err != nil {
		t.Fatalf("LoadTuningConfig failed: %v", err)
	}

	if cfg.GetSensorPlacement() != "top-right" {
		t.Errorf("GetSensorPlacement() = %q, want top-right", cfg.GetSensorPlacement())
	}
	if cfg.GetBunchEpsM() != 0.08 {
		t.Errorf("GetBunchEpsM() = %g, want 0.08", cfg.GetBunchEpsM())
	}
	// Untouched fields keep defaults.
	if cfg.GetProjectionWidthM() != 4.0 {
		t.Errorf("GetProjectionWidthM() = %g, want default 4.0", cfg.GetProjectionWidthM())
	}
}

func TestLoadTuningConfig_Rejections(t *testing.T) {
	cases := []struct {
		name     string
		contents string
	}{
		{"bad placement", `{"sensor_placement": "ceiling"}`},
		{"zero width", `{"projection_width_m": 0}`},
		{"negative height", `{"projection_height_m": -3}`},
		{"zero eps", `{"bunch_eps_m": 0}`},
		{"zero precision", `{"bunch_precision_count": 0}`},
		{"bad baud", `{"serial_baud": -1}`},
		{"bad forward port", `{"forward_port": 70000}`},
		{"not json", `sensor_placement = bottom-left`},
	}
	for _, tc := range cases {
		path := writeConfig(t, tc.contents)
		if _, err := LoadTuningConfig(path); err == nil {
			t.Errorf("%s: expected load error", tc.name)
		}
	}
}

func TestLoadTuningConfig_RequiresJSONExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tuning.yaml")
	if err := os.WriteFile(path, []byte(`{}`), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	if _, err := LoadTuningConfig(path); err == nil {
		t.Error("expected error for non-.json extension")
	}
}

func TestMustLoadDefaultConfig(t *testing.T) {
	cfg := MustLoadDefaultConfig()

	params, err := cfg.ScanParams()
	if err != nil {
		t.Fatalf("ScanParams from defaults failed: %v", err)
	}
	if params.Placement != scan.BottomLeft {
		t.Errorf("default placement = %v, want bottom-left", params.Placement)
	}
	if params.AreaWidth != 4.0 || params.AreaHeight != 3.0 {
		t.Errorf("default area = %gx%g, want 4x3", params.AreaWidth, params.AreaHeight)
	}
}

func TestScanParams(t *testing.T) {
	path := writeConfig(t, `{
		"sensor_placement": "bottom-right",
		"sensor_offset_x_m": 1.0,
		"sensor_offset_y_m": -1.0,
		"projection_width_m": 2.0,
		"projection_height_m": 2.0,
		"bunch_precision_count": 5
	}`)
	cfg, err := LoadTuningConfig(path)
	if err != nil {
		t.Fatalf("LoadTuningConfig failed: %v", err)
	}

	params, err := cfg.ScanParams()
	if err != nil {
		t.Fatalf("ScanParams failed: %v", err)
	}
	if params.Placement != scan.BottomRight {
		t.Errorf("placement = %v, want bottom-right", params.Placement)
	}
	if params.OffsetX != 1.0 || params.OffsetY != -1.0 {
		t.Errorf("offset = (%g, %g), want (1, -1)", params.OffsetX, params.OffsetY)
	}
	if params.BunchPrecisionCount != 5 {
		t.Errorf("precision count = %d, want 5", params.BunchPrecisionCount)
	}
}
