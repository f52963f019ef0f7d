package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aperture-works/touchfield/internal/scan"
)

// DefaultConfigPath is the path to the canonical tuning defaults file, the
// single source of truth for the shipped installation geometry and bunching
// values.
const DefaultConfigPath = "config/tuning.defaults.json"

// TuningConfig is the root tuning file schema. Fields are pointers so a
// partial file only overrides what it names; the Get* accessors supply
// defaults for anything omitted.
type TuningConfig struct {
	// Sensor geometry
	SensorPlacement *string  `json:"sensor_placement,omitempty"` // "bottom-left" | "bottom-right" | "top-right" | "top-left"
	SensorOffsetXM  *float64 `json:"sensor_offset_x_m,omitempty"`
	SensorOffsetYM  *float64 `json:"sensor_offset_y_m,omitempty"`

	// Projection surface
	ProjectionWidthM  *float64 `json:"projection_width_m,omitempty"`
	ProjectionHeightM *float64 `json:"projection_height_m,omitempty"`

	// Conversion behaviour
	Normalize           *bool    `json:"normalize,omitempty"`
	Bunch               *bool    `json:"bunch,omitempty"`
	BunchEpsM           *float64 `json:"bunch_eps_m,omitempty"`
	BunchPrecisionCount *int     `json:"bunch_precision_count,omitempty"`

	// Pipeline endpoints
	SerialDevice  *string `json:"serial_device,omitempty"` // empty: serial source disabled
	SerialBaud    *int    `json:"serial_baud,omitempty"`
	UDPListenAddr *string `json:"udp_listen_addr,omitempty"` // empty: UDP source disabled
	HTTPAddr      *string `json:"http_addr,omitempty"`
	DBPath        *string `json:"db_path,omitempty"`
	ForwardAddr   *string `json:"forward_addr,omitempty"` // empty: forwarding disabled
	ForwardPort   *int    `json:"forward_port,omitempty"`
}

// EmptyTuningConfig returns a TuningConfig with every field unset.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// LoadTuningConfig loads a TuningConfig from a JSON file. Omitted fields keep
// their defaults, so partial configs are safe.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	// Guard against reading something that is clearly not a config file.
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical tuning defaults from
// DefaultConfigPath, searching upward from the current directory. Panics if
// the file cannot be found.
func MustLoadDefaultConfig() *TuningConfig {
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath, // from internal/<pkg>/
		"../../../" + DefaultConfigPath,
		"../../../../" + DefaultConfigPath,
	}
	for _, path := range candidates {
		if cfg, err := LoadTuningConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run from the repository root or pass an explicit config path")
}

// Validate checks every set field for a usable value.
func (c *TuningConfig) Validate() error {
	if c.SensorPlacement != nil {
		if _, err := scan.ParsePlacement(*c.SensorPlacement); err != nil {
			return err
		}
	}
	if c.ProjectionWidthM != nil && *c.ProjectionWidthM <= 0 {
		return fmt.Errorf("projection_width_m must be positive, got %g", *c.ProjectionWidthM)
	}
	if c.ProjectionHeightM != nil && *c.ProjectionHeightM <= 0 {
		return fmt.Errorf("projection_height_m must be positive, got %g", *c.ProjectionHeightM)
	}
	if c.BunchEpsM != nil && *c.BunchEpsM <= 0 {
		return fmt.Errorf("bunch_eps_m must be positive, got %g", *c.BunchEpsM)
	}
	if c.BunchPrecisionCount != nil && *c.BunchPrecisionCount < 1 {
		return fmt.Errorf("bunch_precision_count must be >= 1, got %d", *c.BunchPrecisionCount)
	}
	if c.SerialBaud != nil && *c.SerialBaud <= 0 {
		return fmt.Errorf("serial_baud must be positive, got %d", *c.SerialBaud)
	}
	if c.ForwardPort != nil && (*c.ForwardPort < 1 || *c.ForwardPort > 65535) {
		return fmt.Errorf("forward_port out of range: %d", *c.ForwardPort)
	}
	return nil
}

// GetSensorPlacement returns the sensor_placement value or the default.
func (c *TuningConfig) GetSensorPlacement() string {
	if c.SensorPlacement == nil {
		return "bottom-left"
	}
	return *c.SensorPlacement
}

// GetSensorOffsetXM returns the sensor_offset_x_m value or the default.
func (c *TuningConfig) GetSensorOffsetXM() float64 {
	if c.SensorOffsetXM == nil {
		return -2.0
	}
	return *c.SensorOffsetXM
}

// GetSensorOffsetYM returns the sensor_offset_y_m value or the default.
func (c *TuningConfig) GetSensorOffsetYM() float64 {
	if c.SensorOffsetYM == nil {
		return -1.5
	}
	return *c.SensorOffsetYM
}

// GetProjectionWidthM returns the projection_width_m value or the default.
func (c *TuningConfig) GetProjectionWidthM() float64 {
	if c.ProjectionWidthM == nil {
		return 4.0
	}
	return *c.ProjectionWidthM
}

// GetProjectionHeightM returns the projection_height_m value or the default.
func (c *TuningConfig) GetProjectionHeightM() float64 {
	if c.ProjectionHeightM == nil {
		return 3.0
	}
	return *c.ProjectionHeightM
}

// GetNormalize returns the normalize value or the default.
func (c *TuningConfig) GetNormalize() bool {
	if c.Normalize == nil {
		return true
	}
	return *c.Normalize
}

// GetBunch returns the bunch value or the default.
func (c *TuningConfig) GetBunch() bool {
	if c.Bunch == nil {
		return true
	}
	return *c.Bunch
}

// GetBunchEpsM returns the bunch_eps_m value or the default.
func (c *TuningConfig) GetBunchEpsM() float64 {
	if c.BunchEpsM == nil {
		return scan.DefaultBunchEps
	}
	return *c.BunchEpsM
}

// GetBunchPrecisionCount returns the bunch_precision_count value or the default.
func (c *TuningConfig) GetBunchPrecisionCount() int {
	if c.BunchPrecisionCount == nil {
		return scan.DefaultBunchPrecisionCount
	}
	return *c.BunchPrecisionCount
}

// GetSerialDevice returns the serial_device value or the default (disabled).
func (c *TuningConfig) GetSerialDevice() string {
	if c.SerialDevice == nil {
		return ""
	}
	return *c.SerialDevice
}

// GetSerialBaud returns the serial_baud value or the default.
func (c *TuningConfig) GetSerialBaud() int {
	if c.SerialBaud == nil {
		return 115200
	}
	return *c.SerialBaud
}

// GetUDPListenAddr returns the udp_listen_addr value or the default.
func (c *TuningConfig) GetUDPListenAddr() string {
	if c.UDPListenAddr == nil {
		return ":9021"
	}
	return *c.UDPListenAddr
}

// GetHTTPAddr returns the http_addr value or the default.
func (c *TuningConfig) GetHTTPAddr() string {
	if c.HTTPAddr == nil {
		return ":8089"
	}
	return *c.HTTPAddr
}

// GetDBPath returns the db_path value or the default.
func (c *TuningConfig) GetDBPath() string {
	if c.DBPath == nil {
		return "touchfield.db"
	}
	return *c.DBPath
}

// GetForwardAddr returns the forward_addr value or the default (disabled).
func (c *TuningConfig) GetForwardAddr() string {
	if c.ForwardAddr == nil {
		return ""
	}
	return *c.ForwardAddr
}

// GetForwardPort returns the forward_port value or the default.
func (c *TuningConfig) GetForwardPort() int {
	if c.ForwardPort == nil {
		return 9022
	}
	return *c.ForwardPort
}

// ScanParams assembles the converter parameter set from the tuning values.
func (c *TuningConfig) ScanParams() (scan.Params, error) {
	placement, err := scan.ParsePlacement(c.GetSensorPlacement())
	if err != nil {
		return scan.Params{}, err
	}

	params := scan.DefaultParams()
	params.Placement = placement
	params.OffsetX = c.GetSensorOffsetXM()
	params.OffsetY = c.GetSensorOffsetYM()
	params.AreaWidth = c.GetProjectionWidthM()
	params.AreaHeight = c.GetProjectionHeightM()
	params.Normalize = c.GetNormalize()
	params.Bunch = c.GetBunch()
	params.BunchEps = c.GetBunchEpsM()
	params.BunchPrecisionCount = c.GetBunchPrecisionCount()

	if err := params.Validate(); err != nil {
		return scan.Params{}, err
	}
	return params, nil
}
