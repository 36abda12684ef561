package hiwonder

import (
	"encoding/json"
	"fmt"
	"os"

	"go.uber.org/zap"
)

// JointConfig describes one named joint: which servo drives it, its
// additive calibration offset, and the position it takes in the init pose.
type JointConfig struct {
	Name    string `json:"name"`
	ServoID int    `json:"servo_id"`
	// Offset is the calibration constant in radians, added before unit
	// conversion on write and subtracted after conversion on read.
	Offset float64 `json:"offset"`
	// InitPosition is the joint's position in the init pose, in radians.
	InitPosition float64 `json:"init_position"`
}

// HWIConfig configures a joint-space hardware interface. It is passed at
// construction time and owned per instance, so simultaneous sessions (for
// example in tests) never interfere through shared tables.
type HWIConfig struct {
	// Joints in declaration order. The order fixes the layout of the
	// position and velocity arrays returned by the HWI.
	Joints []JointConfig `json:"joints"`

	// MoveDurationMs is the default duration of position commands in
	// milliseconds. Default is 20 (a 50Hz control rate).
	MoveDurationMs int `json:"move_duration_ms,omitempty"`

	// Span is the angular range in radians mapped onto the 0-1000 unit
	// range. Default is Span240Deg, the LX-series mechanical travel.
	Span float64 `json:"span,omitempty"`

	// Logger receives warnings about skipped joints and missing telemetry.
	// Default is a no-op logger; the protocol layer below stays silent
	// either way.
	Logger *zap.Logger `json:"-"`
}

// LoadHWIConfig loads a joint configuration from a JSON file.
func LoadHWIConfig(path string) (HWIConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return HWIConfig{}, fmt.Errorf("read joint config: %w", err)
	}

	var cfg HWIConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return HWIConfig{}, fmt.Errorf("parse joint config: %w", err)
	}

	return cfg, nil
}

// Save writes the joint configuration to a JSON file.
func (c HWIConfig) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal joint config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
