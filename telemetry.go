package hiwonder

import (
	"context"
	"time"
)

// Telemetry is one best-effort reading of a servo's state.
//
// Reads that time out leave their field at the zero value; a dropped sample
// is "no new information", not a fault.
type Telemetry struct {
	// Position in radians. 0 on read failure.
	Position float64
	// Speed in rad/s. Always 0 at the protocol layer; wrap the source in a
	// SpeedEstimator to derive it from consecutive positions.
	Speed float64
	// Load is not observable on this device class and is always 0.
	Load int
	// Voltage in volts. 0 on read failure.
	Voltage float64
	// Temperature in °C. 0 on read failure (direct mode only; the board
	// exposes no per-servo temperature).
	Temperature int
}

// TelemetryReader is any source of servo telemetry: a directly addressed
// Servo, a BoardServo behind the controller board, or a decorator over
// either.
type TelemetryReader interface {
	ReadData(ctx context.Context) Telemetry
}

// Actuator is the contract a control loop needs from a servo, regardless of
// which topology it sits behind.
type Actuator interface {
	TelemetryReader
	SetTorqueEnable(ctx context.Context, on bool) error
	SetGoalPosition(ctx context.Context, rad float64, duration time.Duration) error
}

// Trajectory is a pure function of elapsed time returning the goal position
// in radians and whether torque should be enabled at that instant. Control
// loops call it every tick and react only to the returned pair.
type Trajectory interface {
	At(elapsed time.Duration) (rad float64, torque bool)
	Duration() time.Duration
}

// Sample is one recorded control-loop entry: the hardware fields come from
// ReadData, the goal fields from the trajectory that drove the tick.
type Sample struct {
	Telemetry
	Timestamp    time.Time
	GoalPosition float64
	TorqueEnable bool
}
