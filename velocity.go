package hiwonder

import (
	"context"
	"time"
)

// SpeedEstimator derives angular velocity from consecutive position samples
// of a wrapped telemetry source. It is a decorator: one implementation works
// over a directly addressed Servo, a BoardServo, or any other
// TelemetryReader. Use one instance per tracked servo.
//
// The first sample after construction or Reset reports speed 0, as does any
// sample whose time delta is not positive. State is updated after every
// read, including reads whose speed could not be computed.
type SpeedEstimator struct {
	src TelemetryReader
	now func() time.Time

	hasLast  bool
	lastPos  float64
	lastTime time.Time
}

// NewSpeedEstimator wraps src with velocity estimation.
func NewSpeedEstimator(src TelemetryReader) *SpeedEstimator {
	return &SpeedEstimator{src: src, now: time.Now}
}

// ReadData reads from the wrapped source and fills in the Speed field.
func (e *SpeedEstimator) ReadData(ctx context.Context) Telemetry {
	now := e.now()
	data := e.src.ReadData(ctx)

	if e.hasLast {
		if dt := now.Sub(e.lastTime).Seconds(); dt > 0 {
			data.Speed = (data.Position - e.lastPos) / dt
		}
	}

	e.hasLast = true
	e.lastPos = data.Position
	e.lastTime = now

	return data
}

// Reset discards the sample history. Call it after reconnecting the
// underlying transport so a stale sample never produces a velocity spike.
func (e *SpeedEstimator) Reset() {
	e.hasLast = false
}
