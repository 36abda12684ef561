package hiwonder

import (
	"context"
	"time"
)

// Servo is the client for a single directly addressed bus servo.
//
// Telemetry reads are best-effort: a timeout, short read or checksum failure
// yields the documented zero default instead of an error, so a dropped
// sample never halts a control loop. Callers that must distinguish failure
// from a true zero should use the board client's BatteryVoltage or add
// explicit logging above this layer.
type Servo struct {
	bus  *Bus
	id   int
	conv Converter
}

// NewServo creates a client for the servo with the given ID (1-253).
// The default unit conversion maps the 0-1000 range onto a full turn; see
// SetSpan and the span constants in units.go.
func NewServo(bus *Bus, id int) *Servo {
	return &Servo{bus: bus, id: id}
}

// ID returns the servo's ID.
func (s *Servo) ID() int {
	return s.id
}

// SetSpan changes the angular span used for unit conversion.
func (s *Servo) SetSpan(span float64) {
	s.conv = Converter{Span: span}
}

func (s *Servo) frame(cmd byte, params []byte) Frame {
	return Frame{Addr: ServoAddr(byte(s.id)), Command: cmd, Params: params}
}

// SetTorqueEnable enables or disables torque. The write is fire-and-forget;
// a 1ms settle delay follows it because actuation takes effect
// asynchronously on the device.
func (s *Servo) SetTorqueEnable(ctx context.Context, on bool) error {
	if err := validateID(s.id); err != nil {
		return err
	}

	var val byte
	if on {
		val = 1
	}
	if err := s.bus.command(s.frame(CmdServoLoadUnloadWrite, []byte{val})); err != nil {
		return &ServoError{ID: s.id, Op: "set_torque_enable", Err: err}
	}

	time.Sleep(time.Millisecond)
	return nil
}

// SetGoalPosition commands a move to the given position in radians, reaching
// it over the given duration. A zero duration means "move immediately".
// Positions outside the mechanical range are clamped to the 0-1000 unit
// boundary, not rejected.
func (s *Servo) SetGoalPosition(ctx context.Context, rad float64, duration time.Duration) error {
	if err := validateID(s.id); err != nil {
		return err
	}

	units := s.conv.ToUnits(rad)
	ms := duration.Milliseconds()
	if ms < 0 {
		ms = 0
	}
	if ms > 0xFFFF {
		ms = 0xFFFF
	}

	params := make([]byte, 0, 4)
	params = append(params, encodeWord(uint16(units))...)
	params = append(params, encodeWord(uint16(ms))...)

	if err := s.bus.command(s.frame(CmdServoMoveTimeWrite, params)); err != nil {
		return &ServoError{ID: s.id, Op: "set_goal_position", Err: err}
	}
	return nil
}

// readQuery sends a query command and reads its response, checking that the
// echoed ID and command match.
func (s *Servo) readQuery(ctx context.Context, cmd byte, paramLen int) (Frame, error) {
	if err := validateID(s.id); err != nil {
		return Frame{}, err
	}

	resp, err := s.bus.transactDirect(ctx, s.frame(cmd, nil), paramLen)
	if err != nil {
		return Frame{}, err
	}
	if int(resp.Addr.ID()) != s.id || resp.Command != cmd {
		return Frame{}, ErrInvalidResponse
	}
	return resp, nil
}

// ReadPosition reads the current position in radians. Returns 0.0 on any
// read failure.
func (s *Servo) ReadPosition(ctx context.Context) float64 {
	resp, err := s.readQuery(ctx, CmdServoPosRead, 2)
	if err != nil {
		return 0.0
	}
	return s.conv.ToRadians(int(decodeWord(resp.Params)))
}

// ReadVoltage reads the input voltage in volts. Returns 0.0 on any read
// failure. The device reports decivolts.
func (s *Servo) ReadVoltage(ctx context.Context) float64 {
	resp, err := s.readQuery(ctx, CmdServoVinRead, 1)
	if err != nil {
		return 0.0
	}
	return float64(resp.Params[0]) / 10.0
}

// ReadTemperature reads the temperature in °C. Returns 0 on any read
// failure.
func (s *Servo) ReadTemperature(ctx context.Context) int {
	resp, err := s.readQuery(ctx, CmdServoTempRead, 1)
	if err != nil {
		return 0
	}
	return int(resp.Params[0])
}

// ReadData reads position, voltage and temperature in one pass. Speed and
// load are always 0 here: speed estimation is a separate concern (see
// SpeedEstimator) and load is not observable on this device class.
func (s *Servo) ReadData(ctx context.Context) Telemetry {
	return Telemetry{
		Position:    s.ReadPosition(ctx),
		Voltage:     s.ReadVoltage(ctx),
		Temperature: s.ReadTemperature(ctx),
	}
}
