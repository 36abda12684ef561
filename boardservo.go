package hiwonder

import (
	"context"
	"time"
)

// defaultBoardMoveDuration is used when a caller asks for an immediate move
// through the board, which has no "move now" encoding.
const defaultBoardMoveDuration = 20 * time.Millisecond

// BoardServo exposes one servo behind the controller board through the same
// best-effort interface as a directly addressed Servo, so control loops can
// switch topology without changing code. Voltage reads report the board's
// shared battery voltage; per-servo temperature is not observable through
// the board and always reads 0.
type BoardServo struct {
	board *Board
	id    int
	conv  Converter
}

// NewBoardServo creates a single-servo view over the board client.
func NewBoardServo(board *Board, id int) *BoardServo {
	return &BoardServo{board: board, id: id}
}

// ID returns the servo's ID.
func (s *BoardServo) ID() int {
	return s.id
}

// SetSpan changes the angular span used for unit conversion.
func (s *BoardServo) SetSpan(span float64) {
	s.conv = Converter{Span: span}
}

// SetTorqueEnable disables torque by unloading the servo. Enabling is a
// no-op: the board re-engages torque on the next position command.
func (s *BoardServo) SetTorqueEnable(ctx context.Context, on bool) error {
	if on {
		return nil
	}
	return s.board.UnloadServos(ctx, []int{s.id})
}

// SetGoalPosition commands a move to the given position in radians. A zero
// duration becomes defaultBoardMoveDuration.
func (s *BoardServo) SetGoalPosition(ctx context.Context, rad float64, duration time.Duration) error {
	ms := int(duration.Milliseconds())
	if ms <= 0 {
		ms = int(defaultBoardMoveDuration.Milliseconds())
	}

	return s.board.MoveServos(ctx, []ServoCommand{{
		ID:       s.id,
		Position: s.conv.ToUnits(rad),
		TimeMs:   ms,
	}})
}

// ReadPosition reads the current position in radians. Returns 0.0 on any
// read failure.
func (s *BoardServo) ReadPosition(ctx context.Context) float64 {
	positions, err := s.board.ReadServoPositions(ctx, []int{s.id})
	if err != nil {
		return 0.0
	}
	for _, p := range positions {
		if p.ID == s.id {
			return s.conv.ToRadians(p.Position)
		}
	}
	return 0.0
}

// ReadVoltage reads the board battery voltage in volts. Returns 0.0 on any
// read failure.
func (s *BoardServo) ReadVoltage(ctx context.Context) float64 {
	v, err := s.board.BatteryVoltage(ctx)
	if err != nil {
		return 0.0
	}
	return v
}

// ReadTemperature always returns 0: the board protocol has no per-servo
// temperature query.
func (s *BoardServo) ReadTemperature(ctx context.Context) int {
	return 0
}

// ReadData reads position and voltage in one pass. Speed is always 0 here;
// wrap the BoardServo in a SpeedEstimator to derive it.
func (s *BoardServo) ReadData(ctx context.Context) Telemetry {
	return Telemetry{
		Position: s.ReadPosition(ctx),
		Voltage:  s.ReadVoltage(ctx),
	}
}
