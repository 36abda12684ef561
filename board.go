package hiwonder

import (
	"context"
	"fmt"
	"time"
)

// Board is the client for the Hiwonder Bus Servo Controller board, which
// fans commands out to the servos wired behind it and exposes the shared
// battery voltage.
type Board struct {
	bus     *Bus
	timeout time.Duration
}

// NewBoard creates a board client on the given bus. Board queries use a 1s
// timeout by default; change it with SetQueryTimeout.
func NewBoard(bus *Bus) *Board {
	return &Board{bus: bus, timeout: time.Second}
}

// SetQueryTimeout changes the bound on the wait for a board response.
func (b *Board) SetQueryTimeout(timeout time.Duration) {
	b.timeout = timeout
}

// ServoCommand is one entry of a synchronized move batch.
type ServoCommand struct {
	ID       int // servo ID, 1-253
	Position int // device units, clamped to 0-1000
	TimeMs   int // movement duration in milliseconds
}

// ServoPosition is one entry of a multi-servo position response.
type ServoPosition struct {
	ID       int
	Position int // device units
}

// MoveServos moves multiple servos with a synchronized release
// (BoardCmdServoMove). The batch is encoded in caller order: a count byte
// followed by id, pos_lo, pos_hi, time_lo, time_hi per entry. The write is
// fire-and-forget; the board handles synchronization.
func (b *Board) MoveServos(ctx context.Context, cmds []ServoCommand) error {
	params := make([]byte, 0, 1+5*len(cmds))
	params = append(params, byte(len(cmds)))

	for _, cmd := range cmds {
		if err := validateID(cmd.ID); err != nil {
			return &ServoError{ID: cmd.ID, Op: "move_servos", Err: err}
		}

		pos := cmd.Position
		if pos < UnitsMin {
			pos = UnitsMin
		}
		if pos > UnitsMax {
			pos = UnitsMax
		}

		ms := cmd.TimeMs
		if ms < 0 {
			ms = 0
		}
		if ms > 0xFFFF {
			ms = 0xFFFF
		}

		params = append(params, byte(cmd.ID))
		params = append(params, encodeWord(uint16(pos))...)
		params = append(params, encodeWord(uint16(ms))...)
	}

	if err := b.bus.command(Frame{Addr: BoardAddr, Command: BoardCmdServoMove, Params: params}); err != nil {
		return &CommError{Op: "move_servos", Err: err}
	}
	return nil
}

// UnloadServos disables torque on exactly the listed servos
// (BoardCmdMultServoUnload). Servos not listed keep their current state.
func (b *Board) UnloadServos(ctx context.Context, ids []int) error {
	params := make([]byte, 0, 1+len(ids))
	params = append(params, byte(len(ids)))
	for _, id := range ids {
		if err := validateID(id); err != nil {
			return &ServoError{ID: id, Op: "unload_servos", Err: err}
		}
		params = append(params, byte(id))
	}

	if err := b.bus.command(Frame{Addr: BoardAddr, Command: BoardCmdMultServoUnload, Params: params}); err != nil {
		return &CommError{Op: "unload_servos", Err: err}
	}
	return nil
}

// ReadServoPositions reads the positions of the listed servos
// (BoardCmdMultServoPosRead). The response payload is a count followed by
// (id, pos_lo, pos_hi) triples; a truncated trailing triple is dropped
// rather than treated as a fatal error, so the result may be shorter than
// the request.
func (b *Board) ReadServoPositions(ctx context.Context, ids []int) ([]ServoPosition, error) {
	params := make([]byte, 0, 1+len(ids))
	params = append(params, byte(len(ids)))
	for _, id := range ids {
		if err := validateID(id); err != nil {
			return nil, &ServoError{ID: id, Op: "read_servo_positions", Err: err}
		}
		params = append(params, byte(id))
	}

	resp, err := b.bus.transactBoard(ctx, Frame{Addr: BoardAddr, Command: BoardCmdMultServoPosRead, Params: params}, b.timeout)
	if err != nil {
		return nil, &CommError{Op: "read_servo_positions", Err: err}
	}
	if resp.Command != BoardCmdMultServoPosRead || len(resp.Params) < 1 {
		return nil, &CommError{Op: "read_servo_positions", Err: ErrInvalidResponse}
	}

	count := int(resp.Params[0])
	positions := make([]ServoPosition, 0, count)
	for i := 0; i < count; i++ {
		offset := 1 + i*3
		if offset+3 > len(resp.Params) {
			break // truncated trailing triple
		}
		positions = append(positions, ServoPosition{
			ID:       int(resp.Params[offset]),
			Position: int(decodeWord(resp.Params[offset+1 : offset+3])),
		})
	}

	return positions, nil
}

// BatteryVoltage reads the board battery voltage in volts
// (BoardCmdGetBatteryVoltage). Unlike the per-servo telemetry reads this
// returns an error rather than a zero default: zero volts means power loss,
// a parse failure does not.
func (b *Board) BatteryVoltage(ctx context.Context) (float64, error) {
	resp, err := b.bus.transactBoard(ctx, Frame{Addr: BoardAddr, Command: BoardCmdGetBatteryVoltage}, b.timeout)
	if err != nil {
		return 0, &CommError{Op: "battery_voltage", Err: err}
	}
	if resp.Command != BoardCmdGetBatteryVoltage || len(resp.Params) != 2 {
		return 0, &CommError{Op: "battery_voltage", Err: fmt.Errorf("%w: command 0x%02X, %d payload bytes", ErrInvalidResponse, resp.Command, len(resp.Params))}
	}

	// Millivolts, little-endian
	return float64(decodeWord(resp.Params)) / 1000.0, nil
}
