package hiwonder

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Durations of the TurnOn startup sequence: the move to the init pose and
// the settle wait before control is handed back.
const (
	initPoseMoveDuration   = 2 * time.Second
	initPoseSettleDuration = 2500 * time.Millisecond
)

// HWI is the joint-space hardware interface: it maps joint names to servo
// IDs behind the controller board, applies per-joint calibration offsets,
// and converts between radians and device units.
//
// Telemetry follows the same best-effort policy as the protocol clients:
// a joint whose position could not be read reports 0.0 and a warning, and
// the returned arrays always keep the declared joint order and length.
type HWI struct {
	board        *Board
	joints       []JointConfig
	byName       map[string]int // joint name -> index into joints
	conv         Converter
	moveDuration time.Duration
	log          *zap.Logger
}

// NewHWI creates a joint-space interface over the board client.
func NewHWI(board *Board, cfg HWIConfig) (*HWI, error) {
	if len(cfg.Joints) == 0 {
		return nil, fmt.Errorf("no joints configured")
	}
	if cfg.MoveDurationMs == 0 {
		cfg.MoveDurationMs = 20
	}
	if cfg.Span == 0 {
		cfg.Span = Span240Deg
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	byName := make(map[string]int, len(cfg.Joints))
	for i, j := range cfg.Joints {
		if j.Name == "" {
			return nil, fmt.Errorf("joint %d has no name", i)
		}
		if _, exists := byName[j.Name]; exists {
			return nil, fmt.Errorf("duplicate joint name %q", j.Name)
		}
		if err := validateID(j.ServoID); err != nil {
			return nil, fmt.Errorf("joint %q: %w", j.Name, err)
		}
		byName[j.Name] = i
	}

	return &HWI{
		board:        board,
		joints:       cfg.Joints,
		byName:       byName,
		conv:         Converter{Span: cfg.Span},
		moveDuration: time.Duration(cfg.MoveDurationMs) * time.Millisecond,
		log:          cfg.Logger,
	}, nil
}

// JointNames returns the joint names in declaration order.
func (h *HWI) JointNames() []string {
	names := make([]string, len(h.joints))
	for i, j := range h.joints {
		names[i] = j.Name
	}
	return names
}

// SetPosition moves a single joint to the given position in radians.
// An unknown joint name is a configuration mistake and returns
// ErrUnknownJoint.
func (h *HWI) SetPosition(ctx context.Context, joint string, rad float64) error {
	idx, ok := h.byName[joint]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownJoint, joint)
	}

	j := h.joints[idx]
	return h.board.MoveServos(ctx, []ServoCommand{{
		ID:       j.ServoID,
		Position: h.conv.ToUnits(rad + j.Offset),
		TimeMs:   int(h.moveDuration.Milliseconds()),
	}})
}

// SetPositionAll moves all listed joints in one synchronized board command.
// Unknown joint names are skipped with a warning instead of failing the
// whole batch. The batch is encoded in joint declaration order. A zero
// duration uses the configured default.
func (h *HWI) SetPositionAll(ctx context.Context, positions map[string]float64, duration time.Duration) error {
	if duration <= 0 {
		duration = h.moveDuration
	}
	ms := int(duration.Milliseconds())

	for name := range positions {
		if _, ok := h.byName[name]; !ok {
			h.log.Warn("unknown joint, skipping", zap.String("joint", name))
		}
	}

	cmds := make([]ServoCommand, 0, len(positions))
	for _, j := range h.joints {
		rad, ok := positions[j.Name]
		if !ok {
			continue
		}
		cmds = append(cmds, ServoCommand{
			ID:       j.ServoID,
			Position: h.conv.ToUnits(rad + j.Offset),
			TimeMs:   ms,
		})
	}

	if len(cmds) == 0 {
		return nil
	}
	return h.board.MoveServos(ctx, cmds)
}

// PresentPositions reads the current joint positions in radians, ordered by
// joint declaration order with ignored joints left out. A joint whose
// telemetry is missing reports 0.0 with a warning so the array layout never
// changes under partial failure.
func (h *HWI) PresentPositions(ctx context.Context, ignore ...string) []float64 {
	ignored := make(map[string]bool, len(ignore))
	for _, name := range ignore {
		ignored[name] = true
	}

	ids := make([]int, 0, len(h.joints))
	for _, j := range h.joints {
		if !ignored[j.Name] {
			ids = append(ids, j.ServoID)
		}
	}

	byID := make(map[int]int, len(ids))
	data, err := h.board.ReadServoPositions(ctx, ids)
	if err != nil {
		h.log.Warn("failed to read servo positions", zap.Error(err))
	} else {
		for _, p := range data {
			byID[p.ID] = p.Position
		}
	}

	positions := make([]float64, 0, len(ids))
	for _, j := range h.joints {
		if ignored[j.Name] {
			continue
		}
		units, ok := byID[j.ServoID]
		if !ok {
			h.log.Warn("no position data for joint",
				zap.String("joint", j.Name), zap.Int("servo_id", j.ServoID))
			positions = append(positions, 0.0)
			continue
		}
		positions = append(positions, h.conv.ToRadians(units)-j.Offset)
	}

	return positions
}

// PresentVelocities returns zeros: the board protocol has no velocity
// feedback channel, and this stub exists so callers know the channel
// carries no real signal. Derive velocities from consecutive position
// samples (see SpeedEstimator) instead.
func (h *HWI) PresentVelocities(ignore ...string) []float64 {
	ignored := make(map[string]bool, len(ignore))
	for _, name := range ignore {
		ignored[name] = true
	}

	n := 0
	for _, j := range h.joints {
		if !ignored[j.Name] {
			n++
		}
	}
	return make([]float64, n)
}

// TurnOn moves all joints to the init pose over an extended duration, then
// waits for the motion to settle before returning control.
func (h *HWI) TurnOn(ctx context.Context) error {
	pose := make(map[string]float64, len(h.joints))
	for _, j := range h.joints {
		pose[j.Name] = j.InitPosition
	}

	h.log.Info("moving to init pose", zap.Duration("duration", initPoseMoveDuration))
	if err := h.SetPositionAll(ctx, pose, initPoseMoveDuration); err != nil {
		return err
	}

	time.Sleep(initPoseSettleDuration)
	return nil
}

// TurnOff unloads all joints (disables torque).
func (h *HWI) TurnOff(ctx context.Context) error {
	ids := make([]int, len(h.joints))
	for i, j := range h.joints {
		ids[i] = j.ServoID
	}
	return h.board.UnloadServos(ctx, ids)
}

// BatteryVoltage reads the board battery voltage in volts.
func (h *HWI) BatteryVoltage(ctx context.Context) (float64, error) {
	return h.board.BatteryVoltage(ctx)
}
