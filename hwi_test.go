package hiwonder

import (
	"bytes"
	"context"
	"errors"
	"math"
	"testing"

	"github.com/hiwonder-go/hiwonder-servo/transports"
)

func newTestHWI(t *testing.T, mock *transports.MockTransport, joints []JointConfig) *HWI {
	t.Helper()
	hwi, err := NewHWI(newTestBoard(t, mock), HWIConfig{Joints: joints})
	if err != nil {
		t.Fatalf("NewHWI failed: %v", err)
	}
	return hwi
}

func threeJoints() []JointConfig {
	return []JointConfig{
		{Name: "base", ServoID: 1},
		{Name: "shoulder", ServoID: 2, Offset: 0.5},
		{Name: "elbow", ServoID: 3},
	}
}

func TestNewHWI_Validation(t *testing.T) {
	board := newTestBoard(t, &transports.MockTransport{})

	if _, err := NewHWI(board, HWIConfig{}); err == nil {
		t.Error("expected error for empty joint list")
	}

	_, err := NewHWI(board, HWIConfig{Joints: []JointConfig{
		{Name: "base", ServoID: 1},
		{Name: "base", ServoID: 2},
	}})
	if err == nil {
		t.Error("expected error for duplicate joint name")
	}

	_, err = NewHWI(board, HWIConfig{Joints: []JointConfig{
		{Name: "base", ServoID: 254},
	}})
	if !errors.Is(err, ErrInvalidID) {
		t.Errorf("got %v, want ErrInvalidID", err)
	}
}

func TestHWI_JointNames(t *testing.T) {
	hwi := newTestHWI(t, &transports.MockTransport{}, threeJoints())

	names := hwi.JointNames()
	want := []string{"base", "shoulder", "elbow"}
	if len(names) != len(want) {
		t.Fatalf("got %d names, want %d", len(names), len(want))
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("name %d: got %q, want %q", i, names[i], want[i])
		}
	}
}

func TestHWI_SetPositionAppliesOffset(t *testing.T) {
	mock := &transports.MockTransport{}
	hwi := newTestHWI(t, mock, threeJoints())

	// shoulder: 0 rad + 0.5 offset on the 240° span is unit 619 (0x026B).
	// 55 55 08 03 01 02 6B 02 14 00 70
	if err := hwi.SetPosition(context.Background(), "shoulder", 0); err != nil {
		t.Fatalf("SetPosition failed: %v", err)
	}

	expected := []byte{0x55, 0x55, 0x08, 0x03, 0x01, 0x02, 0x6B, 0x02, 0x14, 0x00, 0x70}
	if !bytes.Equal(mock.WriteData, expected) {
		t.Errorf("wrote %X, want %X", mock.WriteData, expected)
	}
}

func TestHWI_SetPositionUnknownJoint(t *testing.T) {
	hwi := newTestHWI(t, &transports.MockTransport{}, threeJoints())

	err := hwi.SetPosition(context.Background(), "wrist", 0)
	if !errors.Is(err, ErrUnknownJoint) {
		t.Errorf("got %v, want ErrUnknownJoint", err)
	}
}

func TestHWI_SetPositionAllSkipsUnknown(t *testing.T) {
	mock := &transports.MockTransport{}
	hwi := newTestHWI(t, mock, []JointConfig{
		{Name: "base", ServoID: 1},
		{Name: "shoulder", ServoID: 2},
		{Name: "elbow", ServoID: 3},
	})

	// "bogus" is skipped; the batch keeps declaration order regardless of
	// map iteration order.
	err := hwi.SetPositionAll(context.Background(), map[string]float64{
		"shoulder": 0,
		"bogus":    1.0,
		"base":     0,
	}, 0)
	if err != nil {
		t.Fatalf("SetPositionAll failed: %v", err)
	}

	// 55 55 0D 03 02 01 F4 01 14 00 02 F4 01 14 00 D8
	expected := []byte{0x55, 0x55, 0x0D, 0x03, 0x02,
		0x01, 0xF4, 0x01, 0x14, 0x00,
		0x02, 0xF4, 0x01, 0x14, 0x00, 0xD8}
	if !bytes.Equal(mock.WriteData, expected) {
		t.Errorf("wrote %X, want %X", mock.WriteData, expected)
	}
}

func TestHWI_SetPositionAllEmpty(t *testing.T) {
	mock := &transports.MockTransport{}
	hwi := newTestHWI(t, mock, threeJoints())

	// Nothing addressable, nothing sent.
	err := hwi.SetPositionAll(context.Background(), map[string]float64{"bogus": 1.0}, 0)
	if err != nil {
		t.Fatalf("SetPositionAll failed: %v", err)
	}
	if len(mock.WriteData) != 0 {
		t.Errorf("wrote %X, want nothing", mock.WriteData)
	}
}

func TestHWI_PresentPositions(t *testing.T) {
	// Servo 1 at 500 (center), servo 2 at 750, servo 3 at 250.
	mock := &transports.MockTransport{
		ReadData: []byte{0x55, 0x55, 0x0C, 0x15, 0x03,
			0x01, 0xF4, 0x01,
			0x02, 0xEE, 0x02,
			0x03, 0xFA, 0x00},
	}
	hwi := newTestHWI(t, mock, threeJoints())

	got := hwi.PresentPositions(context.Background())
	if len(got) != 3 {
		t.Fatalf("got %d positions, want 3", len(got))
	}

	quarter := 250 * Span240Deg / 1000
	want := []float64{0, quarter - 0.5, -quarter}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-9 {
			t.Errorf("position %d: got %v, want %v", i, got[i], want[i])
		}
	}
}

func TestHWI_PresentPositionsMissingJoint(t *testing.T) {
	// The board only reports servos 1 and 3; shoulder falls back to 0.0
	// and the array keeps its declared length and order.
	mock := &transports.MockTransport{
		ReadData: []byte{0x55, 0x55, 0x09, 0x15, 0x02,
			0x01, 0xF4, 0x01,
			0x03, 0xFA, 0x00},
	}
	hwi := newTestHWI(t, mock, threeJoints())

	got := hwi.PresentPositions(context.Background())
	if len(got) != 3 {
		t.Fatalf("got %d positions, want 3", len(got))
	}
	if got[1] != 0.0 {
		t.Errorf("missing joint: got %v, want 0.0", got[1])
	}
	if math.Abs(got[2]+250*Span240Deg/1000) > 1e-9 {
		t.Errorf("elbow: got %v, want %v", got[2], -250*Span240Deg/1000)
	}
}

func TestHWI_PresentPositionsIgnore(t *testing.T) {
	mock := &transports.MockTransport{
		ReadData: []byte{0x55, 0x55, 0x09, 0x15, 0x02,
			0x01, 0xF4, 0x01,
			0x03, 0xFA, 0x00},
	}
	hwi := newTestHWI(t, mock, threeJoints())

	got := hwi.PresentPositions(context.Background(), "shoulder")
	if len(got) != 2 {
		t.Fatalf("got %d positions, want 2", len(got))
	}

	// The query only lists the servos that were not ignored:
	// 55 55 05 15 02 01 03 DF
	expectedWrite := []byte{0x55, 0x55, 0x05, 0x15, 0x02, 0x01, 0x03, 0xDF}
	if !bytes.Equal(mock.WriteData, expectedWrite) {
		t.Errorf("wrote %X, want %X", mock.WriteData, expectedWrite)
	}
}

func TestHWI_PresentPositionsReadFailure(t *testing.T) {
	hwi := newTestHWI(t, &transports.MockTransport{}, threeJoints())

	// A failed board read degrades to all-zero positions, never a panic
	// or a short array.
	got := hwi.PresentPositions(context.Background())
	if len(got) != 3 {
		t.Fatalf("got %d positions, want 3", len(got))
	}
	for i, p := range got {
		if p != 0.0 {
			t.Errorf("position %d: got %v, want 0.0", i, p)
		}
	}
}

func TestHWI_PresentVelocities(t *testing.T) {
	hwi := newTestHWI(t, &transports.MockTransport{}, threeJoints())

	got := hwi.PresentVelocities("elbow")
	if len(got) != 2 {
		t.Fatalf("got %d velocities, want 2", len(got))
	}
	for i, v := range got {
		if v != 0 {
			t.Errorf("velocity %d: got %v, want 0", i, v)
		}
	}
}

func TestHWI_TurnOff(t *testing.T) {
	mock := &transports.MockTransport{}
	hwi := newTestHWI(t, mock, threeJoints())

	if err := hwi.TurnOff(context.Background()); err != nil {
		t.Fatalf("TurnOff failed: %v", err)
	}

	// 55 55 06 14 03 01 02 03 DC
	expected := []byte{0x55, 0x55, 0x06, 0x14, 0x03, 0x01, 0x02, 0x03, 0xDC}
	if !bytes.Equal(mock.WriteData, expected) {
		t.Errorf("wrote %X, want %X", mock.WriteData, expected)
	}
}

func TestHWI_MoveDuration(t *testing.T) {
	mock := &transports.MockTransport{}
	hwi, err := NewHWI(newTestBoard(t, mock), HWIConfig{
		Joints:         []JointConfig{{Name: "base", ServoID: 1}},
		MoveDurationMs: 500,
	})
	if err != nil {
		t.Fatalf("NewHWI failed: %v", err)
	}

	if err := hwi.SetPosition(context.Background(), "base", 0); err != nil {
		t.Fatalf("SetPosition failed: %v", err)
	}

	f, _, err := DecodeFrame(BoardAddr, mock.WriteData)
	if err != nil {
		t.Fatalf("DecodeFrame failed: %v", err)
	}
	// 500ms = 0x01F4 in the time field.
	if ms := decodeWord(f.Params[4:6]); ms != 500 {
		t.Errorf("duration: got %dms, want 500ms", ms)
	}
}

func TestHWIConfig_SaveLoad(t *testing.T) {
	path := t.TempDir() + "/joints.json"

	cfg := HWIConfig{
		Joints: []JointConfig{
			{Name: "base", ServoID: 1, Offset: 0.1, InitPosition: 0.2},
			{Name: "shoulder", ServoID: 2},
		},
		MoveDurationMs: 50,
		Span:           Span240Deg,
	}
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := LoadHWIConfig(path)
	if err != nil {
		t.Fatalf("LoadHWIConfig failed: %v", err)
	}

	if len(loaded.Joints) != 2 {
		t.Fatalf("got %d joints, want 2", len(loaded.Joints))
	}
	if loaded.Joints[0] != cfg.Joints[0] {
		t.Errorf("joint 0: got %+v, want %+v", loaded.Joints[0], cfg.Joints[0])
	}
	if loaded.MoveDurationMs != 50 || loaded.Span != Span240Deg {
		t.Errorf("got duration %d span %v, want 50 and %v", loaded.MoveDurationMs, loaded.Span, Span240Deg)
	}
}

func TestHWI_TurnOnSendsInitPose(t *testing.T) {
	mock := &transports.MockTransport{}
	hwi, err := NewHWI(newTestBoard(t, mock), HWIConfig{
		Joints: []JointConfig{
			{Name: "base", ServoID: 1, InitPosition: 0},
			{Name: "shoulder", ServoID: 2, InitPosition: 0},
		},
	})
	if err != nil {
		t.Fatalf("NewHWI failed: %v", err)
	}

	if testing.Short() {
		t.Skip("TurnOn waits out the settle delay")
	}

	if err := hwi.TurnOn(context.Background()); err != nil {
		t.Fatalf("TurnOn failed: %v", err)
	}

	f, _, err := DecodeFrame(BoardAddr, mock.WriteData)
	if err != nil {
		t.Fatalf("DecodeFrame failed: %v", err)
	}
	if f.Command != BoardCmdServoMove {
		t.Fatalf("command: got %02X, want %02X", f.Command, BoardCmdServoMove)
	}
	if count := f.Params[0]; count != 2 {
		t.Errorf("batch count: got %d, want 2", count)
	}
	// Both entries move over the extended init duration (2000ms = 0x07D0).
	if ms := decodeWord(f.Params[4:6]); ms != 2000 {
		t.Errorf("duration: got %dms, want 2000ms", ms)
	}
}
