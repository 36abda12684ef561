package hiwonder

import (
	"bytes"
	"context"
	"math"
	"testing"

	"github.com/hiwonder-go/hiwonder-servo/transports"
)

func TestBoardServo_SetGoalPositionDefaultDuration(t *testing.T) {
	mock := &transports.MockTransport{}
	board := newTestBoard(t, mock)
	servo := NewBoardServo(board, 1)

	// Zero duration becomes the 20ms default:
	// 55 55 08 03 01 01 F4 01 14 00 E9
	if err := servo.SetGoalPosition(context.Background(), 0, 0); err != nil {
		t.Fatalf("SetGoalPosition failed: %v", err)
	}

	expected := []byte{0x55, 0x55, 0x08, 0x03, 0x01, 0x01, 0xF4, 0x01, 0x14, 0x00, 0xE9}
	if !bytes.Equal(mock.WriteData, expected) {
		t.Errorf("wrote %X, want %X", mock.WriteData, expected)
	}
}

func TestBoardServo_SetTorqueEnable(t *testing.T) {
	mock := &transports.MockTransport{}
	board := newTestBoard(t, mock)
	servo := NewBoardServo(board, 1)
	ctx := context.Background()

	// Enabling is a no-op through the board.
	if err := servo.SetTorqueEnable(ctx, true); err != nil {
		t.Fatalf("SetTorqueEnable(true) failed: %v", err)
	}
	if len(mock.WriteData) != 0 {
		t.Errorf("enable wrote %X, want nothing", mock.WriteData)
	}

	// Disabling unloads the servo: 55 55 04 14 01 01 E5
	if err := servo.SetTorqueEnable(ctx, false); err != nil {
		t.Fatalf("SetTorqueEnable(false) failed: %v", err)
	}
	expected := []byte{0x55, 0x55, 0x04, 0x14, 0x01, 0x01, 0xE5}
	if !bytes.Equal(mock.WriteData, expected) {
		t.Errorf("wrote %X, want %X", mock.WriteData, expected)
	}
}

func TestBoardServo_ReadPosition(t *testing.T) {
	// Servo 3 at 750 units.
	mock := &transports.MockTransport{
		ReadData: []byte{0x55, 0x55, 0x06, 0x15, 0x01, 0x03, 0xEE, 0x02},
	}
	board := newTestBoard(t, mock)
	servo := NewBoardServo(board, 3)

	got := servo.ReadPosition(context.Background())
	if math.Abs(got-math.Pi/2) > 1e-9 {
		t.Errorf("ReadPosition: got %v, want %v", got, math.Pi/2)
	}
}

func TestBoardServo_ReadPositionDefaultsOnFailure(t *testing.T) {
	mock := &transports.MockTransport{}
	board := newTestBoard(t, mock)
	servo := NewBoardServo(board, 3)

	if got := servo.ReadPosition(context.Background()); got != 0.0 {
		t.Errorf("ReadPosition: got %v, want 0.0", got)
	}
}

func TestBoardServo_ReadPositionMissingID(t *testing.T) {
	// The board answered, but for a different servo.
	mock := &transports.MockTransport{
		ReadData: []byte{0x55, 0x55, 0x06, 0x15, 0x01, 0x07, 0xEE, 0x02},
	}
	board := newTestBoard(t, mock)
	servo := NewBoardServo(board, 3)

	if got := servo.ReadPosition(context.Background()); got != 0.0 {
		t.Errorf("ReadPosition: got %v, want 0.0", got)
	}
}

func TestBoardServo_ReadVoltage(t *testing.T) {
	mock := &transports.MockTransport{
		ReadData: []byte{0x55, 0x55, 0x04, 0x0F, 0xB8, 0x1B},
	}
	board := newTestBoard(t, mock)
	servo := NewBoardServo(board, 3)

	if got := servo.ReadVoltage(context.Background()); got != 7.096 {
		t.Errorf("ReadVoltage: got %v, want 7.096", got)
	}
}

func TestBoardServo_ReadTemperature(t *testing.T) {
	board := newTestBoard(t, &transports.MockTransport{})
	servo := NewBoardServo(board, 3)

	if got := servo.ReadTemperature(context.Background()); got != 0 {
		t.Errorf("ReadTemperature: got %d, want 0", got)
	}
}
