// Package hiwonder provides a Go library for communicating with Hiwonder bus
// servo motors (LX-16A, LX-15D, LD-27MG, HTD-45H and compatible models),
// either directly over a half-duplex serial line or through the Hiwonder Bus
// Servo Controller board.
package hiwonder

import (
	"encoding/binary"
	"fmt"
)

// Frame header byte, repeated twice at the start of every frame.
const headerByte = 0x55

// Single-servo command codes per the Hiwonder bus servo protocol.
const (
	CmdServoMoveTimeWrite     byte = 1
	CmdServoMoveTimeRead      byte = 2
	CmdServoMoveTimeWaitWrite byte = 7
	CmdServoMoveTimeWaitRead  byte = 8
	CmdServoMoveStart         byte = 11
	CmdServoMoveStop          byte = 12
	CmdServoIDWrite           byte = 13
	CmdServoIDRead            byte = 14
	CmdServoAngleOffsetAdjust byte = 17
	CmdServoAngleOffsetWrite  byte = 18
	CmdServoAngleOffsetRead   byte = 19
	CmdServoAngleLimitWrite   byte = 20
	CmdServoAngleLimitRead    byte = 21
	CmdServoVinLimitWrite     byte = 22
	CmdServoVinLimitRead      byte = 23
	CmdServoTempMaxLimitWrite byte = 24
	CmdServoTempMaxLimitRead  byte = 25
	CmdServoTempRead          byte = 26
	CmdServoVinRead           byte = 27
	CmdServoPosRead           byte = 28
	CmdServoMotorModeWrite    byte = 29
	CmdServoMotorModeRead     byte = 30
	CmdServoLoadUnloadWrite   byte = 31
	CmdServoLoadUnloadRead    byte = 32
	CmdServoLEDCtrlWrite      byte = 33
	CmdServoLEDCtrlRead       byte = 34
	CmdServoLEDErrorWrite     byte = 35
	CmdServoLEDErrorRead      byte = 36
)

// Board controller command codes per the Bus Servo Controller protocol.
const (
	BoardCmdServoMove         byte = 0x03
	BoardCmdGetBatteryVoltage byte = 0x0F
	BoardCmdMultServoUnload   byte = 0x14
	BoardCmdMultServoPosRead  byte = 0x15
)

// Special ID values.
const (
	MinServoID = 1
	MaxServoID = 253
	BoardID    = 0xFE
)

// Addr selects the frame layout for one of the two bus topologies.
//
// Direct frames address a single servo and carry its ID on the wire:
//
//	[0x55][0x55][ID][Length][Command][Params...][Checksum]
//
// Board frames address the controller board, which is implied by the
// transport and never appears in the outbound header:
//
//	[0x55][0x55][Length][Command][Params...][Checksum]
type Addr struct {
	board bool
	id    byte
}

// ServoAddr returns the direct address for a single servo.
func ServoAddr(id byte) Addr {
	return Addr{id: id}
}

// BoardAddr is the implicit address of the controller board.
var BoardAddr = Addr{board: true}

// IsBoard reports whether the address targets the controller board.
func (a Addr) IsBoard() bool {
	return a.board
}

// ID returns the servo ID for a direct address, 0 for the board.
func (a Addr) ID() byte {
	return a.id
}

// lengthOffset is the value added to the parameter count to form the
// frame's length byte: ID+Length+Command for direct frames, Length+Command
// for board frames.
func (a Addr) lengthOffset() int {
	if a.board {
		return 2
	}
	return 3
}

// headerSize is the number of bytes between the two-byte header and the
// first parameter: ID+Length+Command for direct frames, Length+Command for
// board frames.
func (a Addr) headerSize() int {
	if a.board {
		return 2
	}
	return 3
}

// Frame is one complete protocol message before encoding or after decoding.
type Frame struct {
	Addr    Addr
	Command byte
	Params  []byte
}

// WireSize returns the total encoded size of the frame in bytes.
func (f Frame) WireSize() int {
	return 2 + f.Addr.headerSize() + len(f.Params) + 1
}

// Checksum computes the frame checksum over the given byte range: the one's
// complement of the byte sum, truncated to 8 bits. The range starts at the
// ID byte for direct frames and at the Length byte for board frames, and
// ends at the last parameter.
func Checksum(data []byte) byte {
	var sum byte
	for _, b := range data {
		sum += b
	}
	return ^sum
}

// Encode builds the wire image of the frame.
//
// Returns ErrFrameTooLong when the parameter count would push the 8-bit
// length byte past its representable range.
func (f Frame) Encode() ([]byte, error) {
	length := len(f.Params) + f.Addr.lengthOffset()
	if length > 0xFF {
		return nil, fmt.Errorf("%w: %d parameter bytes", ErrFrameTooLong, len(f.Params))
	}

	buf := make([]byte, 0, f.WireSize())
	buf = append(buf, headerByte, headerByte)
	if !f.Addr.board {
		buf = append(buf, f.Addr.id)
	}
	buf = append(buf, byte(length), f.Command)
	buf = append(buf, f.Params...)
	buf = append(buf, Checksum(buf[2:]))

	return buf, nil
}

// DecodeFrame parses one frame of the given address mode from data.
// Returns the frame and the number of bytes consumed.
//
// The scan tolerates spurious bytes before the frame (line noise, half-duplex
// echo) by searching for the 0x55 0x55 header rather than assuming aligned
// reception. Errors: ErrHeaderNotFound when no header exists in the buffer,
// ErrIncompleteFrame when fewer bytes than the declared length are present,
// ErrChecksumMismatch when the received checksum disagrees with the one
// computed over the same range.
func DecodeFrame(addr Addr, data []byte) (Frame, int, error) {
	minLen := 2 + addr.headerSize() + 1

	headerIdx := -1
	for i := 0; i+1 < len(data); i++ {
		if data[i] == headerByte && data[i+1] == headerByte {
			headerIdx = i
			break
		}
	}
	if headerIdx < 0 {
		return Frame{}, 0, ErrHeaderNotFound
	}

	data = data[headerIdx:]
	if len(data) < minLen {
		return Frame{}, 0, fmt.Errorf("%w: %d bytes after header", ErrIncompleteFrame, len(data))
	}

	var (
		id       byte
		length   int
		cmdIdx   int
		paramIdx int
	)
	if addr.board {
		length = int(data[2])
		cmdIdx = 3
		paramIdx = 4
	} else {
		id = data[2]
		length = int(data[3])
		cmdIdx = 4
		paramIdx = 5
	}

	paramLen := length - addr.lengthOffset()
	if paramLen < 0 {
		return Frame{}, 0, fmt.Errorf("%w: declared length %d", ErrIncompleteFrame, length)
	}

	totalLen := 2 + addr.headerSize() + paramLen + 1
	if len(data) < totalLen {
		return Frame{}, 0, fmt.Errorf("%w: need %d bytes, have %d", ErrIncompleteFrame, totalLen, len(data))
	}

	expected := Checksum(data[2 : totalLen-1])
	actual := data[totalLen-1]
	if expected != actual {
		return Frame{}, 0, fmt.Errorf("%w: computed 0x%02X, received 0x%02X", ErrChecksumMismatch, expected, actual)
	}

	f := Frame{
		Addr:    Addr{board: addr.board, id: id},
		Command: data[cmdIdx],
	}
	if paramLen > 0 {
		f.Params = make([]byte, paramLen)
		copy(f.Params, data[paramIdx:paramIdx+paramLen])
	}

	return f, headerIdx + totalLen, nil
}

// Multi-byte protocol values are little-endian (low byte first).

func encodeWord(value uint16) []byte {
	buf := make([]byte, 2)
	binary.LittleEndian.PutUint16(buf, value)
	return buf
}

func decodeWord(data []byte) uint16 {
	if len(data) < 2 {
		return 0
	}
	return binary.LittleEndian.Uint16(data)
}
