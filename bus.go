package hiwonder

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hiwonder-go/hiwonder-servo/transports"
)

// Bus manages communication with servos or a controller board on one
// half-duplex serial line.
//
// Every operation is a request immediately followed by a bounded-time read;
// access to the transport is serialized so a single conversation is in
// flight at a time.
type Bus struct {
	transport Transport
	timeout   time.Duration

	mu          sync.Mutex
	lastCmdTime time.Time
	minCmdGap   time.Duration
	closed      bool
}

// BusConfig holds configuration for creating a new Bus.
type BusConfig struct {
	// Transport is the underlying communication transport.
	// If nil, Port must be specified to open a serial connection.
	Transport Transport

	// Port is the serial port path (e.g., "/dev/ttyUSB0").
	// Ignored if Transport is provided.
	Port string

	// BaudRate is the communication speed. Default is 115200.
	BaudRate int

	// Timeout bounds the wait for a direct servo response.
	// Default is 100ms. Board queries use their own longer timeout.
	Timeout time.Duration

	// MinCommandGap is the minimum time between commands. Default is 1ms.
	MinCommandGap time.Duration
}

// NewBus creates a new servo bus with the given configuration.
func NewBus(cfg BusConfig) (*Bus, error) {
	if cfg.BaudRate == 0 {
		cfg.BaudRate = 115200
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 100 * time.Millisecond
	}
	if cfg.MinCommandGap == 0 {
		cfg.MinCommandGap = time.Millisecond
	}

	transport := cfg.Transport
	if transport == nil {
		if cfg.Port == "" {
			return nil, errors.New("either Transport or Port must be specified")
		}
		var err error
		transport, err = transports.OpenSerial(transports.SerialConfig{
			Port:     cfg.Port,
			BaudRate: cfg.BaudRate,
			Timeout:  cfg.Timeout,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to open serial port: %w", err)
		}
	}

	return &Bus{
		transport:   transport,
		timeout:     cfg.Timeout,
		minCmdGap:   cfg.MinCommandGap,
		lastCmdTime: time.Now(),
	}, nil
}

// Close closes the bus and releases resources.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true

	return b.transport.Close()
}

// Timeout returns the configured direct-response timeout.
func (b *Bus) Timeout() time.Duration {
	return b.timeout
}

// command sends a frame without reading a response (fire-and-forget).
func (b *Bus) command(f Frame) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrBusClosed
	}

	return b.sendFrameLocked(f)
}

// transactDirect sends a direct frame and reads one direct response carrying
// paramLen parameter bytes.
func (b *Bus) transactDirect(ctx context.Context, f Frame, paramLen int) (Frame, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return Frame{}, ErrBusClosed
	}

	if err := b.sendFrameLocked(f); err != nil {
		return Frame{}, err
	}

	return b.readDirectLocked(ctx, paramLen)
}

// transactBoard sends a board frame and reads one board response within the
// given timeout.
func (b *Bus) transactBoard(ctx context.Context, f Frame, timeout time.Duration) (Frame, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return Frame{}, ErrBusClosed
	}

	if err := b.sendFrameLocked(f); err != nil {
		return Frame{}, err
	}

	return b.readBoardLocked(ctx, timeout)
}

func (b *Bus) enforceCommandGap() {
	elapsed := time.Since(b.lastCmdTime)
	if elapsed < b.minCmdGap {
		time.Sleep(b.minCmdGap - elapsed)
	}
}

func (b *Bus) sendFrameLocked(f Frame) error {
	packet, err := f.Encode()
	if err != nil {
		return err
	}

	b.enforceCommandGap()

	// Flush any stale input
	b.transport.Flush()

	n, err := b.transport.Write(packet)
	if err != nil {
		return fmt.Errorf("write failed: %w", err)
	}
	if n != len(packet) {
		return fmt.Errorf("incomplete write: %d of %d bytes", n, len(packet))
	}

	b.lastCmdTime = time.Now()

	// Small delay for half-duplex turnaround
	time.Sleep(100 * time.Microsecond)

	return nil
}

// readDirectLocked reads one direct-mode response frame:
// header(2) + id(1) + length(1) + command(1) + params(paramLen) + checksum(1).
// The checksum is validated; a mismatched frame is discarded.
func (b *Bus) readDirectLocked(ctx context.Context, paramLen int) (Frame, error) {
	deadline := time.Now().Add(b.timeout)

	if err := b.scanHeaderLocked(ctx, deadline); err != nil {
		return Frame{}, err
	}

	rest := make([]byte, 3+paramLen+1) // id + length + command + params + checksum
	if err := b.readFullLocked(ctx, deadline, rest); err != nil {
		return Frame{}, err
	}

	full := append([]byte{headerByte, headerByte}, rest...)
	f, _, err := DecodeFrame(ServoAddr(0), full)
	return f, err
}

// readBoardLocked reads one board-mode response frame:
// header(2) + length(1) + command(1) + payload(length-2).
// Board responses carry no checksum byte; a trailing byte, if the firmware
// sends one, is discarded by the next header scan.
func (b *Bus) readBoardLocked(ctx context.Context, timeout time.Duration) (Frame, error) {
	deadline := time.Now().Add(timeout)

	if err := b.scanHeaderLocked(ctx, deadline); err != nil {
		return Frame{}, err
	}

	meta := make([]byte, 2)
	if err := b.readFullLocked(ctx, deadline, meta); err != nil {
		return Frame{}, err
	}

	length, cmd := int(meta[0]), meta[1]
	if length < 2 {
		return Frame{}, fmt.Errorf("%w: declared length %d", ErrInvalidResponse, length)
	}

	payload := make([]byte, length-2)
	if err := b.readFullLocked(ctx, deadline, payload); err != nil {
		return Frame{}, err
	}

	return Frame{Addr: BoardAddr, Command: cmd, Params: payload}, nil
}

// scanHeaderLocked consumes bytes until the two-byte 0x55 0x55 header is
// seen. Any other byte restarts the scan; this tolerates line noise and
// half-duplex echo without assuming byte-aligned reception.
func (b *Bus) scanHeaderLocked(ctx context.Context, deadline time.Time) error {
	sawFirst := false
	for {
		c, err := b.readByteLocked(ctx, deadline)
		if err != nil {
			return err
		}
		if c == headerByte {
			if sawFirst {
				return nil
			}
			sawFirst = true
		} else {
			sawFirst = false
		}
	}
}

func (b *Bus) readFullLocked(ctx context.Context, deadline time.Time, buf []byte) error {
	total := 0
	for total < len(buf) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if time.Now().After(deadline) {
			return fmt.Errorf("%w: read %d of %d expected bytes", ErrTimeout, total, len(buf))
		}

		b.transport.SetReadTimeout(max(time.Until(deadline), 10*time.Millisecond))

		n, _ := b.transport.Read(buf[total:])
		if n == 0 {
			time.Sleep(time.Millisecond)
			continue
		}
		total += n
	}
	return nil
}

func (b *Bus) readByteLocked(ctx context.Context, deadline time.Time) (byte, error) {
	buf := make([]byte, 1)
	for {
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		default:
		}

		if time.Now().After(deadline) {
			return 0, ErrNoResponse
		}

		b.transport.SetReadTimeout(max(time.Until(deadline), 10*time.Millisecond))

		n, _ := b.transport.Read(buf)
		if n == 1 {
			return buf[0], nil
		}
		time.Sleep(time.Millisecond)
	}
}

func validateID(id int) error {
	if id < MinServoID || id > MaxServoID {
		return fmt.Errorf("%w: %d (valid range: %d-%d)", ErrInvalidID, id, MinServoID, MaxServoID)
	}
	return nil
}
