package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"go.bug.st/serial"

	hiwonder "github.com/hiwonder-go/hiwonder-servo"
)

const configFile = "hiwonder.json"

func main() {
	fmt.Println("🤖 Hiwonder Servo Scanner")
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Println()

	port, err := pickPort()
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	var topology string
	err = huh.NewSelect[string]().
		Title("How are the servos connected?").
		Options(
			huh.NewOption("Through the Bus Servo Controller board", "board"),
			huh.NewOption("Directly on the serial bus", "direct"),
		).
		Value(&topology).
		Run()
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	bus, err := hiwonder.NewBus(hiwonder.BusConfig{Port: port})
	if err != nil {
		fmt.Printf("Error opening %s: %v\n", port, err)
		os.Exit(1)
	}
	defer bus.Close()

	var found []int
	if topology == "board" {
		found = scanBoard(bus)
	} else {
		found = scanDirect(bus)
	}

	fmt.Println()
	if len(found) == 0 {
		fmt.Println("No servos responded.")
		fmt.Println("Check wiring and power, then run this command again.")
		os.Exit(1)
	}

	fmt.Printf("Found %d servo(s): %v\n", len(found), found)
	fmt.Println()

	var save bool
	err = huh.NewConfirm().
		Title(fmt.Sprintf("Save a joint configuration to %s?", configFile)).
		Value(&save).
		Run()
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	if !save {
		return
	}

	cfg := hiwonder.HWIConfig{Span: hiwonder.Span240Deg}
	for i, id := range found {
		cfg.Joints = append(cfg.Joints, hiwonder.JointConfig{
			Name:    fmt.Sprintf("joint%d", i+1),
			ServoID: id,
		})
	}

	if err := cfg.Save(configFile); err != nil {
		fmt.Printf("Error saving config: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("✓ Configuration saved to %s\n", configFile)
	fmt.Println()
	fmt.Println("Edit the joint names and offsets, then monitor with:")
	fmt.Printf("  go run ./cmd/hiwonder-monitor -port %s\n", port)
}

func pickPort() (string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return "", fmt.Errorf("listing ports: %w", err)
	}

	var candidates []string
	for _, p := range ports {
		// Skip Bluetooth ports on macOS
		if strings.Contains(p, "Bluetooth") {
			continue
		}
		candidates = append(candidates, p)
	}

	if len(candidates) == 0 {
		return "", fmt.Errorf("no serial ports found")
	}
	if len(candidates) == 1 {
		fmt.Printf("Using %s\n", candidates[0])
		return candidates[0], nil
	}

	var port string
	err = huh.NewSelect[string]().
		Title("Select a serial port").
		Options(huh.NewOptions(candidates...)...).
		Value(&port).
		Run()
	return port, err
}

// scanBoard queries the controller board for the battery voltage and the
// positions of servo IDs 1-8.
func scanBoard(bus *hiwonder.Bus) []int {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	board := hiwonder.NewBoard(bus)

	if v, err := board.BatteryVoltage(ctx); err != nil {
		fmt.Printf("  Battery: no response (%v)\n", err)
	} else {
		fmt.Printf("  Battery: %.2fV\n", v)
	}

	ids := []int{1, 2, 3, 4, 5, 6, 7, 8}
	positions, err := board.ReadServoPositions(ctx, ids)
	if err != nil {
		fmt.Printf("  Position scan failed: %v\n", err)
		return nil
	}

	var found []int
	for _, p := range positions {
		fmt.Printf("  Servo %d: position %d\n", p.ID, p.Position)
		found = append(found, p.ID)
	}
	return found
}

// scanDirect probes servo IDs 1-8 one at a time. A servo that reports a
// voltage is present; one that stays at the zero default is not.
func scanDirect(bus *hiwonder.Bus) []int {
	ctx := context.Background()

	var found []int
	for id := 1; id <= 8; id++ {
		servo := hiwonder.NewServo(bus, id)

		data := servo.ReadData(ctx)
		if data.Voltage == 0 {
			continue
		}

		fmt.Printf("  Servo %d: %.2f rad, %.1fV, %d°C\n",
			id, data.Position, data.Voltage, data.Temperature)
		found = append(found, id)
	}
	return found
}
