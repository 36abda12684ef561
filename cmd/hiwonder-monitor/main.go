package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/NimbleMarkets/ntcharts/canvas/runes"
	"github.com/NimbleMarkets/ntcharts/linechart/streamlinechart"

	hiwonder "github.com/hiwonder-go/hiwonder-servo"
)

const (
	headerHeight = 2 // title + blank line
	footerHeight = 3 // status line + border
	borderSize   = 2 // chart border
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	chartStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240"))
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	posStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("46"))
	speedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("208"))
)

type model struct {
	src      hiwonder.TelemetryReader
	interval time.Duration
	chart    *streamlinechart.Model
	latest   hiwonder.Telemetry
	width    int
	height   int
	quitting bool
}

type sampleMsg hiwonder.Telemetry

func sampleAfter(src hiwonder.TelemetryReader, interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(time.Time) tea.Msg {
		return sampleMsg(src.ReadData(context.Background()))
	})
}

func (m *model) chartSize() (width, height int) {
	if m.width == 0 || m.height == 0 {
		return 80, 20 // default size before we know terminal size
	}
	width = m.width - borderSize - 2
	if width < 40 {
		width = 40
	}
	height = m.height - headerHeight - footerHeight - borderSize
	if height < 10 {
		height = 10
	}
	return width, height
}

func initialModel(src hiwonder.TelemetryReader, interval time.Duration) model {
	chart := streamlinechart.New(80, 20,
		streamlinechart.WithYRange(-4, 4),
	)
	chart.SetDataSetStyles("position", runes.ThinLineStyle, posStyle)
	chart.SetDataSetStyles("speed", runes.ThinLineStyle, speedStyle)

	return model{
		src:      src,
		interval: interval,
		chart:    &chart,
	}
}

func (m model) Init() tea.Cmd {
	return sampleAfter(m.src, m.interval)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		w, h := m.chartSize()
		m.chart.Resize(w, h)
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}

	case sampleMsg:
		m.latest = hiwonder.Telemetry(msg)
		m.chart.PushDataSet("position", m.latest.Position)
		m.chart.PushDataSet("speed", m.latest.Speed)
		m.chart.DrawAll()
		return m, sampleAfter(m.src, m.interval)
	}

	return m, nil
}

func (m model) View() string {
	if m.quitting {
		return "Monitor stopped.\n"
	}

	var sb strings.Builder

	sb.WriteString(titleStyle.Render("Hiwonder Servo Monitor"))
	sb.WriteString(fmt.Sprintf(" - %.0f Hz", float64(time.Second)/float64(m.interval)))
	sb.WriteString("\n\n")

	sb.WriteString(chartStyle.Render(m.chart.View()))
	sb.WriteString("\n")

	legend := posStyle.Render("━━") + " position (rad)  " + speedStyle.Render("━━") + " speed (rad/s)"
	status := fmt.Sprintf("pos %+.3f rad  speed %+.3f rad/s  %.1fV  %d°C",
		m.latest.Position, m.latest.Speed, m.latest.Voltage, m.latest.Temperature)
	sb.WriteString(legend + "\n")
	sb.WriteString(statusStyle.Render(status + "  -  press 'q' to quit"))
	sb.WriteString("\n")

	return sb.String()
}

func main() {
	var (
		port  = flag.String("port", "", "Serial port (e.g. /dev/ttyUSB0)")
		id    = flag.Int("id", 1, "Servo ID to monitor")
		board = flag.Bool("board", false, "Reach the servo through the controller board")
		hz    = flag.Int("hz", 20, "Sample frequency")
	)
	flag.Parse()

	if *port == "" {
		log.Fatal("A serial port is required; run ./cmd/hiwonder-info to find one")
	}
	if *hz <= 0 {
		log.Fatal("-hz must be positive")
	}

	bus, err := hiwonder.NewBus(hiwonder.BusConfig{Port: *port})
	if err != nil {
		log.Fatalf("Failed to open %s: %v", *port, err)
	}
	defer bus.Close()

	var src hiwonder.TelemetryReader
	if *board {
		src = hiwonder.NewBoardServo(hiwonder.NewBoard(bus), *id)
	} else {
		src = hiwonder.NewServo(bus, *id)
	}

	// The device has no speed feedback; derive it from position samples.
	est := hiwonder.NewSpeedEstimator(src)

	interval := time.Second / time.Duration(*hz)
	p := tea.NewProgram(initialModel(est, interval), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		log.Fatalf("Monitor failed: %v", err)
	}
}
