package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	keyStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	sentStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	statusStyle = lipgloss.NewStyle().Faint(true)
)

// paddleModel is the interactive jog paddle: each keypress becomes one
// fifo jog command. Responses are not awaited; jog commands answer on
// the device's .out fifo, which scopemon or a tail can watch.
type paddleModel struct {
	fifoDir string
	last    string
	err     error
	vel     int
}

func runPaddle(fifoDir string) error {
	p := tea.NewProgram(paddleModel{fifoDir: fifoDir, vel: 16384})
	_, err := p.Run()
	return err
}

func (m paddleModel) Init() tea.Cmd {
	return nil
}

func (m paddleModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch keyMsg.String() {
	case "q", "ctrl+c":
		// Always leave the axes stopped on exit.
		m.send("Tel", "j0")
		m.send("Focus", "j0")
		return m, tea.Quit
	case "up":
		m.send("Tel", fmt.Sprintf("jN %d", m.vel))
	case "down":
		m.send("Tel", fmt.Sprintf("jS %d", m.vel))
	case "left":
		m.send("Tel", fmt.Sprintf("jE %d", m.vel))
	case "right":
		m.send("Tel", fmt.Sprintf("jW %d", m.vel))
	case " ":
		m.send("Tel", "j0")
	case "+", "=":
		m.send("Focus", "j+")
	case "-":
		m.send("Focus", "j-")
	case "0":
		m.send("Focus", "j0")
	case "f":
		m.vel = 2048 // fine
	case "c":
		m.vel = 16384 // coarse
	}
	return m, nil
}

// send writes one line to the device's .in fifo. The open is done per
// keypress; a paddle races no one and the fifo open cost is far below
// human reaction time.
func (m *paddleModel) send(fifoName, command string) {
	in, err := os.OpenFile(filepath.Join(m.fifoDir, fifoName+".in"), os.O_WRONLY, 0)
	if err != nil {
		m.err = fmt.Errorf("open %s.in: %w", fifoName, err)
		return
	}
	defer in.Close()
	if _, err := fmt.Fprintln(in, command); err != nil {
		m.err = fmt.Errorf("write %s.in: %w", fifoName, err)
		return
	}
	m.err = nil
	m.last = fmt.Sprintf("%s <- %s @ %s", fifoName, command, time.Now().Format("15:04:05"))
}

func (m paddleModel) View() string {
	speed := "coarse"
	if m.vel <= 2048 {
		speed = "fine"
	}

	s := titleStyle.Render("scopectl paddle") + "\n\n"
	s += keyStyle.Render("arrows") + "  jog mount N/S/E/W\n"
	s += keyStyle.Render("space ") + "  stop mount jog\n"
	s += keyStyle.Render("+ / -") + "   jog focus in/out, " + keyStyle.Render("0") + " stop\n"
	s += keyStyle.Render("f / c") + "   fine / coarse speed (now: " + speed + ")\n"
	s += keyStyle.Render("q") + "       quit (stops all jogs)\n\n"

	if m.err != nil {
		s += errStyle.Render(m.err.Error()) + "\n"
	} else if m.last != "" {
		s += sentStyle.Render(m.last) + "\n"
	}
	s += statusStyle.Render(fmt.Sprintf("fifos: %s", m.fifoDir))
	return s
}
