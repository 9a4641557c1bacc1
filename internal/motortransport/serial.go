package motortransport

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.bug.st/serial"
)

// SerialOptions is the handful of UART parameters every real controller
// node needs, kept separate from the line-protocol concerns above it.
type SerialOptions struct {
	BaudRate int
	DataBits int
	StopBits int
	Parity   string
}

// Normalize fills in the UART defaults for anything left zero.
func (o SerialOptions) Normalize() (SerialOptions, error) {
	opts := o
	if opts.BaudRate <= 0 {
		opts.BaudRate = 9600
	}
	if opts.DataBits == 0 {
		opts.DataBits = 8
	}
	if opts.StopBits == 0 {
		opts.StopBits = 1
	}
	return opts, nil
}

func (o SerialOptions) mode() *serial.Mode {
	mode := &serial.Mode{BaudRate: o.BaudRate, DataBits: o.DataBits}
	switch o.StopBits {
	case 2:
		mode.StopBits = serial.TwoStopBits
	default:
		mode.StopBits = serial.OneStopBit
	}
	switch strings.ToUpper(o.Parity) {
	case "E", "EVEN":
		mode.Parity = serial.EvenParity
	case "O", "ODD":
		mode.Parity = serial.OddParity
	default:
		mode.Parity = serial.NoParity
	}
	return mode
}

// CsiNode is a real CSI-protocol motor-controller node reached over
// serial. The CSI wire
// format itself (program text, binary position/velocity encoding) is an
// external collaborator; this implementation frames the
// open/close/set/read/run verb set over a line-oriented serial
// connection, the write/read shape every CSI node exposes.
type CsiNode struct {
	path string
	opts SerialOptions

	mu   sync.Mutex
	port io.ReadWriteCloser
	r    *bufio.Reader
}

// NewCsiNode returns an unopened CsiNode for the given serial device
// path (e.g. "/dev/ttyUSB0").
func NewCsiNode(path string, opts SerialOptions) *CsiNode {
	return &CsiNode{path: path, opts: opts}
}

func (c *CsiNode) Open(ctx context.Context) error {
	opts, err := c.opts.Normalize()
	if err != nil {
		return err
	}
	p, err := serial.Open(c.path, opts.mode())
	if err != nil {
		return fmt.Errorf("csi node %s: open: %w", c.path, err)
	}
	c.mu.Lock()
	c.port = p
	c.r = bufio.NewReader(p)
	c.mu.Unlock()
	return nil
}

func (c *CsiNode) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.port == nil {
		return nil
	}
	err := c.port.Close()
	c.port = nil
	return err
}

func (c *CsiNode) write(line string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.port == nil {
		return fmt.Errorf("csi node %s: not open", c.path)
	}
	_, err := io.WriteString(c.port, line+"\n")
	return err
}

func (c *CsiNode) SetPos(ctx context.Context, pos float64) error {
	return c.write(fmt.Sprintf("dpos=%.9f;", pos))
}

func (c *CsiNode) SetVel(ctx context.Context, vel float64) error {
	return c.write(fmt.Sprintf("dvel=%.9f;", vel))
}

func (c *CsiNode) Stop(ctx context.Context) error {
	return c.write("stop();")
}

func (c *CsiNode) Interrupt(ctx context.Context) error {
	return c.write("\x03") // CSI nodes treat ^C as an interrupt character
}

func (c *CsiNode) RunProgram(ctx context.Context, program string) error {
	return c.write(program)
}

func (c *CsiNode) ReadPos(ctx context.Context) (float64, error) {
	if err := c.write("=pos;"); err != nil {
		return 0, err
	}
	line, _, err := c.ReadLine(ctx)
	if err != nil {
		return 0, err
	}
	return strconv.ParseFloat(strings.TrimSpace(line), 64)
}

func (c *CsiNode) ReadVel(ctx context.Context) (float64, error) {
	if err := c.write("=vel;"); err != nil {
		return 0, err
	}
	line, _, err := c.ReadLine(ctx)
	if err != nil {
		return 0, err
	}
	return strconv.ParseFloat(strings.TrimSpace(line), 64)
}

func (c *CsiNode) IsReady(ctx context.Context) (bool, error) {
	c.mu.Lock()
	r := c.r
	c.mu.Unlock()
	if r == nil {
		return false, fmt.Errorf("csi node %s: not open", c.path)
	}
	return r.Buffered() > 0, nil
}

func (c *CsiNode) ReadLine(ctx context.Context) (string, bool, error) {
	ready, err := c.IsReady(ctx)
	if err != nil || !ready {
		return "", false, err
	}
	c.mu.Lock()
	r := c.r
	c.mu.Unlock()
	line, err := r.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", false, err
	}
	return strings.TrimRight(line, "\r\n"), true, nil
}

// TtyDome is the vendor-specific dome TTY protocol variant. It records
// a poll timeout (DefaultTimeout) but sets no read deadline on the
// serial port; its ReadLine is CsiNode's.
type TtyDome struct {
	CsiNode // shares the line-oriented framing; the dome vendor protocol differs only in command vocabulary, not transport shape

	pollTimeout time.Duration
}

// NewTtyDome returns an unopened TtyDome transport.
func NewTtyDome(path string, opts SerialOptions) *TtyDome {
	return &TtyDome{CsiNode: CsiNode{path: path, opts: opts}, pollTimeout: DefaultTimeout}
}
