package command

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"

	"github.com/tarm/serial"
)

type ConsoleConfig struct {
	// Device is the serial port carrying the console, e.g. /dev/ttyS0.
	Device string
	Baud   int
}

// Test seam.
var openSerialFn = openSerialPort

func openSerialPort(device string, baud int) (io.ReadWriteCloser, error) {
	return serial.OpenPort(&serial.Config{Name: device, Baud: baud})
}

// Console reads operator commands line by line from a serial port and
// writes results back. One goroutine owns the port for its lifetime.
type Console struct {
	cfg  ConsoleConfig
	disp *Dispatcher

	port io.ReadWriteCloser

	stopOnce sync.Once
	stopCh   chan struct{}
	done     chan struct{}
}

func NewConsole(cfg ConsoleConfig, disp *Dispatcher) *Console {
	if cfg.Baud <= 0 {
		cfg.Baud = 115200
	}
	return &Console{
		cfg:    cfg,
		disp:   disp,
		stopCh: make(chan struct{}),
		done:   make(chan struct{}),
	}
}

func (c *Console) Start(ctx context.Context) error {
	if c == nil {
		return fmt.Errorf("console: console is nil")
	}
	if c.port == nil {
		if c.cfg.Device == "" {
			return fmt.Errorf("console: no device configured")
		}
		port, err := openSerialFn(c.cfg.Device, c.cfg.Baud)
		if err != nil {
			return fmt.Errorf("console: open %s: %w", c.cfg.Device, err)
		}
		c.port = port
	}
	go c.run(ctx)
	return nil
}

// Close closes the port, which unblocks the reader goroutine.
func (c *Console) Close() {
	if c == nil {
		return
	}
	c.stopOnce.Do(func() {
		close(c.stopCh)
		if c.port != nil {
			_ = c.port.Close()
		}
	})
}

// Done is closed when the reader goroutine has exited.
func (c *Console) Done() <-chan struct{} { return c.done }

func (c *Console) run(ctx context.Context) {
	defer close(c.done)

	// The scanner blocks in Read; ctx cancellation is delivered by
	// closing the port.
	go func() {
		select {
		case <-ctx.Done():
			c.Close()
		case <-c.stopCh:
		}
	}()

	c.prompt()
	sc := newScanner(c.port)
	for sc.Scan() {
		c.handle(ctx, sc.Text())
		c.prompt()
	}
	if err := sc.Err(); err != nil && !errors.Is(err, io.ErrClosedPipe) {
		select {
		case <-c.stopCh:
		default:
			log.Printf("console: read: %v", err)
		}
	}
}

func (c *Console) handle(ctx context.Context, line string) {
	cmd, err := Parse(line)
	if err != nil {
		fmt.Fprintf(c.port, "unrecognized command: %q\r\n", line)
		return
	}

	out, err := c.disp.Execute(ctx, cmd)
	if out != "" {
		fmt.Fprintf(c.port, "%s\r\n", crlf(out))
	}
	if err != nil {
		fmt.Fprintf(c.port, "%s: %v\r\n", cmd.Name, err)
	}
}

func (c *Console) prompt() {
	fmt.Fprint(c.port, "$ ")
}

// crlf rewrites bare newlines for terminals in raw mode.
func crlf(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			out = append(out, '\r')
		}
		out = append(out, s[i])
	}
	return string(out)
}

func newScanner(r io.Reader) *bufio.Scanner {
	sc := bufio.NewScanner(r)
	sc.Split(scanConsoleLines)
	return sc
}

// scanConsoleLines splits on CR or LF so the console works with both raw
// serial terminals (CR only) and cooked input.
func scanConsoleLines(data []byte, atEOF bool) (int, []byte, error) {
	start := 0
	for start < len(data) && (data[start] == '\r' || data[start] == '\n') {
		start++
	}
	for i := start; i < len(data); i++ {
		if data[i] == '\r' || data[i] == '\n' {
			return i + 1, data[start:i], nil
		}
	}
	if atEOF && len(data) > start {
		return len(data), data[start:], nil
	}
	return start, nil, nil
}
